// Package terraform drives the external provisioning engine as a
// subprocess. The engine is the only component allowed to mutate cloud
// state; everything above it speaks through the Engine interface.
package terraform

import (
	"context"
	"encoding/json"
	"fmt"
)

// Engine is the provisioning engine contract consumed by the lifecycle
// orchestrator. Calls may block for minutes; all take a context and are
// cancellable. Cancellation leaves the working directory exactly as a
// mid-failure would.
type Engine interface {
	// Init prepares the working directory (providers, backend).
	Init(ctx context.Context) error

	// Plan computes and saves an execution plan.
	Plan(ctx context.Context) error

	// Apply provisions the planned infrastructure.
	Apply(ctx context.Context) error

	// Destroy tears infrastructure down. With targets it destroys only
	// the addressed modules, in the given order.
	Destroy(ctx context.Context, targets ...string) error

	// Outputs reads the engine's output values.
	Outputs(ctx context.Context) (Outputs, error)
}

// Output is one engine output value.
type Output struct {
	// Value is the raw output value.
	Value any `json:"value"`

	// Sensitive marks credentials and other values that must not be
	// printed without an explicit request.
	Sensitive bool `json:"sensitive"`
}

// Outputs maps output names to values, as read from `output -json`.
type Outputs map[string]Output

// String renders the named output as a string, empty if absent.
func (o Outputs) String(name string) string {
	out, ok := o[name]
	if !ok || out.Value == nil {
		return ""
	}

	switch v := out.Value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

// Has reports whether the named output exists with a non-nil value.
func (o Outputs) Has(name string) bool {
	out, ok := o[name]
	return ok && out.Value != nil
}

// parseOutputs decodes the JSON document produced by `output -json`.
func parseOutputs(raw []byte) (Outputs, error) {
	if len(raw) == 0 {
		return Outputs{}, nil
	}

	var outputs Outputs
	if err := json.Unmarshal(raw, &outputs); err != nil {
		return nil, fmt.Errorf("parsing engine outputs: %w", err)
	}

	return outputs, nil
}
