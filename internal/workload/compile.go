// Package workload compiles a manifest into the Kubernetes resources of
// one environment. It runs in two modes: plan mode validates placeholder
// references before anything is provisioned, render mode substitutes
// provisioning outputs and produces the final documents.
package workload

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/buildandburn/bb/internal/errors"
	"github.com/buildandburn/bb/internal/manifest"
	"github.com/buildandburn/bb/internal/naming"
)

// ResourceSet is the compiled workload of one environment.
type ResourceSet struct {
	// Namespace is the single namespace every resource lives in.
	Namespace string

	// Source records where the documents came from.
	Source SourceKind

	// Items are the workload documents, unsorted. The applier owns
	// ordering.
	Items []*unstructured.Unstructured
}

// Compile builds the resource set for a manifest. With outputs == nil it
// runs in plan mode: every ${NAME} reference must name an output one of
// the declared dependencies advertises. With outputs set it runs in
// render mode: references are substituted and a survivor the
// dependencies advertise is a hard failure.
func Compile(m *manifest.Manifest, envID string, outputs map[string]string) (*ResourceSet, error) {
	namespace := naming.Namespace(m.Name)

	set := &ResourceSet{
		Namespace: namespace,
		Source:    SourceGenerated,
	}

	if outputs == nil {
		if err := validatePlaceholders(m); err != nil {
			return nil, err
		}
	}

	for i := range m.Services {
		objs, err := generateService(m, &m.Services[i], namespace, envID)
		if err != nil {
			return nil, err
		}
		set.Items = append(set.Items, objs...)
	}

	for i := range m.Dependencies {
		secret, err := toUnstructured(buildCredentialSecret(m.Name, &m.Dependencies[i], namespace))
		if err != nil {
			return nil, err
		}
		InjectLabels(secret, m.Name, envID)
		set.Items = append(set.Items, secret)
	}

	if outputs != nil {
		if err := set.render(outputs, advertisedOutputs(m)); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// CompileFromSource builds the resource set from authored documents
// instead of generation. Documents are applied as written apart from
// namespace enforcement and render-mode substitution; env and label
// injection are skipped.
func CompileFromSource(ctx context.Context, src Source, m *manifest.Manifest, outputs map[string]string) (*ResourceSet, error) {
	namespace := naming.Namespace(m.Name)

	items, err := src.Resources(ctx, namespace)
	if err != nil {
		return nil, err
	}

	set := &ResourceSet{
		Namespace: namespace,
		Source:    src.Kind(),
		Items:     items,
	}

	if outputs != nil {
		if err := set.render(outputs, advertisedOutputs(m)); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// render substitutes provisioning outputs into every string field of
// every document. A surviving placeholder that a declared dependency
// advertises means the promised output never materialized; anything
// else is authored text, for example a shell variable in a container
// command, and passes through untouched.
func (s *ResourceSet) render(outputs map[string]string, expected map[string]bool) error {
	for _, item := range s.Items {
		location := fmt.Sprintf("%s/%s", item.GetKind(), item.GetName())

		rendered, err := renderValue(item.Object, outputs, expected, location)
		if err != nil {
			return err
		}
		item.Object = rendered.(map[string]any)
	}
	return nil
}

func renderValue(v any, outputs map[string]string, expected map[string]bool, location string) (any, error) {
	switch val := v.(type) {
	case string:
		expanded := manifest.ExpandPlaceholders(val, outputs)
		for _, missing := range manifest.UnresolvedPlaceholders(expanded, outputs) {
			if expected[missing] {
				return nil, &errors.RenderError{Placeholder: missing, Location: location}
			}
		}
		return expanded, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			rendered, err := renderValue(inner, outputs, expected, location)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			rendered, err := renderValue(inner, outputs, expected, location)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	default:
		return v, nil
	}
}

// advertisedOutputs collects every output name the declared dependencies
// promise to produce.
func advertisedOutputs(m *manifest.Manifest) map[string]bool {
	advertised := make(map[string]bool)
	for i := range m.Dependencies {
		for _, name := range m.Dependencies[i].ExpectedOutputs() {
			advertised[name] = true
		}
	}
	return advertised
}

// validatePlaceholders checks, before any side effect, that every
// placeholder in service env and config data resolves to an output a
// declared dependency advertises.
func validatePlaceholders(m *manifest.Manifest) error {
	advertised := advertisedOutputs(m)

	for i := range m.Services {
		svc := &m.Services[i]

		for j, env := range svc.Env {
			for _, ref := range manifest.UnresolvedPlaceholders(env.Value, nil) {
				if !advertised[ref] {
					return &errors.ValidationError{
						Field:  fmt.Sprintf("services[%d].env[%d]", i, j),
						Reason: fmt.Sprintf("placeholder ${%s} does not match any declared dependency output", ref),
					}
				}
			}
		}

		for key, val := range svc.ConfigData {
			for _, ref := range manifest.UnresolvedPlaceholders(val, nil) {
				if !advertised[ref] {
					return &errors.ValidationError{
						Field:  fmt.Sprintf("services[%d].config_data[%s]", i, key),
						Reason: fmt.Sprintf("placeholder ${%s} does not match any declared dependency output", ref),
					}
				}
			}
		}
	}

	return nil
}
