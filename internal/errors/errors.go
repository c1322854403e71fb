// Package errors provides sentinel errors and typed error values for the
// bb CLI. Every failure surfaced to the user wraps one of the sentinels so
// the command layer can map it to an exit code with errors.Is.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for known conditions.
var (
	// ErrValidation indicates a malformed manifest. Raised before any
	// external side effect occurs.
	ErrValidation = errors.New("validation error")

	// ErrPlan indicates the manifest could not be compiled into an
	// infrastructure plan (e.g. two dependencies of the same type).
	ErrPlan = errors.New("plan error")

	// ErrNamingConflict indicates a duplicate environment id.
	ErrNamingConflict = errors.New("naming conflict")

	// ErrProvisioning indicates the external provisioning engine failed.
	ErrProvisioning = errors.New("provisioning error")

	// ErrRender indicates a placeholder could not be resolved from
	// provisioning outputs. Always fatal, never defaulted.
	ErrRender = errors.New("render error")

	// ErrApply indicates the cluster applier failed.
	ErrApply = errors.New("apply error")

	// ErrRegistry indicates corrupted or missing environment metadata.
	ErrRegistry = errors.New("registry error")

	// ErrNotFound indicates an environment was not found in the registry.
	ErrNotFound = errors.New("environment not found")

	// ErrBusy indicates another lifecycle operation holds the environment
	// working directory.
	ErrBusy = errors.New("environment busy")
)

// ValidationError reports the first offending field of a manifest.
// Validation does not attempt partial recovery: the manifest is accepted
// or rejected as a whole.
type ValidationError struct {
	// Field is the path of the offending field, e.g. "services[0].name".
	Field string

	// Reason is a human-readable explanation.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid manifest: %s", e.Reason)
	}
	return fmt.Sprintf("invalid manifest: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for a field path.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PlanError reports a manifest that validated but cannot be compiled into
// an infrastructure plan.
type PlanError struct {
	Reason string
}

// Error implements the error interface.
func (e *PlanError) Error() string {
	return fmt.Sprintf("plan error: %s", e.Reason)
}

// Is reports whether target is ErrPlan.
func (e *PlanError) Is(target error) bool {
	return target == ErrPlan
}

// NewPlanError creates a PlanError.
func NewPlanError(format string, args ...any) error {
	return &PlanError{Reason: fmt.Sprintf(format, args...)}
}

// ProvisioningError carries the captured stderr of a failed provisioning
// engine invocation. The working directory is preserved for inspection.
type ProvisioningError struct {
	// Action is the engine action that failed (init, apply, destroy).
	Action string

	// Stderr is the tail of the engine's captured stderr.
	Stderr string

	// Err is the underlying process error.
	Err error
}

// Error implements the error interface.
func (e *ProvisioningError) Error() string {
	msg := fmt.Sprintf("provisioning engine %s failed: %v", e.Action, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\n" + s
	}
	return msg
}

// Unwrap returns the underlying process error.
func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrProvisioning.
func (e *ProvisioningError) Is(target error) bool {
	return target == ErrProvisioning
}

// RenderError reports a placeholder that survived render-mode compilation.
// This means a provisioning output the plan promised never materialized;
// it is treated as an internal consistency bug and is always fatal.
type RenderError struct {
	// Placeholder is the unresolved reference, e.g. "DATABASE_ENDPOINT".
	Placeholder string

	// Location identifies where the placeholder was used.
	Location string
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render error: placeholder ${%s} in %s has no matching provisioning output", e.Placeholder, e.Location)
}

// Is reports whether target is ErrRender.
func (e *RenderError) Is(target error) bool {
	return target == ErrRender
}

// ApplyError carries the failure of a cluster applier invocation.
type ApplyError struct {
	// Namespace is the target namespace of the failed apply.
	Namespace string

	// OwnershipConflict marks the known namespace-ownership failure mode
	// that is auto-recovered exactly once.
	OwnershipConflict bool

	// Err is the underlying applier error.
	Err error
}

// Error implements the error interface.
func (e *ApplyError) Error() string {
	if e.OwnershipConflict {
		return fmt.Sprintf("apply to namespace %q failed: namespace owned by another tool: %v", e.Namespace, e.Err)
	}
	return fmt.Sprintf("apply to namespace %q failed: %v", e.Namespace, e.Err)
}

// Unwrap returns the underlying applier error.
func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrApply.
func (e *ApplyError) Is(target error) bool {
	return target == ErrApply
}

// StageError annotates a lifecycle failure with the stage it occurred in
// and the working directory preserved for postmortem.
type StageError struct {
	// Stage is the lifecycle stage name, e.g. "Provisioning".
	Stage string

	// WorkDir is the environment working directory left intact.
	WorkDir string

	// Err is the stage's underlying error.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage %s failed: %v", e.Stage, e.Err)
	if e.WorkDir != "" {
		fmt.Fprintf(&b, "\nworking directory preserved for inspection: %s", e.WorkDir)
	}
	return b.String()
}

// Unwrap returns the stage's underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Wrap wraps an error with a sentinel error type.
func Wrap(sentinel error, message string) error {
	return fmt.Errorf("%s: %w", message, sentinel)
}
