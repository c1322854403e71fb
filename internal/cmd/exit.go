package cmd

import (
	"errors"

	bberrors "github.com/buildandburn/bb/internal/errors"
)

// Exit codes surfaced by the bb CLI.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitInvalidInput indicates a malformed manifest, an uncompilable
	// plan, or a bad invocation.
	ExitInvalidInput = 2

	// ExitNotFound indicates the named environment does not exist.
	ExitNotFound = 3

	// ExitProvisioningError indicates the provisioning engine failed.
	ExitProvisioningError = 4

	// ExitApplyError indicates the cluster applier failed.
	ExitApplyError = 5
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Err  error
	Code int

	// Printed marks errors the command layer already reported, so main
	// does not print them twice.
	Printed bool
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given error and exit code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// ExitCodeFromError determines the appropriate exit code for an error.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, bberrors.ErrValidation),
		errors.Is(err, bberrors.ErrPlan),
		errors.Is(err, bberrors.ErrNamingConflict),
		errors.Is(err, bberrors.ErrRender):
		return ExitInvalidInput
	case errors.Is(err, bberrors.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, bberrors.ErrProvisioning):
		return ExitProvisioningError
	case errors.Is(err, bberrors.ErrApply):
		return ExitApplyError
	default:
		return ExitGeneralError
	}
}

// WrapExit classifies err and wraps it with its exit code.
func WrapExit(err error) error {
	if err == nil {
		return nil
	}
	return NewExitError(err, ExitCodeFromError(err))
}
