package cmd

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bberrors "github.com/buildandburn/bb/internal/errors"
)

func TestExitCodeFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitGeneralError},
		{"validation", bberrors.NewValidationError("services[0].name", "empty"), ExitInvalidInput},
		{"plan", bberrors.NewPlanError("duplicate dependency type %q", "database"), ExitInvalidInput},
		{"naming conflict", fmt.Errorf("env: %w", bberrors.ErrNamingConflict), ExitInvalidInput},
		{"render", &bberrors.RenderError{Placeholder: "DATABASE_ENDPOINT", Location: "Deployment/api"}, ExitInvalidInput},
		{"not found", fmt.Errorf("env %q: %w", "a1b2c3d4", bberrors.ErrNotFound), ExitNotFound},
		{"provisioning", &bberrors.ProvisioningError{Action: "apply", Err: errors.New("exit status 1")}, ExitProvisioningError},
		{"apply", &bberrors.ApplyError{Namespace: "bb-shop", Err: errors.New("forbidden")}, ExitApplyError},
		{"explicit exit error", NewExitError(errors.New("boom"), ExitNotFound), ExitNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ExitCodeFromError(tt.err))
		})
	}
}

func TestExitCodeFromStageWrappedError(t *testing.T) {
	// Stage wrapping must not hide the classification of the cause.
	err := &bberrors.StageError{
		Stage:   "Provisioning",
		WorkDir: "/tmp/env",
		Err:     &bberrors.ProvisioningError{Action: "apply", Err: errors.New("exit status 1")},
	}
	assert.Equal(t, ExitProvisioningError, ExitCodeFromError(err))
}

func TestExecuteMapsUsageErrorsToInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing manifest argument", []string{"up"}},
		{"missing env id argument", []string{"down"}},
		{"unknown flag", []string{"list", "--bogus"}},
		{"unknown command", []string{"frobnicate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd := NewRootCmd()
			rootCmd.SetArgs(tt.args)
			rootCmd.SetOut(io.Discard)
			rootCmd.SetErr(io.Discard)

			err := Execute(rootCmd)
			require.Error(t, err)
			assert.Equal(t, ExitInvalidInput, ExitCodeFromError(err))
		})
	}
}

func TestExecutePreservesCommandExitCodes(t *testing.T) {
	// Errors already classified by a command must pass through intact.
	rootCmd := &cobra.Command{
		Use:           "bb",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return NewExitError(fmt.Errorf("env %q: %w", "a1b2c3d4", bberrors.ErrNotFound), ExitNotFound)
		},
	}

	err := Execute(rootCmd)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitNotFound, exitErr.Code)
}

func TestWrapExit(t *testing.T) {
	assert.NoError(t, WrapExit(nil))

	err := WrapExit(fmt.Errorf("env %q: %w", "a1b2c3d4", bberrors.ErrNotFound))
	var exitErr *ExitError
	assert.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitNotFound, exitErr.Code)
}
