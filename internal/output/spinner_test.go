package output

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithSpinnerReturnsActionError(t *testing.T) {
	wantErr := errors.New("engine failed")

	done := make(chan error, 1)
	go func() {
		done <- RunWithSpinner(context.Background(), func() error {
			return wantErr
		}, WithTitle("Working..."))
	}()

	// The call must come back as soon as the action does, never hang on
	// a result that was already consumed.
	select {
	case err := <-done:
		assert.ErrorIs(t, err, wantErr)
	case <-time.After(2 * time.Second):
		t.Fatal("RunWithSpinner did not return after the action completed")
	}
}

func TestAwaitActionDeliversSingleResult(t *testing.T) {
	wantErr := errors.New("boom")

	errCh := make(chan error, 1)
	errCh <- wantErr

	err := awaitAction(context.Background(), errCh)
	require.ErrorIs(t, err, wantErr)

	// The one buffered result is gone now. Anything that received again
	// after this point would block forever.
	select {
	case extra := <-errCh:
		t.Fatalf("unexpected second result: %v", extra)
	default:
	}
}

func TestAwaitActionHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := awaitAction(ctx, make(chan error, 1))
	assert.ErrorIs(t, err, context.Canceled)
}
