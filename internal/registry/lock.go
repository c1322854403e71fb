package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/buildandburn/bb/internal/errors"
)

// LockFileName is the advisory lock inside an environment directory.
const LockFileName = ".bb.lock"

// Lock is an advisory per-environment lock. One lifecycle operation owns
// an environment at a time; a second up or down against the same
// environment fails fast instead of interleaving state mutations.
type Lock struct {
	path string
}

// AcquireLock takes the advisory lock for an environment directory.
// Returns ErrBusy when another operation holds it.
func AcquireLock(envDir string) (*Lock, error) {
	path := filepath.Join(envDir, LockFileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("environment directory %s is locked by another operation: %w",
				envDir, errors.ErrBusy)
		}
		return nil, fmt.Errorf("acquiring environment lock: %w", err)
	}

	fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		return nil, err
	}

	return &Lock{path: path}, nil
}

// Release drops the lock. Safe to call once the operation is finished,
// whatever its outcome.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	err := os.Remove(l.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
