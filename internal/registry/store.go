package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/buildandburn/bb/internal/errors"
	"github.com/buildandburn/bb/internal/output"
)

// Store is a directory-backed environment registry.
type Store struct {
	root string
}

// NewStore opens (creating if needed) the registry at root.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, errors.Wrap(errors.ErrRegistry, "registry root is empty")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating registry root: %w", err)
	}

	return &Store{root: root}, nil
}

// Root returns the registry root directory.
func (s *Store) Root() string {
	return s.root
}

// EnvDir returns the directory of one environment.
func (s *Store) EnvDir(envID string) string {
	return filepath.Join(s.root, envID)
}

// NewEnvID generates a short opaque environment id.
func NewEnvID() string {
	return uuid.NewString()[:8]
}

// Allocate reserves a directory for a new environment. A user-supplied id
// that already exists is a hard failure, never silently renamed; an empty
// id gets a fresh generated one, retried on the (unlikely) collision.
func (s *Store) Allocate(envID string) (string, error) {
	// Mkdir is the reservation itself: creating the directory claims the
	// id atomically, so two concurrent runs can never both win it.
	if envID != "" {
		if err := os.Mkdir(s.EnvDir(envID), 0o755); err != nil {
			if os.IsExist(err) {
				return "", fmt.Errorf("environment %q already exists: %w", envID, errors.ErrNamingConflict)
			}
			return "", fmt.Errorf("creating environment directory: %w", err)
		}
		return envID, nil
	}

	for range 5 {
		id := NewEnvID()
		if err := os.Mkdir(s.EnvDir(id), 0o755); err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", fmt.Errorf("creating environment directory: %w", err)
		}
		return id, nil
	}

	return "", errors.Wrap(errors.ErrNamingConflict, "could not allocate a unique environment id")
}

// Save writes a record into its environment directory.
func (s *Store) Save(r *Record) error {
	if r.EnvID == "" {
		return errors.Wrap(errors.ErrRegistry, "record has no environment id")
	}

	dir := s.EnvDir(r.EnvID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating environment directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	data = append(data, '\n')

	// Write-and-rename so a crash never leaves a half-written record.
	tmp := filepath.Join(dir, RecordFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}

	return os.Rename(tmp, filepath.Join(dir, RecordFileName))
}

// Get reads one environment's record.
func (s *Store) Get(envID string) (*Record, error) {
	raw, err := os.ReadFile(filepath.Join(s.EnvDir(envID), RecordFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("environment %q: %w", envID, errors.ErrNotFound)
		}
		return nil, fmt.Errorf("reading record for %q: %w", envID, err)
	}

	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("record for %q is corrupted: %w: %w", envID, errors.ErrRegistry, err)
	}

	return &r, nil
}

// List enumerates all environments, newest first. A directory with a
// missing or unparsable record is skipped with a warning; one corrupted
// environment must never hide the others.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading registry root: %w", err)
	}

	var summaries []Summary
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		r, err := s.Get(entry.Name())
		if err != nil {
			output.Warn("skipping unreadable environment", "env_id", entry.Name(), "error", err)
			continue
		}

		summaries = append(summaries, r.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	return summaries, nil
}

// Remove deletes an environment's directory and everything in it.
func (s *Store) Remove(envID string) error {
	dir := s.EnvDir(envID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("environment %q: %w", envID, errors.ErrNotFound)
		}
		return err
	}

	return os.RemoveAll(dir)
}
