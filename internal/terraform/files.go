package terraform

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// VarsFileName is the engine's variables document.
const VarsFileName = "terraform.tfvars.json"

// WriteVariables writes the plan variables into the working directory.
func WriteVariables(workDir string, vars map[string]any) error {
	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding variables: %w", err)
	}
	data = append(data, '\n')

	return os.WriteFile(filepath.Join(workDir, VarsFileName), data, 0o644)
}

// WriteBackendOverride pins the engine to a single local state file under
// the working directory, so every module of the environment shares one
// state regardless of what the copied configuration declares.
func WriteBackendOverride(workDir string) error {
	stateDir := filepath.Join(workDir, "state")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return err
	}

	statePath := filepath.Join(stateDir, "terraform.tfstate")
	content := fmt.Sprintf(`terraform {
  backend "local" {
    path = %q
  }
}
`, statePath)

	return os.WriteFile(filepath.Join(workDir, "backend_override.tf"), []byte(content), 0o644)
}

// CopyTree copies the provisioning configuration into the environment's
// working directory so each environment owns an isolated, inspectable
// copy.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
