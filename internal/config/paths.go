package config

import (
	"os"
	"path/filepath"
)

// Paths contains standard filesystem paths for bb.
type Paths struct {
	// ConfigFile is the path to the config file (~/.buildandburn/config.yaml).
	ConfigFile string

	// RegistryRoot is the environment registry root (~/.buildandburn).
	RegistryRoot string

	// HomeDir is the bb home directory (~/.buildandburn).
	HomeDir string
}

// DefaultPaths returns the default paths for bb.
func DefaultPaths() (*Paths, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	bbHome := filepath.Join(homeDir, ".buildandburn")

	return &Paths{
		ConfigFile:   filepath.Join(bbHome, "config.yaml"),
		RegistryRoot: bbHome,
		HomeDir:      bbHome,
	}, nil
}

// GetConfigFile returns the config file path.
// If BB_CONFIG is set, it takes precedence.
func GetConfigFile() (string, error) {
	if envPath := os.Getenv("BB_CONFIG"); envPath != "" {
		return envPath, nil
	}

	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	return paths.ConfigFile, nil
}

// GetRegistryRoot returns the registry root path.
// If BB_REGISTRY_ROOT is set, it takes precedence.
func GetRegistryRoot() (string, error) {
	if envPath := os.Getenv("BB_REGISTRY_ROOT"); envPath != "" {
		return envPath, nil
	}

	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	return paths.RegistryRoot, nil
}

// EnsureRegistryRoot creates the registry root directory if it doesn't exist.
func EnsureRegistryRoot(root string) error {
	if root == "" {
		var err error
		root, err = GetRegistryRoot()
		if err != nil {
			return err
		}
	}

	return os.MkdirAll(root, 0o755)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) == 0 {
		return path, nil
	}

	if path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if len(path) == 1 {
		return homeDir, nil
	}

	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:]), nil
	}

	// ~username is not supported, return as-is
	return path, nil
}
