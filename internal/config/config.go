// Package config provides configuration loading and management.
package config

// Config represents the bb CLI configuration.
// Loaded from ~/.buildandburn/config.yaml, merged with BB_* environment
// variables and command-line flags.
type Config struct {
	// RegistryRoot is the directory where environment records live.
	// Env: BB_REGISTRY_ROOT, Default: ~/.buildandburn
	RegistryRoot string `json:"registryRoot,omitempty" mapstructure:"registryRoot"`

	// Region is the default provider region used when the manifest does
	// not specify one.
	// Env: BB_REGION, Default: "us-west-2"
	Region string `json:"region,omitempty" mapstructure:"region"`

	// TerraformBinary is the provisioning engine executable to invoke.
	// Env: BB_TERRAFORM_BINARY, Default: "terraform"
	TerraformBinary string `json:"terraformBinary,omitempty" mapstructure:"terraformBinary"`

	// ModulesDir is the directory holding the provisioning module sources
	// copied into each environment's working directory. When empty, a
	// "terraform" directory next to the executable is used.
	// Env: BB_MODULES_DIR
	ModulesDir string `json:"modulesDir,omitempty" mapstructure:"modulesDir"`

	// Kubeconfig is the path to a kubeconfig file used for cluster
	// operations. When empty, the engine-produced kubeconfig for the
	// environment is used.
	// Env: BB_KUBECONFIG
	Kubeconfig string `json:"kubeconfig,omitempty" mapstructure:"kubeconfig"`

	// Log contains logging-related settings.
	Log LogConfig `json:"log,omitempty" mapstructure:"log"`
}

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Timestamps controls whether timestamps are shown in log output.
	// Default: false. Override with --verbose flag.
	Timestamps *bool `json:"timestamps,omitempty" mapstructure:"timestamps"`
}

// Default configuration values.
const (
	DefaultRegion          = "us-west-2"
	DefaultTerraformBinary = "terraform"
)

// DefaultConfig returns a Config with all default values populated.
func DefaultConfig() *Config {
	return &Config{
		Region:          DefaultRegion,
		TerraformBinary: DefaultTerraformBinary,
	}
}

// WithDefaults returns a copy of the config with empty fields replaced by
// their defaults. RegistryRoot stays empty here; it requires a home
// directory lookup and is resolved by DefaultPaths.
func (c *Config) WithDefaults() *Config {
	out := *c

	if out.Region == "" {
		out.Region = DefaultRegion
	}
	if out.TerraformBinary == "" {
		out.TerraformBinary = DefaultTerraformBinary
	}

	return &out
}
