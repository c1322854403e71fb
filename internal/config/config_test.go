package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaults(t *testing.T) {
	t.Run("empty config gets defaults", func(t *testing.T) {
		cfg := (&Config{}).WithDefaults()

		assert.Equal(t, DefaultRegion, cfg.Region)
		assert.Equal(t, DefaultTerraformBinary, cfg.TerraformBinary)
	})

	t.Run("explicit values are preserved", func(t *testing.T) {
		cfg := (&Config{
			Region:          "eu-central-1",
			TerraformBinary: "/opt/bin/tofu",
		}).WithDefaults()

		assert.Equal(t, "eu-central-1", cfg.Region)
		assert.Equal(t, "/opt/bin/tofu", cfg.TerraformBinary)
	})

	t.Run("does not mutate the receiver", func(t *testing.T) {
		orig := &Config{}
		_ = orig.WithDefaults()

		assert.Empty(t, orig.Region)
	})
}

func TestLoaderLoad(t *testing.T) {
	t.Run("missing config file is not an error", func(t *testing.T) {
		cfg, err := NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Empty(t, cfg.Region)
	})

	t.Run("reads values from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "region: ap-southeast-2\nterraformBinary: tofu\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := NewLoader().Load(path)
		require.NoError(t, err)
		assert.Equal(t, "ap-southeast-2", cfg.Region)
		assert.Equal(t, "tofu", cfg.TerraformBinary)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("region: us-east-1\n"), 0o644))

		t.Setenv("BB_REGION", "eu-west-1")

		cfg, err := NewLoader().Load(path)
		require.NoError(t, err)
		assert.Equal(t, "eu-west-1", cfg.Region)
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"absolute", "/tmp/x", "/tmp/x"},
		{"bare tilde", "~", home},
		{"tilde slash", "~/foo/bar", filepath.Join(home, "foo", "bar")},
		{"tilde user unsupported", "~other/foo", "~other/foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("flag wins over everything", func(t *testing.T) {
		t.Setenv("BB_TEST_REGION", "from-env")

		v := Resolve("region", "from-flag", "BB_TEST_REGION", "from-config", "from-default")

		assert.Equal(t, "from-flag", v.Value)
		assert.Equal(t, SourceFlag, v.Source)
		assert.Equal(t, "from-env", v.Shadowed[SourceEnv])
		assert.Equal(t, "from-config", v.Shadowed[SourceConfig])
	})

	t.Run("env wins over config", func(t *testing.T) {
		t.Setenv("BB_TEST_REGION", "from-env")

		v := Resolve("region", "", "BB_TEST_REGION", "from-config", "from-default")

		assert.Equal(t, "from-env", v.Value)
		assert.Equal(t, SourceEnv, v.Source)
	})

	t.Run("default when nothing set", func(t *testing.T) {
		v := Resolve("region", "", "", "", "us-west-2")

		assert.Equal(t, "us-west-2", v.Value)
		assert.Equal(t, SourceDefault, v.Source)
		assert.Empty(t, v.Shadowed)
	})
}
