package terraform

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputs(t *testing.T) {
	raw := []byte(`{
  "database_endpoint": {"value": "db.internal", "sensitive": false},
  "database_password": {"value": "hunter2", "sensitive": true},
  "redis_port": {"value": 6379, "sensitive": false},
  "kubeconfig": {"value": "apiVersion: v1", "sensitive": true}
}`)

	outputs, err := parseOutputs(raw)
	require.NoError(t, err)
	require.Len(t, outputs, 4)

	assert.Equal(t, "db.internal", outputs.String("database_endpoint"))
	assert.Equal(t, "6379", outputs.String("redis_port"))
	assert.True(t, outputs["database_password"].Sensitive)
	assert.False(t, outputs["database_endpoint"].Sensitive)

	assert.True(t, outputs.Has("kubeconfig"))
	assert.False(t, outputs.Has("missing"))
	assert.Empty(t, outputs.String("missing"))
}

func TestParseOutputsEmpty(t *testing.T) {
	outputs, err := parseOutputs(nil)
	require.NoError(t, err)
	assert.Empty(t, outputs)

	_, err = parseOutputs([]byte("not json"))
	require.Error(t, err)
}

func TestOutputsStringNonScalar(t *testing.T) {
	outputs := Outputs{
		"brokers": {Value: []any{"b1:9092", "b2:9092"}},
		"flag":    {Value: true},
	}

	assert.Equal(t, `["b1:9092","b2:9092"]`, outputs.String("brokers"))
	assert.Equal(t, "true", outputs.String("flag"))
}

func TestWriteVariables(t *testing.T) {
	dir := t.TempDir()

	vars := map[string]any{
		"project_name": "shop",
		"env_id":       "a1b2c3d4",
		"dependencies": []string{"database"},
	}
	require.NoError(t, WriteVariables(dir, vars))

	raw, err := os.ReadFile(filepath.Join(dir, VarsFileName))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "shop", decoded["project_name"])
	assert.Equal(t, "a1b2c3d4", decoded["env_id"])
}

func TestWriteBackendOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteBackendOverride(dir))

	raw, err := os.ReadFile(filepath.Join(dir, "backend_override.tf"))
	require.NoError(t, err)

	content := string(raw)
	assert.Contains(t, content, `backend "local"`)
	assert.Contains(t, content, filepath.Join(dir, "state", "terraform.tfstate"))

	assert.DirExists(t, filepath.Join(dir, "state"))
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(src, "modules", "rds"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "main.tf"), []byte("# root"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "modules", "rds", "main.tf"), []byte("# rds"), 0o644))

	require.NoError(t, CopyTree(src, dst))

	root, err := os.ReadFile(filepath.Join(dst, "main.tf"))
	require.NoError(t, err)
	assert.Equal(t, "# root", string(root))

	nested, err := os.ReadFile(filepath.Join(dst, "modules", "rds", "main.tf"))
	require.NoError(t, err)
	assert.Equal(t, "# rds", string(nested))
}
