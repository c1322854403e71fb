package infra

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bberrors "github.com/buildandburn/bb/internal/errors"
	"github.com/buildandburn/bb/internal/manifest"
)

func testManifest(t *testing.T, deps string) *manifest.Manifest {
	t.Helper()

	raw := `
name: shop
services:
  - name: api
    image: img:1
` + deps

	m, err := manifest.Parse([]byte(raw))
	require.NoError(t, err)
	return m
}

func TestCompile(t *testing.T) {
	m := testManifest(t, `
dependencies:
  - type: database
    provider: postgres
    version: "15"
    storage: 50
  - type: queue
`)

	p, err := Compile(m, "a1b2c3d4", "eu-west-1")
	require.NoError(t, err)

	assert.Equal(t, "shop", p.Project)
	assert.Equal(t, "a1b2c3d4", p.EnvID)
	assert.Equal(t, []string{"database", "queue"}, p.DependencyTypes)

	require.NotNil(t, p.Module(ModuleNetwork))
	require.NotNil(t, p.Module(ModuleCluster))
	require.NotNil(t, p.Module(ModuleRDS))
	require.NotNil(t, p.Module(ModuleMQ))
	assert.Nil(t, p.Module(ModuleRedis))

	rds := p.Module(ModuleRDS)
	assert.Equal(t, []string{ModuleCluster}, rds.DependsOn)
	assert.Equal(t, "postgres", rds.Variables["db_engine"])
	assert.Equal(t, "15", rds.Variables["db_engine_version"])
	assert.Equal(t, 50, rds.Variables["db_allocated_storage"])
	assert.Equal(t, "module.rds", rds.Target())
}

func TestCompilePolicies(t *testing.T) {
	m := testManifest(t, `
dependencies:
  - type: cache
`)

	p, err := Compile(m, "a1b2c3d4", "us-west-2")
	require.NoError(t, err)
	require.Len(t, p.Policies, 2)

	rw := p.Policies[0]
	assert.Equal(t, "redis-read-write", rw.Name)
	assert.Equal(t, ModuleRedis, rw.Module)
	assert.True(t, rw.Enabled)

	full := p.Policies[1]
	assert.Equal(t, "full-access", full.Tier)
	assert.False(t, full.Enabled, "full-access tier ships disabled")

	// Disabled policies never make it into the graph.
	assert.Nil(t, p.Graph().Node("redis-full-access"))
	require.NotNil(t, p.Graph().Node("redis-read-write"))
}

func TestCompileRejectsDuplicateDependencyType(t *testing.T) {
	m := testManifest(t, `
dependencies:
  - type: database
  - type: database
    provider: mysql
`)

	p, err := Compile(m, "a1b2c3d4", "us-west-2")
	assert.Nil(t, p, "no partial plan on rejection")
	require.Error(t, err)
	assert.True(t, errors.Is(err, bberrors.ErrPlan))
}

func TestVariables(t *testing.T) {
	m := testManifest(t, `
dependencies:
  - type: event-stream
    broker_count: 3
`)

	p, err := Compile(m, "a1b2c3d4", "us-west-2")
	require.NoError(t, err)

	vars := p.Variables()
	assert.Equal(t, "shop", vars["project_name"])
	assert.Equal(t, "a1b2c3d4", vars["env_id"])
	assert.Equal(t, "us-west-2", vars["region"])
	assert.Equal(t, []string{"event-stream"}, vars["dependencies"])
	assert.Equal(t, DefaultVPCCIDR, vars["vpc_cidr"])
	assert.Equal(t, DefaultKubernetesVersion, vars["k8s_version"])
	assert.Equal(t, 3, vars["msk_broker_count"])
	assert.Equal(t, manifest.DefaultStreamBrokerType, vars["msk_broker_type"])
}

func TestGraphOrdering(t *testing.T) {
	m := testManifest(t, `
dependencies:
  - type: database
  - type: queue
  - type: cache
`)

	p, err := Compile(m, "a1b2c3d4", "us-west-2")
	require.NoError(t, err)

	levels := p.Graph().Levels()
	require.Len(t, levels, 4)

	assert.Equal(t, []string{ModuleCluster}, levels[1])
	assert.ElementsMatch(t, []string{ModuleMQ, ModuleRDS, ModuleRedis}, levels[2])
	assert.ElementsMatch(t,
		[]string{"rds-read-write", "mq-read-write", "redis-read-write"},
		levels[3])

	reversed := p.Graph().ReverseLevels()
	assert.Equal(t, levels[0], reversed[3])
	assert.Equal(t, levels[3], reversed[0])
}
