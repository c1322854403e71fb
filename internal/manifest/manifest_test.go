package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bberrors "github.com/buildandburn/bb/internal/errors"
)

const sampleManifest = `
name: shop
region: eu-west-1
services:
  - name: api
    image: ghcr.io/acme/shop-api:1.4.2
    port: 3000
    replicas: 2
    env:
      - name: DATABASE_HOST
        value: ${DATABASE_ENDPOINT}
      - name: LOG_LEVEL
        value: debug
    config_data:
      app.properties: |
        broker=${MQ_ENDPOINT}
  - name: worker
    image: ghcr.io/acme/shop-worker:1.4.2
    expose: false
dependencies:
  - type: database
    provider: postgres
    version: "15"
    storage: 50
  - type: queue
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	assert.Equal(t, "shop", m.Name)
	assert.Equal(t, "eu-west-1", m.Region)
	require.Len(t, m.Services, 2)
	require.Len(t, m.Dependencies, 2)

	api := m.Service("api")
	require.NotNil(t, api)
	assert.Equal(t, 3000, api.Port)
	assert.Equal(t, 2, api.Replicas)
	assert.True(t, api.Exposed())

	worker := m.Service("worker")
	require.NotNil(t, worker)
	assert.Equal(t, DefaultPort, worker.Port)
	assert.Equal(t, DefaultReplicas, worker.Replicas)
	assert.False(t, worker.Exposed())
}

func TestParseDependencyUnion(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	db := m.Dependency(DependencyDatabase)
	require.NotNil(t, db)
	require.NotNil(t, db.Database)
	assert.Nil(t, db.Queue)
	assert.Equal(t, "postgres", db.Database.Provider)
	assert.Equal(t, "15", db.Database.Version)
	assert.Equal(t, 50, db.Database.StorageGB)
	assert.Equal(t, DefaultDatabaseClass, db.Database.InstanceClass)

	q := m.Dependency(DependencyQueue)
	require.NotNil(t, q)
	require.NotNil(t, q.Queue)
	assert.Equal(t, DefaultQueueProvider, q.Queue.Provider)
	assert.Equal(t, DefaultQueueVersion, q.Queue.Version)
	assert.Equal(t, DefaultQueueClass, q.Queue.InstanceClass)
}

func TestParseRejectsUnknownDependencyType(t *testing.T) {
	raw := `
name: shop
services:
  - name: api
    image: img:1
dependencies:
  - type: blockchain
`
	_, err := Parse([]byte(raw))
	require.Error(t, err)
	assert.True(t, errors.Is(err, bberrors.ErrValidation))
	assert.Contains(t, err.Error(), "blockchain")
}

func TestValidate(t *testing.T) {
	base := func() *Manifest {
		m, err := Parse([]byte(sampleManifest))
		require.NoError(t, err)
		return m
	}

	tests := []struct {
		name      string
		mutate    func(*Manifest)
		wantField string
	}{
		{
			name:      "missing project name",
			mutate:    func(m *Manifest) { m.Name = "" },
			wantField: "name",
		},
		{
			name:      "no services",
			mutate:    func(m *Manifest) { m.Services = nil },
			wantField: "services",
		},
		{
			name:      "service without image",
			mutate:    func(m *Manifest) { m.Services[1].Image = "" },
			wantField: "services[1].image",
		},
		{
			name:      "invalid service name",
			mutate:    func(m *Manifest) { m.Services[0].Name = "Shop_API" },
			wantField: "services[0].name",
		},
		{
			name:      "duplicate service name",
			mutate:    func(m *Manifest) { m.Services[1].Name = "api" },
			wantField: "services[1].name",
		},
		{
			name:      "negative replicas",
			mutate:    func(m *Manifest) { m.Services[0].Replicas = -1 },
			wantField: "services[0].replicas",
		},
		{
			name:      "port out of range",
			mutate:    func(m *Manifest) { m.Services[0].Port = 70000 },
			wantField: "services[0].port",
		},
		{
			name:      "unknown service type",
			mutate:    func(m *Manifest) { m.Services[0].ServiceType = "ExternalName" },
			wantField: "services[0].service_type",
		},
		{
			name:      "negative storage",
			mutate:    func(m *Manifest) { m.Dependencies[0].Database.StorageGB = -5 },
			wantField: "dependencies[0].storage",
		},
		{
			name: "env value and value_from both set",
			mutate: func(m *Manifest) {
				m.Services[0].Env[1].ValueFrom = &SecretKeyRef{SecretName: "s", Key: "k"}
			},
			wantField: "services[0].env[1]",
		},
		{
			name: "env entry without name",
			mutate: func(m *Manifest) {
				m.Services[0].Env = append(m.Services[0].Env, EnvVar{Value: "orphan"})
			},
			wantField: "services[0].env[2].name",
		},
		{
			name: "volume mount without mount path",
			mutate: func(m *Manifest) {
				m.Services[0].VolumeMounts = []VolumeMount{{Name: "config"}}
			},
			wantField: "services[0].volume_mounts[0].mount_path",
		},
		{
			name: "volume without name",
			mutate: func(m *Manifest) {
				m.Services[0].Volumes = []Volume{{EmptyDir: true}}
			},
			wantField: "services[0].volumes[0].name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base()
			tt.mutate(m)

			err := m.Validate()
			require.Error(t, err)

			var verr *bberrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestPlaceholders(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	assert.Equal(t, []string{"DATABASE_ENDPOINT", "MQ_ENDPOINT"}, m.Placeholders())
}

func TestExpandPlaceholders(t *testing.T) {
	values := map[string]string{"DATABASE_URL": "postgres://db:5432/shop"}

	t.Run("substitutes known references", func(t *testing.T) {
		got := ExpandPlaceholders("url=${DATABASE_URL}", values)
		assert.Equal(t, "url=postgres://db:5432/shop", got)
	})

	t.Run("leaves unknown references intact", func(t *testing.T) {
		got := ExpandPlaceholders("broker=${AMQP_URL}", values)
		assert.Equal(t, "broker=${AMQP_URL}", got)

		assert.Equal(t, []string{"AMQP_URL"}, UnresolvedPlaceholders(got, values))
	})

	t.Run("plain dollar text untouched", func(t *testing.T) {
		got := ExpandPlaceholders("cost=$5 and ${not_a_ref}", values)
		assert.Equal(t, "cost=$5 and ${not_a_ref}", got)
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "shop", m.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestExpectedOutputs(t *testing.T) {
	db := Dependency{Type: DependencyDatabase}
	assert.Contains(t, db.ExpectedOutputs(), "DATABASE_ENDPOINT")

	stream := Dependency{Type: DependencyStream}
	assert.Contains(t, stream.ExpectedOutputs(), "KAFKA_BROKERS")

	unknown := Dependency{Type: "blockchain"}
	assert.Empty(t, unknown.ExpectedOutputs())
}
