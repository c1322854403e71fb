package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bberrors "github.com/buildandburn/bb/internal/errors"
	"github.com/buildandburn/bb/internal/manifest"
	"github.com/buildandburn/bb/internal/terraform"
)

func TestPlaceholderValues(t *testing.T) {
	tf := terraform.Outputs{
		"database_endpoint":       {Value: "db.internal"},
		"database_username":       {Value: "shop"},
		"database_password":       {Value: "hunter2", Sensitive: true},
		"redis_primary_endpoint":  {Value: "cache.internal"},
		"kafka_bootstrap_brokers": {Value: "b-1:9092,b-2:9092"},
		"kubeconfig":              {Value: "apiVersion: v1", Sensitive: true},
	}

	values := placeholderValues(tf, "shop")

	assert.Equal(t, "db.internal", values["DATABASE_ENDPOINT"])
	assert.Equal(t, "hunter2", values["DATABASE_PASSWORD"])

	// Aliases.
	assert.Equal(t, "cache.internal", values["CACHE_ENDPOINT"])
	assert.Equal(t, "b-1:9092,b-2:9092", values["KAFKA_BROKERS"])

	// Fallbacks.
	assert.Equal(t, "shop", values["DATABASE_NAME"])
	assert.Equal(t, "6379", values["REDIS_PORT"])

	// The kubeconfig is not a placeholder.
	_, ok := values["KUBECONFIG"]
	assert.False(t, ok)
}

func TestPlaceholderValuesPrefersRealOutputs(t *testing.T) {
	tf := terraform.Outputs{
		"database_endpoint":      {Value: "db.internal"},
		"db_name":                {Value: "orders"},
		"redis_primary_endpoint": {Value: "cache.internal"},
		"redis_port":             {Value: float64(6380)},
	}

	values := placeholderValues(tf, "shop")
	assert.Equal(t, "orders", values["DATABASE_NAME"])
	assert.Equal(t, "6380", values["REDIS_PORT"])
}

func TestVerifyOutputs(t *testing.T) {
	m, err := manifest.Parse([]byte(`name: shop
services:
  - name: api
    image: shop/api:1.0
dependencies:
  - type: database
  - type: cache
`))
	require.NoError(t, err)

	complete := map[string]string{
		"DATABASE_ENDPOINT":      "db.internal",
		"DATABASE_NAME":          "shop",
		"DATABASE_USERNAME":      "shop",
		"DATABASE_PASSWORD":      "hunter2",
		"REDIS_PRIMARY_ENDPOINT": "cache.internal",
		"REDIS_PORT":             "6379",
		"CACHE_ENDPOINT":         "cache.internal",
	}
	require.NoError(t, verifyOutputs(m, complete))

	delete(complete, "DATABASE_PASSWORD")
	delete(complete, "CACHE_ENDPOINT")
	err = verifyOutputs(m, complete)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bberrors.ErrProvisioning))
	assert.Contains(t, err.Error(), "CACHE_ENDPOINT, DATABASE_PASSWORD")
}

func TestRecordOutputsCarriesSensitivity(t *testing.T) {
	tf := terraform.Outputs{
		"database_endpoint":      {Value: "db.internal"},
		"database_password":      {Value: "hunter2", Sensitive: true},
		"redis_primary_endpoint": {Value: "cache.internal", Sensitive: false},
	}
	values := placeholderValues(tf, "shop")

	recorded := recordOutputs(tf, values)
	assert.False(t, recorded["DATABASE_ENDPOINT"].Sensitive)
	assert.True(t, recorded["DATABASE_PASSWORD"].Sensitive)
	assert.False(t, recorded["CACHE_ENDPOINT"].Sensitive, "alias inherits the source's sensitivity")
}

func TestStubValues(t *testing.T) {
	m, err := manifest.Parse([]byte(`name: shop
services:
  - name: api
    image: shop/api:1.0
dependencies:
  - type: queue
`))
	require.NoError(t, err)

	values := stubValues(m)
	assert.Equal(t, "<MQ_ENDPOINT>", values["MQ_ENDPOINT"])
	assert.Len(t, values, 3)
}
