package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffDocumentsNoChanges(t *testing.T) {
	doc := []byte("apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: api-config\ndata:\n  key: value\n")

	diff, err := diffDocuments(doc, doc)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestDiffDocumentsReportsChange(t *testing.T) {
	previous := []byte("apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: api-config\ndata:\n  key: old\n")
	current := []byte("apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: api-config\ndata:\n  key: new\n")

	diff, err := diffDocuments(previous, current)
	require.NoError(t, err)
	assert.NotEmpty(t, diff)
	assert.Contains(t, diff, "key")
}

func TestDiffDocumentsEmptyPrevious(t *testing.T) {
	current := []byte("apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: api-config\n")

	diff, err := diffDocuments(nil, current)
	require.NoError(t, err)
	assert.NotEmpty(t, diff)
}
