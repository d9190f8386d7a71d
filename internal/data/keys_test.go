package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkit/catq/internal/catalog"
)

func TestListKeyDeterministic(t *testing.T) {
	a, err := catalog.ListParams{Category: " Ceramics", Search: "vase "}.Normalize(24)
	require.NoError(t, err)
	b, err := catalog.ListParams{Category: "Ceramics", Search: "vase", Limit: 24}.Normalize(99)
	require.NoError(t, err)

	assert.Equal(t, ListKey(a), ListKey(b), "equal logical queries must produce equal keys")
}

func TestListKeyPaginationDiffers(t *testing.T) {
	a, _ := catalog.ListParams{Limit: 50, Offset: 0}.Normalize(0)
	b, _ := catalog.ListParams{Limit: 50, Offset: 50}.Normalize(0)
	assert.NotEqual(t, ListKey(a), ListKey(b), "pages must never share a cache entry")
}

func TestListKeyEscapesAmbiguity(t *testing.T) {
	a, _ := catalog.ListParams{Category: "a&search=b"}.Normalize(24)
	b, _ := catalog.ListParams{Category: "a", Search: "b"}.Normalize(24)
	assert.NotEqual(t, ListKey(a), ListKey(b), "param values must not bleed into the key structure")
}

func TestBatchKeyOrderInsensitiveAfterNormalize(t *testing.T) {
	a, err := catalog.NormalizeIDs([]int64{3, 1, 2})
	require.NoError(t, err)
	b, err := catalog.NormalizeIDs([]int64{2, 3, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, BatchKey(a), BatchKey(b))
}

func TestKeysAreNamespacedByOperation(t *testing.T) {
	p, _ := catalog.ListParams{}.Normalize(24)
	keys := []string{ListKey(p), DetailKey(1), BatchKey([]int64{1}), CategoriesKey()}
	seen := make(map[string]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "key collision: %s", k)
		seen[k] = true
	}
}
