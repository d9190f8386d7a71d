package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaultsLimit(t *testing.T) {
	p, err := ListParams{}.Normalize(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, p.Limit)

	p, err = ListParams{}.Normalize(12)
	require.NoError(t, err)
	assert.Equal(t, 12, p.Limit, "fallback limit from the network profile wins over the package default")
}

func TestNormalizeDeterministic(t *testing.T) {
	a, err := ListParams{Category: " Ceramics ", Search: "vase "}.Normalize(24)
	require.NoError(t, err)
	b, err := ListParams{Category: "Ceramics", Search: "vase", Limit: 24}.Normalize(0)
	require.NoError(t, err)
	assert.Equal(t, a, b, "equal logical queries must normalize identically")
}

func TestNormalizeRejectsBadRanges(t *testing.T) {
	_, err := ListParams{Limit: -1}.Normalize(0)
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "limit", qe.Field)

	_, err = ListParams{Limit: MaxLimit + 1}.Normalize(0)
	assert.Error(t, err)

	_, err = ListParams{Offset: -5}.Normalize(0)
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "offset", qe.Field)
}

func TestNormalizeIDs(t *testing.T) {
	ids, err := NormalizeIDs([]int64{5, 1, 5, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 5}, ids, "sorted and deduplicated")
}

func TestNormalizeIDsRejectsInvalid(t *testing.T) {
	_, err := NormalizeIDs(nil)
	assert.Error(t, err)

	_, err = NormalizeIDs([]int64{1, 0})
	assert.Error(t, err)

	tooMany := make([]int64, MaxBatchIDs+1)
	for i := range tooMany {
		tooMany[i] = int64(i + 1)
	}
	_, err = NormalizeIDs(tooMany)
	assert.Error(t, err)
}

func TestStatusErrorRetryable(t *testing.T) {
	assert.True(t, (&StatusError{StatusCode: 429}).Retryable())
	assert.True(t, (&StatusError{StatusCode: 503}).Retryable())
	assert.False(t, (&StatusError{StatusCode: 404}).Retryable())
	assert.False(t, (&StatusError{StatusCode: 400}).Retryable())
}
