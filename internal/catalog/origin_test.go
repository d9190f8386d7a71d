package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProductsDecodesAndSendsParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "Ceramics", r.URL.Query().Get("category"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]ProductSummary{{ID: 7, Name: "Bowl", Category: "Ceramics"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", nil)
	items, err := c.ListProducts(context.Background(), ListParams{Category: "Ceramics", Limit: 50})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].ID)
}

func TestGetProductDetailNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	_, err := c.GetProductDetail(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]string{"Ceramics"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	cats, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ceramics"}, cats)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	_, err := c.ListCategories(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestETagRevalidation(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("ETag", `"v1"`)
			json.NewEncoder(w).Encode([]string{"Ceramics", "Textiles"})
			return
		}
		assert.Equal(t, `"v1"`, r.Header.Get("If-None-Match"))
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)

	first, err := c.ListCategories(context.Background())
	require.NoError(t, err)

	second, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second, "304 must serve the stored body")
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetProductsByIDsJoinsIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/batch", r.URL.Path)
		assert.Equal(t, "1,3,5", r.URL.Query().Get("ids"))
		json.NewEncoder(w).Encode([]ProductSummary{{ID: 1}, {ID: 3}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	items, err := c.GetProductsByIDs(context.Background(), []int64{1, 3, 5})
	require.NoError(t, err)
	assert.Len(t, items, 2, "unknown ids are omitted, not errors")
}

func TestEmptyListingNotNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	items, err := c.ListProducts(context.Background(), ListParams{Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
