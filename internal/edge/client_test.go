package edge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkit/catq/internal/catalog"
)

func TestFetchSuccessEnvelope(t *testing.T) {
	var gotAction string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Action string         `json:"action"`
			Params map[string]any `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotAction = req.Action
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []string{"Ceramics", "Textiles"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	cats, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "list_categories", gotAction)
	assert.Equal(t, []string{"Ceramics", "Textiles"}, cats)
}

func TestFetchErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "upstream timeout"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.ListCategories(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream timeout")
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.Fetch(context.Background(), "list_products", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately, so the port refuses connections

	c := NewClient(srv.URL, nil)
	_, err := c.Fetch(context.Background(), "list_products", nil)
	assert.Error(t, err)
}

func TestListProductsParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Action string         `json:"action"`
			Params map[string]any `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "list_products", req.Action)
		assert.Equal(t, "Ceramics", req.Params["category"])
		assert.EqualValues(t, 24, req.Params["limit"])
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []catalog.ProductSummary{{ID: 1, Name: "Vase"}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	items, err := c.ListProducts(context.Background(), catalog.ListParams{Category: "Ceramics", Limit: 24})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Vase", items[0].Name)
}

func TestGetProductDetailAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": nil})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.GetProductDetail(context.Background(), 42)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestEmptyListIsNotNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []any{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	items, err := c.ListProducts(context.Background(), catalog.ListParams{Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
