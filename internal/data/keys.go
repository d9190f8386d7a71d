package data

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopkit/catq/internal/catalog"
)

// Cache keys are deterministic strings derived from the operation name and
// the normalized query parameters. Params must already be normalized: key
// building never resolves defaults, so "unset" and "default" cannot produce
// different keys for the same logical query.

// ListKey returns the cache key for a listing query.
func ListKey(p catalog.ListParams) string {
	return fmt.Sprintf("products:list:category=%s&search=%s&limit=%d&offset=%d",
		url.QueryEscape(p.Category), url.QueryEscape(p.Search), p.Limit, p.Offset)
}

// DetailKey returns the cache key for a detail query.
func DetailKey(id int64) string {
	return fmt.Sprintf("products:detail:%d", id)
}

// BatchKey returns the cache key for a multi-id summary lookup. The ids must
// already be normalized (sorted, deduplicated).
func BatchKey(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "products:batch:" + strings.Join(parts, ",")
}

// CategoriesKey returns the cache key for the category facet query.
func CategoriesKey() string {
	return "categories:list"
}
