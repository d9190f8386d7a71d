// Package catalog defines the catalog record types and the read-only query
// interface the data layer is built on. The origin client in this package is
// the authoritative backing store; cached tiers sit in front of it.
package catalog

import (
	"context"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultLimit is applied when a listing query does not set a limit.
	DefaultLimit = 24

	// MaxLimit caps a single listing page.
	MaxLimit = 100

	// MaxBatchIDs caps a multi-id summary lookup.
	MaxBatchIDs = 100
)

// ProductSummary is the listing-shaped record. It carries enough fields to
// render a listing card without a follow-up detail fetch.
type ProductSummary struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Category   string    `json:"category"`
	ImageURL   string    `json:"image_url"`
	InStock    bool      `json:"in_stock"`
	CreatedAt  time.Time `json:"created_at"`
}

// Product is the full detail record, fetched and cached independently by ID.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	GalleryURLs []string  `json:"gallery_urls,omitempty"`
	InStock     bool      `json:"in_stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListParams selects a page of the catalog listing. The zero value is valid
// and means "first default-sized page, no filters".
type ListParams struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}

// Normalize returns a canonical copy of the params: whitespace trimmed, an
// unset limit resolved to fallbackLimit (or DefaultLimit when fallbackLimit
// is zero), and ranges validated. Equal logical queries normalize to equal
// values, so downstream cache keys never distinguish "unset" from "default".
func (p ListParams) Normalize(fallbackLimit int) (ListParams, error) {
	p.Category = strings.TrimSpace(p.Category)
	p.Search = strings.TrimSpace(p.Search)

	if p.Limit == 0 {
		if fallbackLimit > 0 {
			p.Limit = fallbackLimit
		} else {
			p.Limit = DefaultLimit
		}
	}
	if p.Limit < 0 || p.Limit > MaxLimit {
		return ListParams{}, &QueryError{Field: "limit", Reason: "must be between 1 and 100"}
	}
	if p.Offset < 0 {
		return ListParams{}, &QueryError{Field: "offset", Reason: "must not be negative"}
	}
	return p, nil
}

// NormalizeIDs returns a sorted, deduplicated copy of ids.
// Order-insensitive callers asking for the same set share a cache key.
func NormalizeIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, &QueryError{Field: "ids", Reason: "must not be empty"}
	}
	if len(ids) > MaxBatchIDs {
		return nil, &QueryError{Field: "ids", Reason: "too many ids in one lookup"}
	}
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, &QueryError{Field: "ids", Reason: "ids must be positive"}
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Querier is the read-only catalog query interface. Both the origin client
// and the edge cache client implement it; the data layer consumes either
// without caring which tier answered.
//
// Implementations must filter to publicly visible items server-side and
// order listings by recency descending.
type Querier interface {
	ListProducts(ctx context.Context, params ListParams) ([]ProductSummary, error)
	GetProductDetail(ctx context.Context, id int64) (*Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]ProductSummary, error)
	ListCategories(ctx context.Context) ([]string, error)
}
