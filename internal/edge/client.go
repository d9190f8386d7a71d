// Package edge is the client for the shared edge cache service: an optional
// intermediary that caches catalog queries server-side for many clients at
// once. The data layer treats it as just another backing tier and falls back
// to the origin on any error; no retries are layered here.
package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopkit/catq/internal/catalog"
	"github.com/shopkit/catq/internal/version"
)

// Client speaks the edge cache request protocol: a POST with an action
// discriminator and a JSON result envelope. The service applies its own
// cache-control freshness headers; this client does not second-guess them.
type Client struct {
	httpClient *http.Client
	url        string
	logger     *slog.Logger
}

// request is the wire request shape.
type request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// envelope is the wire response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewClient creates an edge cache client for the given endpoint URL.
func NewClient(url string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
		logger:     logger,
	}
}

// Fetch performs one edge query and returns the raw data payload. It errors
// on transport failure, non-success status, or an unsuccessful envelope.
func (c *Client) Fetch(ctx context.Context, action string, params map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(request{Action: action, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encoding edge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	c.logger.Debug("edge request", "action", action)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("edge cache unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("edge cache HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding edge response: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("edge cache error: %s", env.Error)
	}
	return env.Data, nil
}

// -- catalog.Querier implementation

// ListProducts implements catalog.Querier.
func (c *Client) ListProducts(ctx context.Context, params catalog.ListParams) ([]catalog.ProductSummary, error) {
	p := map[string]any{"limit": params.Limit, "offset": params.Offset}
	if params.Category != "" {
		p["category"] = params.Category
	}
	if params.Search != "" {
		p["search"] = params.Search
	}
	var out []catalog.ProductSummary
	if err := c.fetchInto(ctx, "list_products", p, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []catalog.ProductSummary{}
	}
	return out, nil
}

// GetProductDetail implements catalog.Querier.
func (c *Client) GetProductDetail(ctx context.Context, id int64) (*catalog.Product, error) {
	var out *catalog.Product
	if err := c.fetchInto(ctx, "get_product", map[string]any{"id": id}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, catalog.ErrNotFound
	}
	return out, nil
}

// GetProductsByIDs implements catalog.Querier.
func (c *Client) GetProductsByIDs(ctx context.Context, ids []int64) ([]catalog.ProductSummary, error) {
	var out []catalog.ProductSummary
	if err := c.fetchInto(ctx, "get_products_by_ids", map[string]any{"ids": ids}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []catalog.ProductSummary{}
	}
	return out, nil
}

// ListCategories implements catalog.Querier.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.fetchInto(ctx, "list_categories", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (c *Client) fetchInto(ctx context.Context, action string, params map[string]any, v any) error {
	data, err := c.Fetch(ctx, action, params)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding edge %s payload: %w", action, err)
	}
	return nil
}
