package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopkit/catq/internal/version"
)

const (
	maxRetries = 4
	baseDelay  = 500 * time.Millisecond
	maxJitter  = 100 * time.Millisecond
)

// Client is the HTTP client for the origin catalog store. Retry policy lives
// here and only here — cached tiers in front of it never retry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger

	// ETag memo keyed by request URL. On revalidation the stored body is
	// served when the origin answers 304.
	mu    sync.Mutex
	etags map[string]etagEntry
}

type etagEntry struct {
	etag string
	body []byte
}

// NewClient creates an origin client for the given base URL. An empty token
// sends unauthenticated requests.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		logger:  logger,
		etags:   make(map[string]etagEntry),
	}
}

// ListProducts implements Querier.
func (c *Client) ListProducts(ctx context.Context, params ListParams) ([]ProductSummary, error) {
	q := url.Values{}
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	q.Set("limit", strconv.Itoa(params.Limit))
	q.Set("offset", strconv.Itoa(params.Offset))

	var out []ProductSummary
	if err := c.getJSON(ctx, "/products?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []ProductSummary{}
	}
	return out, nil
}

// GetProductDetail implements Querier. Returns ErrNotFound for unknown or
// non-public ids.
func (c *Client) GetProductDetail(ctx context.Context, id int64) (*Product, error) {
	var out Product
	err := c.getJSON(ctx, fmt.Sprintf("/products/%d", id), &out)
	if err != nil {
		if se, ok := err.(*StatusError); ok && se.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// GetProductsByIDs implements Querier. Unknown ids are silently omitted from
// the result, matching server-side visibility filtering.
func (c *Client) GetProductsByIDs(ctx context.Context, ids []int64) ([]ProductSummary, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	q := url.Values{}
	q.Set("ids", strings.Join(parts, ","))

	var out []ProductSummary
	if err := c.getJSON(ctx, "/products/batch?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []ProductSummary{}
	}
	return out, nil
}

// ListCategories implements Querier.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, "/categories", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// getJSON performs a GET with retries and decodes the response body into v.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	body, err := c.get(ctx, c.baseURL+path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding catalog response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		body, err := c.singleGet(ctx, url, attempt)
		if err == nil {
			return body, nil
		}
		if se, ok := err.(*StatusError); ok && !se.Retryable() {
			return nil, err
		}
		if _, ok := err.(*QueryError); ok {
			return nil, err
		}
		lastErr = err

		delay := c.backoffDelay(attempt)
		if se, ok := err.(*StatusError); ok && se.RetryAfter > delay {
			delay = se.RetryAfter
		}
		c.logger.Debug("origin retry", "attempt", attempt, "max", maxRetries, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("catalog request failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) singleGet(ctx context.Context, url string, attempt int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.mu.Lock()
	memo, hasMemo := c.etags[url]
	c.mu.Unlock()
	if hasMemo && memo.etag != "" {
		req.Header.Set("If-None-Match", memo.etag)
	}

	c.logger.Debug("origin request", "url", url, "attempt", attempt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if hasMemo {
			c.logger.Debug("origin revalidated", "url", url, "etag", memo.etag)
			return memo.body, nil
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: "304 without a stored body"}

	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading catalog response: %w", err)
		}
		if etag := resp.Header.Get("ETag"); etag != "" {
			c.mu.Lock()
			c.etags[url] = etagEntry{etag: etag, body: body}
			c.mu.Unlock()
		}
		return body, nil

	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		se := &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
		if resp.StatusCode == http.StatusTooManyRequests {
			se.RetryAfter = retryAfter(resp.Header)
		}
		return nil, se
	}
}

// backoffDelay returns the exponential backoff delay for an attempt,
// with jitter to avoid thundering herds.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := baseDelay * time.Duration(1<<(attempt-1))
	return delay + time.Duration(rand.Int63n(int64(maxJitter)))
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
