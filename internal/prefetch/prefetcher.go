// Package prefetch warms the HTTP cache for media assets referenced by
// query results. Prefetching is best-effort only: a failed prefetch never
// surfaces as a functional error, because the real asset load is retried
// naturally when rendered.
package prefetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/shopkit/catq/internal/version"
)

// Window is the number of concurrent prefetch requests. Kept small so
// warm-up never starves the primary data fetch on constrained connections.
const Window = 3

// requestTimeout bounds a single prefetch request.
const requestTimeout = 15 * time.Second

// Prefetcher schedules background, priority-ordered preloading of asset
// URLs. Already-prefetched URLs are skipped via a visited set.
type Prefetcher struct {
	httpClient *http.Client
	sem        *semaphore.Weighted
	logger     *slog.Logger

	mu      sync.Mutex
	visited map[string]struct{}
}

// New creates a Prefetcher. A nil httpClient uses a default client; a nil
// logger uses slog.Default.
func New(httpClient *http.Client, logger *slog.Logger) *Prefetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prefetcher{
		httpClient: httpClient,
		sem:        semaphore.NewWeighted(Window),
		logger:     logger,
		visited:    make(map[string]struct{}),
	}
}

// Schedule queues urls for background prefetching. The first priorityCount
// URLs are issued before the remainder; within each band start order follows
// slice order. Returns immediately; never blocks on asset loads.
func (p *Prefetcher) Schedule(urls []string, priorityCount int) {
	fresh := p.claim(urls)
	if len(fresh) == 0 {
		return
	}
	if priorityCount < 0 {
		priorityCount = 0
	}
	if priorityCount > len(fresh) {
		priorityCount = len(fresh)
	}
	high, low := fresh[:priorityCount], fresh[priorityCount:]

	go p.run(high, low)
}

// claim filters out already-visited URLs and marks the rest visited, so a
// URL scheduled twice concurrently is still fetched once.
func (p *Prefetcher) claim(urls []string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var fresh []string
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := p.visited[u]; ok {
			continue
		}
		p.visited[u] = struct{}{}
		fresh = append(fresh, u)
	}
	return fresh
}

// run issues requests in order under the concurrency window, high-priority
// band first.
func (p *Prefetcher) run(high, low []string) {
	ctx := context.Background()
	var wg sync.WaitGroup
	for _, band := range [][]string{high, low} {
		for _, u := range band {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				return
			}
			wg.Add(1)
			go func(url string) {
				defer p.sem.Release(1)
				defer wg.Done()
				p.fetch(url)
			}(u)
		}
		// Drain the high-priority band before starting the remainder.
		wg.Wait()
	}
}

// fetch performs one warm-up request, discarding the body.
func (p *Prefetcher) fetch(url string) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.logger.Debug("prefetch skipped", "url", url, "error", err)
		return
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Debug("prefetch failed", "url", url, "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	p.logger.Debug("prefetched", "url", url, "status", resp.StatusCode)
}

// Reset clears the visited set. Called when the cache tiers are cleared so
// re-fetched results warm up again.
func (p *Prefetcher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visited = make(map[string]struct{})
}

// Visited reports whether a URL has already been claimed for prefetching.
func (p *Prefetcher) Visited(url string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.visited[url]
	return ok
}
