package data

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/shopkit/catq/internal/cache"
	"github.com/shopkit/catq/internal/catalog"
	"github.com/shopkit/catq/internal/netquality"
	"github.com/shopkit/catq/internal/prefetch"
)

// Per-operation tier and TTL policy. Listings and categories are worth
// durable and edge caching; categories change far less often than listings.
// Detail and multi-id lookups churn too fast for the durable tier and get a
// shorter TTL.
var (
	listPolicy       = Policy{TTL: 5 * time.Minute, Grace: 15 * time.Minute, Durable: true}
	categoriesPolicy = Policy{TTL: 30 * time.Minute, Grace: 2 * time.Hour, Durable: true}
	detailPolicy     = Policy{TTL: 90 * time.Second, Grace: 5 * time.Minute}
	batchPolicy      = Policy{TTL: 90 * time.Second, Grace: 5 * time.Minute}
)

// aboveFoldCount is how many leading listing images are prefetched at high
// priority; the rest queue behind them.
const aboveFoldCount = 6

// Service is the typed read API consumed by views. It composes the cache
// tiers, the pending-fetch registry, the network quality estimator, and the
// asset prefetcher behind three read operations plus ClearCache.
type Service struct {
	coord      *Coordinator
	origin     catalog.Querier
	edge       catalog.Querier // nil when the edge tier is inactive
	prefetcher *prefetch.Prefetcher
	estimator  *netquality.Estimator
	metrics    *Metrics
	logger     *slog.Logger
}

// Options configures a Service. Origin is required; every other dependency
// has a working default so tests construct exactly what they need.
type Options struct {
	Origin     catalog.Querier
	Edge       catalog.Querier
	Memory     *cache.Memory
	Durable    *cache.Durable
	Prefetcher *prefetch.Prefetcher
	Estimator  *netquality.Estimator
	Metrics    *Metrics
	Clock      cache.Clock
	Logger     *slog.Logger
}

// NewService creates the catalog data service.
func NewService(opts Options) *Service {
	if opts.Origin == nil {
		panic("data: Options.Origin is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	memory := opts.Memory
	if memory == nil {
		memory = cache.NewMemory(opts.Clock)
	}
	estimator := opts.Estimator
	if estimator == nil {
		estimator = netquality.NewEstimator(nil, nil)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Service{
		coord:      NewCoordinator(memory, opts.Durable, opts.Clock, metrics, logger),
		origin:     opts.Origin,
		edge:       opts.Edge,
		prefetcher: opts.Prefetcher,
		estimator:  estimator,
		metrics:    metrics,
		logger:     logger,
	}
}

// Metrics returns the telemetry collector.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// ListProducts returns one listing page. An unset limit resolves to the
// network profile's batch size before the cache key is built, so "unset"
// and "default" are the same logical query. An empty page is a valid,
// cacheable result.
func (s *Service) ListProducts(ctx context.Context, params catalog.ListParams) ([]catalog.ProductSummary, error) {
	profile := s.estimator.Estimate()
	norm, err := params.Normalize(profile.BatchSize)
	if err != nil {
		return nil, err
	}

	out, err := Lookup(ctx, s.coord, ListKey(norm), listPolicy, viaEdge(s,
		func(ctx context.Context, q catalog.Querier) ([]catalog.ProductSummary, error) {
			return q.ListProducts(ctx, norm)
		}))
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(out))
	for _, item := range out {
		urls = append(urls, imageVariant(item.ImageURL, profile.ImageQuality))
	}
	s.schedulePrefetch(urls, aboveFoldCount)
	return out, nil
}

// GetProductDetail returns the full record for one product, or
// catalog.ErrNotFound.
func (s *Service) GetProductDetail(ctx context.Context, id int64) (*catalog.Product, error) {
	if id <= 0 {
		return nil, &catalog.QueryError{Field: "id", Reason: "must be positive"}
	}

	out, err := Lookup(ctx, s.coord, DetailKey(id), detailPolicy,
		func(ctx context.Context) (catalog.Product, error) {
			p, err := s.origin.GetProductDetail(ctx, id)
			if err != nil {
				return catalog.Product{}, err
			}
			return *p, nil
		})
	if err != nil {
		return nil, err
	}

	profile := s.estimator.Estimate()
	urls := []string{imageVariant(out.ImageURL, profile.ImageQuality)}
	if profile.AllowHighBandwidthAssets {
		for _, g := range out.GalleryURLs {
			urls = append(urls, imageVariant(g, profile.ImageQuality))
		}
	}
	s.schedulePrefetch(urls, 1)

	cp := out
	return &cp, nil
}

// GetProductsByIDs returns summaries for a set of ids, order-insensitive.
// Unknown ids are omitted.
func (s *Service) GetProductsByIDs(ctx context.Context, ids []int64) ([]catalog.ProductSummary, error) {
	norm, err := catalog.NormalizeIDs(ids)
	if err != nil {
		return nil, err
	}

	out, err := Lookup(ctx, s.coord, BatchKey(norm), batchPolicy,
		func(ctx context.Context) ([]catalog.ProductSummary, error) {
			return s.origin.GetProductsByIDs(ctx, norm)
		})
	if err != nil {
		return nil, err
	}

	profile := s.estimator.Estimate()
	urls := make([]string, 0, len(out))
	for _, item := range out {
		urls = append(urls, imageVariant(item.ImageURL, profile.ImageQuality))
	}
	s.schedulePrefetch(urls, aboveFoldCount)
	return out, nil
}

// ListCategories returns the distinct category facet values.
func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	return Lookup(ctx, s.coord, CategoriesKey(), categoriesPolicy, viaEdge(s,
		func(ctx context.Context, q catalog.Querier) ([]string, error) {
			return q.ListCategories(ctx)
		}))
}

// ClearCache drops every tier and the prefetch visited-set. Exposed for
// callers that know catalog state was invalidated; a read immediately after
// always re-fetches.
func (s *Service) ClearCache() {
	s.coord.Clear()
	if s.prefetcher != nil {
		s.prefetcher.Reset()
	}
}

// viaEdge builds a fetch that consults the edge cache tier first and falls
// back silently to the origin on any edge failure. The fallback is not
// exceptional; no retries are layered here.
func viaEdge[T any](s *Service, fn func(context.Context, catalog.Querier) (T, error)) FetchFunc[T] {
	return func(ctx context.Context) (T, error) {
		if s.edge != nil {
			v, err := fn(ctx, s.edge)
			if err == nil {
				return v, nil
			}
			s.logger.Debug("edge fetch failed, falling back to origin", "error", err)
		}
		return fn(ctx, s.origin)
	}
}

func (s *Service) schedulePrefetch(urls []string, priorityCount int) {
	if s.prefetcher == nil {
		return
	}
	s.prefetcher.Schedule(urls, priorityCount)
}

// imageVariant appends the requested compression quality to an asset URL so
// constrained connections prefetch lighter variants.
func imageVariant(raw string, quality int) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("q", strconv.Itoa(quality))
	u.RawQuery = q.Encode()
	return u.String()
}
