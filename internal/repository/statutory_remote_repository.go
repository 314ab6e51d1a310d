package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/station-compliance-api/internal/models"
	"github.com/noah-isme/station-compliance-api/pkg/authority"
)

const aggregateCachePrefix = "statutory:aggregates:"

// AggregateCacheKey is the cache key of a station's side aggregates.
func AggregateCacheKey(stationID string) string {
	return aggregateCachePrefix + stationID
}

type aggregateCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// StatutoryRemoteRepository talks to the statutory authority's document API.
type StatutoryRemoteRepository struct {
	client   *authority.Client
	cache    aggregateCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewStatutoryRemoteRepository builds the gateway. cache may be nil.
func NewStatutoryRemoteRepository(client *authority.Client, cache aggregateCache, cacheTTL time.Duration, logger *zap.Logger) *StatutoryRemoteRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatutoryRemoteRepository{client: client, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// List returns the station's documents filtered by the authority.
func (r *StatutoryRemoteRepository) List(ctx context.Context, stationID string, filters models.DocumentFilters) ([]models.StatutoryDocument, error) {
	docs, err := authority.Call[[]models.StatutoryDocument](ctx, r.client, authority.Request{
		Operation: "documents.list",
		Path:      "/statutory/documents/" + url.PathEscape(stationID),
		Query:     filterQuery(filters),
	})
	if err != nil {
		return nil, fmt.Errorf("list documents for %s: %w", stationID, err)
	}
	if docs == nil {
		docs = []models.StatutoryDocument{}
	}
	return docs, nil
}

// Load fetches documents and the four side aggregates concurrently. Cached aggregates are
// reused; any failed request fails the whole load.
func (r *StatutoryRemoteRepository) Load(ctx context.Context, stationID string, filters models.DocumentFilters) (*models.DocumentSnapshot, error) {
	var (
		docs       []models.StatutoryDocument
		aggregates models.StationAggregates
	)
	cached := r.cachedAggregates(ctx, stationID, &aggregates)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := r.List(gctx, stationID, filters)
		docs = list
		return err
	})
	if !cached {
		station := url.PathEscape(stationID)
		g.Go(func() error {
			stats, err := authority.Call[models.DocumentStatistics](gctx, r.client, authority.Request{
				Operation: "statistics.get",
				Path:      "/statutory/statistics/" + station,
			})
			aggregates.Statistics = stats
			return wrapAggregate("statistics", stationID, err)
		})
		g.Go(func() error {
			monthly, err := authority.Call[[]models.MonthlyCompliance](gctx, r.client, authority.Request{
				Operation: "monthly.list",
				Path:      "/statutory/monthly/" + station,
			})
			aggregates.Monthly = monthly
			return wrapAggregate("monthly compliance", stationID, err)
		})
		g.Go(func() error {
			dist, err := authority.Call[[]models.TypeDistribution](gctx, r.client, authority.Request{
				Operation: "distribution.list",
				Path:      "/statutory/distribution/" + station,
			})
			aggregates.Distribution = dist
			return wrapAggregate("type distribution", stationID, err)
		})
		g.Go(func() error {
			deadlines, err := authority.Call[[]models.Deadline](gctx, r.client, authority.Request{
				Operation: "deadlines.list",
				Path:      "/statutory/deadlines/" + station,
			})
			aggregates.Deadlines = deadlines
			return wrapAggregate("deadlines", stationID, err)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !cached {
		r.storeAggregates(ctx, stationID, aggregates)
	}
	return &models.DocumentSnapshot{
		StationID:         stationID,
		Documents:         docs,
		StationAggregates: aggregates,
		Source:            models.SourceRemote,
	}, nil
}

// Create registers a new document with the authority.
func (r *StatutoryRemoteRepository) Create(ctx context.Context, input models.DocumentInput) (*models.StatutoryDocument, error) {
	doc, err := authority.Call[*models.StatutoryDocument](ctx, r.client, authority.Request{
		Operation: "documents.create",
		Method:    http.MethodPost,
		Path:      "/statutory/documents",
		Body:      input,
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	r.invalidate(ctx)
	return doc, nil
}

// Update replaces a document's writable fields.
func (r *StatutoryRemoteRepository) Update(ctx context.Context, id int64, input models.DocumentInput) (*models.StatutoryDocument, error) {
	doc, err := authority.Call[*models.StatutoryDocument](ctx, r.client, authority.Request{
		Operation: "documents.update",
		Method:    http.MethodPut,
		Path:      fmt.Sprintf("/statutory/documents/%d", id),
		Body:      input,
	})
	if err != nil {
		return nil, fmt.Errorf("update document %d: %w", id, err)
	}
	r.invalidate(ctx)
	return doc, nil
}

// Renew extends a document to a new expiry.
func (r *StatutoryRemoteRepository) Renew(ctx context.Context, id int64, input models.RenewDocumentInput) (*models.StatutoryDocument, error) {
	doc, err := authority.Call[*models.StatutoryDocument](ctx, r.client, authority.Request{
		Operation: "documents.renew",
		Method:    http.MethodPost,
		Path:      fmt.Sprintf("/statutory/documents/%d/renew", id),
		Body:      input,
	})
	if err != nil {
		return nil, fmt.Errorf("renew document %d: %w", id, err)
	}
	r.invalidate(ctx)
	return doc, nil
}

// Delete removes a document.
func (r *StatutoryRemoteRepository) Delete(ctx context.Context, id int64) error {
	if _, err := authority.Call[struct{}](ctx, r.client, authority.Request{
		Operation: "documents.delete",
		Method:    http.MethodDelete,
		Path:      fmt.Sprintf("/statutory/documents/%d", id),
	}); err != nil {
		return fmt.Errorf("delete document %d: %w", id, err)
	}
	r.invalidate(ctx)
	return nil
}

func (r *StatutoryRemoteRepository) cachedAggregates(ctx context.Context, stationID string, dest *models.StationAggregates) bool {
	if r.cache == nil {
		return false
	}
	hit, err := r.cache.Get(ctx, AggregateCacheKey(stationID), dest)
	if err != nil {
		r.logger.Sugar().Warnw("aggregate cache read failed", "station_id", stationID, "error", err)
		return false
	}
	return hit
}

func (r *StatutoryRemoteRepository) storeAggregates(ctx context.Context, stationID string, aggregates models.StationAggregates) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, AggregateCacheKey(stationID), aggregates, r.cacheTTL); err != nil {
		r.logger.Sugar().Warnw("aggregate cache write failed", "station_id", stationID, "error", err)
	}
}

// invalidate drops every station's aggregates; renew and delete do not name the station.
func (r *StatutoryRemoteRepository) invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, aggregateCachePrefix+"*"); err != nil {
		r.logger.Sugar().Warnw("aggregate cache invalidation failed", "error", err)
	}
}

func wrapAggregate(name, stationID string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("fetch %s for %s: %w", name, stationID, err)
}

func filterQuery(filters models.DocumentFilters) url.Values {
	filters = filters.Normalize()
	query := url.Values{}
	if filters.Status != models.FilterAll {
		query.Set("status", string(filters.Status))
	}
	if filters.DocumentType != models.FilterAll {
		query.Set("documentType", string(filters.DocumentType))
	}
	if filters.PaymentStatus != models.FilterAll {
		query.Set("paymentStatus", string(filters.PaymentStatus))
	}
	if filters.Search != "" {
		query.Set("search", filters.Search)
	}
	return query
}
