package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/station-compliance-api/internal/models"
	"github.com/noah-isme/station-compliance-api/pkg/jobs"
)

// localReadTimeout bounds local dataset reads that outlive their caller.
const localReadTimeout = 10 * time.Second

// SyncConfig tunes the read path.
type SyncConfig struct {
	DefaultStation  string
	RefreshInterval time.Duration
	DebounceWindow  time.Duration
}

// SyncParams groups the collaborators of SyncService.
type SyncParams struct {
	Probe      connectivityProbe
	Gateway    statutoryGateway
	Local      localDataset
	Store      *DocumentStore
	Calculator *LifecycleCalculator
	Outbox     *Outbox
	Reconciler outboxScheduler
	Metrics    *MetricsService
	Logger     *zap.Logger
	Config     SyncConfig
}

// SyncService decides between the authority and the local dataset for reads, debounces
// filter changes and keeps a single periodic refresh alive while connected.
type SyncService struct {
	probe      connectivityProbe
	gateway    statutoryGateway
	local      localDataset
	store      *DocumentStore
	calculator *LifecycleCalculator
	outbox     *Outbox
	reconciler outboxScheduler
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        SyncConfig
	now        func() time.Time

	debouncer *jobs.Debouncer
	refresher *jobs.Periodic

	mu        sync.Mutex
	baseCtx   context.Context
	stationID string
	filters   models.DocumentFilters
	connected bool
	probed    bool
}

// NewSyncService constructs the orchestrator.
func NewSyncService(p SyncParams) *SyncService {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Calculator == nil {
		p.Calculator = NewLifecycleCalculator(nil, nil)
	}
	if p.Store == nil {
		p.Store = NewDocumentStore()
	}
	if p.Outbox == nil {
		p.Outbox = NewOutbox(p.Metrics)
	}
	if p.Config.RefreshInterval <= 0 {
		p.Config.RefreshInterval = 180 * time.Second
	}
	if p.Config.DebounceWindow <= 0 {
		p.Config.DebounceWindow = 300 * time.Millisecond
	}
	return &SyncService{
		probe:      p.Probe,
		gateway:    p.Gateway,
		local:      p.Local,
		store:      p.Store,
		calculator: p.Calculator,
		outbox:     p.Outbox,
		reconciler: p.Reconciler,
		metrics:    p.Metrics,
		logger:     p.Logger,
		cfg:        p.Config,
		now:        time.Now,
		debouncer:  jobs.NewDebouncer(p.Config.DebounceWindow),
		refresher:  jobs.NewPeriodic("statutory-refresh", p.Config.RefreshInterval, p.Logger),
		baseCtx:    context.Background(),
		stationID:  p.Config.DefaultStation,
		filters:    models.DocumentFilters{}.Normalize(),
	}
}

// Start keeps ctx for background refreshes and loads the default station.
func (s *SyncService) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	stationID := s.stationID
	filters := s.filters
	s.mu.Unlock()

	if stationID == "" {
		s.logger.Sugar().Infow("no default station configured, waiting for first request")
		return
	}
	s.FetchDocuments(ctx, stationID, filters)
}

// Stop cancels the debounce and refresh timers.
func (s *SyncService) Stop() {
	s.debouncer.Stop()
	s.refresher.Stop()
}

// FetchDocuments reads the station's documents, from the authority when it is reachable and
// from the local dataset otherwise. It never fails: remote problems are recorded as the last
// error and answered with the local fallback.
func (s *SyncService) FetchDocuments(ctx context.Context, stationID string, filters models.DocumentFilters) *models.DocumentSnapshot {
	stationID = strings.TrimSpace(stationID)
	filters = filters.Normalize()

	s.mu.Lock()
	stationChanged := stationID != s.stationID
	s.stationID = stationID
	s.filters = filters
	s.mu.Unlock()

	status := s.probe.Probe(ctx)
	s.observeConnection(status.Connected, stationChanged)

	if status.Connected {
		snapshot, err := s.gateway.Load(ctx, stationID, filters)
		if err == nil && snapshot != nil {
			return s.acceptRemote(stationID, snapshot)
		}
		if err == nil {
			err = fmt.Errorf("authority returned no documents")
		}
		s.logger.Sugar().Warnw("remote fetch failed, falling back to local dataset", "station_id", stationID, "error", err)
		s.store.SetError(models.ErrorCodeFetchFailed, err.Error(), nil, s.now())
	} else {
		s.store.SetError(models.ErrorCodeRemoteUnavailable, "statutory authority unreachable at "+status.Endpoint, nil, s.now())
	}

	return s.fallback(ctx, stationID, filters)
}

func (s *SyncService) acceptRemote(stationID string, snapshot *models.DocumentSnapshot) *models.DocumentSnapshot {
	now := s.now()
	snapshot.StationID = stationID
	snapshot.Source = models.SourceRemote
	snapshot.FetchedAt = now.UTC()
	if snapshot.Documents == nil {
		snapshot.Documents = []models.StatutoryDocument{}
	}

	s.store.Replace(*snapshot)
	s.store.ClearError()
	s.probe.MarkSynced(now)
	s.metrics.RecordFetch(models.SourceRemote)

	result := s.store.Snapshot()
	result.Connection = s.probe.Status()
	return &result
}

func (s *SyncService) fallback(ctx context.Context, stationID string, filters models.DocumentFilters) *models.DocumentSnapshot {
	// A stopped ticker or an aborted request must not blank the store.
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), localReadTimeout)
	defer cancel()

	docs, err := s.local.ListByStation(readCtx, stationID)
	if err != nil {
		s.logger.Sugar().Errorw("local dataset unavailable", "station_id", stationID, "error", err)
		docs = nil
		if s.store.StationID() == stationID {
			docs = s.store.All()
		}
	}
	docs = s.outbox.Overlay(stationID, docs)

	for i := range docs {
		if err := s.calculator.Refresh(&docs[i]); err != nil {
			s.logger.Sugar().Warnw("skipping lifecycle refresh", "document_id", docs[i].ID, "error", err)
		}
	}

	// Statistics come from the per-station table rather than the filtered list.
	stats, err := s.local.StationStatistics(readCtx, stationID)
	if err != nil {
		s.logger.Sugar().Warnw("station statistics unavailable", "station_id", stationID, "error", err)
		stats = models.DocumentStatistics{}
	}

	snapshot := models.DocumentSnapshot{
		StationID: stationID,
		Documents: filters.Apply(docs),
		StationAggregates: models.StationAggregates{
			Statistics:   stats,
			Monthly:      ComputeMonthly(docs, s.calculator.Today()),
			Distribution: ComputeDistribution(docs),
			Deadlines:    ComputeDeadlines(docs),
		},
		Source:    models.SourceLocal,
		FetchedAt: s.now().UTC(),
	}

	s.store.ReplaceView(snapshot, docs)
	s.metrics.RecordFetch(models.SourceLocal)

	result := s.store.Snapshot()
	result.Connection = s.probe.Status()
	return &result
}

// observeConnection rebuilds the refresh ticker when connectivity or station changes, and
// asks the reconciler to replay the outbox once the authority comes back.
func (s *SyncService) observeConnection(connected, stationChanged bool) {
	s.mu.Lock()
	changed := !s.probed || connected != s.connected
	cameOnline := s.probed && connected && !s.connected
	s.connected = connected
	s.probed = true
	baseCtx := s.baseCtx
	s.mu.Unlock()

	if changed || stationChanged {
		if connected {
			s.refresher.Start(baseCtx, s.refresh)
		} else {
			s.refresher.Stop()
		}
	}
	if cameOnline && s.reconciler != nil {
		s.logger.Sugar().Infow("authority reachable again, replaying offline mutations", "pending", s.outbox.Len())
		s.reconciler.Schedule()
	}
}

func (s *SyncService) refresh(ctx context.Context) {
	s.mu.Lock()
	stationID := s.stationID
	filters := s.filters
	s.mu.Unlock()
	s.FetchDocuments(ctx, stationID, filters)
}

// SetFilters schedules a debounced fetch of the active station with filters.
// Only the last filters of a burst are fetched.
func (s *SyncService) SetFilters(filters models.DocumentFilters) {
	s.mu.Lock()
	stationID := s.stationID
	baseCtx := s.baseCtx
	s.mu.Unlock()

	filters = filters.Normalize()
	s.debouncer.Trigger(baseCtx, func(ctx context.Context) {
		s.FetchDocuments(ctx, stationID, filters)
	})
}

// Filters returns the active filters.
func (s *SyncService) Filters() models.DocumentFilters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// ActiveStation returns the station of the latest fetch.
func (s *SyncService) ActiveStation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stationID
}

// Snapshot returns the current store content with the latest connection status.
func (s *SyncService) Snapshot() models.DocumentSnapshot {
	snapshot := s.store.Snapshot()
	snapshot.Connection = s.probe.Status()
	return snapshot
}

// Connection returns the latest probe outcome.
func (s *SyncService) Connection() models.ConnectionStatus {
	return s.probe.Status()
}

// LastError returns the retained diagnostic.
func (s *SyncService) LastError() *models.APIError {
	return s.store.LastError()
}

// ClearError drops the retained diagnostic.
func (s *SyncService) ClearError() {
	s.store.ClearError()
}

// RefreshRunning reports whether the periodic refresh is scheduled.
func (s *SyncService) RefreshRunning() bool {
	return s.refresher.Running()
}
