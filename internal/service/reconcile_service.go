package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/station-compliance-api/internal/models"
	"github.com/noah-isme/station-compliance-api/pkg/authority"
	"github.com/noah-isme/station-compliance-api/pkg/jobs"
)

const reconcileJobType = "statutory.reconcile"

// ReconcileConfig sizes the replay worker pool.
type ReconcileConfig = jobs.QueueConfig

// ReconcileService replays offline mutations against the authority once it is reachable again.
// Updates and renewals follow last-write-wins: a remote copy modified after the offline edit wins.
type ReconcileService struct {
	outbox  *Outbox
	gateway statutoryGateway
	store   *DocumentStore
	metrics *MetricsService
	logger  *zap.Logger
	queue   *jobs.Queue

	replayMu sync.Mutex
}

// NewReconcileService wires the reconciler and its worker queue.
func NewReconcileService(outbox *Outbox, gateway statutoryGateway, store *DocumentStore, metrics *MetricsService, cfg ReconcileConfig, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReconcileService{
		outbox:  outbox,
		gateway: gateway,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	cfg.OnGiveUp = s.abandon
	s.queue = jobs.NewQueue("statutory-reconcile", s.handle, cfg)
	return s
}

// Start launches the replay workers.
func (s *ReconcileService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for the replay workers to exit.
func (s *ReconcileService) Stop() {
	s.queue.Stop()
}

// Schedule enqueues a replay when the outbox has entries. Requests made while a replay is
// already waiting are coalesced into it.
func (s *ReconcileService) Schedule() {
	if s.outbox.Len() == 0 {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: reconcileJobType}
	queued, err := s.queue.EnqueueUnique(job)
	if err != nil {
		s.logger.Sugar().Warnw("failed to schedule outbox replay", "error", err)
		return
	}
	if !queued {
		s.logger.Sugar().Debugw("outbox replay already pending", "pending", s.outbox.Len())
		return
	}
	s.logger.Sugar().Infow("outbox replay scheduled", "job_id", job.ID, "pending", s.outbox.Len())
}

// abandon leaves the outbox intact; the next offline-to-online transition schedules a new replay.
func (s *ReconcileService) abandon(job jobs.Job, err error) {
	entry, ok := s.outbox.Peek()
	if !ok {
		return
	}
	s.metrics.RecordReconcile(entry.Kind, "abandoned")
	s.logger.Sugar().Errorw("outbox replay abandoned", "job_id", job.ID, "document_id", entry.DocumentID,
		"pending", s.outbox.Len(), "error", err)
}

func (s *ReconcileService) handle(ctx context.Context, job jobs.Job) error {
	return s.Replay(ctx)
}

// Replay processes the outbox in order. It stops at the first entry the authority rejects,
// leaving it and everything after it pending.
func (s *ReconcileService) Replay(ctx context.Context) error {
	s.replayMu.Lock()
	defer s.replayMu.Unlock()

	state := &replayState{
		remote:  make(map[string]map[int64]models.StatutoryDocument),
		created: make(map[int64]models.StatutoryDocument),
	}
	for {
		entry, ok := s.outbox.Peek()
		if !ok {
			return nil
		}
		result, err := s.apply(ctx, entry, state)
		if err != nil {
			s.metrics.RecordReconcile(entry.Kind, "failed")
			return fmt.Errorf("replay %s of document %d: %w", entry.Kind, entry.DocumentID, err)
		}
		s.outbox.Ack(entry.ID)
		s.metrics.RecordReconcile(entry.Kind, result)
		s.logger.Sugar().Infow("outbox entry replayed", "kind", entry.Kind, "document_id", entry.DocumentID, "revision", entry.Revision, "result", result)
	}
}

// replayState caches the authority's view of each station for one replay run.
type replayState struct {
	remote  map[string]map[int64]models.StatutoryDocument
	created map[int64]models.StatutoryDocument
}

func (s *ReconcileService) apply(ctx context.Context, entry models.PendingMutation, state *replayState) (string, error) {
	switch entry.Kind {
	case models.MutationCreate:
		created, err := s.gateway.Create(ctx, models.InputFromDocument(entry.Document))
		if err != nil {
			return "", err
		}
		if created == nil {
			return "", errors.New("authority returned no document")
		}
		s.store.ReplaceByID(entry.DocumentID, *created)
		s.outbox.Remap(entry.DocumentID, created.ID)
		state.created[created.ID] = *created
		return "applied", nil

	case models.MutationUpdate, models.MutationRenew:
		current, ok, err := s.remoteDocument(ctx, entry, state)
		if err != nil {
			return "", err
		}
		if !ok {
			return "skipped_missing", nil
		}
		if current.UpdatedAt != nil && current.UpdatedAt.After(entry.RecordedAt) {
			return "skipped_stale", nil
		}
		var updated *models.StatutoryDocument
		if entry.Kind == models.MutationRenew && entry.Renewal != nil {
			updated, err = s.gateway.Renew(ctx, entry.DocumentID, *entry.Renewal)
		} else {
			updated, err = s.gateway.Update(ctx, entry.DocumentID, models.InputFromDocument(entry.Document))
		}
		if err != nil {
			return "", err
		}
		if updated != nil {
			s.store.ReplaceDocument(*updated)
			if docs, ok := state.remote[updated.StationID]; ok {
				docs[updated.ID] = *updated
			}
		}
		return "applied", nil

	case models.MutationDelete:
		if err := s.gateway.Delete(ctx, entry.DocumentID); err != nil && !isNotFound(err) {
			return "", err
		}
		if docs, ok := state.remote[entry.Document.StationID]; ok {
			delete(docs, entry.DocumentID)
		}
		delete(state.created, entry.DocumentID)
		return "applied", nil
	}
	return "skipped_unknown", nil
}

// remoteDocument looks entry's document up in the authority's listing, fetched once per station.
// Documents created earlier in the same run count as present.
func (s *ReconcileService) remoteDocument(ctx context.Context, entry models.PendingMutation, state *replayState) (models.StatutoryDocument, bool, error) {
	if doc, ok := state.created[entry.DocumentID]; ok {
		return doc, true, nil
	}
	stationID := entry.Document.StationID
	docs, ok := state.remote[stationID]
	if !ok {
		list, err := s.gateway.List(ctx, stationID, models.DocumentFilters{})
		if err != nil {
			return models.StatutoryDocument{}, false, err
		}
		docs = make(map[int64]models.StatutoryDocument, len(list))
		for _, doc := range list {
			docs[doc.ID] = doc
		}
		state.remote[stationID] = docs
	}
	doc, ok := docs[entry.DocumentID]
	return doc, ok, nil
}

func isNotFound(err error) bool {
	var statusErr *authority.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
