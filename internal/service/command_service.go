package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/station-compliance-api/internal/models"
)

const (
	modeRemote = "remote"
	modeLocal  = "local"
)

// CommandParams groups the collaborators of CommandService.
type CommandParams struct {
	Probe      connectivityProbe
	Gateway    statutoryGateway
	Local      localDataset
	Store      *DocumentStore
	Calculator *LifecycleCalculator
	Outbox     *Outbox
	Notifier   notifier
	Identity   identityProvider
	Metrics    *MetricsService
	Logger     *zap.Logger
}

// CommandService runs create, update, renew and delete against the authority, or against the
// local store when the authority is unreachable. Only one mutation runs at a time; a call made
// while another is in flight returns false without touching anything.
type CommandService struct {
	probe      connectivityProbe
	gateway    statutoryGateway
	local      localDataset
	store      *DocumentStore
	calculator *LifecycleCalculator
	outbox     *Outbox
	notifier   notifier
	identity   identityProvider
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time

	inFlight atomic.Bool
}

// NewCommandService constructs the mutation handlers.
func NewCommandService(p CommandParams) *CommandService {
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
	if p.Notifier == nil {
		p.Notifier = NewNotificationService(p.Logger)
	}
	return &CommandService{
		probe:      p.Probe,
		gateway:    p.Gateway,
		local:      p.Local,
		store:      p.Store,
		calculator: p.Calculator,
		outbox:     p.Outbox,
		notifier:   p.Notifier,
		identity:   p.Identity,
		metrics:    p.Metrics,
		logger:     p.Logger,
		now:        time.Now,
	}
}

// Busy reports whether a mutation is running.
func (s *CommandService) Busy() bool {
	return s.inFlight.Load()
}

// Create adds a document.
func (s *CommandService) Create(ctx context.Context, input models.DocumentInput) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer s.inFlight.Store(false)

	if !s.probe.Probe(ctx).Connected {
		doc := s.createLocal(ctx, input)
		s.metrics.RecordMutation(string(models.MutationCreate), modeLocal, true)
		s.notifier.Success("Document created", fmt.Sprintf("%s saved locally as #%d", doc.Title, doc.ID), true)
		return true
	}

	created, err := s.gateway.Create(ctx, input)
	if err == nil && created == nil {
		err = fmt.Errorf("authority returned no document")
	}
	if err != nil {
		s.fail(models.MutationCreate, models.ErrorCodeCreateFailed, "Failed to create document", nil, err)
		return false
	}
	s.store.Insert(*created)
	s.metrics.RecordMutation(string(models.MutationCreate), modeRemote, true)
	s.notifier.Success("Document created", created.Title+" registered with the authority", false)
	return true
}

func (s *CommandService) createLocal(ctx context.Context, input models.DocumentInput) models.StatutoryDocument {
	// Documents hidden by the active filters still hold ids.
	s.localView(ctx, input.StationID)
	doc := models.StatutoryDocument{
		ID:        s.store.NextLocalID(),
		CreatedBy: s.displayName(ctx),
		Revision:  1,
		LocalOnly: true,
	}
	input.ApplyTo(&doc)
	if err := s.calculator.Apply(&doc); err != nil {
		s.logger.Sugar().Warnw("offline document created without lifecycle fields", "document_id", doc.ID, "error", err)
	}
	s.store.Insert(doc)
	s.outbox.Record(models.MutationCreate, doc, nil)
	s.logger.Sugar().Infow("document created offline", "document_id", doc.ID, "station_id", doc.StationID)
	return doc
}

// Update replaces the writable fields of document id.
func (s *CommandService) Update(ctx context.Context, id int64, input models.DocumentInput) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer s.inFlight.Store(false)

	if !s.probe.Probe(ctx).Connected {
		s.updateLocal(ctx, id, input)
		s.metrics.RecordMutation(string(models.MutationUpdate), modeLocal, true)
		s.notifier.Success("Document updated", fmt.Sprintf("Document #%d updated locally", id), true)
		return true
	}

	updated, err := s.gateway.Update(ctx, id, input)
	if err == nil && updated == nil {
		err = fmt.Errorf("authority returned no document")
	}
	if err != nil {
		s.fail(models.MutationUpdate, models.ErrorCodeUpdateFailed, "Failed to update document", &id, err)
		return false
	}
	s.store.ReplaceByID(id, *updated)
	s.metrics.RecordMutation(string(models.MutationUpdate), modeRemote, true)
	s.notifier.Success("Document updated", updated.Title+" updated", false)
	return true
}

func (s *CommandService) updateLocal(ctx context.Context, id int64, input models.DocumentInput) {
	doc, ok := s.lookup(ctx, id)
	if !ok {
		s.logger.Sugar().Warnw("offline update of unknown document", "document_id", id)
		return
	}
	input.ApplyTo(&doc)
	if err := s.calculator.Apply(&doc); err != nil {
		s.logger.Sugar().Warnw("offline update left lifecycle fields stale", "document_id", id, "error", err)
	}
	s.stamp(ctx, &doc)
	s.store.ReplaceDocument(doc)
	s.outbox.Record(models.MutationUpdate, doc, nil)
}

// Renew extends document id to a new expiry and settles its fee.
func (s *CommandService) Renew(ctx context.Context, id int64, input models.RenewDocumentInput) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer s.inFlight.Store(false)

	if !s.probe.Probe(ctx).Connected {
		s.renewLocal(ctx, id, input)
		s.metrics.RecordMutation(string(models.MutationRenew), modeLocal, true)
		s.notifier.Success("Document renewed", fmt.Sprintf("Document #%d renewed until %s locally", id, input.NewExpiresDate), true)
		return true
	}

	renewed, err := s.gateway.Renew(ctx, id, input)
	if err == nil && renewed == nil {
		err = fmt.Errorf("authority returned no document")
	}
	if err != nil {
		s.fail(models.MutationRenew, models.ErrorCodeRenewFailed, "Failed to renew document", &id, err)
		return false
	}
	s.store.ReplaceByID(id, *renewed)
	s.metrics.RecordMutation(string(models.MutationRenew), modeRemote, true)
	s.notifier.Success("Document renewed", renewed.Title+" renewed until "+renewed.ExpiresDate.String(), false)
	return true
}

// renewLocal always marks the document Paid and Compliant, whatever the new expiry implies.
func (s *CommandService) renewLocal(ctx context.Context, id int64, input models.RenewDocumentInput) {
	doc, ok := s.lookup(ctx, id)
	if !ok {
		s.logger.Sugar().Warnw("offline renewal of unknown document", "document_id", id)
		return
	}
	doc.ExpiresDate = input.NewExpiresDate
	doc.Fees = input.RenewalFees
	doc.PaymentStatus = models.PaymentPaid
	doc.Status = models.StatusCompliant
	if input.Notes != nil {
		notes := *input.Notes
		doc.Notes = &notes
	}
	if days, err := s.calculator.DaysRemaining(doc.ExpiresDate); err == nil {
		doc.DaysRemaining = days
	} else {
		s.logger.Sugar().Warnw("offline renewal without a usable expiry", "document_id", id, "error", err)
	}
	s.stamp(ctx, &doc)
	s.store.ReplaceDocument(doc)
	s.outbox.Record(models.MutationRenew, doc, &input)
}

// Delete removes document id.
func (s *CommandService) Delete(ctx context.Context, id int64) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer s.inFlight.Store(false)

	if !s.probe.Probe(ctx).Connected {
		if doc, ok := s.lookup(ctx, id); ok {
			s.store.Remove(id)
			doc.Revision++
			s.outbox.Record(models.MutationDelete, doc, nil)
		}
		s.metrics.RecordMutation(string(models.MutationDelete), modeLocal, true)
		s.notifier.Success("Document deleted", fmt.Sprintf("Document #%d deleted locally", id), true)
		return true
	}

	if err := s.gateway.Delete(ctx, id); err != nil {
		s.fail(models.MutationDelete, models.ErrorCodeDeleteFailed, "Failed to delete document", &id, err)
		return false
	}
	s.store.Remove(id)
	s.metrics.RecordMutation(string(models.MutationDelete), modeRemote, true)
	s.notifier.Success("Document deleted", fmt.Sprintf("Document #%d deleted", id), false)
	return true
}

// lookup finds document id in the store, then in the active station's local dataset with
// pending offline changes applied.
func (s *CommandService) lookup(ctx context.Context, id int64) (models.StatutoryDocument, bool) {
	if doc, ok := s.store.Get(id); ok {
		return doc, true
	}
	for _, doc := range s.localView(ctx, s.store.StationID()) {
		if doc.ID == id {
			return doc, true
		}
	}
	return models.StatutoryDocument{}, false
}

// localView reads the station's local dataset with the outbox applied and feeds its ids to the
// store's high-water mark. It returns nil when no dataset is wired or the read fails.
func (s *CommandService) localView(ctx context.Context, stationID string) []models.StatutoryDocument {
	if s.local == nil || stationID == "" {
		return nil
	}
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), localReadTimeout)
	defer cancel()

	docs, err := s.local.ListByStation(readCtx, stationID)
	if err != nil {
		s.logger.Sugar().Warnw("local dataset unavailable for offline mutation", "station_id", stationID, "error", err)
		return nil
	}
	docs = s.outbox.Overlay(stationID, docs)
	s.store.ObserveIDs(docs)
	return docs
}

func (s *CommandService) fail(kind models.MutationKind, code, title string, documentID *int64, err error) {
	s.store.SetError(code, err.Error(), documentID, s.now())
	s.metrics.RecordMutation(string(kind), modeRemote, false)
	s.notifier.Error(title, err.Error(), false)

	fields := []interface{}{"operation", kind, "error", err}
	if documentID != nil {
		fields = append(fields, "document_id", *documentID)
	}
	s.logger.Sugar().Errorw("authority mutation failed", fields...)
}

func (s *CommandService) stamp(ctx context.Context, doc *models.StatutoryDocument) {
	name := s.displayName(ctx)
	at := s.now().UTC()
	doc.UpdatedBy = &name
	doc.UpdatedAt = &at
	doc.Revision++
}

func (s *CommandService) displayName(ctx context.Context) string {
	if s.identity == nil {
		return "System"
	}
	return s.identity.DisplayName(ctx)
}
