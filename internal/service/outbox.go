package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/station-compliance-api/internal/models"
)

// Outbox keeps offline mutations, in order, until the reconciler replays them.
type Outbox struct {
	mu      sync.Mutex
	entries []models.PendingMutation
	metrics *MetricsService
	now     func() time.Time
}

// NewOutbox builds an empty outbox.
func NewOutbox(metrics *MetricsService) *Outbox {
	return &Outbox{metrics: metrics, now: time.Now}
}

// Record appends an entry for doc. Deleting a document whose creation was never replayed
// drops every entry for it instead of queueing a delete.
func (o *Outbox) Record(kind models.MutationKind, doc models.StatutoryDocument, renewal *models.RenewDocumentInput) {
	o.mu.Lock()
	defer o.mu.Unlock()
	defer o.publishDepth()

	if kind == models.MutationDelete && o.hasPendingCreate(doc.ID) {
		kept := o.entries[:0]
		for _, entry := range o.entries {
			if entry.DocumentID != doc.ID {
				kept = append(kept, entry)
			}
		}
		o.entries = kept
		return
	}

	entry := models.PendingMutation{
		ID:         uuid.New(),
		Kind:       kind,
		DocumentID: doc.ID,
		Document:   cloneDocument(doc),
		Revision:   doc.Revision,
		RecordedAt: o.now().UTC(),
	}
	if renewal != nil {
		r := *renewal
		entry.Renewal = &r
	}
	o.entries = append(o.entries, entry)
}

func (o *Outbox) hasPendingCreate(id int64) bool {
	for _, entry := range o.entries {
		if entry.Kind == models.MutationCreate && entry.DocumentID == id {
			return true
		}
	}
	return false
}

// Peek returns the oldest entry.
func (o *Outbox) Peek() (models.PendingMutation, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.entries) == 0 {
		return models.PendingMutation{}, false
	}
	return o.entries[0], true
}

// Ack removes the entry with id.
func (o *Outbox) Ack(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	defer o.publishDepth()
	for i, entry := range o.entries {
		if entry.ID == id {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return
		}
	}
}

// Remap points entries recorded against a local id at the id the authority assigned.
func (o *Outbox) Remap(localID, remoteID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.entries {
		if o.entries[i].DocumentID == localID {
			o.entries[i].DocumentID = remoteID
			o.entries[i].Document.ID = remoteID
			o.entries[i].Document.LocalOnly = false
		}
	}
}

// Pending returns a copy of all entries in replay order.
func (o *Outbox) Pending() []models.PendingMutation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.PendingMutation{}, o.entries...)
}

// Len returns the number of pending entries.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Overlay applies the station's pending entries on top of docs, so offline reads keep showing
// mutations that have not reached the authority yet.
func (o *Outbox) Overlay(stationID string, docs []models.StatutoryDocument) []models.StatutoryDocument {
	pending := o.Pending()
	if len(pending) == 0 {
		return docs
	}
	result := append([]models.StatutoryDocument{}, docs...)
	for _, entry := range pending {
		if entry.Document.StationID != stationID {
			continue
		}
		idx := indexOfDocument(result, entry.DocumentID)
		switch entry.Kind {
		case models.MutationCreate, models.MutationUpdate, models.MutationRenew:
			if idx >= 0 {
				result[idx] = cloneDocument(entry.Document)
			} else if entry.Kind == models.MutationCreate {
				result = append(result, cloneDocument(entry.Document))
			}
		case models.MutationDelete:
			if idx >= 0 {
				result = append(result[:idx], result[idx+1:]...)
			}
		}
	}
	return result
}

func (o *Outbox) publishDepth() {
	o.metrics.SetOutboxDepth(len(o.entries))
}

func indexOfDocument(docs []models.StatutoryDocument, id int64) int {
	for i := range docs {
		if docs[i].ID == id {
			return i
		}
	}
	return -1
}
