package service

import (
	"sync"
	"time"

	"github.com/noah-isme/station-compliance-api/internal/models"
)

// DocumentStore holds the station's canonical document collection, the filtered view served
// to readers, side data and the last error. Callers always receive copies.
type DocumentStore struct {
	mu        sync.RWMutex
	snapshot  models.DocumentSnapshot
	all       []models.StatutoryDocument
	lastError *models.APIError
	highWater int64
}

// NewDocumentStore builds an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		snapshot: models.DocumentSnapshot{Documents: []models.StatutoryDocument{}},
		all:      []models.StatutoryDocument{},
	}
}

// Replace swaps the whole snapshot. Its documents also become the canonical collection.
func (s *DocumentStore) Replace(snapshot models.DocumentSnapshot) {
	s.ReplaceView(snapshot, snapshot.Documents)
}

// ReplaceView swaps the snapshot and records all as the station's unfiltered collection.
// snapshot.Documents is expected to be a filtered subset of all.
func (s *DocumentStore) ReplaceView(snapshot models.DocumentSnapshot, all []models.StatutoryDocument) {
	snapshot = cloneSnapshot(snapshot)
	all = cloneDocuments(all)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	s.all = all
	s.observeIDs(snapshot.Documents)
	s.observeIDs(all)
}

// Snapshot returns a copy of the current snapshot.
func (s *DocumentStore) Snapshot() models.DocumentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.snapshot)
}

// StationID returns the station the current snapshot belongs to.
func (s *DocumentStore) StationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.StationID
}

// Documents returns a copy of the filtered document list.
func (s *DocumentStore) Documents() []models.StatutoryDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDocuments(s.snapshot.Documents)
}

// All returns a copy of the station's unfiltered collection.
func (s *DocumentStore) All() []models.StatutoryDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDocuments(s.all)
}

// Get returns the document with id, whether or not the active filters show it.
func (s *DocumentStore) Get(id int64) (models.StatutoryDocument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOfDocument(s.snapshot.Documents, id); i >= 0 {
		return cloneDocument(s.snapshot.Documents[i]), true
	}
	if i := indexOfDocument(s.all, id); i >= 0 {
		return cloneDocument(s.all[i]), true
	}
	return models.StatutoryDocument{}, false
}

// Insert appends doc.
func (s *DocumentStore) Insert(doc models.StatutoryDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Documents = append(s.snapshot.Documents, cloneDocument(doc))
	if i := indexOfDocument(s.all, doc.ID); i >= 0 {
		s.all[i] = cloneDocument(doc)
	} else {
		s.all = append(s.all, cloneDocument(doc))
	}
	s.observeID(doc.ID)
}

// ReplaceDocument swaps the document carrying doc.ID. It reports whether a match existed.
func (s *DocumentStore) ReplaceDocument(doc models.StatutoryDocument) bool {
	return s.ReplaceByID(doc.ID, doc)
}

// ReplaceByID swaps the document with id for doc, which may carry a different id. A document
// hidden by the filters is replaced in the canonical collection only.
func (s *DocumentStore) ReplaceByID(id int64, doc models.StatutoryDocument) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	if i := indexOfDocument(s.snapshot.Documents, id); i >= 0 {
		s.snapshot.Documents[i] = cloneDocument(doc)
		found = true
	}
	if i := indexOfDocument(s.all, id); i >= 0 {
		s.all[i] = cloneDocument(doc)
		found = true
	}
	if found {
		s.observeID(doc.ID)
	}
	return found
}

// Remove deletes the document with id. It reports whether a match existed.
func (s *DocumentStore) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	if i := indexOfDocument(s.snapshot.Documents, id); i >= 0 {
		s.snapshot.Documents = append(s.snapshot.Documents[:i], s.snapshot.Documents[i+1:]...)
		found = true
	}
	if i := indexOfDocument(s.all, id); i >= 0 {
		s.all = append(s.all[:i], s.all[i+1:]...)
		found = true
	}
	return found
}

// ObserveIDs raises the local id high-water mark past every id in docs.
func (s *DocumentStore) ObserveIDs(docs []models.StatutoryDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observeIDs(docs)
}

// NextLocalID hands out a locally assigned id above every id the store has seen.
// Ids are never reused, even after deletion.
func (s *DocumentStore) NextLocalID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observeIDs(s.snapshot.Documents)
	s.observeIDs(s.all)
	s.highWater++
	return s.highWater
}

func (s *DocumentStore) observeIDs(docs []models.StatutoryDocument) {
	for _, doc := range docs {
		s.observeID(doc.ID)
	}
}

func (s *DocumentStore) observeID(id int64) {
	if id > s.highWater {
		s.highWater = id
	}
}

// LastError returns the retained diagnostic, if any.
func (s *DocumentStore) LastError() *models.APIError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastError == nil {
		return nil
	}
	copied := *s.lastError
	return &copied
}

// SetError replaces the last error.
func (s *DocumentStore) SetError(code, message string, documentID *int64, at time.Time) {
	apiErr := &models.APIError{Code: code, Message: message, Timestamp: at.UTC()}
	if documentID != nil {
		id := *documentID
		apiErr.DocumentID = &id
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = apiErr
}

// ClearError drops the last error.
func (s *DocumentStore) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = nil
}

func cloneSnapshot(in models.DocumentSnapshot) models.DocumentSnapshot {
	out := in
	out.Documents = cloneDocuments(in.Documents)
	out.Monthly = append([]models.MonthlyCompliance(nil), in.Monthly...)
	out.Distribution = append([]models.TypeDistribution(nil), in.Distribution...)
	out.Deadlines = append([]models.Deadline(nil), in.Deadlines...)
	return out
}

func cloneDocuments(in []models.StatutoryDocument) []models.StatutoryDocument {
	out := make([]models.StatutoryDocument, len(in))
	for i, doc := range in {
		out[i] = cloneDocument(doc)
	}
	return out
}

func cloneDocument(doc models.StatutoryDocument) models.StatutoryDocument {
	if doc.UpdatedBy != nil {
		v := *doc.UpdatedBy
		doc.UpdatedBy = &v
	}
	if doc.UpdatedAt != nil {
		v := *doc.UpdatedAt
		doc.UpdatedAt = &v
	}
	if doc.Notes != nil {
		v := *doc.Notes
		doc.Notes = &v
	}
	return doc
}
