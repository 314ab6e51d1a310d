package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/station-compliance-api/internal/models"
)

type stubProbe struct {
	mu        sync.Mutex
	connected bool
	probes    int
	status    models.ConnectionStatus
}

func newStubProbe(connected bool) *stubProbe {
	return &stubProbe{connected: connected}
}

func (p *stubProbe) Probe(context.Context) models.ConnectionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes++
	p.status = models.ConnectionStatus{
		Connected:    p.connected,
		LastChecked:  fixedNow,
		Endpoint:     "http://authority.test/api/health",
		LastSyncTime: p.status.LastSyncTime,
	}
	return p.status
}

func (p *stubProbe) Status() models.ConnectionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *stubProbe) MarkSynced(at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	status := p.status
	status.LastSyncTime = &at
	p.status = status
}

func (p *stubProbe) setConnected(connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = connected
}

type stubGateway struct {
	mu        sync.Mutex
	snapshot  *models.DocumentSnapshot
	loadErr   error
	loads     []models.DocumentFilters
	remote    []models.StatutoryDocument
	listErr   error
	created   *models.StatutoryDocument
	createErr error
	updateErr error
	renewErr  error
	deleteErr error
	calls     []string

	entered chan struct{}
	release chan struct{}
}

func (g *stubGateway) Load(_ context.Context, stationID string, filters models.DocumentFilters) (*models.DocumentSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loads = append(g.loads, filters)
	g.calls = append(g.calls, "load:"+stationID)
	if g.loadErr != nil {
		return nil, g.loadErr
	}
	if g.snapshot == nil {
		return nil, nil
	}
	copied := cloneSnapshot(*g.snapshot)
	return &copied, nil
}

func (g *stubGateway) List(_ context.Context, stationID string, _ models.DocumentFilters) ([]models.StatutoryDocument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "list:"+stationID)
	if g.listErr != nil {
		return nil, g.listErr
	}
	return cloneDocuments(g.remote), nil
}

func (g *stubGateway) Create(_ context.Context, input models.DocumentInput) (*models.StatutoryDocument, error) {
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "create")
	if g.createErr != nil {
		return nil, g.createErr
	}
	if g.created != nil {
		created := cloneDocument(*g.created)
		return &created, nil
	}
	doc := models.StatutoryDocument{ID: 9001, CreatedBy: "authority"}
	input.ApplyTo(&doc)
	return &doc, nil
}

func (g *stubGateway) Update(_ context.Context, id int64, input models.DocumentInput) (*models.StatutoryDocument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, fmt.Sprintf("update:%d", id))
	if g.updateErr != nil {
		return nil, g.updateErr
	}
	doc := models.StatutoryDocument{ID: id}
	input.ApplyTo(&doc)
	return &doc, nil
}

func (g *stubGateway) Renew(_ context.Context, id int64, input models.RenewDocumentInput) (*models.StatutoryDocument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, fmt.Sprintf("renew:%d", id))
	if g.renewErr != nil {
		return nil, g.renewErr
	}
	return &models.StatutoryDocument{
		ID:            id,
		ExpiresDate:   input.NewExpiresDate,
		Fees:          input.RenewalFees,
		PaymentStatus: models.PaymentPaid,
		Status:        models.StatusCompliant,
	}, nil
}

func (g *stubGateway) Delete(_ context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, fmt.Sprintf("delete:%d", id))
	return g.deleteErr
}

func (g *stubGateway) callLog() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string{}, g.calls...)
}

type stubLocal struct {
	mu    sync.Mutex
	docs  map[string][]models.StatutoryDocument
	stats map[string]models.DocumentStatistics
	err   error
	lists int
}

// ListByStation fails on a done context, as a database-backed dataset would.
func (l *stubLocal) ListByStation(ctx context.Context, stationID string) ([]models.StatutoryDocument, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lists++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.err != nil {
		return nil, l.err
	}
	return cloneDocuments(l.docs[stationID]), nil
}

func (l *stubLocal) StationStatistics(ctx context.Context, stationID string) (models.DocumentStatistics, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return models.DocumentStatistics{}, err
	}
	return l.stats[stationID], nil
}

func (l *stubLocal) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func (l *stubLocal) listCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lists
}

type recordedNotification struct {
	level    NotificationLevel
	title    string
	message  string
	mockMode bool
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []recordedNotification
}

func (n *recordingNotifier) Success(title, message string, mockMode bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, recordedNotification{level: NotificationSuccess, title: title, message: message, mockMode: mockMode})
}

func (n *recordingNotifier) Error(title, message string, mockMode bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, recordedNotification{level: NotificationError, title: title, message: message, mockMode: mockMode})
}

func (n *recordingNotifier) all() []recordedNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedNotification{}, n.items...)
}

type stubIdentity struct{ name string }

func (s stubIdentity) DisplayName(context.Context) string { return s.name }

type countingScheduler struct {
	mu    sync.Mutex
	calls int
}

func (c *countingScheduler) Schedule() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
}

func (c *countingScheduler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// stationDocument builds a document expiring days after fixedNow.
func stationDocument(id int64, stationID string, docType models.DocumentType, title string, days int) models.StatutoryDocument {
	today := models.NewDate(fixedNow)
	return models.StatutoryDocument{
		ID:             id,
		Type:           docType,
		Title:          title,
		Authority:      "Municipal Council",
		Reference:      fmt.Sprintf("REF-%03d", id),
		RegisteredDate: today.AddDays(-700),
		IssuedDate:     today.AddDays(-365),
		ExpiresDate:    today.AddDays(days),
		Fees:           500,
		PaymentStatus:  models.PaymentPaid,
		StationID:      stationID,
		StationName:    "Station " + stationID,
		Assignee:       "Operations",
		CreatedBy:      "seed",
		Revision:       1,
	}
}
