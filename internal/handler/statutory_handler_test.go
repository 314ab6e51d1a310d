package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/station-compliance-api/internal/models"
	"github.com/noah-isme/station-compliance-api/internal/service"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

type documentReaderMock struct {
	snapshot   *models.DocumentSnapshot
	stationID  string
	filters    models.DocumentFilters
	setFilters []models.DocumentFilters
	lastErr    *models.APIError
	cleared    bool
}

func (m *documentReaderMock) FetchDocuments(_ context.Context, stationID string, filters models.DocumentFilters) *models.DocumentSnapshot {
	m.stationID = stationID
	m.filters = filters
	return m.snapshot
}

func (m *documentReaderMock) SetFilters(filters models.DocumentFilters) {
	m.setFilters = append(m.setFilters, filters)
}

func (m *documentReaderMock) Snapshot() models.DocumentSnapshot {
	if m.snapshot == nil {
		return models.DocumentSnapshot{}
	}
	return *m.snapshot
}

func (m *documentReaderMock) Connection() models.ConnectionStatus {
	return models.ConnectionStatus{Connected: true, Endpoint: "http://authority/api/health"}
}

func (m *documentReaderMock) LastError() *models.APIError { return m.lastErr }

func (m *documentReaderMock) ClearError() {
	m.cleared = true
	m.lastErr = nil
}

type documentCommandsMock struct {
	result  bool
	created []models.DocumentInput
	updated map[int64]models.DocumentInput
	renewed map[int64]models.RenewDocumentInput
	deleted []int64
}

func newDocumentCommandsMock(result bool) *documentCommandsMock {
	return &documentCommandsMock{
		result:  result,
		updated: map[int64]models.DocumentInput{},
		renewed: map[int64]models.RenewDocumentInput{},
	}
}

func (m *documentCommandsMock) Create(_ context.Context, input models.DocumentInput) bool {
	m.created = append(m.created, input)
	return m.result
}

func (m *documentCommandsMock) Update(_ context.Context, id int64, input models.DocumentInput) bool {
	m.updated[id] = input
	return m.result
}

func (m *documentCommandsMock) Renew(_ context.Context, id int64, input models.RenewDocumentInput) bool {
	m.renewed[id] = input
	return m.result
}

func (m *documentCommandsMock) Delete(_ context.Context, id int64) bool {
	m.deleted = append(m.deleted, id)
	return m.result
}

type exporterMock struct {
	format string
	docs   []models.StatutoryDocument
	err    error
}

func (m *exporterMock) Render(format string, docs []models.StatutoryDocument) (*service.ExportFile, error) {
	m.format = format
	m.docs = docs
	if m.err != nil {
		return nil, m.err
	}
	return &service.ExportFile{Filename: "register.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("ID\n1\n")}, nil
}

func validDocumentPayload() map[string]interface{} {
	return map[string]interface{}{
		"type":          "FireSafetyCertificate",
		"title":         "Fire Safety Certificate",
		"authority":     "County Fire Department",
		"reference":     "CFD/FSC/1",
		"issuedDate":    "2026-01-01",
		"expiresDate":   "2027-01-01",
		"fees":          800,
		"paymentStatus": "Pending",
		"stationId":     "ST-001",
	}
}

func newTestContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestStatutoryHandlerFetchDocuments(t *testing.T) {
	reader := &documentReaderMock{snapshot: &models.DocumentSnapshot{
		StationID: "ST-001",
		Documents: []models.StatutoryDocument{{ID: 1, Title: "Fire Safety Certificate"}},
		Source:    models.SourceLocal,
	}}
	handler := NewStatutoryHandler(reader, newDocumentCommandsMock(true), &exporterMock{})

	c, w := newTestContext(http.MethodGet, "/statutory/stations/ST-001/documents?status=Expired&search=fire", nil)
	c.Params = gin.Params{{Key: "stationId", Value: "ST-001"}}
	handler.FetchDocuments(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ST-001", reader.stationID)
	assert.Equal(t, models.StatusExpired, reader.filters.Status)
	assert.Equal(t, "fire", reader.filters.Search)

	env := decodeEnvelope(t, w)
	assert.Equal(t, "local", env.Meta["source"])
	var snapshot models.DocumentSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snapshot))
	assert.Len(t, snapshot.Documents, 1)
}

func TestStatutoryHandlerFetchRejectsUnknownFilter(t *testing.T) {
	reader := &documentReaderMock{}
	handler := NewStatutoryHandler(reader, newDocumentCommandsMock(true), &exporterMock{})

	c, w := newTestContext(http.MethodGet, "/statutory/stations/ST-001/documents?documentType=Passport", nil)
	c.Params = gin.Params{{Key: "stationId", Value: "ST-001"}}
	handler.FetchDocuments(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, reader.stationID)
}

func TestStatutoryHandlerFetchRequiresStation(t *testing.T) {
	reader := &documentReaderMock{snapshot: &models.DocumentSnapshot{}}
	handler := NewStatutoryHandler(reader, newDocumentCommandsMock(true), &exporterMock{})

	c, w := newTestContext(http.MethodGet, "/statutory/stations/%20/documents", nil)
	c.Params = gin.Params{{Key: "stationId", Value: " "}}
	handler.FetchDocuments(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, reader.stationID)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Message, "station id is required")
}

func TestStatutoryHandlerSetFiltersAccepted(t *testing.T) {
	reader := &documentReaderMock{}
	handler := NewStatutoryHandler(reader, newDocumentCommandsMock(true), &exporterMock{})

	c, w := newTestContext(http.MethodPut, "/statutory/filters", map[string]string{"paymentStatus": "Overdue"})
	handler.SetFilters(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, reader.setFilters, 1)
	assert.Equal(t, models.PaymentOverdue, reader.setFilters[0].PaymentStatus)
}

func TestStatutoryHandlerCreate(t *testing.T) {
	commands := newDocumentCommandsMock(true)
	handler := NewStatutoryHandler(&documentReaderMock{}, commands, &exporterMock{})

	c, w := newTestContext(http.MethodPost, "/statutory/documents", validDocumentPayload())
	handler.Create(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, commands.created, 1)
	assert.Equal(t, "2027-01-01", commands.created[0].ExpiresDate.String())
	assert.JSONEq(t, `{"success":true}`, string(decodeEnvelope(t, w).Data))
}

func TestStatutoryHandlerMutationFailureIsStill200(t *testing.T) {
	commands := newDocumentCommandsMock(false)
	handler := NewStatutoryHandler(&documentReaderMock{}, commands, &exporterMock{})

	c, w := newTestContext(http.MethodDelete, "/statutory/documents/4", nil)
	c.Params = gin.Params{{Key: "id", Value: "4"}}
	handler.Delete(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{4}, commands.deleted)
	assert.JSONEq(t, `{"success":false}`, string(decodeEnvelope(t, w).Data))
}

func TestStatutoryHandlerCreateValidation(t *testing.T) {
	cases := map[string]func(p map[string]interface{}){
		"unknown type":   func(p map[string]interface{}) { p["type"] = "Passport" },
		"negative fees":  func(p map[string]interface{}) { p["fees"] = -1 },
		"missing title":  func(p map[string]interface{}) { delete(p, "title") },
		"missing expiry": func(p map[string]interface{}) { delete(p, "expiresDate") },
		"bad date":       func(p map[string]interface{}) { p["expiresDate"] = "31/12/2026" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			commands := newDocumentCommandsMock(true)
			handler := NewStatutoryHandler(&documentReaderMock{}, commands, &exporterMock{})
			payload := validDocumentPayload()
			mutate(payload)

			c, w := newTestContext(http.MethodPost, "/statutory/documents", payload)
			handler.Create(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, commands.created)
		})
	}
}

func TestStatutoryHandlerUpdateRejectsBadID(t *testing.T) {
	commands := newDocumentCommandsMock(true)
	handler := NewStatutoryHandler(&documentReaderMock{}, commands, &exporterMock{})

	c, w := newTestContext(http.MethodPut, "/statutory/documents/abc", validDocumentPayload())
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	handler.Update(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, commands.updated)
}

func TestStatutoryHandlerRenew(t *testing.T) {
	commands := newDocumentCommandsMock(true)
	handler := NewStatutoryHandler(&documentReaderMock{}, commands, &exporterMock{})

	c, w := newTestContext(http.MethodPost, "/statutory/documents/2/renew", map[string]interface{}{
		"newExpiresDate": "2027-05-09",
		"renewalFees":    880,
	})
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	handler.Renew(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, commands.renewed, int64(2))
	assert.Equal(t, 880.0, commands.renewed[2].RenewalFees)

	c, w = newTestContext(http.MethodPost, "/statutory/documents/2/renew", map[string]interface{}{"renewalFees": 10})
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	handler.Renew(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DATE", decodeEnvelope(t, w).Error.Code)
}

func TestStatutoryHandlerLastErrorLifecycle(t *testing.T) {
	id := int64(3)
	reader := &documentReaderMock{lastErr: &models.APIError{Code: models.ErrorCodeUpdateFailed, Message: "boom", Timestamp: time.Now(), DocumentID: &id}}
	handler := NewStatutoryHandler(reader, newDocumentCommandsMock(true), &exporterMock{})

	c, w := newTestContext(http.MethodGet, "/statutory/errors/last", nil)
	handler.LastError(c)
	require.Equal(t, http.StatusOK, w.Code)
	var apiErr models.APIError
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &apiErr))
	assert.Equal(t, models.ErrorCodeUpdateFailed, apiErr.Code)

	c, w = newTestContext(http.MethodDelete, "/statutory/errors/last", nil)
	handler.ClearError(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, reader.cleared)
}

func TestStatutoryHandlerExport(t *testing.T) {
	reader := &documentReaderMock{snapshot: &models.DocumentSnapshot{Documents: []models.StatutoryDocument{{ID: 1}}}}
	exporter := &exporterMock{}
	handler := NewStatutoryHandler(reader, newDocumentCommandsMock(true), exporter)

	c, w := newTestContext(http.MethodGet, "/statutory/documents/export", nil)
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Len(t, exporter.docs, 1)
	assert.Equal(t, `attachment; filename="register.csv"`, w.Header().Get("Content-Disposition"))

	c, w = newTestContext(http.MethodGet, "/statutory/documents/export?format=xlsx", nil)
	handler.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	exporter.err = errors.New("render failed")
	c, w = newTestContext(http.MethodGet, "/statutory/documents/export?format=pdf", nil)
	handler.Export(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
