package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/station-compliance-api/internal/middleware"
	"github.com/noah-isme/station-compliance-api/internal/models"
	"github.com/noah-isme/station-compliance-api/internal/service"
	appErrors "github.com/noah-isme/station-compliance-api/pkg/errors"
	"github.com/noah-isme/station-compliance-api/pkg/response"
)

type documentReader interface {
	FetchDocuments(ctx context.Context, stationID string, filters models.DocumentFilters) *models.DocumentSnapshot
	SetFilters(filters models.DocumentFilters)
	Snapshot() models.DocumentSnapshot
	Connection() models.ConnectionStatus
	LastError() *models.APIError
	ClearError()
}

type documentCommands interface {
	Create(ctx context.Context, input models.DocumentInput) bool
	Update(ctx context.Context, id int64, input models.DocumentInput) bool
	Renew(ctx context.Context, id int64, input models.RenewDocumentInput) bool
	Delete(ctx context.Context, id int64) bool
}

type registerExporter interface {
	Render(format string, docs []models.StatutoryDocument) (*service.ExportFile, error)
}

// StatutoryHandler exposes the statutory document endpoints.
type StatutoryHandler struct {
	reader    documentReader
	commands  documentCommands
	exporter  registerExporter
	validator *validator.Validate
}

// NewStatutoryHandler builds a new handler.
func NewStatutoryHandler(reader documentReader, commands documentCommands, exporter registerExporter) *StatutoryHandler {
	return &StatutoryHandler{reader: reader, commands: commands, exporter: exporter, validator: validator.New()}
}

// FetchDocuments godoc
// @Summary Fetch a station's statutory documents
// @Description Reads from the authority when reachable, otherwise from the local dataset and pending offline changes.
// @Tags Statutory
// @Produce json
// @Param stationId path string true "Station ID"
// @Param status query string false "Compliance status or all"
// @Param documentType query string false "Document type or all"
// @Param paymentStatus query string false "Payment status or all"
// @Param search query string false "Case-insensitive search over title, authority, reference and type"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /statutory/stations/{stationId}/documents [get]
func (h *StatutoryHandler) FetchDocuments(c *gin.Context) {
	stationID := strings.TrimSpace(c.Param(middleware.StationParam))
	if stationID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "station id is required"))
		return
	}
	filters, ok := h.bindFilters(c, c.ShouldBindQuery)
	if !ok {
		return
	}
	snapshot := h.reader.FetchDocuments(c.Request.Context(), stationID, filters)
	middleware.SetMeta(c, "source", snapshot.Source)
	middleware.SetMeta(c, "connected", snapshot.Connection.Connected)
	response.JSON(c, http.StatusOK, snapshot, nil, middleware.ExtractMeta(c))
}

// SetFilters godoc
// @Summary Replace the active document filters
// @Description The active station is re-read once the debounce window elapses.
// @Tags Statutory
// @Accept json
// @Produce json
// @Param payload body models.DocumentFilters true "Filters"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /statutory/filters [put]
func (h *StatutoryHandler) SetFilters(c *gin.Context) {
	filters, ok := h.bindFilters(c, c.ShouldBindJSON)
	if !ok {
		return
	}
	h.reader.SetFilters(filters)
	response.JSON(c, http.StatusAccepted, filters.Normalize(), nil)
}

// Create godoc
// @Summary Create a statutory document
// @Tags Statutory
// @Accept json
// @Produce json
// @Param payload body models.DocumentInput true "Document payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /statutory/documents [post]
func (h *StatutoryHandler) Create(c *gin.Context) {
	var req models.DocumentInput
	if !h.bindDocument(c, &req) {
		return
	}
	response.Mutation(c, h.commands.Create(c.Request.Context(), req))
}

// Update godoc
// @Summary Update a statutory document
// @Tags Statutory
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param payload body models.DocumentInput true "Document payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /statutory/documents/{id} [put]
func (h *StatutoryHandler) Update(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	var req models.DocumentInput
	if !h.bindDocument(c, &req) {
		return
	}
	response.Mutation(c, h.commands.Update(c.Request.Context(), id, req))
}

// Renew godoc
// @Summary Renew a statutory document
// @Tags Statutory
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param payload body models.RenewDocumentInput true "Renewal payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /statutory/documents/{id}/renew [post]
func (h *StatutoryHandler) Renew(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	var req models.RenewDocumentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid renewal payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid renewal payload"))
		return
	}
	if req.NewExpiresDate.IsZero() {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidDate, "newExpiresDate is required"))
		return
	}
	response.Mutation(c, h.commands.Renew(c.Request.Context(), id, req))
}

// Delete godoc
// @Summary Delete a statutory document
// @Tags Statutory
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /statutory/documents/{id} [delete]
func (h *StatutoryHandler) Delete(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	response.Mutation(c, h.commands.Delete(c.Request.Context(), id))
}

// Connection godoc
// @Summary Last authority connection status
// @Tags Statutory
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /statutory/connection [get]
func (h *StatutoryHandler) Connection(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.reader.Connection(), nil)
}

// LastError godoc
// @Summary Inspect the last recorded error
// @Tags Statutory
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /statutory/errors/last [get]
func (h *StatutoryHandler) LastError(c *gin.Context) {
	lastErr := h.reader.LastError()
	if lastErr == nil {
		middleware.SetMeta(c, "empty", true)
		response.JSON(c, http.StatusOK, nil, nil, middleware.ExtractMeta(c))
		return
	}
	response.JSON(c, http.StatusOK, lastErr, nil)
}

// ClearError godoc
// @Summary Clear the last recorded error
// @Tags Statutory
// @Success 204
// @Router /statutory/errors/last [delete]
func (h *StatutoryHandler) ClearError(c *gin.Context) {
	h.reader.ClearError()
	response.NoContent(c)
}

// Export godoc
// @Summary Export the current document register
// @Tags Statutory
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /statutory/documents/export [get]
func (h *StatutoryHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", service.ExportFormatCSV)
	if format != service.ExportFormatCSV && format != service.ExportFormatPDF {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	file, err := h.exporter.Render(format, h.reader.Snapshot().Documents)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

func (h *StatutoryHandler) bindFilters(c *gin.Context, bind func(obj any) error) (models.DocumentFilters, bool) {
	var filters models.DocumentFilters
	if err := bind(&filters); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filters"))
		return filters, false
	}
	if err := filters.Validate(); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return filters, false
	}
	return filters, true
}

func (h *StatutoryHandler) bindDocument(c *gin.Context, req *models.DocumentInput) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
		return false
	}
	if req.ExpiresDate.IsZero() {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidDate, "expiresDate is required"))
		return false
	}
	return true
}

func documentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "document id must be an integer"))
		return 0, false
	}
	return id, true
}
