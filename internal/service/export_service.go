package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/station-compliance-api/internal/models"
	"github.com/noah-isme/station-compliance-api/pkg/export"
)

// Register export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportFile is a rendered register ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type registerRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportService renders the statutory register of the documents currently held.
type ExportService struct {
	renderers map[string]registerRenderer
	location  *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(location *time.Location, logger *zap.Logger) *ExportService {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		renderers: map[string]registerRenderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// Render builds the register table for docs and renders it in format.
func (s *ExportService) Render(format string, docs []models.StatutoryDocument) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, fmt.Errorf("unsupported export format %q", format)
	}

	generatedAt := s.now().In(s.location)
	payload, err := renderer.Render(registerDataset(docs, generatedAt))
	if err != nil {
		return nil, fmt.Errorf("render %s register: %w", format, err)
	}

	filename := fmt.Sprintf("statutory-register_%s_%s.%s", registerStation(docs), generatedAt.Format("20060102_150405"), renderer.Extension())
	s.logger.Sugar().Infow("statutory register exported", "format", format, "documents", len(docs), "bytes", len(payload))
	return &ExportFile{Filename: filename, ContentType: renderer.ContentType(), Data: payload}, nil
}

func registerDataset(docs []models.StatutoryDocument, generatedAt time.Time) export.Dataset {
	rows := make([][]string, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, []string{
			strconv.FormatInt(doc.ID, 10),
			string(doc.Type),
			doc.Title,
			doc.Authority,
			doc.Reference,
			doc.IssuedDate.String(),
			doc.ExpiresDate.String(),
			strconv.Itoa(doc.DaysRemaining),
			string(doc.Status),
			strconv.FormatFloat(doc.Fees, 'f', 2, 64),
			string(doc.PaymentStatus),
			doc.Assignee,
		})
	}

	subtitle := fmt.Sprintf("%d documents, generated %s", len(docs), generatedAt.Format("2006-01-02 15:04 MST"))
	if name := registerStationName(docs); name != "" {
		subtitle = name + " | " + subtitle
	}
	return export.Dataset{
		Title:    "Statutory Document Register",
		Subtitle: subtitle,
		Columns: []export.Column{
			{Header: "ID", Width: 12},
			{Header: "Type", Width: 34},
			{Header: "Title"},
			{Header: "Authority", Width: 40},
			{Header: "Reference", Width: 30},
			{Header: "Issued", Width: 18},
			{Header: "Expires", Width: 18},
			{Header: "Days", Width: 11},
			{Header: "Status", Width: 22},
			{Header: "Fees", Width: 16},
			{Header: "Payment", Width: 16},
			{Header: "Assignee"},
		},
		Rows: rows,
	}
}

func registerStation(docs []models.StatutoryDocument) string {
	if len(docs) == 0 || docs[0].StationID == "" {
		return "all"
	}
	return strings.NewReplacer("/", "-", " ", "_").Replace(docs[0].StationID)
}

func registerStationName(docs []models.StatutoryDocument) string {
	if len(docs) == 0 {
		return ""
	}
	return docs[0].StationName
}
