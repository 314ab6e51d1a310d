package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/station-compliance-api/internal/models"
)

const statutoryDocumentColumns = `id, type, title, authority, reference, registered_date, issued_date, expires_date,
status, fees, payment_status, station_id, station_name, assignee, created_by, updated_by, updated_at, notes, revision`

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

type stationStatisticsRow struct {
	StationID       string  `db:"station_id"`
	TotalDocuments  int     `db:"total_documents"`
	Compliant       int     `db:"compliant"`
	ExpiringSoon    int     `db:"expiring_soon"`
	Expired         int     `db:"expired"`
	UnderReview     int     `db:"under_review"`
	ComplianceRate  float64 `db:"compliance_rate"`
	TotalFees       float64 `db:"total_fees"`
	OutstandingFees float64 `db:"outstanding_fees"`
}

// StatutoryRepository is the Postgres-backed local dataset used while the authority is unreachable.
type StatutoryRepository struct {
	db      *sqlx.DB
	metrics queryObserver
}

// NewStatutoryRepository constructs the repository. metrics may be nil.
func NewStatutoryRepository(db *sqlx.DB, metrics queryObserver) *StatutoryRepository {
	return &StatutoryRepository{db: db, metrics: metrics}
}

// ListByStation returns every document of the station ordered by id.
func (r *StatutoryRepository) ListByStation(ctx context.Context, stationID string) ([]models.StatutoryDocument, error) {
	query := `SELECT ` + statutoryDocumentColumns + `
FROM statutory_documents WHERE station_id = $1 ORDER BY id ASC`
	defer r.observe("statutory_documents.list", time.Now())

	var docs []models.StatutoryDocument
	if err := r.db.SelectContext(ctx, &docs, query, stationID); err != nil {
		return nil, fmt.Errorf("list statutory documents: %w", err)
	}
	if docs == nil {
		docs = []models.StatutoryDocument{}
	}
	return docs, nil
}

// StationStatistics returns the maintained per-station statistics row. Unknown stations yield zeros.
func (r *StatutoryRepository) StationStatistics(ctx context.Context, stationID string) (models.DocumentStatistics, error) {
	const query = `SELECT station_id, total_documents, compliant, expiring_soon, expired, under_review,
compliance_rate, total_fees, outstanding_fees FROM station_statistics WHERE station_id = $1`
	defer r.observe("station_statistics.get", time.Now())

	var row stationStatisticsRow
	if err := r.db.GetContext(ctx, &row, query, stationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DocumentStatistics{}, nil
		}
		return models.DocumentStatistics{}, fmt.Errorf("get station statistics: %w", err)
	}
	return models.DocumentStatistics{
		TotalDocuments:  row.TotalDocuments,
		Compliant:       row.Compliant,
		ExpiringSoon:    row.ExpiringSoon,
		Expired:         row.Expired,
		UnderReview:     row.UnderReview,
		ComplianceRate:  row.ComplianceRate,
		TotalFees:       row.TotalFees,
		OutstandingFees: row.OutstandingFees,
	}, nil
}

// UpsertDocuments writes docs in one transaction, replacing rows with the same id.
func (r *StatutoryRepository) UpsertDocuments(ctx context.Context, docs []models.StatutoryDocument) error {
	if len(docs) == 0 {
		return nil
	}
	const query = `INSERT INTO statutory_documents (id, type, title, authority, reference, registered_date, issued_date,
expires_date, status, fees, payment_status, station_id, station_name, assignee, created_by, updated_by, updated_at, notes, revision)
VALUES (:id, :type, :title, :authority, :reference, :registered_date, :issued_date, :expires_date, :status, :fees,
:payment_status, :station_id, :station_name, :assignee, :created_by, :updated_by, :updated_at, :notes, :revision)
ON CONFLICT (id) DO UPDATE SET type = EXCLUDED.type, title = EXCLUDED.title, authority = EXCLUDED.authority,
reference = EXCLUDED.reference, registered_date = EXCLUDED.registered_date, issued_date = EXCLUDED.issued_date,
expires_date = EXCLUDED.expires_date, status = EXCLUDED.status, fees = EXCLUDED.fees,
payment_status = EXCLUDED.payment_status, station_id = EXCLUDED.station_id, station_name = EXCLUDED.station_name,
assignee = EXCLUDED.assignee, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at,
notes = EXCLUDED.notes, revision = EXCLUDED.revision`
	defer r.observe("statutory_documents.upsert", time.Now())

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin statutory upsert tx: %w", err)
	}
	for i := range docs {
		if _, err := tx.NamedExecContext(ctx, query, &docs[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert statutory document %d: %w", docs[i].ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit statutory upsert: %w", err)
	}
	return nil
}

// UpsertStationStatistics stores the statistics row of a station.
func (r *StatutoryRepository) UpsertStationStatistics(ctx context.Context, stationID string, stats models.DocumentStatistics) error {
	const query = `INSERT INTO station_statistics (station_id, total_documents, compliant, expiring_soon, expired,
under_review, compliance_rate, total_fees, outstanding_fees)
VALUES (:station_id, :total_documents, :compliant, :expiring_soon, :expired, :under_review, :compliance_rate,
:total_fees, :outstanding_fees)
ON CONFLICT (station_id) DO UPDATE SET total_documents = EXCLUDED.total_documents, compliant = EXCLUDED.compliant,
expiring_soon = EXCLUDED.expiring_soon, expired = EXCLUDED.expired, under_review = EXCLUDED.under_review,
compliance_rate = EXCLUDED.compliance_rate, total_fees = EXCLUDED.total_fees, outstanding_fees = EXCLUDED.outstanding_fees`
	defer r.observe("station_statistics.upsert", time.Now())

	row := stationStatisticsRow{
		StationID:       stationID,
		TotalDocuments:  stats.TotalDocuments,
		Compliant:       stats.Compliant,
		ExpiringSoon:    stats.ExpiringSoon,
		Expired:         stats.Expired,
		UnderReview:     stats.UnderReview,
		ComplianceRate:  stats.ComplianceRate,
		TotalFees:       stats.TotalFees,
		OutstandingFees: stats.OutstandingFees,
	}
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert station statistics: %w", err)
	}
	return nil
}

func (r *StatutoryRepository) observe(label string, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveDBQuery(label, time.Since(start))
	}
}
