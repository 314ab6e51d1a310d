package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/station-compliance-api/internal/models"
)

func newStatutoryRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

type recordingQueryObserver struct {
	labels []string
}

func (r *recordingQueryObserver) ObserveDBQuery(label string, _ time.Duration) {
	r.labels = append(r.labels, label)
}

var statutoryColumns = []string{"id", "type", "title", "authority", "reference", "registered_date", "issued_date",
	"expires_date", "status", "fees", "payment_status", "station_id", "station_name", "assignee", "created_by",
	"updated_by", "updated_at", "notes", "revision"}

func TestStatutoryRepositoryListByStation(t *testing.T) {
	db, mock, cleanup := newStatutoryRepoMock(t)
	defer cleanup()
	observer := &recordingQueryObserver{}
	repo := NewStatutoryRepository(db, observer)

	issued := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	expires := time.Date(2026, 4, 25, 0, 0, 0, 0, time.UTC)
	updatedAt := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows(statutoryColumns).
		AddRow(1, "FireSafetyCertificate", "Fire Safety Certificate", "Civil Defence", "FSC-001", issued, issued, expires,
			"ExpiringSoon", 800.0, "Pending", "ST-001", "Harbour Road", "Operations", "seed", "Station Manager", updatedAt, "inspection booked", 3).
		AddRow(2, "TaxCertificate", "Tax Certificate", "Revenue Office", "TAX-88", issued, issued, "2027-01-31",
			"UnderReview", 120.0, "Paid", "ST-001", "Harbour Road", "Finance", "seed", nil, nil, nil, 1)
	mock.ExpectQuery("SELECT id, type, title").
		WithArgs("ST-001").
		WillReturnRows(rows)

	docs, err := repo.ListByStation(context.Background(), "ST-001")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, models.DocumentTypeFireSafetyCertificate, docs[0].Type)
	assert.Equal(t, "2026-04-25", docs[0].ExpiresDate.String())
	assert.Equal(t, models.PaymentPending, docs[0].PaymentStatus)
	require.NotNil(t, docs[0].UpdatedBy)
	assert.Equal(t, "Station Manager", *docs[0].UpdatedBy)
	require.NotNil(t, docs[0].Notes)
	assert.Equal(t, int64(3), docs[0].Revision)

	assert.Equal(t, "2027-01-31", docs[1].ExpiresDate.String())
	assert.Equal(t, models.StatusUnderReview, docs[1].Status)
	assert.Nil(t, docs[1].UpdatedAt)

	assert.Equal(t, []string{"statutory_documents.list"}, observer.labels)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatutoryRepositoryListByStationError(t *testing.T) {
	db, mock, cleanup := newStatutoryRepoMock(t)
	defer cleanup()
	repo := NewStatutoryRepository(db, nil)

	mock.ExpectQuery("SELECT id, type, title").
		WithArgs("ST-404").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ListByStation(context.Background(), "ST-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list statutory documents")
}

func TestStatutoryRepositoryStationStatistics(t *testing.T) {
	db, mock, cleanup := newStatutoryRepoMock(t)
	defer cleanup()
	repo := NewStatutoryRepository(db, nil)

	rows := sqlmock.NewRows([]string{"station_id", "total_documents", "compliant", "expiring_soon", "expired",
		"under_review", "compliance_rate", "total_fees", "outstanding_fees"}).
		AddRow("ST-001", 12, 9, 2, 1, 0, 75.0, 9400.0, 1200.0)
	mock.ExpectQuery("SELECT station_id, total_documents").
		WithArgs("ST-001").
		WillReturnRows(rows)

	stats, err := repo.StationStatistics(context.Background(), "ST-001")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatistics{
		TotalDocuments: 12, Compliant: 9, ExpiringSoon: 2, Expired: 1,
		ComplianceRate: 75, TotalFees: 9400, OutstandingFees: 1200,
	}, stats)
}

func TestStatutoryRepositoryStationStatisticsUnknownStation(t *testing.T) {
	db, mock, cleanup := newStatutoryRepoMock(t)
	defer cleanup()
	repo := NewStatutoryRepository(db, nil)

	mock.ExpectQuery("SELECT station_id, total_documents").
		WithArgs("ST-404").
		WillReturnError(sql.ErrNoRows)

	stats, err := repo.StationStatistics(context.Background(), "ST-404")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatistics{}, stats)
}

func TestStatutoryRepositoryUpsertDocuments(t *testing.T) {
	db, mock, cleanup := newStatutoryRepoMock(t)
	defer cleanup()
	repo := NewStatutoryRepository(db, nil)

	docs := []models.StatutoryDocument{
		{ID: 1, Type: models.DocumentTypeBusinessLicense, Title: "Business License", ExpiresDate: models.MustDate("2027-01-01"), StationID: "ST-001", Revision: 1},
		{ID: 2, Type: models.DocumentTypeHealthPermit, Title: "Health Permit", ExpiresDate: models.MustDate("2026-06-01"), StationID: "ST-001", Revision: 1},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO statutory_documents").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO statutory_documents").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpsertDocuments(context.Background(), docs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatutoryRepositoryUpsertDocumentsRollsBack(t *testing.T) {
	db, mock, cleanup := newStatutoryRepoMock(t)
	defer cleanup()
	repo := NewStatutoryRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO statutory_documents").WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.UpsertDocuments(context.Background(), []models.StatutoryDocument{{ID: 7, StationID: "ST-001"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert statutory document 7")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatutoryRepositoryUpsertStationStatistics(t *testing.T) {
	db, mock, cleanup := newStatutoryRepoMock(t)
	defer cleanup()
	repo := NewStatutoryRepository(db, nil)

	mock.ExpectExec("INSERT INTO station_statistics").
		WithArgs("ST-001", 12, 9, 2, 1, 0, 75.0, 9400.0, 1200.0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.UpsertStationStatistics(context.Background(), "ST-001", models.DocumentStatistics{
		TotalDocuments: 12, Compliant: 9, ExpiringSoon: 2, Expired: 1, ComplianceRate: 75, TotalFees: 9400, OutstandingFees: 1200,
	})
	require.NoError(t, err)
}
