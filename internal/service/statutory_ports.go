package service

import (
	"context"
	"time"

	"github.com/noah-isme/station-compliance-api/internal/models"
)

type connectivityProbe interface {
	Probe(ctx context.Context) models.ConnectionStatus
	Status() models.ConnectionStatus
	MarkSynced(at time.Time)
}

type statutoryGateway interface {
	Load(ctx context.Context, stationID string, filters models.DocumentFilters) (*models.DocumentSnapshot, error)
	List(ctx context.Context, stationID string, filters models.DocumentFilters) ([]models.StatutoryDocument, error)
	Create(ctx context.Context, input models.DocumentInput) (*models.StatutoryDocument, error)
	Update(ctx context.Context, id int64, input models.DocumentInput) (*models.StatutoryDocument, error)
	Renew(ctx context.Context, id int64, input models.RenewDocumentInput) (*models.StatutoryDocument, error)
	Delete(ctx context.Context, id int64) error
}

type localDataset interface {
	ListByStation(ctx context.Context, stationID string) ([]models.StatutoryDocument, error)
	StationStatistics(ctx context.Context, stationID string) (models.DocumentStatistics, error)
}

type notifier interface {
	Success(title, message string, mockMode bool)
	Error(title, message string, mockMode bool)
}

type identityProvider interface {
	DisplayName(ctx context.Context) string
}

type outboxScheduler interface {
	Schedule()
}
