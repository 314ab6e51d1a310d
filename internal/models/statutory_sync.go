package models

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionStatus is the outcome of the most recent authority health probe.
// It is replaced as a whole on every probe and never patched field by field.
type ConnectionStatus struct {
	Connected      bool       `json:"connected"`
	LastChecked    time.Time  `json:"lastChecked"`
	Endpoint       string     `json:"endpoint"`
	ResponseTimeMs *int64     `json:"responseTimeMs,omitempty"`
	LastSyncTime   *time.Time `json:"lastSyncTime,omitempty"`
}

// APIError is the diagnostic kept as "last error" until superseded or cleared.
type APIError struct {
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	DocumentID *int64    `json:"documentId,omitempty"`
}

// Last-error codes recorded by the engine.
const (
	ErrorCodeRemoteUnavailable = "REMOTE_UNAVAILABLE"
	ErrorCodeFetchFailed       = "FETCH_FAILED"
	ErrorCodeCreateFailed      = "CREATE_FAILED"
	ErrorCodeUpdateFailed      = "UPDATE_FAILED"
	ErrorCodeRenewFailed       = "RENEW_FAILED"
	ErrorCodeDeleteFailed      = "DELETE_FAILED"
)

// DocumentStatistics summarises a station's documents.
type DocumentStatistics struct {
	TotalDocuments  int     `json:"totalDocuments"`
	Compliant       int     `json:"compliant"`
	ExpiringSoon    int     `json:"expiringSoon"`
	Expired         int     `json:"expired"`
	UnderReview     int     `json:"underReview"`
	ComplianceRate  float64 `json:"complianceRate"`
	TotalFees       float64 `json:"totalFees"`
	OutstandingFees float64 `json:"outstandingFees"`
}

// MonthlyCompliance is one point of the compliance trend chart.
type MonthlyCompliance struct {
	Month          string  `json:"month"`
	Compliant      int     `json:"compliant"`
	ExpiringSoon   int     `json:"expiringSoon"`
	Expired        int     `json:"expired"`
	ComplianceRate float64 `json:"complianceRate"`
}

// TypeDistribution counts documents per type.
type TypeDistribution struct {
	Type       DocumentType `json:"type"`
	Count      int          `json:"count"`
	Percentage float64      `json:"percentage"`
}

// Deadline is an upcoming (or missed) expiry.
type Deadline struct {
	DocumentID    int64            `json:"documentId"`
	Title         string           `json:"title"`
	Type          DocumentType     `json:"type"`
	ExpiresDate   Date             `json:"expiresDate"`
	DaysRemaining int              `json:"daysRemaining"`
	Status        ComplianceStatus `json:"status"`
	Assignee      string           `json:"assignee"`
}

// StationAggregates bundles the side data shown next to the document list.
type StationAggregates struct {
	Statistics   DocumentStatistics  `json:"statistics"`
	Monthly      []MonthlyCompliance `json:"monthly"`
	Distribution []TypeDistribution  `json:"distribution"`
	Deadlines    []Deadline          `json:"deadlines"`
}

// SnapshotSource tells where a snapshot's documents came from.
type SnapshotSource string

const (
	SourceRemote SnapshotSource = "remote"
	SourceLocal  SnapshotSource = "local"
)

// DocumentSnapshot is the result of a read: documents plus side data.
type DocumentSnapshot struct {
	StationID string              `json:"stationId"`
	Documents []StatutoryDocument `json:"documents"`
	StationAggregates
	Source     SnapshotSource   `json:"source"`
	Connection ConnectionStatus `json:"connection"`
	FetchedAt  time.Time        `json:"fetchedAt"`
}

// MutationKind identifies an offline mutation waiting for replay.
type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationRenew  MutationKind = "renew"
	MutationDelete MutationKind = "delete"
)

// PendingMutation is an outbox entry recorded while the authority was unreachable.
type PendingMutation struct {
	ID         uuid.UUID           `json:"id"`
	Kind       MutationKind        `json:"kind"`
	DocumentID int64               `json:"documentId"`
	Document   StatutoryDocument   `json:"document"`
	Renewal    *RenewDocumentInput `json:"renewal,omitempty"`
	Revision   int64               `json:"revision"`
	RecordedAt time.Time           `json:"recordedAt"`
}

// DocumentInput carries the writable fields of a document for create and update.
type DocumentInput struct {
	Type           DocumentType  `json:"type" validate:"required,oneof=BusinessLicense EnvironmentalPermit FireSafetyCertificate FuelRetailLicense HealthPermit InsurancePolicy TaxCertificate"`
	Title          string        `json:"title" validate:"required,max=200"`
	Authority      string        `json:"authority" validate:"required,max=200"`
	Reference      string        `json:"reference" validate:"required,max=200"`
	RegisteredDate Date          `json:"registeredDate"`
	IssuedDate     Date          `json:"issuedDate"`
	ExpiresDate    Date          `json:"expiresDate"`
	Fees           float64       `json:"fees" validate:"gte=0"`
	PaymentStatus  PaymentStatus `json:"paymentStatus" validate:"required,oneof=Paid Pending Overdue"`
	StationID      string        `json:"stationId" validate:"required,max=64"`
	StationName    string        `json:"stationName" validate:"max=200"`
	Assignee       string        `json:"assignee" validate:"max=200"`
	Notes          *string       `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ApplyTo copies the writable fields onto doc. Identity and audit fields are left alone.
func (in DocumentInput) ApplyTo(doc *StatutoryDocument) {
	doc.Type = in.Type
	doc.Title = in.Title
	doc.Authority = in.Authority
	doc.Reference = in.Reference
	doc.RegisteredDate = in.RegisteredDate
	doc.IssuedDate = in.IssuedDate
	doc.ExpiresDate = in.ExpiresDate
	doc.Fees = in.Fees
	doc.PaymentStatus = in.PaymentStatus
	doc.StationID = in.StationID
	doc.StationName = in.StationName
	doc.Assignee = in.Assignee
	doc.Notes = in.Notes
}

// InputFromDocument rebuilds the writable payload of an existing document.
func InputFromDocument(doc StatutoryDocument) DocumentInput {
	return DocumentInput{
		Type:           doc.Type,
		Title:          doc.Title,
		Authority:      doc.Authority,
		Reference:      doc.Reference,
		RegisteredDate: doc.RegisteredDate,
		IssuedDate:     doc.IssuedDate,
		ExpiresDate:    doc.ExpiresDate,
		Fees:           doc.Fees,
		PaymentStatus:  doc.PaymentStatus,
		StationID:      doc.StationID,
		StationName:    doc.StationName,
		Assignee:       doc.Assignee,
		Notes:          doc.Notes,
	}
}

// RenewDocumentInput extends a document to a new expiry against a renewal fee.
type RenewDocumentInput struct {
	NewExpiresDate Date    `json:"newExpiresDate"`
	RenewalFees    float64 `json:"renewalFees" validate:"gte=0"`
	Notes          *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}
