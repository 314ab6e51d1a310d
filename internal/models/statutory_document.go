package models

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType enumerates the regulatory record categories tracked per station.
type DocumentType string

const (
	DocumentTypeBusinessLicense       DocumentType = "BusinessLicense"
	DocumentTypeEnvironmentalPermit   DocumentType = "EnvironmentalPermit"
	DocumentTypeFireSafetyCertificate DocumentType = "FireSafetyCertificate"
	DocumentTypeFuelRetailLicense     DocumentType = "FuelRetailLicense"
	DocumentTypeHealthPermit          DocumentType = "HealthPermit"
	DocumentTypeInsurancePolicy       DocumentType = "InsurancePolicy"
	DocumentTypeTaxCertificate        DocumentType = "TaxCertificate"
)

// DocumentTypes lists every supported document type in display order.
var DocumentTypes = []DocumentType{
	DocumentTypeBusinessLicense,
	DocumentTypeEnvironmentalPermit,
	DocumentTypeFireSafetyCertificate,
	DocumentTypeFuelRetailLicense,
	DocumentTypeHealthPermit,
	DocumentTypeInsurancePolicy,
	DocumentTypeTaxCertificate,
}

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ComplianceStatus captures the derived compliance state of a document.
type ComplianceStatus string

const (
	StatusCompliant    ComplianceStatus = "Compliant"
	StatusExpiringSoon ComplianceStatus = "ExpiringSoon"
	StatusExpired      ComplianceStatus = "Expired"
	// StatusUnderReview is assigned by the authority and never derived from dates.
	StatusUnderReview ComplianceStatus = "UnderReview"
)

// Valid reports whether s is a known compliance status.
func (s ComplianceStatus) Valid() bool {
	switch s {
	case StatusCompliant, StatusExpiringSoon, StatusExpired, StatusUnderReview:
		return true
	}
	return false
}

// PaymentStatus tracks settlement of the statutory fees.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "Paid"
	PaymentPending PaymentStatus = "Pending"
	PaymentOverdue PaymentStatus = "Overdue"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPaid, PaymentPending, PaymentOverdue:
		return true
	}
	return false
}

// StatutoryDocument is one regulatory record (license, permit, certificate) of a station.
type StatutoryDocument struct {
	ID             int64            `db:"id" json:"id"`
	Type           DocumentType     `db:"type" json:"type"`
	Title          string           `db:"title" json:"title"`
	Authority      string           `db:"authority" json:"authority"`
	Reference      string           `db:"reference" json:"reference"`
	RegisteredDate Date             `db:"registered_date" json:"registeredDate"`
	IssuedDate     Date             `db:"issued_date" json:"issuedDate"`
	ExpiresDate    Date             `db:"expires_date" json:"expiresDate"`
	DaysRemaining  int              `db:"-" json:"daysRemaining"`
	Status         ComplianceStatus `db:"status" json:"status"`
	Fees           float64          `db:"fees" json:"fees"`
	PaymentStatus  PaymentStatus    `db:"payment_status" json:"paymentStatus"`
	StationID      string           `db:"station_id" json:"stationId"`
	StationName    string           `db:"station_name" json:"stationName"`
	Assignee       string           `db:"assignee" json:"assignee"`
	CreatedBy      string           `db:"created_by" json:"createdBy"`
	UpdatedBy      *string          `db:"updated_by" json:"updatedBy,omitempty"`
	UpdatedAt      *time.Time       `db:"updated_at" json:"updatedAt,omitempty"`
	Notes          *string          `db:"notes" json:"notes,omitempty"`
	Revision       int64            `db:"revision" json:"revision"`
	LocalOnly      bool             `db:"-" json:"localOnly,omitempty"`
}

// FilterAll is the wildcard accepted by every enum filter.
const FilterAll = "all"

// DocumentFilters narrows a station's document list. Enum fields accept FilterAll (or empty).
type DocumentFilters struct {
	Status        ComplianceStatus `json:"status" form:"status"`
	DocumentType  DocumentType     `json:"documentType" form:"documentType"`
	PaymentStatus PaymentStatus    `json:"paymentStatus" form:"paymentStatus"`
	Search        string           `json:"search" form:"search"`
}

// Normalize maps empty enum filters to FilterAll and trims the search term.
func (f DocumentFilters) Normalize() DocumentFilters {
	if f.Status == "" {
		f.Status = FilterAll
	}
	if f.DocumentType == "" {
		f.DocumentType = FilterAll
	}
	if f.PaymentStatus == "" {
		f.PaymentStatus = FilterAll
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Matches is the AND-composition of the search, status, type and payment predicates.
func (f DocumentFilters) Matches(doc StatutoryDocument) bool {
	return f.matchesSearch(doc) &&
		matchesEnum(string(f.Status), string(doc.Status)) &&
		matchesEnum(string(f.DocumentType), string(doc.Type)) &&
		matchesEnum(string(f.PaymentStatus), string(doc.PaymentStatus))
}

func (f DocumentFilters) matchesSearch(doc StatutoryDocument) bool {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	for _, field := range []string{doc.Title, doc.Authority, doc.Reference, string(doc.Type)} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func matchesEnum(filter, value string) bool {
	if filter == "" || filter == FilterAll {
		return true
	}
	return filter == value
}

// Apply returns the subset of docs matching the filters, preserving order.
func (f DocumentFilters) Apply(docs []StatutoryDocument) []StatutoryDocument {
	result := make([]StatutoryDocument, 0, len(docs))
	for _, doc := range docs {
		if f.Matches(doc) {
			result = append(result, doc)
		}
	}
	return result
}

// Validate rejects enum filters outside the closed sets.
func (f DocumentFilters) Validate() error {
	f = f.Normalize()
	if f.Status != FilterAll && !f.Status.Valid() {
		return fmt.Errorf("unknown status filter %q", f.Status)
	}
	if f.DocumentType != FilterAll && !f.DocumentType.Valid() {
		return fmt.Errorf("unknown document type filter %q", f.DocumentType)
	}
	if f.PaymentStatus != FilterAll && !f.PaymentStatus.Valid() {
		return fmt.Errorf("unknown payment status filter %q", f.PaymentStatus)
	}
	return nil
}
