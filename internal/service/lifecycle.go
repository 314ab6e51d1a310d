package service

import (
	"fmt"
	"math"
	"time"

	"github.com/noah-isme/station-compliance-api/internal/models"
	appErrors "github.com/noah-isme/station-compliance-api/pkg/errors"
)

// ExpiringSoonWindow is the inclusive number of days before expiry that counts as ExpiringSoon.
const ExpiringSoonWindow = 30

// InvalidDateError reports a missing or unusable expiry date.
type InvalidDateError struct {
	DocumentID int64
	Field      string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("document %d: invalid %s", e.DocumentID, e.Field)
}

// Unwrap lets callers match appErrors.ErrInvalidDate.
func (e *InvalidDateError) Unwrap() error {
	return appErrors.ErrInvalidDate
}

// LifecycleCalculator derives daysRemaining and status from a document's expiry date.
type LifecycleCalculator struct {
	now      func() time.Time
	location *time.Location
}

// NewLifecycleCalculator builds a calculator evaluating calendar dates in loc (UTC when nil).
func NewLifecycleCalculator(now func() time.Time, loc *time.Location) *LifecycleCalculator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &LifecycleCalculator{now: now, location: loc}
}

// Today returns the current calendar date in the calculator's location.
func (c *LifecycleCalculator) Today() models.Date {
	return models.NewDate(c.now().In(c.location))
}

// DaysRemaining is ceil((expires - today) / 1 day) on calendar dates.
func (c *LifecycleCalculator) DaysRemaining(expires models.Date) (int, error) {
	if expires.IsZero() {
		return 0, &InvalidDateError{Field: "expiresDate"}
	}
	return daysBetween(c.Today(), expires), nil
}

// StatusFor maps a day count onto a compliance band. It never yields UnderReview.
func StatusFor(daysRemaining int) models.ComplianceStatus {
	switch {
	case daysRemaining < 0:
		return models.StatusExpired
	case daysRemaining <= ExpiringSoonWindow:
		return models.StatusExpiringSoon
	default:
		return models.StatusCompliant
	}
}

// Apply recomputes both derived fields of doc.
func (c *LifecycleCalculator) Apply(doc *models.StatutoryDocument) error {
	days, err := c.DaysRemaining(doc.ExpiresDate)
	if err != nil {
		return &InvalidDateError{DocumentID: doc.ID, Field: "expiresDate"}
	}
	doc.DaysRemaining = days
	doc.Status = StatusFor(days)
	return nil
}

// Refresh is Apply that keeps a status of UnderReview assigned by the authority.
func (c *LifecycleCalculator) Refresh(doc *models.StatutoryDocument) error {
	days, err := c.DaysRemaining(doc.ExpiresDate)
	if err != nil {
		return &InvalidDateError{DocumentID: doc.ID, Field: "expiresDate"}
	}
	doc.DaysRemaining = days
	if doc.Status != models.StatusUnderReview {
		doc.Status = StatusFor(days)
	}
	return nil
}

func daysBetween(from, to models.Date) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(b.Sub(a).Hours() / 24))
}
