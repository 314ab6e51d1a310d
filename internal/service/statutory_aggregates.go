package service

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/station-compliance-api/internal/models"
)

const (
	deadlineHorizonDays = 90
	deadlineLimit       = 10
	monthlyTrendMonths  = 6
)

// ComputeStatistics summarises docs. Used when the authority omits statistics.
func ComputeStatistics(docs []models.StatutoryDocument) models.DocumentStatistics {
	stats := models.DocumentStatistics{TotalDocuments: len(docs)}
	for _, doc := range docs {
		switch doc.Status {
		case models.StatusCompliant:
			stats.Compliant++
		case models.StatusExpiringSoon:
			stats.ExpiringSoon++
		case models.StatusExpired:
			stats.Expired++
		case models.StatusUnderReview:
			stats.UnderReview++
		}
		stats.TotalFees += doc.Fees
		if doc.PaymentStatus != models.PaymentPaid {
			stats.OutstandingFees += doc.Fees
		}
	}
	stats.ComplianceRate = percentage(stats.Compliant, stats.TotalDocuments)
	return stats
}

// ComputeDistribution counts documents per type, in catalogue order, skipping empty types.
func ComputeDistribution(docs []models.StatutoryDocument) []models.TypeDistribution {
	counts := make(map[models.DocumentType]int, len(models.DocumentTypes))
	for _, doc := range docs {
		counts[doc.Type]++
	}
	result := make([]models.TypeDistribution, 0, len(counts))
	for _, docType := range models.DocumentTypes {
		if counts[docType] == 0 {
			continue
		}
		result = append(result, models.TypeDistribution{
			Type:       docType,
			Count:      counts[docType],
			Percentage: percentage(counts[docType], len(docs)),
		})
	}
	return result
}

// ComputeDeadlines lists documents expiring within the horizon (overdue first), soonest first.
func ComputeDeadlines(docs []models.StatutoryDocument) []models.Deadline {
	result := make([]models.Deadline, 0)
	for _, doc := range docs {
		if doc.Status == models.StatusUnderReview || doc.DaysRemaining > deadlineHorizonDays {
			continue
		}
		result = append(result, models.Deadline{
			DocumentID:    doc.ID,
			Title:         doc.Title,
			Type:          doc.Type,
			ExpiresDate:   doc.ExpiresDate,
			DaysRemaining: doc.DaysRemaining,
			Status:        doc.Status,
			Assignee:      doc.Assignee,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DaysRemaining < result[j].DaysRemaining
	})
	if len(result) > deadlineLimit {
		result = result[:deadlineLimit]
	}
	return result
}

// ComputeMonthly classifies every document as of each month end over the trailing months.
func ComputeMonthly(docs []models.StatutoryDocument, today models.Date) []models.MonthlyCompliance {
	result := make([]models.MonthlyCompliance, 0, monthlyTrendMonths)
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := monthlyTrendMonths - 1; i >= 0; i-- {
		monthStart := first.AddDate(0, -i, 0)
		monthEnd := models.NewDate(monthStart.AddDate(0, 1, -1))
		point := models.MonthlyCompliance{Month: monthStart.Format("2006-01")}
		total := 0
		for _, doc := range docs {
			if doc.ExpiresDate.IsZero() || (!doc.IssuedDate.IsZero() && doc.IssuedDate.After(monthEnd.Time)) {
				continue
			}
			total++
			switch StatusFor(daysBetween(monthEnd, doc.ExpiresDate)) {
			case models.StatusCompliant:
				point.Compliant++
			case models.StatusExpiringSoon:
				point.ExpiringSoon++
			default:
				point.Expired++
			}
		}
		point.ComplianceRate = percentage(point.Compliant, total)
		result = append(result, point)
	}
	return result
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
