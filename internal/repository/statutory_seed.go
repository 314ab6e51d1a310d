package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/noah-isme/station-compliance-api/internal/models"
)

// SeedDataset is the built-in local dataset served while the authority is unreachable and no
// database is configured. Its statistics table is maintained separately from the documents
// and is not recomputed from them.
type SeedDataset struct {
	mu    sync.RWMutex
	docs  map[string][]models.StatutoryDocument
	stats map[string]models.DocumentStatistics
}

// NewSeedDataset returns the dataset preloaded with the demo stations.
func NewSeedDataset() *SeedDataset {
	d := &SeedDataset{
		docs:  make(map[string][]models.StatutoryDocument),
		stats: make(map[string]models.DocumentStatistics),
	}
	for _, doc := range seedDocuments() {
		d.docs[doc.StationID] = append(d.docs[doc.StationID], doc)
	}
	for stationID, stats := range seedStatistics {
		d.stats[stationID] = stats
	}
	return d
}

// ListByStation returns a copy of the station's documents. Unknown stations yield an empty list.
func (d *SeedDataset) ListByStation(_ context.Context, stationID string) ([]models.StatutoryDocument, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	docs := d.docs[stationID]
	out := make([]models.StatutoryDocument, len(docs))
	copy(out, docs)
	return out, nil
}

// StationStatistics returns the static statistics row of the station.
func (d *SeedDataset) StationStatistics(_ context.Context, stationID string) (models.DocumentStatistics, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats[stationID], nil
}

// Stations lists the seeded station ids.
func (d *SeedDataset) Stations() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.docs))
	for id := range d.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns every seeded document, ordered by id.
func (d *SeedDataset) All() []models.StatutoryDocument {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []models.StatutoryDocument
	for _, docs := range d.docs {
		out = append(out, docs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var seedStatistics = map[string]models.DocumentStatistics{
	"ST-001": {TotalDocuments: 8, Compliant: 5, ExpiringSoon: 2, Expired: 1, ComplianceRate: 62.5, TotalFees: 14250, OutstandingFees: 3100},
	"ST-002": {TotalDocuments: 5, Compliant: 3, ExpiringSoon: 1, Expired: 0, UnderReview: 1, ComplianceRate: 60, TotalFees: 8700, OutstandingFees: 950},
}

func seedDocuments() []models.StatutoryDocument {
	doc := func(id int64, station, name string, docType models.DocumentType, title, authority, reference, registered, issued, expires string,
		status models.ComplianceStatus, fees float64, payment models.PaymentStatus, assignee string) models.StatutoryDocument {
		return models.StatutoryDocument{
			ID:             id,
			Type:           docType,
			Title:          title,
			Authority:      authority,
			Reference:      reference,
			RegisteredDate: models.MustDate(registered),
			IssuedDate:     models.MustDate(issued),
			ExpiresDate:    models.MustDate(expires),
			Status:         status,
			Fees:           fees,
			PaymentStatus:  payment,
			StationID:      station,
			StationName:    name,
			Assignee:       assignee,
			CreatedBy:      "System",
			Revision:       1,
		}
	}

	const (
		harbour = "Harbour Road Service Station"
		ridge   = "Ridgeway Fuel Centre"
	)
	return []models.StatutoryDocument{
		doc(1, "ST-001", harbour, models.DocumentTypeFuelRetailLicense, "Petroleum Retail Licence", "Energy Regulatory Commission", "ERC/PRL/2024/0173",
			"2019-03-14", "2024-03-01", "2027-02-28", models.StatusCompliant, 4500, models.PaymentPaid, "Operations Manager"),
		doc(2, "ST-001", harbour, models.DocumentTypeFireSafetyCertificate, "Fire Safety Certificate", "County Fire Department", "CFD/FSC/88412",
			"2019-03-14", "2025-05-10", "2026-05-09", models.StatusCompliant, 800, models.PaymentPending, "Safety Officer"),
		doc(3, "ST-001", harbour, models.DocumentTypeEnvironmentalPermit, "Environmental Impact Licence", "National Environment Authority", "NEA/EIL/2023/5521",
			"2019-06-02", "2023-06-30", "2026-06-29", models.StatusCompliant, 2600, models.PaymentPaid, "HSE Lead"),
		doc(4, "ST-001", harbour, models.DocumentTypeBusinessLicense, "Single Business Permit", "City Council", "CC/SBP/2026/10934",
			"2019-03-14", "2026-01-05", "2026-12-31", models.StatusCompliant, 1800, models.PaymentPaid, "Station Manager"),
		doc(5, "ST-001", harbour, models.DocumentTypeHealthPermit, "Food Handling Permit (Shop)", "Public Health Office", "PHO/FHP/7719",
			"2021-08-20", "2025-08-20", "2026-08-19", models.StatusCompliant, 350, models.PaymentPaid, "Shop Supervisor"),
		doc(6, "ST-001", harbour, models.DocumentTypeInsurancePolicy, "Public Liability Insurance", "Mutual Assurance Ltd", "MAL/PL/552019",
			"2020-01-01", "2025-04-01", "2026-03-31", models.StatusExpired, 2300, models.PaymentOverdue, "Finance Officer"),
		doc(7, "ST-001", harbour, models.DocumentTypeTaxCertificate, "Tax Compliance Certificate", "Revenue Authority", "RA/TCC/2025/44810",
			"2019-03-14", "2025-11-01", "2026-10-31", models.StatusCompliant, 0, models.PaymentPaid, "Finance Officer"),
		doc(8, "ST-001", harbour, models.DocumentTypeEnvironmentalPermit, "Effluent Discharge Permit", "Water Resources Authority", "WRA/EDP/3307",
			"2020-09-09", "2025-09-15", "2026-09-14", models.StatusCompliant, 1900, models.PaymentPending, "HSE Lead"),

		doc(9, "ST-002", ridge, models.DocumentTypeFuelRetailLicense, "Petroleum Retail Licence", "Energy Regulatory Commission", "ERC/PRL/2025/0412",
			"2021-02-11", "2025-02-01", "2028-01-31", models.StatusCompliant, 4500, models.PaymentPaid, "Operations Manager"),
		doc(10, "ST-002", ridge, models.DocumentTypeFireSafetyCertificate, "Fire Safety Certificate", "County Fire Department", "CFD/FSC/90177",
			"2021-02-11", "2025-04-20", "2026-04-19", models.StatusCompliant, 800, models.PaymentPaid, "Safety Officer"),
		doc(11, "ST-002", ridge, models.DocumentTypeBusinessLicense, "Single Business Permit", "City Council", "CC/SBP/2026/11802",
			"2021-02-11", "2026-01-03", "2026-12-31", models.StatusCompliant, 1800, models.PaymentPending, "Station Manager"),
		doc(12, "ST-002", ridge, models.DocumentTypeEnvironmentalPermit, "Environmental Audit Report Approval", "National Environment Authority", "NEA/EAR/2026/0088",
			"2021-05-30", "2026-02-14", "2027-02-13", models.StatusUnderReview, 1250, models.PaymentPaid, "HSE Lead"),
		doc(13, "ST-002", ridge, models.DocumentTypeInsurancePolicy, "Fire and Perils Insurance", "Mutual Assurance Ltd", "MAL/FP/771204",
			"2021-02-11", "2025-07-01", "2026-06-30", models.StatusCompliant, 350, models.PaymentPaid, "Finance Officer"),
	}
}
