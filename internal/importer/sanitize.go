package importer

import (
	"fmt"

	"parking-report-importer/internal/models"

	"github.com/shopspring/decimal"
)

// SanitizeStats summarizes the final validation pass before persistence.
type SanitizeStats struct {
	Input             int `json:"input"`
	Kept              int `json:"kept"`
	DroppedNoDate     int `json:"dropped_no_date"`
	DroppedNonPrepaid int `json:"dropped_non_prepaid"`
	DroppedNoQuantity int `json:"dropped_no_quantity"`
}

// String returns a human-readable summary
func (s *SanitizeStats) String() string {
	return fmt.Sprintf("sanitized %d records: %d kept, %d without date, %d non-prepaid, %d without quantity",
		s.Input, s.Kept, s.DroppedNoDate, s.DroppedNonPrepaid, s.DroppedNoQuantity)
}

// SanitizeRecords re-validates the combined record set before it is handed
// to the upsert engine. Absent price and amount values are substituted with
// zero at this boundary (the store persists numbers, not nulls), a missing
// billing group falls back to prepaid, and only prepaid records with a
// non-nil date and positive quantity survive. Nothing is dropped without a
// counter.
func SanitizeRecords(records []models.ParkingRecord) ([]models.ParkingRecord, *SanitizeStats) {
	stats := &SanitizeStats{Input: len(records)}
	kept := make([]models.ParkingRecord, 0, len(records))

	for _, rec := range records {
		if !rec.BillingGroup.IsValid() {
			rec.BillingGroup = models.GroupPrepaid
		}

		if !rec.Price.Valid {
			rec.Price = models.NewNullDecimal(decimal.Zero)
		}
		if !rec.Amount.Valid {
			rec.Amount = models.NewNullDecimal(decimal.Zero)
		}

		switch {
		case rec.BillingGroup != models.GroupPrepaid:
			stats.DroppedNonPrepaid++
		case rec.TransactionDate == nil:
			stats.DroppedNoDate++
		case !rec.Quantity.IsPositive():
			stats.DroppedNoQuantity++
		default:
			stats.Kept++
			kept = append(kept, rec)
		}
	}

	return kept, stats
}
