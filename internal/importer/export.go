package importer

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"parking-report-importer/internal/models"
	apperrors "parking-report-importer/pkg/errors"
	"parking-report-importer/pkg/logger"
)

// interchangeHeader is the fixed column order of the intermediate CSV the
// importer writes before loading the database.
var interchangeHeader = []string{
	"providerId", "serviceId", "group", "serviceName",
	"price", "date", "quantity", "amount",
}

// utf8BOM keeps non-ASCII provider and service names intact when the file
// is opened in spreadsheet applications.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteInterchangeCSV writes the combined record set to path as a flat
// UTF-8 CSV with a fixed column order. Absent price/amount values are
// written as empty fields.
func WriteInterchangeCSV(path string, records []models.ParkingRecord) error {
	log := logger.GetGlobalLogger().WithComponent("export")

	if len(records) == 0 {
		log.Warn("No data to export")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.FileError(apperrors.CodeDirectoryError, filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return apperrors.FileError(apperrors.CodeFilePermission, path, err)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return apperrors.FileError(apperrors.CodeFilePermission, path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(interchangeHeader); err != nil {
		return apperrors.FileError(apperrors.CodeFilePermission, path, err)
	}

	for _, rec := range records {
		if err := w.Write(interchangeRow(rec)); err != nil {
			return apperrors.FileError(apperrors.CodeFilePermission, path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return apperrors.FileError(apperrors.CodeFilePermission, path, err)
	}

	log.WithFields(logger.Fields{"path": path, "records": len(records)}).Info("Data saved to interchange CSV")
	return nil
}

func interchangeRow(rec models.ParkingRecord) []string {
	return []string{
		rec.ProviderID.String(),
		rec.ServiceID.String(),
		rec.BillingGroup.String(),
		rec.ServiceLabel,
		decimalField(rec.Price.Valid, func() string { return rec.Price.Decimal.String() }),
		rec.DateString(),
		rec.Quantity.String(),
		decimalField(rec.Amount.Valid, func() string { return rec.Amount.Decimal.String() }),
	}
}

func decimalField(valid bool, value func() string) string {
	if !valid {
		return ""
	}
	return value()
}
