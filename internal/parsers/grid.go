package parsers

import (
	"os"

	"parking-report-importer/pkg/errors"
	"parking-report-importer/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// LoadGrid reads the report sheet at the given zero-based index from an
// Excel workbook and returns it as a rectangular-ish grid of cell strings.
// Trailing empty cells are dropped per row by the reader; the parser's cell
// accessor treats missing cells as empty.
func LoadGrid(path string, sheetIndex int) ([][]string, error) {
	log := logger.GetGlobalLogger().WithComponent("grid").WithField("file_path", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		log.WithError(err).Error("Failed to open workbook")

		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close workbook")
		}
	}()

	sheets := f.GetSheetList()
	if sheetIndex >= len(sheets) {
		log.WithFields(logger.Fields{
			"sheet_index": sheetIndex,
			"sheet_count": len(sheets),
		}).Error("Workbook does not contain the report sheet")
		return nil, errors.ParseError(errors.CodeMissingSheet, path, 0, "", nil).
			WithContext("sheet_index", sheetIndex).
			WithContext("sheet_count", len(sheets))
	}

	rows, err := f.GetRows(sheets[sheetIndex])
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	log.WithFields(logger.Fields{
		"sheet": sheets[sheetIndex],
		"rows":  len(rows),
	}).Debug("Loaded report sheet")

	return rows, nil
}
