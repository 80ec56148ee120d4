package parsers

import (
	"fmt"
)

// ReportParserConfig holds configuration for the merchant report layout.
// The layout is fixed by convention: one report sheet per workbook, row 0
// is the header, columns 0..2 carry label/price/unused, date columns start
// at index 3, and an optional trailing column labeled "TOTAL" is excluded
// from the date series.
type ReportParserConfig struct {
	// SheetIndex is the zero-based index of the report sheet in the workbook.
	SheetIndex int

	// DateColumnStart is the first column of the date-indexed series.
	DateColumnStart int

	// TotalColumnMarker marks the optional trailing summary column
	// (matched case-insensitively against the last header cell).
	TotalColumnMarker string

	// TitleMarkers are substrings identifying a report title row at the
	// first data row (matched case-insensitively against the first cell).
	TitleMarkers []string

	// GroupKeywords are the billing-group markers, checked in order against
	// the first cell; the first substring match wins.
	GroupKeywords []string
}

// DefaultReportParserConfig returns the layout of the operator's
// micropayment merchant report export.
func DefaultReportParserConfig() *ReportParserConfig {
	return &ReportParserConfig{
		SheetIndex:        3,
		DateColumnStart:   3,
		TotalColumnMarker: "TOTAL",
		TitleMarkers:      []string{"servis", "izveštaj"},
		GroupKeywords:     []string{"prepaid", "postpaid", "total"},
	}
}

// Validate checks that the configuration describes a usable layout
func (c *ReportParserConfig) Validate() error {
	if c.SheetIndex < 0 {
		return fmt.Errorf("sheet index cannot be negative")
	}

	if c.DateColumnStart < 1 {
		return fmt.Errorf("date column start must leave room for the label column")
	}

	if c.TotalColumnMarker == "" {
		return fmt.Errorf("total column marker cannot be empty")
	}

	if len(c.GroupKeywords) == 0 {
		return fmt.Errorf("at least one group keyword is required")
	}

	return nil
}
