// Package parsers reconstructs normalized parking transaction records from
// the operator's micropayment merchant report workbooks.
//
// The report layout is irregular: a single sheet mixes a header row, blank
// spacer rows, billing-group marker rows (prepaid/postpaid/total), provider
// subtotal rows, and paired service rows where a label row carrying the
// per-date quantities is immediately followed by a row carrying the
// per-date amounts. The ReportParser walks that layout as a small state
// machine whose only state is the current billing group.
//
// The walk is deterministic and free of I/O; it can be exercised on
// synthetic grids. Loading a workbook into a grid is the separate concern
// of LoadGrid.
package parsers

import (
	"strings"
	"time"

	"parking-report-importer/internal/models"
	"parking-report-importer/pkg/errors"
	"parking-report-importer/pkg/logger"
)

// ReportParser turns a report grid into normalized parking records.
type ReportParser struct {
	config *ReportParserConfig
	logger logger.Logger
}

// NewReportParser creates a ReportParser with the given layout configuration
func NewReportParser(config *ReportParserConfig) (*ReportParser, error) {
	if config == nil {
		config = DefaultReportParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report_parser", config, err)
	}

	return &ReportParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("report_parser"),
	}, nil
}

// SheetIndex returns the zero-based workbook sheet index the parser expects
func (p *ReportParser) SheetIndex() int {
	return p.config.SheetIndex
}

// ParseStats holds statistics about one grid walk
type ParseStats struct {
	RowsWalked       int
	LabelRows        int
	RecordsEmitted   int
	RecordsDiscarded int
}

// parseContext is the per-file state of the row walk. The current billing
// group is the whole state machine: a group marker row applies to every
// following label row until the next marker.
type parseContext struct {
	group   models.BillingGroup
	dates   []*time.Time
	records []models.ParkingRecord
	stats   *ParseStats
}

// ParseGrid walks the report grid and returns one record per (service,
// date) pair that carries a strictly positive quantity while the current
// billing group is prepaid. Postpaid and total groups are walked but their
// records are discarded: only prepaid revenue is tracked downstream.
//
// source is used for log and error context only.
func (p *ReportParser) ParseGrid(source, providerName string, rows [][]string) ([]models.ParkingRecord, *ParseStats, error) {
	if len(rows) == 0 {
		return nil, nil, errors.ParseError(errors.CodeEmptySheet, source, 0, "", nil)
	}

	header := trimCells(rows[0])
	dateCount := p.dateColumnCount(header)
	if dateCount <= 0 {
		p.logger.WithField("source", source).Warn("Report header contains no date columns")
		return nil, &ParseStats{RowsWalked: len(rows)}, nil
	}

	ctx := &parseContext{
		group: models.GroupPrepaid,
		dates: make([]*time.Time, dateCount),
		stats: &ParseStats{},
	}
	for j := 0; j < dateCount; j++ {
		ctx.dates[j] = ToCanonicalDate(CleanDateToken(header[p.config.DateColumnStart+j]))
	}

	i := 1
	for i < len(rows) {
		row := trimCells(rows[i])
		ctx.stats.RowsWalked++

		switch {
		case isBlank(row):
			i++

		case strings.Contains(strings.ToLower(cell(row, 1)), "total"):
			// A provider's own subtotal line must never be parsed as a
			// service row.
			p.logger.WithField("row", i).Debug("Skipping subtotal row")
			i++

		case i == 1 && p.isTitleRow(cell(row, 0)):
			i++

		default:
			if group, ok := p.matchGroup(cell(row, 0)); ok {
				ctx.group = group
				i++
				continue
			}

			if cell(row, 0) == "" {
				i++
				continue
			}

			// Label row: this row carries the label, the nominal price, and
			// the date-aligned quantities; the next physical row carries the
			// date-aligned amounts. A label row always consumes two rows,
			// even when the amount row is missing.
			var amountRow []string
			if i+1 < len(rows) {
				amountRow = trimCells(rows[i+1])
			}
			p.parseLabelRow(ctx, providerName, row, amountRow, dateCount)
			i += 2
		}
	}

	p.logger.WithFields(logger.Fields{
		"source":    source,
		"provider":  providerName,
		"label_rows": ctx.stats.LabelRows,
		"emitted":   ctx.stats.RecordsEmitted,
		"discarded": ctx.stats.RecordsDiscarded,
	}).Debug("Finished grid walk")

	return ctx.records, ctx.stats, nil
}

// parseLabelRow emits one record per date column whose quantity is present
// and strictly positive, while the current group is prepaid.
func (p *ReportParser) parseLabelRow(ctx *parseContext, providerName string, labelRow, amountRow []string, dateCount int) {
	ctx.stats.LabelRows++

	label := cell(labelRow, 0)
	price := ToNumber(cell(labelRow, 1))

	for j := 0; j < dateCount; j++ {
		col := p.config.DateColumnStart + j

		quantity := ToNumber(cell(labelRow, col))
		amount := ToNumber(cell(amountRow, col))

		if !quantity.Valid || !quantity.Decimal.IsPositive() {
			continue
		}

		if ctx.group != models.GroupPrepaid {
			ctx.stats.RecordsDiscarded++
			continue
		}

		ctx.records = append(ctx.records, models.ParkingRecord{
			ProviderName:    providerName,
			ServiceLabel:    label,
			ServiceCode:     ExtractServiceCode(label),
			BillingGroup:    ctx.group,
			Price:           price,
			TransactionDate: ctx.dates[j],
			Quantity:        quantity.Decimal,
			Amount:          amount,
		})
		ctx.stats.RecordsEmitted++
	}
}

// dateColumnCount derives the width of the date series from the header,
// excluding a trailing TOTAL column when present.
func (p *ReportParser) dateColumnCount(header []string) int {
	count := len(header) - p.config.DateColumnStart
	if count > 0 && p.hasTotalColumn(header) {
		count--
	}
	return count
}

func (p *ReportParser) hasTotalColumn(header []string) bool {
	last := header[len(header)-1]
	return strings.EqualFold(last, p.config.TotalColumnMarker)
}

func (p *ReportParser) isTitleRow(first string) bool {
	lowered := strings.ToLower(first)
	for _, marker := range p.config.TitleMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// matchGroup checks the first cell against the group keywords in configured
// order; the first substring match wins.
func (p *ReportParser) matchGroup(first string) (models.BillingGroup, bool) {
	lowered := strings.ToLower(first)
	for _, kw := range p.config.GroupKeywords {
		if strings.Contains(lowered, kw) {
			group, err := models.ParseBillingGroup(kw)
			if err != nil {
				return "", false
			}
			return group, true
		}
	}
	return "", false
}

// cell returns the trimmed cell at idx, or "" when the row is too short.
// Report rows are ragged once trailing blanks are dropped by the reader.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func trimCells(row []string) []string {
	trimmed := make([]string, len(row))
	for i, c := range row {
		trimmed[i] = strings.TrimSpace(c)
	}
	return trimmed
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
