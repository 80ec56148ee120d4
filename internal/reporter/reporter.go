// Package reporter renders import run summaries.
//
// Supported output formats:
//   - Console: Human-readable tabular output for terminal display
//   - JSON: Structured data format for programmatic consumption
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"parking-report-importer/internal/importer"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeFileOutcomes  bool `json:"include_file_outcomes"`
	IncludeSanitizeStats bool `json:"include_sanitize_stats"`
	IncludeFailures      bool `json:"include_failures"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:               FormatConsole,
		IncludeFileOutcomes:  true,
		IncludeSanitizeStats: true,
		IncludeFailures:      true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// ReportGenerator generates import run reports
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders a run summary to the provided writer
func (rg *ReportGenerator) GenerateReport(result *importer.RunResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("run result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport renders a human-readable summary
func (rg *ReportGenerator) generateConsoleReport(result *importer.RunResult, writer io.Writer) error {
	fmt.Fprintf(writer, "PARKING REPORT IMPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(writer, "Processing Duration: %v\n\n", result.Duration)

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "%-25s %d\n", "Files Processed:", result.FilesProcessed)
	fmt.Fprintf(writer, "%-25s %d\n", "Files Failed:", result.FilesFailed)
	fmt.Fprintf(writer, "%-25s %d\n", "Records Parsed:", result.RecordsParsed)
	if result.OutputFile != "" {
		fmt.Fprintf(writer, "%-25s %s\n", "Output File:", result.OutputFile)
	}
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeFileOutcomes && len(result.Files) > 0 {
		fmt.Fprintf(writer, "=== FILES ===\n")
		for _, file := range result.Files {
			status := "OK"
			if file.Err != nil {
				status = "FAILED"
			}
			fmt.Fprintf(writer, "%-8s %-20s %4d records  %s\n", status, file.Provider, file.Records, file.Path)
			if file.Err != nil {
				fmt.Fprintf(writer, "         %s\n", file.Error)
			}
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeSanitizeStats && result.Sanitize != nil {
		fmt.Fprintf(writer, "=== SANITIZATION ===\n")
		fmt.Fprintf(writer, "%-25s %d\n", "Input Records:", result.Sanitize.Input)
		fmt.Fprintf(writer, "%-25s %d\n", "Kept:", result.Sanitize.Kept)
		fmt.Fprintf(writer, "%-25s %d\n", "Dropped (no date):", result.Sanitize.DroppedNoDate)
		fmt.Fprintf(writer, "%-25s %d\n", "Dropped (non-prepaid):", result.Sanitize.DroppedNonPrepaid)
		fmt.Fprintf(writer, "%-25s %d\n", "Dropped (no quantity):", result.Sanitize.DroppedNoQuantity)
		fmt.Fprintf(writer, "\n")
	}

	if result.Import != nil {
		fmt.Fprintf(writer, "=== DATABASE IMPORT ===\n")
		fmt.Fprintf(writer, "%-25s %d\n", "Inserted:", result.Import.Inserted)
		fmt.Fprintf(writer, "%-25s %d\n", "Updated:", result.Import.Updated)
		fmt.Fprintf(writer, "%-25s %d\n", "Errored:", result.Import.Errored)

		if rg.config.IncludeFailures && len(result.Import.Failures) > 0 {
			fmt.Fprintf(writer, "\n=== FAILED RECORDS ===\n")
			for _, failure := range result.Import.Failures {
				fmt.Fprintf(writer, "%s [%s]: %s\n", failure.Record.String(), failure.Reason, failure.Err)
			}
		}
		fmt.Fprintf(writer, "\n")
	}

	return nil
}

// generateJSONReport renders a structured JSON summary
func (rg *ReportGenerator) generateJSONReport(result *importer.RunResult, writer io.Writer) error {
	out := *result
	if !rg.config.IncludeFileOutcomes {
		out.Files = nil
	}
	if !rg.config.IncludeSanitizeStats {
		out.Sanitize = nil
	}
	if !rg.config.IncludeFailures && out.Import != nil {
		filtered := *out.Import
		filtered.Failures = nil
		out.Import = &filtered
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(&out)
}
