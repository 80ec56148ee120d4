package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"parking-report-importer/internal/importer"
	"parking-report-importer/internal/store"
)

func sampleResult() *importer.RunResult {
	return &importer.RunResult{
		Files: []importer.FileOutcome{
			{Path: "input/report_a.xls", Provider: "Grad Beograd", Records: 12},
			{Path: "input/report_b.xls", Provider: "unknown", Err: fmt.Errorf("corrupted"), Error: "corrupted"},
		},
		FilesProcessed: 1,
		FilesFailed:    1,
		RecordsParsed:  12,
		Sanitize: &importer.SanitizeStats{
			Input: 12, Kept: 10, DroppedNoDate: 1, DroppedNoQuantity: 1,
		},
		Import: &store.ImportResult{
			Inserted: 7,
			Updated:  3,
		},
		OutputFile: "data/parking_output.csv",
		Duration:   3 * time.Second,
	}
}

func TestOutputFormatIsValid(t *testing.T) {
	if !FormatConsole.IsValid() || !FormatJSON.IsValid() {
		t.Error("built-in formats should be valid")
	}
	if OutputFormat("xml").IsValid() {
		t.Error("unknown format should be invalid")
	}
}

func TestNewReportGeneratorRejectsBadConfig(t *testing.T) {
	if _, err := NewReportGenerator(&ReportConfig{Format: "xml"}); err == nil {
		t.Error("NewReportGenerator() should reject an unknown format")
	}

	if _, err := NewReportGenerator(nil); err != nil {
		t.Errorf("NewReportGenerator(nil) should use defaults, got %v", err)
	}
}

func TestGenerateConsoleReport(t *testing.T) {
	generator, err := NewReportGenerator(DefaultReportConfig())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleResult(), &buf); err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"PARKING REPORT IMPORT",
		"Files Processed:",
		"Grad Beograd",
		"FAILED",
		"corrupted",
		"Inserted:",
		"data/parking_output.csv",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console report missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateJSONReport(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatJSON

	generator, err := NewReportGenerator(config)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleResult(), &buf); err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}

	var decoded importer.RunResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("JSON report is not valid JSON: %v", err)
	}
	if decoded.FilesProcessed != 1 || decoded.RecordsParsed != 12 {
		t.Errorf("decoded summary = %+v", decoded)
	}
	if decoded.Import == nil || decoded.Import.Inserted != 7 {
		t.Errorf("decoded import result = %+v", decoded.Import)
	}
}

func TestGenerateJSONReportFiltering(t *testing.T) {
	config := &ReportConfig{Format: FormatJSON}

	generator, err := NewReportGenerator(config)
	if err != nil {
		t.Fatal(err)
	}

	result := sampleResult()
	result.Import.Failures = []store.RecordFailure{{Reason: "constraint violation"}}

	var buf bytes.Buffer
	if err := generator.GenerateReport(result, &buf); err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}

	var decoded importer.RunResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Files != nil {
		t.Error("file outcomes should be filtered out")
	}
	if decoded.Sanitize != nil {
		t.Error("sanitize stats should be filtered out")
	}
	if decoded.Import == nil || len(decoded.Import.Failures) != 0 {
		t.Error("failures should be filtered out of the import result")
	}

	// The original result must stay intact.
	if len(result.Import.Failures) != 1 {
		t.Error("filtering must not mutate the caller's result")
	}
}

func TestGenerateReportNilResult(t *testing.T) {
	generator, err := NewReportGenerator(nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(nil, &buf); err == nil {
		t.Error("GenerateReport(nil) should fail")
	}
}
