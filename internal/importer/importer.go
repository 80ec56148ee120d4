// Package importer orchestrates one import run: discover merchant report
// workbooks, parse each into normalized records, resolve durable entity
// identities, sanitize the combined set, export the interchange CSV, and
// merge the records into storage.
//
// Files are processed sequentially, one fully before the next. A file
// that fails isolates its own output; other files are unaffected. The run
// never aborts on a single file or record, only on configuration errors.
package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"parking-report-importer/internal/models"
	"parking-report-importer/internal/parsers"
	"parking-report-importer/internal/store"
	apperrors "parking-report-importer/pkg/errors"
	"parking-report-importer/pkg/logger"

	"github.com/google/uuid"
)

// ReferenceResolver assigns durable identities to natural keys.
type ReferenceResolver interface {
	ResolveProvider(ctx context.Context, name string) (uuid.UUID, error)
	ResolveService(ctx context.Context, code, label string) (uuid.UUID, error)
	EnsureContractLink(ctx context.Context, providerID uuid.UUID, providerName string, serviceID uuid.UUID) error
}

// UpsertEngine merges sanitized records into storage.
type UpsertEngine interface {
	ImportTransactions(ctx context.Context, records []models.ParkingRecord) (*store.ImportResult, error)
}

// Auditor records free-text audit entries; implementations must never fail
// the run.
type Auditor interface {
	Record(ctx context.Context, entityType, entityID, action, subject, description string)
}

// Config holds configuration for one import run
type Config struct {
	InputDir     string
	ProcessedDir string
	ErrorDir     string
	OutputFile   string
	FilePattern  string
	DryRun       bool
}

// DefaultConfig returns the reference folder layout
func DefaultConfig() *Config {
	return &Config{
		InputDir:     "input",
		ProcessedDir: "processed",
		ErrorDir:     "errors",
		OutputFile:   filepath.Join("data", "parking_output.csv"),
		FilePattern:  DefaultFilePattern,
	}
}

// Validate checks the run configuration
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return apperrors.ConfigurationError(apperrors.CodeMissingConfig, "input_dir", nil, nil)
	}
	if c.FilePattern == "" {
		return apperrors.ConfigurationError(apperrors.CodeMissingConfig, "file_pattern", nil, nil)
	}
	if !c.DryRun && c.OutputFile == "" {
		return apperrors.ConfigurationError(apperrors.CodeMissingConfig, "output_file", nil, nil)
	}
	return nil
}

// FileOutcome records what happened to one report file.
type FileOutcome struct {
	Path     string `json:"path"`
	Provider string `json:"provider"`
	Records  int    `json:"records"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// RunResult is the summary of one import run.
type RunResult struct {
	Files          []FileOutcome       `json:"files"`
	FilesProcessed int                 `json:"files_processed"`
	FilesFailed    int                 `json:"files_failed"`
	RecordsParsed  int                 `json:"records_parsed"`
	Sanitize       *SanitizeStats      `json:"sanitize,omitempty"`
	Import         *store.ImportResult `json:"import,omitempty"`
	OutputFile     string              `json:"output_file,omitempty"`
	Duration       time.Duration       `json:"duration"`
}

// Importer runs the parse/resolve/sanitize/upsert pipeline.
type Importer struct {
	config   *Config
	parser   *parsers.ReportParser
	resolver ReferenceResolver
	engine   UpsertEngine
	audit    Auditor
	logger   logger.Logger
}

// New creates an Importer. resolver, engine, and audit may be nil for a
// dry run, which parses and exports without touching the database.
func New(config *Config, parser *parsers.ReportParser, resolver ReferenceResolver, engine UpsertEngine, audit Auditor) (*Importer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if parser == nil {
		return nil, apperrors.ConfigurationError(apperrors.CodeMissingConfig, "report_parser", nil, nil)
	}
	if !config.DryRun && (resolver == nil || engine == nil) {
		return nil, apperrors.ConfigurationError(apperrors.CodeMissingConfig, "database components", nil, nil)
	}

	return &Importer{
		config:   config,
		parser:   parser,
		resolver: resolver,
		engine:   engine,
		audit:    audit,
		logger:   logger.GetGlobalLogger().WithComponent("importer"),
	}, nil
}

// Run executes one import run and returns its summary. The returned error
// is non-nil only for run-level failures (bad configuration, no usable
// directories); per-file and per-record failures are reported in the
// result.
func (im *Importer) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	if err := EnsureDirs(im.config.InputDir, im.config.ProcessedDir, im.config.ErrorDir); err != nil {
		return nil, err
	}

	files, err := DiscoverReports(im.config.InputDir, im.config.FilePattern)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		im.logger.WithField("input_dir", im.config.InputDir).Info("No report files found")
		result.Duration = time.Since(start)
		return result, nil
	}

	im.logger.Infof("Found %d report files to process", len(files))

	var combined []models.ParkingRecord
	var processed []string

	for _, path := range files {
		outcome := FileOutcome{Path: path}

		records, provider, err := im.processFile(ctx, path)
		outcome.Provider = provider
		if err != nil {
			outcome.Err = err
			outcome.Error = err.Error()
			result.FilesFailed++
			result.Files = append(result.Files, outcome)

			im.logger.WithError(err).WithField("file", path).Error("Failed to process file")
			im.auditNote(ctx, filepath.Base(path),
				fmt.Sprintf("Failed to process file: %s", filepath.Base(path)), err.Error())
			if !im.config.DryRun {
				MoveFile(path, im.config.ErrorDir)
			}
			continue
		}

		outcome.Records = len(records)
		result.FilesProcessed++
		result.RecordsParsed += len(records)
		result.Files = append(result.Files, outcome)
		combined = append(combined, records...)
		processed = append(processed, path)

		im.auditNote(ctx, filepath.Base(path),
			fmt.Sprintf("Successfully processed file: %s", filepath.Base(path)),
			fmt.Sprintf("Extracted %d prepaid parking transaction records", len(records)))
	}

	sanitized, sanitizeStats := SanitizeRecords(combined)
	result.Sanitize = sanitizeStats
	im.logger.Info(sanitizeStats.String())

	if len(sanitized) > 0 && im.config.OutputFile != "" {
		if err := WriteInterchangeCSV(im.config.OutputFile, sanitized); err != nil {
			im.logger.WithError(err).Error("Failed to write interchange CSV")
		} else {
			result.OutputFile = im.config.OutputFile
		}
	}

	if im.config.DryRun {
		im.logger.Info("Dry run: skipping database import")
		result.Duration = time.Since(start)
		return result, nil
	}

	importResult, err := im.engine.ImportTransactions(ctx, sanitized)
	result.Import = importResult
	if err != nil {
		// Run-level import failure: keep the files for a retry.
		im.logger.WithError(err).Error("Import failed")
		for _, path := range processed {
			MoveFile(path, im.config.ErrorDir)
		}
		result.Duration = time.Since(start)
		return result, err
	}

	for _, path := range processed {
		MoveFile(path, im.config.ProcessedDir)
	}

	im.auditNote(ctx, "bulk_import",
		"Prepaid parking transactions import completed",
		fmt.Sprintf("Imported %d new prepaid records, updated %d records, %d errors",
			importResult.Inserted, importResult.Updated, importResult.Errored))

	result.Duration = time.Since(start)
	return result, nil
}

// processFile parses one workbook and resolves its entity identities.
// Returns the extracted provider name even on failure, for reporting.
func (im *Importer) processFile(ctx context.Context, path string) ([]models.ParkingRecord, string, error) {
	provider := parsers.ExtractProvider(filepath.Base(path))
	log := im.logger.WithFields(logger.Fields{"file": filepath.Base(path), "provider": provider})
	log.Info("Processing report")

	rows, err := parsers.LoadGrid(path, im.parser.SheetIndex())
	if err != nil {
		return nil, provider, err
	}

	records, stats, err := im.parser.ParseGrid(path, provider, rows)
	if err != nil {
		return nil, provider, err
	}
	log.Infof("Parsed %d rows: %d prepaid records emitted", stats.RowsWalked, stats.RecordsEmitted)

	if im.config.DryRun || im.resolver == nil {
		return records, provider, nil
	}

	if err := im.resolveRecords(ctx, provider, records); err != nil {
		return nil, provider, err
	}

	return records, provider, nil
}

// resolveRecords assigns provider and service identities to every record
// of one file and ensures the contract links exist. A resolution failure
// aborts the whole file; its partial output is discarded by the caller.
func (im *Importer) resolveRecords(ctx context.Context, provider string, records []models.ParkingRecord) error {
	if len(records) == 0 {
		return nil
	}

	providerID, err := im.resolver.ResolveProvider(ctx, provider)
	if err != nil {
		return err
	}

	serviceIDs := make(map[string]uuid.UUID)
	for i := range records {
		rec := &records[i]
		rec.ProviderID = providerID

		id, ok := serviceIDs[rec.ServiceCode]
		if !ok {
			id, err = im.resolver.ResolveService(ctx, rec.ServiceCode, rec.ServiceLabel)
			if err != nil {
				return err
			}
			if err := im.resolver.EnsureContractLink(ctx, providerID, provider, id); err != nil {
				return err
			}
			serviceIDs[rec.ServiceCode] = id
		}
		rec.ServiceID = id
	}

	return nil
}

func (im *Importer) auditNote(ctx context.Context, entityID, subject, description string) {
	if im.audit == nil {
		return
	}
	im.audit.Record(ctx, store.AuditEntityImport, entityID, store.AuditActionNote, subject, description)
}
