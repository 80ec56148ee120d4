package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"parking-report-importer/cmd/importer/config"
	"parking-report-importer/internal/importer"
	"parking-report-importer/internal/parsers"
	"parking-report-importer/internal/reporter"
	"parking-report-importer/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the process command
var (
	inputDir     string
	processedDir string
	errorDir     string
	outputFile   string
	filePattern  string
	sheetIndex   int
	batchSize    int
	outputFormat string
	dryRun       bool
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process merchant report files from the input directory",
	Long: `Process scans the input directory for micropayment merchant report
workbooks, extracts prepaid parking transactions from each, and merges
them into the database. Successfully processed files are moved to the
processed directory, failed files to the error directory.

This command requires DATABASE_URL in the environment unless --dry-run
is set.

Examples:
  # Process reports from the default folders
  parking-importer process

  # Custom folders and output file
  parking-importer process --input-dir /srv/reports/in \
    --processed-dir /srv/reports/done --error-dir /srv/reports/failed \
    --output-file /srv/reports/parking_output.csv

  # Parse and export only, no database writes or file moves
  parking-importer process --dry-run

  # Machine-readable run summary
  parking-importer process --output-format json`,

	PreRunE: validateProcessFlags,
	RunE:    runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	// Folder layout flags
	processCmd.Flags().StringVarP(&inputDir, "input-dir", "i", "input", "directory scanned for report files")
	processCmd.Flags().StringVar(&processedDir, "processed-dir", "processed", "destination for successfully imported files")
	processCmd.Flags().StringVar(&errorDir, "error-dir", "errors", "destination for failed files")
	processCmd.Flags().StringVarP(&outputFile, "output-file", "o", filepath.Join("data", "parking_output.csv"), "interchange CSV output path")

	// Parsing flags
	processCmd.Flags().StringVar(&filePattern, "file-pattern", importer.DefaultFilePattern, "glob matched against file names in the input directory")
	processCmd.Flags().IntVar(&sheetIndex, "sheet-index", -1, "zero-based workbook sheet index (default: report layout)")

	// Import flags
	processCmd.Flags().IntVar(&batchSize, "batch-size", store.DefaultBatchSize, "records per database transaction")
	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and export without touching the database")

	// Output flags
	processCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "run summary format: console, json")

	// Bind flags to viper
	viper.BindPFlag("input-dir", processCmd.Flags().Lookup("input-dir"))
	viper.BindPFlag("processed-dir", processCmd.Flags().Lookup("processed-dir"))
	viper.BindPFlag("error-dir", processCmd.Flags().Lookup("error-dir"))
	viper.BindPFlag("output-file", processCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("file-pattern", processCmd.Flags().Lookup("file-pattern"))
	viper.BindPFlag("sheet-index", processCmd.Flags().Lookup("sheet-index"))
	viper.BindPFlag("batch-size", processCmd.Flags().Lookup("batch-size"))
	viper.BindPFlag("dry-run", processCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("output-format", processCmd.Flags().Lookup("output-format"))
}

func validateProcessFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	inputDir = viper.GetString("input-dir")
	processedDir = viper.GetString("processed-dir")
	errorDir = viper.GetString("error-dir")
	outputFile = viper.GetString("output-file")
	filePattern = viper.GetString("file-pattern")
	sheetIndex = viper.GetInt("sheet-index")
	batchSize = viper.GetInt("batch-size")
	dryRun = viper.GetBool("dry-run")
	outputFormat = viper.GetString("output-format")

	if inputDir == "" {
		return fmt.Errorf("input-dir is required")
	}
	if filePattern == "" {
		return fmt.Errorf("file-pattern cannot be empty")
	}
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be positive, got %d", batchSize)
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json", outputFormat)
	}

	if info, err := os.Stat(inputDir); err == nil && !info.IsDir() {
		return fmt.Errorf("input-dir is not a directory: %s", inputDir)
	}

	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting import run...\n")
		fmt.Fprintf(os.Stderr, "Input directory: %s\n", inputDir)
		fmt.Fprintf(os.Stderr, "File pattern: %s\n", filePattern)
		if dryRun {
			fmt.Fprintf(os.Stderr, "Dry run: database writes and file moves disabled\n")
		}
	}

	opts := &config.RunOptions{
		InputDir:     inputDir,
		ProcessedDir: processedDir,
		ErrorDir:     errorDir,
		OutputFile:   outputFile,
		FilePattern:  filePattern,
		SheetIndex:   sheetIndex,
		BatchSize:    batchSize,
		OutputFormat: outputFormat,
		DryRun:       dryRun,
	}

	parser, err := parsers.NewReportParser(config.CreateParserConfig(opts))
	if err != nil {
		return fmt.Errorf("failed to create report parser: %w", err)
	}

	var (
		resolver importer.ReferenceResolver
		engine   importer.UpsertEngine
		audit    importer.Auditor
	)

	if !dryRun {
		databaseURL, err := config.DatabaseURL()
		if err != nil {
			return err
		}

		db, err := store.Connect(ctx, databaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		resolver = store.NewResolver(db.Pool())
		audit = store.NewAuditSink(db.Pool())

		engine, err = store.NewEngine(db.Pool(), config.CreateImportConfig(opts))
		if err != nil {
			return err
		}
	}

	run, err := importer.New(config.CreateImporterConfig(opts), parser, resolver, engine, audit)
	if err != nil {
		return err
	}

	result, runErr := run.Run(ctx)

	if result != nil {
		generator, err := reporter.NewReportGenerator(config.CreateReportConfig(opts))
		if err != nil {
			return fmt.Errorf("failed to create report generator: %w", err)
		}
		if err := generator.GenerateReport(result, os.Stdout); err != nil {
			return fmt.Errorf("failed to render run summary: %w", err)
		}
	}

	return runErr
}
