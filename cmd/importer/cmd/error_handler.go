package cmd

import (
	"fmt"
	"os"
	"strings"

	"parking-report-importer/pkg/errors"
	"parking-report-importer/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints a user-friendly message for err and returns the
// process exit code. Used by main after Execute fails.
func HandleError(err error) int {
	return NewCLIErrorHandler().HandleError(err)
}

// HandleError handles errors and provides user-friendly messages
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if importerErr, ok := errors.AsImporterError(err); ok {
		return h.handleImporterError(importerErr)
	}

	return h.handleGenericError(err)
}

// handleImporterError handles ImporterError with detailed context
func (h *CLIErrorHandler) handleImporterError(err *errors.ImporterError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles non-ImporterError types
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory") {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if os.IsPermission(err) || strings.Contains(err.Error(), "permission denied") {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if h.verbose {
		fmt.Fprintf(os.Stderr, "\nFor more details, check the logs or run with --verbose flag\n")
	}

	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check if the file exists and is readable
• Verify the input directory is correct
• Ensure you have proper permissions to access the file`

	case errors.CategoryParse:
		return `Parse error help:
• Verify the workbook has the expected report sheet
• Check that the sheet follows the merchant report layout
• Open the file in a spreadsheet application to inspect it
• Use 'parking-importer process --help' for layout options`

	case errors.CategoryValidation:
		return `Validation error help:
• Check that amounts are decimal numbers without currency symbols
• Verify dates use the DD.MM.YYYY report format
• Ensure group header rows precede the service rows`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify DATABASE_URL is set for database commands
• Use 'parking-importer process --help' to see all available options
• Try running with default settings first`

	case errors.CategoryStorage:
		return `Storage error help:
• Verify the database is reachable from this host
• Check DATABASE_URL credentials and database name
• Run 'parking-importer migrate' if the schema is missing
• Failed files remain in the error directory for a retry`

	default:
		return `For more help:
• Use 'parking-importer --help' for general help
• Use 'parking-importer process --help' for command-specific help
• Check the documentation for detailed examples`
	}
}
