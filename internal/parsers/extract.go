package parsers

import (
	"regexp"
	"strings"

	"parking-report-importer/pkg/logger"
)

// UnknownProvider is the sentinel returned when no filename convention
// matches. Files tagged unknown are still processed.
const UnknownProvider = "unknown"

var (
	// Primary convention: ..._mParking_<provider>_<digits>__<digits>_...
	mparkingPattern = regexp.MustCompile(`_mParking_(.+?)_\d+__\d+_`)

	// Secondary convention: Servis__MicropaymentMerchantReport_<tokens>__<digits>_...
	// where the provider is the third-and-fourth-to-last underscore tokens.
	merchantReportPattern = regexp.MustCompile(`Servis__MicropaymentMerchantReport_(.+?)__\d+_`)

	digitRunPattern = regexp.MustCompile(`\d+`)
)

// ExtractProvider derives a provider display name from a report filename.
// It tries the mParking convention first, then the longer merchant report
// convention, and falls back to the sentinel "unknown" with a logged
// warning. It never fails.
func ExtractProvider(filename string) string {
	if m := mparkingPattern.FindStringSubmatch(filename); m != nil {
		return strings.ReplaceAll(m[1], "_", " ")
	}

	if m := merchantReportPattern.FindStringSubmatch(filename); m != nil {
		parts := strings.Split(m[1], "_")
		if len(parts) >= 3 {
			return strings.Join(parts[len(parts)-3:len(parts)-1], " ")
		}
	}

	logger.WithComponent("extract").
		WithField("filename", filename).
		Warn("Could not extract provider from filename")
	return UnknownProvider
}

// ExtractServiceCode scans a free-text service label left-to-right for the
// first run of exactly four consecutive digits and returns it. Labels
// without such a run are returned unchanged, so callers always get a
// non-empty code for a non-empty label.
//
// Distinct labels sharing the same 4-digit run collapse to the same code.
// That collapsing is the intended dedup key for service entities; the
// original label is kept on every record so it stays reversible.
func ExtractServiceCode(label string) string {
	for _, run := range digitRunPattern.FindAllString(label, -1) {
		if len(run) == 4 {
			return run
		}
	}
	return label
}
