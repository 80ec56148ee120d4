package parsers

import (
	"regexp"
	"strings"
	"time"

	"parking-report-importer/pkg/logger"

	"github.com/shopspring/decimal"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ToNumber coerces a heterogeneous cell value into a decimal. Thousands
// separators are stripped before parsing. A failed parse yields an invalid
// NullDecimal with a logged warning; it never fails hard. Callers must
// treat the invalid result as "absent", not zero.
func ToNumber(value string) decimal.NullDecimal {
	cleaned := strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if cleaned == "" {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		logger.WithComponent("normalize").
			WithField("value", value).
			Warnf("Could not convert %q to number", value)
		return decimal.NullDecimal{}
	}

	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// CleanDateToken removes the noise the report export leaves inside date
// header cells: internal whitespace runs (including line breaks from cell
// wrapping), stray quotes, and a trailing period. It does not validate
// calendar correctness; that happens in ToCanonicalDate.
func CleanDateToken(value string) string {
	cleaned := strings.TrimSpace(value)
	cleaned = whitespaceRun.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, `"`, "")
	cleaned = strings.TrimSuffix(cleaned, ".")
	return cleaned
}

// ToCanonicalDate converts a cleaned DD.MM.YYYY token into a calendar date.
// The token must be exactly 10 characters with three dot-separated
// components; anything else yields nil with a logged warning.
func ToCanonicalDate(token string) *time.Time {
	if len(token) != 10 {
		return nil
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}

	reversed := parts[2] + "-" + parts[1] + "-" + parts[0]
	t, err := time.Parse("2006-01-02", reversed)
	if err != nil {
		logger.WithComponent("normalize").
			WithField("token", token).
			Warnf("Could not convert %q to date", token)
		return nil
	}

	return &t
}
