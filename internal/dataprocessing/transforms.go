package dataprocessing

import (
	"math"
	"regexp"
	"strings"
)

var parenthesised = regexp.MustCompile(`\s*\([^)]*\)`)

// RemoveParentheses drops every parenthesised group together with the
// whitespace before it: "Aluminum (Al)" -> "Aluminum".
func RemoveParentheses(text string) string {
	return parenthesised.ReplaceAllString(text, "")
}

// CanonicalAnalyte turns a sheet header into the lower-case analyte name
// used by the index.
func CanonicalAnalyte(header string) string {
	return strings.ToLower(strings.TrimSpace(RemoveParentheses(header)))
}

// MicroToNano converts µg/m³ to ng/m³, rounded to six decimals.
func MicroToNano(v float64) float64 {
	return math.Round(v*1e3*1e6) / 1e6
}
