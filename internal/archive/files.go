package archive

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "napsidx/internal/errors"
)

// LegacyKind is the instrument-file suffix used by the pre-2010 archive,
// which stores one workbook per site and instrument.
type LegacyKind string

const (
	LegacyNearTotal    LegacyKind = "_ICPMS.XLS"
	LegacyWaterSoluble LegacyKind = "_WICPMS.XLS"
	LegacyIons         LegacyKind = "_IC.XLS"
)

// LegacyKinds lists the pre-2010 instrument files in NT, WS, ions order.
func LegacyKinds() []LegacyKind {
	return []LegacyKind{LegacyNearTotal, LegacyWaterSoluble, LegacyIons}
}

// LegacyEraEnd is the first year of the single-workbook layout.
const LegacyEraEnd = 2010

// IsLegacyYear reports whether year uses per-instrument workbooks.
func IsLegacyYear(year int) bool {
	return year < LegacyEraEnd
}

// LegacyFilename returns the pre-2010 instrument workbook name for a site.
func LegacyFilename(siteID int, kind LegacyKind) string {
	return "S" + strconv.Itoa(siteID) + string(kind)
}

// ClassifyLegacy returns the kind of a pre-2010 file name. Only exact
// suffixes count.
func ClassifyLegacy(name string) (LegacyKind, bool) {
	for _, k := range []LegacyKind{LegacyWaterSoluble, LegacyNearTotal, LegacyIons} {
		if strings.HasSuffix(name, string(k)) {
			return k, true
		}
	}
	return "", false
}

// IsRelevantFile reports whether a speciation directory entry carries
// metal or ion data for year: ICPMS.XLS or IC.XLS files before 2010, and
// {year}.xlsx or {year}_EN.xlsx workbooks afterwards.
func IsRelevantFile(name string, year int) bool {
	if IsLegacyYear(year) {
		return strings.HasSuffix(name, "ICPMS.XLS") || strings.HasSuffix(name, "IC.XLS")
	}
	y := strconv.Itoa(year)
	return strings.HasSuffix(name, y+".xlsx") || strings.HasSuffix(name, y+"_EN.xlsx")
}

// SiteIDFromFilename parses the site id between the leading S and the
// first underscore, e.g. S60104_PM25_2012.xlsx -> 60104.
func SiteIDFromFilename(name string) (int, error) {
	rest, ok := strings.CutPrefix(name, "S")
	if !ok {
		return 0, apperrors.NewParsingError(fmt.Sprintf("file name %q does not start with S", name), nil)
	}
	id, _, ok := strings.Cut(rest, "_")
	if !ok {
		return 0, apperrors.NewParsingError(fmt.Sprintf("file name %q has no site separator", name), nil)
	}
	siteID, err := strconv.Atoi(id)
	if err != nil {
		return 0, apperrors.NewParsingError(fmt.Sprintf("file name %q has a non-numeric site id", name), err)
	}
	return siteID, nil
}
