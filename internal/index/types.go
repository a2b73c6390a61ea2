package index

import (
	"cmp"
	"fmt"
	"slices"

	apperrors "napsidx/internal/errors"
	"napsidx/internal/frequency"
)

// AnalyteType is the chemical form an analyte was measured in.
type AnalyteType string

const (
	NearTotal    AnalyteType = "NT"
	WaterSoluble AnalyteType = "WS"
	Total        AnalyteType = "total"
)

// AnalyteTypes lists the forms in index order.
func AnalyteTypes() []AnalyteType {
	return []AnalyteType{NearTotal, WaterSoluble, Total}
}

// ParseAnalyteType validates an analyte_type cell.
func ParseAnalyteType(s string) (AnalyteType, error) {
	switch t := AnalyteType(s); t {
	case NearTotal, WaterSoluble, Total:
		return t, nil
	}
	return "", apperrors.NewAppValidationError(fmt.Sprintf("unknown analyte_type %q", s))
}

// Instrument is the measuring instrument.
type Instrument string

const (
	ICPMS Instrument = "ICPMS"
	IC    Instrument = "IC"
)

// ParseInstrument validates an instrument cell.
func ParseInstrument(s string) (Instrument, error) {
	switch i := Instrument(s); i {
	case ICPMS, IC:
		return i, nil
	}
	return "", apperrors.NewAppValidationError(fmt.Sprintf("unknown instrument %q", s))
}

// InstrumentFor returns the instrument measuring an analyte form: metals
// by ICPMS, ions by IC.
func InstrumentFor(t AnalyteType) Instrument {
	if t == Total {
		return IC
	}
	return ICPMS
}

func (i Instrument) frequencyInstrument() frequency.Instrument {
	return frequency.Instrument(i)
}

// Worksheet names of the 2010+ workbooks, per analyte form.
const (
	SheetNearTotal    = "Metals_ICPMS (Near-Total)"
	SheetWaterSoluble = "Metals_ICPMS (Water-Soluble)"
	SheetIons         = "Ions-Spec_IC"
)

// SheetFor returns the 2010+ worksheet holding an analyte form.
func SheetFor(t AnalyteType) string {
	switch t {
	case NearTotal:
		return SheetNearTotal
	case WaterSoluble:
		return SheetWaterSoluble
	default:
		return SheetIons
	}
}

// MeasuredMetals are the ICPMS analytes tracked by the index.
var MeasuredMetals = []string{
	"aluminum", "antimony", "arsenic", "barium", "beryllium",
	"cadmium", "calcium", "cerium", "chromium", "cobalt",
	"copper", "iron", "lanthanum", "lead", "manganese",
	"molybdenum", "nickel", "palladium", "phosphorus", "platinum",
	"selenium", "silver", "strontium", "sulfur", "thallium",
	"tin", "titanium", "uranium", "vanadium", "zinc",
}

// MeasuredIons are the IC analytes tracked by the index.
var MeasuredIons = []string{
	"acetate", "ammonium", "barium", "bromide", "calcium",
	"chloride", "fluoride", "formate", "lithium", "magnesium",
	"manganese", "msa", "nitrate", "nitrite",
	"oxalate", "phosphate", "potassium", "propionate", "sodium",
	"strontium", "sulphate",
}

// Whitelist returns the tracked analytes of an instrument.
func Whitelist(i Instrument) []string {
	if i == IC {
		return MeasuredIons
	}
	return MeasuredMetals
}

// Entry is one row of the master index: a (year, site, analyte, form) with
// data, the instrument and the sampling interval in days.
type Entry struct {
	Year        int
	SiteID      int
	Analyte     string
	AnalyteType AnalyteType
	Instrument  Instrument
	Frequency   int
}

// Key identifies an entry. It is unique within an index.
type Key struct {
	Year        int
	SiteID      int
	Analyte     string
	AnalyteType AnalyteType
}

// Key returns the entry's identity.
func (e Entry) Key() Key {
	return Key{Year: e.Year, SiteID: e.SiteID, Analyte: e.Analyte, AnalyteType: e.AnalyteType}
}

// Sort orders entries by year, site_id and analyte. Ties keep their order.
func Sort(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Or(
			cmp.Compare(a.Year, b.Year),
			cmp.Compare(a.SiteID, b.SiteID),
			cmp.Compare(a.Analyte, b.Analyte),
		)
	})
}
