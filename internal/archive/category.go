package archive

import (
	"fmt"
	"strings"

	apperrors "napsidx/internal/errors"
)

// Category selects a family of archive files.
type Category string

const (
	// PM25 is the integrated PM2.5 speciation archive.
	PM25     Category = "pm25"
	Carbonyl Category = "carbonyl"
	PAH      Category = "pah"
	VOC      Category = "voc"
)

// First and last archive years with a known layout.
const (
	FirstYear = 2003
	LastYear  = 2019
)

// ErrUnknownLayout matches every resolution error returned by this package.
var ErrUnknownLayout = apperrors.ErrResolution

// Categories lists every supported category.
func Categories() []Category {
	return []Category{PM25, Carbonyl, PAH, VOC}
}

// ParseCategory maps user input to a Category. The empty string selects PM25.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case "", PM25:
		return PM25, nil
	case Carbonyl, PAH, VOC:
		return c, nil
	}
	return "", apperrors.NewResolutionError(fmt.Sprintf("unknown category %q", s))
}

func unknownLayout(what string, year int, c Category) error {
	return apperrors.NewResolutionError(fmt.Sprintf("no %s known for %s in %d", what, c, year)).
		WithContext("year", year).
		WithContext("category", string(c))
}
