package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	apperrors "napsidx/internal/errors"
	"napsidx/internal/exporter"
	"napsidx/internal/infrastructure"
)

// Rule selects every entry of a (year, site, form).
type Rule struct {
	Year        int         `yaml:"year" validate:"required,gte=2003,lte=2019"`
	SiteID      int         `yaml:"site_id" validate:"required,gt=0"`
	AnalyteType AnalyteType `yaml:"analyte_type" validate:"required,oneof=NT WS total"`
	Reason      string      `yaml:"reason"`
}

func (r Rule) match(e Entry) bool {
	return e.Year == r.Year && e.SiteID == r.SiteID && e.AnalyteType == r.AnalyteType
}

// FrequencyRule sets the frequency of the entries it selects. An empty
// instrument matches both.
type FrequencyRule struct {
	Rule       `yaml:",inline"`
	Instrument Instrument `yaml:"instrument" validate:"omitempty,oneof=ICPMS IC"`
	Frequency  int        `yaml:"frequency" validate:"required,gt=0"`
}

func (r FrequencyRule) match(e Entry) bool {
	return r.Rule.match(e) && (r.Instrument == "" || e.Instrument == r.Instrument)
}

// Corrections are the manually checked fixes applied after every build.
type Corrections struct {
	// Frequencies come from checked_frequency.csv.
	Frequencies []FrequencyRule `yaml:"-" validate:"dive"`
	// Drop removes combinations with too few measurements.
	Drop []Rule `yaml:"drop" validate:"dive"`
	// Override forces the majority frequency where a file mixes intervals.
	Override []FrequencyRule `yaml:"override" validate:"dive"`
}

// LoadCorrections reads the checked frequency table and the rule file.
func LoadCorrections(checkedCSV, rulesYAML string, logger *slog.Logger) (*Corrections, error) {
	logger = infrastructure.WithComponent(logger, "index_corrections")

	data, err := os.ReadFile(rulesYAML)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to read correction rules", err).WithContext("file", rulesYAML)
	}
	var c Corrections
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, apperrors.NewConfigError("failed to parse correction rules", err).WithContext("file", rulesYAML)
	}

	if c.Frequencies, err = loadCheckedFrequencies(checkedCSV, logger); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func loadCheckedFrequencies(path string, logger *slog.Logger) ([]FrequencyRule, error) {
	frame, err := exporter.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{"year", "site_id", "analyte_type", "instrument", "frequency"} {
		if frame.Column(col) < 0 {
			return nil, apperrors.NewConfigError(fmt.Sprintf("%s has no %s column", path, col), nil)
		}
	}

	var rules []FrequencyRule
	seen := make(map[FrequencyRule]int)
	for i := range frame.Records {
		line := i + 2
		year, err1 := strconv.Atoi(frame.Value(i, "year"))
		site, err2 := strconv.Atoi(frame.Value(i, "site_id"))
		freq, err3 := parseFrequency(frame.Value(i, "frequency"))
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("%s line %d: non-numeric field", path, line), nil)
		}
		instrument, err := ParseInstrument(frame.Value(i, "instrument"))
		if err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("%s line %d", path, line), err)
		}

		rule := FrequencyRule{
			Rule:       Rule{Year: year, SiteID: site, AnalyteType: AnalyteType(frame.Value(i, "analyte_type"))},
			Instrument: instrument,
			Frequency:  freq,
		}
		key := rule
		key.Frequency = 0
		if first, dup := seen[key]; dup {
			logger.Warn("duplicate checked frequency ignored",
				slog.Int("line", line),
				slog.Int("first_line", first),
				slog.Int("year", year),
				slog.Int("site_id", site))
			continue
		}
		seen[key] = line
		rules = append(rules, rule)
	}
	return rules, nil
}

// Validate checks every rule.
func (c *Corrections) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return apperrors.NewConfigError(
				fmt.Sprintf("invalid correction rule: %s failed on %s", verrs[0].Namespace(), verrs[0].Tag()), err)
		}
		return apperrors.NewConfigError("invalid correction rules", err)
	}
	return nil
}

// Pass is one correction over the whole index. It returns the new entries
// and how many rows it changed or removed.
type Pass struct {
	Name string
	Run  func([]Entry) ([]Entry, int)
}

// Passes returns the merge, drop and override passes in application order.
func (c *Corrections) Passes() []Pass {
	return []Pass{
		{Name: "checked_frequency", Run: c.mergeFrequencies},
		{Name: "drop", Run: c.dropEntries},
		{Name: "override", Run: c.overrideFrequencies},
	}
}

func (c *Corrections) mergeFrequencies(entries []Entry) ([]Entry, int) {
	return setFrequencies(entries, c.Frequencies)
}

func (c *Corrections) overrideFrequencies(entries []Entry) ([]Entry, int) {
	return setFrequencies(entries, c.Override)
}

func setFrequencies(entries []Entry, rules []FrequencyRule) ([]Entry, int) {
	out := make([]Entry, len(entries))
	changed := 0
	for i, e := range entries {
		for _, r := range rules {
			if r.match(e) {
				if e.Frequency != r.Frequency {
					e.Frequency = r.Frequency
					changed++
				}
				break
			}
		}
		out[i] = e
	}
	return out, changed
}

func (c *Corrections) dropEntries(entries []Entry) ([]Entry, int) {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		drop := false
		for _, r := range c.Drop {
			if r.match(e) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, e)
		}
	}
	return out, len(entries) - len(out)
}

// Apply runs one pass as a read-modify-write of the whole index CSV.
func Apply(ctx context.Context, store *Store, pass Pass, logger *slog.Logger) (int, error) {
	entries, err := store.Load()
	if err != nil {
		return 0, err
	}
	updated, n := pass.Run(entries)
	if err := store.Save(updated); err != nil {
		return 0, err
	}
	logger.InfoContext(ctx, "correction pass applied",
		slog.String("pass", pass.Name),
		slog.Int("affected", n),
		slog.Int("entries", len(updated)))
	return n, nil
}

// ApplyAll runs every pass in order, persisting after each.
func (c *Corrections) ApplyAll(ctx context.Context, store *Store, logger *slog.Logger) error {
	logger = infrastructure.WithComponent(logger, "index_corrections")
	for _, pass := range c.Passes() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := Apply(ctx, store, pass, logger); err != nil {
			return fmt.Errorf("correction pass %s: %w", pass.Name, err)
		}
	}
	return nil
}
