package extract

import (
	"context"
	"log/slog"
)

// Skip records a file left out of an extraction.
type Skip struct {
	File string
	Err  error
}

// Result holds the tables extracted for one site and year. A nil table
// means nothing of that instrument was attempted; an empty one means the
// files were read but held no samples.
type Result struct {
	Year    int
	SiteID  int
	Metals  *Table
	Ions    *Table
	Skipped []Skip
}

func (r *Result) skip(ctx context.Context, logger *slog.Logger, file string, err error) {
	r.Skipped = append(r.Skipped, Skip{File: file, Err: err})
	logger.ErrorContext(ctx, "skipping file",
		slog.String("file", file),
		slog.Int("year", r.Year),
		slog.Int("site_id", r.SiteID),
		slog.String("error", err.Error()))
}
