package main

import (
	"fmt"
	"io"
	"path"

	"github.com/spf13/cobra"

	"napsidx/internal/archive"
)

func newResolveCmd() *cobra.Command {
	var (
		year     int
		category string
		site     int
	)
	cmd := &cobra.Command{
		Use:   "resolve --year Y [--category C] [--site N]",
		Short: "Print where the archive keeps a category's files for a year",
		Long: "Print the archive directory of a category for a year and, with --site, " +
			"the workbook name. PAH and VOC also print the worksheet, header offset " +
			"and date column of that year's layout. Without --category every category is listed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			categories := archive.Categories()
			if category != "" {
				c, err := archive.ParseCategory(category)
				if err != nil {
					return err
				}
				categories = []archive.Category{c}
			}

			w := cmd.OutOrStdout()
			for _, c := range categories {
				dir, err := archive.ResolveDirectory(year, c)
				if err != nil {
					if len(categories) == 1 {
						return err
					}
					fmt.Fprintf(w, "%-9s -\n", c)
					continue
				}
				if site == 0 {
					fmt.Fprintf(w, "%-9s %s\n", c, dir)
					if err := printSheetLayout(w, year, c); err != nil {
						return err
					}
					continue
				}
				if c == archive.PM25 && archive.IsLegacyYear(year) {
					for _, kind := range archive.LegacyKinds() {
						fmt.Fprintf(w, "%-9s %s\n", c, path.Join(dir, archive.LegacyFilename(site, kind)))
					}
					continue
				}
				name, err := archive.ResolveFilename(year, site, c)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%-9s %s\n", c, path.Join(dir, name))
				if err := printSheetLayout(w, year, c); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "archive year")
	cmd.Flags().StringVar(&category, "category", "", "pm25, carbonyl, pah or voc (default: all)")
	cmd.Flags().IntVar(&site, "site", 0, "NAPS site ID")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

// printSheetLayout prints where the measurements sit inside a PAH or VOC
// workbook. Other categories have no per-year sheet layout.
func printSheetLayout(w io.Writer, year int, c archive.Category) error {
	if c != archive.PAH && c != archive.VOC {
		return nil
	}
	sheet, err := archive.Worksheet(year, c)
	if err != nil {
		return err
	}
	skip, err := archive.SkipRows(year, c)
	if err != nil {
		return err
	}
	column, err := archive.DatetimeColumn(year, c)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%-9s sheet=%s skip_rows=%d date_column=%q\n", c, sheet, skip, column)
	return nil
}
