// Package dataprocessing normalises spreadsheet column names and analyte
// values into the canonical schema shared by every archive era.
//
// # Components
//
// 1. ColumnMapping: an old-name to new-name table loaded once from CSV and
// handed to the extractors. Unknown names pass through unchanged.
// 2. Abbreviations: analyte full name to short code, used to name the
// {abbr}-MDL companion columns.
// 3. Text transforms: RemoveParentheses and MicroToNano.
//
// # Usage
//
//	general, err := dataprocessing.LoadColumnMapping(paths.ColumnNamesCSV)
//	if err != nil {
//	    return err
//	}
//	header = general.Normalize(header)
//
//	abbr, err := dataprocessing.LoadAbbreviations(paths.AbbreviationsCSV)
//	mdl, err := abbr.MDLColumn("lead") // "Pb-MDL"
//
// # Data Flow
//
//	Raw header → ColumnMapping.Normalize → canonical header → extract.Table
package dataprocessing
