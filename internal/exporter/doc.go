// Package exporter reads and writes the pipeline's CSV artifacts.
//
// This package contains three main components:
//
// CSVWriter: Core CSV writing with headers, appends, streaming, and atomic
// replacement of whole files.
//
// GroupExporter: Writes one file per key, used for the per-site and
// per-analyte outputs.
//
// ReadCSV / Frame: Loads a whole CSV file into memory for read-modify-write
// passes such as the index corrections.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(paths, logger)
//	err := w.WriteSimpleCSV("2012_60104.csv", header, records)
//
//	frame, err := exporter.ReadCSV(paths.IndexCSV)
//	col := frame.Column("frequency")
package exporter
