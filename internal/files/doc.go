// Package files lists the inputs of the pipeline: the workbooks of one
// archive year directory, the per-year continuous PM2.5 CSV files and the
// year directories themselves.
//
// Example usage:
//
//	discovery := files.NewDiscovery(archiveRoot)
//	workbooks, err := discovery.FindWorkbooks("2008/SPECIATION", nil)
//	continuous, err := discovery.FindYearFiles(paths.ContinuousRawDir, "PM25_")
package files
