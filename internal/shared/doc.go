// Package shared holds helpers used across the napsidx packages that do not
// belong to any single pipeline stage.
//
// The testutil subpackage provides a buffered slog handler for asserting on
// log output and builders for spreadsheet fixtures shaped like the archive's
// workbooks. It is imported only from _test.go files.
package shared
