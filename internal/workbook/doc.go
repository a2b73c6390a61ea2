// Package workbook opens the archive's spreadsheets and exposes every sheet
// as a grid of raw cell text.
//
// Two readers are provided. OpenLegacy reads the BIFF .XLS files of the
// 2003-2009 archive and OpenModern reads the .xlsx workbooks published
// from 2010 onwards. Both return the same *Workbook so that header
// detection, date conversion and shape checks are shared.
//
// Numeric cells keep their raw value: dates come through as 1900-system
// serials and are converted with SerialToDate or ParseDate by the caller.
package workbook
