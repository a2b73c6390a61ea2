// Package extract turns the speciation workbooks of one site and year into
// the processed per-(year, site) tables.
//
// Two strategies exist. Before 2010 every instrument has its own .XLS
// file with a single sheet (Legacy). From 2010 one .xlsx workbook holds a
// PM2.5 sheet for both samplers plus one sheet per metal form and an ion
// sheet (Modern); metal rows are joined with the PM2.5 results of their
// sampler. Both strategies skip what they cannot read and say so in
// Result.Skipped.
package extract
