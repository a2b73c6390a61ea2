// Package archive knows where things live in an unpacked NAPS archive.
//
// The archive was published one ZIP per year and the directory and file
// naming drifted from year to year. Every known layout is recorded here as
// a year-range table; a (year, category) pair outside the tables is a
// resolution error and no path is ever guessed.
package archive
