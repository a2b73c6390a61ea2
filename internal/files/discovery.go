package files

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "napsidx/internal/errors"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// resolve joins relative directories onto the base path.
func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

func (d *Discovery) list(dir string, want func(entry os.DirEntry) bool) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, apperrors.NewStorageError("cannot list directory", err).WithContext("dir", fullPath)
	}

	var files []FileInfo
	for _, entry := range entries {
		if !want(entry) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   entry.IsDir(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// FindWorkbooks lists the .xls and .xlsx files of dir, sorted by name.
// When keep is set, only names it accepts are returned.
func (d *Discovery) FindWorkbooks(dir string, keep func(name string) bool) ([]FileInfo, error) {
	return d.list(dir, func(entry os.DirEntry) bool {
		if entry.IsDir() {
			return false
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasSuffix(name, ".xlsx") && !strings.HasSuffix(name, ".xls") {
			return false
		}
		return keep == nil || keep(entry.Name())
	})
}

// FindCSVFiles finds all CSV files in the specified directory
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	return d.list(dir, func(entry os.DirEntry) bool {
		return !entry.IsDir() && strings.HasSuffix(strings.ToLower(entry.Name()), ".csv")
	})
}

// FindYearFiles maps year to the CSV files of dir named {prefix}{year}.csv,
// e.g. PM25_2004.csv for the prefix "PM25_".
func (d *Discovery) FindYearFiles(dir, prefix string) (map[int]FileInfo, error) {
	files, err := d.FindCSVFiles(dir)
	if err != nil {
		return nil, err
	}

	byYear := make(map[int]FileInfo)
	for _, file := range files {
		if !strings.HasPrefix(file.Name, prefix) {
			continue
		}
		stem := strings.TrimSuffix(strings.TrimPrefix(file.Name, prefix), filepath.Ext(file.Name))
		year, err := strconv.Atoi(stem)
		if err != nil || len(stem) != 4 {
			continue
		}
		byYear[year] = file
	}
	return byYear, nil
}

// Names returns the base names of files in order.
func Names(files []FileInfo) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}
