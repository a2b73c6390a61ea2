package archive

import (
	"slices"
	"strconv"
	"strings"
)

// yearRule applies pattern to every year in [from, to]. Patterns use the
// placeholders {y} (year), {id} (site id) and {pid} (site id with a leading
// zero when it has five digits).
type yearRule struct {
	from, to int
	pattern  string
}

// siteRule is a per-site exception to the yearRule tables.
type siteRule struct {
	from, to int
	sites    []int
	pattern  string
}

var directoryRules = map[Category][]yearRule{
	PM25: {
		{2003, 2009, "{y}/SPECIATION"},
		{2010, 2012, "{y}/PM2.5"},
		{2013, 2013, "{y}/PM2.5/PM2.5"},
		{2014, 2016, "{y}/PM2.5"},
		{2017, 2017, "{y}/{y}_IntegratedPM2.5-PM2.5Ponctuelles/PM2.5"},
		{2018, 2018, "{y}/PM2.5"},
		{2019, 2019, "{y}/{y}_IntegratedPM2.5-PM2.5Ponctuelles"},
	},
	Carbonyl: {
		{2003, 2015, "{y}/CARBONYLS"},
		{2016, 2019, "{y}/CARBONYLS-CARBONYLES-HAP"},
	},
	PAH: {
		{2003, 2014, "{y}/PAH"},
		{2015, 2015, "{y}/2015_PAH/PAH"},
		{2016, 2019, "{y}/PAH-HAP"},
	},
	VOC: {
		{2003, 2015, "{y}/VOC"},
		{2016, 2019, "{y}/VOC-COV"},
	},
}

var filenameRules = map[Category][]yearRule{
	PM25: {
		{2003, 2015, "S{id}_PM25_{y}.xlsx"},
		{2016, 2019, "S{id}_PM25_{y}_EN.xlsx"},
	},
	Carbonyl: {
		{2003, 2017, "S{id}_CARBONYLS_{y}_EN.XLS"},
		{2018, 2019, "S{pid}_CARBONYLS_{y}_EN.xlsx"},
	},
	PAH: {
		{2003, 2009, "S{id}_PAH.XLS"},
		{2010, 2015, "S{id}_PAH_{y}.xlsx"},
		{2016, 2019, "S{id}_PAH_{y}_EN.xlsx"},
	},
	VOC: {
		{2003, 2013, "S{id}_VOC.XLS"},
		{2014, 2015, "S{pid}_VOC_{y}.XLS"},
		{2016, 2017, "S{pid}_VOC_{y}_EN.XLS"},
		{2018, 2019, "S{pid}_VOC_{y}_EN.xlsx"},
	},
}

var filenameExceptions = map[Category][]siteRule{
	VOC: {
		{2011, 2011, []int{50115, 50121, 50129, 50133, 50134, 60427, 61007}, "S{id}_VOC.xls"},
		{2012, 2012, []int{10102}, "S10102_VOCcorrectedfilename.XLS"},
		// 90227, 90228 and 90230 are combined sites; the 2012 file kept the old id.
		{2012, 2012, []int{90228}, "S90227(should be 90228)_VOC.XLS"},
		{2014, 2015, []int{62601}, "S{id}_24hr_VOC_{y}.XLS"},
		{2016, 2017, []int{62601}, "S{id}_24hr_VOC_{y}_EN.XLS"},
	},
}

// ResolveDirectory returns the slash-separated directory, relative to the
// archive root, holding the category's files for year.
func ResolveDirectory(year int, category Category) (string, error) {
	rules, ok := directoryRules[category]
	if !ok {
		return "", unknownLayout("directory", year, category)
	}
	for _, r := range rules {
		if year >= r.from && year <= r.to {
			return expand(r.pattern, year, 0), nil
		}
	}
	return "", unknownLayout("directory", year, category)
}

// ResolveFilename returns the workbook name for a site and year. Pre-2010
// speciation data is split per instrument; see LegacyFilename.
func ResolveFilename(year, siteID int, category Category) (string, error) {
	rules, ok := filenameRules[category]
	if !ok {
		return "", unknownLayout("file name", year, category)
	}

	for _, ex := range filenameExceptions[category] {
		if year >= ex.from && year <= ex.to && slices.Contains(ex.sites, siteID) {
			return expand(ex.pattern, year, siteID), nil
		}
	}

	for _, r := range rules {
		if year >= r.from && year <= r.to {
			return expand(r.pattern, year, siteID), nil
		}
	}
	return "", unknownLayout("file name", year, category)
}

func expand(pattern string, year, siteID int) string {
	id := strconv.Itoa(siteID)
	pid := id
	if siteID < 100000 {
		pid = "0" + id
	}
	return strings.NewReplacer(
		"{y}", strconv.Itoa(year),
		"{id}", id,
		"{pid}", pid,
	).Replace(pattern)
}
