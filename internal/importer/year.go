package importer

import (
	"regexp"
	"strconv"
)

var (
	labeledYearRe = regexp.MustCompile(`(?i)(?:closing|statement|billing|due)\s+date[^\d]{0,20}\d{1,2}[/-]\d{1,2}[/-](\d{4})`)
	periodYearRe  = regexp.MustCompile(`(?i)(?:statement|billing)\s+period[^\n]{0,40}?(\d{4})`)
	isoYearRe     = regexp.MustCompile(`\b(20\d{2})-\d{1,2}-\d{1,2}\b`)
	// Filenames separate with underscores, which defeat \b, so the year
	// is bounded by any non-digit instead.
	filenameYearRe = regexp.MustCompile(`(?:\A|\D)(20\d{2})(?:\D|\z)`)
)

// inferStatementYear finds the year that yearless transaction dates
// belong to. Statement metadata wins over the filename; zero means no
// evidence, and date parsing falls back to the current year.
func inferStatementYear(lines []string, filename string) int {
	for _, line := range lines {
		if m := labeledYearRe.FindStringSubmatch(line); m != nil {
			return atoi(m[1])
		}
	}
	for _, line := range lines {
		if m := periodYearRe.FindStringSubmatch(line); m != nil {
			return atoi(m[1])
		}
		if m := isoYearRe.FindStringSubmatch(line); m != nil {
			return atoi(m[1])
		}
	}
	if m := filenameYearRe.FindStringSubmatch(filename); m != nil {
		return atoi(m[1])
	}
	return 0
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
