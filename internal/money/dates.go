package money

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Dialect selects how ambiguous numeric dates are read. US statements
// print month first, most European ones day first.
type Dialect int

const (
	DialectUS Dialect = iota
	DialectDayFirst
)

func (d Dialect) String() string {
	if d == DialectDayFirst {
		return "day-first"
	}
	return "us"
}

var (
	numericDateRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?$`)
	isoDateRe     = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})$`)
	dateTokenRe   = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\b`)

	monthNameLayouts = []string{
		"Jan 2, 2006",
		"January 2, 2006",
		"Jan 02, 2006",
		"2 Jan 2006",
		"02 Jan 2006",
		"Jan 2 2006",
		"Jan 2",
		"January 2",
	}

	// Markers only US statements carry: dollar amounts, US phone
	// numbers, US institutions, and US statement vocabulary.
	usMarkers = []string{
		"$", " usd", "+1 ", "1-800-", "united states",
		"statement closing date", "payment due date", "minimum payment",
		"apr", "p.o. box", "po box", "member fdic",
		"american express", "chase", "bank of america", "wells fargo",
		"citibank", "capital one",
	}
)

// Only the top of the document is consulted for locale markers; the
// masthead and address block carry them, transaction rows do not.
const dialectHeaderBytes = 5000

// ParseDate parses a statement date string into a calendar date at UTC
// midnight. dialect disambiguates purely numeric forms; defaultYear fills
// in dates printed without a year (like the "11/25" transaction column on
// US credit card statements). A defaultYear of zero means the current
// year, rolled back one year when that would place the date over a month
// in the future.
func ParseDate(s string, dialect Dialect, defaultYear int) (time.Time, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if m := isoDateRe.FindStringSubmatch(raw); m != nil {
		return makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), s)
	}

	if m := numericDateRe.FindStringSubmatch(raw); m != nil {
		first, second := atoi(m[1]), atoi(m[2])
		month, day := first, second
		if dialect == DialectDayFirst {
			month, day = second, first
		}
		// When one ordering is impossible the digits decide, whatever
		// the dialect says.
		if month > 12 && day <= 12 {
			month, day = day, month
		}

		if m[3] != "" {
			year := atoi(m[3])
			if year < 100 {
				year += 2000
			}
			return makeDate(year, month, day, s)
		}
		return yearlessDate(month, day, defaultYear, s)
	}

	for _, layout := range monthNameLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			if t.Year() == 0 {
				return yearlessDate(int(t.Month()), t.Day(), defaultYear, s)
			}
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func yearlessDate(month, day, defaultYear int, orig string) (time.Time, error) {
	if defaultYear > 0 {
		return makeDate(defaultYear, month, day, orig)
	}
	now := time.Now().UTC()
	t, err := makeDate(now.Year(), month, day, orig)
	if err != nil {
		return time.Time{}, err
	}
	// A date printed without a year is never far in the future; a January
	// statement listing December rows means last December.
	if t.After(now.AddDate(0, 1, 0)) {
		t = t.AddDate(-1, 0, 0)
	}
	return t, nil
}

func makeDate(year, month, day int, orig string) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid date %q", orig)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject rollovers like 02/30.
	if int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %q", orig)
	}
	return t, nil
}

// IsDate reports whether s is a single date token on its own.
func IsDate(s string) bool {
	s = strings.TrimSpace(s)
	if numericDateRe.MatchString(s) || isoDateRe.MatchString(s) {
		return true
	}
	for _, layout := range monthNameLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// FindDateTokens returns every numeric date token in line, in order, as
// index pairs into the string.
func FindDateTokens(line string) [][]int {
	return dateTokenRe.FindAllStringIndex(line, -1)
}

// DetectDialect guesses the numeric date ordering for a whole document.
// The decision is made once per document and applied uniformly, so a
// statement can never mix orderings row by row. US vocabulary anywhere
// in the text settles it; otherwise a date token whose first component
// exceeds 12 proves day-first.
func DetectDialect(text string) Dialect {
	header := text
	if len(header) > dialectHeaderBytes {
		header = header[:dialectHeaderBytes]
	}
	lower := strings.ToLower(header)
	for _, marker := range usMarkers {
		if strings.Contains(lower, marker) {
			return DialectUS
		}
	}
	for _, loc := range dateTokenRe.FindAllString(text, -1) {
		m := numericDateRe.FindStringSubmatch(loc)
		if m == nil {
			continue
		}
		if atoi(m[1]) > 12 && atoi(m[2]) <= 12 {
			return DialectDayFirst
		}
	}
	return DialectUS
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
