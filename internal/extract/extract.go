// Package extract pulls transaction fields out of single statement lines.
// PDF text extraction destroys column alignment, so rather than splitting
// on position the extractor anchors on what is unambiguous: date tokens at
// the start of a line and the rightmost monetary amount on it.
package extract

import (
	"regexp"
	"strings"

	"github.com/lox/bank-statement-importer/internal/money"
)

// Shape describes the column layout a document's table header promised.
// It guides the naive fallback split and says how many leading date
// columns a transaction row carries.
type Shape struct {
	Columns     []string
	DateColumns int
}

// NewShape derives a Shape from detected table headers.
func NewShape(headers []string) Shape {
	s := Shape{Columns: make([]string, len(headers))}
	for i, h := range headers {
		s.Columns[i] = strings.ToLower(strings.TrimSpace(h))
		if strings.Contains(s.Columns[i], "date") {
			s.DateColumns++
		}
	}
	return s
}

// Fields is the result of extracting one line. Date, PostDate and Amount
// hold the raw tokens as printed; Year carries the statement year for
// dates printed without one. Columns is only set by the naive fallback,
// keyed by lowercased header name.
type Fields struct {
	Date        string
	PostDate    string
	Description string
	Amount      string
	Year        int
	Columns     map[string]string
}

// Anchored reports whether the fields came from date and amount anchors
// rather than the naive positional fallback.
func (f Fields) Anchored() bool {
	return f.Amount != "" && f.Date != ""
}

var (
	// Thousands separators are optional: "1,234.56" and "1234.56" both
	// anchor, and the comma form is tried first so a grouped amount is
	// never matched from its middle.
	amountAnchorRe = regexp.MustCompile(`\(?-?[$€£¥₹]?\s?-?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\)?(?:\s?(?:CR|DR))?`)
	splitRe        = regexp.MustCompile(`\t|\s{2,}`)
	spaceRe        = regexp.MustCompile(`\s+`)

	// Phrases that mark a line as statement boilerplate rather than a
	// transaction, even when it happens to carry an amount.
	informational = []string{
		"page ", "of your statement", "customer service", "account summary",
		"interest charge", "interest rate", "annual percentage", "apr ",
		"minimum payment", "payment due date", "p.o. box", "po box",
		"visit us", "www.", "questions?", "continued on", "1-800-", "1-888-",
		"thank you for being", "member fdic", "see reverse", "important information",
		"fees charged", "total fees", "total interest", "previous balance",
		"new balance", "credit limit", "available credit", "cash advance limit",
	}
)

// IsInformational reports whether a line is statement boilerplate the
// extractor should never treat as a transaction.
func IsInformational(line string) bool {
	lower := strings.ToLower(line)
	for _, phrase := range informational {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Row extracts transaction fields from one line.
//
// The primary strategy anchors on structure: the rightmost amount token
// that does not overlap a date becomes the amount, the date tokens at the
// start of the line become the transaction and post dates (a two-date
// header shape requires both; otherwise only the first is taken), and the
// text between the last leading date and the amount is the description.
// When either anchor is missing the line is split naively against shape.
// The second return is false only when the line is blank, carries a
// near-zero amount, or even the naive split finds nothing.
func Row(line string, shape Shape, defaultYear int) (Fields, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Fields{}, false
	}

	dateSpans := money.FindDateTokens(trimmed)
	amountSpan := findAmountAnchor(trimmed, dateSpans)
	leading := leadingDates(dateSpans, shape.DateColumns)

	if amountSpan != nil && len(leading) > 0 {
		f := Fields{
			Date: strings.TrimSpace(trimmed[leading[0][0]:leading[0][1]]),
			Year: defaultYear,
		}
		lastEnd := leading[len(leading)-1][1]
		if len(leading) > 1 {
			f.PostDate = strings.TrimSpace(trimmed[leading[1][0]:leading[1][1]])
		}
		if lastEnd < amountSpan[0] {
			f.Description = cleanDescription(trimmed[lastEnd:amountSpan[0]])
		}
		f.Amount = strings.TrimSpace(trimmed[amountSpan[0]:amountSpan[1]])

		// Lines with a 0.00 amount column are summaries, not transactions.
		if amt, err := money.ParseAmount(f.Amount); err == nil && money.IsNearZero(amt) {
			return Fields{}, false
		}
		return f, true
	}

	return naiveSplit(trimmed, shape, defaultYear)
}

// findAmountAnchor returns the span of the rightmost amount token that
// does not overlap any date token, or nil.
func findAmountAnchor(line string, dateSpans [][]int) []int {
	matches := amountAnchorRe.FindAllStringIndex(line, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if overlapsAny(m, dateSpans) {
			continue
		}
		if money.IsAmount(line[m[0]:m[1]]) {
			return m
		}
	}
	return nil
}

func overlapsAny(span []int, spans [][]int) bool {
	for _, s := range spans {
		if span[0] < s[1] && s[0] < span[1] {
			return true
		}
	}
	return false
}

// leadingDates returns the date tokens that start the line, honoring the
// header shape. A shape with two date columns demands both dates up
// front; any other shape takes just the first. The first date must begin
// at the very start; a second counts only when it follows the first
// within a couple of characters.
func leadingDates(dateSpans [][]int, dateColumns int) [][]int {
	if len(dateSpans) == 0 || dateSpans[0][0] != 0 {
		return nil
	}
	if dateColumns < 2 {
		return dateSpans[:1]
	}
	if len(dateSpans) > 1 && dateSpans[1][0]-dateSpans[0][1] <= 3 {
		return dateSpans[:2]
	}
	return nil
}

// cleanDescription normalizes whitespace and strips date tokens that PDF
// extraction glued onto the front of the description.
func cleanDescription(s string) string {
	s = strings.TrimSpace(s)
	for {
		spans := money.FindDateTokens(s)
		if len(spans) == 0 || spans[0][0] != 0 {
			break
		}
		s = strings.TrimSpace(s[spans[0][1]:])
	}
	return spaceRe.ReplaceAllString(s, " ")
}

// naiveSplit maps whitespace-separated fields onto the header shape in
// order. It is deliberately best-effort: a partial map beats dropping the
// row entirely.
func naiveSplit(line string, shape Shape, defaultYear int) (Fields, bool) {
	parts := splitRe.Split(line, -1)
	fields := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			fields = append(fields, p)
		}
	}
	if len(fields) == 0 || len(shape.Columns) == 0 {
		return Fields{}, false
	}

	f := Fields{Year: defaultYear, Columns: make(map[string]string)}
	for i, col := range shape.Columns {
		if i >= len(fields) {
			break
		}
		val := fields[i]
		// Extra fields beyond the header count usually belong to the last
		// column, where free-text descriptions live.
		if i == len(shape.Columns)-1 && len(fields) > len(shape.Columns) {
			val = strings.Join(fields[i:], " ")
		}
		f.Columns[col] = val
		switch {
		// A positional split can land anything in the date column, so the
		// value must actually be date-shaped to count.
		case strings.Contains(col, "date") && f.Date == "" && money.IsDate(val):
			f.Date = val
		case strings.Contains(col, "date") && money.IsDate(val):
			f.PostDate = val
		case strings.Contains(col, "desc") || strings.Contains(col, "payee") || strings.Contains(col, "merchant"):
			f.Description = spaceRe.ReplaceAllString(val, " ")
		case strings.Contains(col, "amount") || strings.Contains(col, "debit") || strings.Contains(col, "credit"):
			if f.Amount == "" {
				f.Amount = val
			}
		}
	}
	return f, true
}
