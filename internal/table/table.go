// Package table infers the tabular layout of statement text that has lost
// its formatting, such as text extracted from a PDF. It guesses the column
// delimiter, finds the header line and splits the remaining lines into rows.
package table

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// Caps below keep pathological inputs from stalling an import. A real
	// statement never comes close to either.
	maxTextBytes = 10 * 1024 * 1024
	maxLines     = 10000

	// How many non-empty lines the delimiter vote looks at.
	sampleLines = 20

	// Share of sampled lines that must contain a delimiter for it to win.
	matchRateThreshold = 0.5
)

// Structure is the detected layout of a document: an ordered header row
// plus data rows. Rows may be ragged; merged PDF cells routinely produce
// rows shorter or longer than the header.
type Structure struct {
	Headers []string
	Rows    [][]string
}

// IsEmpty reports whether detection found nothing tabular at all.
func (s Structure) IsEmpty() bool {
	return len(s.Headers) == 0 && len(s.Rows) == 0
}

// Cell returns the value at (row, col), reporting false when the row is
// too short to have that column. Ragged rows make this the only safe way
// to index into a Structure.
func (s Structure) Cell(row, col int) (string, bool) {
	if row < 0 || row >= len(s.Rows) {
		return "", false
	}
	if col < 0 || col >= len(s.Rows[row]) {
		return "", false
	}
	return s.Rows[row][col], true
}

// HeaderIndex returns the position of the first header containing name
// (case-insensitive), or -1.
func (s Structure) HeaderIndex(name string) int {
	name = strings.ToLower(name)
	for i, h := range s.Headers {
		if strings.Contains(strings.ToLower(h), name) {
			return i
		}
	}
	return -1
}

type delimiter int

const (
	delimNone delimiter = iota
	delimTab
	delimPipe
	delimSpaces
)

var (
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
	alphaTokenRe = regexp.MustCompile(`^[A-Za-z][A-Za-z./&()'-]*$`)

	// Words that commonly appear in statement table headers. A line hitting
	// two of these is a header even if it also carries numeric tokens.
	headerWords = []string{
		"date", "description", "amount", "balance", "debit", "credit",
		"payee", "merchant", "reference", "withdrawal", "deposit", "memo",
		"transaction", "category", "type", "details",
	}
)

// Detector infers table structure from raw statement text.
type Detector struct {
	logger *log.Logger
}

func NewDetector(logger *log.Logger) *Detector {
	return &Detector{logger: logger}
}

// Detect parses text into a Structure. It never fails: empty, oversized or
// hopeless input yields an empty Structure, and malformed rows are kept
// as-is rather than dropped.
func (d *Detector) Detect(text string) Structure {
	if strings.TrimSpace(text) == "" {
		return Structure{}
	}
	if len(text) > maxTextBytes {
		d.logger.Warn("truncating oversized document", "bytes", len(text), "cap", maxTextBytes)
		text = text[:maxTextBytes]
	}

	lines := strings.Split(text, "\n")
	if len(lines) > maxLines {
		d.logger.Warn("truncating document lines", "lines", len(lines), "cap", maxLines)
		lines = lines[:maxLines]
	}

	delim := d.inferDelimiter(lines)

	headerIdx := -1
	var headers []string
	for i, line := range lines {
		fields := splitLine(line, delim)
		if isHeaderLine(fields) {
			headerIdx = i
			headers = fields
			break
		}
	}
	if headerIdx == -1 {
		// No header means no table; callers fall back to line-oriented
		// extraction.
		d.logger.Debug("no header line found", "lines", len(lines))
		return Structure{}
	}

	var rows [][]string
	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, splitLine(line, delim))
	}

	d.logger.Debug("detected table structure",
		"delimiter", delim, "headers", len(headers), "rows", len(rows))

	return Structure{Headers: headers, Rows: rows}
}

// inferDelimiter votes tab, then pipe, then runs of two or more spaces.
// The first candidate present on at least half the sampled non-empty
// lines wins; otherwise each line is a single field.
func (d *Detector) inferDelimiter(lines []string) delimiter {
	var sampled, tabs, pipes, spaces int
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		sampled++
		if strings.Contains(line, "\t") {
			tabs++
		}
		if strings.Contains(line, "|") {
			pipes++
		}
		if multiSpaceRe.MatchString(strings.TrimSpace(line)) {
			spaces++
		}
		if sampled >= sampleLines {
			break
		}
	}
	if sampled == 0 {
		return delimNone
	}
	threshold := int(float64(sampled)*matchRateThreshold + 0.5)
	if threshold < 1 {
		threshold = 1
	}
	switch {
	case tabs >= threshold:
		return delimTab
	case pipes >= threshold:
		return delimPipe
	case spaces >= threshold:
		return delimSpaces
	}
	return delimNone
}

func splitLine(line string, delim delimiter) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	var parts []string
	switch delim {
	case delimTab:
		parts = strings.Split(line, "\t")
	case delimPipe:
		parts = strings.Split(strings.Trim(line, "|"), "|")
	case delimSpaces:
		parts = multiSpaceRe.Split(line, -1)
	default:
		return []string{line}
	}
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			fields = append(fields, p)
		}
	}
	return fields
}

// isHeaderLine decides whether fields form a column header: at least two
// fields, and either mostly alphabetic tokens or two known header words.
func isHeaderLine(fields []string) bool {
	if len(fields) < 2 {
		return false
	}
	alpha, known := 0, 0
	for _, f := range fields {
		words := strings.Fields(f)
		fieldAlpha := len(words) > 0
		for _, w := range words {
			if !alphaTokenRe.MatchString(w) {
				fieldAlpha = false
			}
		}
		if fieldAlpha {
			alpha++
		}
		lower := strings.ToLower(f)
		for _, kw := range headerWords {
			if strings.Contains(lower, kw) {
				known++
				break
			}
		}
	}
	if known >= 2 {
		return true
	}
	return alpha*2 > len(fields) && alpha >= 2
}
