// Package rewards extracts reward point totals and balance figures from
// statement text.
package rewards

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lox/bank-statement-importer/internal/money"
)

// maxPoints bounds a believable reward points figure. Larger matches are
// almost always account numbers or reference codes the regex snagged.
const maxPoints = 10_000_000

var (
	// Ordered: the most specific phrasing wins before looser ones get a
	// chance to misfire.
	pointsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)total\s+points\s+transferred\s+to\s+\S+(?:\s+\S+)?\s+([\d,]+)`),
		regexp.MustCompile(`(?i)(?:points|rewards)\s+balance(?:\s+as\s+of\s+[\d/.-]+)?\s*[:\-]?\s*([\d,]+)`),
		regexp.MustCompile(`(?i)(?:total|available)\s+(?:reward\s+)?points\s*[:\-]?\s*([\d,]+)`),
		regexp.MustCompile(`(?i)([\d,]+)\s+points\s+(?:earned|available|redeemed)`),
	}

	// The fallback for values split across a line break demands a comma in
	// the number, which filters out the bare small integers that footer
	// text is full of.
	joinedPointsRe = regexp.MustCompile(`(?i)points[^\d]{0,40}(\d{1,3}(?:,\d{3})+)`)
)

// Points scans statement lines for a reward points total. It tries each
// line on its own first, then re-scans adjacent line pairs joined with a
// space, because PDF extraction often splits a label from its value.
func Points(lines []string) (int64, bool) {
	for _, line := range lines {
		if n, ok := matchPoints(line, pointsPatterns); ok {
			return n, true
		}
	}
	for i := 0; i+1 < len(lines); i++ {
		joined := strings.TrimSpace(lines[i]) + " " + strings.TrimSpace(lines[i+1])
		if m := joinedPointsRe.FindStringSubmatch(joined); m != nil {
			if n, ok := parsePoints(m[1]); ok {
				return n, true
			}
		}
	}
	return 0, false
}

func matchPoints(line string, patterns []*regexp.Regexp) (int64, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(line); m != nil {
			if n, ok := parsePoints(m[1]); ok {
				return n, true
			}
		}
	}
	return 0, false
}

func parsePoints(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil || n < 0 || n > maxPoints {
		return 0, false
	}
	return n, true
}

// Balance labels differ by account class: credit cards talk about what is
// owed, depository accounts about what is held.
var (
	creditCardLabels = []string{
		"new balance", "statement balance", "current balance",
		"total balance", "balance due", "amount due",
		"cash back rewards balance",
	}
	depositoryLabels = []string{
		"ending balance", "closing balance", "current balance",
		"available balance", "account balance", "total balance",
		"cash back rewards balance",
	}
)

const balanceAmountPattern = `\s*[:\-]?\s*(\(?-?[$€£¥₹]?\s?-?[\d,]+\.\d{2}\)?)`

// Balance finds the statement balance in text, choosing the label set by
// account type. When several labels match, the one appearing earliest in
// the document wins.
func Balance(text string, accountType string) (decimal.Decimal, bool) {
	labels := depositoryLabels
	if strings.EqualFold(accountType, "creditCard") || strings.EqualFold(accountType, "credit") {
		labels = creditCardLabels
	}

	bestPos := -1
	var best decimal.Decimal
	for _, label := range labels {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + balanceAmountPattern)
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		amt, err := money.ParseAmount(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		if bestPos == -1 || loc[0] < bestPos {
			bestPos = loc[0]
			best = amt
		}
	}
	if bestPos == -1 {
		return decimal.Zero, false
	}
	return best, true
}
