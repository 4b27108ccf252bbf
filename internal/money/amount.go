// Package money normalizes the amount, currency and date strings that
// bank and brokerage statements print in a dozen slightly different ways.
package money

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount bounds what a single statement line may plausibly carry.
// Anything beyond it is treated as a parse artifact, not a transaction.
var MaxAmount = decimal.RequireFromString("999999999.99")

var (
	amountTokenRe = regexp.MustCompile(`^\(?[-+]?[$€£¥₹]?\s?-?\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?\)?$|^\(?[-+]?[$€£¥₹]?\s?-?\d+(?:\.\d{1,2})?\)?$|^\(?[-+]?[$€£¥₹]?\s?-?\.\d{1,2}\)?$`)
	currencyCodeRe = regexp.MustCompile(`(?i)^(USD|EUR|GBP|CNY|JPY|INR|CAD|AUD)\s*`)
	suffixMarkerRe = regexp.MustCompile(`(?i)\s*(CR|DR|BF)\.?$`)
)

// ParseAmount converts a statement amount string to an exact decimal.
// It accepts currency symbols and ISO codes, thousands separators,
// leading signs, accounting parentheses and trailing CR/DR markers:
//
//	"-$436.80"   -> -436.80
//	"($123.45)"  -> -123.45
//	"$1,234.56"  -> 1234.56
//	"436.80 CR"  -> 436.80
//	"436.80 DR"  -> -436.80
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false

	// Trailing bank markers: CR keeps the sign, DR flips it, BF (balance
	// brought forward) is neutral.
	if m := suffixMarkerRe.FindStringSubmatch(raw); m != nil {
		if strings.EqualFold(m[1], "DR") {
			negative = true
		}
		raw = strings.TrimSpace(suffixMarkerRe.ReplaceAllString(raw, ""))
	}

	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		negative = true
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}

	raw = strings.TrimSpace(currencyCodeRe.ReplaceAllString(raw, ""))

	if strings.HasPrefix(raw, "-") {
		negative = true
		raw = strings.TrimSpace(raw[1:])
	} else if strings.HasPrefix(raw, "+") {
		raw = strings.TrimSpace(raw[1:])
	}

	raw = strings.TrimLeft(raw, "$€£¥₹")
	raw = strings.TrimSpace(raw)

	// A minus can also sit between the symbol and the digits: "$-436.80".
	if strings.HasPrefix(raw, "-") {
		negative = true
		raw = strings.TrimSpace(raw[1:])
	}

	raw = strings.ReplaceAll(raw, ",", "")
	if strings.HasPrefix(raw, ".") {
		raw = "0" + raw
	}
	if raw == "" {
		return decimal.Zero, fmt.Errorf("no digits in amount %q", s)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if d.Abs().GreaterThan(MaxAmount) {
		return decimal.Zero, fmt.Errorf("amount %q out of range", s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// IsAmount reports whether s looks like a monetary amount on its own,
// without committing to parsing it.
func IsAmount(s string) bool {
	s = strings.TrimSpace(s)
	s = suffixMarkerRe.ReplaceAllString(s, "")
	s = currencyCodeRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return amountTokenRe.MatchString(s)
}

// IsNearZero reports whether d is within a cent of zero. Statements print
// informational lines (interest rate summaries, rewards footers) with a
// 0.00 amount column, and those are not transactions.
func IsNearZero(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(decimal.RequireFromString("0.01"))
}

// DetectCurrency infers an ISO currency code from an amount string, with
// the source filename as a tiebreaker for the ambiguous ¥ symbol.
func DetectCurrency(amount, filename string) string {
	switch {
	case strings.Contains(amount, "€"):
		return "EUR"
	case strings.Contains(amount, "£"):
		return "GBP"
	case strings.Contains(amount, "₹"):
		return "INR"
	case strings.Contains(amount, "¥"):
		// The yen sign is shared by JPY and CNY; Chinese bank exports
		// usually say so in the filename.
		lower := strings.ToLower(filename)
		if strings.Contains(lower, "cn") || strings.Contains(lower, "china") ||
			strings.Contains(lower, "rmb") || strings.Contains(lower, "cny") {
			return "CNY"
		}
		return "JPY"
	}
	if m := currencyCodeRe.FindStringSubmatch(strings.TrimSpace(amount)); m != nil {
		return strings.ToUpper(m[1])
	}
	return "USD"
}
