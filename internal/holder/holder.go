// Package holder finds account holder names in statement text. Credit
// card statements print the cardmember's name a few lines above each
// transaction section, surrounded by text that looks just enough like a
// name to require aggressive filtering.
package holder

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/bank-statement-importer/internal/types"
)

// How many lines above a transaction the scan reaches.
const lookbackWindow = 6

var (
	nameCharsRe = regexp.MustCompile(`^[A-Za-z][A-Za-z .'\-]*$`)
	allCapsRe   = regexp.MustCompile(`^[A-Z][A-Z .'\-]+$`)

	labeledNameRe = regexp.MustCompile(`(?i)^\s*(?:cardmember|card\s*holder|cardholder|account\s+(?:holder|owner|name)|name|user|customer|member|beneficiary|borrower)\s*[:\-]\s*(.+)$`)

	// Address-shaped lines near an all-caps candidate corroborate it:
	// statements print the holder's name directly above their address.
	zipRe     = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	addressRe = regexp.MustCompile(`(?i)\b(?:street|avenue|ave|blvd|drive|lane|court|road|apt|suite|unit|po box|p\.o\. box|\bst\b|\bdr\b|\brd\b)\b`)
	endingRe  = regexp.MustCompile(`(?i)(?:account|card)\s+(?:number\s+)?ending(?:\s+in)?\s+\d{4}`)
)

// Words that disqualify a candidate outright when they appear as any
// standalone token.
var rejectWords = map[string]struct{}{
	"account": {}, "activity": {}, "available": {}, "balance": {}, "billing": {},
	"card": {}, "charges": {}, "credit": {}, "credits": {}, "date": {},
	"deposits": {}, "details": {}, "fees": {}, "inquiries": {}, "interest": {},
	"news": {}, "notice": {}, "payment": {}, "payments": {}, "period": {},
	"points": {}, "purchases": {}, "rewards": {}, "service": {}, "statement": {},
	"summary": {}, "total": {}, "transactions": {}, "withdrawals": {},
}

// Phrases that disqualify a candidate when contained anywhere in it.
var rejectPhrases = []string{
	"send general inquiries", "customer service", "thank you", "p.o. box",
	"po box", "questions about", "contact us", "visit us", "important",
	"new address", "change of address", "payment due", "minimum due",
	"page ", "continued", "visa", "mastercard", "american express",
}

// Institution names never name a person even when printed alone.
var institutionWords = []string{
	"bank", "chase", "citi", "wells fargo", "fidelity", "vanguard",
	"schwab", "amex", "discover", "capital one", "credit union", "hsbc",
	"barclays", "usaa", "truist", "pnc", "federal",
}

// Validator decides whether a string is plausibly a person's name. The
// reject lists are fixed at construction, so a Validator is safe for
// concurrent use.
type Validator struct {
	words        map[string]struct{}
	phrases      []string
	institutions []string
}

// NewValidator returns a Validator with the default reject lists.
func NewValidator() *Validator {
	return &Validator{words: rejectWords, phrases: rejectPhrases, institutions: institutionWords}
}

// IsValidName reports whether candidate is plausibly a person's name:
// two to four alphabetic words, no digits or list punctuation, and
// nothing from the reject lists.
func (v *Validator) IsValidName(candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return false
	}
	if strings.ContainsAny(candidate, "*,#@/\\()[]{}&%$0123456789") {
		return false
	}
	if !nameCharsRe.MatchString(candidate) {
		return false
	}

	lower := strings.ToLower(candidate)
	for _, phrase := range v.phrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	for _, inst := range v.institutions {
		if containsWord(lower, inst) {
			return false
		}
	}

	words := strings.Fields(candidate)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		w = strings.ToLower(strings.Trim(w, ".'-"))
		if _, bad := v.words[w]; bad {
			return false
		}
		if len(w) == 0 {
			return false
		}
	}
	return true
}

func containsWord(haystack, word string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		startOK := i == 0 || !isWordChar(haystack[i-1])
		end := i + len(word)
		endOK := end == len(haystack) || !isWordChar(haystack[end])
		if startOK && endOK {
			return true
		}
		idx = i + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// candidate priorities, best first
const (
	prioLabeled = iota
	prioCapsAnchored
	prioCapsAlone
	prioMixedCase
)

type candidate struct {
	name     string
	priority int
	distance int
}

// Detector scans the lines above a transaction for the holder's name.
type Detector struct {
	logger    *log.Logger
	validator *Validator
}

func NewDetector(logger *log.Logger, validator *Validator) *Detector {
	if validator == nil {
		validator = NewValidator()
	}
	return &Detector{logger: logger, validator: validator}
}

// BeforeLine looks up to six lines above lines[txIdx] for a holder name.
//
// Candidates are ranked: an explicitly labeled name (Cardmember: ...)
// beats an all-caps name corroborated by a nearby address or account
// line, which beats a bare all-caps name, which beats a mixed-case name.
// Within a rank the candidate closest to the transaction wins, except
// that a candidate matching the account's already known holder name is
// preferred over a nearer non-matching one.
func (d *Detector) BeforeLine(lines []string, txIdx int, acct *types.DetectedAccount) (string, bool) {
	if txIdx <= 0 || txIdx > len(lines) {
		return "", false
	}

	var candidates []candidate
	start := txIdx - 1
	stop := txIdx - lookbackWindow
	if stop < 0 {
		stop = 0
	}

	for i := start; i >= stop; i-- {
		line := strings.TrimSpace(lines[i])
		line = strings.TrimRight(line, ",")
		if line == "" {
			continue
		}

		if m := labeledNameRe.FindStringSubmatch(line); m != nil {
			name := collapseJointName(strings.TrimSpace(m[1]))
			if d.validator.IsValidName(name) {
				candidates = append(candidates, candidate{name, prioLabeled, txIdx - i})
			}
			continue
		}

		if !d.validator.IsValidName(line) {
			continue
		}

		switch {
		case allCapsRe.MatchString(line) && d.hasNearbyAnchor(lines, i):
			candidates = append(candidates, candidate{line, prioCapsAnchored, txIdx - i})
		case allCapsRe.MatchString(line):
			candidates = append(candidates, candidate{line, prioCapsAlone, txIdx - i})
		default:
			candidates = append(candidates, candidate{line, prioMixedCase, txIdx - i})
		}
	}

	if len(candidates) == 0 {
		return "", false
	}

	best := candidates[0]
	known := ""
	if acct != nil && acct.HolderName != nil {
		known = strings.ToLower(strings.TrimSpace(*acct.HolderName))
	}
	for _, c := range candidates[1:] {
		if known != "" && strings.ToLower(c.name) == known && strings.ToLower(best.name) != known && c.priority <= best.priority {
			best = c
			continue
		}
		if c.priority < best.priority {
			best = c
		}
	}

	d.logger.Debug("detected holder name", "name", best.name, "distance", best.distance)
	return best.name, true
}

// collapseJointName reduces a joint account name to the first holder:
// "John & Mary Doe" becomes "John Doe", keeping the shared surname.
func collapseJointName(name string) string {
	if !strings.Contains(name, "&") {
		return name
	}
	parts := strings.SplitN(name, "&", 2)
	first := strings.TrimSpace(parts[0])
	rest := strings.Fields(strings.TrimSpace(parts[1]))
	if len(rest) >= 2 {
		first += " " + rest[len(rest)-1]
	}
	return first
}

// hasNearbyAnchor reports whether one of the two lines below idx looks
// like an address, a ZIP code, or an "account ending 1234" line.
func (d *Detector) hasNearbyAnchor(lines []string, idx int) bool {
	for j := idx + 1; j <= idx+2 && j < len(lines); j++ {
		l := lines[j]
		if zipRe.MatchString(l) || addressRe.MatchString(l) || endingRe.MatchString(l) {
			return true
		}
	}
	return false
}
