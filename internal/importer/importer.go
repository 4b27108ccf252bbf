// Package importer orchestrates statement imports: it reads a CSV or PDF
// statement, normalizes each row into a transaction, reconciles
// categories and matches the statement to a known account.
package importer

import (
	"bytes"
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/lox/bank-statement-importer/internal/category"
	"github.com/lox/bank-statement-importer/internal/money"
	"github.com/lox/bank-statement-importer/internal/types"
)

// Processing caps for one statement document. Oversized input is
// truncated to the cap and imported from the partial data, never
// rejected outright.
const (
	maxInputBytes = 10 * 1024 * 1024
	maxInputLines = 10000
)

// readBounded reads at most maxInputBytes from r. When the cap is hit
// the trailing partial line is dropped so parsers never see a record cut
// mid-field.
func readBounded(r io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return "", err
	}
	if len(raw) == maxInputBytes {
		if i := bytes.LastIndexByte(raw, '\n'); i >= 0 {
			raw = raw[:i]
		}
	}
	return string(raw), nil
}

// AccountMatcher finds a previously seen account that a newly detected
// one refers to.
type AccountMatcher interface {
	MatchExistingAccount(ctx context.Context, userID string, acct types.DetectedAccount) (string, bool, error)
}

// Options carries the per-import inputs shared by all importers.
type Options struct {
	// Filename of the source document, used for currency and year hints.
	Filename string

	// UserID scopes account matching. Empty disables it.
	UserID string

	// Dialect fixes numeric date ordering for the whole document. It is
	// only honored when ForceDialect is set; otherwise each importer
	// detects the dialect from the document itself.
	Dialect      money.Dialect
	ForceDialect bool

	// Accounts, when set, is consulted to match the detected account
	// against known ones.
	Accounts AccountMatcher

	// Baseline, when set, supplies categories for rows whose source data
	// carries none.
	Baseline category.Source
}

// Importer parses one statement format into an ImportResult.
type Importer interface {
	// Name returns the format name, like "csv" or "pdf".
	Name() string

	// Import reads a whole statement and returns every transaction it
	// could parse plus a row-level error for every one it could not.
	Import(ctx context.Context, r io.Reader, opts Options) (*types.ImportResult, error)
}

// Registry maintains the available importer implementations.
type Registry struct {
	importers map[string]Importer
}

// NewRegistry creates an empty importer registry.
func NewRegistry() *Registry {
	return &Registry{
		importers: make(map[string]Importer),
	}
}

// Register adds an importer to the registry.
func (r *Registry) Register(i Importer) {
	r.importers[i.Name()] = i
}

// Get returns an importer by format name.
func (r *Registry) Get(name string) (Importer, bool) {
	i, ok := r.importers[name]
	return i, ok
}

// List returns the names of all registered importers.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.importers))
	for name := range r.importers {
		names = append(names, name)
	}
	return names
}

// matchAccount fills in result.MatchedAccountID when both an account was
// detected and a matcher is configured. Match failures are logged, not
// fatal: an import without a match is still an import.
func matchAccount(ctx context.Context, logger *log.Logger, opts Options, result *types.ImportResult) {
	if result.DetectedAccount == nil || opts.Accounts == nil || opts.UserID == "" {
		return
	}
	id, ok, err := opts.Accounts.MatchExistingAccount(ctx, opts.UserID, *result.DetectedAccount)
	if err != nil {
		logger.Warn("account matching failed", "error", err)
		return
	}
	if ok {
		result.MatchedAccountID = &id
	}
}

// reconcile determines the final category for one transaction, asking the
// baseline source first when the row carried no category of its own.
func reconcile(ctx context.Context, logger *log.Logger, opts Options, reconciler *category.Reconciler, in category.Input) category.Mapping {
	if in.SourcePrimary == "" && in.SourceDetailed == "" && opts.Baseline != nil {
		primary, detailed, err := opts.Baseline.Baseline(ctx, in.Description, in.MerchantName)
		if err != nil {
			logger.Debug("baseline categorization failed", "error", err)
		} else {
			in.SourcePrimary = primary
			in.SourceDetailed = detailed
		}
	}
	return reconciler.Determine(in)
}
