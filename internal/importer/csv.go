package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/bank-statement-importer/internal/category"
	"github.com/lox/bank-statement-importer/internal/money"
	"github.com/lox/bank-statement-importer/internal/types"
)

// Column aliases seen across bank CSV exports, lowercased. Matching is
// by containment, so "Transaction Date" resolves to the date column.
var (
	dateAliases        = []string{"date"}
	descriptionAliases = []string{"description", "memo", "payee", "merchant", "narrative", "details"}
	amountAliases      = []string{"amount"}
	debitAliases       = []string{"debit", "withdrawal", "money out", "paid out"}
	creditAliases      = []string{"credit", "deposit", "money in", "paid in"}
	categoryAliases    = []string{"category"}
	accountAliases     = []string{"account number", "account"}
)

// CSVImporter parses bank CSV exports.
type CSVImporter struct {
	logger     *log.Logger
	reconciler *category.Reconciler
}

func NewCSVImporter(logger *log.Logger, reconciler *category.Reconciler) *CSVImporter {
	return &CSVImporter{logger: logger, reconciler: reconciler}
}

func (c *CSVImporter) Name() string {
	return "csv"
}

// csvColumns is the resolved mapping from logical fields to header
// positions, -1 meaning absent.
type csvColumns struct {
	date, description, amount, debit, credit, category, account int
}

func resolveColumns(header []string) csvColumns {
	cols := csvColumns{date: -1, description: -1, amount: -1, debit: -1, credit: -1, category: -1, account: -1}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		switch {
		case cols.date == -1 && matchesAlias(lower, dateAliases) && !matchesAlias(lower, []string{"due date"}):
			cols.date = i
		case cols.description == -1 && matchesAlias(lower, descriptionAliases):
			cols.description = i
		// Debit and credit resolve before amount so that a "Debit Amount"
		// column folds by sign instead of posing as the signed amount.
		case cols.debit == -1 && matchesAlias(lower, debitAliases):
			cols.debit = i
		case cols.credit == -1 && matchesAlias(lower, creditAliases):
			cols.credit = i
		case cols.amount == -1 && matchesAlias(lower, amountAliases):
			cols.amount = i
		case cols.category == -1 && matchesAlias(lower, categoryAliases):
			cols.category = i
		case cols.account == -1 && matchesAlias(lower, accountAliases):
			cols.account = i
		}
	}
	return cols
}

func matchesAlias(header string, aliases []string) bool {
	for _, a := range aliases {
		if strings.Contains(header, a) {
			return true
		}
	}
	return false
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// Import reads the whole CSV. Rows that fail to parse become ImportErrors
// rather than failing the import; only a missing or header-less document
// is a hard error.
func (c *CSVImporter) Import(ctx context.Context, r io.Reader, opts Options) (*types.ImportResult, error) {
	text, err := readBounded(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) > maxInputLines {
		c.logger.Warn("truncating csv records", "records", len(records), "cap", maxInputLines)
		records = records[:maxInputLines]
	}
	if len(records) == 0 {
		return &types.ImportResult{}, nil
	}

	header := records[0]
	cols := resolveColumns(header)
	if cols.date == -1 {
		return nil, fmt.Errorf("csv has no recognizable date column in header %v", header)
	}
	if cols.amount == -1 && cols.debit == -1 && cols.credit == -1 {
		return nil, fmt.Errorf("csv has no recognizable amount column in header %v", header)
	}

	dialect := opts.Dialect
	if !opts.ForceDialect {
		dialect = c.detectDialect(records[1:], cols.date)
	}
	c.logger.Debug("importing csv", "rows", len(records)-1, "dialect", dialect)

	result := &types.ImportResult{}
	for i, record := range records[1:] {
		row := i + 2 // 1-based, counting the header
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isBlankRecord(record) {
			continue
		}

		tx, skip, err := c.importRow(ctx, record, cols, dialect, opts)
		if err != nil {
			result.Errors = append(result.Errors, types.ImportError{
				Row:     row,
				Line:    strings.Join(record, ","),
				Message: err.Error(),
			})
			result.ErrorCount++
			continue
		}
		if skip {
			continue
		}
		tx.SourceRow = row
		result.Transactions = append(result.Transactions, tx)
		result.SuccessCount++

		if result.DetectedAccount == nil {
			if num := field(record, cols.account); num != "" {
				result.DetectedAccount = &types.DetectedAccount{AccountNumber: types.StringPtr(num)}
			}
		}
	}

	matchAccount(ctx, c.logger, opts, result)
	return result, nil
}

// importRow converts one record. The skip return marks rows that are
// valid but not transactions, like near-zero informational lines.
func (c *CSVImporter) importRow(ctx context.Context, record []string, cols csvColumns, dialect money.Dialect, opts Options) (types.ParsedTransaction, bool, error) {
	var tx types.ParsedTransaction

	rawDate := field(record, cols.date)
	if rawDate == "" {
		return tx, false, fmt.Errorf("missing date")
	}
	date, err := money.ParseDate(rawDate, dialect, 0)
	if err != nil {
		return tx, false, fmt.Errorf("bad date: %w", err)
	}

	rawAmount, err := c.resolveAmount(record, cols)
	if err != nil {
		return tx, false, err
	}
	amount, err := money.ParseAmount(rawAmount)
	if err != nil {
		return tx, false, fmt.Errorf("bad amount: %w", err)
	}
	if money.IsNearZero(amount) {
		return tx, true, nil
	}

	tx.Date = date
	tx.Amount = amount
	tx.CurrencyCode = money.DetectCurrency(rawAmount, opts.Filename)
	tx.Description = field(record, cols.description)

	mapping := reconcile(ctx, c.logger, opts, c.reconciler, category.Input{
		SourcePrimary: field(record, cols.category),
		Description:   tx.Description,
		Amount:        amount,
	})
	tx.CategoryPrimary = mapping.Primary
	tx.CategoryDetailed = mapping.Detailed
	tx.CategoryOverridden = mapping.Overridden

	return tx, false, nil
}

// resolveAmount prefers a single signed amount column, folding separate
// debit and credit columns into one signed value otherwise: debits spend
// money and come out negative, credits positive.
func (c *CSVImporter) resolveAmount(record []string, cols csvColumns) (string, error) {
	if v := field(record, cols.amount); v != "" {
		return v, nil
	}
	debit := field(record, cols.debit)
	credit := field(record, cols.credit)
	switch {
	case debit != "" && credit != "":
		return "", fmt.Errorf("row has both debit and credit values")
	case debit != "":
		if strings.HasPrefix(debit, "-") {
			return debit, nil
		}
		return "-" + debit, nil
	case credit != "":
		return credit, nil
	}
	return "", fmt.Errorf("missing amount")
}

func (c *CSVImporter) detectDialect(records [][]string, dateCol int) money.Dialect {
	var b strings.Builder
	for _, r := range records {
		if v := field(r, dateCol); v != "" {
			b.WriteString(v)
			b.WriteString("\n")
		}
	}
	return money.DetectDialect(b.String())
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
