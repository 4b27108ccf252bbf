package importer

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/bank-statement-importer/internal/category"
	"github.com/lox/bank-statement-importer/internal/extract"
	"github.com/lox/bank-statement-importer/internal/holder"
	"github.com/lox/bank-statement-importer/internal/money"
	"github.com/lox/bank-statement-importer/internal/rewards"
	"github.com/lox/bank-statement-importer/internal/table"
	"github.com/lox/bank-statement-importer/internal/types"
)

// PDFImporter parses text extracted from PDF statements. The text has
// lost its layout, so everything is reconstructed from line shape: table
// detection for the header, anchor extraction for rows, lookback scans
// for holder names.
type PDFImporter struct {
	logger     *log.Logger
	reconciler *category.Reconciler
	tables     *table.Detector
	holders    *holder.Detector
}

func NewPDFImporter(logger *log.Logger, reconciler *category.Reconciler) *PDFImporter {
	return &PDFImporter{
		logger:     logger,
		reconciler: reconciler,
		tables:     table.NewDetector(logger),
		holders:    holder.NewDetector(logger, nil),
	}
}

func (p *PDFImporter) Name() string {
	return "pdf"
}

var (
	endingInRe   = regexp.MustCompile(`(?i)(?:account|card)(?:\s+number)?\s+ending(?:\s+in)?\s+(\d{4})`)
	acctNumberRe = regexp.MustCompile(`(?i)account\s+(?:number|#)\s*[:\-]?\s*[x*.]*(\d{4})`)

	dueDateRe    = regexp.MustCompile(`(?i)payment\s+due\s+date\s*[:\-]?\s*(\d{1,2}/\d{1,2}/\d{2,4})`)
	minPaymentRe = regexp.MustCompile(`(?i)minimum\s+payment(?:\s+due)?\s*[:\-]?\s*(\$?[\d,]+\.\d{2})`)
)

// Institutions recognized by name in statement text. First hit wins, so
// the scan stops at the masthead rather than an advert further down.
var knownInstitutions = []string{
	"Chase", "Bank of America", "Wells Fargo", "Citi", "Capital One",
	"American Express", "Discover", "Fidelity", "Vanguard", "Charles Schwab",
	"US Bank", "PNC", "Truist", "USAA", "HSBC", "Barclays",
}

// accountTypeKeywords maps statement vocabulary to account types,
// checked in order: the more specific terms come first so "HSA checking"
// classifies as HSA.
var accountTypeKeywords = []struct {
	keyword string
	accType types.AccountType
}{
	{"health savings", types.AccountTypeHSA},
	{"hsa", types.AccountTypeHSA},
	{"brokerage", types.AccountTypeInvestment},
	{"401k", types.AccountTypeInvestment},
	{"ira ", types.AccountTypeInvestment},
	{"investment", types.AccountTypeInvestment},
	{"credit card", types.AccountTypeCreditCard},
	{"cardmember", types.AccountTypeCreditCard},
	{"savings", types.AccountTypeSavings},
	{"checking", types.AccountTypeChecking},
	{"loan", types.AccountTypeLoan},
}

// Import reads the whole extracted text and walks it line by line.
func (p *PDFImporter) Import(ctx context.Context, r io.Reader, opts Options) (*types.ImportResult, error) {
	text, err := readBounded(r)
	if err != nil {
		return nil, fmt.Errorf("reading statement text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return &types.ImportResult{}, nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > maxInputLines {
		p.logger.Warn("truncating statement lines", "lines", len(lines), "cap", maxInputLines)
		lines = lines[:maxInputLines]
		text = strings.Join(lines, "\n")
	}

	dialect := opts.Dialect
	if !opts.ForceDialect {
		dialect = money.DetectDialect(text)
	}
	year := inferStatementYear(lines, opts.Filename)
	p.logger.Debug("importing pdf text",
		"lines", len(lines), "dialect", dialect, "year", year)

	result := &types.ImportResult{}
	result.DetectedAccount = p.detectAccount(lines)

	shape := p.detectShape(text)

	p.extractMetadata(text, lines, dialect, result)

	accountType, accountSubtype := "", ""
	if result.DetectedAccount != nil {
		if result.DetectedAccount.AccountType != nil {
			accountType = *result.DetectedAccount.AccountType
		}
		if result.DetectedAccount.AccountSubtype != nil {
			accountSubtype = *result.DetectedAccount.AccountSubtype
		}
	}

	currentHolder := ""
	prevWasTransaction := false

	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			prevWasTransaction = false
			continue
		}
		if extract.IsInformational(line) {
			prevWasTransaction = false
			continue
		}

		fields, ok := extract.Row(line, shape, year)
		if !ok || !fields.Anchored() {
			prevWasTransaction = false
			continue
		}

		// A new run of transactions is a new statement section, and the
		// section's owner is named just above it.
		if !prevWasTransaction {
			if name, found := p.holders.BeforeLine(lines, i, result.DetectedAccount); found {
				currentHolder = name
				if result.DetectedAccount != nil && result.DetectedAccount.HolderName == nil {
					result.DetectedAccount.HolderName = types.StringPtr(name)
				}
			}
		}
		prevWasTransaction = true

		tx, err := p.buildTransaction(ctx, fields, dialect, accountType, accountSubtype, opts)
		if err != nil {
			result.Errors = append(result.Errors, types.ImportError{
				Row:     i + 1,
				Line:    strings.TrimSpace(line),
				Message: err.Error(),
			})
			result.ErrorCount++
			continue
		}
		tx.SourceRow = i + 1
		tx.HolderName = currentHolder
		result.Transactions = append(result.Transactions, tx)
		result.SuccessCount++
	}

	matchAccount(ctx, p.logger, opts, result)
	return result, nil
}

// detectShape runs table detection and falls back to the conventional
// date-description-amount layout when no header survived extraction or
// the detected header has no date column and so cannot be a transaction
// table.
func (p *PDFImporter) detectShape(text string) extract.Shape {
	structure := p.tables.Detect(text)
	if structure.IsEmpty() || structure.HeaderIndex("date") == -1 {
		return extract.NewShape([]string{"date", "description", "amount"})
	}
	return extract.NewShape(structure.Headers)
}

func (p *PDFImporter) buildTransaction(ctx context.Context, fields extract.Fields, dialect money.Dialect, accountType, accountSubtype string, opts Options) (types.ParsedTransaction, error) {
	var tx types.ParsedTransaction

	date, err := money.ParseDate(fields.Date, dialect, fields.Year)
	if err != nil {
		return tx, fmt.Errorf("bad date: %w", err)
	}
	amount, err := money.ParseAmount(fields.Amount)
	if err != nil {
		return tx, fmt.Errorf("bad amount: %w", err)
	}

	tx.Date = date
	tx.Amount = amount
	tx.CurrencyCode = money.DetectCurrency(fields.Amount, opts.Filename)
	tx.Description = fields.Description

	mapping := reconcile(ctx, p.logger, opts, p.reconciler, category.Input{
		Description:    fields.Description,
		Amount:         amount,
		AccountType:    accountType,
		AccountSubtype: accountSubtype,
	})
	tx.CategoryPrimary = mapping.Primary
	tx.CategoryDetailed = mapping.Detailed
	tx.CategoryOverridden = mapping.Overridden

	return tx, nil
}

// detectAccount scans the whole document for account identity: the
// institution masthead, a masked account number and the account type
// vocabulary. Nil when nothing at all was found.
func (p *PDFImporter) detectAccount(lines []string) *types.DetectedAccount {
	acct := &types.DetectedAccount{}
	lower := strings.ToLower(strings.Join(lines, "\n"))

	for _, inst := range knownInstitutions {
		if strings.Contains(lower, strings.ToLower(inst)) {
			acct.InstitutionName = types.StringPtr(inst)
			break
		}
	}

	for _, line := range lines {
		if m := endingInRe.FindStringSubmatch(line); m != nil {
			acct.AccountNumber = types.StringPtr(m[1])
			break
		}
		if m := acctNumberRe.FindStringSubmatch(line); m != nil {
			acct.AccountNumber = types.StringPtr(m[1])
			break
		}
	}

	for _, kw := range accountTypeKeywords {
		if strings.Contains(lower, kw.keyword) {
			acct.AccountType = types.StringPtr(string(kw.accType))
			break
		}
	}

	if acct.InstitutionName == nil && acct.AccountNumber == nil && acct.AccountType == nil {
		return nil
	}
	return acct
}

// extractMetadata pulls the statement-level figures: payment due date,
// minimum payment, reward points and the reward or statement balance.
func (p *PDFImporter) extractMetadata(text string, lines []string, dialect money.Dialect, result *types.ImportResult) {
	if m := dueDateRe.FindStringSubmatch(text); m != nil {
		if due, err := money.ParseDate(m[1], dialect, 0); err == nil {
			result.PaymentDueDate = &due
		}
	}
	if m := minPaymentRe.FindStringSubmatch(text); m != nil {
		if amt, err := money.ParseAmount(m[1]); err == nil {
			result.MinimumPaymentDue = &amt
		}
	}

	if points, ok := rewards.Points(lines); ok {
		result.RewardPoints = &points
	}

	accountType := ""
	if result.DetectedAccount != nil && result.DetectedAccount.AccountType != nil {
		accountType = *result.DetectedAccount.AccountType
	}
	if bal, ok := rewards.Balance(text, accountType); ok {
		result.RewardBalance = &bal
	}
}
