package importer

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/bank-statement-importer/internal/category"
	"github.com/lox/bank-statement-importer/internal/types"
)

func newTestPDFImporter() *PDFImporter {
	logger := log.New(io.Discard)
	return NewPDFImporter(logger, category.NewReconciler(logger))
}

const chaseStatement = `Chase Credit Card Statement
Statement Closing Date: 11/30/2023
Account Number Ending in 1234
Payment Due Date: 12/27/2023
Minimum Payment Due: $35.00
New Balance: $1,234.56
Points balance as of 11/30/2023: 12,345

TOM TRACKER
11/25 11/25 SAFEWAY #1444 BELLEVUE WA $14.27
11/26 COSTCO WHSE #0110 ISSAQUAH WA $102.35
11/27 ADJUSTMENT $0.00
11/28 PAYMENT THANK YOU -$250.00
`

func TestPDFImport(t *testing.T) {
	imp := newTestPDFImporter()
	result, err := imp.Import(context.Background(), strings.NewReader(chaseStatement), Options{
		Filename: "chase_2023_11.pdf",
	})
	require.NoError(t, err)

	require.Len(t, result.Transactions, 3)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Zero(t, result.ErrorCount)

	tx := result.Transactions[0]
	assert.Equal(t, "SAFEWAY #1444 BELLEVUE WA", tx.Description)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("14.27")), "got %s", tx.Amount)
	assert.Equal(t, 2023, tx.Date.Year())
	assert.Equal(t, 11, int(tx.Date.Month()))
	assert.Equal(t, 25, tx.Date.Day())
	assert.Equal(t, "TOM TRACKER", tx.HolderName)
	assert.Equal(t, "groceries", tx.CategoryDetailed)

	assert.Equal(t, "payment", result.Transactions[2].CategoryPrimary)
}

func TestPDFImportDetectsAccount(t *testing.T) {
	imp := newTestPDFImporter()
	result, err := imp.Import(context.Background(), strings.NewReader(chaseStatement), Options{})
	require.NoError(t, err)

	acct := result.DetectedAccount
	require.NotNil(t, acct)
	require.NotNil(t, acct.InstitutionName)
	assert.Equal(t, "Chase", *acct.InstitutionName)
	require.NotNil(t, acct.AccountNumber)
	assert.Equal(t, "1234", *acct.AccountNumber)
	require.NotNil(t, acct.AccountType)
	assert.Equal(t, "creditCard", *acct.AccountType)
	require.NotNil(t, acct.HolderName)
	assert.Equal(t, "TOM TRACKER", *acct.HolderName)
}

func TestPDFImportMetadata(t *testing.T) {
	imp := newTestPDFImporter()
	result, err := imp.Import(context.Background(), strings.NewReader(chaseStatement), Options{})
	require.NoError(t, err)

	require.NotNil(t, result.PaymentDueDate)
	assert.Equal(t, 2023, result.PaymentDueDate.Year())
	assert.Equal(t, 12, int(result.PaymentDueDate.Month()))
	assert.Equal(t, 27, result.PaymentDueDate.Day())

	require.NotNil(t, result.MinimumPaymentDue)
	assert.True(t, result.MinimumPaymentDue.Equal(decimal.RequireFromString("35.00")))

	require.NotNil(t, result.RewardPoints)
	assert.Equal(t, int64(12345), *result.RewardPoints)

	require.NotNil(t, result.RewardBalance)
	assert.True(t, result.RewardBalance.Equal(decimal.RequireFromString("1234.56")))
}

type stubMatcher struct {
	id string
	ok bool
}

func (s stubMatcher) MatchExistingAccount(ctx context.Context, userID string, acct types.DetectedAccount) (string, bool, error) {
	return s.id, s.ok, nil
}

func TestPDFImportMatchesAccount(t *testing.T) {
	imp := newTestPDFImporter()
	result, err := imp.Import(context.Background(), strings.NewReader(chaseStatement), Options{
		UserID:   "user-1",
		Accounts: stubMatcher{id: "acct-42", ok: true},
	})
	require.NoError(t, err)
	require.NotNil(t, result.MatchedAccountID)
	assert.Equal(t, "acct-42", *result.MatchedAccountID)
}

func TestPDFImportNoMatcherConfigured(t *testing.T) {
	imp := newTestPDFImporter()
	result, err := imp.Import(context.Background(), strings.NewReader(chaseStatement), Options{})
	require.NoError(t, err)
	assert.Nil(t, result.MatchedAccountID)
}

// Each statement section belongs to the holder named just above it.
func TestPDFImportPerSectionHolders(t *testing.T) {
	imp := newTestPDFImporter()
	doc := `Chase Credit Card Statement
Statement Closing Date: 11/30/2023

TOM TRACKER
11/25 SAFEWAY #1444 $14.27

JANE TRACKER
11/26 STARBUCKS STORE 05544 $5.40
`
	result, err := imp.Import(context.Background(), strings.NewReader(doc), Options{})
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "TOM TRACKER", result.Transactions[0].HolderName)
	assert.Equal(t, "JANE TRACKER", result.Transactions[1].HolderName)
}

func TestPDFDetectShape(t *testing.T) {
	imp := newTestPDFImporter()

	shape := imp.detectShape("Date\tPost Date\tDescription\tAmount\n11/25/2023\t11/26/2023\tSTORE\t-1.00\n")
	assert.Equal(t, []string{"date", "post date", "description", "amount"}, shape.Columns)
	assert.Equal(t, 2, shape.DateColumns)

	// A detected header with no date column is not a transaction table.
	shape = imp.detectShape("Name\tPhone\tEmail\nTom\t555-0199\ttom@example.com\n")
	assert.Equal(t, []string{"date", "description", "amount"}, shape.Columns)
}

func TestPDFImportOversizedInput(t *testing.T) {
	imp := newTestPDFImporter()

	var b strings.Builder
	b.WriteString("Chase Credit Card Statement\nStatement Closing Date: 11/30/2023\n")
	for i := 0; i < maxInputLines+500; i++ {
		b.WriteString("11/25 STORE PURCHASE $1.00\n")
	}
	result, err := imp.Import(context.Background(), strings.NewReader(b.String()), Options{})
	require.NoError(t, err)
	assert.LessOrEqual(t, result.SuccessCount, maxInputLines)
	assert.Greater(t, result.SuccessCount, 0)
}

func TestPDFImportEmpty(t *testing.T) {
	imp := newTestPDFImporter()
	result, err := imp.Import(context.Background(), strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Transactions)
}

func TestRegistry(t *testing.T) {
	logger := log.New(io.Discard)
	reconciler := category.NewReconciler(logger)

	registry := NewRegistry()
	registry.Register(NewCSVImporter(logger, reconciler))
	registry.Register(NewPDFImporter(logger, reconciler))

	imp, ok := registry.Get("csv")
	require.True(t, ok)
	assert.Equal(t, "csv", imp.Name())

	_, ok = registry.Get("qif")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"csv", "pdf"}, registry.List())
}

func TestInferStatementYear(t *testing.T) {
	cases := []struct {
		name     string
		lines    []string
		filename string
		want     int
	}{
		{"closing date", []string{"Statement Closing Date: 11/30/2023"}, "", 2023},
		{"due date", []string{"Payment Due Date: 01/15/2024"}, "", 2024},
		{"statement period", []string{"Statement Period 11/01/2023 to 11/30/2023"}, "", 2023},
		{"iso date", []string{"Generated 2022-12-01"}, "", 2022},
		{"filename fallback", []string{"no dates here"}, "chase_2021_11.pdf", 2021},
		{"nothing", []string{"no dates here"}, "statement.pdf", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, inferStatementYear(tc.lines, tc.filename))
		})
	}
}
