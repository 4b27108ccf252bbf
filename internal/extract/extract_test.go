package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	chaseShape  = NewShape([]string{"Date", "Post Date", "Description", "Amount"})
	simpleShape = NewShape([]string{"Date", "Description", "Amount"})
)

func TestRowTwoDates(t *testing.T) {
	f, ok := Row("11/25 11/25 SAFEWAY #1444 BELLEVUE WA $14.27", chaseShape, 2023)
	require.True(t, ok)
	assert.Equal(t, "11/25", f.Date)
	assert.Equal(t, "11/25", f.PostDate)
	assert.Equal(t, "SAFEWAY #1444 BELLEVUE WA", f.Description)
	assert.Equal(t, "$14.27", f.Amount)
	assert.Equal(t, 2023, f.Year)
	assert.True(t, f.Anchored())
}

func TestRowSingleDate(t *testing.T) {
	f, ok := Row("11/26 COSTCO WHSE #0110 ISSAQUAH WA -$102.35", simpleShape, 2023)
	require.True(t, ok)
	assert.Equal(t, "11/26", f.Date)
	assert.Empty(t, f.PostDate)
	assert.Equal(t, "COSTCO WHSE #0110 ISSAQUAH WA", f.Description)
	assert.Equal(t, "-$102.35", f.Amount)
}

// A header shape with two date columns demands both dates; a row with
// one falls through to the naive split instead of anchoring.
func TestRowTwoDateShapeRequiresBothDates(t *testing.T) {
	f, ok := Row("11/26 COSTCO WHSE #0110 ISSAQUAH WA -$102.35", chaseShape, 2023)
	require.True(t, ok)
	assert.False(t, f.Anchored())
}

// A single-date shape takes only the first date even when the line
// prints two; the repeat is stripped from the description.
func TestRowSingleDateShapeTakesFirstDate(t *testing.T) {
	f, ok := Row("11/25 11/25 SAFEWAY #1444 BELLEVUE WA $14.27", simpleShape, 2023)
	require.True(t, ok)
	assert.Equal(t, "11/25", f.Date)
	assert.Empty(t, f.PostDate)
	assert.Equal(t, "SAFEWAY #1444 BELLEVUE WA", f.Description)
}

// Thousands separators are optional: a four-digit amount without commas
// must anchor whole, never from its last three digits.
func TestRowAmountWithoutThousandsSeparators(t *testing.T) {
	f, ok := Row("11/25 RENT PAYMENT TO LANDLORD 1234.56", simpleShape, 2023)
	require.True(t, ok)
	assert.Equal(t, "1234.56", f.Amount)
	assert.Equal(t, "RENT PAYMENT TO LANDLORD", f.Description)

	f, ok = Row("11/25 RENT PAYMENT TO LANDLORD $1234.56", simpleShape, 2023)
	require.True(t, ok)
	assert.Equal(t, "$1234.56", f.Amount)
	assert.Equal(t, "RENT PAYMENT TO LANDLORD", f.Description)
}

// The rightmost amount wins when the description itself contains one.
func TestRowAmountInDescription(t *testing.T) {
	f, ok := Row("11/25 REFUND 12.00 CREDIT ADJUSTMENT $12.00", simpleShape, 2023)
	require.True(t, ok)
	assert.Equal(t, "$12.00", f.Amount)
	assert.Equal(t, "REFUND 12.00 CREDIT ADJUSTMENT", f.Description)
}

func TestRowParenthesizedAmount(t *testing.T) {
	f, ok := Row("11/25 RETURNED ITEM FEE ($35.00)", simpleShape, 2023)
	require.True(t, ok)
	assert.Equal(t, "($35.00)", f.Amount)
	assert.Equal(t, "RETURNED ITEM FEE", f.Description)
}

// A glued-on repeat of the date must not leak into the description.
func TestRowStripsRepeatedDates(t *testing.T) {
	f, ok := Row("11/25 11/25 11/25 STARBUCKS STORE 05544 $5.40", chaseShape, 2023)
	require.True(t, ok)
	assert.Equal(t, "STARBUCKS STORE 05544", f.Description)
}

func TestRowZeroAmountIsInformational(t *testing.T) {
	_, ok := Row("11/25 INTEREST CHARGE SUMMARY $0.00", simpleShape, 2023)
	assert.False(t, ok)
}

func TestRowBlankLine(t *testing.T) {
	_, ok := Row("   ", chaseShape, 2023)
	assert.False(t, ok)
}

// Lines without anchors fall back to a positional split against the
// header shape rather than being dropped.
func TestRowNaiveFallback(t *testing.T) {
	shape := NewShape([]string{"Date", "Description", "Amount"})
	f, ok := Row("2023-11-25\tGROCERY STORE\t14.27", shape, 0)
	require.True(t, ok)
	assert.False(t, f.Anchored())
	assert.Equal(t, "2023-11-25", f.Columns["date"])
	assert.Equal(t, "GROCERY STORE", f.Columns["description"])
	assert.Equal(t, "14.27", f.Columns["amount"])
}

func TestRowNaiveFallbackExtraFieldsJoinLastColumn(t *testing.T) {
	shape := NewShape([]string{"Date", "Amount", "Memo"})
	f, ok := Row("2023-11-25\t14.27\tGROCERY\tSTORE\tBELLEVUE", shape, 0)
	require.True(t, ok)
	assert.Equal(t, "GROCERY STORE BELLEVUE", f.Columns["memo"])
}

// Junk landing in the date column must not pose as a date.
func TestRowNaiveFallbackRejectsNonDate(t *testing.T) {
	shape := NewShape([]string{"Date", "Description", "Amount"})
	f, ok := Row("TOTAL\tFEES CHARGED\t14.27", shape, 0)
	require.True(t, ok)
	assert.Empty(t, f.Date)
	assert.Equal(t, "TOTAL", f.Columns["date"])
}

func TestRowNothingToSplit(t *testing.T) {
	_, ok := Row("justoneword", Shape{}, 0)
	assert.False(t, ok)
}

func TestIsInformational(t *testing.T) {
	for _, line := range []string{
		"Page 1 of 4",
		"Customer Service: 1-800-555-0199",
		"Your Annual Percentage Rate (APR) is the annual interest rate",
		"New Balance: $1,234.56",
		"Minimum Payment Due: $35.00",
	} {
		assert.True(t, IsInformational(line), line)
	}
	for _, line := range []string{
		"11/25 SAFEWAY #1444 BELLEVUE WA $14.27",
		"11/26 PAYMENT THANK YOU 250.00",
	} {
		assert.False(t, IsInformational(line), line)
	}
}

func TestNewShape(t *testing.T) {
	s := NewShape([]string{"Date", "Post Date", "Description", "Amount"})
	assert.Equal(t, 2, s.DateColumns)
	assert.Equal(t, []string{"date", "post date", "description", "amount"}, s.Columns)
}
