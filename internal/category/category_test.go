package category

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newTestReconciler() *Reconciler {
	return NewReconciler(log.New(io.Discard))
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDeterminePayment(t *testing.T) {
	r := newTestReconciler()

	m := r.Determine(Input{Description: "PAYMENT THANK YOU - WEB", Amount: amt("250.00")})
	assert.Equal(t, Mapping{Primary: "payment", Detailed: "payment"}, m)

	m = r.Determine(Input{Description: "AUTOPAY RECEIVED", Amount: amt("-120.00")})
	assert.Equal(t, "payment", m.Primary)
}

func TestDetermineRecurringACHDebit(t *testing.T) {
	r := newTestReconciler()
	m := r.Determine(Input{
		Description:    "CITY WATER recurring bill",
		PaymentChannel: "ach",
		Amount:         amt("-60.00"),
	})
	assert.Equal(t, "payment", m.Primary)
}

// An inbound ACH is never a payment, whatever its memo says.
func TestDeterminePositiveACHIsIncome(t *testing.T) {
	r := newTestReconciler()
	m := r.Determine(Input{
		Description:    "ACME CORP recurring payroll",
		PaymentChannel: "ach",
		Amount:         amt("2500.00"),
	})
	assert.Equal(t, "income", m.Primary)
	assert.False(t, m.Overridden)
}

// CD interest arriving as an ACH credit is investment activity, not
// income, even though an inbound ACH normally reads as income.
func TestDetermineCDInterestViaACHIsInvestment(t *testing.T) {
	r := newTestReconciler()
	m := r.Determine(Input{
		Description:    "CD INTEREST CREDIT",
		PaymentChannel: "ach",
		Amount:         amt("45.00"),
	})
	assert.Equal(t, "investment", m.Primary)
	assert.Equal(t, "investment", m.Detailed)
}

func TestDetermineInvestmentKeywords(t *testing.T) {
	r := newTestReconciler()
	for _, desc := range []string{
		"CD DEPOSIT RENEWAL",
		"VANGUARD MUTUAL FUND PURCHASE",
		"401K CONTRIBUTION",
		"BROKERAGE TRANSFER",
	} {
		m := r.Determine(Input{Description: desc, Amount: amt("-500.00")})
		assert.Equal(t, "investment", m.Primary, desc)
	}
}

// Investment keywords outrank the taxonomy, so a CD never lands in
// entertainment by way of a source category.
func TestDetermineInvestmentBeatsTaxonomy(t *testing.T) {
	r := newTestReconciler()
	m := r.Determine(Input{
		SourcePrimary: "ENTERTAINMENT",
		Description:   "CERTIFICATE OF DEPOSIT interest",
		Amount:        amt("12.00"),
	})
	assert.Equal(t, "investment", m.Primary)
}

func TestDetermineHSA(t *testing.T) {
	r := newTestReconciler()

	// Inflows to an HSA are contributions, classified as investment.
	m := r.Determine(Input{
		AccountSubtype: "hsa",
		Description:    "EMPLOYER CONTRIBUTION",
		Amount:         amt("300.00"),
	})
	assert.Equal(t, "investment", m.Primary)

	// Outflows are healthcare spending.
	m = r.Determine(Input{
		AccountSubtype: "hsa",
		Description:    "WALGREENS PURCHASE",
		Amount:         amt("-42.10"),
	})
	assert.Equal(t, "healthcare", m.Primary)
}

func TestDetermineTaxonomy(t *testing.T) {
	r := newTestReconciler()

	cases := []struct {
		in   Input
		want string
	}{
		{Input{SourceDetailed: "RESTAURANTS"}, "dining"},
		{Input{SourceDetailed: "SUPERMARKETS"}, "groceries"},
		{Input{SourcePrimary: "FOOD_AND_DRINK"}, "dining"},
		{Input{SourcePrimary: "RENT_AND_UTILITIES"}, "rent"},
		{Input{SourcePrimary: "TRANSFER_IN"}, "income"},
		{Input{SourcePrimary: "unknown_category"}, "other"},
	}
	for _, tc := range cases {
		m := r.Determine(tc.in)
		assert.Equal(t, tc.want, m.Primary, "%+v", tc.in)
	}
}

// A detailed source category beats the primary one.
func TestDetermineDetailedBeatsPrimary(t *testing.T) {
	r := newTestReconciler()
	m := r.Determine(Input{SourcePrimary: "ENTERTAINMENT", SourceDetailed: "GROCERIES"})
	assert.Equal(t, "groceries", m.Primary)
	assert.Equal(t, "groceries", m.Detailed)
}

// An unmapped but non-empty source primary passes through untouched.
func TestDeterminePassthrough(t *testing.T) {
	r := newTestReconciler()
	m := r.Determine(Input{SourcePrimary: "CRYPTO_EXCHANGE"})
	assert.Equal(t, "CRYPTO_EXCHANGE", m.Primary)
}

func TestDetermineMerchantKeywords(t *testing.T) {
	r := newTestReconciler()
	m := r.Determine(Input{MerchantName: "STARBUCKS STORE 05544", Amount: amt("-5.40")})
	assert.Equal(t, "dining", m.Detailed)

	m = r.Determine(Input{Description: "SAFEWAY #1444 BELLEVUE WA", Amount: amt("-14.27")})
	assert.Equal(t, "groceries", m.Detailed)
}

func TestDetermineFallback(t *testing.T) {
	r := newTestReconciler()
	m := r.Determine(Input{})
	assert.Equal(t, Mapping{Primary: "other", Detailed: "other"}, m)
}

func TestApplyOverride(t *testing.T) {
	orig := Mapping{Primary: "dining", Detailed: "dining"}

	m := ApplyOverride(orig, "groceries", "groceries")
	assert.Equal(t, Mapping{Primary: "groceries", Detailed: "groceries", Overridden: true}, m)

	// Blank override halves keep the original value.
	m = ApplyOverride(orig, "", "subscriptions")
	assert.Equal(t, Mapping{Primary: "dining", Detailed: "subscriptions", Overridden: true}, m)

	// The original mapping is untouched.
	assert.False(t, orig.Overridden)
}
