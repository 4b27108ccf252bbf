// Package category reconciles transaction categories from several
// competing signals: the source data's own category, the account's
// nature, and keywords in the merchant name and description. The rules
// are an ordered chain and the first one that applies wins, so the
// precedence is explicit rather than an accident of code layout.
package category

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
)

// Mapping is a reconciled category: a broad primary, a narrower detailed,
// and whether a user override produced it.
type Mapping struct {
	Primary    string `json:"primary"`
	Detailed   string `json:"detailed"`
	Overridden bool   `json:"overridden"`
}

// Input carries everything a rule may inspect about one transaction.
type Input struct {
	SourcePrimary  string
	SourceDetailed string
	MerchantName   string
	Description    string
	PaymentChannel string
	Amount         decimal.Decimal
	AccountType    string
	AccountSubtype string
}

func (in Input) combinedText() string {
	return strings.ToLower(strings.TrimSpace(in.MerchantName + " " + in.Description))
}

// Rule is one step in the chain. Apply reports whether the rule claimed
// the transaction.
type Rule struct {
	Name  string
	Apply func(Input) (Mapping, bool)
}

// Source produces a baseline category for transactions whose source data
// carries none, typically by asking an external classifier.
type Source interface {
	Baseline(ctx context.Context, description, merchant string) (primary, detailed string, err error)
}

var paymentKeywords = []string{
	"payment thank you", "credit card payment", "cc payment", "card payment",
	"bill pay", "billpay", "autopay", "auto pay", "online payment",
	"e-payment", "epayment", "loan payment", "mortgage payment",
}

var recurringKeywords = []string{"recurring", "autopay", "subscription", "bill"}

var investmentKeywords = []string{
	"cd deposit", "certificate of deposit", "cd maturity", "cd interest",
	" stock", " bond", "mutual fund", " etf", "401k", " ira",
	"retirement", "brokerage", "dividend",
}

// primaryTaxonomy maps source primary categories to internal ones.
var primaryTaxonomy = map[string]string{
	"FOOD_AND_DRINK":            "dining",
	"GENERAL_MERCHANDISE":       "shopping",
	"GENERAL_SERVICES":          "utilities",
	"GOVERNMENT_AND_NON_PROFIT": "other",
	"HOME_IMPROVEMENT":          "other",
	"MEDICAL":                   "healthcare",
	"PERSONAL_CARE":             "other",
	"TRANSPORTATION":            "transportation",
	"TRAVEL":                    "travel",
	"RENT_AND_UTILITIES":        "rent",
	"ENTERTAINMENT":             "entertainment",
	"INCOME":                    "income",
	"TRANSFER_IN":               "income",
	"TRANSFER_OUT":              "other",
	"LOAN_PAYMENTS":             "other",
	"BANK_FEES":                 "other",
	"GAS_STATIONS":              "transportation",
	"GROCERIES":                 "groceries",
	"SUBSCRIPTIONS":             "subscriptions",
	"INVESTMENT":                "investment",
}

// detailedTaxonomy maps source detailed categories; it beats the primary
// map because it carries more information.
var detailedTaxonomy = map[string]string{
	"RESTAURANTS":              "dining",
	"FAST_FOOD":                "dining",
	"COFFEE_SHOPS":             "dining",
	"FOOD_DELIVERY":            "dining",
	"ALCOHOL_AND_BARS":         "dining",
	"GROCERIES":                "groceries",
	"SUPERMARKETS":             "groceries",
	"GAS_STATIONS":             "transportation",
	"PUBLIC_TRANSPORTATION":    "transportation",
	"TAXI":                     "transportation",
	"RIDE_SHARE":               "transportation",
	"PARKING":                  "transportation",
	"TOLLS":                    "transportation",
	"GENERAL_MERCHANDISE":      "shopping",
	"ONLINE_MARKETPLACES":      "shopping",
	"DEPARTMENT_STORES":        "shopping",
	"CLOTHING_AND_ACCESSORIES": "shopping",
	"ELECTRONICS":              "shopping",
	"ENTERTAINMENT":            "entertainment",
	"MOVIES_AND_DVDS":          "entertainment",
	"GAMES_AND_GAMING":         "entertainment",
	"SPORTS_AND_RECREATION":    "entertainment",
	"MUSIC_AND_AUDIO":          "subscriptions",
	"SOFTWARE_SUBSCRIPTIONS":   "subscriptions",
	"STREAMING_SERVICES":       "subscriptions",
	"MUSIC_STREAMING":          "subscriptions",
	"NEWS_SUBSCRIPTIONS":       "subscriptions",
	"GAMING_SUBSCRIPTIONS":     "subscriptions",
	"HOTELS_AND_ACCOMMODATIONS": "travel",
	"AIR_TRAVEL":               "travel",
	"RENTAL_CARS":              "travel",
	"TRAVEL_AGENCIES":          "travel",
	"RENT":                     "rent",
	"UTILITIES":                "utilities",
	"ELECTRICITY":              "utilities",
	"WATER":                    "utilities",
	"GAS_AND_HEATING":          "utilities",
	"INTERNET_AND_PHONE":       "utilities",
	"CABLE":                    "utilities",
	"SALARY":                   "income",
	"PAYROLL":                  "income",
	"DIVIDENDS":                "income",
	"INTEREST_EARNED":          "income",
	"GIG_ECONOMY":              "income",
	"RENTAL_INCOME":            "income",
	"INVESTMENT_INCOME":        "income",
	"PRIMARY_CARE":             "healthcare",
	"DENTAL_CARE":              "healthcare",
	"PHARMACIES":               "healthcare",
	"HOSPITALS":                "healthcare",
	"HEALTH_INSURANCE":         "healthcare",
	"CD_DEPOSIT":               "investment",
	"CERTIFICATE_OF_DEPOSIT":   "investment",
	"STOCKS":                   "investment",
	"BONDS":                    "investment",
	"MUTUAL_FUNDS":             "investment",
	"ETF":                      "investment",
	"BROKERAGE":                "investment",
	"RETIREMENT":               "investment",
}

// Reconciler determines a final category for each transaction by running
// an ordered rule chain.
type Reconciler struct {
	logger *log.Logger
	rules  []Rule
}

// NewReconciler builds the standard rule chain. Order is the contract:
// payments are claimed before investment keywords, investment keywords
// before HSA account logic, both before an inbound ACH is presumed
// income, and the static taxonomy before the fallback. CD interest
// arriving by ACH is still an investment, not income.
func NewReconciler(logger *log.Logger) *Reconciler {
	r := &Reconciler{logger: logger}
	r.rules = []Rule{
		{Name: "payment", Apply: paymentRule},
		{Name: "investment-keywords", Apply: investmentRule},
		{Name: "hsa-account", Apply: hsaRule},
		{Name: "ach-credit", Apply: achCreditRule},
		{Name: "taxonomy", Apply: r.taxonomyRule},
		{Name: "fallback", Apply: fallbackRule},
	}
	return r
}

// Determine runs the chain and returns the first mapping claimed. The
// fallback rule always claims, so the result is never empty.
func (r *Reconciler) Determine(in Input) Mapping {
	for _, rule := range r.rules {
		if m, ok := rule.Apply(in); ok {
			r.logger.Debug("category determined", "rule", rule.Name,
				"primary", m.Primary, "detailed", m.Detailed)
			return m
		}
	}
	// Unreachable while fallback is last.
	return Mapping{Primary: "other", Detailed: "other"}
}

// ApplyOverride returns a new mapping carrying the user's categories,
// keeping the original value for any part the override leaves blank.
func ApplyOverride(m Mapping, primary, detailed string) Mapping {
	out := Mapping{Primary: m.Primary, Detailed: m.Detailed, Overridden: true}
	if primary != "" {
		out.Primary = primary
	}
	if detailed != "" {
		out.Detailed = detailed
	}
	return out
}

// paymentRule claims card and loan payments. A negative ACH with
// recurring language also counts; a positive ACH never does, since an
// inbound transfer is income no matter what its memo says.
func paymentRule(in Input) (Mapping, bool) {
	text := in.combinedText()
	for _, kw := range paymentKeywords {
		if strings.Contains(text, kw) {
			return Mapping{Primary: "payment", Detailed: "payment"}, true
		}
	}
	if isACH(in.PaymentChannel) && in.Amount.IsNegative() {
		for _, kw := range recurringKeywords {
			if strings.Contains(text, kw) {
				return Mapping{Primary: "payment", Detailed: "payment"}, true
			}
		}
	}
	return Mapping{}, false
}

// achCreditRule treats an inbound ACH with no source category as income.
func achCreditRule(in Input) (Mapping, bool) {
	if isACH(in.PaymentChannel) && in.Amount.IsPositive() &&
		in.SourcePrimary == "" && in.SourceDetailed == "" {
		return Mapping{Primary: "income", Detailed: "income"}, true
	}
	return Mapping{}, false
}

func isACH(channel string) bool {
	c := strings.ToLower(channel)
	return strings.Contains(c, "ach") || strings.Contains(c, "electronic") || strings.Contains(c, "wire")
}

// investmentRule claims CD, brokerage and retirement activity before the
// taxonomy gets a chance to file it under entertainment or shopping.
func investmentRule(in Input) (Mapping, bool) {
	text := " " + in.combinedText()
	for _, kw := range investmentKeywords {
		if strings.Contains(text, kw) {
			return Mapping{Primary: "investment", Detailed: "investment"}, true
		}
	}
	return Mapping{}, false
}

// hsaRule handles health savings accounts: inflows are contributions and
// count as investment, outflows are healthcare spending unless the source
// already said something health-shaped.
func hsaRule(in Input) (Mapping, bool) {
	acct := strings.ToLower(in.AccountType + " " + in.AccountSubtype)
	if !strings.Contains(acct, "hsa") {
		return Mapping{}, false
	}
	if in.Amount.IsPositive() {
		return Mapping{Primary: "investment", Detailed: "investment"}, true
	}
	// Outflows keep a source-specific healthcare detail when there is one.
	if d, ok := detailedTaxonomy[strings.ToUpper(in.SourceDetailed)]; ok && d == "healthcare" {
		return Mapping{Primary: "healthcare", Detailed: d}, true
	}
	return Mapping{Primary: "healthcare", Detailed: "healthcare"}, true
}

// taxonomyRule consults the static maps, detailed before primary, then
// falls back to merchant keywords for the detailed half. An unmapped but
// non-empty source primary passes through as-is rather than degrading to
// other.
func (r *Reconciler) taxonomyRule(in Input) (Mapping, bool) {
	var primary, detailed string

	if in.SourceDetailed != "" {
		if mapped, ok := detailedTaxonomy[strings.ToUpper(in.SourceDetailed)]; ok {
			detailed = mapped
			primary = mapped
		}
	}
	if primary == "" && in.SourcePrimary != "" {
		upper := strings.ToUpper(in.SourcePrimary)
		if upper == "UNKNOWN_CATEGORY" {
			primary = "other"
		} else if mapped, ok := primaryTaxonomy[upper]; ok {
			primary = mapped
		} else {
			primary = in.SourcePrimary
		}
	}
	if detailed == "" {
		detailed = merchantDetail(in.combinedText())
	}

	if primary == "" && detailed == "" {
		return Mapping{}, false
	}
	if primary == "" {
		primary = detailed
	}
	if detailed == "" {
		detailed = primary
	}
	return Mapping{Primary: primary, Detailed: detailed}, true
}

func merchantDetail(text string) string {
	switch {
	case containsAny(text, "mcdonald", "starbucks", "kfc", "burger", "pizza", "coffee", "restaurant", "dining"):
		return "dining"
	case containsAny(text, "walmart", "target", "kroger", "supermarket", "grocer", "safeway"):
		return "groceries"
	case containsAny(text, "uber", "lyft", "taxi", "gas station", "fuel"):
		return "transportation"
	case containsAny(text, "netflix", "spotify", "subscription"):
		return "subscriptions"
	}
	return ""
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func fallbackRule(Input) (Mapping, bool) {
	return Mapping{Primary: "other", Detailed: "other"}, true
}
