package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies the account a statement belongs to
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "creditCard"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeHSA        AccountType = "hsa"
	AccountTypeLoan       AccountType = "loan"
)

// ParsedTransaction is a single normalized transaction extracted from a
// statement, independent of the input format. Amounts follow the convention
// that purchases and debits are negative and payments and credits positive.
type ParsedTransaction struct {
	Date              time.Time       `json:"date"`
	Amount            decimal.Decimal `json:"amount"`
	CurrencyCode      string          `json:"currency_code"`
	Description       string          `json:"description"`
	MerchantName      string          `json:"merchant_name,omitempty"`
	AccountID         string          `json:"account_id,omitempty"`
	HolderName        string          `json:"holder_name,omitempty"`
	PaymentChannel    string          `json:"payment_channel,omitempty"`
	CategoryPrimary   string          `json:"category_primary,omitempty"`
	CategoryDetailed  string          `json:"category_detailed,omitempty"`
	CategoryOverridden bool           `json:"category_overridden,omitempty"`
	SourceRow         int             `json:"source_row,omitempty"`
}

// DetectedAccount describes what a statement reveals about its account.
// Every field is optional: nil means the statement never said, which is
// distinct from saying an empty value.
type DetectedAccount struct {
	InstitutionName *string `json:"institution_name,omitempty"`
	AccountName     *string `json:"account_name,omitempty"`
	AccountType     *string `json:"account_type,omitempty"`
	AccountSubtype  *string `json:"account_subtype,omitempty"`
	AccountNumber   *string `json:"account_number,omitempty"`
	HolderName      *string `json:"holder_name,omitempty"`
}

// ImportError records a single row that could not be parsed. Imports carry
// on past bad rows, so a result may hold both transactions and errors.
type ImportError struct {
	Row     int    `json:"row"`
	Line    string `json:"line,omitempty"`
	Message string `json:"message"`
}

// ImportResult is the full outcome of importing one statement file.
type ImportResult struct {
	Transactions      []ParsedTransaction `json:"transactions"`
	SuccessCount      int                 `json:"success_count"`
	ErrorCount        int                 `json:"error_count"`
	Errors            []ImportError       `json:"errors,omitempty"`
	DetectedAccount   *DetectedAccount    `json:"detected_account,omitempty"`
	MatchedAccountID  *string             `json:"matched_account_id,omitempty"`
	PaymentDueDate    *time.Time          `json:"payment_due_date,omitempty"`
	MinimumPaymentDue *decimal.Decimal    `json:"minimum_payment_due,omitempty"`
	RewardPoints      *int64              `json:"reward_points,omitempty"`
	RewardBalance     *decimal.Decimal    `json:"reward_balance,omitempty"`
}

// StringPtr returns a pointer to s, or nil when s is empty. Detected account
// fields use nil for "not found", so helpers building them go through this.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
