package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a finalized transaction.
type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// Categories allowed per transaction type. A candidate categorization is only
// valid when the category belongs to the set for its type.
var allowedCategories = map[TransactionType]map[string]bool{
	Income: {
		"RENT":         true,
		"DEPOSIT":      true,
		"FEES":         true,
		"OTHER_INCOME": true,
	},
	Expense: {
		"MAINTENANCE":     true,
		"UTILITIES":       true,
		"INSURANCE":       true,
		"TAX":             true,
		"MANAGEMENT_FEES": true,
		"MORTGAGE":        true,
		"OTHER_EXPENSE":   true,
	},
}

// IsValidCategory reports whether category is in the allowed set for typ.
func IsValidCategory(typ TransactionType, category string) bool {
	return allowedCategories[typ][category]
}

// Transaction is the approved, finalized financial record created from a
// PendingTransaction or directly from a fully-matched BankTransaction.
type Transaction struct {
	TransactionID     string          `json:"transactionID"`
	PropertyID        string          `json:"propertyID"`
	LeaseID           *string         `json:"leaseID,omitempty"`
	Type              TransactionType `json:"type"`
	Category          string          `json:"category"`
	Amount            decimal.Decimal `json:"amount"` // signed
	CurrencyCode      string          `json:"currencyCode"`
	TransactionDate   time.Time       `json:"transactionDate"`
	Description       string          `json:"description"`
	BankTransactionID *string         `json:"bankTransactionID,omitempty"` // traceability back-link
	AuditFields
}
