package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction is the immutable raw ledger line fetched from the provider.
// The pair (BankAccountID, ExternalID) is the dedup key: exactly one row per
// provider transaction per account. After creation only TransactionID and
// PendingTransactionID may change.
type BankTransaction struct {
	BankTransactionID string          `json:"bankTransactionID"`
	BankAccountID     string          `json:"bankAccountID"`
	ExternalID        string          `json:"externalID"`
	Amount            decimal.Decimal `json:"amount"` // signed; sign preserved from provider
	CurrencyCode      string          `json:"currencyCode"`
	Description       string          `json:"description"`
	CounterpartyName  string          `json:"counterpartyName"`
	Merchant          string          `json:"merchant"`
	Reference         string          `json:"reference"`
	ProviderCategory  string          `json:"providerCategory"`
	TransactionDate   time.Time       `json:"transactionDate"`
	SettledAt         *time.Time      `json:"settledAt"`
	// TransactionID is set once the line is approved into a Transaction.
	// PendingTransactionID is set while the line awaits review and cleared
	// on approval. The two are mutually exclusive.
	TransactionID        *string   `json:"transactionID"`
	PendingTransactionID *string   `json:"pendingTransactionID"`
	CreatedAt            time.Time `json:"createdAt"`
}
