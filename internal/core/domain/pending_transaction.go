package domain

import "time"

// PendingTransaction is a review-queue row wrapping one BankTransaction that
// could not be fully and validly categorized. The candidate fields carry
// whatever partial assignment rule evaluation derived; reprocessing may update
// them in place as rules change. Approval deletes the row and replaces it with
// a Transaction.
type PendingTransaction struct {
	PendingTransactionID string           `json:"pendingTransactionID"`
	BankTransactionID    string           `json:"bankTransactionID"`
	BankAccountID        string           `json:"bankAccountID"`
	PropertyID           *string          `json:"propertyID"`
	LeaseID              *string          `json:"leaseID"`
	Type                 *TransactionType `json:"type"`
	Category             *string          `json:"category"`
	ReviewedAt           *time.Time       `json:"reviewedAt"`
	ReviewedBy           *string          `json:"reviewedBy"`
	CreatedAt            time.Time        `json:"createdAt"`
}
