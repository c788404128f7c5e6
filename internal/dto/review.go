package dto

import (
	"time"

	"github.com/rentbooks/property_management_app/internal/core/domain"
)

// ApprovePendingRequest finalizes a pending transaction. The reviewer may
// override any candidate field; the full assignment must be present and valid.
type ApprovePendingRequest struct {
	PropertyID string  `json:"propertyId" binding:"required"`
	LeaseID    *string `json:"leaseId"`
	Type       string  `json:"type" binding:"required,oneof=INCOME EXPENSE"`
	Category   string  `json:"category" binding:"required"`
}

// PendingTransactionResponse is the API shape of a review-queue row.
type PendingTransactionResponse struct {
	PendingTransactionID string                  `json:"pendingTransactionId"`
	BankTransactionID    string                  `json:"bankTransactionId"`
	BankAccountID        string                  `json:"bankAccountId"`
	PropertyID           *string                 `json:"propertyId"`
	LeaseID              *string                 `json:"leaseId"`
	Type                 *domain.TransactionType `json:"type"`
	Category             *string                 `json:"category"`
	CreatedAt            time.Time               `json:"createdAt"`
}

// ToPendingTransactionResponse maps a domain PendingTransaction.
func ToPendingTransactionResponse(p domain.PendingTransaction) PendingTransactionResponse {
	return PendingTransactionResponse{
		PendingTransactionID: p.PendingTransactionID,
		BankTransactionID:    p.BankTransactionID,
		BankAccountID:        p.BankAccountID,
		PropertyID:           p.PropertyID,
		LeaseID:              p.LeaseID,
		Type:                 p.Type,
		Category:             p.Category,
		CreatedAt:            p.CreatedAt,
	}
}
