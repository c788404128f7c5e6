package dto

import (
	"time"

	"github.com/rentbooks/property_management_app/internal/core/domain"
)

// ConnectRequest starts the OAuth connect flow.
type ConnectRequest struct {
	// SyncFromDays sets the import floor: transactions older than
	// now - SyncFromDays are never fetched.
	SyncFromDays int `json:"syncFromDays" binding:"required,min=1,max=730"`
}

// ConnectResponse carries the provider authorization URL.
type ConnectResponse struct {
	AuthURL string `json:"authUrl"`
}

// CallbackResponse is returned after the OAuth code exchange. The connection
// is not usable until the user approves it in the provider's app and the
// client calls the complete endpoint.
type CallbackResponse struct {
	PendingConnectionID string `json:"pendingConnectionId"`
	RequiresApproval    bool   `json:"requiresApproval"`
}

// CompleteConnectionRequest finishes a pending connection.
type CompleteConnectionRequest struct {
	PendingConnectionID string `json:"pendingConnectionId" binding:"required"`
	ExternalAccountID   string `json:"externalAccountId" binding:"required"`
	Name                string `json:"name" binding:"required,max=120"`
}

// CompleteConnectionResponse reports the created account and the initial
// import's sync log for progress tracking.
type CompleteConnectionResponse struct {
	BankAccountID string `json:"bankAccountId"`
	SyncLogID     string `json:"syncLogId"`
}

// BankAccountResponse is the API shape of a connected account.
type BankAccountResponse struct {
	BankAccountID  string            `json:"bankAccountId"`
	Provider       string            `json:"provider"`
	Name           string            `json:"name"`
	SyncFromDate   time.Time         `json:"syncFromDate"`
	LastSyncAt     *time.Time        `json:"lastSyncAt"`
	LastSyncStatus domain.SyncStatus `json:"lastSyncStatus"`
	SyncEnabled    bool              `json:"syncEnabled"`
}

// ToBankAccountResponse maps a domain BankAccount, omitting token material.
func ToBankAccountResponse(a domain.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		BankAccountID:  a.BankAccountID,
		Provider:       a.Provider,
		Name:           a.Name,
		SyncFromDate:   a.SyncFromDate,
		LastSyncAt:     a.LastSyncAt,
		LastSyncStatus: a.LastSyncStatus,
		SyncEnabled:    a.SyncEnabled,
	}
}

// ToBankAccountResponses maps a slice of accounts.
func ToBankAccountResponses(accounts []domain.BankAccount) []BankAccountResponse {
	out := make([]BankAccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, ToBankAccountResponse(a))
	}
	return out
}
