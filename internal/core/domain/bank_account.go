package domain

import "time"

// SyncStatus reflects the outcome of the latest sync attempt for a bank account.
type SyncStatus string

const (
	SyncStatusNeverSynced SyncStatus = "NEVER_SYNCED"
	SyncStatusInProgress  SyncStatus = "IN_PROGRESS"
	SyncStatusSuccess     SyncStatus = "SUCCESS"
	SyncStatusPartial     SyncStatus = "PARTIAL"
	SyncStatusFailed      SyncStatus = "FAILED"
)

// BankAccount is a connected external bank account. Access and refresh tokens
// are stored encrypted; decryption happens only at the point of a provider call.
// A BankAccount is never hard-deleted while bank transactions reference it;
// disconnecting an account only disables sync.
type BankAccount struct {
	BankAccountID         string     `json:"bankAccountID"`
	ExternalAccountID     string     `json:"externalAccountID"` // provider's account id
	Provider              string     `json:"provider"`
	Name                  string     `json:"name"`
	EncryptedAccessToken  string     `json:"-"`
	EncryptedRefreshToken string     `json:"-"`
	SyncFromDate          time.Time  `json:"syncFromDate"` // import floor; transactions older than this are never fetched
	LastSyncAt            *time.Time `json:"lastSyncAt"`
	// LastSuccessfulSyncAt is the incremental fetch floor. It only advances
	// when a full sync closes as SUCCESS, so the window skipped by a failed or
	// partial attempt is refetched on the next sync.
	LastSuccessfulSyncAt  *time.Time `json:"lastSuccessfulSyncAt"`
	LastSyncStatus        SyncStatus `json:"lastSyncStatus"`
	WebhookID             string     `json:"webhookID,omitempty"`
	WebhookURL            string     `json:"webhookURL,omitempty"`
	SyncEnabled           bool       `json:"syncEnabled"`
	AuditFields
}
