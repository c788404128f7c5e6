package domain

import "time"

// SyncType identifies what triggered a sync attempt.
type SyncType string

const (
	SyncTypeInitial SyncType = "INITIAL"
	SyncTypeManual  SyncType = "MANUAL"
	SyncTypeWebhook SyncType = "WEBHOOK"
)

// SyncLogStatus is the state of one sync attempt.
type SyncLogStatus string

const (
	SyncLogInProgress SyncLogStatus = "IN_PROGRESS"
	SyncLogSuccess    SyncLogStatus = "SUCCESS"
	SyncLogPartial    SyncLogStatus = "PARTIAL"
	SyncLogFailed     SyncLogStatus = "FAILED"
)

// SyncLog is the append-only audit record of one sync attempt. Once closed
// (any status other than IN_PROGRESS) it is immutable. At most one INITIAL or
// MANUAL SyncLog per bank account may be IN_PROGRESS at a time; the database
// enforces this with a partial unique index. WEBHOOK logs are exempt because
// event deliveries may land while a bulk import is running.
type SyncLog struct {
	SyncLogID           string        `json:"syncLogID"`
	BankAccountID       string        `json:"bankAccountID"`
	SyncType            SyncType      `json:"syncType"`
	Status              SyncLogStatus `json:"status"`
	StartedAt           time.Time     `json:"startedAt"`
	CompletedAt         *time.Time    `json:"completedAt"`
	TransactionsFetched int           `json:"transactionsFetched"`
	TransactionsSkipped int           `json:"transactionsSkipped"`
	WebhookEventID      *string       `json:"webhookEventID,omitempty"` // unique; webhook idempotency key
	ErrorMessage        string        `json:"errorMessage,omitempty"`
}
