package repositories

import (
	"context"
	"time"

	"github.com/rentbooks/property_management_app/internal/core/domain"
)

// BankAccountRepository defines persistence operations for connected bank
// accounts.
type BankAccountRepository interface {
	SaveBankAccount(ctx context.Context, account domain.BankAccount) error
	FindBankAccountByID(ctx context.Context, bankAccountID string) (*domain.BankAccount, error)
	FindBankAccountByExternalID(ctx context.Context, externalAccountID string) (*domain.BankAccount, error)
	ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error)
	// UpdateSyncStatus records the outcome of the latest sync attempt. A
	// non-nil lastSuccessfulSyncAt also advances the incremental fetch floor;
	// pass nil for attempts that must not move it (failed, partial, webhook).
	UpdateSyncStatus(ctx context.Context, bankAccountID string, status domain.SyncStatus, lastSyncAt time.Time, lastSuccessfulSyncAt *time.Time) error
	// UpdateTokens replaces the stored encrypted tokens after a refresh.
	UpdateTokens(ctx context.Context, bankAccountID, encryptedAccess, encryptedRefresh string) error
	SetSyncEnabled(ctx context.Context, bankAccountID string, enabled bool) error
}

// SyncLogRepository defines persistence operations for sync attempt records.
type SyncLogRepository interface {
	CreateSyncLog(ctx context.Context, log domain.SyncLog) error
	// CloseSyncLog sets the terminal status and counts. Closed logs are
	// immutable; closing twice is a programming error surfaced as ErrNotFound.
	CloseSyncLog(ctx context.Context, syncLogID string, status domain.SyncLogStatus, fetched, skipped int, errorMessage string, completedAt time.Time) error
	FindSyncLogByID(ctx context.Context, syncLogID string) (*domain.SyncLog, error)
	// FindInProgressByAccountID returns the open sync log for the account, or
	// ErrNotFound when none is running.
	FindInProgressByAccountID(ctx context.Context, bankAccountID string) (*domain.SyncLog, error)
	// FindByWebhookEventID is the webhook idempotency lookup.
	FindByWebhookEventID(ctx context.Context, webhookEventID string) (*domain.SyncLog, error)
	ListSyncLogsByAccountID(ctx context.Context, bankAccountID string, limit int, nextToken *string) ([]domain.SyncLog, *string, error)
}

// BankTransactionRepository defines persistence operations for raw bank
// transactions.
type BankTransactionRepository interface {
	// InsertIfAbsent inserts the transaction unless one already exists for
	// (bankAccountID, externalID). Returns false when the row already existed.
	InsertIfAbsent(ctx context.Context, txn domain.BankTransaction) (bool, error)
	FindBankTransactionByID(ctx context.Context, bankTransactionID string) (*domain.BankTransaction, error)
	// LinkPendingTransaction sets the pending link on a freshly created row.
	LinkPendingTransaction(ctx context.Context, bankTransactionID, pendingTransactionID string) error
}
