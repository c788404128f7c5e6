package services

import (
	"context"

	"github.com/rentbooks/property_management_app/internal/adapters/bankprovider"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	"github.com/rentbooks/property_management_app/internal/dto"
)

// TransactionProcessor is the single funnel every raw transaction goes
// through, whether it arrived via bulk import, manual sync or webhook. All
// three triggering flows share one implementation so the dedup invariant
// holds identically everywhere.
type TransactionProcessor interface {
	ProcessTransactions(ctx context.Context, raw []bankprovider.Transaction, bankAccountID string) domain.ProcessResult
}

// ConnectionSvcFacade manages the OAuth connect flow, including the pending
// connection side-channel for providers that require in-app SCA approval
// after token exchange.
type ConnectionSvcFacade interface {
	GenerateAuthURL(ctx context.Context, syncFromDays int) (string, error)
	// HandleCallback validates state, exchanges the code and parks the tokens
	// as a pending connection awaiting SCA approval.
	HandleCallback(ctx context.Context, state, code string) (pendingConnectionID string, err error)
	// CompleteConnection verifies provider access (SCA done), persists the
	// BankAccount with encrypted tokens and starts the initial import.
	CompleteConnection(ctx context.Context, req dto.CompleteConnectionRequest, userID string) (*domain.BankAccount, string, error)
}

// SyncSvcFacade runs imports and exposes account-level sync state.
type SyncSvcFacade interface {
	// StartInitialImport launches the post-connection bulk import as an
	// asynchronous task and returns the open SyncLog id.
	StartInitialImport(ctx context.Context, account domain.BankAccount) (string, error)
	// StartManualSync launches an incremental sync. Fails fast with
	// ErrSyncInProgress when a sync is already running for the account.
	StartManualSync(ctx context.Context, bankAccountID string) (string, error)
	ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error)
	GetBankAccount(ctx context.Context, bankAccountID string) (*domain.BankAccount, error)
	// Disconnect disables sync without deleting the account or its history.
	Disconnect(ctx context.Context, bankAccountID string) error
	ListSyncLogs(ctx context.Context, bankAccountID string, limit int, nextToken *string) ([]domain.SyncLog, *string, error)
}

// RuleSvcFacade is the rule CRUD surface. Every mutation triggers
// reprocessing of pending transactions in the affected scope and returns the
// reprocessing counts alongside the rule.
type RuleSvcFacade interface {
	CreateRule(ctx context.Context, bankAccountID string, req dto.SaveRuleRequest, userID string) (*domain.MatchingRule, domain.ReprocessResult, error)
	UpdateRule(ctx context.Context, bankAccountID, ruleID string, req dto.SaveRuleRequest, userID string) (*domain.MatchingRule, domain.ReprocessResult, error)
	DeleteRule(ctx context.Context, bankAccountID, ruleID string) (domain.ReprocessResult, error)
	ReorderRules(ctx context.Context, bankAccountID string, orderedRuleIDs []string) (domain.ReprocessResult, error)
	ListRules(ctx context.Context, bankAccountID string) ([]domain.MatchingRule, error)
	// TestRules evaluates a rule set against a sample transaction without
	// touching storage.
	TestRules(ctx context.Context, req dto.TestRulesRequest) (dto.TestRulesResponse, error)
}

// ReprocessSvcFacade re-evaluates pending transactions after rule changes.
// A nil scope means all accounts (global-rule change).
type ReprocessSvcFacade interface {
	ReprocessPendingTransactions(ctx context.Context, scopeBankAccountID *string) (domain.ReprocessResult, error)
}

// ReviewSvcFacade is the manual review queue surface.
type ReviewSvcFacade interface {
	ListPendingTransactions(ctx context.Context, bankAccountID string) ([]domain.PendingTransaction, error)
	// ApprovePendingTransaction finalizes a pending transaction with the
	// reviewer's (possibly overriding) assignment.
	ApprovePendingTransaction(ctx context.Context, pendingTransactionID string, req dto.ApprovePendingRequest, userID string) (*domain.Transaction, error)
}

// WebhookOutcome tags how a webhook delivery was handled.
type WebhookOutcome string

const (
	WebhookProcessed WebhookOutcome = "PROCESSED"
	WebhookDuplicate WebhookOutcome = "DUPLICATE" // event id already seen, safely ignored
	WebhookIgnored   WebhookOutcome = "IGNORED"   // account unknown, acknowledged without work
)

// WebhookSvcFacade handles provider transaction.created deliveries.
type WebhookSvcFacade interface {
	HandleTransactionCreated(ctx context.Context, event dto.WebhookEvent) (WebhookOutcome, error)
}

// ProgressSvcFacade is the import-progress feed, keyed by SyncLog id.
type ProgressSvcFacade interface {
	Subscribe(syncLogID string) (<-chan domain.ProgressEvent, func())
}

// ServiceContainer bundles the service facades handed to route registration.
type ServiceContainer struct {
	Connection ConnectionSvcFacade
	Sync       SyncSvcFacade
	Rule       RuleSvcFacade
	Reprocess  ReprocessSvcFacade
	Review     ReviewSvcFacade
	Webhook    WebhookSvcFacade
	Progress   ProgressSvcFacade
}
