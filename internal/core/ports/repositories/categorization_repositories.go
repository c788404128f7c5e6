package repositories

import (
	"context"

	"github.com/rentbooks/property_management_app/internal/core/domain"
)

// MatchingRuleRepository defines persistence operations for matching rules.
type MatchingRuleRepository interface {
	SaveRule(ctx context.Context, rule domain.MatchingRule) error
	FindRuleByID(ctx context.Context, ruleID string) (*domain.MatchingRule, error)
	UpdateRule(ctx context.Context, rule domain.MatchingRule) error
	DeleteRule(ctx context.Context, ruleID string) error
	// ListRulesForAccount returns the account's rules followed by global rules,
	// each group ordered by ascending priority. This is the evaluation order.
	ListRulesForAccount(ctx context.Context, bankAccountID string) ([]domain.MatchingRule, error)
	// UpdatePriorities reassigns priorities for the account-scoped rules in the
	// given order. Global rules are untouched.
	UpdatePriorities(ctx context.Context, bankAccountID string, orderedRuleIDs []string) error
}

// PendingTransactionRepository defines persistence operations for the review
// queue.
type PendingTransactionRepository interface {
	SavePendingTransaction(ctx context.Context, pending domain.PendingTransaction) error
	FindPendingTransactionByID(ctx context.Context, pendingTransactionID string) (*domain.PendingTransaction, error)
	// UpdateCandidate rewrites the candidate assignment fields in place.
	UpdateCandidate(ctx context.Context, pending domain.PendingTransaction) error
	ListPendingByAccountID(ctx context.Context, bankAccountID string) ([]domain.PendingTransaction, error)
	ListAllPending(ctx context.Context) ([]domain.PendingTransaction, error)
}

// TransactionRepository defines persistence operations for finalized
// transactions, including the atomic approval group.
type TransactionRepository interface {
	// ApproveBankTransaction creates the Transaction, sets the bank
	// transaction's transactionID link, clears its pendingTransactionID, and
	// deletes the pending row (when pendingTransactionID is non-nil), all in
	// one database transaction.
	ApproveBankTransaction(ctx context.Context, txn domain.Transaction, bankTransactionID string, pendingTransactionID *string) error
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
}

// PropertyRepository exposes the existence checks the categorization pipeline
// needs. Property CRUD is owned elsewhere.
type PropertyRepository interface {
	FindPropertyByID(ctx context.Context, propertyID string) (*domain.Property, error)
}
