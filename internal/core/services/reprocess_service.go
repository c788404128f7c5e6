package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	portsrepo "github.com/rentbooks/property_management_app/internal/core/ports/repositories"
	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
	"github.com/rentbooks/property_management_app/internal/middleware"
)

// reprocessService re-runs rule evaluation over pending transactions whenever
// rules change. Scope is one account for account-rule changes or all accounts
// for global-rule changes.
type reprocessService struct {
	pendingRepo  portsrepo.PendingTransactionRepository
	bankTxnRepo  portsrepo.BankTransactionRepository
	ruleRepo     portsrepo.MatchingRuleRepository
	txnRepo      portsrepo.TransactionRepository
	propertyRepo portsrepo.PropertyRepository
}

// NewReprocessService creates the reprocessing service.
func NewReprocessService(
	pendingRepo portsrepo.PendingTransactionRepository,
	bankTxnRepo portsrepo.BankTransactionRepository,
	ruleRepo portsrepo.MatchingRuleRepository,
	txnRepo portsrepo.TransactionRepository,
	propertyRepo portsrepo.PropertyRepository,
) portssvc.ReprocessSvcFacade {
	return &reprocessService{
		pendingRepo:  pendingRepo,
		bankTxnRepo:  bankTxnRepo,
		ruleRepo:     ruleRepo,
		txnRepo:      txnRepo,
		propertyRepo: propertyRepo,
	}
}

var _ portssvc.ReprocessSvcFacade = (*reprocessService)(nil)

// ReprocessPendingTransactions re-evaluates every pending transaction in
// scope. Now fully matched and valid: approve atomically (create Transaction,
// relink BankTransaction, delete the pending row). Still partial: update the
// candidate fields in place. Each item is independent: one bad row never
// aborts the batch.
func (s *reprocessService) ReprocessPendingTransactions(ctx context.Context, scopeBankAccountID *string) (domain.ReprocessResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	result := domain.ReprocessResult{}

	var pendings []domain.PendingTransaction
	var err error
	if scopeBankAccountID != nil {
		pendings, err = s.pendingRepo.ListPendingByAccountID(ctx, *scopeBankAccountID)
	} else {
		pendings, err = s.pendingRepo.ListAllPending(ctx)
	}
	if err != nil {
		return result, fmt.Errorf("failed to list pending transactions: %w", err)
	}

	// One rule-set fetch per account, not per pending row.
	rulesByAccount := make(map[string][]domain.MatchingRule)

	for _, pending := range pendings {
		rules, ok := rulesByAccount[pending.BankAccountID]
		if !ok {
			rules, err = s.ruleRepo.ListRulesForAccount(ctx, pending.BankAccountID)
			if err != nil {
				logger.Error("Failed to load rules for account during reprocessing",
					slog.String("bank_account_id", pending.BankAccountID), slog.String("error", err.Error()))
				result.Failed++
				continue
			}
			rulesByAccount[pending.BankAccountID] = rules
		}

		approved, err := s.reprocessOne(ctx, pending, rules)
		if err != nil {
			logger.Warn("Failed to reprocess pending transaction",
				slog.String("pending_transaction_id", pending.PendingTransactionID),
				slog.String("error", err.Error()))
			result.Failed++
			continue
		}
		result.Processed++
		if approved {
			result.Approved++
		}
	}

	return result, nil
}

func (s *reprocessService) reprocessOne(ctx context.Context, pending domain.PendingTransaction, rules []domain.MatchingRule) (approved bool, err error) {
	bankTxn, err := s.bankTxnRepo.FindBankTransactionByID(ctx, pending.BankTransactionID)
	if err != nil {
		return false, fmt.Errorf("failed to load bank transaction %s: %w", pending.BankTransactionID, err)
	}

	match := EvaluateRules(*bankTxn, rules)

	if match.IsFullyMatched() && s.assignmentValid(ctx, match) {
		now := time.Now().UTC()
		txn := domain.Transaction{
			TransactionID:     uuid.NewString(),
			PropertyID:        *match.PropertyID,
			LeaseID:           pending.LeaseID,
			Type:              *match.Type,
			Category:          *match.Category,
			Amount:            bankTxn.Amount,
			CurrencyCode:      bankTxn.CurrencyCode,
			TransactionDate:   bankTxn.TransactionDate,
			Description:       bankTxn.Description,
			BankTransactionID: &bankTxn.BankTransactionID,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     systemUserID,
				LastUpdatedAt: now,
				LastUpdatedBy: systemUserID,
			},
		}
		if err := s.txnRepo.ApproveBankTransaction(ctx, txn, bankTxn.BankTransactionID, &pending.PendingTransactionID); err != nil {
			return false, fmt.Errorf("failed to approve: %w", err)
		}
		return true, nil
	}

	// Still partial: refresh the candidate fields so the review queue reflects
	// the current rule set.
	pending.PropertyID = match.PropertyID
	pending.Type = match.Type
	pending.Category = match.Category
	if err := s.pendingRepo.UpdateCandidate(ctx, pending); err != nil {
		return false, fmt.Errorf("failed to update candidate: %w", err)
	}
	return false, nil
}

func (s *reprocessService) assignmentValid(ctx context.Context, match RuleMatch) bool {
	if !domain.IsValidCategory(*match.Type, *match.Category) {
		return false
	}
	property, err := s.propertyRepo.FindPropertyByID(ctx, *match.PropertyID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			middleware.GetLoggerFromCtx(ctx).Warn("Property lookup failed during reprocessing",
				slog.String("property_id", *match.PropertyID), slog.String("error", err.Error()))
		}
		return false
	}
	return property.IsActive
}
