package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentbooks/property_management_app/internal/adapters/bankprovider"
	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	portsrepo "github.com/rentbooks/property_management_app/internal/core/ports/repositories"
	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
	"github.com/rentbooks/property_management_app/internal/middleware"
)

// transactionProcessor is the funnel: every raw transaction, whether it came
// from bulk import, manual sync or a webhook, is normalized, deduplicated and
// either auto-approved or queued for review here.
type transactionProcessor struct {
	bankTxnRepo  portsrepo.BankTransactionRepository
	pendingRepo  portsrepo.PendingTransactionRepository
	ruleRepo     portsrepo.MatchingRuleRepository
	txnRepo      portsrepo.TransactionRepository
	propertyRepo portsrepo.PropertyRepository
}

// NewTransactionProcessor creates the shared transaction funnel.
func NewTransactionProcessor(
	bankTxnRepo portsrepo.BankTransactionRepository,
	pendingRepo portsrepo.PendingTransactionRepository,
	ruleRepo portsrepo.MatchingRuleRepository,
	txnRepo portsrepo.TransactionRepository,
	propertyRepo portsrepo.PropertyRepository,
) portssvc.TransactionProcessor {
	return &transactionProcessor{
		bankTxnRepo:  bankTxnRepo,
		pendingRepo:  pendingRepo,
		ruleRepo:     ruleRepo,
		txnRepo:      txnRepo,
		propertyRepo: propertyRepo,
	}
}

var _ portssvc.TransactionProcessor = (*transactionProcessor)(nil)

// ProcessTransactions runs every raw transaction through the funnel. A
// failure on one item is recorded and never aborts the rest; re-delivered
// transactions are counted as duplicates, not errors.
func (p *transactionProcessor) ProcessTransactions(ctx context.Context, raw []bankprovider.Transaction, bankAccountID string) domain.ProcessResult {
	logger := middleware.GetLoggerFromCtx(ctx)
	result := domain.ProcessResult{}

	rules, err := p.ruleRepo.ListRulesForAccount(ctx, bankAccountID)
	if err != nil {
		// Without rules every transaction still lands in the review queue, so
		// processing continues with an empty set.
		logger.Error("Failed to load matching rules, processing without categorization",
			slog.String("bank_account_id", bankAccountID), slog.String("error", err.Error()))
		rules = nil
	}

	for _, item := range raw {
		duplicate, err := p.processOne(ctx, item, bankAccountID, rules)
		if err != nil {
			logger.Warn("Failed to process transaction",
				slog.String("external_id", item.ID), slog.String("error", err.Error()))
			result.Errors = append(result.Errors, domain.ItemError{ExternalID: item.ID, Message: err.Error()})
			continue
		}
		if duplicate {
			result.DuplicatesSkipped++
			continue
		}
		result.Processed++
	}

	result.Finalize()
	return result
}

func (p *transactionProcessor) processOne(ctx context.Context, item bankprovider.Transaction, bankAccountID string, rules []domain.MatchingRule) (duplicate bool, err error) {
	bankTxn, err := normalizeTransaction(item, bankAccountID)
	if err != nil {
		return false, err
	}

	inserted, err := p.bankTxnRepo.InsertIfAbsent(ctx, bankTxn)
	if err != nil {
		return false, fmt.Errorf("failed to store bank transaction: %w", err)
	}
	if !inserted {
		// Idempotent re-delivery: overlapping sync window or retried webhook.
		return true, nil
	}

	match := EvaluateRules(bankTxn, rules)

	if match.IsFullyMatched() && p.assignmentValid(ctx, match) {
		return false, p.approve(ctx, bankTxn, match)
	}
	return false, p.queueForReview(ctx, bankTxn, match)
}

// assignmentValid checks that the candidate property exists and the category
// is in the allowed set for the candidate type.
func (p *transactionProcessor) assignmentValid(ctx context.Context, match RuleMatch) bool {
	if !domain.IsValidCategory(*match.Type, *match.Category) {
		return false
	}
	property, err := p.propertyRepo.FindPropertyByID(ctx, *match.PropertyID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			middleware.GetLoggerFromCtx(ctx).Warn("Property lookup failed during categorization",
				slog.String("property_id", *match.PropertyID), slog.String("error", err.Error()))
		}
		return false
	}
	return property.IsActive
}

func (p *transactionProcessor) approve(ctx context.Context, bankTxn domain.BankTransaction, match RuleMatch) error {
	now := time.Now().UTC()
	txn := domain.Transaction{
		TransactionID:     uuid.NewString(),
		PropertyID:        *match.PropertyID,
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
	if err := p.txnRepo.ApproveBankTransaction(ctx, txn, bankTxn.BankTransactionID, nil); err != nil {
		return fmt.Errorf("failed to approve transaction: %w", err)
	}
	return nil
}

func (p *transactionProcessor) queueForReview(ctx context.Context, bankTxn domain.BankTransaction, match RuleMatch) error {
	pending := domain.PendingTransaction{
		PendingTransactionID: uuid.NewString(),
		BankTransactionID:    bankTxn.BankTransactionID,
		BankAccountID:        bankTxn.BankAccountID,
		PropertyID:           match.PropertyID,
		Type:                 match.Type,
		Category:             match.Category,
		CreatedAt:            time.Now().UTC(),
	}
	if err := p.pendingRepo.SavePendingTransaction(ctx, pending); err != nil {
		return fmt.Errorf("failed to queue transaction for review: %w", err)
	}
	if err := p.bankTxnRepo.LinkPendingTransaction(ctx, bankTxn.BankTransactionID, pending.PendingTransactionID); err != nil {
		return fmt.Errorf("failed to link pending transaction: %w", err)
	}
	return nil
}

// normalizeTransaction maps a raw provider transaction into the BankTransaction
// shape, preserving the amount's sign.
func normalizeTransaction(item bankprovider.Transaction, bankAccountID string) (domain.BankTransaction, error) {
	amount, err := decimal.NewFromString(item.Amount)
	if err != nil {
		return domain.BankTransaction{}, fmt.Errorf("unparseable amount %q: %w", item.Amount, err)
	}

	created, err := item.GetCreated()
	if err != nil {
		return domain.BankTransaction{}, err
	}
	settled, err := item.GetSettled()
	if err != nil {
		return domain.BankTransaction{}, err
	}

	return domain.BankTransaction{
		BankTransactionID: uuid.NewString(),
		BankAccountID:     bankAccountID,
		ExternalID:        item.ID,
		Amount:            amount,
		CurrencyCode:      item.Currency,
		Description:       item.Description,
		CounterpartyName:  item.Counterparty,
		Merchant:          item.Merchant,
		Reference:         item.Reference,
		ProviderCategory:  item.Category,
		TransactionDate:   created,
		SettledAt:         settled,
		CreatedAt:         time.Now().UTC(),
	}, nil
}
