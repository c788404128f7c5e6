package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	portsrepo "github.com/rentbooks/property_management_app/internal/core/ports/repositories"
	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
	"github.com/rentbooks/property_management_app/internal/dto"
	"github.com/rentbooks/property_management_app/internal/middleware"
)

// reviewService is the manual review queue surface.
type reviewService struct {
	pendingRepo  portsrepo.PendingTransactionRepository
	bankTxnRepo  portsrepo.BankTransactionRepository
	txnRepo      portsrepo.TransactionRepository
	propertyRepo portsrepo.PropertyRepository
}

// NewReviewService creates the review service.
func NewReviewService(
	pendingRepo portsrepo.PendingTransactionRepository,
	bankTxnRepo portsrepo.BankTransactionRepository,
	txnRepo portsrepo.TransactionRepository,
	propertyRepo portsrepo.PropertyRepository,
) portssvc.ReviewSvcFacade {
	return &reviewService{
		pendingRepo:  pendingRepo,
		bankTxnRepo:  bankTxnRepo,
		txnRepo:      txnRepo,
		propertyRepo: propertyRepo,
	}
}

var _ portssvc.ReviewSvcFacade = (*reviewService)(nil)

func (s *reviewService) ListPendingTransactions(ctx context.Context, bankAccountID string) ([]domain.PendingTransaction, error) {
	return s.pendingRepo.ListPendingByAccountID(ctx, bankAccountID)
}

// ApprovePendingTransaction finalizes a review-queue row with the reviewer's
// assignment, which may override any candidate field. The Transaction
// creation, bank transaction relink and pending row deletion happen in one
// database transaction.
func (s *reviewService) ApprovePendingTransaction(ctx context.Context, pendingTransactionID string, req dto.ApprovePendingRequest, userID string) (*domain.Transaction, error) {
	pending, err := s.pendingRepo.FindPendingTransactionByID(ctx, pendingTransactionID)
	if err != nil {
		return nil, err
	}

	typ := domain.TransactionType(req.Type)
	if !domain.IsValidCategory(typ, req.Category) {
		return nil, fmt.Errorf("%w: category %q is not valid for type %q", apperrors.ErrValidation, req.Category, req.Type)
	}
	property, err := s.propertyRepo.FindPropertyByID(ctx, req.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("%w: property %s not found", apperrors.ErrValidation, req.PropertyID)
	}
	if !property.IsActive {
		return nil, fmt.Errorf("%w: property %s is not active", apperrors.ErrValidation, req.PropertyID)
	}

	bankTxn, err := s.bankTxnRepo.FindBankTransactionByID(ctx, pending.BankTransactionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txn := domain.Transaction{
		TransactionID:     uuid.NewString(),
		PropertyID:        req.PropertyID,
		LeaseID:           req.LeaseID,
		Type:              typ,
		Category:          req.Category,
		Amount:            bankTxn.Amount,
		CurrencyCode:      bankTxn.CurrencyCode,
		TransactionDate:   bankTxn.TransactionDate,
		Description:       bankTxn.Description,
		BankTransactionID: &bankTxn.BankTransactionID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.txnRepo.ApproveBankTransaction(ctx, txn, bankTxn.BankTransactionID, &pending.PendingTransactionID); err != nil {
		return nil, fmt.Errorf("failed to approve transaction: %w", err)
	}

	middleware.GetLoggerFromCtx(ctx).Info("Pending transaction approved",
		slog.String("pending_transaction_id", pendingTransactionID),
		slog.String("transaction_id", txn.TransactionID))
	return &txn, nil
}
