package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rentbooks/property_management_app/internal/adapters/bankprovider"
	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	portsrepo "github.com/rentbooks/property_management_app/internal/core/ports/repositories"
	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
	"github.com/rentbooks/property_management_app/internal/dto"
	"github.com/rentbooks/property_management_app/internal/middleware"
)

// webhookService ingests provider transaction.created deliveries through the
// same processor funnel as bulk imports.
type webhookService struct {
	accountRepo portsrepo.BankAccountRepository
	syncLogRepo portsrepo.SyncLogRepository
	processor   portssvc.TransactionProcessor
}

// NewWebhookService creates the webhook ingestion service.
func NewWebhookService(
	accountRepo portsrepo.BankAccountRepository,
	syncLogRepo portsrepo.SyncLogRepository,
	processor portssvc.TransactionProcessor,
) portssvc.WebhookSvcFacade {
	return &webhookService{
		accountRepo: accountRepo,
		syncLogRepo: syncLogRepo,
		processor:   processor,
	}
}

var _ portssvc.WebhookSvcFacade = (*webhookService)(nil)

// HandleTransactionCreated processes one delivery. Redeliveries of an already
// recorded event id and events for unknown accounts are acknowledged without
// work so the provider stops retrying.
func (s *webhookService) HandleTransactionCreated(ctx context.Context, event dto.WebhookEvent) (portssvc.WebhookOutcome, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	eventID := event.Data.ID

	if _, err := s.syncLogRepo.FindByWebhookEventID(ctx, eventID); err == nil {
		logger.Info("Webhook event already processed", slog.String("webhook_event_id", eventID))
		return portssvc.WebhookDuplicate, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return "", err
	}

	account, err := s.accountRepo.FindBankAccountByExternalID(ctx, event.Data.AccountID)
	if errors.Is(err, apperrors.ErrNotFound) {
		logger.Info("Webhook event for unconnected account, ignoring",
			slog.String("external_account_id", event.Data.AccountID))
		return portssvc.WebhookIgnored, nil
	}
	if err != nil {
		return "", err
	}

	syncLog := domain.SyncLog{
		SyncLogID:      uuid.NewString(),
		BankAccountID:  account.BankAccountID,
		SyncType:       domain.SyncTypeWebhook,
		Status:         domain.SyncLogInProgress,
		StartedAt:      time.Now().UTC(),
		WebhookEventID: &eventID,
	}
	if err := s.syncLogRepo.CreateSyncLog(ctx, syncLog); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// A concurrent redelivery won the unique event id race.
			return portssvc.WebhookDuplicate, nil
		}
		return "", fmt.Errorf("failed to create sync log: %w", err)
	}

	result := s.processor.ProcessTransactions(ctx, []bankprovider.Transaction{event.Data}, account.BankAccountID)
	completedAt := time.Now().UTC()

	if result.Outcome == domain.BatchFailed {
		errMsg := "webhook transaction failed to process"
		if len(result.Errors) > 0 {
			errMsg = result.Errors[0].Message
		}
		if closeErr := s.syncLogRepo.CloseSyncLog(ctx, syncLog.SyncLogID, domain.SyncLogFailed, 1, 0, errMsg, completedAt); closeErr != nil {
			logger.Error("Failed to close webhook sync log", slog.String("error", closeErr.Error()))
		}
		return "", fmt.Errorf("failed to process webhook transaction %s: %s", eventID, errMsg)
	}

	if err := s.syncLogRepo.CloseSyncLog(ctx, syncLog.SyncLogID, domain.SyncLogSuccess, 1, result.DuplicatesSkipped, "", completedAt); err != nil {
		logger.Error("Failed to close webhook sync log", slog.String("error", err.Error()))
	}
	// A webhook delivers a single transaction, not a window, so it never
	// advances the incremental fetch floor.
	if err := s.accountRepo.UpdateSyncStatus(ctx, account.BankAccountID, domain.SyncStatusSuccess, completedAt, nil); err != nil {
		logger.Error("Failed to update account sync status", slog.String("error", err.Error()))
	}

	logger.Info("Webhook event processed",
		slog.String("webhook_event_id", eventID),
		slog.Int("duplicates_skipped", result.DuplicatesSkipped))
	return portssvc.WebhookProcessed, nil
}
