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

// userFacingSyncError is what gets stored on the SyncLog when the provider is
// unreachable. Raw provider errors go to the logs only.
const userFacingSyncError = "The bank could not be reached. Please try again later."

// syncService orchestrates bulk imports and manual syncs. The fetch-process
// work runs in a detached goroutine so HTTP handlers return immediately with
// the SyncLog id.
type syncService struct {
	accountRepo   portsrepo.BankAccountRepository
	syncLogRepo   portsrepo.SyncLogRepository
	fetcher       TransactionSource
	processor     portssvc.TransactionProcessor
	progress      *ProgressBroker
	logger        *slog.Logger
	bulkTimeout   time.Duration
	manualTimeout time.Duration
}

// NewSyncService creates the sync orchestrator. logger is the base logger for
// detached import tasks, which outlive the request that started them.
func NewSyncService(
	accountRepo portsrepo.BankAccountRepository,
	syncLogRepo portsrepo.SyncLogRepository,
	fetcher TransactionSource,
	processor portssvc.TransactionProcessor,
	progress *ProgressBroker,
	logger *slog.Logger,
	bulkTimeout, manualTimeout time.Duration,
) portssvc.SyncSvcFacade {
	return &syncService{
		accountRepo:   accountRepo,
		syncLogRepo:   syncLogRepo,
		fetcher:       fetcher,
		processor:     processor,
		progress:      progress,
		logger:        logger,
		bulkTimeout:   bulkTimeout,
		manualTimeout: manualTimeout,
	}
}

var _ portssvc.SyncSvcFacade = (*syncService)(nil)

// StartInitialImport opens an INITIAL sync log and launches the bulk import
// under the bulk time budget.
func (s *syncService) StartInitialImport(ctx context.Context, account domain.BankAccount) (string, error) {
	return s.start(ctx, account, domain.SyncTypeInitial, account.SyncFromDate, s.bulkTimeout)
}

// StartManualSync opens a MANUAL sync log and launches an incremental sync
// under the shorter manual budget. Fails fast when a sync is already running
// for the account.
func (s *syncService) StartManualSync(ctx context.Context, bankAccountID string) (string, error) {
	account, err := s.accountRepo.FindBankAccountByID(ctx, bankAccountID)
	if err != nil {
		return "", err
	}
	if !account.SyncEnabled {
		return "", fmt.Errorf("%w: account is disconnected", apperrors.ErrValidation)
	}

	// The incremental floor is the last fully successful sync; after a failed
	// or partial attempt the skipped window is fetched again. Overlap is safe,
	// the (bankAccountId, externalId) dedup key absorbs re-fetched rows.
	since := account.SyncFromDate
	if account.LastSuccessfulSyncAt != nil {
		since = *account.LastSuccessfulSyncAt
	}
	return s.start(ctx, *account, domain.SyncTypeManual, since, s.manualTimeout)
}

func (s *syncService) start(ctx context.Context, account domain.BankAccount, syncType domain.SyncType, since time.Time, budget time.Duration) (string, error) {
	if _, err := s.syncLogRepo.FindInProgressByAccountID(ctx, account.BankAccountID); err == nil {
		return "", apperrors.ErrSyncInProgress
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return "", err
	}

	syncLog := domain.SyncLog{
		SyncLogID:     uuid.NewString(),
		BankAccountID: account.BankAccountID,
		SyncType:      syncType,
		Status:        domain.SyncLogInProgress,
		StartedAt:     time.Now().UTC(),
	}
	if err := s.syncLogRepo.CreateSyncLog(ctx, syncLog); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// A competing request won the partial unique index race.
			return "", apperrors.ErrSyncInProgress
		}
		return "", fmt.Errorf("failed to create sync log: %w", err)
	}

	startedAt := time.Now().UTC()
	if err := s.accountRepo.UpdateSyncStatus(ctx, account.BankAccountID, domain.SyncStatusInProgress, startedAt, nil); err != nil {
		middleware.GetLoggerFromCtx(ctx).Error("Failed to mark account in progress",
			slog.String("bank_account_id", account.BankAccountID), slog.String("error", err.Error()))
	}

	go s.run(account, syncLog, since, budget)
	return syncLog.SyncLogID, nil
}

// run executes one sync attempt in a detached context carrying its own time
// budget and a task-scoped logger.
func (s *syncService) run(account domain.BankAccount, syncLog domain.SyncLog, since time.Time, budget time.Duration) {
	taskLogger := s.logger.With(
		slog.String("sync_log_id", syncLog.SyncLogID),
		slog.String("bank_account_id", account.BankAccountID),
		slog.String("sync_type", string(syncLog.SyncType)),
	)
	fetchCtx, cancel := context.WithTimeout(middleware.ContextWithLogger(context.Background(), taskLogger), budget)
	defer cancel()

	s.progress.Publish(syncLog.SyncLogID, domain.ProgressEvent{
		Status:  domain.ProgressFetching,
		Message: "Fetching transactions from the bank",
	})

	fetched, partial, err := s.fetcher.FetchSince(fetchCtx, account, since)
	if err != nil {
		taskLogger.Error("Sync fetch failed", slog.String("error", err.Error()))
		s.finish(taskLogger, account, syncLog, domain.SyncLogFailed, len(fetched), 0, 0, userFacingSyncError)
		return
	}

	s.progress.Publish(syncLog.SyncLogID, domain.ProgressEvent{
		Status:              domain.ProgressProcessing,
		TransactionsFetched: len(fetched),
		Message:             "Processing fetched transactions",
	})

	// Already-fetched transactions are always processed in full, even when the
	// fetch budget ran out, so a partial sync leaves no half-ingested page.
	procCtx := middleware.ContextWithLogger(context.Background(), taskLogger)
	result := s.processor.ProcessTransactions(procCtx, fetched, account.BankAccountID)

	status := domain.SyncLogSuccess
	errorMessage := ""
	switch {
	case partial:
		status = domain.SyncLogPartial
		errorMessage = "Sync time budget reached before the full history was fetched."
	case result.Outcome == domain.BatchFailed && len(fetched) > 0:
		status = domain.SyncLogFailed
		errorMessage = fmt.Sprintf("%d transactions failed to process", len(result.Errors))
	case result.Outcome == domain.BatchPartial:
		status = domain.SyncLogPartial
		errorMessage = fmt.Sprintf("%d transactions failed to process", len(result.Errors))
	}

	taskLogger.Info("Sync finished",
		slog.String("status", string(status)),
		slog.Int("fetched", len(fetched)),
		slog.Int("processed", result.Processed),
		slog.Int("duplicates_skipped", result.DuplicatesSkipped),
		slog.Int("item_errors", len(result.Errors)))

	s.finish(taskLogger, account, syncLog, status, len(fetched), result.Processed, result.DuplicatesSkipped, errorMessage)
}

// finish closes the SyncLog, updates the account status and publishes the
// terminal progress event.
func (s *syncService) finish(logger *slog.Logger, account domain.BankAccount, syncLog domain.SyncLog, status domain.SyncLogStatus, fetched, processed, skipped int, errorMessage string) {
	ctx := middleware.ContextWithLogger(context.Background(), logger)
	completedAt := time.Now().UTC()

	if err := s.syncLogRepo.CloseSyncLog(ctx, syncLog.SyncLogID, status, fetched, skipped, errorMessage, completedAt); err != nil {
		logger.Error("Failed to close sync log", slog.String("error", err.Error()))
	}
	// Only a full SUCCESS advances the incremental floor; failed and partial
	// attempts leave it alone so their window is retried. The floor is the
	// attempt's start time, not its completion time, so transactions created
	// while the fetch was running fall inside the next window.
	var floor *time.Time
	if status == domain.SyncLogSuccess {
		floor = &syncLog.StartedAt
	}
	if err := s.accountRepo.UpdateSyncStatus(ctx, account.BankAccountID, accountStatusFor(status), completedAt, floor); err != nil {
		logger.Error("Failed to update account sync status", slog.String("error", err.Error()))
	}

	event := domain.ProgressEvent{
		Status:                domain.ProgressCompleted,
		TransactionsFetched:   fetched,
		TransactionsProcessed: processed,
		DuplicatesSkipped:     skipped,
		Message:               "Sync completed",
	}
	if status == domain.SyncLogFailed {
		event.Status = domain.ProgressFailed
		event.Message = "Sync failed"
		event.Error = errorMessage
	}
	s.progress.Publish(syncLog.SyncLogID, event)
	s.progress.Complete(syncLog.SyncLogID)
}

func accountStatusFor(status domain.SyncLogStatus) domain.SyncStatus {
	switch status {
	case domain.SyncLogSuccess:
		return domain.SyncStatusSuccess
	case domain.SyncLogPartial:
		return domain.SyncStatusPartial
	default:
		return domain.SyncStatusFailed
	}
}

func (s *syncService) ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	return s.accountRepo.ListBankAccounts(ctx)
}

func (s *syncService) GetBankAccount(ctx context.Context, bankAccountID string) (*domain.BankAccount, error) {
	return s.accountRepo.FindBankAccountByID(ctx, bankAccountID)
}

// Disconnect disables sync for the account. Stored transactions and sync
// history stay untouched.
func (s *syncService) Disconnect(ctx context.Context, bankAccountID string) error {
	if _, err := s.accountRepo.FindBankAccountByID(ctx, bankAccountID); err != nil {
		return err
	}
	middleware.GetLoggerFromCtx(ctx).Info("Disconnecting bank account", slog.String("bank_account_id", bankAccountID))
	return s.accountRepo.SetSyncEnabled(ctx, bankAccountID, false)
}

func (s *syncService) ListSyncLogs(ctx context.Context, bankAccountID string, limit int, nextToken *string) ([]domain.SyncLog, *string, error) {
	return s.syncLogRepo.ListSyncLogsByAccountID(ctx, bankAccountID, limit, nextToken)
}
