package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	portsrepo "github.com/rentbooks/property_management_app/internal/core/ports/repositories"
	"github.com/rentbooks/property_management_app/internal/utils/pagination"
)

type syncLogRepository struct {
	pool *pgxpool.Pool
}

// NewSyncLogRepository creates a new repository for sync attempt records.
func NewSyncLogRepository(pool *pgxpool.Pool) portsrepo.SyncLogRepository {
	return &syncLogRepository{pool: pool}
}

var _ portsrepo.SyncLogRepository = (*syncLogRepository)(nil)

const syncLogColumns = `sync_log_id, bank_account_id, sync_type, status, started_at, completed_at, transactions_fetched, transactions_skipped, webhook_event_id, error_message`

func (r *syncLogRepository) CreateSyncLog(ctx context.Context, log domain.SyncLog) error {
	query := `
		INSERT INTO sync_logs (` + syncLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.pool.Exec(ctx, query,
		log.SyncLogID,
		log.BankAccountID,
		log.SyncType,
		log.Status,
		log.StartedAt,
		log.CompletedAt,
		log.TransactionsFetched,
		log.TransactionsSkipped,
		log.WebhookEventID,
		nullableString(log.ErrorMessage),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			// Either a concurrent sync holds the in-progress slot or the webhook
			// event id was already recorded.
			return fmt.Errorf("sync log for account %s: %w", log.BankAccountID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to create sync log %s: %w", log.SyncLogID, err)
	}
	return nil
}

func (r *syncLogRepository) CloseSyncLog(ctx context.Context, syncLogID string, status domain.SyncLogStatus, fetched, skipped int, errorMessage string, completedAt time.Time) error {
	query := `
		UPDATE sync_logs
		SET status = $2, transactions_fetched = $3, transactions_skipped = $4, error_message = $5, completed_at = $6
		WHERE sync_log_id = $1 AND status = $7;
	`
	tag, err := r.pool.Exec(ctx, query, syncLogID, status, fetched, skipped, nullableString(errorMessage), completedAt, domain.SyncLogInProgress)
	if err != nil {
		return fmt.Errorf("failed to close sync log %s: %w", syncLogID, err)
	}
	if tag.RowsAffected() == 0 {
		// Missing or already closed; closed logs are immutable.
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *syncLogRepository) FindSyncLogByID(ctx context.Context, syncLogID string) (*domain.SyncLog, error) {
	query := `SELECT ` + syncLogColumns + ` FROM sync_logs WHERE sync_log_id = $1;`
	return r.scanOne(r.pool.QueryRow(ctx, query, syncLogID), syncLogID)
}

// FindInProgressByAccountID looks for an open bulk sync. Webhook logs are
// excluded: event deliveries may land while an import runs.
func (r *syncLogRepository) FindInProgressByAccountID(ctx context.Context, bankAccountID string) (*domain.SyncLog, error) {
	query := `
		SELECT ` + syncLogColumns + `
		FROM sync_logs
		WHERE bank_account_id = $1 AND status = $2 AND sync_type <> $3
		LIMIT 1;
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, bankAccountID, domain.SyncLogInProgress, domain.SyncTypeWebhook), bankAccountID)
}

func (r *syncLogRepository) FindByWebhookEventID(ctx context.Context, webhookEventID string) (*domain.SyncLog, error) {
	query := `SELECT ` + syncLogColumns + ` FROM sync_logs WHERE webhook_event_id = $1;`
	return r.scanOne(r.pool.QueryRow(ctx, query, webhookEventID), webhookEventID)
}

// ListSyncLogsByAccountID pages newest-first on (started_at, sync_log_id).
// The returned token points at the last row and is nil on the final page.
func (r *syncLogRepository) ListSyncLogsByAccountID(ctx context.Context, bankAccountID string, limit int, nextToken *string) ([]domain.SyncLog, *string, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + syncLogColumns + `
		FROM sync_logs
		WHERE bank_account_id = $1
	`
	args := []any{bankAccountID}

	if nextToken != nil && *nextToken != "" {
		startedAt, lastID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		query += ` AND (started_at, sync_log_id) < ($2, $3)`
		args = append(args, startedAt, lastID)
	}

	query += fmt.Sprintf(` ORDER BY started_at DESC, sync_log_id DESC LIMIT $%d;`, len(args)+1)
	args = append(args, limit+1) // fetch one extra to detect a next page

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query sync logs for %s: %w", bankAccountID, err)
	}
	defer rows.Close()

	logs := []domain.SyncLog{}
	for rows.Next() {
		log, err := scanSyncLog(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan sync log row: %w", err)
		}
		logs = append(logs, *log)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var token *string
	if len(logs) > limit {
		logs = logs[:limit]
		last := logs[len(logs)-1]
		encoded := pagination.EncodeToken(last.StartedAt, last.SyncLogID)
		token = &encoded
	}
	return logs, token, nil
}

func (r *syncLogRepository) scanOne(row pgx.Row, id string) (*domain.SyncLog, error) {
	log, err := scanSyncLog(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find sync log %s: %w", id, err)
	}
	return log, nil
}

func scanSyncLog(row pgx.Row) (*domain.SyncLog, error) {
	var log domain.SyncLog
	var errorMessage *string
	err := row.Scan(
		&log.SyncLogID,
		&log.BankAccountID,
		&log.SyncType,
		&log.Status,
		&log.StartedAt,
		&log.CompletedAt,
		&log.TransactionsFetched,
		&log.TransactionsSkipped,
		&log.WebhookEventID,
		&errorMessage,
	)
	if err != nil {
		return nil, err
	}
	if errorMessage != nil {
		log.ErrorMessage = *errorMessage
	}
	return &log, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
