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
)

type bankAccountRepository struct {
	pool *pgxpool.Pool
}

// NewBankAccountRepository creates a new repository for connected bank accounts.
func NewBankAccountRepository(pool *pgxpool.Pool) portsrepo.BankAccountRepository {
	return &bankAccountRepository{pool: pool}
}

var _ portsrepo.BankAccountRepository = (*bankAccountRepository)(nil)

const bankAccountColumns = `bank_account_id, external_account_id, provider, name, encrypted_access_token, encrypted_refresh_token, sync_from_date, last_sync_at, last_successful_sync_at, last_sync_status, webhook_id, webhook_url, sync_enabled, created_at, created_by, last_updated_at, last_updated_by`

func (r *bankAccountRepository) SaveBankAccount(ctx context.Context, account domain.BankAccount) error {
	query := `
		INSERT INTO bank_accounts (` + bankAccountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	_, err := r.pool.Exec(ctx, query,
		account.BankAccountID,
		account.ExternalAccountID,
		account.Provider,
		account.Name,
		account.EncryptedAccessToken,
		account.EncryptedRefreshToken,
		account.SyncFromDate,
		account.LastSyncAt,
		account.LastSuccessfulSyncAt,
		account.LastSyncStatus,
		account.WebhookID,
		account.WebhookURL,
		account.SyncEnabled,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("bank account for external id %s: %w", account.ExternalAccountID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save bank account %s: %w", account.BankAccountID, err)
	}
	return nil
}

func (r *bankAccountRepository) FindBankAccountByID(ctx context.Context, bankAccountID string) (*domain.BankAccount, error) {
	query := `SELECT ` + bankAccountColumns + ` FROM bank_accounts WHERE bank_account_id = $1;`
	return r.scanOne(r.pool.QueryRow(ctx, query, bankAccountID), bankAccountID)
}

func (r *bankAccountRepository) FindBankAccountByExternalID(ctx context.Context, externalAccountID string) (*domain.BankAccount, error) {
	query := `SELECT ` + bankAccountColumns + ` FROM bank_accounts WHERE external_account_id = $1;`
	return r.scanOne(r.pool.QueryRow(ctx, query, externalAccountID), externalAccountID)
}

func (r *bankAccountRepository) ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	query := `SELECT ` + bankAccountColumns + ` FROM bank_accounts ORDER BY created_at;`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.BankAccount{}
	for rows.Next() {
		account, err := scanBankAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank account row: %w", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func (r *bankAccountRepository) UpdateSyncStatus(ctx context.Context, bankAccountID string, status domain.SyncStatus, lastSyncAt time.Time, lastSuccessfulSyncAt *time.Time) error {
	query := `
		UPDATE bank_accounts
		SET last_sync_status = $2, last_sync_at = $3,
		    last_successful_sync_at = COALESCE($4, last_successful_sync_at),
		    last_updated_at = $3
		WHERE bank_account_id = $1;
	`
	tag, err := r.pool.Exec(ctx, query, bankAccountID, status, lastSyncAt, lastSuccessfulSyncAt)
	if err != nil {
		return fmt.Errorf("failed to update sync status for %s: %w", bankAccountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *bankAccountRepository) UpdateTokens(ctx context.Context, bankAccountID, encryptedAccess, encryptedRefresh string) error {
	query := `
		UPDATE bank_accounts
		SET encrypted_access_token = $2, encrypted_refresh_token = $3, last_updated_at = $4
		WHERE bank_account_id = $1;
	`
	tag, err := r.pool.Exec(ctx, query, bankAccountID, encryptedAccess, encryptedRefresh, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update tokens for %s: %w", bankAccountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *bankAccountRepository) SetSyncEnabled(ctx context.Context, bankAccountID string, enabled bool) error {
	query := `
		UPDATE bank_accounts
		SET sync_enabled = $2, last_updated_at = $3
		WHERE bank_account_id = $1;
	`
	tag, err := r.pool.Exec(ctx, query, bankAccountID, enabled, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set sync_enabled for %s: %w", bankAccountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *bankAccountRepository) scanOne(row pgx.Row, id string) (*domain.BankAccount, error) {
	account, err := scanBankAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find bank account %s: %w", id, err)
	}
	return account, nil
}

func scanBankAccount(row pgx.Row) (*domain.BankAccount, error) {
	var account domain.BankAccount
	err := row.Scan(
		&account.BankAccountID,
		&account.ExternalAccountID,
		&account.Provider,
		&account.Name,
		&account.EncryptedAccessToken,
		&account.EncryptedRefreshToken,
		&account.SyncFromDate,
		&account.LastSyncAt,
		&account.LastSyncStatus,
		&account.WebhookID,
		&account.WebhookURL,
		&account.SyncEnabled,
		&account.CreatedAt,
		&account.CreatedBy,
		&account.LastUpdatedAt,
		&account.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
