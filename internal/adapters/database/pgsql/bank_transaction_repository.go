package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	portsrepo "github.com/rentbooks/property_management_app/internal/core/ports/repositories"
)

type bankTransactionRepository struct {
	pool *pgxpool.Pool
}

// NewBankTransactionRepository creates a new repository for raw bank
// transactions.
func NewBankTransactionRepository(pool *pgxpool.Pool) portsrepo.BankTransactionRepository {
	return &bankTransactionRepository{pool: pool}
}

var _ portsrepo.BankTransactionRepository = (*bankTransactionRepository)(nil)

const bankTransactionColumns = `bank_transaction_id, bank_account_id, external_id, amount, currency_code, description, counterparty_name, merchant, reference, provider_category, transaction_date, settled_at, transaction_id, pending_transaction_id, created_at`

// InsertIfAbsent relies on the unique index over (bank_account_id,
// external_id): ON CONFLICT DO NOTHING makes concurrent inserts of the same
// provider transaction race-safe, and the affected-row count tells the caller
// whether this insert won.
func (r *bankTransactionRepository) InsertIfAbsent(ctx context.Context, txn domain.BankTransaction) (bool, error) {
	query := `
		INSERT INTO bank_transactions (` + bankTransactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (bank_account_id, external_id) DO NOTHING;
	`
	tag, err := r.pool.Exec(ctx, query,
		txn.BankTransactionID,
		txn.BankAccountID,
		txn.ExternalID,
		txn.Amount,
		txn.CurrencyCode,
		txn.Description,
		txn.CounterpartyName,
		txn.Merchant,
		txn.Reference,
		txn.ProviderCategory,
		txn.TransactionDate,
		txn.SettledAt,
		txn.TransactionID,
		txn.PendingTransactionID,
		txn.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert bank transaction %s: %w", txn.ExternalID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *bankTransactionRepository) FindBankTransactionByID(ctx context.Context, bankTransactionID string) (*domain.BankTransaction, error) {
	query := `SELECT ` + bankTransactionColumns + ` FROM bank_transactions WHERE bank_transaction_id = $1;`

	var txn domain.BankTransaction
	err := r.pool.QueryRow(ctx, query, bankTransactionID).Scan(
		&txn.BankTransactionID,
		&txn.BankAccountID,
		&txn.ExternalID,
		&txn.Amount,
		&txn.CurrencyCode,
		&txn.Description,
		&txn.CounterpartyName,
		&txn.Merchant,
		&txn.Reference,
		&txn.ProviderCategory,
		&txn.TransactionDate,
		&txn.SettledAt,
		&txn.TransactionID,
		&txn.PendingTransactionID,
		&txn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find bank transaction %s: %w", bankTransactionID, err)
	}
	return &txn, nil
}

func (r *bankTransactionRepository) LinkPendingTransaction(ctx context.Context, bankTransactionID, pendingTransactionID string) error {
	query := `
		UPDATE bank_transactions
		SET pending_transaction_id = $2
		WHERE bank_transaction_id = $1 AND transaction_id IS NULL;
	`
	tag, err := r.pool.Exec(ctx, query, bankTransactionID, pendingTransactionID)
	if err != nil {
		return fmt.Errorf("failed to link pending transaction on %s: %w", bankTransactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
