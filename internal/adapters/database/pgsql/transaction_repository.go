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

type transactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new repository for finalized
// transactions.
func NewTransactionRepository(pool *pgxpool.Pool) portsrepo.TransactionRepository {
	return &transactionRepository{pool: pool}
}

var _ portsrepo.TransactionRepository = (*transactionRepository)(nil)

const transactionColumns = `transaction_id, property_id, lease_id, transaction_type, category, amount, currency_code, transaction_date, description, bank_transaction_id, created_at, created_by, last_updated_at, last_updated_by`

// ApproveBankTransaction finalizes a bank transaction in one database
// transaction: insert the Transaction, set the bank transaction's
// transaction_id link while clearing pending_transaction_id, and delete the
// pending row when one exists. Either everything lands or nothing does.
func (r *transactionRepository) ApproveBankTransaction(ctx context.Context, txn domain.Transaction, bankTransactionID string, pendingTransactionID *string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	insertQuery := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err = tx.Exec(ctx, insertQuery,
		txn.TransactionID,
		txn.PropertyID,
		txn.LeaseID,
		txn.Type,
		txn.Category,
		txn.Amount,
		txn.CurrencyCode,
		txn.TransactionDate,
		txn.Description,
		txn.BankTransactionID,
		txn.CreatedAt,
		txn.CreatedBy,
		txn.LastUpdatedAt,
		txn.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", txn.TransactionID, err)
	}

	linkQuery := `
		UPDATE bank_transactions
		SET transaction_id = $2, pending_transaction_id = NULL
		WHERE bank_transaction_id = $1 AND transaction_id IS NULL;
	`
	tag, err := tx.Exec(ctx, linkQuery, bankTransactionID, txn.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to link bank transaction %s: %w", bankTransactionID, err)
	}
	if tag.RowsAffected() == 0 {
		// Already approved elsewhere, or the row is missing.
		return fmt.Errorf("bank transaction %s: %w", bankTransactionID, apperrors.ErrDuplicate)
	}

	if pendingTransactionID != nil {
		deleteQuery := `DELETE FROM pending_transactions WHERE pending_transaction_id = $1;`
		tag, err := tx.Exec(ctx, deleteQuery, *pendingTransactionID)
		if err != nil {
			return fmt.Errorf("failed to delete pending transaction %s: %w", *pendingTransactionID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("pending transaction %s: %w", *pendingTransactionID, apperrors.ErrNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit approval of %s: %w", bankTransactionID, err)
	}
	return nil
}

func (r *transactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1;`

	var txn domain.Transaction
	err := r.pool.QueryRow(ctx, query, transactionID).Scan(
		&txn.TransactionID,
		&txn.PropertyID,
		&txn.LeaseID,
		&txn.Type,
		&txn.Category,
		&txn.Amount,
		&txn.CurrencyCode,
		&txn.TransactionDate,
		&txn.Description,
		&txn.BankTransactionID,
		&txn.CreatedAt,
		&txn.CreatedBy,
		&txn.LastUpdatedAt,
		&txn.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}
	return &txn, nil
}
