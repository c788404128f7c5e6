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

type pendingTransactionRepository struct {
	pool *pgxpool.Pool
}

// NewPendingTransactionRepository creates a new repository for the review
// queue.
func NewPendingTransactionRepository(pool *pgxpool.Pool) portsrepo.PendingTransactionRepository {
	return &pendingTransactionRepository{pool: pool}
}

var _ portsrepo.PendingTransactionRepository = (*pendingTransactionRepository)(nil)

const pendingTransactionColumns = `pending_transaction_id, bank_transaction_id, bank_account_id, property_id, lease_id, transaction_type, category, reviewed_at, reviewed_by, created_at`

func (r *pendingTransactionRepository) SavePendingTransaction(ctx context.Context, pending domain.PendingTransaction) error {
	query := `
		INSERT INTO pending_transactions (` + pendingTransactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.pool.Exec(ctx, query,
		pending.PendingTransactionID,
		pending.BankTransactionID,
		pending.BankAccountID,
		pending.PropertyID,
		pending.LeaseID,
		pending.Type,
		pending.Category,
		pending.ReviewedAt,
		pending.ReviewedBy,
		pending.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save pending transaction %s: %w", pending.PendingTransactionID, err)
	}
	return nil
}

func (r *pendingTransactionRepository) FindPendingTransactionByID(ctx context.Context, pendingTransactionID string) (*domain.PendingTransaction, error) {
	query := `SELECT ` + pendingTransactionColumns + ` FROM pending_transactions WHERE pending_transaction_id = $1;`
	pending, err := scanPendingTransaction(r.pool.QueryRow(ctx, query, pendingTransactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find pending transaction %s: %w", pendingTransactionID, err)
	}
	return pending, nil
}

func (r *pendingTransactionRepository) UpdateCandidate(ctx context.Context, pending domain.PendingTransaction) error {
	query := `
		UPDATE pending_transactions
		SET property_id = $2, lease_id = $3, transaction_type = $4, category = $5
		WHERE pending_transaction_id = $1;
	`
	tag, err := r.pool.Exec(ctx, query,
		pending.PendingTransactionID,
		pending.PropertyID,
		pending.LeaseID,
		pending.Type,
		pending.Category,
	)
	if err != nil {
		return fmt.Errorf("failed to update candidate on %s: %w", pending.PendingTransactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *pendingTransactionRepository) ListPendingByAccountID(ctx context.Context, bankAccountID string) ([]domain.PendingTransaction, error) {
	query := `
		SELECT ` + pendingTransactionColumns + `
		FROM pending_transactions
		WHERE bank_account_id = $1
		ORDER BY created_at;
	`
	return r.list(ctx, query, bankAccountID)
}

func (r *pendingTransactionRepository) ListAllPending(ctx context.Context) ([]domain.PendingTransaction, error) {
	query := `SELECT ` + pendingTransactionColumns + ` FROM pending_transactions ORDER BY created_at;`
	return r.list(ctx, query)
}

func (r *pendingTransactionRepository) list(ctx context.Context, query string, args ...any) ([]domain.PendingTransaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending transactions: %w", err)
	}
	defer rows.Close()

	pendings := []domain.PendingTransaction{}
	for rows.Next() {
		pending, err := scanPendingTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending transaction row: %w", err)
		}
		pendings = append(pendings, *pending)
	}
	return pendings, rows.Err()
}

func scanPendingTransaction(row pgx.Row) (*domain.PendingTransaction, error) {
	var pending domain.PendingTransaction
	err := row.Scan(
		&pending.PendingTransactionID,
		&pending.BankTransactionID,
		&pending.BankAccountID,
		&pending.PropertyID,
		&pending.LeaseID,
		&pending.Type,
		&pending.Category,
		&pending.ReviewedAt,
		&pending.ReviewedBy,
		&pending.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pending, nil
}
