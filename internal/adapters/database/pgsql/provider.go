package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/rentbooks/property_management_app/internal/core/ports/repositories"
)

// NewRepositoryProvider wires every pgsql repository over one shared pool.
func NewRepositoryProvider(pool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		BankAccountRepo:        NewBankAccountRepository(pool),
		SyncLogRepo:            NewSyncLogRepository(pool),
		BankTransactionRepo:    NewBankTransactionRepository(pool),
		PendingTransactionRepo: NewPendingTransactionRepository(pool),
		MatchingRuleRepo:       NewMatchingRuleRepository(pool),
		TransactionRepo:        NewTransactionRepository(pool),
		PropertyRepo:           NewPropertyRepository(pool),
	}
}
