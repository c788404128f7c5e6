package repositories

// RepositoryProvider bundles every repository implementation for service
// container construction.
type RepositoryProvider struct {
	BankAccountRepo        BankAccountRepository
	SyncLogRepo            SyncLogRepository
	BankTransactionRepo    BankTransactionRepository
	PendingTransactionRepo PendingTransactionRepository
	MatchingRuleRepo       MatchingRuleRepository
	TransactionRepo        TransactionRepository
	PropertyRepo           PropertyRepository
}
