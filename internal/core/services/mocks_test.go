package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rentbooks/property_management_app/internal/adapters/bankprovider"
	"github.com/rentbooks/property_management_app/internal/core/domain"
)

// --- Repository mocks ---

type MockBankAccountRepository struct {
	mock.Mock
}

func (m *MockBankAccountRepository) SaveBankAccount(ctx context.Context, account domain.BankAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockBankAccountRepository) FindBankAccountByID(ctx context.Context, bankAccountID string) (*domain.BankAccount, error) {
	args := m.Called(ctx, bankAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccount), args.Error(1)
}

func (m *MockBankAccountRepository) FindBankAccountByExternalID(ctx context.Context, externalAccountID string) (*domain.BankAccount, error) {
	args := m.Called(ctx, externalAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccount), args.Error(1)
}

func (m *MockBankAccountRepository) ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BankAccount), args.Error(1)
}

func (m *MockBankAccountRepository) UpdateSyncStatus(ctx context.Context, bankAccountID string, status domain.SyncStatus, lastSyncAt time.Time, lastSuccessfulSyncAt *time.Time) error {
	args := m.Called(ctx, bankAccountID, status, lastSyncAt, lastSuccessfulSyncAt)
	return args.Error(0)
}

func (m *MockBankAccountRepository) UpdateTokens(ctx context.Context, bankAccountID, encryptedAccess, encryptedRefresh string) error {
	args := m.Called(ctx, bankAccountID, encryptedAccess, encryptedRefresh)
	return args.Error(0)
}

func (m *MockBankAccountRepository) SetSyncEnabled(ctx context.Context, bankAccountID string, enabled bool) error {
	args := m.Called(ctx, bankAccountID, enabled)
	return args.Error(0)
}

type MockSyncLogRepository struct {
	mock.Mock
}

func (m *MockSyncLogRepository) CreateSyncLog(ctx context.Context, log domain.SyncLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockSyncLogRepository) CloseSyncLog(ctx context.Context, syncLogID string, status domain.SyncLogStatus, fetched, skipped int, errorMessage string, completedAt time.Time) error {
	args := m.Called(ctx, syncLogID, status, fetched, skipped, errorMessage, completedAt)
	return args.Error(0)
}

func (m *MockSyncLogRepository) FindSyncLogByID(ctx context.Context, syncLogID string) (*domain.SyncLog, error) {
	args := m.Called(ctx, syncLogID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncLog), args.Error(1)
}

func (m *MockSyncLogRepository) FindInProgressByAccountID(ctx context.Context, bankAccountID string) (*domain.SyncLog, error) {
	args := m.Called(ctx, bankAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncLog), args.Error(1)
}

func (m *MockSyncLogRepository) FindByWebhookEventID(ctx context.Context, webhookEventID string) (*domain.SyncLog, error) {
	args := m.Called(ctx, webhookEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncLog), args.Error(1)
}

func (m *MockSyncLogRepository) ListSyncLogsByAccountID(ctx context.Context, bankAccountID string, limit int, nextToken *string) ([]domain.SyncLog, *string, error) {
	args := m.Called(ctx, bankAccountID, limit, nextToken)
	var logs []domain.SyncLog
	if args.Get(0) != nil {
		logs = args.Get(0).([]domain.SyncLog)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return logs, token, args.Error(2)
}

type MockBankTransactionRepository struct {
	mock.Mock
}

func (m *MockBankTransactionRepository) InsertIfAbsent(ctx context.Context, txn domain.BankTransaction) (bool, error) {
	args := m.Called(ctx, txn)
	return args.Bool(0), args.Error(1)
}

func (m *MockBankTransactionRepository) FindBankTransactionByID(ctx context.Context, bankTransactionID string) (*domain.BankTransaction, error) {
	args := m.Called(ctx, bankTransactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankTransaction), args.Error(1)
}

func (m *MockBankTransactionRepository) LinkPendingTransaction(ctx context.Context, bankTransactionID, pendingTransactionID string) error {
	args := m.Called(ctx, bankTransactionID, pendingTransactionID)
	return args.Error(0)
}

type MockPendingTransactionRepository struct {
	mock.Mock
}

func (m *MockPendingTransactionRepository) SavePendingTransaction(ctx context.Context, pending domain.PendingTransaction) error {
	args := m.Called(ctx, pending)
	return args.Error(0)
}

func (m *MockPendingTransactionRepository) FindPendingTransactionByID(ctx context.Context, pendingTransactionID string) (*domain.PendingTransaction, error) {
	args := m.Called(ctx, pendingTransactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingTransaction), args.Error(1)
}

func (m *MockPendingTransactionRepository) UpdateCandidate(ctx context.Context, pending domain.PendingTransaction) error {
	args := m.Called(ctx, pending)
	return args.Error(0)
}

func (m *MockPendingTransactionRepository) ListPendingByAccountID(ctx context.Context, bankAccountID string) ([]domain.PendingTransaction, error) {
	args := m.Called(ctx, bankAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PendingTransaction), args.Error(1)
}

func (m *MockPendingTransactionRepository) ListAllPending(ctx context.Context) ([]domain.PendingTransaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PendingTransaction), args.Error(1)
}

type MockMatchingRuleRepository struct {
	mock.Mock
}

func (m *MockMatchingRuleRepository) SaveRule(ctx context.Context, rule domain.MatchingRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockMatchingRuleRepository) FindRuleByID(ctx context.Context, ruleID string) (*domain.MatchingRule, error) {
	args := m.Called(ctx, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchingRule), args.Error(1)
}

func (m *MockMatchingRuleRepository) UpdateRule(ctx context.Context, rule domain.MatchingRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockMatchingRuleRepository) DeleteRule(ctx context.Context, ruleID string) error {
	args := m.Called(ctx, ruleID)
	return args.Error(0)
}

func (m *MockMatchingRuleRepository) ListRulesForAccount(ctx context.Context, bankAccountID string) ([]domain.MatchingRule, error) {
	args := m.Called(ctx, bankAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MatchingRule), args.Error(1)
}

func (m *MockMatchingRuleRepository) UpdatePriorities(ctx context.Context, bankAccountID string, orderedRuleIDs []string) error {
	args := m.Called(ctx, bankAccountID, orderedRuleIDs)
	return args.Error(0)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) ApproveBankTransaction(ctx context.Context, txn domain.Transaction, bankTransactionID string, pendingTransactionID *string) error {
	args := m.Called(ctx, txn, bankTransactionID, pendingTransactionID)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

type MockPropertyRepository struct {
	mock.Mock
}

func (m *MockPropertyRepository) FindPropertyByID(ctx context.Context, propertyID string) (*domain.Property, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Property), args.Error(1)
}

// --- Service mocks ---

type MockTransactionSource struct {
	mock.Mock
}

func (m *MockTransactionSource) FetchSince(ctx context.Context, account domain.BankAccount, since time.Time) ([]bankprovider.Transaction, bool, error) {
	args := m.Called(ctx, account, since)
	var txns []bankprovider.Transaction
	if args.Get(0) != nil {
		txns = args.Get(0).([]bankprovider.Transaction)
	}
	return txns, args.Bool(1), args.Error(2)
}

type MockTransactionProcessor struct {
	mock.Mock
}

func (m *MockTransactionProcessor) ProcessTransactions(ctx context.Context, raw []bankprovider.Transaction, bankAccountID string) domain.ProcessResult {
	args := m.Called(ctx, raw, bankAccountID)
	return args.Get(0).(domain.ProcessResult)
}

type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) StartInitialImport(ctx context.Context, account domain.BankAccount) (string, error) {
	args := m.Called(ctx, account)
	return args.String(0), args.Error(1)
}

func (m *MockSyncService) StartManualSync(ctx context.Context, bankAccountID string) (string, error) {
	args := m.Called(ctx, bankAccountID)
	return args.String(0), args.Error(1)
}

func (m *MockSyncService) ListBankAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BankAccount), args.Error(1)
}

func (m *MockSyncService) GetBankAccount(ctx context.Context, bankAccountID string) (*domain.BankAccount, error) {
	args := m.Called(ctx, bankAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccount), args.Error(1)
}

func (m *MockSyncService) Disconnect(ctx context.Context, bankAccountID string) error {
	args := m.Called(ctx, bankAccountID)
	return args.Error(0)
}

func (m *MockSyncService) ListSyncLogs(ctx context.Context, bankAccountID string, limit int, nextToken *string) ([]domain.SyncLog, *string, error) {
	args := m.Called(ctx, bankAccountID, limit, nextToken)
	var logs []domain.SyncLog
	if args.Get(0) != nil {
		logs = args.Get(0).([]domain.SyncLog)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return logs, token, args.Error(2)
}

type MockReprocessService struct {
	mock.Mock
}

func (m *MockReprocessService) ReprocessPendingTransactions(ctx context.Context, scopeBankAccountID *string) (domain.ReprocessResult, error) {
	args := m.Called(ctx, scopeBankAccountID)
	return args.Get(0).(domain.ReprocessResult), args.Error(1)
}

// --- Test helpers ---

func strPtr(s string) *string { return &s }

func typePtr(t domain.TransactionType) *domain.TransactionType { return &t }
