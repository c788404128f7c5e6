package services

import (
	"log/slog"

	"github.com/rentbooks/property_management_app/internal/adapters/bankprovider"
	portsrepo "github.com/rentbooks/property_management_app/internal/core/ports/repositories"
	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
	"github.com/rentbooks/property_management_app/internal/platform/config"
	appcrypto "github.com/rentbooks/property_management_app/internal/platform/crypto"
)

// NewServiceContainer wires every service with its dependencies. provider may
// be nil when the bank OAuth credentials are not configured; connection and
// sync operations then fail with ErrOAuthConfigMissing instead of panicking.
func NewServiceContainer(
	cfg *config.Config,
	repos portsrepo.RepositoryProvider,
	provider *bankprovider.Client,
	encryptor *appcrypto.Encryptor,
	broker *ProgressBroker,
	logger *slog.Logger,
) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Progress = broker

	processor := NewTransactionProcessor(
		repos.BankTransactionRepo,
		repos.PendingTransactionRepo,
		repos.MatchingRuleRepo,
		repos.TransactionRepo,
		repos.PropertyRepo,
	)

	fetcher := NewTransactionFetcher(provider, encryptor, repos.BankAccountRepo)
	container.Sync = NewSyncService(
		repos.BankAccountRepo,
		repos.SyncLogRepo,
		fetcher,
		processor,
		broker,
		logger,
		cfg.BulkImportTimeout,
		cfg.ManualSyncTimeout,
	)

	container.Connection = NewConnectionService(
		provider,
		cfg.BankProviderName,
		encryptor,
		repos.BankAccountRepo,
		container.Sync,
	)

	container.Reprocess = NewReprocessService(
		repos.PendingTransactionRepo,
		repos.BankTransactionRepo,
		repos.MatchingRuleRepo,
		repos.TransactionRepo,
		repos.PropertyRepo,
	)
	container.Rule = NewRuleService(repos.MatchingRuleRepo, container.Reprocess)
	container.Review = NewReviewService(
		repos.PendingTransactionRepo,
		repos.BankTransactionRepo,
		repos.TransactionRepo,
		repos.PropertyRepo,
	)
	container.Webhook = NewWebhookService(repos.BankAccountRepo, repos.SyncLogRepo, processor)

	return container
}
