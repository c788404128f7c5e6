package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/rentbooks/property_management_app/internal/adapters/bankprovider"
	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	portsrepo "github.com/rentbooks/property_management_app/internal/core/ports/repositories"
	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
	"github.com/rentbooks/property_management_app/internal/dto"
	"github.com/rentbooks/property_management_app/internal/middleware"
	appcrypto "github.com/rentbooks/property_management_app/internal/platform/crypto"
	"github.com/rentbooks/property_management_app/internal/platform/cache"
)

const (
	// StateTTL bounds how long an issued OAuth state token stays valid.
	StateTTL = 10 * time.Minute
	// PendingConnectionTTL bounds how long exchanged tokens wait for the user
	// to approve the connection in the provider's app. Tokens are never
	// persisted before completion, so expiry cannot leak durable state.
	PendingConnectionTTL = 30 * time.Minute

	stateSweepInterval = time.Minute
)

// pendingConnection parks exchanged tokens between the OAuth callback and the
// user's in-app SCA approval.
type pendingConnection struct {
	Token        *oauth2.Token
	SyncFromDate time.Time
}

// connectionService manages the OAuth connect flow and the pending-connection
// side-channel.
type connectionService struct {
	provider     *bankprovider.Client
	providerName string
	encryptor    *appcrypto.Encryptor
	accountRepo  portsrepo.BankAccountRepository
	syncSvc      portssvc.SyncSvcFacade
	stateStore   *cache.TTLStore[time.Time]
	pendingStore *cache.TTLStore[pendingConnection]
}

// NewConnectionService creates the connection service with its two TTL
// stores.
func NewConnectionService(
	provider *bankprovider.Client,
	providerName string,
	encryptor *appcrypto.Encryptor,
	accountRepo portsrepo.BankAccountRepository,
	syncSvc portssvc.SyncSvcFacade,
) portssvc.ConnectionSvcFacade {
	return &connectionService{
		provider:     provider,
		providerName: providerName,
		encryptor:    encryptor,
		accountRepo:  accountRepo,
		syncSvc:      syncSvc,
		stateStore:   cache.NewTTLStore[time.Time](StateTTL, stateSweepInterval),
		pendingStore: cache.NewTTLStore[pendingConnection](PendingConnectionTTL, stateSweepInterval),
	}
}

var _ portssvc.ConnectionSvcFacade = (*connectionService)(nil)

// GenerateAuthURL mints a random state token, remembers the requested import
// floor under it, and returns the provider authorization URL embedding it.
func (s *connectionService) GenerateAuthURL(ctx context.Context, syncFromDays int) (string, error) {
	if s.provider == nil {
		return "", apperrors.ErrOAuthConfigMissing
	}

	state := uuid.NewString()
	syncFromDate := time.Now().UTC().AddDate(0, 0, -syncFromDays)
	s.stateStore.Put(state, syncFromDate)

	middleware.GetLoggerFromCtx(ctx).Info("Issued OAuth state",
		slog.Time("sync_from_date", syncFromDate))
	return s.provider.AuthCodeURL(state), nil
}

// HandleCallback consumes the state (one-time use, success or failure),
// exchanges the code and parks the tokens as a pending connection.
func (s *connectionService) HandleCallback(ctx context.Context, state, code string) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	syncFromDate, found, expired := s.stateStore.Consume(state)
	if expired {
		return "", apperrors.ErrExpiredState
	}
	if !found {
		return "", apperrors.ErrInvalidState
	}

	token, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		logger.Error("Token exchange failed", slog.String("error", err.Error()))
		return "", err
	}

	pendingID := uuid.NewString()
	s.pendingStore.Put(pendingID, pendingConnection{Token: token, SyncFromDate: syncFromDate})

	logger.Info("Stored pending connection awaiting SCA approval")
	return pendingID, nil
}

// CompleteConnection verifies the user approved the connection in the
// provider's app, persists the BankAccount with encrypted tokens, and starts
// the initial import. The pending entry is consumed only on success so the
// caller can retry while SCA approval is still outstanding.
func (s *connectionService) CompleteConnection(ctx context.Context, req dto.CompleteConnectionRequest, userID string) (*domain.BankAccount, string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	pc, found := s.pendingStore.Peek(req.PendingConnectionID)
	if !found {
		return nil, "", fmt.Errorf("%w: pending connection not found or expired", apperrors.ErrNotFound)
	}

	// Listing accounts only succeeds once SCA approval is done, which makes it
	// the approval probe. It also confirms the requested account is covered by
	// the grant.
	accounts, err := s.provider.GetAccounts(ctx, pc.Token.AccessToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrProviderUnauthorized) {
			logger.Warn("Provider access check failed, SCA approval likely outstanding", slog.String("error", err.Error()))
			return nil, "", err
		}
		// Anything else is a provider outage, not an approval problem. The
		// pending entry survives so the caller can simply retry.
		logger.Error("Provider account listing failed", slog.String("error", err.Error()))
		return nil, "", fmt.Errorf("%w: %v", apperrors.ErrProviderUnavailable, err)
	}
	if !containsAccount(accounts, req.ExternalAccountID) {
		return nil, "", fmt.Errorf("%w: account %s is not covered by this connection", apperrors.ErrValidation, req.ExternalAccountID)
	}

	if existing, err := s.accountRepo.FindBankAccountByExternalID(ctx, req.ExternalAccountID); err == nil && existing != nil {
		return nil, "", fmt.Errorf("%w: account already connected", apperrors.ErrDuplicate)
	}

	encryptedAccess, err := s.encryptor.Encrypt(pc.Token.AccessToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encryptedRefresh, err := s.encryptor.Encrypt(pc.Token.RefreshToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	now := time.Now().UTC()
	account := domain.BankAccount{
		BankAccountID:         uuid.NewString(),
		ExternalAccountID:     req.ExternalAccountID,
		Provider:              s.providerName,
		Name:                  req.Name,
		EncryptedAccessToken:  encryptedAccess,
		EncryptedRefreshToken: encryptedRefresh,
		SyncFromDate:          pc.SyncFromDate,
		LastSyncStatus:        domain.SyncStatusNeverSynced,
		SyncEnabled:           true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.accountRepo.SaveBankAccount(ctx, account); err != nil {
		return nil, "", fmt.Errorf("failed to save bank account: %w", err)
	}
	s.pendingStore.Delete(req.PendingConnectionID)

	syncLogID, err := s.syncSvc.StartInitialImport(ctx, account)
	if err != nil {
		// The account is connected; the user can trigger a manual sync instead.
		logger.Error("Failed to start initial import", slog.String("bank_account_id", account.BankAccountID), slog.String("error", err.Error()))
		return &account, "", nil
	}

	return &account, syncLogID, nil
}

func containsAccount(accounts []bankprovider.Account, externalAccountID string) bool {
	for _, a := range accounts {
		if a.ID == externalAccountID {
			return true
		}
	}
	return false
}
