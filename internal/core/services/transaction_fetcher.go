package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rentbooks/property_management_app/internal/adapters/bankprovider"
	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	portsrepo "github.com/rentbooks/property_management_app/internal/core/ports/repositories"
	"github.com/rentbooks/property_management_app/internal/middleware"
	appcrypto "github.com/rentbooks/property_management_app/internal/platform/crypto"
)

// DefaultPageSize is the provider page size used for transaction listing.
const DefaultPageSize = 100

// TransactionSource abstracts the paginated provider fetch so sync
// orchestration can be tested without HTTP.
type TransactionSource interface {
	// FetchSince returns all transactions for the account created at or after
	// since. partial reports that the context deadline was reached before the
	// history was exhausted; the returned slice is still valid.
	FetchSince(ctx context.Context, account domain.BankAccount, since time.Time) (txns []bankprovider.Transaction, partial bool, err error)
}

// transactionFetcher walks the provider's transaction pages newest-first
// until the since floor, handling token refresh transparently.
type transactionFetcher struct {
	provider    *bankprovider.Client
	encryptor   *appcrypto.Encryptor
	accountRepo portsrepo.BankAccountRepository
	pageSize    int
}

// NewTransactionFetcher creates the provider-backed transaction source.
func NewTransactionFetcher(provider *bankprovider.Client, encryptor *appcrypto.Encryptor, accountRepo portsrepo.BankAccountRepository) TransactionSource {
	return &transactionFetcher{
		provider:    provider,
		encryptor:   encryptor,
		accountRepo: accountRepo,
		pageSize:    DefaultPageSize,
	}
}

var _ TransactionSource = (*transactionFetcher)(nil)

func (f *transactionFetcher) FetchSince(ctx context.Context, account domain.BankAccount, since time.Time) ([]bankprovider.Transaction, bool, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	// The server boots without provider credentials; a sync against an account
	// that predates the credential loss must fail, not crash the process.
	if f.provider == nil {
		return nil, false, apperrors.ErrOAuthConfigMissing
	}

	accessToken, err := f.encryptor.Decrypt(account.EncryptedAccessToken)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	var (
		all       []bankprovider.Transaction
		before    *time.Time
		refreshed bool
	)

	for {
		if ctx.Err() != nil {
			// Budget exhausted between pages. Everything fetched so far is
			// kept and the sync is reported partial, not failed.
			logger.Warn("Fetch budget exhausted, returning partial result",
				slog.Int("transactions_fetched", len(all)))
			return all, true, nil
		}

		page, err := f.provider.ListTransactions(ctx, accessToken, account.ExternalAccountID, since, f.pageSize, before)
		if errors.Is(err, apperrors.ErrProviderUnauthorized) && !refreshed {
			refreshed = true
			accessToken, err = f.refreshTokens(ctx, &account)
			if err != nil {
				return all, false, err
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				logger.Warn("Fetch budget exhausted mid-page, returning partial result",
					slog.Int("transactions_fetched", len(all)))
				return all, true, nil
			}
			return all, false, fmt.Errorf("failed to list transactions: %w", err)
		}

		all = append(all, page...)
		if len(page) < f.pageSize {
			return all, false, nil
		}

		// Pages come back newest-first, so the last item is the oldest and its
		// created timestamp is the exclusive cursor for the next page.
		oldest := page[len(page)-1]
		created, err := oldest.GetCreated()
		if err != nil {
			return all, false, fmt.Errorf("cannot paginate past transaction %s: %w", oldest.ID, err)
		}
		before = &created
	}
}

// refreshTokens swaps the expired access token for a fresh one and persists
// the rotated pair before the page is retried.
func (f *transactionFetcher) refreshTokens(ctx context.Context, account *domain.BankAccount) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	logger.Info("Access token rejected, refreshing", slog.String("bank_account_id", account.BankAccountID))

	refreshToken, err := f.encryptor.Decrypt(account.EncryptedRefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	token, err := f.provider.RefreshToken(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	encryptedAccess, err := f.encryptor.Encrypt(token.AccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt access token: %w", err)
	}
	newRefresh := token.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	encryptedRefresh, err := f.encryptor.Encrypt(newRefresh)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	if err := f.accountRepo.UpdateTokens(ctx, account.BankAccountID, encryptedAccess, encryptedRefresh); err != nil {
		return "", fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	account.EncryptedAccessToken = encryptedAccess
	account.EncryptedRefreshToken = encryptedRefresh

	return token.AccessToken, nil
}
