package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rentbooks/property_management_app/internal/adapters/bankprovider"
	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	"github.com/rentbooks/property_management_app/internal/core/services"
	appcrypto "github.com/rentbooks/property_management_app/internal/platform/crypto"
)

func testEncryptor(t *testing.T) *appcrypto.Encryptor {
	t.Helper()
	encryptor, err := appcrypto.NewEncryptor(testEncryptionKey)
	require.NoError(t, err)
	return encryptor
}

func fetchAccount(t *testing.T, encryptor *appcrypto.Encryptor, accessToken, refreshToken string) domain.BankAccount {
	t.Helper()
	encAccess, err := encryptor.Encrypt(accessToken)
	require.NoError(t, err)
	encRefresh, err := encryptor.Encrypt(refreshToken)
	require.NoError(t, err)
	return domain.BankAccount{
		BankAccountID:         testAccountID,
		ExternalAccountID:     "ext-acct-1",
		EncryptedAccessToken:  encAccess,
		EncryptedRefreshToken: encRefresh,
		SyncEnabled:           true,
	}
}

func fetcherClient(t *testing.T, serverURL string) *bankprovider.Client {
	t.Helper()
	client, err := bankprovider.NewClient(bankprovider.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:3000/callback",
		APIBaseURL:   serverURL,
		AuthURL:      serverURL + "/oauth/authorize",
		TokenURL:     serverURL + "/oauth/token",
	})
	require.NoError(t, err)
	return client
}

// txnPage builds count transactions newest-first, ending one minute apart
// below newest.
func txnPage(newest time.Time, offset, count int) []bankprovider.Transaction {
	page := make([]bankprovider.Transaction, 0, count)
	for i := 0; i < count; i++ {
		created := newest.Add(-time.Duration(offset+i) * time.Minute)
		page = append(page, bankprovider.Transaction{
			ID:        fmt.Sprintf("tx-%03d", offset+i),
			AccountID: "ext-acct-1",
			Amount:    "10.00",
			Currency:  "GBP",
			Created:   created.Format(time.RFC3339),
		})
	}
	return page
}

func writeTransactions(w http.ResponseWriter, page []bankprovider.Transaction) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"transactions": page})
}

func TestTransactionFetcher_WalksAllPagesWithBeforeCursor(t *testing.T) {
	newest := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	firstPage := txnPage(newest, 0, services.DefaultPageSize)
	secondPage := txnPage(newest, services.DefaultPageSize, 5)

	var beforeParams []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		beforeParams = append(beforeParams, r.URL.Query().Get("before"))
		if r.URL.Query().Get("before") == "" {
			writeTransactions(w, firstPage)
			return
		}
		writeTransactions(w, secondPage)
	}))
	defer server.Close()

	encryptor := testEncryptor(t)
	accountRepo := new(MockBankAccountRepository)
	fetcher := services.NewTransactionFetcher(fetcherClient(t, server.URL), encryptor, accountRepo)
	account := fetchAccount(t, encryptor, "access-token-1", "refresh-token-1")

	txns, partial, err := fetcher.FetchSince(context.Background(), account, newest.AddDate(0, -6, 0))

	require.NoError(t, err)
	assert.False(t, partial)
	require.Len(t, txns, services.DefaultPageSize+5)
	assert.Equal(t, "tx-000", txns[0].ID)
	assert.Equal(t, fmt.Sprintf("tx-%03d", services.DefaultPageSize+4), txns[len(txns)-1].ID)

	// The second request's cursor is the created time of the first page's
	// oldest item.
	require.Len(t, beforeParams, 2)
	assert.Empty(t, beforeParams[0])
	oldestCreated, err := firstPage[len(firstPage)-1].GetCreated()
	require.NoError(t, err)
	assert.Equal(t, oldestCreated.UTC().Format(time.RFC3339), beforeParams[1])
}

func TestTransactionFetcher_ShortFirstPageTerminates(t *testing.T) {
	newest := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		writeTransactions(w, txnPage(newest, 0, 3))
	}))
	defer server.Close()

	encryptor := testEncryptor(t)
	fetcher := services.NewTransactionFetcher(fetcherClient(t, server.URL), encryptor, new(MockBankAccountRepository))
	account := fetchAccount(t, encryptor, "access-token-1", "refresh-token-1")

	txns, partial, err := fetcher.FetchSince(context.Background(), account, newest.AddDate(0, -1, 0))

	require.NoError(t, err)
	assert.False(t, partial)
	assert.Len(t, txns, 3)
	assert.Equal(t, 1, requests)
}

func TestTransactionFetcher_RefreshesTokenOnceAndRetries(t *testing.T) {
	newest := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"token_type":    "bearer",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeTransactions(w, txnPage(newest, 0, 2))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	encryptor := testEncryptor(t)
	accountRepo := new(MockBankAccountRepository)
	accountRepo.On("UpdateTokens", mock.Anything, testAccountID,
		mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			// The rotated pair is persisted encrypted, never raw.
			access, err := encryptor.Decrypt(args.String(2))
			require.NoError(t, err)
			assert.Equal(t, "new-access", access)
			refresh, err := encryptor.Decrypt(args.String(3))
			require.NoError(t, err)
			assert.Equal(t, "new-refresh", refresh)
		}).Return(nil).Once()

	fetcher := services.NewTransactionFetcher(fetcherClient(t, server.URL), encryptor, accountRepo)
	account := fetchAccount(t, encryptor, "stale-access", "refresh-token-1")

	txns, partial, err := fetcher.FetchSince(context.Background(), account, newest.AddDate(0, -1, 0))

	require.NoError(t, err)
	assert.False(t, partial)
	assert.Len(t, txns, 2)
	accountRepo.AssertExpectations(t)
}

func TestTransactionFetcher_PersistentUnauthorizedFailsAfterOneRefresh(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "new-access",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	listRequests := 0
	mux.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		listRequests++
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	encryptor := testEncryptor(t)
	accountRepo := new(MockBankAccountRepository)
	accountRepo.On("UpdateTokens", mock.Anything, testAccountID, mock.Anything, mock.Anything).
		Return(nil).Once()

	fetcher := services.NewTransactionFetcher(fetcherClient(t, server.URL), encryptor, accountRepo)
	account := fetchAccount(t, encryptor, "stale-access", "refresh-token-1")

	_, partial, err := fetcher.FetchSince(context.Background(), account, time.Now().AddDate(0, -1, 0))

	require.Error(t, err)
	assert.False(t, partial)
	assert.Equal(t, 2, listRequests, "exactly one retry after the refresh")
}

func TestTransactionFetcher_BudgetExhaustedBetweenPagesIsPartial(t *testing.T) {
	newest := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Serve a full page, then expire the budget before the next request.
		writeTransactions(w, txnPage(newest, 0, services.DefaultPageSize))
		cancel()
	}))
	defer server.Close()

	encryptor := testEncryptor(t)
	fetcher := services.NewTransactionFetcher(fetcherClient(t, server.URL), encryptor, new(MockBankAccountRepository))
	account := fetchAccount(t, encryptor, "access-token-1", "refresh-token-1")

	txns, partial, err := fetcher.FetchSince(ctx, account, newest.AddDate(0, -6, 0))

	require.NoError(t, err)
	assert.True(t, partial, "deadline between pages reports a partial fetch, not a failure")
	assert.Len(t, txns, services.DefaultPageSize)
}

func TestTransactionFetcher_ExpiredBudgetBeforeFirstPageIsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	encryptor := testEncryptor(t)
	fetcher := services.NewTransactionFetcher(fetcherClient(t, "http://127.0.0.1:0"), encryptor, new(MockBankAccountRepository))
	account := fetchAccount(t, encryptor, "access-token-1", "refresh-token-1")

	txns, partial, err := fetcher.FetchSince(ctx, account, time.Now().AddDate(0, -1, 0))

	require.NoError(t, err)
	assert.True(t, partial)
	assert.Empty(t, txns)
}

func TestTransactionFetcher_NilProviderFailsInsteadOfPanicking(t *testing.T) {
	encryptor := testEncryptor(t)
	fetcher := services.NewTransactionFetcher(nil, encryptor, new(MockBankAccountRepository))
	account := fetchAccount(t, encryptor, "access-token-1", "refresh-token-1")

	_, _, err := fetcher.FetchSince(context.Background(), account, time.Now().AddDate(0, -1, 0))

	require.ErrorIs(t, err, apperrors.ErrOAuthConfigMissing)
}
