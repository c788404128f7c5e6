package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInvalidState indicates an OAuth state token that was never issued or was
// already consumed.
var ErrInvalidState = errors.New("invalid oauth state")

// ErrExpiredState indicates an OAuth state token older than its TTL. The user
// must restart the connect flow.
var ErrExpiredState = errors.New("expired oauth state")

// ErrOAuthConfigMissing indicates missing provider OAuth configuration. This
// is a server misconfiguration, not a user error.
var ErrOAuthConfigMissing = errors.New("oauth provider configuration missing")

// ErrOAuthExchangeFailed indicates the provider rejected a token exchange or
// refresh. The raw provider error stays in logs; callers surface a translated
// message.
var ErrOAuthExchangeFailed = errors.New("oauth token exchange failed")

// ErrSyncInProgress indicates a sync is already running for the account. The
// caller should retry later; this is not an alarmable error.
var ErrSyncInProgress = errors.New("sync already in progress for this account")

// ErrProviderUnauthorized indicates the provider rejected the access token.
// The fetcher refreshes and retries once before surfacing this.
var ErrProviderUnauthorized = errors.New("provider rejected access token")

// ErrProviderUnavailable indicates the provider could not be reached or
// answered with a non-auth failure. The operation can be retried as-is.
var ErrProviderUnavailable = errors.New("provider unavailable")
