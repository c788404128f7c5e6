package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeTokenRoundTrip(t *testing.T) {
	startedAt := time.Date(2026, 8, 30, 14, 22, 5, 123456789, time.UTC)
	token := EncodeToken(startedAt, "log-42")

	decodedAt, rowID, err := DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, startedAt.Equal(decodedAt))
	assert.Equal(t, "log-42", rowID)
}

func TestDecodeTokenRejectsInvalidBase64(t *testing.T) {
	_, _, err := DecodeToken("not-base64!!!")
	assert.Error(t, err)
}

func TestDecodeTokenRejectsMissingSeparator(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte("no separator here"))
	_, _, err := DecodeToken(token)
	assert.Error(t, err)
}

func TestDecodeTokenRejectsBadTimestamp(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte("yesterday|log-1"))
	_, _, err := DecodeToken(token)
	assert.Error(t, err)
}

func TestDecodeTokenKeepsSeparatorInRowID(t *testing.T) {
	startedAt := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	token := EncodeToken(startedAt, "log|with|pipes")

	_, rowID, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "log|with|pipes", rowID)
}
