package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, ttl time.Duration) *TTLStore[string] {
	t.Helper()
	s := NewTTLStore[string](ttl, time.Hour)
	t.Cleanup(s.Close)
	return s
}

func TestConsumeReturnsValueOnce(t *testing.T) {
	s := newStore(t, time.Minute)
	s.Put("state-1", "payload")

	value, found, expired := s.Consume("state-1")
	require.True(t, found)
	assert.False(t, expired)
	assert.Equal(t, "payload", value)

	// A second consume must miss: tokens are single use.
	_, found, expired = s.Consume("state-1")
	assert.False(t, found)
	assert.False(t, expired)
}

func TestConsumeDistinguishesExpiredFromUnknown(t *testing.T) {
	s := newStore(t, time.Nanosecond)
	s.Put("state-1", "payload")
	time.Sleep(5 * time.Millisecond)

	_, found, expired := s.Consume("state-1")
	assert.False(t, found)
	assert.True(t, expired)

	_, found, expired = s.Consume("never-stored")
	assert.False(t, found)
	assert.False(t, expired)
}

func TestExpiredEntryIsDeletedOnConsume(t *testing.T) {
	s := newStore(t, time.Nanosecond)
	s.Put("state-1", "payload")
	time.Sleep(5 * time.Millisecond)

	s.Consume("state-1")

	// The entry is gone; a later consume reads as unknown, not expired.
	_, found, expired := s.Consume("state-1")
	assert.False(t, found)
	assert.False(t, expired)
}

func TestPeekDoesNotConsume(t *testing.T) {
	s := newStore(t, time.Minute)
	s.Put("pending-1", "tokens")

	value, found := s.Peek("pending-1")
	require.True(t, found)
	assert.Equal(t, "tokens", value)

	value, found = s.Peek("pending-1")
	require.True(t, found)
	assert.Equal(t, "tokens", value)
}

func TestPeekMissesExpiredEntries(t *testing.T) {
	s := newStore(t, time.Nanosecond)
	s.Put("pending-1", "tokens")
	time.Sleep(5 * time.Millisecond)

	_, found := s.Peek("pending-1")
	assert.False(t, found)
}

func TestPutReplacesExistingEntry(t *testing.T) {
	s := newStore(t, time.Minute)
	s.Put("key", "old")
	s.Put("key", "new")

	value, found, _ := s.Consume("key")
	require.True(t, found)
	assert.Equal(t, "new", value)
}

func TestDeleteRemovesEntry(t *testing.T) {
	s := newStore(t, time.Minute)
	s.Put("key", "value")
	s.Delete("key")

	_, found, _ := s.Consume("key")
	assert.False(t, found)
}

func TestSweeperEvictsExpiredEntries(t *testing.T) {
	s := NewTTLStore[string](time.Millisecond, 5*time.Millisecond)
	defer s.Close()

	s.Put("a", "1")
	s.Put("b", "2")

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := NewTTLStore[string](time.Minute, time.Hour)
	s.Close()
	s.Close()
}
