package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentbooks/property_management_app/internal/core/domain"
	"github.com/rentbooks/property_management_app/internal/core/services"
)

func TestProgressBroker_SubscriberReceivesPublishedEvents(t *testing.T) {
	broker := services.NewProgressBroker()
	events, cancel := broker.Subscribe("log-1")
	defer cancel()

	broker.Publish("log-1", domain.ProgressEvent{Status: domain.ProgressFetching})

	event := <-events
	assert.Equal(t, domain.ProgressFetching, event.Status)
}

func TestProgressBroker_PublishWithoutSubscribersIsDropped(t *testing.T) {
	broker := services.NewProgressBroker()

	// Must not block or panic.
	broker.Publish("log-1", domain.ProgressEvent{Status: domain.ProgressFetching})
}

func TestProgressBroker_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	broker := services.NewProgressBroker()
	events, cancel := broker.Subscribe("log-1")
	defer cancel()

	// Overfill the buffer; publishing must never block the sync goroutine.
	for i := 0; i < 100; i++ {
		broker.Publish("log-1", domain.ProgressEvent{Status: domain.ProgressProcessing, CurrentBatch: i})
	}

	received := 0
	for {
		select {
		case <-events:
			received++
		default:
			assert.LessOrEqual(t, received, 16)
			return
		}
	}
}

func TestProgressBroker_CompleteClosesSubscriberChannels(t *testing.T) {
	broker := services.NewProgressBroker()
	events, cancel := broker.Subscribe("log-1")
	defer cancel()

	broker.Complete("log-1")

	_, open := <-events
	require.False(t, open, "channel should be closed after Complete")
}

func TestProgressBroker_CancelAfterCompleteIsSafe(t *testing.T) {
	broker := services.NewProgressBroker()
	_, cancel := broker.Subscribe("log-1")

	broker.Complete("log-1")
	cancel()
	cancel() // idempotent
}

func TestProgressBroker_SubscribersAreIsolatedByKey(t *testing.T) {
	broker := services.NewProgressBroker()
	one, cancelOne := broker.Subscribe("log-1")
	defer cancelOne()
	two, cancelTwo := broker.Subscribe("log-2")
	defer cancelTwo()

	broker.Publish("log-1", domain.ProgressEvent{Status: domain.ProgressFetching})

	assert.Len(t, one, 1)
	assert.Len(t, two, 0)
}

func TestProgressBroker_CancelStopsDelivery(t *testing.T) {
	broker := services.NewProgressBroker()
	events, cancel := broker.Subscribe("log-1")
	cancel()

	broker.Publish("log-1", domain.ProgressEvent{Status: domain.ProgressFetching})

	_, open := <-events
	assert.False(t, open)
}
