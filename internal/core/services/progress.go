package services

import (
	"sync"

	"github.com/rentbooks/property_management_app/internal/core/domain"

	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
)

// subscriberBuffer is the per-subscriber channel depth. A slow consumer drops
// intermediate events rather than stalling the sync worker; the terminal
// event is what matters and the SyncLog row stays authoritative.
const subscriberBuffer = 16

// ProgressBroker fans import-progress events out to per-SyncLog subscribers.
// Publishing never blocks the sync worker.
type ProgressBroker struct {
	mu   sync.Mutex
	subs map[string][]chan domain.ProgressEvent
}

// NewProgressBroker creates an empty broker.
func NewProgressBroker() *ProgressBroker {
	return &ProgressBroker{subs: make(map[string][]chan domain.ProgressEvent)}
}

var _ portssvc.ProgressSvcFacade = (*ProgressBroker)(nil)

// Subscribe registers a listener for one sync. The returned cancel func must
// be called when the listener goes away; it is safe to call more than once.
func (b *ProgressBroker) Subscribe(syncLogID string) (<-chan domain.ProgressEvent, func()) {
	ch := make(chan domain.ProgressEvent, subscriberBuffer)

	b.mu.Lock()
	b.subs[syncLogID] = append(b.subs[syncLogID], ch)
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			chans := b.subs[syncLogID]
			for i, c := range chans {
				if c == ch {
					b.subs[syncLogID] = append(chans[:i], chans[i+1:]...)
					close(c)
					break
				}
			}
			if len(b.subs[syncLogID]) == 0 {
				delete(b.subs, syncLogID)
			}
		})
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of the sync, dropping it for
// subscribers whose buffer is full.
func (b *ProgressBroker) Publish(syncLogID string, event domain.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[syncLogID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Complete closes all subscriber channels for the sync after the terminal
// event has been published.
func (b *ProgressBroker) Complete(syncLogID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[syncLogID] {
		close(ch)
	}
	delete(b.subs, syncLogID)
}
