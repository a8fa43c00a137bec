// ABOUTME: In-memory fan-out broker that acts as the in-process event source.
// ABOUTME: Backend adapters publish typed events, the dispatcher subscribes.

package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber.
// Bursty chunk delivery should never block the publishing backend.
const subscriberBufferSize = 64

// Broker is an in-memory pub/sub source of Events. All conversations share
// one stream; demultiplexing by conversation id happens downstream in the
// dispatcher. Publish preserves per-publisher ordering, which is the only
// ordering the backend guarantees per conversation.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	closed      bool
	logger      *slog.Logger
}

// NewBroker creates a broker. Pass nil logger for default.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]chan Event),
		logger:      logger.With("component", "broker"),
	}
}

// Subscribe registers a subscriber for all published events and returns the
// receive channel plus a disposer. The subscription is also torn down when
// ctx is cancelled; calling the disposer after that is a no-op.
func (b *Broker) Subscribe(ctx context.Context) (<-chan Event, func()) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.unsubscribe(subID)
	}()

	return ch, func() { b.unsubscribe(subID) }
}

// Publish delivers an event to all subscribers. Non-blocking: the event is
// dropped for subscribers whose channels are full.
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	targets := make([]chan Event, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- ev:
		default:
			b.logger.Debug("dropped event for slow subscriber",
				"conversation_id", ev.ConversationID,
				"kind", ev.Kind)
		}
	}
}

// unsubscribe removes a subscription and closes its channel.
func (b *Broker) unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the broker and closes all subscriber channels.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for subID, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, subID)
	}

	b.logger.Debug("broker closed")
}
