// ABOUTME: Dispatcher subscribes to the event source and routes by conversation id.
// ABOUTME: Malformed or unroutable events are dropped and logged, never fatal.

package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/emberchat/ember/internal/dedupe"
	"github.com/emberchat/ember/internal/events"
)

const (
	// seenTTL and seenCap bound the redelivery-detection cache. Duplicate
	// completions are handled idempotently either way; the cache only
	// makes redelivery visible in logs.
	seenTTL = 10 * time.Minute
	seenCap = 4096
)

// EventSource is what the dispatcher consumes events from.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan events.Event, func())
}

// SessionRouter is what the dispatcher needs from the session layer.
type SessionRouter interface {
	Dispatch(ev events.Event)
}

// Dispatcher connects the event source to the session store for the
// lifetime of an active UI context. Routing is keyed purely by the
// event's conversation id; sessions for conversations not currently
// displayed are updated all the same.
type Dispatcher struct {
	source   EventSource
	sessions SessionRouter
	seen     *dedupe.Cache
	logger   *slog.Logger
}

// New creates a Dispatcher. Pass nil logger for default.
func New(source EventSource, sessions SessionRouter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		source:   source,
		sessions: sessions,
		seen:     dedupe.New(seenTTL, seenCap),
		logger:   logger.With("component", "dispatch"),
	}
}

// Subscribe registers with the event source and starts routing. The
// returned disposer tears the subscription down; cancelling ctx does the
// same.
func (d *Dispatcher) Subscribe(ctx context.Context) func() {
	ch, dispose := d.source.Subscribe(ctx)

	go func() {
		for ev := range ch {
			d.route(ev)
		}
		d.seen.Close()
	}()

	return dispose
}

// route validates one event and hands it to the session layer.
func (d *Dispatcher) route(ev events.Event) {
	if ev.ConversationID == "" {
		d.logger.Warn("dropping event without conversation id", "kind", ev.Kind)
		return
	}
	if ev.Kind == "" {
		d.logger.Warn("dropping event without kind", "conversation_id", ev.ConversationID)
		return
	}

	if ev.Kind == events.KindGenerationComplete && ev.Message != nil {
		if d.seen.Observe(ev.ConversationID + "/" + ev.Message.ID) {
			d.logger.Warn("completion event redelivered",
				"conversation_id", ev.ConversationID,
				"message_id", ev.Message.ID)
		}
	}

	d.sessions.Dispatch(ev)
}
