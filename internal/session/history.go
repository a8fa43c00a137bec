// ABOUTME: History is the external durable-storage collaborator interface.
// ABOUTME: The store writes committed messages through and loads recent history.

package session

import (
	"context"

	"github.com/emberchat/ember/internal/events"
)

// History is what the session layer needs from durable storage. The
// in-memory session is bounded; durable retention beyond the bound is the
// collaborator's concern. A nil History disables both write-through and
// loading.
type History interface {
	// AppendMessage persists a committed message. Redelivery of the same
	// message id must replace, mirroring the in-memory idempotence rule.
	AppendMessage(ctx context.Context, conversationID string, msg events.Message) error

	// RecentMessages returns up to limit messages for the conversation,
	// oldest first.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]events.Message, error)
}
