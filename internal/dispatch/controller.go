// ABOUTME: Cancellation controller: local-first stop for in-flight generations.
// ABOUTME: Resets session state immediately, then signals the backend.

package dispatch

import (
	"context"
	"fmt"
	"log/slog"
)

// StopRequester sends a stop-generation command to the backend. A stop for
// a conversation with no outstanding generation must be an idempotent
// no-op on the backend side.
type StopRequester interface {
	StopGeneration(ctx context.Context, conversationID string) error
}

// SessionCanceller is what the controller needs from the session layer.
type SessionCanceller interface {
	CancelTurn(id string)
}

// Controller handles stop intents. The session is reset before the
// backend is signalled: a stop issued before any content has streamed may
// never produce a completion or error event, and waiting for one would
// leave the conversation stuck in awaiting_response.
type Controller struct {
	sessions SessionCanceller
	backend  StopRequester
	logger   *slog.Logger
}

// NewController creates a Controller. backend may be nil when no
// generation backend is attached (replay, tests). Pass nil logger for
// default.
func NewController(sessions SessionCanceller, backend StopRequester, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		sessions: sessions,
		backend:  backend,
		logger:   logger.With("component", "stop"),
	}
}

// Stop cancels the conversation's in-flight turn. Local state is reset
// unconditionally; a backend failure is reported but does not undo the
// reset.
func (c *Controller) Stop(ctx context.Context, conversationID string) error {
	c.sessions.CancelTurn(conversationID)
	c.logger.Debug("turn cancelled locally", "conversation_id", conversationID)

	if c.backend == nil {
		return nil
	}
	if err := c.backend.StopGeneration(ctx, conversationID); err != nil {
		c.logger.Warn("backend stop request failed",
			"conversation_id", conversationID, "error", err)
		return fmt.Errorf("stopping generation for %s: %w", conversationID, err)
	}
	return nil
}
