// Package session maintains per-conversation streaming state for the
// Ember client while generations are in flight.
//
// # Overview
//
// The Store is a concurrency-safe map from conversation id to
// ConversationSession. Sessions are created lazily on first reference and
// destroyed only when the owning conversation is deleted. Each session is
// driven by a dedicated worker goroutine reading from a per-conversation
// queue, which gives the two scheduling guarantees the UI depends on:
//
//   - events for one conversation are applied strictly in arrival order,
//     no two handlers for the same conversation ever interleave
//   - events for different conversations never block each other
//
// # State machine
//
// A turn moves through:
//
//	idle -> awaiting_response -> streaming -> idle
//
// BeginTurn marks awaiting_response when a send intent is issued; the
// first chunk moves the session to streaming; a completion, error, or
// stop settles the turn back to idle. reasoningActive is an overlay bit
// set while reasoning chunks arrive. Tool calls, search decisions, and
// attachment progress are orthogonal sub-state that never gates the text
// stream.
//
// # Chunk aggregation
//
// Content and reasoning fragments are buffered per conversation and
// folded into the visible streaming text at most once per throttle
// window (50ms by default). The buffer is a display optimization only:
// the committed message always comes from the completion event's
// payload, never from the accumulated text.
//
// # Memory bound
//
// The in-memory message list is trimmed to the most recent N entries
// (100 by default) on load and on each commit. Durable retention is the
// History collaborator's responsibility.
//
// # Idempotence
//
// Completion events may be redelivered. Committing a message whose id is
// already present replaces the entry in place. A stop arriving after a
// completion only clears transient state; a committed message is never
// retracted.
package session
