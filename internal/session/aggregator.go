// ABOUTME: Chunk aggregator: coalesces bursts of content/reasoning fragments.
// ABOUTME: One cancellable flush timer per conversation, fixed throttle window.

package session

import (
	"strings"
	"time"

	"github.com/emberchat/ember/internal/events"
)

// DefaultThrottleWindow is how long buffered fragments wait before a flush
// folds them into the session's visible streaming text. It trades perceived
// latency against UI update rate.
const DefaultThrottleWindow = 50 * time.Millisecond

// bufferChunkLocked appends a fragment to the pending buffer and schedules
// a flush if none is pending. At most one flush is ever scheduled per
// conversation. Must be called with mu held.
func (s *ConversationSession) bufferChunkLocked(kind events.Kind, fragment string, window time.Duration) {
	if kind == events.KindReasoningChunk {
		s.pendingReasoning = append(s.pendingReasoning, fragment)
	} else {
		s.pendingContent = append(s.pendingContent, fragment)
	}

	if s.flushScheduled {
		return
	}
	s.flushScheduled = true
	s.flushSeq++
	seq := s.flushSeq
	s.flushTimer = time.AfterFunc(window, func() { s.flush(seq) })
}

// flush folds all buffered fragments, in arrival order, into the session's
// streaming text in a single update. The seq guard makes a stale timer a
// no-op after the turn settled or the session was torn down.
func (s *ConversationSession) flush(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.flushSeq || !s.flushScheduled {
		return
	}
	s.flushScheduled = false
	s.flushTimer = nil

	if len(s.pendingContent) > 0 {
		s.streamingText += strings.Join(s.pendingContent, "")
		s.pendingContent = nil
	}
	if len(s.pendingReasoning) > 0 {
		s.reasoningText += strings.Join(s.pendingReasoning, "")
		s.pendingReasoning = nil
	}
}

// cancelFlushLocked drops buffered fragments and invalidates any scheduled
// flush so a stray timer never touches a settled or torn-down session.
// Must be called with mu held.
func (s *ConversationSession) cancelFlushLocked() {
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
	s.flushScheduled = false
	s.flushSeq++
	s.pendingContent = nil
	s.pendingReasoning = nil
}
