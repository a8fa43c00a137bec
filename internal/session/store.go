// ABOUTME: Store owns all conversation sessions and their worker goroutines.
// ABOUTME: Demultiplexed events are applied strictly in arrival order per conversation.

package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/emberchat/ember/internal/events"
)

const (
	// DefaultHistoryLimit bounds the in-memory message list per conversation.
	DefaultHistoryLimit = 100

	// DefaultQueueCapacity is the per-conversation event queue buffer.
	DefaultQueueCapacity = 256

	// persistTimeout caps each history write-through, detached from the
	// turn's own lifecycle.
	persistTimeout = 5 * time.Second
)

// Options configures a Store. Zero values fall back to the defaults above.
type Options struct {
	ThrottleWindow time.Duration
	HistoryLimit   int
	QueueCapacity  int
	History        History
	Logger         *slog.Logger
}

// Store is the concurrency-safe map from conversation id to session.
// Sessions are created lazily on first reference and removed only by an
// explicit Remove. Each session has a dedicated worker goroutine draining
// its queue, so events for different conversations never block each other
// while events for one conversation stay strictly ordered.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*ConversationSession

	window        time.Duration
	historyLimit  int
	queueCapacity int
	history       History
	logger        *slog.Logger
	wg            sync.WaitGroup
}

// NewStore creates a Store with the given options.
func NewStore(opts Options) *Store {
	if opts.ThrottleWindow <= 0 {
		opts.ThrottleWindow = DefaultThrottleWindow
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = DefaultQueueCapacity
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		sessions:      make(map[string]*ConversationSession),
		window:        opts.ThrottleWindow,
		historyLimit:  opts.HistoryLimit,
		queueCapacity: opts.QueueCapacity,
		history:       opts.History,
		logger:        opts.Logger.With("component", "sessions"),
	}
}

// getOrCreate returns the session for id, creating it and starting its
// worker on first reference.
func (s *Store) getOrCreate(id string) *ConversationSession {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess = newConversationSession(id, s.queueCapacity)
	s.sessions[id] = sess
	s.wg.Add(1)
	go s.runWorker(sess)
	s.logger.Debug("session created", "conversation_id", id)
	return sess
}

// runWorker drains one conversation's queue until the session is removed.
func (s *Store) runWorker(sess *ConversationSession) {
	defer s.wg.Done()
	for {
		select {
		case <-sess.done:
			return
		case ev := <-sess.queue:
			s.applyEvent(sess, ev)
		}
	}
}

// Dispatch routes one event to its conversation's queue. Events for a
// removed or backlogged conversation are dropped with a log line; neither
// condition is fatal.
func (s *Store) Dispatch(ev events.Event) {
	if ev.ConversationID == "" {
		s.logger.Warn("dropping event without conversation id", "kind", ev.Kind)
		return
	}

	sess := s.getOrCreate(ev.ConversationID)

	sess.mu.RLock()
	removed := sess.removed
	sess.mu.RUnlock()
	if removed {
		s.logger.Debug("dropping event for removed conversation",
			"conversation_id", ev.ConversationID, "kind", ev.Kind)
		return
	}

	select {
	case sess.queue <- ev:
	default:
		s.logger.Warn("conversation queue full, dropping event",
			"conversation_id", ev.ConversationID, "kind", ev.Kind)
	}
}

// applyEvent mutates exactly one session according to the event kind.
// Side effects never leave the targeted session.
func (s *Store) applyEvent(sess *ConversationSession, ev events.Event) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch ev.Kind {
	case events.KindContentChunk, events.KindReasoningChunk:
		if sess.status != StatusStreaming {
			sess.status = StatusStreaming
		}
		if ev.Kind == events.KindReasoningChunk {
			sess.reasoningActive = true
		}
		sess.bufferChunkLocked(ev.Kind, ev.Chunk, s.window)

	case events.KindToolCallStarted:
		if ev.ToolCall == nil {
			s.logMalformed(ev)
			return
		}
		if _, exists := sess.activeToolCalls[ev.ToolCall.ID]; exists {
			s.logger.Debug("tool call already started, ignoring",
				"conversation_id", sess.id, "tool_call_id", ev.ToolCall.ID)
			return
		}
		sess.activeToolCalls[ev.ToolCall.ID] = &ToolCallRecord{
			ID:       ev.ToolCall.ID,
			ToolName: ev.ToolCall.Name,
			Input:    ev.ToolCall.InputJSON,
			Status:   ToolCallRunning,
		}

	case events.KindToolCallCompleted:
		if ev.ToolResult == nil {
			s.logMalformed(ev)
			return
		}
		rec, ok := sess.activeToolCalls[ev.ToolResult.ID]
		if !ok {
			// Start was never seen; build the record from the completion
			// so the UI still gets the outcome.
			s.logger.Debug("tool call completed without start",
				"conversation_id", sess.id, "tool_call_id", ev.ToolResult.ID)
			rec = &ToolCallRecord{ID: ev.ToolResult.ID}
			sess.activeToolCalls[ev.ToolResult.ID] = rec
		}
		rec.Output = ev.ToolResult.Output
		if ev.ToolResult.IsError {
			rec.Status = ToolCallError
		} else {
			rec.Status = ToolCallSuccess
		}

	case events.KindSearchDecisionStarted:
		sess.pendingSearchDecisions[ev.MessageID] = struct{}{}

	case events.KindSearchDecisionCompleted:
		delete(sess.pendingSearchDecisions, ev.MessageID)

	case events.KindAttachmentStarted:
		sess.attachmentStatus = AttachmentProcessing

	case events.KindAttachmentCompleted:
		sess.attachmentStatus = AttachmentComplete

	case events.KindAttachmentError:
		sess.attachmentStatus = AttachmentError
		s.logger.Warn("attachment fetch failed",
			"conversation_id", sess.id, "error", ev.Error)

	case events.KindAttachmentUpdate:
		if ev.Attachment == nil {
			s.logMalformed(ev)
			return
		}
		for i := range sess.messages {
			if sess.messages[i].ID == ev.Attachment.MessageID {
				sess.messages[i].Content = ev.Attachment.Content
				return
			}
		}
		s.logger.Debug("attachment update for unknown message",
			"conversation_id", sess.id, "message_id", ev.Attachment.MessageID)

	case events.KindGenerationComplete:
		if ev.Message == nil {
			s.logMalformed(ev)
			return
		}
		// The completion payload is the source of truth; the aggregator's
		// buffer is display-only and is discarded here.
		msg := *ev.Message
		replaced := sess.commitMessageLocked(msg, s.historyLimit)
		sess.resetTurnLocked()
		sess.lastError = ""
		if replaced {
			s.logger.Debug("completion replaced existing message",
				"conversation_id", sess.id, "message_id", msg.ID)
		}
		if s.history != nil {
			go s.persistMessage(sess.id, msg)
		}

	case events.KindGenerationError:
		sess.lastError = ev.Error
		sess.resetTurnLocked()
		s.logger.Warn("generation failed",
			"conversation_id", sess.id, "error", ev.Error)

	case events.KindGenerationStopped:
		sess.resetTurnLocked()

	case events.KindTitleUpdated:
		sess.title = ev.Title

	default:
		s.logger.Warn("dropping event of unknown kind",
			"conversation_id", sess.id, "kind", ev.Kind)
	}
}

func (s *Store) logMalformed(ev events.Event) {
	s.logger.Warn("dropping malformed event",
		"conversation_id", ev.ConversationID, "kind", ev.Kind)
}

// persistMessage writes a committed message through to durable history with
// its own timeout context, so persistence survives turn teardown.
func (s *Store) persistMessage(conversationID string, msg events.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.history.AppendMessage(ctx, conversationID, msg); err != nil {
		s.logger.Error("failed to persist message",
			"error", err,
			"conversation_id", conversationID,
			"message_id", msg.ID)
	}
}

// Get returns a read-only snapshot of the conversation's session, creating
// a default one if absent. Never blocks on event processing.
func (s *Store) Get(id string) Snapshot {
	return s.getOrCreate(id).snapshot()
}

// List returns the ids of all known sessions, sorted.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BeginTurn marks the conversation as awaiting a response. Called when a
// send intent is issued, before any backend event arrives.
func (s *Store) BeginTurn(id string) {
	sess := s.getOrCreate(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.status = StatusAwaitingResponse
	sess.lastError = ""
}

// CancelTurn forces the session back to idle immediately, without waiting
// for any backend event. A stop issued before content streams may never
// produce a completion, so this must not depend on one. Committed messages
// are never touched.
func (s *Store) CancelTurn(id string) {
	sess := s.getOrCreate(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.resetTurnLocked()
}

// Cleanup resets transient streaming state when a conversation view is
// torn down. Committed messages, the title, and tool call history are
// preserved.
func (s *Store) Cleanup(id string) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.resetTurnLocked()
}

// Remove destroys a conversation's session when the conversation itself is
// deleted. The pending flush timer is cancelled and the worker released;
// other conversations are unaffected.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	sess.removed = true
	sess.cancelFlushLocked()
	sess.mu.Unlock()
	close(sess.done)

	s.logger.Debug("session removed", "conversation_id", id)
}

// Load populates a session's message list from durable history, trimmed to
// the in-memory bound. Transient turn state is left alone.
func (s *Store) Load(ctx context.Context, id string) error {
	if s.history == nil {
		return nil
	}
	msgs, err := s.history.RecentMessages(ctx, id, s.historyLimit)
	if err != nil {
		return err
	}

	sess := s.getOrCreate(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.messages = msgs
	sess.trimMessagesLocked(s.historyLimit)
	return nil
}

// Close removes every session and waits for all workers to exit.
func (s *Store) Close() {
	for _, id := range s.List() {
		s.Remove(id)
	}
	s.wg.Wait()
}
