// ABOUTME: ConversationSession holds one conversation's in-flight generation state.
// ABOUTME: Mutated only by its owning worker and the local stop/cleanup path, under its lock.

package session

import (
	"sync"
	"time"

	"github.com/emberchat/ember/internal/events"
)

// Status is the top-level lifecycle state of a conversation's turn.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusAwaitingResponse Status = "awaiting_response"
	StatusStreaming        Status = "streaming"
)

// AttachmentStatus tracks attachment fetch progress for the conversation.
type AttachmentStatus string

const (
	AttachmentIdle       AttachmentStatus = "idle"
	AttachmentProcessing AttachmentStatus = "processing"
	AttachmentComplete   AttachmentStatus = "complete"
	AttachmentError      AttachmentStatus = "error"
)

// ToolCallStatus tracks one tool invocation's lifecycle.
type ToolCallStatus string

const (
	ToolCallRunning ToolCallStatus = "running"
	ToolCallSuccess ToolCallStatus = "success"
	ToolCallError   ToolCallStatus = "error"
)

// ToolCallRecord is the session-side view of one tool invocation.
// Created on tool-call-started, finished on tool-call-completed for the
// same id, never created twice.
type ToolCallRecord struct {
	ID       string
	ToolName string
	Input    string
	Output   string
	Status   ToolCallStatus
}

// ConversationSession is the in-memory state for one conversation.
// All field access goes through mu; events are applied in arrival order
// by the session's worker goroutine, so no two handlers for the same
// conversation ever interleave.
type ConversationSession struct {
	id string

	mu                     sync.RWMutex
	title                  string
	messages               []events.Message
	status                 Status
	streamingText          string
	reasoningText          string
	reasoningActive        bool
	activeToolCalls        map[string]*ToolCallRecord
	pendingSearchDecisions map[string]struct{}
	attachmentStatus       AttachmentStatus
	lastError              string

	// Chunk aggregator state, see aggregator.go.
	pendingContent   []string
	pendingReasoning []string
	flushTimer       *time.Timer
	flushScheduled   bool
	flushSeq         uint64

	// Worker plumbing, owned by the Store.
	queue   chan events.Event
	done    chan struct{}
	removed bool
}

func newConversationSession(id string, queueCapacity int) *ConversationSession {
	return &ConversationSession{
		id:                     id,
		status:                 StatusIdle,
		attachmentStatus:       AttachmentIdle,
		activeToolCalls:        make(map[string]*ToolCallRecord),
		pendingSearchDecisions: make(map[string]struct{}),
		queue:                  make(chan events.Event, queueCapacity),
		done:                   make(chan struct{}),
	}
}

// Snapshot is a read-only copy of a session's state for UI consumers.
type Snapshot struct {
	ConversationID         string
	Title                  string
	Messages               []events.Message
	Status                 Status
	StreamingText          string
	ReasoningText          string
	ReasoningActive        bool
	ActiveToolCalls        map[string]ToolCallRecord
	PendingSearchDecisions []string
	AttachmentStatus       AttachmentStatus
	LastError              string
}

// snapshot copies the session under its read lock.
func (s *ConversationSession) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ConversationID:   s.id,
		Title:            s.title,
		Status:           s.status,
		StreamingText:    s.streamingText,
		ReasoningText:    s.reasoningText,
		ReasoningActive:  s.reasoningActive,
		AttachmentStatus: s.attachmentStatus,
		LastError:        s.lastError,
		ActiveToolCalls:  make(map[string]ToolCallRecord, len(s.activeToolCalls)),
	}
	snap.Messages = make([]events.Message, len(s.messages))
	copy(snap.Messages, s.messages)
	for id, rec := range s.activeToolCalls {
		snap.ActiveToolCalls[id] = *rec
	}
	for id := range s.pendingSearchDecisions {
		snap.PendingSearchDecisions = append(snap.PendingSearchDecisions, id)
	}
	return snap
}

// commitMessageLocked applies a message idempotently: a message whose id is
// already present replaces the existing entry in place, otherwise it is
// appended. Returns true when an existing entry was replaced. Must be
// called with mu held.
func (s *ConversationSession) commitMessageLocked(msg events.Message, bound int) (replaced bool) {
	for i := range s.messages {
		if s.messages[i].ID == msg.ID {
			s.messages[i] = msg
			return true
		}
	}
	s.messages = append(s.messages, msg)
	s.trimMessagesLocked(bound)
	return false
}

// trimMessagesLocked enforces the memory bound: keep the most recent bound
// entries, discard the rest from the in-memory session only. Must be
// called with mu held.
func (s *ConversationSession) trimMessagesLocked(bound int) {
	if bound <= 0 || len(s.messages) <= bound {
		return
	}
	keep := s.messages[len(s.messages)-bound:]
	trimmed := make([]events.Message, bound)
	copy(trimmed, keep)
	s.messages = trimmed
}

// resetTurnLocked clears all transient turn state and returns the session
// to idle. Committed messages, the title, and tool call records survive;
// everything tied to the in-flight turn does not. Must be called with mu
// held.
func (s *ConversationSession) resetTurnLocked() {
	s.cancelFlushLocked()
	s.status = StatusIdle
	s.streamingText = ""
	s.reasoningText = ""
	s.reasoningActive = false
	s.pendingSearchDecisions = make(map[string]struct{})
}
