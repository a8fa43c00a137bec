// ABOUTME: Unit tests for ConversationSession message commit and trimming.
// ABOUTME: Covers idempotent replace, suffix-keep bound, and transient reset.

package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/emberchat/ember/internal/events"
)

func testMessage(id, content string) events.Message {
	return events.Message{
		ID:         id,
		SenderType: events.SenderModel,
		Content:    content,
		CreatedAt:  time.Now(),
	}
}

func TestCommitMessage_AppendsNewIDs(t *testing.T) {
	sess := newConversationSession("conv-1", 16)

	sess.mu.Lock()
	sess.commitMessageLocked(testMessage("m1", "one"), 100)
	sess.commitMessageLocked(testMessage("m2", "two"), 100)
	sess.mu.Unlock()

	snap := sess.snapshot()
	assert.Len(t, snap.Messages, 2)
	assert.Equal(t, "m1", snap.Messages[0].ID)
	assert.Equal(t, "m2", snap.Messages[1].ID)
}

func TestCommitMessage_ReplacesExistingID(t *testing.T) {
	sess := newConversationSession("conv-1", 16)

	sess.mu.Lock()
	replaced := sess.commitMessageLocked(testMessage("m1", "first"), 100)
	assert.False(t, replaced)
	replaced = sess.commitMessageLocked(testMessage("m1", "second"), 100)
	assert.True(t, replaced)
	sess.mu.Unlock()

	snap := sess.snapshot()
	assert.Len(t, snap.Messages, 1)
	assert.Equal(t, "second", snap.Messages[0].Content)
}

func TestCommitMessage_ReplaceKeepsPosition(t *testing.T) {
	sess := newConversationSession("conv-1", 16)

	sess.mu.Lock()
	sess.commitMessageLocked(testMessage("m1", "one"), 100)
	sess.commitMessageLocked(testMessage("m2", "two"), 100)
	sess.commitMessageLocked(testMessage("m1", "one again"), 100)
	sess.mu.Unlock()

	snap := sess.snapshot()
	assert.Len(t, snap.Messages, 2)
	assert.Equal(t, "m1", snap.Messages[0].ID)
	assert.Equal(t, "one again", snap.Messages[0].Content)
}

func TestTrimMessages_SuffixKeep(t *testing.T) {
	sess := newConversationSession("conv-1", 16)

	sess.mu.Lock()
	for i := 0; i < 15; i++ {
		sess.commitMessageLocked(testMessage(fmt.Sprintf("m%d", i), "x"), 10)
	}
	sess.mu.Unlock()

	snap := sess.snapshot()
	assert.Len(t, snap.Messages, 10)
	assert.Equal(t, "m5", snap.Messages[0].ID, "oldest retained entry")
	assert.Equal(t, "m14", snap.Messages[9].ID, "most recent entry")
}

func TestTrimMessages_NoBoundKeepsAll(t *testing.T) {
	sess := newConversationSession("conv-1", 16)

	sess.mu.Lock()
	for i := 0; i < 5; i++ {
		sess.commitMessageLocked(testMessage(fmt.Sprintf("m%d", i), "x"), 0)
	}
	sess.mu.Unlock()

	assert.Len(t, sess.snapshot().Messages, 5)
}

func TestResetTurn_ClearsTransientStateOnly(t *testing.T) {
	sess := newConversationSession("conv-1", 16)

	sess.mu.Lock()
	sess.commitMessageLocked(testMessage("m1", "kept"), 100)
	sess.title = "kept title"
	sess.status = StatusStreaming
	sess.streamingText = "partial"
	sess.reasoningText = "thinking"
	sess.reasoningActive = true
	sess.pendingSearchDecisions["m2"] = struct{}{}
	sess.resetTurnLocked()
	sess.mu.Unlock()

	snap := sess.snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.StreamingText)
	assert.Empty(t, snap.ReasoningText)
	assert.False(t, snap.ReasoningActive)
	assert.Empty(t, snap.PendingSearchDecisions)
	assert.Len(t, snap.Messages, 1, "committed messages survive reset")
	assert.Equal(t, "kept title", snap.Title)
}
