// ABOUTME: Typed event variants emitted by the generation backend during a turn.
// ABOUTME: Loose JSON payloads are parsed into this closed set at the boundary.

package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Parse errors returned at the event boundary.
var (
	ErrUnknownKind         = errors.New("unknown event kind")
	ErrMissingConversation = errors.New("event has no conversation id")
)

// Kind identifies the type of an event.
type Kind string

const (
	KindContentChunk            Kind = "content_chunk"
	KindReasoningChunk          Kind = "reasoning_chunk"
	KindToolCallStarted         Kind = "tool_call_started"
	KindToolCallCompleted       Kind = "tool_call_completed"
	KindSearchDecisionStarted   Kind = "search_decision_started"
	KindSearchDecisionCompleted Kind = "search_decision_completed"
	KindAttachmentStarted       Kind = "attachment_started"
	KindAttachmentCompleted     Kind = "attachment_completed"
	KindAttachmentError         Kind = "attachment_error"
	KindAttachmentUpdate        Kind = "attachment_update"
	KindGenerationComplete      Kind = "generation_complete"
	KindGenerationError         Kind = "generation_error"
	KindGenerationStopped       Kind = "generation_stopped"
	KindTitleUpdated            Kind = "title_updated"
)

// SenderType identifies who authored a message.
type SenderType string

const (
	SenderUser      SenderType = "user"
	SenderModel     SenderType = "model"
	SenderAssistant SenderType = "assistant"
)

// Message is the committed form of one conversation entry. It is immutable
// once applied to a session; redelivery of the same id replaces in place.
type Message struct {
	ID         string     `json:"id"`
	SenderType SenderType `json:"sender_type"`
	SenderID   string     `json:"sender_id,omitempty"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToolCall describes a tool invocation started by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	InputJSON string `json:"input_json,omitempty"`
}

// ToolResult carries the outcome of a tool invocation.
type ToolResult struct {
	ID      string `json:"id"`
	Output  string `json:"output,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// Attachment carries an attachment fetch update targeting a committed message.
type Attachment struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content,omitempty"`
}

// Event is one item in a conversation's event stream. Kind and
// ConversationID are always set; the payload fields are populated
// per kind, everything else is zero.
type Event struct {
	Kind           Kind
	ConversationID string

	Chunk      string      // content_chunk, reasoning_chunk
	ToolCall   *ToolCall   // tool_call_started
	ToolResult *ToolResult // tool_call_completed
	MessageID  string      // search_decision_started/completed
	Attachment *Attachment // attachment_update
	Message    *Message    // generation_complete
	Error      string      // generation_error, attachment_error
	Title      string      // title_updated
}

// envelope is the loose wire shape events arrive in.
type envelope struct {
	Kind           Kind        `json:"kind"`
	ConversationID string      `json:"conversation_id"`
	Chunk          string      `json:"chunk,omitempty"`
	ToolCall       *ToolCall   `json:"tool_call,omitempty"`
	ToolResult     *ToolResult `json:"tool_result,omitempty"`
	MessageID      string      `json:"message_id,omitempty"`
	Attachment     *Attachment `json:"attachment,omitempty"`
	Message        *Message    `json:"message,omitempty"`
	Error          string      `json:"error,omitempty"`
	Title          string      `json:"title,omitempty"`
}

// Parse converts a raw backend payload into a typed Event. Anything that
// does not resolve to a known kind with the payload that kind requires is
// rejected here so untyped values never propagate inward.
func Parse(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	if env.ConversationID == "" {
		return Event{}, ErrMissingConversation
	}

	ev := Event{
		Kind:           env.Kind,
		ConversationID: env.ConversationID,
	}

	switch env.Kind {
	case KindContentChunk, KindReasoningChunk:
		ev.Chunk = env.Chunk

	case KindToolCallStarted:
		if env.ToolCall == nil || env.ToolCall.ID == "" {
			return Event{}, fmt.Errorf("%s: missing tool_call payload", env.Kind)
		}
		ev.ToolCall = env.ToolCall

	case KindToolCallCompleted:
		if env.ToolResult == nil || env.ToolResult.ID == "" {
			return Event{}, fmt.Errorf("%s: missing tool_result payload", env.Kind)
		}
		ev.ToolResult = env.ToolResult

	case KindSearchDecisionStarted, KindSearchDecisionCompleted:
		if env.MessageID == "" {
			return Event{}, fmt.Errorf("%s: missing message_id", env.Kind)
		}
		ev.MessageID = env.MessageID

	case KindAttachmentStarted, KindAttachmentCompleted:
		// Status-only events, no payload beyond the conversation id.

	case KindAttachmentError:
		ev.Error = env.Error

	case KindAttachmentUpdate:
		if env.Attachment == nil || env.Attachment.MessageID == "" {
			return Event{}, fmt.Errorf("%s: missing attachment payload", env.Kind)
		}
		ev.Attachment = env.Attachment

	case KindGenerationComplete:
		if env.Message == nil || env.Message.ID == "" {
			return Event{}, fmt.Errorf("%s: missing message payload", env.Kind)
		}
		ev.Message = env.Message

	case KindGenerationError:
		ev.Error = env.Error

	case KindGenerationStopped:
		// Acknowledgement only.

	case KindTitleUpdated:
		ev.Title = env.Title

	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}

	return ev, nil
}
