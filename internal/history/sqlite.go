// ABOUTME: SQLite-backed message history using modernc.org/sqlite
// ABOUTME: Reference implementation of the session layer's History collaborator

package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/emberchat/ember/internal/events"
)

// SQLiteHistory persists committed messages per conversation. It implements
// session.History; the in-memory session bound does not apply here, durable
// retention is this store's concern.
type SQLiteHistory struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteHistory opens (creating if needed) a history database at path.
// Parent directories are created if needed.
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	logger := slog.Default().With("component", "history")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("history database opened", "path", path)
	return &SQLiteHistory{db: db, logger: logger}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			message_id      TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender_type     TEXT NOT NULL,
			sender_id       TEXT,
			content         TEXT NOT NULL,
			created_at      TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// AppendMessage persists a committed message. Redelivery of an id already
// stored replaces the row, mirroring the session layer's idempotence rule.
func (h *SQLiteHistory) AppendMessage(ctx context.Context, conversationID string, msg events.Message) error {
	query := `
		INSERT INTO messages (message_id, conversation_id, sender_type, sender_id, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			sender_type = excluded.sender_type,
			sender_id   = excluded.sender_id,
			content     = excluded.content,
			created_at  = excluded.created_at
	`

	_, err := h.db.ExecContext(ctx, query,
		msg.ID,
		conversationID,
		string(msg.SenderType),
		msg.SenderID,
		msg.Content,
		msg.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	h.logger.Debug("message persisted",
		"conversation_id", conversationID,
		"message_id", msg.ID)
	return nil
}

// RecentMessages returns up to limit messages for the conversation, oldest
// first.
func (h *SQLiteHistory) RecentMessages(ctx context.Context, conversationID string, limit int) ([]events.Message, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT message_id, sender_type, sender_id, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := h.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []events.Message
	for rows.Next() {
		var msg events.Message
		var senderType, createdAt string
		var senderID sql.NullString
		if err := rows.Scan(&msg.ID, &senderType, &senderID, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.SenderType = events.SenderType(senderType)
		msg.SenderID = senderID.String
		msg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	// Reverse into arrival order
	msgs := make([]events.Message, len(newestFirst))
	for i, msg := range newestFirst {
		msgs[len(newestFirst)-1-i] = msg
	}
	return msgs, nil
}

// Close closes the underlying database.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}
