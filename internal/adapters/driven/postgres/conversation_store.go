package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore implements driven.ConversationStore using PostgreSQL
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a new ConversationStore
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// Create stores a new conversation
func (s *ConversationStore) Create(ctx context.Context, conv *domain.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// Get retrieves a conversation by ID
func (s *ConversationStore) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE id = $1
	`, id).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

// AppendMessages numbers msgs after the last stored message in one transaction.
func (s *ConversationStore) AppendMessages(ctx context.Context, conversationID string, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		// Lock the conversation row so concurrent appends cannot reuse a seq.
		var seq int
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE((SELECT MAX(seq) FROM conversation_messages WHERE conversation_id = c.id), 0)
			FROM conversations c WHERE c.id = $1 FOR UPDATE
		`, conversationID).Scan(&seq)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("next message seq: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO conversation_messages (id, conversation_id, seq, role, content, tool_call_id, tool_calls, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`)
		if err != nil {
			return fmt.Errorf("prepare insert message: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for _, msg := range msgs {
			seq++
			id := msg.ID
			if id == "" {
				id = uuid.New().String()
			}
			created := msg.CreatedAt
			if created.IsZero() {
				created = now
			}
			var toolCalls []byte
			if len(msg.ToolCalls) > 0 {
				if toolCalls, err = json.Marshal(msg.ToolCalls); err != nil {
					return fmt.Errorf("marshal tool calls: %w", err)
				}
			}
			_, err = stmt.ExecContext(ctx,
				id,
				conversationID,
				seq,
				string(msg.Role),
				msg.Content,
				sql.NullString{String: msg.ToolCallID, Valid: msg.ToolCallID != ""},
				toolCalls,
				created,
			)
			if err != nil {
				return fmt.Errorf("insert message: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`, conversationID, now)
		return err
	})
}

// Messages returns the messages of a conversation ordered by turn
func (s *ConversationStore) Messages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, role, content, tool_call_id, tool_calls, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY seq
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var (
			msg        domain.Message
			role       string
			toolCallID sql.NullString
			toolCalls  []byte
		)
		if err := rows.Scan(&msg.ID, &msg.Seq, &role, &msg.Content, &toolCallID, &toolCalls, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = domain.Role(role)
		msg.ToolCallID = toolCallID.String
		if len(toolCalls) > 0 {
			if err := json.Unmarshal(toolCalls, &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("unmarshal tool calls: %w", err)
			}
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}
