// Package chatstore persists conversations and the per-user chat index.
//
// History is an append-only JSONB array; all mutations go through single
// UPDATE statements so the database serializes concurrent appenders and the
// store never re-reads and rewrites past turns.
package chatstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ashserver/internal/domain"
	"ashserver/internal/infra"
	"ashserver/internal/sqlinline"
)

// Store is the conversation ledger.
type Store struct {
	sql infra.SQLExecutor
}

// New constructs a Store over the given SQL executor.
func New(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Create inserts a new chat seeded with one user turn and appends a summary
// entry to the owner's index. It returns the new chat id.
func (s *Store) Create(ctx context.Context, userID, kind, seedText string) (string, error) {
	seed, err := json.Marshal([]domain.Turn{domain.NewTurn(domain.RoleUser, seedText)})
	if err != nil {
		return "", fmt.Errorf("chatstore: encode seed turn: %w", err)
	}

	row := s.sql.QueryRow(ctx, sqlinline.QInsertChat, userID, kind, seed)
	var chatID string
	var createdAt time.Time
	if err := row.Scan(&chatID, &createdAt); err != nil {
		return "", fmt.Errorf("chatstore: insert chat: %w", err)
	}

	summary, err := json.Marshal([]domain.ChatSummary{{
		ID:        chatID,
		Title:     domain.SummaryTitle(seedText),
		Kind:      kind,
		CreatedAt: createdAt,
	}})
	if err != nil {
		return "", fmt.Errorf("chatstore: encode summary: %w", err)
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QAppendUserChat, userID, summary); err != nil {
		return "", fmt.Errorf("chatstore: index chat: %w", err)
	}

	return chatID, nil
}

// AppendTurns atomically appends the given turns, in order, to the chat
// owned by userID. It returns domain.ErrNotFound when no such chat exists
// for that owner.
func (s *Store) AppendTurns(ctx context.Context, chatID, userID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	encoded, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("chatstore: encode turns: %w", err)
	}
	tag, err := s.sql.Exec(ctx, sqlinline.QAppendTurns, chatID, userID, encoded)
	if err != nil {
		return fmt.Errorf("chatstore: append turns: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get loads a chat by id, scoped to its owner. Missing or non-owned chats
// yield domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectChat, chatID, userID)
	var chat domain.Chat
	var history []byte
	if err := row.Scan(&chat.ID, &chat.UserID, &chat.Kind, &history, &chat.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("chatstore: load chat: %w", err)
	}
	if err := json.Unmarshal(history, &chat.History); err != nil {
		return nil, fmt.Errorf("chatstore: decode history: %w", err)
	}
	return &chat, nil
}

// List returns the owner's chat summaries in insertion order, optionally
// filtered by exact kind. A user without an index yields an empty list.
func (s *Store) List(ctx context.Context, userID, kind string) ([]domain.ChatSummary, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectUserChats, userID)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if infra.IsNoRows(err) {
			return []domain.ChatSummary{}, nil
		}
		return nil, fmt.Errorf("chatstore: load index: %w", err)
	}
	var all []domain.ChatSummary
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("chatstore: decode index: %w", err)
	}
	if kind == "" {
		return all, nil
	}
	filtered := make([]domain.ChatSummary, 0, len(all))
	for _, entry := range all {
		if entry.Kind == kind {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// RecordVideoMetadata stores the prompt and artifact path of a completed
// video job alongside the chat it belongs to.
func (s *Store) RecordVideoMetadata(ctx context.Context, chatID, userID, prompt, videoPath string) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QInsertVideoMetadata, chatID, userID, prompt, videoPath); err != nil {
		return fmt.Errorf("chatstore: record video metadata: %w", err)
	}
	return nil
}
