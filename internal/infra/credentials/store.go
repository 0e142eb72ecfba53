package credentials

import (
	"context"
	"fmt"
	"strings"

	"ashserver/internal/infra"
	"ashserver/internal/sqlinline"
)

const geminiKeyName = "gemini_api_key"

// Store reads provider secrets persisted in the database. It backs the
// GEMINI_API_KEY environment variable so deployments can rotate the key
// without a restart.
type Store struct {
	sql infra.SQLExecutor
}

// NewStore constructs a credential store over the given executor.
func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// GeminiAPIKey returns the stored Gemini API key, or an empty string when no
// row exists.
func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectCredential, geminiKeyName)
	var secret string
	if err := row.Scan(&secret); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("credentials: load %s: %w", geminiKeyName, err)
	}
	return strings.TrimSpace(secret), nil
}

// SetGeminiAPIKey upserts the Gemini API key.
func (s *Store) SetGeminiAPIKey(ctx context.Context, secret string) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertCredential, geminiKeyName, strings.TrimSpace(secret)); err != nil {
		return fmt.Errorf("credentials: store %s: %w", geminiKeyName, err)
	}
	return nil
}
