package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS chat_sessions (
		id                  TEXT PRIMARY KEY,
		code                TEXT NOT NULL,
		is_pro              BOOLEAN NOT NULL DEFAULT FALSE,
		message_ttl_minutes INTEGER NOT NULL,
		max_participants    INTEGER NOT NULL,
		creator_nickname    TEXT,
		created_at          TIMESTAMPTZ NOT NULL,
		expires_at          TIMESTAMPTZ NOT NULL,
		upgraded_at         TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS chat_sessions_code_idx ON chat_sessions (code)`,
	`CREATE INDEX IF NOT EXISTS chat_sessions_expires_at_idx ON chat_sessions (expires_at)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id              TEXT PRIMARY KEY,
		session_id      TEXT NOT NULL,
		content         TEXT NOT NULL,
		message_type    TEXT NOT NULL DEFAULT 'text',
		file_name       TEXT,
		sender_id       TEXT NOT NULL,
		sender_nickname TEXT,
		created_at      TIMESTAMPTZ NOT NULL,
		expires_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_session_id_idx ON chat_messages (session_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_expires_at_idx ON chat_messages (expires_at)`,
}

// EnsureSchema creates the session and message tables and their lookup indexes.
// Every statement is idempotent so it runs on each startup.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
