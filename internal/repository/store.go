package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/chatstealth/server-go/internal/database"
	"github.com/chatstealth/server-go/internal/model"
)

// TxRunner runs fn with repositories bound to a single unit of work.
// If fn returns an error nothing it wrote is kept, where the driver supports it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(sessions SessionRepository, messages MessageRepository) error) error
}

// Store bundles the repositories of one storage driver.
type Store struct {
	Driver   model.StoreDriver
	Sessions SessionRepository
	Messages MessageRepository
	Tx       TxRunner
}

func NewPostgresStore(db *database.DB) *Store {
	sessions := NewSessionRepository(db.DB)
	messages := NewMessageRepository(db.DB)
	return &Store{
		Driver:   model.StoreDriverPostgres,
		Sessions: sessions,
		Messages: messages,
		Tx:       &postgresTxRunner{db: db, sessions: sessions, messages: messages},
	}
}

type postgresTxRunner struct {
	db       *database.DB
	sessions *PostgresSessionRepository
	messages *PostgresMessageRepository
}

func (r *postgresTxRunner) RunInTx(ctx context.Context, fn func(SessionRepository, MessageRepository) error) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(r.sessions.WithTx(tx), r.messages.WithTx(tx))
	})
}
