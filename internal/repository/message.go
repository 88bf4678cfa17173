package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chatstealth/server-go/internal/database"
	"github.com/chatstealth/server-go/internal/model"
)

type MessageRepository interface {
	FindByID(ctx context.Context, id string) (*model.Message, error)
	// FindActiveBySessionID returns unexpired messages oldest first.
	FindActiveBySessionID(ctx context.Context, sessionID string, now time.Time, limit int) ([]model.Message, error)
	Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error)
	DeleteBySessionID(ctx context.Context, sessionID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type PostgresMessageRepository struct {
	db database.DBTX
}

func NewMessageRepository(db *sqlx.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

// WithTx returns a new repository that uses the given transaction
func (r *PostgresMessageRepository) WithTx(tx *sqlx.Tx) MessageRepository {
	return &PostgresMessageRepository{db: tx}
}

func (r *PostgresMessageRepository) FindByID(ctx context.Context, id string) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `SELECT * FROM chat_messages WHERE id = $1`, id)
	return HandleNotFound(&msg, err)
}

func (r *PostgresMessageRepository) FindActiveBySessionID(ctx context.Context, sessionID string, now time.Time, limit int) ([]model.Message, error) {
	msgs := []model.Message{}
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM chat_messages
		WHERE session_id = $1 AND expires_at > $2
		ORDER BY created_at ASC
		LIMIT $3
	`, sessionID, now, limit)
	return msgs, err
}

func (r *PostgresMessageRepository) Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO chat_messages (id, session_id, content, message_type, file_name, sender_id, sender_nickname, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING *
	`, params.ID, params.SessionID, params.Content, params.MessageType, params.FileName,
		params.SenderID, params.SenderNickname, params.CreatedAt, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *PostgresMessageRepository) DeleteBySessionID(ctx context.Context, sessionID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *PostgresMessageRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
