package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chatstealth/server-go/internal/database"
	"github.com/chatstealth/server-go/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// FindLiveByCode matches code exactly; callers normalize case.
	FindLiveByCode(ctx context.Context, code string, now time.Time) (*model.Session, error)
	ExistsLiveCode(ctx context.Context, code string, now time.Time) (bool, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	// Upgrade returns nil when no session has the given id.
	Upgrade(ctx context.Context, id string, params model.UpgradeSessionParams) (*model.Session, error)
	Delete(ctx context.Context, id string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type PostgresSessionRepository struct {
	db database.DBTX
}

func NewSessionRepository(db *sqlx.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

// WithTx returns a new repository that uses the given transaction
func (r *PostgresSessionRepository) WithTx(tx *sqlx.Tx) SessionRepository {
	return &PostgresSessionRepository{db: tx}
}

func (r *PostgresSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `SELECT * FROM chat_sessions WHERE id = $1`, id)
	return HandleNotFound(&session, err)
}

func (r *PostgresSessionRepository) FindLiveByCode(ctx context.Context, code string, now time.Time) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM chat_sessions
		WHERE code = $1 AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1
	`, code, now)
	return HandleNotFound(&session, err)
}

func (r *PostgresSessionRepository) ExistsLiveCode(ctx context.Context, code string, now time.Time) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM chat_sessions WHERE code = $1 AND expires_at > $2)
	`, code, now)
	return exists, err
}

func (r *PostgresSessionRepository) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO chat_sessions (id, code, is_pro, message_ttl_minutes, max_participants, creator_nickname, created_at, expires_at)
		VALUES ($1, $2, FALSE, $3, $4, $5, $6, $7)
		RETURNING *
	`, params.ID, params.Code, params.MessageTTLMinutes, params.MaxParticipants,
		params.CreatorNickname, params.CreatedAt, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *PostgresSessionRepository) Upgrade(ctx context.Context, id string, params model.UpgradeSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		UPDATE chat_sessions SET
			is_pro = TRUE,
			message_ttl_minutes = $2,
			max_participants = $3,
			upgraded_at = $4
		WHERE id = $1
		RETURNING *
	`, id, params.MessageTTLMinutes, params.MaxParticipants, params.UpgradedAt)
	return HandleNotFound(&session, err)
}

func (r *PostgresSessionRepository) Delete(ctx context.Context, id string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *PostgresSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
