package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/chatstealth/server-go/internal/errors"
	"github.com/chatstealth/server-go/internal/model"
	"github.com/chatstealth/server-go/internal/realtime"
	"github.com/chatstealth/server-go/internal/repository"
	"github.com/chatstealth/server-go/internal/util"
)

const (
	maxCodeAttempts         = 32
	sessionDestroyedMessage = "Esta sessão foi encerrada pelo anfitrião"
)

// CheckoutProvider starts a hosted payment flow for a session upgrade.
type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error)
}

type VerifyUpgradeResult struct {
	IsPro             bool `json:"is_pro"`
	MessageTTLMinutes int  `json:"message_ttl_minutes"`
}

type SessionService struct {
	sessionRepo   repository.SessionRepository
	tx            repository.TxRunner
	broadcaster   realtime.Broadcaster
	checkout      CheckoutProvider
	upgradeSecret string
	now           Clock
}

func NewSessionService(
	store *repository.Store,
	broadcaster realtime.Broadcaster,
	checkout CheckoutProvider,
	upgradeSecret string,
) *SessionService {
	return &SessionService{
		sessionRepo:   store.Sessions,
		tx:            store.Tx,
		broadcaster:   broadcaster,
		checkout:      checkout,
		upgradeSecret: upgradeSecret,
		now:           SystemClock,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *SessionService) WithClock(clock Clock) *SessionService {
	s.now = clock
	return s
}

func (s *SessionService) CreateSession(ctx context.Context, nickname *string) (*model.Session, error) {
	now := s.now()

	code, err := s.generateLiveUniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.Create(ctx, model.CreateSessionParams{
		ID:                uuid.NewString(),
		Code:              code,
		MessageTTLMinutes: model.FreeTier.MessageTTLMinutes,
		MaxParticipants:   model.FreeTier.MaxParticipants,
		CreatorNickname:   util.TrimOptional(nickname),
		CreatedAt:         now,
		ExpiresAt:         now.Add(model.SessionLifetime),
	})
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("create session: %w", err))
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("code", session.Code).
		Msg("session created")

	return session, nil
}

// generateLiveUniqueCode rerolls until no live session holds the code. Expired
// sessions may still carry it. The check and the later insert are not atomic; two
// concurrent creates drawing the same code in that window is accepted.
func (s *SessionService) generateLiveUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := util.GenerateSessionCode()
		if err != nil {
			return "", apperrors.Internal("failed to generate session code").WithCause(err)
		}

		exists, err := s.sessionRepo.ExistsLiveCode(ctx, code, s.now())
		if err != nil {
			return "", apperrors.Database(fmt.Errorf("check session code: %w", err))
		}
		if !exists {
			return code, nil
		}

		log.Debug().Str("code", code).Msg("session code collision, regenerating")
	}
	return "", apperrors.Internal("could not find a free session code")
}

func (s *SessionService) GetByCode(ctx context.Context, code string) (*model.Session, error) {
	normalized := util.NormalizeSessionCode(code)
	if !util.IsValidSessionCode(normalized) {
		return nil, apperrors.SessionNotFound()
	}

	session, err := s.sessionRepo.FindLiveByCode(ctx, normalized, s.now())
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find session by code: %w", err))
	}
	if session == nil {
		return nil, apperrors.SessionNotFound()
	}
	return session, nil
}

// FindByID does not filter on expiry; callers that need a live session check it.
func (s *SessionService) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find session: %w", err))
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	return session, nil
}

// UpgradeToPro applies the Pro tier even when the session already has it, so webhook
// retries and the secret path re-broadcast. CreateCheckout guards the paid path.
func (s *SessionService) UpgradeToPro(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessionRepo.Upgrade(ctx, id, model.UpgradeSessionParams{
		MessageTTLMinutes: model.ProTier.MessageTTLMinutes,
		MaxParticipants:   model.ProTier.MaxParticipants,
		UpgradedAt:        s.now(),
	})
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("upgrade session: %w", err))
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}

	s.broadcaster.Broadcast(ctx, id, model.SessionUpgradedEvent{
		Type:              model.EventSessionUpgraded,
		IsPro:             true,
		MessageTTLMinutes: session.MessageTTLMinutes,
		MaxParticipants:   session.MaxParticipants,
	})

	log.Info().Str("sessionId", id).Msg("session upgraded to pro")

	return session, nil
}

func (s *SessionService) CreateCheckout(ctx context.Context, id string) (*model.CheckoutResult, error) {
	session, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsPro {
		return nil, apperrors.AlreadyUpgraded()
	}

	result, err := s.checkout.CreateCheckout(ctx, model.CheckoutRequest{
		SessionID:   session.ID,
		SessionCode: session.Code,
	})
	if err != nil {
		return nil, apperrors.External("payment", err)
	}

	log.Info().
		Str("sessionId", id).
		Str("checkoutId", result.CheckoutID).
		Msg("checkout created")

	return result, nil
}

func (s *SessionService) VerifyUpgrade(ctx context.Context, id string) (*VerifyUpgradeResult, error) {
	session, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &VerifyUpgradeResult{
		IsPro:             session.IsPro,
		MessageTTLMinutes: session.MessageTTLMinutes,
	}, nil
}

// SecretUpgrade unlocks Pro with the shared secret code. An unset secret disables
// the path entirely.
func (s *SessionService) SecretUpgrade(ctx context.Context, id, secret string) (*model.Session, error) {
	if s.upgradeSecret == "" || !util.ConstantTimeEqual(secret, s.upgradeSecret) {
		log.Warn().Str("sessionId", id).Msg("secret upgrade rejected")
		return nil, apperrors.Forbidden("Invalid secret code")
	}
	return s.UpgradeToPro(ctx, id)
}

// DestroySession removes the session and its messages together. The destroyed event
// goes out only after both deletes have committed.
func (s *SessionService) DestroySession(ctx context.Context, id string) error {
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}

	var deletedMessages int64
	err := s.tx.RunInTx(ctx, func(sessions repository.SessionRepository, messages repository.MessageRepository) error {
		n, err := messages.DeleteBySessionID(ctx, id)
		if err != nil {
			return fmt.Errorf("delete session messages: %w", err)
		}
		deletedMessages = n

		removed, err := sessions.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if removed == 0 {
			return apperrors.NotFound("Session")
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Database(err)
	}

	s.broadcaster.Broadcast(ctx, id, model.SessionDestroyedEvent{
		Type:    model.EventSessionDestroyed,
		Message: sessionDestroyedMessage,
	})

	log.Info().
		Str("sessionId", id).
		Int64("messages", deletedMessages).
		Msg("session destroyed")

	return nil
}
