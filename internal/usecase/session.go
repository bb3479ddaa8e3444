package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/core/port"
	"github.com/mdurant/safelease-ai/internal/repository"
)

// SessionService lists and revokes the session rows opened at login.
type SessionService struct {
	sessions  port.SessionRepository
	publisher port.EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

// NewSessionService constructs a session service.
func NewSessionService(sessions port.SessionRepository, publisher port.EventPublisher, log *zap.Logger) *SessionService {
	return &SessionService{
		sessions:  sessions,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// SessionView is a session annotated with whether it backs the caller's
// current token.
type SessionView struct {
	domain.Session
	Current bool
}

// List returns the user's sessions, most recent activity first, flagging the
// one matching currentSessionID.
func (s *SessionService) List(ctx context.Context, userID, currentSessionID string) ([]SessionView, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, SessionView{
			Session: session,
			Current: session.ID == currentSessionID,
		})
	}

	return views, nil
}

// Revoke deletes one session owned by the user. Revoking the current session
// is allowed and acts as a logout.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID string) error {
	if err := s.sessions.Delete(ctx, userID, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}

	s.publishRevoked(ctx, userID, sessionID, "user_request")

	return nil
}

// RevokeAllExcept deletes every session of the user except the current one
// and reports how many were removed. With an empty currentSessionID it is a
// full logout-everywhere.
func (s *SessionService) RevokeAllExcept(ctx context.Context, userID, currentSessionID string) (int, error) {
	count, err := s.sessions.DeleteAllExcept(ctx, userID, currentSessionID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}

	if count > 0 {
		s.publishRevoked(ctx, userID, "", "bulk_revoke")
	}

	s.log.Info("sessions revoked",
		zap.String("user_id", userID),
		zap.Int("count", count),
	)

	return count, nil
}

func (s *SessionService) publishRevoked(ctx context.Context, userID, sessionID, reason string) {
	if s.publisher == nil {
		return
	}

	event := domain.SessionRevokedEvent{
		SessionID: sessionID,
		UserID:    userID,
		RevokedAt: s.now().UTC(),
		Reason:    reason,
	}
	if err := s.publisher.PublishSessionRevoked(ctx, event); err != nil {
		s.log.Warn("publish session revoked event", zap.Error(err))
	}
}
