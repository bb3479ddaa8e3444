package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/core/port"
	"github.com/mdurant/safelease-ai/internal/infra/logger"
)

// StubPublisher logs events instead of producing them. Used when Kafka is
// disabled in configuration.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a logging-only event publisher.
func NewStubPublisher(log *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: log}
}

func (s *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	s.logger.Info("event: user registered",
		zap.String("user_id", event.UserID),
		zap.String("email", logger.MaskEmail(event.Email)),
		zap.String("role", event.RoleCode),
	)
	return nil
}

func (s *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	s.logger.Info("event: password changed",
		zap.String("user_id", event.UserID),
		zap.String("source", event.Source),
	)
	return nil
}

func (s *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	s.logger.Info("event: session revoked",
		zap.String("user_id", event.UserID),
		zap.String("session_id", event.SessionID),
		zap.String("reason", event.Reason),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
