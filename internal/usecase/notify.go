package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/port"
	"github.com/mdurant/safelease-ai/internal/infra/logger"
)

// NotificationService composes and sends the account lifecycle mails.
// Delivery failures are logged and swallowed: a lost mail never aborts the
// state transition that triggered it.
type NotificationService struct {
	mailer          port.Mailer
	verificationURL string
	resetURL        string
	log             *zap.Logger
}

// NewNotificationService constructs a notification service. The URLs are the
// public endpoints embedded into the mailed links.
func NewNotificationService(mailer port.Mailer, verificationURL, resetURL string, log *zap.Logger) *NotificationService {
	return &NotificationService{
		mailer:          mailer,
		verificationURL: verificationURL,
		resetURL:        resetURL,
		log:             log,
	}
}

// SendVerificationEmail mails the one-shot email verification link.
func (s *NotificationService) SendVerificationEmail(ctx context.Context, to, rawToken string) {
	body := fmt.Sprintf(
		"Welcome to SafeLease!\n\nPlease confirm your email address by following this link:\n\n%s?token=%s\n\nThe link expires in 24 hours.",
		s.verificationURL, rawToken,
	)
	s.send(ctx, to, "Confirm your email address", body)
}

// SendOTPEmail mails the short-lived login confirmation code.
func (s *NotificationService) SendOTPEmail(ctx context.Context, to, code string) {
	body := fmt.Sprintf(
		"Your SafeLease confirmation code is:\n\n%s\n\nThe code expires in 10 minutes. If you did not request it, you can ignore this message.",
		code,
	)
	s.send(ctx, to, "Your confirmation code", body)
}

// SendPasswordResetEmail mails the one-shot reset link.
func (s *NotificationService) SendPasswordResetEmail(ctx context.Context, to, rawToken string) {
	body := fmt.Sprintf(
		"A password reset was requested for your SafeLease account.\n\nFollow this link to choose a new password:\n\n%s?token=%s\n\nThe link expires in 1 hour. If you did not request a reset, no action is needed.",
		s.resetURL, rawToken,
	)
	s.send(ctx, to, "Reset your password", body)
}

// SendPasswordChangedNotice informs the user after a successful change.
func (s *NotificationService) SendPasswordChangedNotice(ctx context.Context, to string) {
	body := "The password for your SafeLease account was just changed.\n\nIf this was not you, reset your password immediately."
	s.send(ctx, to, "Your password was changed", body)
}

func (s *NotificationService) send(ctx context.Context, to, subject, body string) {
	if s == nil || s.mailer == nil {
		return
	}

	deliveryID, err := s.mailer.Send(ctx, to, subject, body)
	if err != nil {
		s.log.Warn("mail delivery failed",
			zap.String("to", logger.MaskEmail(to)),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}

	s.log.Debug("mail queued",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
		zap.String("delivery_id", deliveryID),
	)
}
