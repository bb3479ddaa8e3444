// Package mail provides outbound mail delivery adapters.
package mail

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mdurant/safelease-ai/internal/core/port"
	"github.com/mdurant/safelease-ai/internal/infra/logger"
)

// LogMailer writes outbound messages to the service log instead of an SMTP
// relay. Delivery failures upstream are tolerated by callers, so this adapter
// is safe as the default in every environment without mail credentials.
type LogMailer struct {
	from   string
	logger *zap.Logger
}

// NewLogMailer constructs a logging mail adapter sending from the given
// address.
func NewLogMailer(from string, log *zap.Logger) *LogMailer {
	return &LogMailer{from: from, logger: log}
}

// Send records the message and returns a synthetic delivery id.
func (m *LogMailer) Send(_ context.Context, to, subject, body string) (string, error) {
	deliveryID := uuid.NewString()

	m.logger.Info("outbound mail",
		zap.String("delivery_id", deliveryID),
		zap.String("from", m.from),
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)

	return deliveryID, nil
}

var _ port.Mailer = (*LogMailer)(nil)
