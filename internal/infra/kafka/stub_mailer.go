package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/Erick-MC-Cedeno/chatty/internal/infra/logger"
)

// StubMailer logs outbound mail instead of queueing it. Useful for
// development environments without a broker.
type StubMailer struct {
	logger *zap.Logger
}

// NewStubMailer constructs a development-friendly mailer.
func NewStubMailer(log *zap.Logger) *StubMailer {
	return &StubMailer{logger: log}
}

// SendLoginNotification logs a login notice.
func (m *StubMailer) SendLoginNotification(_ context.Context, email string) error {
	m.logger.Info("Stub mail: login notification",
		zap.String("recipient", logger.MaskEmail(email)),
	)
	return nil
}

// SendVerificationCode logs a two-factor code. The code itself is masked.
func (m *StubMailer) SendVerificationCode(_ context.Context, email, code string) error {
	m.logger.Info("Stub mail: verification code",
		zap.String("recipient", logger.MaskEmail(email)),
		zap.String("code", logger.MaskString(code)),
	)
	return nil
}

// SendResetToken logs a password reset token. The token itself is masked.
func (m *StubMailer) SendResetToken(_ context.Context, email, token string) error {
	m.logger.Info("Stub mail: password reset token",
		zap.String("recipient", logger.MaskEmail(email)),
		zap.String("token", logger.MaskString(token)),
	)
	return nil
}
