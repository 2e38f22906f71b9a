package identity

import (
	"context"

	"github.com/rs/zerolog"
)

// Mailer delivers password reset tokens.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes reset tokens to the log instead of sending mail. It is
// meant for development setups without an outbound mail service.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.log.Info().Str("email", email).Str("reset_token", token).Msg("password reset requested")
	return nil
}
