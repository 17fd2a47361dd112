// Package mail provides notification.Mailer implementations: an SMTP
// transport and an in-memory one for development and tests.
package mail

import (
	"fmt"

	"github.com/eta/backend/internal/domain/notification"
	"github.com/eta/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewMailer builds the mailer selected by cfg.Backend
func NewMailer(cfg config.MailConfig, log *zap.Logger) (notification.Mailer, error) {
	switch cfg.Backend {
	case "smtp":
		return NewSMTPMailer(SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
			Timeout:  cfg.Timeout,
		}), nil
	case "memory":
		return NewMemoryMailer(log), nil
	default:
		return nil, fmt.Errorf("unknown mail backend %q", cfg.Backend)
	}
}
