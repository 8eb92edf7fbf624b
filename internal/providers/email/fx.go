package email

import (
	"github.com/quillform/quillform/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

// NewFromConfig falls back to the no-op provider when SMTP is not
// configured so local runs work without a mail relay.
func NewFromConfig(cfg config.Config, log *zap.Logger) (Provider, error) {
	if cfg.SMTPHost == "" {
		log.Named("providers.email").Warn("smtp not configured, emails are dropped")
		return &NoOpProvider{}, nil
	}
	return NewSMTP(Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}
