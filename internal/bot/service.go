package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/warden/internal/config"
	"github.com/iamwavecut/warden/internal/db"
	"github.com/iamwavecut/warden/internal/i18n"
)

type service struct {
	db  db.Client
	cfg *config.Config
}

func NewService(db db.Client, cfg *config.Config) *service {
	return &service{
		db:  db,
		cfg: cfg,
	}
}

func (s *service) GetDB() db.Client {
	return s.db
}

func (s *service) GetConfig() *config.Config {
	return s.cfg
}

// GetLanguage returns the language texts in a chat are rendered in.
// Group replies are read by everyone, so the configured language wins over the sender's.
func (s *service) GetLanguage(_ context.Context, _ int64, _ *api.User) string {
	if s.cfg == nil || !i18n.IsSupported(s.cfg.DefaultLanguage) {
		return "en"
	}
	return s.cfg.DefaultLanguage
}
