package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/warden/internal/config"
	"github.com/iamwavecut/warden/internal/db"
)

// ServiceDB defines database-specific operations
type ServiceDB interface {
	GetDB() db.Client
}

// ServiceConfig exposes the loaded configuration
type ServiceConfig interface {
	GetConfig() *config.Config
}

// Service defines the core bot service interface
type Service interface {
	ServiceDB
	ServiceConfig
	GetLanguage(ctx context.Context, chatID int64, user *api.User) string
}

// Handler defines the interface for all update handlers in the system
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error)

func (f HandlerFunc) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	return f(ctx, u, chat, user)
}
