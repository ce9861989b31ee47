package handlers

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/warden/internal/bot"
)

// Greeter posts the chat welcome and rules when new members join.
type Greeter struct {
	s         bot.Service
	messenger messenger
}

func NewGreeter(s bot.Service, m messenger) *Greeter {
	return &Greeter{
		s:         s,
		messenger: m,
	}
}

func (g *Greeter) Handle(ctx context.Context, u *api.Update, chat *api.Chat, _ *api.User) (bool, error) {
	if u.Message == nil || len(u.Message.NewChatMembers) == 0 || chat == nil {
		return true, nil
	}
	entry := g.getLogEntry().WithField("chat_id", chat.ID)

	welcome, rules := g.texts(ctx, chat.ID)
	text := tool.ExecTemplate("👋 {{ .welcome }}\n\n📌 {{ .rules }}", map[string]any{
		"welcome": welcome,
		"rules":   rules,
	})
	if err := g.messenger.SendMessage(ctx, chat.ID, text); err != nil {
		entry.WithError(err).Warn("cant send greeting")
	}
	return false, nil
}

// texts falls back to the configured defaults when settings are missing or unreadable.
func (g *Greeter) texts(ctx context.Context, chatID int64) (string, string) {
	greeting := g.s.GetConfig().Greeting
	settings, err := g.s.GetDB().GetChatSettings(ctx, chatID)
	if err != nil {
		g.getLogEntry().WithError(err).WithField("chat_id", chatID).Warn("cant load chat settings, using defaults")
		return greeting.DefaultWelcome, greeting.DefaultRules
	}
	return settings.Welcome(greeting.DefaultWelcome), settings.Rules(greeting.DefaultRules)
}

func (g *Greeter) getLogEntry() *log.Entry {
	return log.WithField("object", "Greeter")
}
