package handlers

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/warden/internal/bot"
	"github.com/iamwavecut/warden/internal/moderation"
)

// Guard feeds group messages, edits included, to the moderation orchestrator and
// reports the outcome as a reply to the offending message.
type Guard struct {
	s         bot.Service
	inspector inspector
	messenger messenger
}

func NewGuard(s bot.Service, i inspector, m messenger) *Guard {
	return &Guard{
		s:         s,
		inspector: i,
		messenger: m,
	}
}

func (g *Guard) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	msg := u.Message
	if msg == nil {
		msg = u.EditedMessage
	}
	if msg == nil || user == nil || !isGroup(chat) {
		return true, nil
	}

	outcome, err := g.inspector.Inspect(ctx, moderation.InboundMessage{
		ChatID:           chat.ID,
		UserID:           user.ID,
		MessageID:        msg.MessageID,
		Text:             msg.Text,
		Caption:          msg.Caption,
		IsNewChatMembers: len(msg.NewChatMembers) > 0,
	})
	if err != nil {
		return false, errors.WithMessage(err, "cant inspect message")
	}
	if outcome == nil {
		return true, nil
	}

	text := renderOutcome(outcome, g.s.GetLanguage(ctx, chat.ID, user))
	if text == "" {
		return true, nil
	}
	if err := g.messenger.ReplyMessage(ctx, chat.ID, msg.MessageID, text); err != nil {
		g.getLogEntry().WithError(err).WithFields(log.Fields{
			"chat_id": chat.ID,
			"user_id": user.ID,
			"case_id": outcome.CaseID,
		}).Warn("cant send violation notice")
	}
	return false, nil
}

func (g *Guard) getLogEntry() *log.Entry {
	return log.WithField("object", "Guard")
}
