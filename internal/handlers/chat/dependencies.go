package handlers

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/warden/internal/moderation"
)

type messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	ReplyMessage(ctx context.Context, chatID int64, replyTo int, text string) error
}

type memberOperations interface {
	messenger
	GetChatMember(ctx context.Context, chatID, userID int64) (*api.ChatMember, error)
	UnrestrictChatMember(ctx context.Context, chatID, userID int64) error
	BanChatMember(ctx context.Context, chatID, userID int64) error
}

type inspector interface {
	Inspect(ctx context.Context, msg moderation.InboundMessage) (*moderation.Outcome, error)
}

func isGroup(chat *api.Chat) bool {
	return chat != nil && (chat.IsGroup() || chat.IsSuperGroup())
}
