package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iamwavecut/warden/internal/moderation"
)

const (
	// MsgNoPrivileges prefixes every Telegram "not enough rights to ..." error.
	MsgNoPrivileges = "not enough rights"

	statusCacheSize = 4096
)

var ErrNoPrivileges = errors.New("no privileges")

// botAPI is the part of *api.BotAPI the operations need.
type botAPI interface {
	Request(c api.Chattable) (*api.APIResponse, error)
	Send(c api.Chattable) (api.Message, error)
	GetChatMember(config api.GetChatMemberConfig) (api.ChatMember, error)
}

type Options struct {
	// StatusCacheTTL keeps successful member status lookups; zero disables the cache.
	StatusCacheTTL time.Duration
	// SendRatePerSec limits outbound messages; zero disables the limit.
	SendRatePerSec float64
}

type memberKey struct {
	chatID int64
	userID int64
}

// Operations provides the Telegram calls used by moderation and chat commands.
type Operations struct {
	bot      botAPI
	statuses *expirable.LRU[memberKey, moderation.MemberStatus]
	limiter  *rate.Limiter
}

var _ moderation.ChatModerationClient = (*Operations)(nil)

func NewOperations(bot botAPI, opts Options) *Operations {
	o := &Operations{bot: bot}
	if opts.StatusCacheTTL > 0 {
		o.statuses = expirable.NewLRU[memberKey, moderation.MemberStatus](statusCacheSize, nil, opts.StatusCacheTTL)
	}
	if opts.SendRatePerSec > 0 {
		burst := max(1, int(opts.SendRatePerSec))
		o.limiter = rate.NewLimiter(rate.Limit(opts.SendRatePerSec), burst)
	}
	return o
}

// GetChatMemberStatus returns the member status. Only successful lookups are cached.
func (o *Operations) GetChatMemberStatus(ctx context.Context, chatID, userID int64) (moderation.MemberStatus, error) {
	key := memberKey{chatID: chatID, userID: userID}
	if o.statuses != nil {
		if status, ok := o.statuses.Get(key); ok {
			return status, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	member, err := o.GetChatMember(ctx, chatID, userID)
	if err != nil {
		return "", err
	}

	status := moderation.MemberStatus(member.Status)
	if o.statuses != nil {
		o.statuses.Add(key, status)
	}
	return status, nil
}

// GetChatMember returns the full member record, bypassing the status cache.
func (o *Operations) GetChatMember(ctx context.Context, chatID, userID int64) (*api.ChatMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	member, err := o.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat member: %w", err)
	}
	return &member, nil
}

// RestrictChatMember applies permissions until the given time.
func (o *Operations) RestrictChatMember(ctx context.Context, chatID, userID int64, permissions moderation.Permissions, until time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	config := api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		Permissions: toChatPermissions(permissions),
	}
	if !until.IsZero() {
		config.UntilDate = until.Unix()
	}
	if _, err := o.bot.Request(config); err != nil {
		return withPrivilegeError(err, "restrict")
	}
	o.forget(chatID, userID)
	return nil
}

// UnrestrictChatMember gives a muted member their messaging rights back.
func (o *Operations) UnrestrictChatMember(ctx context.Context, chatID, userID int64) error {
	return o.RestrictChatMember(ctx, chatID, userID, moderation.Permissions{
		SendMessages:       true,
		SendPolls:          true,
		SendOtherMessages:  true,
		AddWebPagePreviews: true,
		InviteUsers:        true,
	}, time.Time{})
}

// BanChatMember bans a user permanently.
func (o *Operations) BanChatMember(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	config := api.BanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
	}
	if _, err := o.bot.Request(config); err != nil {
		return withPrivilegeError(err, "ban")
	}
	o.forget(chatID, userID)
	return nil
}

func (o *Operations) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := api.NewMessage(chatID, text)
	msg.LinkPreviewOptions.IsDisabled = true
	return o.send(ctx, msg)
}

// ReplyMessage sends text as a reply; it still goes out if the original message is gone.
func (o *Operations) ReplyMessage(ctx context.Context, chatID int64, replyTo int, text string) error {
	msg := api.NewMessage(chatID, text)
	msg.LinkPreviewOptions.IsDisabled = true
	if replyTo != 0 {
		msg.ReplyParameters = api.ReplyParameters{
			ChatID:                   chatID,
			MessageID:                replyTo,
			AllowSendingWithoutReply: true,
		}
	}
	return o.send(ctx, msg)
}

func (o *Operations) send(ctx context.Context, msg api.MessageConfig) error {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("send rate limit: %w", err)
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := o.bot.Send(msg); err != nil {
		log.WithField("object", "Operations").WithError(err).Debug("send failed")
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (o *Operations) forget(chatID, userID int64) {
	if o.statuses != nil {
		o.statuses.Remove(memberKey{chatID: chatID, userID: userID})
	}
}

func toChatPermissions(p moderation.Permissions) *api.ChatPermissions {
	return &api.ChatPermissions{
		CanSendMessages:       p.SendMessages,
		CanSendAudios:         p.SendOtherMessages,
		CanSendDocuments:      p.SendOtherMessages,
		CanSendPhotos:         p.SendOtherMessages,
		CanSendVideos:         p.SendOtherMessages,
		CanSendVideoNotes:     p.SendOtherMessages,
		CanSendVoiceNotes:     p.SendOtherMessages,
		CanSendPolls:          p.SendPolls,
		CanSendOtherMessages:  p.SendOtherMessages,
		CanAddWebPagePreviews: p.AddWebPagePreviews,
		CanChangeInfo:         p.ChangeInfo,
		CanInviteUsers:        p.InviteUsers,
		CanPinMessages:        p.PinMessages,
	}
}

func withPrivilegeError(err error, operation string) error {
	if strings.Contains(err.Error(), MsgNoPrivileges) {
		return fmt.Errorf("failed to %s user: %w", operation, ErrNoPrivileges)
	}
	return fmt.Errorf("failed to %s user: %w", operation, err)
}
