package bot

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/warden/internal/observability"
)

const (
	UpdateTimeout = 5 * time.Minute
)

type UpdateProcessor struct {
	updateHandlers []Handler
	clock          func() time.Time
}

// NewUpdateProcessor chains handlers in the given order; a handler returning proceed=false
// stops the chain for that update.
func NewUpdateProcessor(handlers ...Handler) *UpdateProcessor {
	enabledHandlers := make([]Handler, 0, len(handlers))
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		enabledHandlers = append(enabledHandlers, handler)
	}

	return &UpdateProcessor{
		updateHandlers: enabledHandlers,
		clock:          time.Now,
	}
}

func (up *UpdateProcessor) Process(ctx context.Context, u *api.Update) (err error) {
	if u == nil {
		return errors.New("update is nil")
	}
	done := observability.StartUpdateProcessing()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		done(status)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if updateTime, ok := updateTime(u); ok {
		if age := up.clock().Sub(updateTime); age > UpdateTimeout {
			log.WithFields(log.Fields{
				"update_time": updateTime,
				"age":         age,
			}).Debug("Skipping outdated update")
			return nil
		}
	}

	chat := u.FromChat()
	if chat == nil {
		switch {
		case u.MyChatMember != nil:
			chat = &u.MyChatMember.Chat
		case u.ChatMember != nil:
			chat = &u.ChatMember.Chat
		}
	}

	user := u.SentFrom()
	if user == nil {
		switch {
		case u.MyChatMember != nil:
			user = &u.MyChatMember.From
		case u.ChatMember != nil:
			user = &u.ChatMember.From
		}
	}

	for _, handler := range up.updateHandlers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		proceed, err := handler.Handle(ctx, u, chat, user)
		if err != nil {
			return errors.WithMessage(err, "handling error")
		}
		if !proceed {
			log.Trace("not proceeding")
			return nil
		}
	}
	return nil
}

func updateTime(u *api.Update) (time.Time, bool) {
	switch {
	case u.Message != nil:
		return time.Unix(int64(u.Message.Date), 0), true
	case u.EditedMessage != nil:
		return time.Unix(int64(u.EditedMessage.Date), 0), true
	case u.ChannelPost != nil:
		return time.Unix(int64(u.ChannelPost.Date), 0), true
	case u.EditedChannelPost != nil:
		return time.Unix(int64(u.EditedChannelPost.Date), 0), true
	default:
		return time.Time{}, false
	}
}
