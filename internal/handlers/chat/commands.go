package handlers

import (
	"context"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/warden/internal/bot"
	"github.com/iamwavecut/warden/internal/i18n"
	"github.com/iamwavecut/warden/internal/policy/permissions"
)

// Commands serves the bot command surface. Handled commands stop the update chain;
// anything else passes through to moderation.
type Commands struct {
	s   bot.Service
	ops memberOperations
}

func NewCommands(s bot.Service, ops memberOperations) *Commands {
	return &Commands{
		s:   s,
		ops: ops,
	}
}

type commandContext struct {
	msg  *api.Message
	chat *api.Chat
	user *api.User
	lang string
}

func (c *Commands) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	msg := u.Message
	if msg == nil || chat == nil || user == nil || !msg.IsCommand() {
		return true, nil
	}
	cc := commandContext{
		msg:  msg,
		chat: chat,
		user: user,
		lang: c.s.GetLanguage(ctx, chat.ID, user),
	}

	var err error
	switch msg.Command() {
	case "start":
		err = c.reply(ctx, cc, i18n.Get("✅ Bot is running.\nUse /help for commands.", cc.lang))
	case "help":
		err = c.reply(ctx, cc, i18n.Get("Commands:\n/start\n/help\n/rules\n/setrules <text> (admins)\n/setwelcome <text> (admins)\n/status (admins) - reply to user\n/forgive (admins) - reply to user (reset strikes)\n/unrestrict (admins) - reply to user (remove mute)\n/ban (admins) - reply to user", cc.lang))
	case "rules":
		err = c.rulesCommand(ctx, cc)
	case "setrules":
		err = c.privileged(ctx, cc, c.setRulesCommand)
	case "setwelcome":
		err = c.privileged(ctx, cc, c.setWelcomeCommand)
	case "status":
		err = c.privileged(ctx, cc, c.statusCommand)
	case "forgive":
		err = c.privileged(ctx, cc, c.forgiveCommand)
	case "unrestrict":
		err = c.privileged(ctx, cc, c.unrestrictCommand)
	case "ban":
		err = c.privileged(ctx, cc, c.banCommand)
	default:
		return true, nil
	}
	if err != nil {
		return false, errors.WithMessagef(err, "command /%s", msg.Command())
	}
	return false, nil
}

// privileged runs f for bot owners and chat moderators; everyone else is ignored silently.
func (c *Commands) privileged(ctx context.Context, cc commandContext, f func(context.Context, commandContext) error) error {
	if !c.canModerate(ctx, cc) {
		c.getLogEntry().WithFields(log.Fields{
			"chat_id": cc.chat.ID,
			"user_id": cc.user.ID,
			"command": cc.msg.Command(),
		}).Debug("ignoring command from unprivileged user")
		return nil
	}
	return f(ctx, cc)
}

func (c *Commands) canModerate(ctx context.Context, cc commandContext) bool {
	if c.s.GetConfig().IsOwner(cc.user.ID) {
		return true
	}
	if !isGroup(cc.chat) {
		return false
	}
	member, err := c.ops.GetChatMember(ctx, cc.chat.ID, cc.user.ID)
	if err != nil {
		c.getLogEntry().WithError(err).Warn("cant get chat member")
		return false
	}
	return permissions.CanModerate(member)
}

func (c *Commands) rulesCommand(ctx context.Context, cc commandContext) error {
	fallback := c.s.GetConfig().Greeting.DefaultRules
	settings, err := c.s.GetDB().GetChatSettings(ctx, cc.chat.ID)
	if err != nil {
		c.getLogEntry().WithError(err).Warn("cant load chat settings, using defaults")
		return c.reply(ctx, cc, fallback)
	}
	return c.reply(ctx, cc, settings.Rules(fallback))
}

func (c *Commands) setRulesCommand(ctx context.Context, cc commandContext) error {
	text := strings.TrimSpace(cc.msg.CommandArguments())
	if text == "" {
		return c.reply(ctx, cc, i18n.Get("Usage: /setrules <rules text>", cc.lang))
	}
	if err := c.s.GetDB().SetRules(ctx, cc.chat.ID, text); err != nil {
		return errors.WithMessage(err, "cant save rules")
	}
	return c.reply(ctx, cc, i18n.Get("✅ Rules updated.", cc.lang))
}

func (c *Commands) setWelcomeCommand(ctx context.Context, cc commandContext) error {
	text := strings.TrimSpace(cc.msg.CommandArguments())
	if text == "" {
		return c.reply(ctx, cc, i18n.Get("Usage: /setwelcome <welcome text>", cc.lang))
	}
	if err := c.s.GetDB().SetWelcome(ctx, cc.chat.ID, text); err != nil {
		return errors.WithMessage(err, "cant save welcome")
	}
	return c.reply(ctx, cc, i18n.Get("✅ Welcome message updated.", cc.lang))
}

func (c *Commands) statusCommand(ctx context.Context, cc commandContext) error {
	target, ok, err := c.replyTarget(ctx, cc)
	if !ok {
		return err
	}
	record, err := c.s.GetDB().GetStrikeRecord(ctx, cc.chat.ID, target.ID)
	if err != nil {
		return errors.WithMessage(err, "cant load strikes")
	}

	strikes, reason := 0, ""
	if record != nil {
		strikes, reason = record.Strikes, record.LastReason
	}
	text := tool.ExecTemplate(i18n.Get("👤 User: {{ .user_id }}\nStrikes: {{ .strikes }}", cc.lang), map[string]any{
		"user_id": target.ID,
		"strikes": strikes,
	})
	if reason != "" {
		text += "\n" + tool.ExecTemplate(i18n.Get("Last reason: {{ .reason }}", cc.lang), map[string]any{
			"reason": reason,
		})
	}
	return c.reply(ctx, cc, text)
}

func (c *Commands) forgiveCommand(ctx context.Context, cc commandContext) error {
	target, ok, err := c.replyTarget(ctx, cc)
	if !ok {
		return err
	}
	if err := c.s.GetDB().Forgive(ctx, cc.chat.ID, target.ID); err != nil {
		return errors.WithMessage(err, "cant forgive")
	}
	return c.reply(ctx, cc, i18n.Get("✅ Strikes reset (forgiven).", cc.lang))
}

func (c *Commands) unrestrictCommand(ctx context.Context, cc commandContext) error {
	target, ok, err := c.replyTarget(ctx, cc)
	if !ok {
		return err
	}
	if err := c.ops.UnrestrictChatMember(ctx, cc.chat.ID, target.ID); err != nil {
		return c.reply(ctx, cc, c.failure(cc, err))
	}
	return c.reply(ctx, cc, i18n.Get("✅ User unmuted/unrestricted.", cc.lang))
}

func (c *Commands) banCommand(ctx context.Context, cc commandContext) error {
	target, ok, err := c.replyTarget(ctx, cc)
	if !ok {
		return err
	}
	if err := c.ops.BanChatMember(ctx, cc.chat.ID, target.ID); err != nil {
		return c.reply(ctx, cc, c.failure(cc, err))
	}
	return c.reply(ctx, cc, i18n.Get("⛔ User banned.", cc.lang))
}

// replyTarget resolves the author of the replied-to message. When there is none, a usage
// hint is sent and ok is false.
func (c *Commands) replyTarget(ctx context.Context, cc commandContext) (*api.User, bool, error) {
	if !isGroup(cc.chat) {
		return nil, false, c.reply(ctx, cc, i18n.Get("This command can only be used in groups", cc.lang))
	}
	if cc.msg.ReplyToMessage == nil || cc.msg.ReplyToMessage.From == nil {
		return nil, false, c.reply(ctx, cc, tool.ExecTemplate(i18n.Get("Reply to a user's message with /{{ .command }}", cc.lang), map[string]any{
			"command": cc.msg.Command(),
		}))
	}
	return cc.msg.ReplyToMessage.From, true, nil
}

func (c *Commands) failure(cc commandContext, err error) string {
	return tool.ExecTemplate(i18n.Get("❌ Failed: {{ .error }}", cc.lang), map[string]any{
		"error": err.Error(),
	})
}

func (c *Commands) reply(ctx context.Context, cc commandContext, text string) error {
	if err := c.ops.ReplyMessage(ctx, cc.chat.ID, cc.msg.MessageID, text); err != nil {
		c.getLogEntry().WithError(err).WithField("chat_id", cc.chat.ID).Warn("cant send reply")
	}
	return nil
}

func (c *Commands) getLogEntry() *log.Entry {
	return log.WithField("object", "Commands")
}
