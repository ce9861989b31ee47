package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/iamwavecut/warden/internal/observability"
)

type Action string

const (
	ActionNone Action = "none"
	ActionMute Action = "mute"
	ActionBan  Action = "ban"

	FirstMuteDuration  = 5 * 24 * time.Hour
	SecondMuteDuration = 30 * 24 * time.Hour
)

// Penalty is the enforcement tier for a strike count.
type Penalty struct {
	Action   Action
	Duration time.Duration
}

// PenaltyForStrike maps a (new) strike count to its enforcement tier:
// 1 -> 5 day mute, 2 -> 30 day mute, 3 and beyond -> permanent ban.
func PenaltyForStrike(strikes int) Penalty {
	switch {
	case strikes <= 0:
		return Penalty{Action: ActionNone}
	case strikes == 1:
		return Penalty{Action: ActionMute, Duration: FirstMuteDuration}
	case strikes == 2:
		return Penalty{Action: ActionMute, Duration: SecondMuteDuration}
	default:
		return Penalty{Action: ActionBan}
	}
}

// Outcome describes what the engine did about a violation.
type Outcome struct {
	CaseID    string
	ChatID    int64
	UserID    int64
	MessageID int
	Violation Violation
	Reason    string
	Action    Action
	Strikes   int
	Duration  time.Duration
	Until     time.Time
	// Failed is set when the platform rejected the mute or ban. The strike stays recorded.
	Failed bool
	Err    error
}

// Enforced reports whether a mute or ban was actually applied.
func (o *Outcome) Enforced() bool {
	return o != nil && o.Action != ActionNone && !o.Failed
}

func (o *Outcome) result() string {
	switch {
	case o.Action == ActionNone:
		return "bypassed"
	case o.Failed:
		return "failed"
	default:
		return "applied"
	}
}

type strikeStore interface {
	IncrementStrikes(ctx context.Context, chatID, userID int64, reason string, at time.Time) (int, error)
}

type PunishmentConfig struct {
	// CallTimeout bounds every store and platform call.
	CallTimeout time.Duration
	Audit       *zap.Logger
}

type PunishmentEngine struct {
	client ChatModerationClient
	store  strikeStore
	cfg    PunishmentConfig
	audit  *zap.Logger
}

func NewPunishmentEngine(client ChatModerationClient, store strikeStore, cfg PunishmentConfig) *PunishmentEngine {
	audit := cfg.Audit
	if audit == nil {
		audit = zap.NewNop()
	}
	return &PunishmentEngine{
		client: client,
		store:  store,
		cfg:    cfg,
		audit:  audit,
	}
}

// Apply records a new strike for the user and enforces the matching penalty.
// Admins are left alone. A persistence error aborts before any enforcement; a platform
// error is reported in the outcome without rolling back the strike.
func (e *PunishmentEngine) Apply(ctx context.Context, chatID, userID int64, reason string, now time.Time) (*Outcome, error) {
	ctx, span := otel.Tracer("moderation").Start(ctx, "punishment.apply")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("chat_id", chatID),
		attribute.Int64("user_id", userID),
		attribute.String("reason", reason),
	)

	entry := e.getLogEntry().WithFields(log.Fields{
		"chat_id": chatID,
		"user_id": userID,
	})
	outcome := &Outcome{
		ChatID: chatID,
		UserID: userID,
		Reason: reason,
		Action: ActionNone,
	}

	if isAdmin(ctx, e.client, e.cfg.CallTimeout, chatID, userID) {
		entry.Debug("skipping punishment for chat admin")
		observability.RecordEnforcement(string(outcome.Action), outcome.result())
		return outcome, nil
	}

	strikes, err := e.bumpStrikes(ctx, chatID, userID, reason, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "strike persistence failed")
		observability.RecordPersistenceFailure()
		entry.WithError(err).Error("cant record strike, enforcement aborted")
		return nil, err
	}

	penalty := PenaltyForStrike(strikes)
	outcome.CaseID = uuid.New()
	outcome.Strikes = strikes
	outcome.Action = penalty.Action
	outcome.Duration = penalty.Duration

	switch penalty.Action {
	case ActionMute:
		outcome.Until = now.Add(penalty.Duration)
		err = e.call(ctx, func(callCtx context.Context) error {
			return e.client.RestrictChatMember(callCtx, chatID, userID, MutedPermissions(), outcome.Until)
		})
	case ActionBan:
		err = e.call(ctx, func(callCtx context.Context) error {
			return e.client.BanChatMember(callCtx, chatID, userID)
		})
	}
	if err != nil {
		outcome.Failed = true
		outcome.Err = err
		span.RecordError(err)
		entry.WithError(err).WithField("action", penalty.Action).Warn("enforcement rejected by platform")
	}

	span.SetAttributes(
		attribute.Int("strikes", strikes),
		attribute.String("action", string(outcome.Action)),
		attribute.Bool("failed", outcome.Failed),
	)
	observability.RecordEnforcement(string(outcome.Action), outcome.result())
	e.writeAudit(outcome)
	return outcome, nil
}

func (e *PunishmentEngine) bumpStrikes(ctx context.Context, chatID, userID int64, reason string, now time.Time) (int, error) {
	var strikes int
	err := e.call(ctx, func(callCtx context.Context) error {
		n, err := e.store.IncrementStrikes(callCtx, chatID, userID, reason, now)
		if err != nil {
			return fmt.Errorf("increment strikes: %w", err)
		}
		strikes = n
		return nil
	})
	return strikes, err
}

func (e *PunishmentEngine) call(ctx context.Context, f func(ctx context.Context) error) error {
	callCtx, cancel := withCallTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return f(callCtx)
}

func (e *PunishmentEngine) writeAudit(o *Outcome) {
	fields := []zap.Field{
		zap.String("case_id", o.CaseID),
		zap.Int64("chat_id", o.ChatID),
		zap.Int64("user_id", o.UserID),
		zap.String("reason", o.Reason),
		zap.Int("strikes", o.Strikes),
		zap.String("action", string(o.Action)),
		zap.String("result", o.result()),
	}
	if !o.Until.IsZero() {
		fields = append(fields, zap.Time("until", o.Until))
	}
	if o.Err != nil {
		fields = append(fields, zap.Error(o.Err))
		e.audit.Warn("enforcement failed", fields...)
		return
	}
	e.audit.Info("enforcement applied", fields...)
}

func (e *PunishmentEngine) getLogEntry() *log.Entry {
	return log.WithField("object", "PunishmentEngine")
}

func withCallTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// isAdmin fails open: a lookup error counts as "not an admin" so moderation stays active.
func isAdmin(ctx context.Context, client ChatModerationClient, timeout time.Duration, chatID, userID int64) bool {
	callCtx, cancel := withCallTimeout(ctx, timeout)
	defer cancel()

	status, err := client.GetChatMemberStatus(callCtx, chatID, userID)
	if err != nil {
		log.WithFields(log.Fields{
			"object":  "moderation",
			"chat_id": chatID,
			"user_id": userID,
		}).WithError(err).Warn("cant get chat member status, treating as regular member")
		observability.RecordLookupFailure()
		return false
	}
	return status.IsAdmin()
}
