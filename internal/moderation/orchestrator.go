package moderation

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iamwavecut/warden/internal/observability"
)

// InboundMessage is the platform independent view of a chat message.
type InboundMessage struct {
	ChatID           int64
	UserID           int64
	MessageID        int
	Text             string
	Caption          string
	IsNewChatMembers bool
}

// Content returns the text, or the caption for media messages.
func (m InboundMessage) Content() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

type Orchestrator struct {
	client      ChatModerationClient
	flood       *FloodTracker
	links       LinkDetector
	engine      *PunishmentEngine
	callTimeout time.Duration
	clock       func() time.Time
}

func NewOrchestrator(client ChatModerationClient, flood *FloodTracker, links LinkDetector, engine *PunishmentEngine, callTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		client:      client,
		flood:       flood,
		links:       links,
		engine:      engine,
		callTimeout: callTimeout,
		clock:       time.Now,
	}
}

// Inspect runs the per-message moderation flow. It returns a nil outcome when the message
// is clean, skipped, or sent by an admin. At most one violation is reported per message and
// flood takes precedence over links.
func (o *Orchestrator) Inspect(ctx context.Context, msg InboundMessage) (*Outcome, error) {
	if msg.IsNewChatMembers {
		return nil, nil
	}
	content := msg.Content()
	if content == "" {
		return nil, nil
	}

	ctx, span := otel.Tracer("moderation").Start(ctx, "orchestrator.inspect")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("chat_id", msg.ChatID),
		attribute.Int64("user_id", msg.UserID),
	)

	if isAdmin(ctx, o.client, o.callTimeout, msg.ChatID, msg.UserID) {
		span.SetAttributes(attribute.Bool("admin_bypass", true))
		return nil, nil
	}

	now := o.clock()
	violation := o.flood.CheckViolation(msg.ChatID, msg.UserID, content, now)
	if !violation.Detected() && o.links.Check(content) {
		violation = ViolationLink
	}
	span.SetAttributes(attribute.String("violation", violation.String()))
	if !violation.Detected() {
		return nil, nil
	}

	observability.RecordViolation(violation.String())
	log.WithFields(log.Fields{
		"object":    "Orchestrator",
		"chat_id":   msg.ChatID,
		"user_id":   msg.UserID,
		"violation": violation.String(),
	}).Info("violation detected")

	outcome, err := o.engine.Apply(ctx, msg.ChatID, msg.UserID, violation.Reason(), now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	outcome.Violation = violation
	outcome.MessageID = msg.MessageID
	return outcome, nil
}
