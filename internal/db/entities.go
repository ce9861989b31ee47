package db

import "time"

type (
	// StrikeRecord is the durable violation counter of a user in a chat. A missing record
	// means zero strikes.
	StrikeRecord struct {
		ChatID     int64     `db:"chat_id"`
		UserID     int64     `db:"user_id"`
		Strikes    int       `db:"strikes"`
		LastReason string    `db:"last_reason"`
		UpdatedAt  time.Time `db:"-"`
	}

	// ChatSettings holds per-chat greeting texts. Nil fields fall back to the configured
	// defaults.
	ChatSettings struct {
		ChatID      int64   `db:"chat_id"`
		WelcomeText *string `db:"welcome_text"`
		RulesText   *string `db:"rules_text"`
	}
)

// Welcome returns the chat welcome text or fallback when none is set.
func (s *ChatSettings) Welcome(fallback string) string {
	if s == nil || s.WelcomeText == nil || *s.WelcomeText == "" {
		return fallback
	}
	return *s.WelcomeText
}

// Rules returns the chat rules text or fallback when none is set.
func (s *ChatSettings) Rules(fallback string) string {
	if s == nil || s.RulesText == nil || *s.RulesText == "" {
		return fallback
	}
	return *s.RulesText
}
