package db

import (
	"context"
	"time"
)

// StrikeStore is the persistence contract of the moderation core.
type StrikeStore interface {
	GetStrikes(ctx context.Context, chatID, userID int64) (int, error)
	SetStrikes(ctx context.Context, chatID, userID int64, strikes int, reason string, at time.Time) error
	// IncrementStrikes adds one strike in a single atomic step and returns the new count.
	IncrementStrikes(ctx context.Context, chatID, userID int64, reason string, at time.Time) (int, error)
	Forgive(ctx context.Context, chatID, userID int64) error
	GetStrikeRecord(ctx context.Context, chatID, userID int64) (*StrikeRecord, error)
}

// SettingsStore keeps per-chat welcome and rules texts with field-level upserts.
type SettingsStore interface {
	GetChatSettings(ctx context.Context, chatID int64) (*ChatSettings, error)
	SetWelcome(ctx context.Context, chatID int64, text string) error
	SetRules(ctx context.Context, chatID int64, text string) error
}

type Client interface {
	StrikeStore
	SettingsStore
	Close() error
}
