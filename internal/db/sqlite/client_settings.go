package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/warden/internal/db"
)

func (c *sqliteClient) GetChatSettings(ctx context.Context, chatID int64) (*db.ChatSettings, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	settings := &db.ChatSettings{}
	err := c.db.GetContext(ctx, settings, `SELECT chat_id, welcome_text, rules_text FROM chat_settings WHERE chat_id = ?`, chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &db.ChatSettings{ChatID: chatID}, nil
		}
		return nil, fmt.Errorf("get settings for %d: %w", chatID, err)
	}
	return settings, nil
}

// SetWelcome and SetRules only touch their own column on conflict, so setting one
// never clobbers the other.
func (c *sqliteClient) SetWelcome(ctx context.Context, chatID int64, text string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO chat_settings (chat_id, welcome_text) VALUES (?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET welcome_text = excluded.welcome_text
	`
	if err := tool.Err(c.db.ExecContext(ctx, query, chatID, text)); err != nil {
		return fmt.Errorf("set welcome for %d: %w", chatID, err)
	}
	return nil
}

func (c *sqliteClient) SetRules(ctx context.Context, chatID int64, text string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO chat_settings (chat_id, rules_text) VALUES (?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET rules_text = excluded.rules_text
	`
	if err := tool.Err(c.db.ExecContext(ctx, query, chatID, text)); err != nil {
		return fmt.Errorf("set rules for %d: %w", chatID, err)
	}
	return nil
}
