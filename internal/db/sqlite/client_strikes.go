package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/warden/internal/db"
)

type strikeRow struct {
	ChatID     int64  `db:"chat_id"`
	UserID     int64  `db:"user_id"`
	Strikes    int    `db:"strikes"`
	LastReason string `db:"last_reason"`
	UpdatedAt  int64  `db:"updated_at"`
}

func (c *sqliteClient) GetStrikes(ctx context.Context, chatID, userID int64) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var strikes int
	err := c.db.GetContext(ctx, &strikes, `SELECT strikes FROM user_strikes WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get strikes for %d in %d: %w", userID, chatID, err)
	}
	return strikes, nil
}

func (c *sqliteClient) GetStrikeRecord(ctx context.Context, chatID, userID int64) (*db.StrikeRecord, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var row strikeRow
	err := c.db.GetContext(ctx, &row, `
		SELECT chat_id, user_id, strikes, COALESCE(last_reason, '') AS last_reason, updated_at
		FROM user_strikes
		WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get strike record for %d in %d: %w", userID, chatID, err)
	}
	return &db.StrikeRecord{
		ChatID:     row.ChatID,
		UserID:     row.UserID,
		Strikes:    row.Strikes,
		LastReason: row.LastReason,
		UpdatedAt:  time.Unix(row.UpdatedAt, 0),
	}, nil
}

func (c *sqliteClient) SetStrikes(ctx context.Context, chatID, userID int64, strikes int, reason string, at time.Time) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO user_strikes (chat_id, user_id, strikes, last_reason, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
			strikes = excluded.strikes,
			last_reason = excluded.last_reason,
			updated_at = excluded.updated_at
	`
	if err := tool.Err(c.db.ExecContext(ctx, query, chatID, userID, strikes, reason, at.Unix())); err != nil {
		return fmt.Errorf("set strikes for %d in %d: %w", userID, chatID, err)
	}
	return nil
}

func (c *sqliteClient) IncrementStrikes(ctx context.Context, chatID, userID int64, reason string, at time.Time) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO user_strikes (chat_id, user_id, strikes, last_reason, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
			strikes = user_strikes.strikes + 1,
			last_reason = excluded.last_reason,
			updated_at = excluded.updated_at
		RETURNING strikes
	`
	var strikes int
	if err := c.db.GetContext(ctx, &strikes, query, chatID, userID, reason, at.Unix()); err != nil {
		return 0, fmt.Errorf("increment strikes for %d in %d: %w", userID, chatID, err)
	}
	return strikes, nil
}

func (c *sqliteClient) Forgive(ctx context.Context, chatID, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := tool.Err(c.db.ExecContext(ctx, `DELETE FROM user_strikes WHERE chat_id = ? AND user_id = ?`, chatID, userID)); err != nil {
		return fmt.Errorf("forgive %d in %d: %w", userID, chatID, err)
	}
	return nil
}
