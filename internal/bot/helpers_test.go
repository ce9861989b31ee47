package bot

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
)

func messageUpdate(t *testing.T, updateID int, chatID, userID int64, text string, at time.Time) api.Update {
	t.Helper()

	raw := fmt.Sprintf(`{
		"update_id": %d,
		"message": {
			"message_id": 1,
			"date": %d,
			"chat": {"id": %d, "type": "supergroup"},
			"from": {"id": %d, "is_bot": false, "first_name": "Test"},
			"text": %q
		}
	}`, updateID, at.Unix(), chatID, userID, text)

	var u api.Update
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("unmarshal update: %v", err)
	}
	return u
}
