package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/warden/internal/config"
	"github.com/iamwavecut/warden/internal/db"
	"github.com/iamwavecut/warden/internal/moderation"
)

type serviceStub struct {
	store *storeStub
	cfg   *config.Config
	lang  string
}

func newServiceStub() *serviceStub {
	return &serviceStub{
		store: newStoreStub(),
		lang:  "en",
		cfg: &config.Config{
			OwnerIDs: []int64{1000},
			Greeting: config.Greeting{
				DefaultWelcome: "Welcome!",
				DefaultRules:   "Be nice.",
			},
		},
	}
}

func (s *serviceStub) GetDB() db.Client                                     { return s.store }
func (s *serviceStub) GetConfig() *config.Config                            { return s.cfg }
func (s *serviceStub) GetLanguage(context.Context, int64, *api.User) string { return s.lang }

type storeStub struct {
	mu       sync.Mutex
	records  map[[2]int64]*db.StrikeRecord
	settings map[int64]*db.ChatSettings
	err      error
}

func newStoreStub() *storeStub {
	return &storeStub{
		records:  make(map[[2]int64]*db.StrikeRecord),
		settings: make(map[int64]*db.ChatSettings),
	}
}

func (s *storeStub) GetStrikes(_ context.Context, chatID, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.records[[2]int64{chatID, userID}]; r != nil {
		return r.Strikes, nil
	}
	return 0, s.err
}

func (s *storeStub) SetStrikes(_ context.Context, chatID, userID int64, strikes int, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records[[2]int64{chatID, userID}] = &db.StrikeRecord{ChatID: chatID, UserID: userID, Strikes: strikes, LastReason: reason, UpdatedAt: at}
	return nil
}

func (s *storeStub) IncrementStrikes(_ context.Context, chatID, userID int64, reason string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	key := [2]int64{chatID, userID}
	strikes := 1
	if r := s.records[key]; r != nil {
		strikes = r.Strikes + 1
	}
	s.records[key] = &db.StrikeRecord{ChatID: chatID, UserID: userID, Strikes: strikes, LastReason: reason, UpdatedAt: at}
	return strikes, nil
}

func (s *storeStub) Forgive(_ context.Context, chatID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.records, [2]int64{chatID, userID})
	return nil
}

func (s *storeStub) GetStrikeRecord(_ context.Context, chatID, userID int64) (*db.StrikeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.records[[2]int64{chatID, userID}], nil
}

func (s *storeStub) GetChatSettings(_ context.Context, chatID int64) (*db.ChatSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if settings := s.settings[chatID]; settings != nil {
		return settings, nil
	}
	return &db.ChatSettings{ChatID: chatID}, nil
}

func (s *storeStub) SetWelcome(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	settings := s.settingsFor(chatID)
	settings.WelcomeText = &text
	return nil
}

func (s *storeStub) SetRules(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	settings := s.settingsFor(chatID)
	settings.RulesText = &text
	return nil
}

func (s *storeStub) settingsFor(chatID int64) *db.ChatSettings {
	settings := s.settings[chatID]
	if settings == nil {
		settings = &db.ChatSettings{ChatID: chatID}
		s.settings[chatID] = settings
	}
	return settings
}

func (s *storeStub) Close() error { return nil }

type sentMessage struct {
	chatID  int64
	replyTo int
	text    string
}

type opsStub struct {
	mu sync.Mutex

	members      map[int64]*api.ChatMember
	memberErr    error
	enforceErr   error
	sent         []sentMessage
	unrestricted []int64
	banned       []int64
}

func newOpsStub() *opsStub {
	return &opsStub{members: make(map[int64]*api.ChatMember)}
}

func (o *opsStub) SendMessage(_ context.Context, chatID int64, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (o *opsStub) ReplyMessage(_ context.Context, chatID int64, replyTo int, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, sentMessage{chatID: chatID, replyTo: replyTo, text: text})
	return nil
}

func (o *opsStub) GetChatMember(_ context.Context, _ int64, userID int64) (*api.ChatMember, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.memberErr != nil {
		return nil, o.memberErr
	}
	if member, ok := o.members[userID]; ok {
		return member, nil
	}
	return &api.ChatMember{Status: "member"}, nil
}

func (o *opsStub) UnrestrictChatMember(_ context.Context, _ int64, userID int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.enforceErr != nil {
		return o.enforceErr
	}
	o.unrestricted = append(o.unrestricted, userID)
	return nil
}

func (o *opsStub) BanChatMember(_ context.Context, _ int64, userID int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.enforceErr != nil {
		return o.enforceErr
	}
	o.banned = append(o.banned, userID)
	return nil
}

func (o *opsStub) lastText(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		t.Fatalf("expected a message to be sent")
	}
	return o.sent[len(o.sent)-1].text
}

type inspectorStub struct {
	outcome *moderation.Outcome
	err     error
	got     []moderation.InboundMessage
}

func (i *inspectorStub) Inspect(_ context.Context, msg moderation.InboundMessage) (*moderation.Outcome, error) {
	i.got = append(i.got, msg)
	return i.outcome, i.err
}

var errStub = errors.New("stub failure")

type updateSpec struct {
	chatID     int64
	chatType   string
	userID     int64
	messageID  int
	text       string
	caption    string
	replyTo    int64
	newMembers bool
	edited     bool
}

// buildUpdate assembles an update the way Telegram delivers it.
func buildUpdate(t *testing.T, spec updateSpec) (*api.Update, *api.Chat, *api.User) {
	t.Helper()

	if spec.chatType == "" {
		spec.chatType = "supergroup"
	}
	message := map[string]any{
		"message_id": spec.messageID,
		"date":       time.Now().Unix(),
		"chat":       map[string]any{"id": spec.chatID, "type": spec.chatType},
		"from":       map[string]any{"id": spec.userID, "is_bot": false, "first_name": "Test"},
	}
	if spec.text != "" {
		message["text"] = spec.text
		if strings.HasPrefix(spec.text, "/") {
			command := strings.SplitN(spec.text, " ", 2)[0]
			message["entities"] = []map[string]any{{"type": "bot_command", "offset": 0, "length": len(command)}}
		}
	}
	if spec.caption != "" {
		message["caption"] = spec.caption
	}
	if spec.replyTo != 0 {
		message["reply_to_message"] = map[string]any{
			"message_id": 1,
			"date":       time.Now().Unix(),
			"chat":       map[string]any{"id": spec.chatID, "type": spec.chatType},
			"from":       map[string]any{"id": spec.replyTo, "is_bot": false, "first_name": "Target"},
			"text":       "offending message",
		}
	}
	if spec.newMembers {
		message["new_chat_members"] = []map[string]any{{"id": spec.userID, "is_bot": false, "first_name": "Newbie"}}
	}

	field := "message"
	if spec.edited {
		message["edit_date"] = time.Now().Unix()
		field = "edited_message"
	}
	raw, err := json.Marshal(map[string]any{"update_id": 1, field: message})
	if err != nil {
		t.Fatalf("marshal update: %v", err)
	}
	var u api.Update
	if err := json.Unmarshal(raw, &u); err != nil {
		t.Fatalf("unmarshal update: %v", err)
	}
	return &u, u.FromChat(), u.SentFrom()
}

func mustContain(t *testing.T, text string, parts ...string) {
	t.Helper()
	for _, part := range parts {
		if !strings.Contains(text, part) {
			t.Fatalf("expected %q in %q", part, text)
		}
	}
}
