package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
)

type dispatcherStub struct {
	mu      sync.Mutex
	updates []api.Update
	err     error
}

func (d *dispatcherStub) Dispatch(u api.Update) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.updates = append(d.updates, u)
	return nil
}

func (d *dispatcherStub) ids() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]int, 0, len(d.updates))
	for _, u := range d.updates {
		ids = append(ids, u.UpdateID)
	}
	return ids
}

type pollingBotStub struct {
	mu       sync.Mutex
	calls    int
	offsets  []int
	requests []api.Chattable
}

func (b *pollingBotStub) Request(c api.Chattable) (*api.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, c)
	return &api.APIResponse{Ok: true}, nil
}

func (b *pollingBotStub) GetUpdates(config api.UpdateConfig) ([]api.Update, error) {
	b.mu.Lock()
	b.calls++
	call := b.calls
	b.offsets = append(b.offsets, config.Offset)
	b.mu.Unlock()

	switch call {
	case 1:
		return []api.Update{{UpdateID: 10}, {UpdateID: 11}}, nil
	case 2:
		return nil, errors.New("bad gateway")
	case 3:
		return []api.Update{{UpdateID: 11}, {UpdateID: 12}}, nil
	default:
		time.Sleep(5 * time.Millisecond)
		return nil, nil
	}
}

func TestPollerDispatchesUpdatesAndRetries(t *testing.T) {
	t.Parallel()

	bot := &pollingBotStub{}
	d := &dispatcherStub{}
	p := NewPoller(bot, d)
	p.retryDelay = time.Millisecond

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(d.ids()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	ids := d.ids()
	if len(ids) != 3 || ids[0] != 10 || ids[1] != 11 || ids[2] != 12 {
		t.Fatalf("expected updates 10, 11, 12 exactly once, got %v", ids)
	}

	bot.mu.Lock()
	defer bot.mu.Unlock()
	if len(bot.requests) != 1 {
		t.Fatalf("expected webhook removal before polling, got %d requests", len(bot.requests))
	}
	if _, ok := bot.requests[0].(api.DeleteWebhookConfig); !ok {
		t.Fatalf("unexpected request %T", bot.requests[0])
	}
	if bot.offsets[2] != 12 {
		t.Fatalf("expected offset to advance past handled updates, got %v", bot.offsets)
	}
}

type webhookBotStub struct {
	mu       sync.Mutex
	requests []api.Chattable
}

func (b *webhookBotStub) Request(c api.Chattable) (*api.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, c)
	return &api.APIResponse{Ok: true}, nil
}

func (b *webhookBotStub) HandleUpdate(r *http.Request) (*api.Update, error) {
	var u api.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func TestWebhookHandlerDispatchesUpdates(t *testing.T) {
	t.Parallel()

	d := &dispatcherStub{}
	w := NewWebhookServer(&webhookBotStub{}, d, "https://bot.example.com/", "secret", "127.0.0.1:0")
	handler := w.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "valid", method: http.MethodPost, path: "/secret", body: `{"update_id": 7}`, want: http.StatusOK},
		{name: "malformed", method: http.MethodPost, path: "/secret", body: `{`, want: http.StatusBadRequest},
		{name: "wrong-method", method: http.MethodGet, path: "/secret", want: http.StatusMethodNotAllowed},
		{name: "wrong-path", method: http.MethodPost, path: "/other", body: `{"update_id": 8}`, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("%s: expected status %d, got %d", tt.name, tt.want, rec.Code)
		}
	}

	if ids := d.ids(); len(ids) != 1 || ids[0] != 7 {
		t.Fatalf("expected only update 7 to be dispatched, got %v", ids)
	}
}

func TestWebhookServerRegistersWebhook(t *testing.T) {
	t.Parallel()

	bot := &webhookBotStub{}
	w := NewWebhookServer(bot, &dispatcherStub{}, "https://bot.example.com", "secret", "127.0.0.1:0")

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if len(bot.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(bot.requests))
	}
	wh, ok := bot.requests[0].(api.WebhookConfig)
	if !ok {
		t.Fatalf("unexpected request %T", bot.requests[0])
	}
	if !wh.DropPendingUpdates {
		t.Fatalf("expected pending updates to be dropped")
	}
	if got := wh.URL.String(); got != "https://bot.example.com/secret" {
		t.Fatalf("unexpected webhook url: %s", got)
	}
}
