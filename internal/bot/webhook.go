package bot

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
)

type webhookBot interface {
	Request(c api.Chattable) (*api.APIResponse, error)
	HandleUpdate(r *http.Request) (*api.Update, error)
}

// WebhookServer registers the webhook and receives updates over HTTP.
type WebhookServer struct {
	bot        webhookBot
	dispatcher dispatcher
	publicURL  string
	path       string
	listenAddr string

	runMutex sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewWebhookServer serves updates on /<secret>; the public webhook URL is publicURL/<secret>.
func NewWebhookServer(bot webhookBot, d dispatcher, publicURL, secret, listenAddr string) *WebhookServer {
	return &WebhookServer{
		bot:        bot,
		dispatcher: d,
		publicURL:  strings.TrimRight(publicURL, "/") + "/" + secret,
		path:       "/" + secret,
		listenAddr: listenAddr,
	}
}

func (w *WebhookServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(w.path, func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		update, err := w.bot.HandleUpdate(r)
		if err != nil {
			w.getLogEntry().WithError(err).Debug("cant decode update")
			rw.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := w.dispatcher.Dispatch(*update); err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusOK)
	})
	return mux
}

func (w *WebhookServer) Start(ctx context.Context) error {
	w.runMutex.Lock()
	defer w.runMutex.Unlock()
	if w.server != nil {
		return nil
	}

	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", w.listenAddr)
	if err != nil {
		return fmt.Errorf("listen webhook: %w", err)
	}

	wh, err := api.NewWebhook(w.publicURL)
	if err != nil {
		_ = listener.Close()
		return fmt.Errorf("build webhook: %w", err)
	}
	wh.DropPendingUpdates = true
	if _, err := w.bot.Request(wh); err != nil {
		_ = listener.Close()
		return fmt.Errorf("set webhook: %w", err)
	}

	w.listener = listener
	w.server = &http.Server{
		Handler:           w.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	w.done = make(chan struct{})

	server, done := w.server, w.done
	go func() {
		defer close(done)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.getLogEntry().WithError(err).Error("webhook server failed")
		}
	}()
	w.getLogEntry().WithField("addr", listener.Addr().String()).Info("webhook server started")
	return nil
}

func (w *WebhookServer) Stop(ctx context.Context) error {
	w.runMutex.Lock()
	server, done := w.server, w.done
	w.server = nil
	w.runMutex.Unlock()
	if server == nil {
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *WebhookServer) getLogEntry() *log.Entry {
	return log.WithField("object", "WebhookServer")
}
