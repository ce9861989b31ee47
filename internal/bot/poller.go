package bot

import (
	"context"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/warden/internal/infra"
)

const (
	PollTimeoutSec  = 30
	pollRetryDelay  = 3 * time.Second
	pollMaxRetryGap = time.Minute
)

type updatesBot interface {
	Request(c api.Chattable) (*api.APIResponse, error)
	GetUpdates(config api.UpdateConfig) ([]api.Update, error)
}

type dispatcher interface {
	Dispatch(u api.Update) error
}

// Poller receives updates with long polling.
type Poller struct {
	bot        updatesBot
	dispatcher dispatcher
	retryDelay time.Duration

	runMutex  sync.Mutex
	started   bool
	runCancel context.CancelFunc
	workersWg sync.WaitGroup
}

func NewPoller(bot updatesBot, d dispatcher) *Poller {
	return &Poller{
		bot:        bot,
		dispatcher: d,
		retryDelay: pollRetryDelay,
	}
}

func (p *Poller) Start(ctx context.Context) error {
	p.runMutex.Lock()
	defer p.runMutex.Unlock()
	if p.started {
		return nil
	}

	// getUpdates is rejected while a webhook is registered.
	if _, err := p.bot.Request(api.DeleteWebhookConfig{}); err != nil {
		p.getLogEntry().WithError(err).Warn("cant delete webhook")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.runCancel = cancel
	p.workersWg.Add(1)
	go func() {
		defer p.workersWg.Done()
		infra.RunRecoverable(-1, "poll_updates", func() {
			p.poll(runCtx)
		})
	}()

	p.started = true
	return nil
}

func (p *Poller) Stop(ctx context.Context) error {
	p.runMutex.Lock()
	if !p.started {
		p.runMutex.Unlock()
		return nil
	}
	p.started = false
	cancel := p.runCancel
	p.runMutex.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.workersWg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (p *Poller) poll(ctx context.Context) {
	config := api.NewUpdate(0)
	config.Timeout = PollTimeoutSec
	delay := p.retryDelay

	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := p.bot.GetUpdates(config)
		if err != nil {
			p.getLogEntry().WithError(err).WithField("retry_in", delay).Warn("bot api get updates error")
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = min(delay*2, pollMaxRetryGap)
			continue
		}
		delay = p.retryDelay

		for _, update := range updates {
			if update.UpdateID < config.Offset {
				continue
			}
			config.Offset = update.UpdateID + 1
			if err := p.dispatcher.Dispatch(update); err != nil {
				p.getLogEntry().WithError(err).Warn("no more updates")
				return
			}
		}
	}
}

func (p *Poller) getLogEntry() *log.Entry {
	return log.WithField("object", "Poller")
}
