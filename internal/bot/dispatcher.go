package bot

import (
	"context"
	"errors"
	"sync"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/warden/internal/infra"
)

var ErrDispatcherStopped = errors.New("dispatcher is not running")

type processor interface {
	Process(ctx context.Context, u *api.Update) error
}

// Dispatcher hands updates to a bounded pool of workers. Dispatch blocks while the pool
// is saturated.
type Dispatcher struct {
	processor processor
	workers   int

	mu        sync.RWMutex
	group     *errgroup.Group
	runCtx    context.Context
	runCancel context.CancelFunc
}

func NewDispatcher(p processor, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		processor: p,
		workers:   workers,
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.group != nil {
		return nil
	}

	d.runCtx, d.runCancel = context.WithCancel(context.WithoutCancel(ctx))
	d.group = &errgroup.Group{}
	d.group.SetLimit(d.workers)
	return nil
}

// Dispatch schedules processing of the update.
func (d *Dispatcher) Dispatch(u api.Update) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.group == nil {
		return ErrDispatcherStopped
	}

	runCtx := d.runCtx
	d.group.Go(func() error {
		defer infra.LogPanic("process_update")
		if err := d.processor.Process(runCtx, &u); err != nil {
			d.getLogEntry().WithError(err).WithField("update_id", u.UpdateID).Error("cant process update")
		}
		return nil
	})
	return nil
}

// Stop waits for in-flight updates; when ctx expires first they are canceled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	group, cancel := d.group, d.runCancel
	d.group = nil
	d.mu.Unlock()
	if group == nil {
		return nil
	}
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = group.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

func (d *Dispatcher) getLogEntry() *log.Entry {
	return log.WithField("object", "Dispatcher")
}
