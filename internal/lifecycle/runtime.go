package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runtime starts components in registration order and stops them in reverse.
type Runtime struct {
	components []Component
	started    []Component
}

func NewRuntime(components ...Component) *Runtime {
	r := &Runtime{}
	for _, component := range components {
		r.Register(component)
	}
	return r
}

func (r *Runtime) Register(component Component) {
	if component == nil {
		return
	}
	r.components = append(r.components, component)
}

func (r *Runtime) Start(ctx context.Context) error {
	r.started = make([]Component, 0, len(r.components))
	for _, component := range r.components {
		if err := component.Start(ctx); err != nil {
			_ = stopComponents(ctx, r.started)
			r.started = nil
			return fmt.Errorf("start component: %w", err)
		}
		r.started = append(r.started, component)
	}
	return nil
}

// Stop stops every started component, collecting all errors.
func (r *Runtime) Stop(ctx context.Context) error {
	started := r.started
	r.started = nil
	return stopComponents(ctx, started)
}

// Run starts the runtime, blocks until ctx is done and then stops it within stopTimeout.
func (r *Runtime) Run(ctx context.Context, stopTimeout time.Duration) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	log.WithField("object", "Runtime").WithField("components", len(r.started)).Info("started")

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	err := r.Stop(stopCtx)
	log.WithField("object", "Runtime").Info("stopped")
	return err
}

func stopComponents(ctx context.Context, components []Component) error {
	var stopErr error
	for i := len(components) - 1; i >= 0; i-- {
		if err := components[i].Stop(ctx); err != nil {
			stopErr = errors.Join(stopErr, fmt.Errorf("stop component: %w", err))
		}
	}
	return stopErr
}

type stopFunc func(ctx context.Context) error

func (f stopFunc) Start(context.Context) error { return nil }

func (f stopFunc) Stop(ctx context.Context) error { return f(ctx) }

// OnStop wraps a shutdown function, such as closing a store, as a component.
func OnStop(f func(ctx context.Context) error) Component {
	return stopFunc(f)
}
