package infra

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunRecoverableRestartsAfterPanic(t *testing.T) {
	t.Parallel()

	var runs int32
	RunRecoverable(-1, "test", func() {
		if atomic.AddInt32(&runs, 1) < 3 {
			panic("boom")
		}
	})
	if got := atomic.LoadInt32(&runs); got != 3 {
		t.Fatalf("expected 3 runs, got %d", got)
	}
}

func TestLogPanicSwallowsPanic(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer LogPanic("test")
		panic("boom")
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("goroutine did not finish")
	}
}

func TestWatchExecutableSignalsOnChange(t *testing.T) {
	t.Parallel()

	var calls int32
	stat := func() (time.Time, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return time.Unix(100, 0), nil
		}
		return time.Unix(200, 0), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	select {
	case <-watchExecutable(ctx, time.Millisecond, stat):
	case <-time.After(2 * time.Second):
		t.Fatalf("expected change to be detected")
	}
}

func TestWatchExecutableDisabledOnStatError(t *testing.T) {
	t.Parallel()

	ch := watchExecutable(context.Background(), time.Millisecond, func() (time.Time, error) {
		return time.Time{}, errors.New("no such file")
	})

	select {
	case <-ch:
		t.Fatalf("expected channel to stay open")
	case <-time.After(20 * time.Millisecond):
	}
}
