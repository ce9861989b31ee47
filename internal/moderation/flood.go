package moderation

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/warden/internal/observability"
	"github.com/iamwavecut/warden/internal/utils/text"
)

const (
	recentTextsCapacity = 10

	defaultIdleTTL       = 10 * time.Minute
	defaultSweepInterval = time.Minute
)

type FloodConfig struct {
	Window      time.Duration
	MaxMessages int
	RepeatMax   int

	// IdleTTL is how long an untouched window survives before the reaper drops it.
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

type windowKey struct {
	chatID int64
	userID int64
}

// ViolationWindow is the recent activity of one user in one chat.
type ViolationWindow struct {
	timestamps  []time.Time
	recentTexts []string
	lastSeen    time.Time
}

// FloodTracker keeps a sliding window per (chat, user) and decides flood and repeat
// violations. All windows live behind one mutex; nothing slow happens while it is held.
type FloodTracker struct {
	cfg FloodConfig

	mu      sync.Mutex
	windows map[windowKey]*ViolationWindow

	runMutex  sync.Mutex
	started   bool
	runCancel context.CancelFunc
	workersWg sync.WaitGroup

	clock func() time.Time
}

func NewFloodTracker(cfg FloodConfig) *FloodTracker {
	if cfg.IdleTTL < cfg.Window {
		cfg.IdleTTL = max(cfg.Window, defaultIdleTTL)
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	return &FloodTracker{
		cfg:     cfg,
		windows: make(map[windowKey]*ViolationWindow),
		clock:   time.Now,
	}
}

// CheckViolation records a message at now and reports whether it floods or repeats.
// The flood check runs first and short-circuits, so a flooding message is never also
// counted as a repeat.
func (f *FloodTracker) CheckViolation(chatID, userID int64, content string, now time.Time) Violation {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := windowKey{chatID: chatID, userID: userID}
	w := f.windows[key]
	if w == nil {
		w = &ViolationWindow{}
		f.windows[key] = w
	}
	if now.After(w.lastSeen) {
		w.lastSeen = now
	}

	kept := w.timestamps[:0]
	for _, t := range w.timestamps {
		if now.Sub(t) <= f.cfg.Window {
			kept = append(kept, t)
		}
	}
	w.timestamps = append(kept, now)

	if len(w.timestamps) > f.cfg.MaxMessages {
		return ViolationFlood
	}

	normalized := text.Normalize(content)
	if normalized == "" {
		return ViolationNone
	}
	w.recentTexts = append(w.recentTexts, normalized)
	if overflow := len(w.recentTexts) - recentTextsCapacity; overflow > 0 {
		w.recentTexts = append(w.recentTexts[:0], w.recentTexts[overflow:]...)
	}

	occurrences := 0
	for _, t := range w.recentTexts {
		if t == normalized {
			occurrences++
		}
	}
	if occurrences >= f.cfg.RepeatMax {
		return ViolationRepeat
	}
	return ViolationNone
}

// Len returns the number of tracked (chat, user) windows.
func (f *FloodTracker) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

// Sweep drops windows that have been idle for longer than IdleTTL and have no timestamp
// left inside the flood window. It returns the number of removed windows.
func (f *FloodTracker) Sweep(now time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	for key, w := range f.windows {
		if now.Sub(w.lastSeen) <= f.cfg.IdleTTL {
			continue
		}
		if w.hasActivitySince(now.Add(-f.cfg.Window)) {
			continue
		}
		delete(f.windows, key)
		removed++
	}
	return removed
}

func (w *ViolationWindow) hasActivitySince(cutoff time.Time) bool {
	for _, t := range w.timestamps {
		if !t.Before(cutoff) {
			return true
		}
	}
	return false
}

func (f *FloodTracker) Start(ctx context.Context) error {
	f.runMutex.Lock()
	defer f.runMutex.Unlock()
	if f.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.runCancel = cancel

	f.workersWg.Add(1)
	go func() {
		defer f.workersWg.Done()
		ticker := time.NewTicker(f.cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				removed := f.Sweep(f.clock())
				tracked := f.Len()
				observability.SetTrackedWindows(tracked)
				if removed > 0 {
					f.getLogEntry().WithFields(log.Fields{
						"removed": removed,
						"tracked": tracked,
					}).Debug("swept idle windows")
				}
			}
		}
	}()

	f.started = true
	return nil
}

func (f *FloodTracker) Stop(ctx context.Context) error {
	f.runMutex.Lock()
	if !f.started {
		f.runMutex.Unlock()
		return nil
	}
	f.started = false
	cancel := f.runCancel
	f.runMutex.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.workersWg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (f *FloodTracker) getLogEntry() *log.Entry {
	return log.WithField("object", "FloodTracker")
}
