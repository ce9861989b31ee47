package infra

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

const checkExecInterval = 5 * time.Second

var statExecutable = func() (time.Time, error) {
	exeFilename, err := os.Executable()
	if err != nil {
		return time.Time{}, err
	}
	stat, err := os.Stat(exeFilename)
	if err != nil {
		return time.Time{}, err
	}
	return stat.ModTime(), nil
}

// WatchExecutable closes the returned channel once the running binary is replaced on disk,
// so a supervisor can restart the bot with the new build.
func WatchExecutable(ctx context.Context) <-chan struct{} {
	return watchExecutable(ctx, checkExecInterval, statExecutable)
}

func watchExecutable(ctx context.Context, interval time.Duration, stat func() (time.Time, error)) <-chan struct{} {
	ch := make(chan struct{})
	originalTime, err := stat()
	if err != nil {
		log.WithError(err).Warn("cant stat executable, monitor disabled")
		return ch
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				modTime, err := stat()
				if err != nil {
					log.WithError(err).Warn("cant stat executable for monitor tick")
					continue
				}
				if !originalTime.Equal(modTime) {
					close(ch)
					return
				}
			}
		}
	}()
	return ch
}
