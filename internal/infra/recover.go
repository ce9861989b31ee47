package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// RunRecoverable runs f and restarts it in place after a panic. A negative maxPanics
// means unlimited restarts; once the limit is spent the process exits.
func RunRecoverable(maxPanics int, id string, f func()) {
	for !runOnce(id, f) {
		if maxPanics == 0 {
			log.Fatalf(`Panics limit exceeded for job "%s", exiting`, id)
			return
		}
		if maxPanics > 0 {
			maxPanics--
			log.Debugf(`Recovering job "%s" with max panics left: %d`, id, maxPanics)
			continue
		}
		log.Debugf(`Recovering job "%s"`, id)
	}
}

func runOnce(id string, f func()) (finished bool) {
	defer func() {
		if err := recover(); err != nil {
			log.Errorf(`Job "%s" panics with message: %s, %s`, id, err, identifyPanic())
			finished = false
		}
	}()
	f()
	return true
}

// LogPanic swallows a panic of the calling goroutine. It must be deferred directly.
func LogPanic(id string) {
	if err := recover(); err != nil {
		log.Errorf(`Job "%s" panics with message: %s, %s`, id, err, identifyPanic())
	}
}

func identifyPanic() string {
	var name, file string
	var line int
	var pc [16]uintptr

	n := runtime.Callers(3, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(pc)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			break
		}
	}

	switch {
	case name != "":
		return fmt.Sprintf("%v:%v", name, line)
	case file != "":
		return fmt.Sprintf("%v:%v", file, line)
	}

	return fmt.Sprintf("pc:%x", pc)
}
