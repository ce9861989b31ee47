package config

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	colorRed         = 31
	colorYellow      = 33
	colorBlue        = 36
	colorGray        = 37
	colorGreen       = 32
	colorCyan        = 96
	colorLightYellow = 93
	colorLightGreen  = 92

	objectField = "object"
)

// NbFormatter renders single-line colored key=value entries; the "object" field goes first,
// the rest are sorted.
type NbFormatter struct {
	// SkipSource disables the caller lookup.
	SkipSource bool
}

func (f *NbFormatter) Format(entry *log.Entry) ([]byte, error) {
	levelColor := colorBlue
	switch entry.Level {
	case log.DebugLevel, log.TraceLevel:
		levelColor = colorGray
	case log.WarnLevel:
		levelColor = colorYellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		levelColor = colorRed
	}

	var b strings.Builder
	b.WriteString(pair("level", fmt.Sprintf("\x1b[%dm%s\x1b[0m", levelColor, strings.ToUpper(entry.Level.String())[:4])))
	b.WriteString(" ")
	b.WriteString(pair("ts", colored(colorLightYellow, entry.Time.Format("2006-01-02 15:04:05.000"))))

	if !f.SkipSource {
		if _, file, line, ok := runtime.Caller(6); ok {
			b.WriteString(" ")
			b.WriteString(pair("source", colored(colorLightYellow, fmt.Sprintf("%s:%d", file, line))))
		}
	}

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k == objectField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if _, ok := entry.Data[objectField]; ok {
		keys = append([]string{objectField}, keys...)
	}

	for _, k := range keys {
		s := marshalValue(entry.Data[k])
		if s == "" {
			continue
		}
		valueColor := colorCyan
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			valueColor = colorGreen
		} else if strings.HasPrefix(s, "\"") && strings.HasSuffix(s, "\"") {
			valueColor = colorLightYellow
		}
		b.WriteString(" ")
		b.WriteString(pair(k, colored(valueColor, s)))
	}
	b.WriteString(" ")
	b.WriteString(pair("msg", colored(colorLightGreen, strconv.Quote(entry.Message))))

	output := strings.NewReplacer("\r", "\\r", "\n", "\\n").Replace(b.String()) + "\n"
	return []byte(output), nil
}

func marshalValue(val any) string {
	if err, ok := val.(error); ok {
		val = err.Error()
	}
	m, err := json.Marshal(val)
	if err != nil {
		return ""
	}
	return string(m)
}

func pair(key, value string) string {
	return colored(colorCyan, key) + "=" + value
}

func colored(color int, s string) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", color, s)
}
