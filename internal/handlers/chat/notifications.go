package handlers

import (
	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/warden/internal/i18n"
	"github.com/iamwavecut/warden/internal/moderation"
)

// renderOutcome builds the chat notice for an enforcement outcome; empty means stay quiet.
func renderOutcome(o *moderation.Outcome, lang string) string {
	if o == nil || o.Action == moderation.ActionNone {
		return ""
	}

	if o.Failed {
		errText := ""
		if o.Err != nil {
			errText = o.Err.Error()
		}
		key := i18n.Get("❌ Could not restrict user. Error: {{ .error }}", lang)
		if o.Action == moderation.ActionBan {
			key = i18n.Get("❌ Could not ban user. Error: {{ .error }}", lang)
		}
		return tool.ExecTemplate(key, map[string]any{"error": errText})
	}

	if o.Action == moderation.ActionBan {
		return tool.ExecTemplate(i18n.Get("⛔ Rule Violation: {{ .reason }}\nUser banned permanently. Strike: {{ .strikes }}", lang), map[string]any{
			"reason":  o.Reason,
			"strikes": o.Strikes,
		})
	}

	duration := i18n.Get("5 days", lang)
	if o.Duration != moderation.FirstMuteDuration {
		duration = i18n.Get("1 month", lang)
	}
	return tool.ExecTemplate(i18n.Get("⚠️ Rule Violation: {{ .reason }}\nUser muted. Strike: {{ .strikes }}\nDuration: {{ .duration }}", lang), map[string]any{
		"reason":   o.Reason,
		"strikes":  o.Strikes,
		"duration": duration,
	})
}
