package moderation

import "github.com/iamwavecut/warden/internal/utils/text"

// LinkDetector flags unauthorized links unless link spam detection is switched off.
type LinkDetector struct {
	Enabled bool
}

func (d LinkDetector) Check(content string) bool {
	if !d.Enabled {
		return false
	}
	return text.HasLink(content)
}
