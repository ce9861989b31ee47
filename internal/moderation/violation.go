package moderation

// Violation is the kind of abuse detected in a single message.
type Violation int

const (
	ViolationNone Violation = iota
	ViolationFlood
	ViolationRepeat
	ViolationLink
)

const (
	ReasonFlood = "Flood/Repeated messages"
	ReasonLink  = "Link spam / unauthorized link"
)

func (v Violation) Detected() bool {
	return v != ViolationNone
}

func (v Violation) String() string {
	switch v {
	case ViolationFlood:
		return "flood"
	case ViolationRepeat:
		return "repeat"
	case ViolationLink:
		return "link"
	default:
		return "none"
	}
}

// Reason is the human readable label persisted with the strike. Flood and repeat share one.
func (v Violation) Reason() string {
	switch v {
	case ViolationFlood, ViolationRepeat:
		return ReasonFlood
	case ViolationLink:
		return ReasonLink
	default:
		return ""
	}
}
