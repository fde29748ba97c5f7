package domain

import "time"

// Audience selects which contacts a broadcast targets.
type Audience string

const (
	// AudienceSpecial targets the promoted special list.
	AudienceSpecial Audience = "special"
	// AudienceGeneral targets ordinary contacts that opted into greetings.
	AudienceGeneral Audience = "general"
)

// BroadcastJob is a scheduled outbound campaign. Jobs are defined in code
// and instantiated by the scheduler at process start.
type BroadcastJob struct {
	Name     string
	Schedule string // cron expression
	Audience Audience

	// Message resolves the outbound text for a trigger firing at now.
	// Returning false skips the run (used by date-bounded campaigns).
	Message func(now time.Time) (string, bool)
}

// StaticMessage builds a Message func that always sends text.
func StaticMessage(text string) func(time.Time) (string, bool) {
	return func(time.Time) (string, bool) { return text, true }
}
