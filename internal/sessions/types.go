package sessions

import "time"

// ResetMode selects which reset policy (or both) applies to a session.
type ResetMode string

const (
	ResetDaily ResetMode = "daily"
	ResetIdle  ResetMode = "idle"
	ResetBoth  ResetMode = "both"
)

// Policy configures the reset behaviour (spec.md §4.2, §6).
type Policy struct {
	Mode        ResetMode
	ResetAtHour int // local hour, daily mode
	IdleMinutes int // idle mode
}

// Meta is the durable, atomically-snapshotted metadata for one session
// (spec.md §3 SessionMeta). It excludes History, which lives only in the
// per-session transcript file and the in-memory Session.
type Meta struct {
	SessionID      string    `json:"session_id"`
	Key            string    `json:"key"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	TurnCount      int       `json:"turn_count"`
	InputTokens    int64     `json:"input_tokens"`
	OutputTokens   int64     `json:"output_tokens"`
	Channel        string    `json:"channel,omitempty"`
	DisplayName    string    `json:"display_name,omitempty"`
	LastResponseID string    `json:"last_response_id,omitempty"`
}
