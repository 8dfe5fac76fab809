package audit

import (
	"time"

	"github.com/rs/zerolog"
)

// Actions recorded by the identity server.
const (
	ActionRegister       = "user.register"
	ActionLogin          = "user.login"
	ActionLoginFailed    = "user.login_failed"
	ActionLogout         = "user.logout"
	ActionTokenRefresh   = "token.refresh"
	ActionSessionRevoked = "session.revoked"
	ActionCodeIssued     = "oauth.code_issued"
	ActionCodeExchanged  = "oauth.code_exchanged"
	ActionKeyRotated     = "keys.rotated"
)

// Event is a single audit record.
type Event struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id,omitempty"` // empty for failed logins with unknown users
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder persists audit events. Recording is a side effect of the calling
// operation: failures are logged by callers, never propagated.
type Recorder interface {
	Record(event Event) error
}

// LogRecorder writes audit events to a structured logger. Used on its own in
// development, or alongside a persistent recorder.
type LogRecorder struct {
	logger zerolog.Logger
}

func NewLogRecorder(logger zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(event Event) error {
	r.logger.Info().
		Str("action", event.Action).
		Str("user_id", event.UserID).
		Str("ip", event.IPAddress).
		Str("details", event.Details).
		Time("at", event.CreatedAt).
		Msg("audit")
	return nil
}

// NopRecorder discards events. Useful in tests.
type NopRecorder struct{}

func (NopRecorder) Record(Event) error { return nil }

type teeRecorder struct {
	recorders []Recorder
}

// Tee fans each event out to every recorder, returning the first error after
// all have been attempted.
func Tee(recorders ...Recorder) Recorder {
	return &teeRecorder{recorders: recorders}
}

func (t *teeRecorder) Record(event Event) error {
	var firstErr error
	for _, recorder := range t.recorders {
		if err := recorder.Record(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
