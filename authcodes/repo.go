package authcodes

import (
	"time"

	"github.com/pkg/errors"
)

// ErrNotConsumable is returned when a code does not exist, has already been
// consumed, or has expired. Callers cannot distinguish the three cases.
var ErrNotConsumable = errors.New("authorization code invalid, used or expired")

// Repo is the persistence contract for authorization codes. ConsumeUnused
// must be a single atomic lookup-and-mark-used so that no code is ever read
// as unused by two concurrent consumers.
type Repo interface {
	Insert(code *Code) error

	// ConsumeUnused flips used=false to used=true on the code row, filtered
	// by expires_at > now, and returns the consumed code. Returns
	// ErrNotConsumable when no row matched.
	ConsumeUnused(codeString string, now time.Time) (*Code, error)
}
