package replay

import (
	"slices"
	"time"

	"github.com/SmitUplenchwar2687/Hooksend/internal/recorder"
	"github.com/SmitUplenchwar2687/Hooksend/internal/sender"
)

// Filter selects attempts for replay.
type Filter struct {
	Outcomes []sender.Status // Only attempts originally ending this way (empty = all)
	After    time.Time       // Only attempts after this time (zero = no limit)
	Before   time.Time       // Only attempts before this time (zero = no limit)
}

// Match returns true if the attempt passes the filter.
func (f *Filter) Match(a recorder.Attempt) bool {
	if len(f.Outcomes) > 0 && !slices.Contains(f.Outcomes, a.Outcome) {
		return false
	}
	if !f.After.IsZero() && !a.Timestamp.After(f.After) {
		return false
	}
	if !f.Before.IsZero() && !a.Timestamp.Before(f.Before) {
		return false
	}
	return true
}
