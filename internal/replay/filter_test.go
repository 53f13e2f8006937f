package replay

import (
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/Hooksend/internal/recorder"
	"github.com/SmitUplenchwar2687/Hooksend/internal/sender"
)

func TestFilter_Match(t *testing.T) {
	a := recorder.Attempt{Timestamp: epoch.Add(time.Minute), Outcome: sender.StatusRejected}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"matching outcome", Filter{Outcomes: []sender.Status{sender.StatusSent, sender.StatusRejected}}, true},
		{"other outcome", Filter{Outcomes: []sender.Status{sender.StatusSent}}, false},
		{"after start", Filter{After: epoch}, true},
		{"after end", Filter{After: epoch.Add(time.Minute)}, false},
		{"before end", Filter{Before: epoch.Add(2 * time.Minute)}, true},
		{"before start", Filter{Before: epoch.Add(time.Minute)}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(a); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}
