// Package replay re-runs recorded send attempts through a fresh core on
// virtual time, so limits and content rules can be tuned against real
// traffic without waiting or sending anything.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Hooksend/internal/app"
	"github.com/SmitUplenchwar2687/Hooksend/internal/clock"
	"github.com/SmitUplenchwar2687/Hooksend/internal/config"
	"github.com/SmitUplenchwar2687/Hooksend/internal/draft"
	"github.com/SmitUplenchwar2687/Hooksend/internal/recorder"
	"github.com/SmitUplenchwar2687/Hooksend/internal/sender"
	"github.com/SmitUplenchwar2687/Hooksend/internal/store"
	"github.com/SmitUplenchwar2687/Hooksend/internal/validate"
	"github.com/SmitUplenchwar2687/Hooksend/internal/webhook"
)

// Replayer replays recorded attempts at a configurable speed.
type Replayer struct {
	cfg      config.Config
	logger   *zap.Logger
	attempts []recorder.Attempt
	filter   Filter
	speed    float64 // 1.0 = real-time, 10.0 = 10x, 0 = instant
}

// Result captures the outcome of replaying a single attempt.
type Result struct {
	Attempt recorder.Attempt `json:"attempt"`
	Outcome sender.Outcome   `json:"outcome"`
	Time    time.Time        `json:"time"` // virtual time of the send
}

// Changed reports whether the replayed outcome differs from the recorded one.
func (r Result) Changed() bool {
	return r.Attempt.Outcome != "" && r.Attempt.Outcome != r.Outcome.Status
}

// Summary aggregates replay statistics.
type Summary struct {
	TotalRecords int                   `json:"total_records"`
	Filtered     int                   `json:"filtered"`
	Replayed     int                   `json:"replayed"`
	Changed      int                   `json:"changed"`
	PerStatus    map[sender.Status]int `json:"per_status"`
	Duration     time.Duration         `json:"duration"`      // virtual time span
	WallDuration time.Duration         `json:"wall_duration"` // actual wall clock time
	Violations   int                   `json:"violations"`    // at the end of the replay
}

// New creates a replayer. Limits and validation rules come from cfg; the
// store is always a private in-memory one.
func New(cfg config.Config, logger *zap.Logger, speed float64, filter Filter) *Replayer {
	if speed < 0 {
		speed = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Store.Backend = store.BackendMemory
	return &Replayer{
		cfg:    cfg,
		logger: logger,
		speed:  speed,
		filter: filter,
	}
}

// Load reads attempts from a JSON reader.
func (r *Replayer) Load(reader io.Reader) error {
	attempts, err := recorder.LoadJSON(reader)
	if err != nil {
		return fmt.Errorf("loading attempts: %w", err)
	}
	r.attempts = attempts
	return nil
}

// LoadAttempts sets the attempts directly.
func (r *Replayer) LoadAttempts(attempts []recorder.Attempt) {
	r.attempts = make([]recorder.Attempt, len(attempts))
	copy(r.attempts, attempts)
}

// Run replays all loaded attempts in timestamp order. Each attempt is rebuilt
// from its recorded shape and validated against the current rules. Verdicts
// on text and images, which are not recorded, are taken from the recording.
// Each delivery answers the way the webhook originally did; attempts never
// delivered before are answered with success. cb, if set, sees every result.
func (r *Replayer) Run(ctx context.Context, cb func(Result)) (*Summary, error) {
	if len(r.attempts) == 0 {
		return nil, fmt.Errorf("no attempts loaded")
	}

	sorted := make([]recorder.Attempt, len(r.attempts))
	copy(sorted, r.attempts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var filtered []recorder.Attempt
	for _, a := range sorted {
		if r.filter.Match(a) {
			filtered = append(filtered, a)
		}
	}

	summary := &Summary{
		TotalRecords: len(sorted),
		Filtered:     len(filtered),
		PerStatus:    make(map[sender.Status]int),
	}
	if len(filtered) == 0 {
		return summary, nil
	}

	vc := clock.NewVirtualClock(filtered[0].Timestamp)
	script := &scripted{}
	core, err := app.New(ctx, r.cfg, r.logger,
		app.WithClock(vc),
		app.WithStore(store.NewMemoryStore()),
		app.WithDeliverer(script),
		app.WithScreen(script.screen))
	if err != nil {
		return nil, err
	}
	defer core.Close()

	wallStart := time.Now()
	for i, a := range filtered {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		// Advance virtual clock to match the attempt's timestamp offset.
		if i > 0 {
			gap := a.Timestamp.Sub(filtered[i-1].Timestamp)
			if gap > 0 {
				if r.speed > 0 {
					scaledGap := time.Duration(float64(gap) / r.speed)
					if scaledGap > time.Millisecond {
						select {
						case <-ctx.Done():
							return summary, ctx.Err()
						case <-time.After(scaledGap):
						}
					}
				}
				vc.Advance(gap)
			}
		}

		script.set(a)
		d := a.Draft()
		out := core.Sender.Send(ctx, &d)
		res := Result{Attempt: a, Outcome: out, Time: vc.Now()}

		summary.Replayed++
		summary.PerStatus[out.Status]++
		if res.Changed() {
			summary.Changed++
		}
		if cb != nil {
			cb(res)
		}
	}

	summary.Duration = filtered[len(filtered)-1].Timestamp.Sub(filtered[0].Timestamp)
	summary.WallDuration = time.Since(wallStart)
	summary.Violations = core.Blocker.Violations(ctx)
	return summary, nil
}

var errReplayedTransport = errors.New("replayed transport failure")

// scripted answers each send the way the recorded attempt was answered.
type scripted struct {
	mu   sync.Mutex
	next recorder.Attempt
}

func (s *scripted) set(a recorder.Attempt) {
	s.mu.Lock()
	s.next = a
	s.mu.Unlock()
}

func (s *scripted) current() recorder.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// screen repeats a recorded rejection of a field whose value was not kept.
func (s *scripted) screen(*draft.Draft) (string, validate.Result) {
	rej := s.current().Rejection
	if !rej.Opaque() {
		return "", validate.OK
	}
	return rej.Field, validate.Result{Kind: rej.Kind, Reason: rej.Reason}
}

func (s *scripted) Send(context.Context, string, webhook.Payload) webhook.Result {
	a := s.current()

	switch {
	case a.TransportError:
		return webhook.Result{Message: webhook.MessageTransportFail, Err: errReplayedTransport}
	case a.StatusCode == 0:
		return webhook.FromStatus(204)
	default:
		return webhook.FromStatus(a.StatusCode)
	}
}
