package limiter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SmitUplenchwar2687/Hooksend/internal/clock"
	"github.com/SmitUplenchwar2687/Hooksend/internal/schema"
)

// Window is a sliding window log persisted under one store key.
//
// It stores the time of each event and counts how many fall within
// [now-span, now]. Append drops expired entries before writing, and Sweep
// drops them without a write, so storage stays bounded by what one window
// can hold. Count filters at read time and never depends on either.
//
// Entries are append-only and non-decreasing. Expired entries are only ever
// removed from the front.
type Window struct {
	mu     sync.Mutex
	schema *schema.Schema
	key    string
	span   time.Duration
}

// NewWindow creates a window of the given span over key.
func NewWindow(sch *schema.Schema, key string, span time.Duration) *Window {
	return &Window{
		schema: sch,
		key:    key,
		span:   span,
	}
}

// Span returns the window length.
func (w *Window) Span() time.Duration {
	return w.span
}

// Count returns the number of entries within [now-span, now].
func (w *Window) Count(ctx context.Context, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	lo, hi := w.bounds(now)
	n := 0
	for _, ts := range w.schema.Timestamps(ctx, w.key) {
		if ts >= lo && ts <= hi {
			n++
		}
	}
	return n
}

// Oldest returns the earliest entry still inside the window.
func (w *Window) Oldest(ctx context.Context, now time.Time) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	lo, hi := w.bounds(now)
	for _, ts := range w.schema.Timestamps(ctx, w.key) {
		if ts >= lo && ts <= hi {
			return clock.FromMillis(ts), true
		}
	}
	return time.Time{}, false
}

// Append records an event at now, dropping entries that already left the
// window. A clock that moved backwards is clamped to the last entry so the
// log stays non-decreasing.
func (w *Window) Append(ctx context.Context, now time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries := w.schema.Timestamps(ctx, w.key)
	entries = entries[expired(entries, now, w.span):]
	ts := clock.Millis(now)
	if n := len(entries); n > 0 && ts < entries[n-1] {
		ts = entries[n-1]
	}
	if err := w.schema.SetTimestamps(ctx, w.key, append(entries, ts)); err != nil {
		return fmt.Errorf("appending to %s: %w", w.key, err)
	}
	return nil
}

// Sweep drops entries older than now-span and reports how many were removed.
// Nothing is written when nothing expired.
func (w *Window) Sweep(ctx context.Context, now time.Time) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries := w.schema.Timestamps(ctx, w.key)
	cut := expired(entries, now, w.span)
	if cut == 0 {
		return 0, nil
	}
	if err := w.schema.SetTimestamps(ctx, w.key, entries[cut:]); err != nil {
		return 0, fmt.Errorf("sweeping %s: %w", w.key, err)
	}
	return cut, nil
}

// Len returns the number of stored entries, expired ones included.
func (w *Window) Len(ctx context.Context) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.schema.Timestamps(ctx, w.key))
}

// Reset forgets every entry.
func (w *Window) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.schema.Delete(ctx, w.key); err != nil {
		return fmt.Errorf("resetting %s: %w", w.key, err)
	}
	return nil
}

// expired returns how many leading entries fall before now-span.
func expired(entries []int64, now time.Time, span time.Duration) int {
	lo := clock.Millis(now) - span.Milliseconds()
	return sort.Search(len(entries), func(i int) bool { return entries[i] >= lo })
}

func (w *Window) bounds(now time.Time) (lo, hi int64) {
	hi = clock.Millis(now)
	return hi - w.span.Milliseconds(), hi
}
