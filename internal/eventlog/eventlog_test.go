package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/Hooksend/internal/clock"
	"github.com/SmitUplenchwar2687/Hooksend/internal/schema"
	"github.com/SmitUplenchwar2687/Hooksend/internal/store"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestLog(t *testing.T) (*Log, *clock.VirtualClock, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	vc := clock.NewVirtualClock(epoch)
	return New(schema.New(st, nil), vc, nil), vc, st
}

func TestLog_Record(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()

	entry, err := l.Record(ctx, Suspicious, "Message contains too many emoji.", map[string]string{"field": "content"})
	if err != nil {
		t.Fatal(err)
	}
	if entry.Timestamp != "2024-01-01T00:00:00.000Z" {
		t.Errorf("Timestamp = %q, want %q", entry.Timestamp, "2024-01-01T00:00:00.000Z")
	}

	all := l.ReadAll(ctx)
	if len(all) != 1 {
		t.Fatalf("ReadAll() len = %d, want 1", len(all))
	}
	if all[0].Type != Suspicious || all[0].Metadata["field"] != "content" {
		t.Errorf("ReadAll()[0] = %+v", all[0])
	}
}

func TestLog_Record_UnknownType(t *testing.T) {
	l, _, _ := newTestLog(t)
	if _, err := l.Record(context.Background(), Type("bogus"), "x", nil); err == nil {
		t.Fatal("expected error for unknown event type")
	}
	if n := len(l.ReadAll(context.Background())); n != 0 {
		t.Errorf("len = %d, want 0", n)
	}
}

func TestLog_Record_CopiesMetadata(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()

	meta := map[string]string{"k": "v"}
	entry, _ := l.Record(ctx, Blocked, "r", meta)
	meta["k"] = "mutated"

	if entry.Metadata["k"] != "v" {
		t.Error("Record should copy metadata")
	}
}

func TestLog_OldestFirstWithClockTimestamps(t *testing.T) {
	l, vc, _ := newTestLog(t)
	ctx := context.Background()

	l.Record(ctx, RateLimit, "first", nil)
	vc.Advance(1500 * time.Millisecond)
	l.Record(ctx, Blocked, "second", nil)

	all := l.ReadAll(ctx)
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].Reason != "first" || all[1].Reason != "second" {
		t.Errorf("order = [%s %s], want [first second]", all[0].Reason, all[1].Reason)
	}
	if all[1].Timestamp != "2024-01-01T00:00:01.500Z" {
		t.Errorf("second timestamp = %q", all[1].Timestamp)
	}
}

func TestLog_EvictsOldestBeyondCapacity(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()

	for i := 0; i < Capacity+5; i++ {
		l.Record(ctx, ValidationFailure, fmt.Sprintf("r%d", i), nil)
	}

	all := l.ReadAll(ctx)
	if len(all) != Capacity {
		t.Fatalf("len = %d, want %d", len(all), Capacity)
	}
	if all[0].Reason != "r5" {
		t.Errorf("oldest = %q, want r5", all[0].Reason)
	}
	if all[Capacity-1].Reason != fmt.Sprintf("r%d", Capacity+4) {
		t.Errorf("newest = %q", all[Capacity-1].Reason)
	}
}

func TestLog_CorruptedStateReadsEmpty(t *testing.T) {
	l, _, st := newTestLog(t)
	ctx := context.Background()

	st.Set(ctx, schema.KeySecurityLog, []byte("{not json"))
	if n := len(l.ReadAll(ctx)); n != 0 {
		t.Fatalf("len = %d, want 0", n)
	}

	// Recording over a corrupted log starts a fresh one.
	l.Record(ctx, Blocked, "fresh", nil)
	if all := l.ReadAll(ctx); len(all) != 1 || all[0].Reason != "fresh" {
		t.Errorf("ReadAll() = %+v", all)
	}
}

func TestLog_Filter(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()

	l.Record(ctx, RateLimit, "a", nil)
	l.Record(ctx, Blocked, "b", nil)
	l.Record(ctx, RateLimit, "c", nil)

	got := l.Filter(ctx, RateLimit)
	if len(got) != 2 || got[0].Reason != "a" || got[1].Reason != "c" {
		t.Errorf("Filter(rate_limit) = %+v", got)
	}
	if got := l.Filter(ctx, Suspicious); len(got) != 0 {
		t.Errorf("Filter(suspicious) = %+v", got)
	}
}

func TestLog_Clear(t *testing.T) {
	l, _, st := newTestLog(t)
	ctx := context.Background()

	l.Record(ctx, Blocked, "x", nil)
	if err := l.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(l.ReadAll(ctx)); n != 0 {
		t.Errorf("len after Clear = %d", n)
	}
	if v, _ := st.Get(ctx, schema.KeySecurityLog); v != nil {
		t.Errorf("key still present: %s", v)
	}
}

func TestLog_ExportJSON(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()

	l.Record(ctx, RateLimit, "a", nil)
	l.Record(ctx, Blocked, "b", map[string]string{"violations": "1"})

	var buf bytes.Buffer
	if err := l.ExportJSON(ctx, &buf); err != nil {
		t.Fatal(err)
	}

	var entries []Entry
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("export is not a JSON array: %v", err)
	}
	if len(entries) != 2 || entries[1].Metadata["violations"] != "1" {
		t.Errorf("exported = %+v", entries)
	}
}

func TestLog_ExportJSON_Empty(t *testing.T) {
	l, _, _ := newTestLog(t)

	var buf bytes.Buffer
	if err := l.ExportJSON(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("export = %q, want []", got)
	}
}

func TestLog_StreamTo(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()

	var buf bytes.Buffer
	l.StreamTo(&buf)
	l.Record(ctx, RateLimit, "a", nil)
	l.Record(ctx, Blocked, "b", nil)
	l.StreamTo(nil)
	l.Record(ctx, Blocked, "not streamed", nil)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var e Entry
	json.Unmarshal(lines[1], &e)
	if e.Reason != "b" {
		t.Errorf("second line reason = %q, want b", e.Reason)
	}
}

func TestLog_Subscribe(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()

	var got []string
	cancel := l.Subscribe(func(e Entry) { got = append(got, e.Reason) })

	l.Record(ctx, Blocked, "one", nil)
	cancel()
	cancel() // idempotent
	l.Record(ctx, Blocked, "two", nil)

	if len(got) != 1 || got[0] != "one" {
		t.Errorf("subscriber got %v, want [one]", got)
	}
}

func TestLog_ConcurrentRecord(t *testing.T) {
	l, _, _ := newTestLog(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Record(ctx, Suspicious, fmt.Sprintf("r%d", i), nil)
		}(i)
	}
	wg.Wait()

	if n := len(l.ReadAll(ctx)); n != 50 {
		t.Errorf("len = %d, want 50", n)
	}
}
