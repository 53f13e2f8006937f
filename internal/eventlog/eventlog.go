// Package eventlog keeps the bounded, persisted log of security events:
// validation failures, rate limiting, blocks and suspicious content.
package eventlog

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Hooksend/internal/clock"
	"github.com/SmitUplenchwar2687/Hooksend/internal/schema"
)

// Entry is one security event.
type Entry = schema.LogEntry

// Type classifies an entry.
type Type = schema.EventType

// Event types.
const (
	ValidationFailure = schema.EventValidationFailure
	RateLimit         = schema.EventRateLimit
	Blocked           = schema.EventBlocked
	Suspicious        = schema.EventSuspicious
)

// Capacity is the number of entries kept; older ones are evicted first.
const Capacity = 100

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Log records security events into the store.
// Thread-safe for concurrent use within one process.
type Log struct {
	mu     sync.Mutex
	schema *schema.Schema
	clock  clock.Clock
	logger *zap.Logger
	writer io.Writer // optional: stream entries as newline-delimited JSON

	subMu  sync.RWMutex
	subs   map[int]func(Entry)
	nextID int
}

// New creates a Log over sch. A nil logger discards output.
func New(sch *schema.Schema, clk clock.Clock, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		schema: sch,
		clock:  clk,
		logger: logger,
		subs:   make(map[int]func(Entry)),
	}
}

// StreamTo also writes every new entry to w as a JSON line. Pass nil to stop.
func (l *Log) StreamTo(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

// Record appends an entry stamped with the current time and evicts the
// oldest entries beyond Capacity. The entry is returned even when persisting
// it fails.
func (l *Log) Record(ctx context.Context, typ Type, reason string, metadata map[string]string) (Entry, error) {
	if !typ.Valid() {
		return Entry{}, fmt.Errorf("unknown event type %q", typ)
	}

	entry := Entry{
		Timestamp: l.clock.Now().UTC().Format(TimestampLayout),
		Type:      typ,
		Reason:    reason,
	}
	if len(metadata) > 0 {
		entry.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			entry.Metadata[k] = v
		}
	}

	l.logger.Warn("security event",
		zap.String("type", string(typ)),
		zap.String("reason", reason),
		zap.Any("metadata", metadata),
	)

	err := l.append(ctx, entry)
	l.publish(entry)
	return entry, err
}

func (l *Log) append(ctx context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := append(l.schema.SecurityLog(ctx), entry)
	if over := len(entries) - Capacity; over > 0 {
		entries = entries[over:]
	}
	if err := l.schema.SetSecurityLog(ctx, entries); err != nil {
		l.logger.Error("failed to persist security log", zap.Error(err))
		return fmt.Errorf("persisting security log: %w", err)
	}

	if l.writer != nil {
		line, err := sonic.Marshal(entry)
		if err == nil {
			_, err = l.writer.Write(append(line, '\n'))
		}
		if err != nil {
			l.logger.Warn("failed to stream security event", zap.Error(err))
		}
	}
	return nil
}

// ReadAll returns every entry, oldest first. An unreadable log reads as empty.
func (l *Log) ReadAll(ctx context.Context) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.schema.SecurityLog(ctx)
}

// Filter returns the entries of one type, oldest first.
func (l *Log) Filter(ctx context.Context, typ Type) []Entry {
	var out []Entry
	for _, e := range l.ReadAll(ctx) {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// Clear empties the log.
func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.schema.Delete(ctx, schema.KeySecurityLog); err != nil {
		return fmt.Errorf("clearing security log: %w", err)
	}
	return nil
}

// ExportJSON writes every entry to w as an indented JSON array.
func (l *Log) ExportJSON(ctx context.Context, w io.Writer) error {
	data, err := sonic.ConfigStd.MarshalIndent(l.ReadAll(ctx), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding security log: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing security log: %w", err)
	}
	return nil
}

// Subscribe registers fn to receive every entry recorded after the call.
// fn runs synchronously on the recording goroutine and must not block.
// The returned func unregisters it.
func (l *Log) Subscribe(fn func(Entry)) (cancel func()) {
	l.subMu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.subMu.Lock()
			delete(l.subs, id)
			l.subMu.Unlock()
		})
	}
}

func (l *Log) publish(entry Entry) {
	l.subMu.RLock()
	defer l.subMu.RUnlock()
	for _, fn := range l.subs {
		fn(entry)
	}
}
