// Package recorder captures send attempts so they can be replayed later
// against different limits and rules.
package recorder

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bytedance/sonic"
)

// Recorder captures send attempts for later replay.
// Thread-safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	attempts []Attempt
	writer   io.Writer // optional: stream attempts as they arrive
}

// New creates a new Recorder. If w is non-nil, attempts are also
// written to w as newline-delimited JSON as they arrive.
func New(w io.Writer) *Recorder {
	return &Recorder{
		writer: w,
	}
}

// Record captures a single attempt.
func (r *Recorder) Record(a Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts = append(r.attempts, a)

	if r.writer != nil {
		data, err := sonic.Marshal(a)
		if err != nil {
			return fmt.Errorf("encoding attempt: %w", err)
		}
		if _, err := r.writer.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// Attempts returns a copy of everything recorded.
func (r *Recorder) Attempts() []Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Attempt, len(r.attempts))
	copy(out, r.attempts)
	return out
}

// Len returns the number of recorded attempts.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

// ExportJSON writes all attempts to w as a JSON array.
func (r *Recorder) ExportJSON(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempts := r.attempts
	if attempts == nil {
		attempts = []Attempt{}
	}
	enc := sonic.ConfigStd.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(attempts)
}

// ExportFile writes all attempts to a file as a JSON array.
func (r *Recorder) ExportFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.ExportJSON(f)
}

// LoadJSON reads attempts from a JSON array.
func LoadJSON(r io.Reader) ([]Attempt, error) {
	var attempts []Attempt
	if err := sonic.ConfigStd.NewDecoder(r).Decode(&attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}
