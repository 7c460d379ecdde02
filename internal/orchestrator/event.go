package orchestrator

import (
	"context"
	"errors"
	"time"
)

// Event describes one finished operation.
type Event struct {
	Operation   Operation     `json:"operation"`
	Identity    string        `json:"identity"`
	Transport   string        `json:"transport"`
	Success     bool          `json:"success"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	Error       string        `json:"error,omitempty"`
	Destination string        `json:"destination,omitempty"`
	Verified    bool          `json:"verified"`
	Duration    time.Duration `json:"duration"`
	Source      string        `json:"source"`
	At          time.Time     `json:"at"`
}

// Recorder receives an Event after every operation.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, ev Event) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// MultiRecorder fans an event out to several recorders. Every recorder is
// called; their errors are joined.
type MultiRecorder []Recorder

// Record delivers ev to each recorder.
func (m MultiRecorder) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
