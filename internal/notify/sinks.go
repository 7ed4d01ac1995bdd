package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogSink writes every event as a structured log line.
type LogSink struct {
	log logrus.FieldLogger
}

// NewLogSink creates a sink logging at info level.
func NewLogSink(log logrus.FieldLogger) *LogSink {
	return &LogSink{log: log}
}

// Publish logs the event.
func (s *LogSink) Publish(_ context.Context, e Event) error {
	s.log.WithFields(logrus.Fields{
		"event_id":    e.ID,
		"source":      e.Source,
		"topic":       e.Topic,
		"owner":       e.Owner,
		"ledger_time": e.LedgerTime,
		"payload":     e.Payload,
	}).Info("ledger event")
	return nil
}

// Recorder keeps events in memory. Tests use it to assert emissions.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish appends the event.
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Topics returns the recorded topics in order.
func (r *Recorder) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Topic)
	}
	return out
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Multi fans an event out to several sinks. Every sink is tried; errors are joined.
type Multi []Sink

// Publish delivers to each sink in order.
func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Sink = Nop{}
	_ Sink = (*LogSink)(nil)
	_ Sink = (*Recorder)(nil)
	_ Sink = Multi(nil)
)
