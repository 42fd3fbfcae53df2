package events

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sink receives committed events. Emit is called after the originating
// state change has fully committed; a sink error does not roll the
// mutation back, it is surfaced to the caller as a delivery failure.
type Sink interface {
	Emit(ctx context.Context, typ Type, payload any) error
}

// NopSink drops all events.
type NopSink struct{}

func (NopSink) Emit(context.Context, Type, any) error { return nil }

// Tee fans an event out to every sink in order, stopping at the first
// failure.
func Tee(sinks ...Sink) Sink {
	return teeSink(sinks)
}

type teeSink []Sink

func (t teeSink) Emit(ctx context.Context, typ Type, payload any) error {
	for _, s := range t {
		if err := s.Emit(ctx, typ, payload); err != nil {
			return err
		}
	}
	return nil
}

// WriterSink writes one JSON line per event to a configurable writer.
type WriterSink struct {
	mu     sync.Mutex
	writer io.Writer
	clock  func() time.Time
}

// NewWriterSink creates a sink writing to os.Stdout.
func NewWriterSink() *WriterSink {
	return NewWriterSinkWithWriter(os.Stdout)
}

// NewWriterSinkWithWriter creates a sink writing to the given writer.
// This allows injection for testing and custom destinations.
func NewWriterSinkWithWriter(w io.Writer) *WriterSink {
	if w == nil {
		w = os.Stdout
	}
	return &WriterSink{writer: w, clock: time.Now}
}

func (s *WriterSink) Emit(ctx context.Context, typ Type, payload any) error {
	event := Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: s.clock(),
		Payload:   payload,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = s.writer.Write(append(bytes, '\n'))
	return err
}
