// internal/workers/search/answer-query/session.go
package answerquery

import (
	stderrors "errors"
	"sync"

	"wizkid-search/internal/common/metrics"
	"wizkid-search/internal/models"
)

// ErrSessionClosed is returned for events sent after final.
var ErrSessionClosed = stderrors.New("session already finalized")

// Sink receives the events of one answer.
type Sink interface {
	Send(ev models.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev models.Event) error

func (f SinkFunc) Send(ev models.Event) error { return f(ev) }

// Session guards a sink: nothing passes after final, and the first sink
// error sticks.
type Session struct {
	mu     sync.Mutex
	sink   Sink
	events []models.Event
	done   bool
	err    error
}

func NewSession(sink Sink) *Session {
	return &Session{sink: sink}
}

func (s *Session) Emit(ev models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return ErrSessionClosed
	}
	if s.err != nil {
		return s.err
	}
	if err := s.sink.Send(ev); err != nil {
		s.err = err
		return err
	}
	s.events = append(s.events, ev)
	if ev.Type == models.EventFinal {
		s.done = true
	}
	metrics.EventsEmitted.WithLabelValues(string(ev.Type)).Inc()
	return nil
}

func (s *Session) Status(msg string) error {
	return s.Emit(models.StatusEvent(msg))
}

func (s *Session) Final(snap models.Snapshot) error {
	if snap.Cites == nil {
		snap.Cites = []models.Citation{}
	}
	return s.Emit(models.FinalEvent(snap))
}

// Events returns a copy of the delivered events.
func (s *Session) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Session) Finalized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err is the sink error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
