package testutils

import (
	"sync"

	"github.com/papercomputeco/yearbook/pkg/eventstream"
)

// MockSink collects enqueued record events.
type MockSink struct {
	mu     sync.Mutex
	events []*eventstream.RecordEvent
}

func NewMockSink() *MockSink {
	return &MockSink{}
}

func (s *MockSink) Enqueue(e *eventstream.RecordEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return true
}

// Events returns a copy of everything enqueued so far.
func (s *MockSink) Events() []*eventstream.RecordEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*eventstream.RecordEvent, len(s.events))
	copy(out, s.events)
	return out
}
