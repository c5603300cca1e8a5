package feed

import (
	"sync"
	"time"
)

// SemanticScheduler debounces semantic search requests. Each call to
// Schedule supersedes the previous one: a request not yet fired is
// dropped outright, and one already in flight sees stillCurrent turn
// false so its late result is discarded instead of overwriting the
// newer query's.
type SemanticScheduler struct {
	delay time.Duration

	mu         sync.Mutex
	generation uint64
	timer      *time.Timer
}

// NewSemanticScheduler creates a scheduler with the given debounce
// delay.
func NewSemanticScheduler(delay time.Duration) *SemanticScheduler {
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	return &SemanticScheduler{delay: delay}
}

// Schedule runs fn after the debounce delay unless superseded first.
// fn receives a stillCurrent check to consult before applying results
// obtained from a slow call.
func (s *SemanticScheduler) Schedule(fn func(stillCurrent func() bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	generation := s.generation
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		fn(func() bool {
			s.mu.Lock()
			defer s.mu.Unlock()
			return generation == s.generation
		})
	})
}

// Cancel drops any pending request, e.g. when the query box empties.
func (s *SemanticScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
