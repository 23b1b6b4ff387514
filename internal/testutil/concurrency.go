package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/hookgrid/internal/node"
)

// Sleeper is a shared computation source for concurrency tests. Every
// computation it hands out sleeps for a fixed duration, records its execution
// window and tracks how many computations were running at the same time.
type Sleeper struct {
	ExecutionTimes map[string]*ExecutionRecord

	mu            sync.Mutex
	sleepDuration time.Duration
	running       int
	peak          int
	started       chan<- string
}

// NewSleeper creates a new sleeper. If started is not nil, the ID of every
// computation is sent to it when the computation begins; the channel must be
// buffered or drained by the test.
func NewSleeper(sleep time.Duration, started chan<- string) *Sleeper {
	return &Sleeper{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		started:        started,
	}
}

// For returns a computation for node id. The computation returns id as its
// output, or the context error if it is canceled while sleeping.
func (s *Sleeper) For(id string) node.Computation {
	return node.Func(func(ctx context.Context, _ node.Inputs) (any, error) {
		start := time.Now()
		s.mu.Lock()
		s.running++
		s.peak = max(s.peak, s.running)
		s.mu.Unlock()
		if s.started != nil {
			s.started <- id
		}

		var err error
		select {
		case <-time.After(s.sleepDuration):
		case <-ctx.Done():
			err = ctx.Err()
		}

		s.mu.Lock()
		s.running--
		s.ExecutionTimes[id] = &ExecutionRecord{Start: start, End: time.Now()}
		s.mu.Unlock()

		if err != nil {
			return nil, err
		}
		return id, nil
	})
}

// Peak returns the highest number of computations observed running at once.
func (s *Sleeper) Peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// Record returns the execution window of id, if it ran.
func (s *Sleeper) Record(id string) (*ExecutionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ExecutionTimes[id]
	return r, ok
}
