package fakes

import (
	"sync"
	"time"
)

// SleepRecorder records pacing delays instead of sleeping.
type SleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Sleep records d and returns immediately. Pass it to onboarding.WithSleeper.
func (s *SleepRecorder) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
}

// Delays returns the recorded delays in call order.
func (s *SleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]time.Duration(nil), s.delays...)
}
