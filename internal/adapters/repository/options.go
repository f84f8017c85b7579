package repository

import "time"

const defaultMaxJobs = 1000

// Option applies a configuration option to the InMemoryStore.
type Option func(*InMemoryStore)

// WithMaxJobs bounds how many jobs are kept. When the bound is exceeded the
// oldest finished jobs are evicted; unfinished jobs are never evicted.
func WithMaxJobs(n int) Option {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.maxJobs = n
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
