package services

import "sync/atomic"

// SearchLock is the process-wide guard around numeric-code recovery: at most
// one brute-force search may run at a time. Requests that lose the
// test-and-set must fail with search_in_progress, never queue.
// Explicit-code check-ins bypass the lock entirely.
type SearchLock struct {
	held atomic.Bool
}

func NewSearchLock() *SearchLock {
	return &SearchLock{}
}

// TryAcquire atomically claims the lock, reporting whether it was free.
func (l *SearchLock) TryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

func (l *SearchLock) Release() {
	l.held.Store(false)
}
