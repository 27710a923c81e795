package indexer

import "sync/atomic"

// IndexLock is a non-blocking per-repository lock. A second ingest of the
// same repo fails fast instead of queueing behind the first.
type IndexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock. Only the holder may call it.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// Held reports whether the lock is currently taken
func (l *IndexLock) Held() bool {
	return l.state.Load() == 1
}
