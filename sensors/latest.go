package sensors

import "sync"

// Latest holds the most recent value written by a producer. Older values are
// overwritten, never queued.
type Latest[T any] struct {
	mu    sync.Mutex
	value T
	fresh bool
	seen  bool
}

// Store replaces the held value and marks it fresh.
func (l *Latest[T]) Store(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
	l.fresh = true
	l.seen = true
}

// Take returns the held value if it has not been taken since the last Store.
func (l *Latest[T]) Take() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.fresh {
		var zero T
		return zero, false
	}
	l.fresh = false
	return l.value, true
}

// Seen reports whether any value was ever stored.
func (l *Latest[T]) Seen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen
}
