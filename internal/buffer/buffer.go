package buffer

import (
	"sync"
)

// Buffer is an append-only, concurrency-safe list.
type Buffer[T any] struct {
	mu sync.Mutex
	ts []T
}

func NewBuffer[T any]() *Buffer[T] {
	return &Buffer[T]{}
}

// Add appends e and returns the number of entries held afterwards.
func (b *Buffer[T]) Add(e T) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ts = append(b.ts, e)
	return len(b.ts)
}

// Snapshot returns a copy of the entries without removing them.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]T, len(b.ts))
	copy(out, b.ts)
	return out
}

func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ts)
}

func (b *Buffer[T]) Drain() []T {
	b.mu.Lock()
	es := b.ts
	b.ts = nil
	b.mu.Unlock()
	return es
}
