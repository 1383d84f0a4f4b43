// Package cache holds a tiny expiring single-value cache. The ingestor uses
// it to avoid re-reading the payee rule set on every incoming transaction.
package cache

import (
	"sync"
	"time"
)

// Value caches one value of type T for a fixed TTL. A zero TTL disables
// expiry; Invalidate always forces the next Get to miss.
type Value[T any] struct {
	mu        sync.Mutex
	ttl       time.Duration
	data      T
	set       bool
	expiresAt time.Time
}

func NewValue[T any](ttl time.Duration) *Value[T] {
	return &Value[T]{ttl: ttl}
}

func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var zero T
	if !v.set {
		return zero, false
	}
	if v.ttl > 0 && time.Now().After(v.expiresAt) {
		v.set = false
		v.data = zero
		return zero, false
	}
	return v.data, true
}

func (v *Value[T]) Set(data T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data = data
	v.set = true
	v.expiresAt = time.Now().Add(v.ttl)
}

func (v *Value[T]) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	var zero T
	v.data = zero
	v.set = false
}
