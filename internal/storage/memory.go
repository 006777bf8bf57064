package storage

import (
	"fmt"
	"sync"

	"github.com/drakos74/smart-exec/internal/buffer"
)

// MemoryEventRegistry creates in-memory registries keeping the last size events per key.
func MemoryEventRegistry[T any](size int) EventRegistry[T] {
	return func(label string) (Registry[T], error) {
		return NewMemoryRegistry[T](size), nil
	}
}

// MemoryRegistry keeps a bounded event log per key in memory.
type MemoryRegistry[T any] struct {
	size   int
	lock   *sync.RWMutex
	events map[K]*buffer.Ring[T]
}

// NewMemoryRegistry creates a new in-memory registry.
func NewMemoryRegistry[T any](size int) *MemoryRegistry[T] {
	return &MemoryRegistry[T]{
		size:   size,
		lock:   new(sync.RWMutex),
		events: make(map[K]*buffer.Ring[T]),
	}
}

func (m *MemoryRegistry[T]) Add(key K, value T) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	ring, ok := m.events[key]
	if !ok {
		ring = buffer.NewRing[T](m.size)
		m.events[key] = ring
	}
	ring.Push(value)
	return nil
}

// GetAll returns the events of the key from the oldest to the latest.
func (m *MemoryRegistry[T]) GetAll(key K) ([]T, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	ring, ok := m.events[key]
	if !ok {
		return nil, fmt.Errorf("'%v': %w", key, ErrNotFound)
	}
	return ring.Get(), nil
}

// GetFor returns the events of the key matching the filter.
func (m *MemoryRegistry[T]) GetFor(key K, filter func(v T) bool) ([]T, error) {
	all, err := m.GetAll(key)
	if err != nil {
		return nil, err
	}
	vv := make([]T, 0)
	for _, v := range all {
		if filter(v) {
			vv = append(vv, v)
		}
	}
	return vv, nil
}
