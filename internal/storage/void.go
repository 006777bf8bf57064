package storage

import "fmt"

// VoidRegistry is a dummy event logger which ignores all calls
type VoidRegistry[T any] struct {
}

// NewVoidRegistry creates a new noop registry
func NewVoidRegistry[T any]() *VoidRegistry[T] {
	return &VoidRegistry[T]{}
}

// VoidEventRegistry creates noop registries.
func VoidEventRegistry[T any]() EventRegistry[T] {
	return func(label string) (Registry[T], error) {
		return NewVoidRegistry[T](), nil
	}
}

func (v VoidRegistry[T]) Add(key K, value T) error {
	return nil
}

func (v VoidRegistry[T]) GetAll(key K) ([]T, error) {
	return nil, fmt.Errorf("'%v': %w", key, ErrNotFound)
}

func (v VoidRegistry[T]) GetFor(key K, filter func(v T) bool) ([]T, error) {
	return nil, fmt.Errorf("'%v': %w", key, ErrNotFound)
}
