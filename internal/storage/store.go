package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for keys without any events.
var ErrNotFound = errors.New("not found")

// K is the registry key, grouping the entries of one instrument under a label.
type K struct {
	Pair  string `json:"pair"`
	Label string `json:"label"`
}

func (k K) String() string {
	return fmt.Sprintf("%s_%s", k.Pair, k.Label)
}

// Registry is an append only event log.
type Registry[T any] interface {
	Add(key K, value T) error
	GetAll(key K) ([]T, error)
	GetFor(key K, filter func(v T) bool) ([]T, error)
}

// EventRegistry creates a new registry for the given label.
type EventRegistry[T any] func(label string) (Registry[T], error)
