package bus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/drakos74/smart-exec/internal/concurrent"
	"github.com/drakos74/smart-exec/internal/model"
)

// ErrClosed is returned when publishing on a closed topic.
var ErrClosed = errors.New("topic closed")

// Callback consumes the events of a topic.
type Callback[T any] func(T) error

// Topic delivers events to its subscribers.
// Every delivery runs in its own supervised go routine, so a failing subscriber cannot affect the others or the publisher.
type Topic[T any] struct {
	name        string
	lock        *sync.RWMutex
	closed      bool
	subscribers []Callback[T]
	inflight    *sync.WaitGroup
}

// NewTopic creates a new topic.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{
		name:     name,
		lock:     new(sync.RWMutex),
		inflight: new(sync.WaitGroup),
	}
}

// Subscribe adds a callback to the topic.
func (t *Topic[T]) Subscribe(callback Callback[T]) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.subscribers = append(t.subscribers, callback)
}

// Publish delivers the event to all current subscribers without waiting for them.
func (t *Topic[T]) Publish(v T) error {
	t.lock.RLock()
	defer t.lock.RUnlock()
	if t.closed {
		return fmt.Errorf("%s: %w", t.name, ErrClosed)
	}
	for i, callback := range t.subscribers {
		callback := callback
		concurrent.Go(t.inflight, fmt.Sprintf("%s[%d]", t.name, i), func() error {
			return callback(v)
		})
	}
	return nil
}

// Close stops accepting events and waits for the in-flight deliveries.
func (t *Topic[T]) Close() {
	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		return
	}
	t.closed = true
	t.lock.Unlock()
	t.inflight.Wait()
	log.Debug().Str("topic", t.name).Msg("closed")
}

// Bus groups the topics of the engine.
type Bus struct {
	Executions *Topic[model.Execution]
	Statuses   *Topic[model.Order]
	Signals    *Topic[model.FusedSignal]
}

// New creates a new bus.
func New() *Bus {
	return &Bus{
		Executions: NewTopic[model.Execution]("executions"),
		Statuses:   NewTopic[model.Order]("statuses"),
		Signals:    NewTopic[model.FusedSignal]("signals"),
	}
}

// Close closes all topics.
func (b *Bus) Close() {
	b.Executions.Close()
	b.Statuses.Close()
	b.Signals.Close()
}
