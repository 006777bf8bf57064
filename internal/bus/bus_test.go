package bus

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drakos74/smart-exec/internal/concurrent"
	"github.com/drakos74/smart-exec/internal/model"
)

func TestTopic_Publish(t *testing.T) {
	topic := NewTopic[model.Execution]("test")

	assertion := concurrent.NewAssertion(2)
	topic.Subscribe(func(e model.Execution) error {
		assertion.Expect(e.ID)
		return nil
	})
	topic.Subscribe(func(e model.Execution) error {
		panic("faulty subscriber")
	})
	topic.Subscribe(func(e model.Execution) error {
		return errors.New("failing subscriber")
	})
	topic.Subscribe(func(e model.Execution) error {
		assertion.Expect(e.ID)
		return nil
	})

	require.NoError(t, topic.Publish(model.Execution{ID: "e1"}))
	values := assertion.Assert(t, time.Second)
	assert.ElementsMatch(t, []interface{}{"e1", "e1"}, values)
}

func TestTopic_Close(t *testing.T) {
	topic := NewTopic[model.Order]("test")

	var delivered int32
	topic.Subscribe(func(o model.Order) error {
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&delivered, 1)
		return nil
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, topic.Publish(model.Order{ID: "o"}))
	}
	topic.Close()
	// close waits for the in-flight deliveries
	assert.Equal(t, int32(5), atomic.LoadInt32(&delivered))

	err := topic.Publish(model.Order{ID: "late"})
	assert.ErrorIs(t, err, ErrClosed)
	// closing twice is a no-op
	topic.Close()
}

func TestBus(t *testing.T) {
	b := New()
	assertion := concurrent.NewAssertion(3)
	b.Executions.Subscribe(func(e model.Execution) error {
		assertion.Expect(e.ID)
		return nil
	})
	b.Statuses.Subscribe(func(o model.Order) error {
		assertion.Expect(o.ID)
		return nil
	})
	b.Signals.Subscribe(func(s model.FusedSignal) error {
		assertion.Expect(s.Instrument)
		return nil
	})
	require.NoError(t, b.Executions.Publish(model.Execution{ID: "exec"}))
	require.NoError(t, b.Statuses.Publish(model.Order{ID: "order"}))
	require.NoError(t, b.Signals.Publish(model.FusedSignal{Instrument: "AAPL"}))
	values := assertion.Assert(t, time.Second)
	assert.ElementsMatch(t, []interface{}{"exec", "order", "AAPL"}, values)
	b.Close()
}
