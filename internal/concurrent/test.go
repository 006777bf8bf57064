package concurrent

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Assertion expects a number of asynchronous events and blocks until they arrive.
type Assertion struct {
	counter  *Counter
	expected int
	lock     *sync.Mutex
	seen     int
}

// NewAssertion creates an assertion for the given number of events.
func NewAssertion(expected int) *Assertion {
	wg := new(sync.WaitGroup)
	wg.Add(expected)
	return &Assertion{
		counter:  NewCounter(wg),
		expected: expected,
		lock:     new(sync.Mutex),
	}
}

// Expect registers an event. Events beyond the expected count are tracked but do not release the wait group.
func (a *Assertion) Expect(v interface{}) {
	a.lock.Lock()
	a.seen++
	over := a.seen > a.expected
	a.lock.Unlock()
	if over {
		a.counter.lock.Lock()
		a.counter.vv = append(a.counter.vv, v)
		a.counter.lock.Unlock()
		return
	}
	a.counter.Track(v)
}

// Assert waits for the expected events, failing the test after the timeout.
func (a *Assertion) Assert(t *testing.T, timeout time.Duration) []interface{} {
	done := make(chan struct{})
	go func() {
		a.counter.waitGroup.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for %d events, got %d", a.expected, a.counter.Get())
	}
	assert.Equal(t, a.expected, a.counter.Get())
	return a.counter.Values()
}
