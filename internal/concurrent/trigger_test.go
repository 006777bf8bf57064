package concurrent

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSupervise(t *testing.T) {

	err := Supervise("ok", func() error { return nil })
	assert.NoError(t, err)

	boom := errors.New("boom")
	err = Supervise("error", func() error { return boom })
	assert.ErrorIs(t, err, boom)

	err = Supervise("panic", func() error { panic("at the disco") })
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at the disco")
}

func TestGo(t *testing.T) {

	wg := new(sync.WaitGroup)
	assertion := NewAssertion(3)
	for i := 0; i < 3; i++ {
		Go(wg, "task", func() error {
			assertion.Expect(i)
			if i == 1 {
				panic("isolated")
			}
			return nil
		})
	}
	wg.Wait()
	values := assertion.Assert(t, time.Second)
	assert.Len(t, values, 3)
}
