package time

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMilli(t *testing.T) {
	now := time.Date(2021, 3, 31, 10, 15, 30, 123456789, time.UTC)
	milli := ToMilli(now)
	assert.Equal(t, int64(1617185730123), milli)
	assert.Equal(t, milli, ToMilli(now.Truncate(time.Millisecond)))
}

func TestNextMidnight(t *testing.T) {

	type test struct {
		now      time.Time
		midnight time.Time
	}

	athens := time.FixedZone("EEST", 3*60*60)

	tests := map[string]test{
		"afternoon": {
			now:      time.Date(2021, 3, 31, 14, 30, 0, 0, time.UTC),
			midnight: time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		"midnight": {
			now:      time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC),
			midnight: time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		"year-end": {
			now:      time.Date(2021, 12, 31, 23, 59, 59, 0, time.UTC),
			midnight: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		"other-zone": {
			now:      time.Date(2021, 4, 1, 1, 0, 0, 0, athens),
			midnight: time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.True(t, tt.midnight.Equal(NextMidnight(tt.now)), "%v", NextMidnight(tt.now))
		})
	}
}

func TestEvery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var count int64
	done := make(chan struct{})
	go func() {
		Every(ctx, "test", time.Millisecond, func(now time.Time) error {
			if atomic.AddInt64(&count, 1)%2 == 0 {
				return errors.New("even")
			}
			return nil
		})
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&count) >= 5
	}, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("execution did not stop")
	}
}
