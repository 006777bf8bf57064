package time

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ToMilli returns the unix time in milliseconds.
func ToMilli(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// NextMidnight returns the start of the next day in UTC.
func NextMidnight(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// Every executes the given function at the specified interval until the context is done.
// Errors are logged and do not stop the execution.
func Every(ctx context.Context, name string, interval time.Duration, exec func(now time.Time) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Debug().Str("name", name).Dur("interval", interval).Msg("execution started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("name", name).Dur("interval", interval).Msg("execution stopped")
			return
		case now := <-ticker.C:
			if err := exec(now); err != nil {
				log.Warn().Err(err).Str("name", name).Msg("execution failed")
			}
		}
	}
}
