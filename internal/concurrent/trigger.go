package concurrent

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Supervise runs exec and converts a panic into an error.
func Supervise(name string, exec func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return exec()
}

// Go runs exec in its own go routine, logging any error or panic coming out of it.
// If a wait group is given it is marked done when exec returns.
func Go(wg *sync.WaitGroup, name string, exec func() error) {
	if wg != nil {
		wg.Add(1)
	}
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		if err := Supervise(name, exec); err != nil {
			log.Error().Err(err).Str("task", name).Msg("task failed")
		}
	}()
}
