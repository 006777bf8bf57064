package order

import (
	"errors"
	"fmt"

	"github.com/drakos74/smart-exec/internal/model"
)

var (
	ErrUnknownOrder      = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order state transition")
	ErrInvalidFill       = errors.New("invalid fill quantity")
	ErrClosed            = errors.New("order manager closed")
	ErrMissingInstrument = errors.New("missing instrument")
)

var transitions = map[model.Status]map[model.Status]bool{
	model.Pending: {
		model.Submitted: true,
		model.Rejected:  true,
		model.Cancelled: true,
	},
	model.Submitted: {
		model.Partial:   true,
		model.Filled:    true,
		model.Cancelled: true,
		model.Expired:   true,
	},
	model.Partial: {
		model.Partial:   true,
		model.Filled:    true,
		model.Cancelled: true,
		model.Expired:   true,
	},
}

// Transition checks that the order may move from one status to the other.
func Transition(from, to model.Status) error {
	if next, ok := transitions[from]; ok && next[to] {
		return nil
	}
	return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
}
