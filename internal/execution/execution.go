package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/drakos74/smart-exec/internal/model"
)

var (
	ErrSlippage     = errors.New("slippage exceeded")
	ErrLimitPrice   = errors.New("price through limit")
	ErrNoMarketData = errors.New("no market data")
	ErrCancelled    = errors.New("execution cancelled")
	ErrInvalidPrice = errors.New("invalid execution price")
)

// Market gives access to the latest market state.
type Market interface {
	Snapshot(instrument string) (model.Snapshot, bool)
	Prices(instrument string) []float64
}

// Ledger applies the fills of an order.
// An error means the order cannot take any more fills.
type Ledger interface {
	Apply(execution model.Execution) error
}

// Result is the outcome of an execution task.
type Result struct {
	Success bool
	Filled  float64
	Reason  string
}

// TWAPConfig configures the time weighted slicing.
type TWAPConfig struct {
	MinSlices  int           `yaml:"min_slices" json:"min_slices" validate:"gte=1"`
	MaxSlices  int           `yaml:"max_slices" json:"max_slices" validate:"gtefield=MinSlices"`
	Interval   time.Duration `yaml:"interval" json:"interval" validate:"gte=0"`
	Completion float64       `yaml:"completion" json:"completion" validate:"gt=0,lte=1"`
}

// Config configures the execution algorithms.
type Config struct {
	AggressivePremium float64       `yaml:"aggressive_premium" json:"aggressive_premium" validate:"gte=0,lt=1"`
	PassiveWait       time.Duration `yaml:"passive_wait" json:"passive_wait" validate:"gte=0"`
	VWAPWindow        int           `yaml:"vwap_window" json:"vwap_window" validate:"gte=1"`
	TWAP              TWAPConfig    `yaml:"twap" json:"twap"`
	TriggerPoll       time.Duration `yaml:"trigger_poll" json:"trigger_poll" validate:"gt=0"`
	LatencyWarning    time.Duration `yaml:"latency_warning" json:"latency_warning" validate:"gt=0"`
}

// DefaultConfig returns the default execution parameters.
func DefaultConfig() Config {
	return Config{
		AggressivePremium: 0.001,
		PassiveWait:       500 * time.Millisecond,
		VWAPWindow:        10,
		TWAP: TWAPConfig{
			MinSlices:  2,
			MaxSlices:  5,
			Interval:   time.Second,
			Completion: 0.95,
		},
		TriggerPoll:    250 * time.Millisecond,
		LatencyWarning: 200 * time.Millisecond,
	}
}

// env is the evaluation environment of conditional orders.
func env(snapshot model.Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"price":  snapshot.Price,
		"bid":    snapshot.Bid,
		"ask":    snapshot.Ask,
		"volume": snapshot.Volume,
		"spread": snapshot.Spread(),
	}
}

// CompileCondition compiles the condition of a conditional order.
// Conditions are boolean expressions over price, bid, ask, volume and spread e.g. 'price < 95 && spread < 0.5'.
func CompileCondition(condition string) (*vm.Program, error) {
	program, err := expr.Compile(condition, expr.Env(env(model.Snapshot{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("could not compile condition '%s': %w", condition, err)
	}
	return program, nil
}

// Evaluate evaluates the compiled condition against the snapshot.
func Evaluate(program *vm.Program, snapshot model.Snapshot) (bool, error) {
	out, err := expr.Run(program, env(snapshot))
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ErrCancelled
	case <-timer.C:
		return nil
	}
}
