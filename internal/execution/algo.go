package execution

import (
	"context"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/drakos74/smart-exec/internal/model"
)

// pricer decides the execution price of an order attempt.
type pricer func(ctx context.Context, order model.Order) (float64, error)

// aggressive crosses the spread paying a premium over the opposite touch.
func (d *Dispatcher) aggressive(ctx context.Context, order model.Order) (float64, error) {
	snapshot, ok := d.market.Snapshot(order.Instrument)
	if !ok {
		return 0, ErrNoMarketData
	}
	if order.Side == model.Sell {
		return snapshot.Bid * (1 - d.config.AggressivePremium), nil
	}
	return snapshot.Ask * (1 + d.config.AggressivePremium), nil
}

// passive waits and then joins the same side touch.
func (d *Dispatcher) passive(ctx context.Context, order model.Order) (float64, error) {
	if err := sleep(ctx, d.config.PassiveWait); err != nil {
		return 0, err
	}
	snapshot, ok := d.market.Snapshot(order.Instrument)
	if !ok {
		return 0, ErrNoMarketData
	}
	return snapshot.Touch(order.Side), nil
}

// balanced prices in the middle of the last trade and the opposite touch.
func (d *Dispatcher) balanced(ctx context.Context, order model.Order) (float64, error) {
	snapshot, ok := d.market.Snapshot(order.Instrument)
	if !ok {
		return 0, ErrNoMarketData
	}
	return (snapshot.Price + snapshot.Opposite(order.Side)) / 2, nil
}

// vwap prices at the mean of the recent prices, falling back to balanced for a short history.
func (d *Dispatcher) vwap(ctx context.Context, order model.Order) (float64, error) {
	prices := d.market.Prices(order.Instrument)
	if len(prices) < d.config.VWAPWindow {
		return d.balanced(ctx, order)
	}
	return stat.Mean(prices[len(prices)-d.config.VWAPWindow:], nil), nil
}

// current prices at the last trade.
func (d *Dispatcher) current(ctx context.Context, order model.Order) (float64, error) {
	snapshot, ok := d.market.Snapshot(order.Instrument)
	if !ok {
		return 0, ErrNoMarketData
	}
	return snapshot.Price, nil
}

// Slices splits the quantity into equal slices summing exactly to it.
func Slices(quantity float64, config TWAPConfig, minSplitSize float64) []float64 {
	n := config.MinSlices
	if minSplitSize > 0 {
		if s := int(quantity / minSplitSize); s > n {
			n = s
		}
	}
	if n > config.MaxSlices {
		n = config.MaxSlices
	}
	if n < 1 {
		n = 1
	}

	total := decimal.NewFromFloat(quantity)
	slice := total.Div(decimal.NewFromInt(int64(n))).Truncate(8)
	slices := make([]float64, n)
	rest := total
	for i := 0; i < n-1; i++ {
		slices[i] = slice.InexactFloat64()
		rest = rest.Sub(slice)
	}
	slices[n-1] = rest.InexactFloat64()
	return slices
}

// twap executes the quantity in time spaced slices, each at the then current price.
func (d *Dispatcher) twap(ctx context.Context, order model.Order, quantity float64, ledger Ledger) Result {
	slices := Slices(quantity, d.config.TWAP, d.slippage.MinSplitSize)
	filled := decimal.Zero
	reason := ""
	for i, q := range slices {
		if ctx.Err() != nil {
			reason = ErrCancelled.Error()
			break
		}
		err := d.attempt(ctx, order, q, d.current, ledger)
		if err == nil {
			filled = filled.Add(decimal.NewFromFloat(q))
		} else if !recoverable(err) {
			reason = err.Error()
			break
		} else {
			reason = err.Error()
		}
		if i < len(slices)-1 {
			if err := sleep(ctx, d.config.TWAP.Interval); err != nil {
				reason = err.Error()
				break
			}
		}
	}
	done := filled.InexactFloat64()
	target := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(d.config.TWAP.Completion))
	success := done > 0 && filled.GreaterThanOrEqual(target)
	if success {
		reason = ""
	}
	return Result{
		Success: success,
		Filled:  done,
		Reason:  reason,
	}
}
