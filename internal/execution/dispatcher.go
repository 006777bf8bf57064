package execution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/drakos74/smart-exec/internal/metrics"
	"github.com/drakos74/smart-exec/internal/model"
)

// Dispatcher drives an order to completion with its execution algorithm.
type Dispatcher struct {
	config   Config
	slippage model.SlippageControl
	market   Market
	pricers  map[model.Algo]pricer
	now      func() time.Time
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(config Config, slippage model.SlippageControl, market Market) *Dispatcher {
	d := &Dispatcher{
		config:   config,
		slippage: slippage,
		market:   market,
		now:      time.Now,
	}
	d.pricers = map[model.Algo]pricer{
		model.Aggressive: d.aggressive,
		model.Passive:    d.passive,
		model.Balanced:   d.balanced,
		model.VWAP:       d.vwap,
	}
	return d
}

// Execute runs the execution task of the order, applying every fill through the ledger.
// Cancelling the context stops the task at the next wait, slice or clip.
func (d *Dispatcher) Execute(ctx context.Context, order model.Order, ledger Ledger) Result {
	start := d.now()
	result := d.execute(ctx, order, ledger)
	latency := d.now().Sub(start)
	metrics.Observer.Execution(latency)
	if latency > d.config.LatencyWarning {
		log.Warn().
			Str("order", order.ID).
			Dur("latency", latency).
			Msg("slow execution")
	}
	log.Info().
		Str("order", order.ID).
		Str("algo", order.Algo.String()).
		Bool("success", result.Success).
		Float64("filled", result.Filled).
		Str("reason", result.Reason).
		Dur("latency", latency).
		Msg("execution done")
	return result
}

func (d *Dispatcher) execute(ctx context.Context, order model.Order, ledger Ledger) Result {
	if err := d.trigger(ctx, order); err != nil {
		return Result{Reason: err.Error()}
	}
	if order.Kind == model.Iceberg {
		return d.iceberg(ctx, order, ledger)
	}
	return d.run(ctx, order, order.Remaining(), order.Algo, ledger)
}

func (d *Dispatcher) run(ctx context.Context, order model.Order, quantity float64, algo model.Algo, ledger Ledger) Result {
	if algo == model.TWAP {
		return d.twap(ctx, order, quantity, ledger)
	}
	price, ok := d.pricers[algo]
	if !ok {
		price = d.balanced
	}
	if err := d.attempt(ctx, order, quantity, price, ledger); err != nil {
		return Result{Reason: err.Error()}
	}
	return Result{Success: true, Filled: quantity}
}

// iceberg executes the order in clips of its visible quantity.
func (d *Dispatcher) iceberg(ctx context.Context, order model.Order, ledger Ledger) Result {
	algo := order.Algo
	if algo == model.TWAP {
		algo = model.Balanced
	}
	remaining := decimal.NewFromFloat(order.Remaining())
	visible := decimal.NewFromFloat(order.VisibleQuantity)
	filled := decimal.Zero
	for remaining.IsPositive() {
		clip := decimal.Min(visible, remaining)
		r := d.run(ctx, order, clip.InexactFloat64(), algo, ledger)
		if !r.Success {
			return Result{Filled: filled.InexactFloat64(), Reason: r.Reason}
		}
		filled = filled.Add(clip)
		remaining = remaining.Sub(clip)
		if remaining.IsPositive() {
			if err := sleep(ctx, d.slippage.SplitInterval); err != nil {
				return Result{Filled: filled.InexactFloat64(), Reason: err.Error()}
			}
		}
	}
	return Result{Success: true, Filled: filled.InexactFloat64()}
}

// attempt prices and fills the given quantity once.
func (d *Dispatcher) attempt(ctx context.Context, order model.Order, quantity float64, price pricer, ledger Ledger) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}
	p, err := price(ctx, order)
	if err != nil {
		return err
	}
	return d.fill(order, quantity, p, ledger)
}

// fill checks the price against the limit and the slippage tolerance and applies the fill.
func (d *Dispatcher) fill(order model.Order, quantity, price float64, ledger Ledger) error {
	snapshot, ok := d.market.Snapshot(order.Instrument)
	if !ok || !model.Positive(snapshot.Price) {
		return ErrNoMarketData
	}
	if !model.Positive(price) {
		return fmt.Errorf("%s at %f: %w", order.ID, price, ErrInvalidPrice)
	}

	if order.Kind.NeedsPrice() {
		through := (order.Side == model.Buy && price > order.Price) || (order.Side == model.Sell && price < order.Price)
		if through {
			if !d.slippage.AdaptivePricing {
				return fmt.Errorf("%f against limit %f: %w", price, order.Price, ErrLimitPrice)
			}
			price = order.Price
		}
	}

	slippage := math.Abs(price-snapshot.Price) / snapshot.Price
	if slippage > order.MaxSlippage {
		log.Warn().
			Str("order", order.ID).
			Float64("price", price).
			Float64("reference", snapshot.Price).
			Float64("slippage", slippage).
			Float64("max", order.MaxSlippage).
			Msg("fill discarded")
		metrics.Observer.Discard(order.Algo.String())
		return fmt.Errorf("%.4f > %.4f: %w", slippage, order.MaxSlippage, ErrSlippage)
	}

	var impact float64
	if snapshot.Volume > 0 {
		impact = quantity / snapshot.Volume
		if impact > d.slippage.MarketImpactLimit {
			log.Warn().
				Str("order", order.ID).
				Float64("impact", impact).
				Float64("limit", d.slippage.MarketImpactLimit).
				Msg("high market impact")
		}
	}

	return ledger.Apply(model.Execution{
		ID:           fmt.Sprintf("%s_%s", order.ID, uuid.New().String()),
		OrderID:      order.ID,
		Instrument:   order.Instrument,
		Side:         order.Side,
		Algo:         order.Algo,
		Quantity:     quantity,
		Price:        price,
		Reference:    snapshot.Price,
		Slippage:     slippage,
		Bid:          snapshot.Bid,
		Ask:          snapshot.Ask,
		Spread:       snapshot.Spread(),
		MarketImpact: impact,
		Time:         d.now(),
	})
}

// trigger blocks until the order can start executing.
func (d *Dispatcher) trigger(ctx context.Context, order model.Order) error {
	var check func(snapshot model.Snapshot) (bool, error)
	switch order.Kind {
	case model.Stop, model.StopLimit:
		check = func(snapshot model.Snapshot) (bool, error) {
			if order.Side == model.Sell {
				return snapshot.Price <= order.StopPrice, nil
			}
			return snapshot.Price >= order.StopPrice, nil
		}
	case model.Conditional:
		program, err := CompileCondition(order.Condition)
		if err != nil {
			return err
		}
		check = func(snapshot model.Snapshot) (bool, error) {
			return Evaluate(program, snapshot)
		}
	default:
		return nil
	}

	ticker := time.NewTicker(d.config.TriggerPoll)
	defer ticker.Stop()
	for {
		if snapshot, ok := d.market.Snapshot(order.Instrument); ok {
			triggered, err := check(snapshot)
			if err != nil {
				return err
			}
			if triggered {
				log.Info().
					Str("order", order.ID).
					Str("kind", order.Kind.String()).
					Float64("price", snapshot.Price).
					Msg("triggered")
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ErrCancelled
		case <-ticker.C:
		}
	}
}

// recoverable returns true for failures that only affect the current attempt.
func recoverable(err error) bool {
	return errors.Is(err, ErrSlippage) || errors.Is(err, ErrLimitPrice) || errors.Is(err, ErrNoMarketData)
}
