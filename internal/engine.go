package coin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/drakos74/smart-exec/infra/config"
	"github.com/drakos74/smart-exec/internal/algo/fusion"
	"github.com/drakos74/smart-exec/internal/algo/strategy"
	"github.com/drakos74/smart-exec/internal/bus"
	"github.com/drakos74/smart-exec/internal/execution"
	"github.com/drakos74/smart-exec/internal/market"
	"github.com/drakos74/smart-exec/internal/model"
	"github.com/drakos74/smart-exec/internal/order"
	"github.com/drakos74/smart-exec/internal/storage"
)

const executionLog = "executions"

// Engine wires the market data, the strategies and the order flow together.
type Engine struct {
	config     config.Config
	cache      *market.Cache
	fusion     *fusion.Engine
	dispatcher *execution.Dispatcher
	orders     *order.Manager
	bus        *bus.Bus
	started    time.Time
	once       *sync.Once
}

// Statistics is the combined view of the order flow and the signal fusion.
type Statistics struct {
	order.Statistics
	Fusion      fusion.Statistics  `json:"fusion"`
	Instruments []string           `json:"instruments"`
	Strategies  map[string]float64 `json:"strategies"`
	Uptime      time.Duration      `json:"uptime"`
}

// NewEngine creates a new engine for the given config.
// The config is copied and stays unchanged for the lifetime of the engine.
func NewEngine(cfg config.Config) (*Engine, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("could not create engine: %w", err)
	}

	registry, err := executions(cfg.Orders.ExecutionLogSize)
	if err != nil {
		return nil, fmt.Errorf("could not create execution log: %w", err)
	}

	cache := market.NewCache(cfg.Market, cfg.Slippage.PriceBuffer)
	dispatcher := execution.NewDispatcher(cfg.Execution, cfg.Slippage, cache)
	b := bus.New()
	engine := &Engine{
		config:     cfg,
		cache:      cache,
		fusion:     fusion.NewEngine(cfg.Fusion),
		dispatcher: dispatcher,
		orders:     order.NewManager(cfg.Orders, cfg.Slippage, cache, dispatcher, b, registry),
		bus:        b,
		started:    time.Now(),
		once:       new(sync.Once),
	}

	for _, s := range cfg.Strategies {
		st, err := strategy.New(s)
		if err != nil {
			return nil, fmt.Errorf("could not create strategy: %w", err)
		}
		if err := engine.AddStrategy(st, s.Weight); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

func executions(size int) (storage.Registry[model.Execution], error) {
	if size == 0 {
		return storage.VoidEventRegistry[model.Execution]()(executionLog)
	}
	return storage.MemoryEventRegistry[model.Execution](size)(executionLog)
}

// AddStrategy registers a strategy with its fusion weight.
func (e *Engine) AddStrategy(s strategy.Engine, weight float64) error {
	if err := e.fusion.Register(s, weight); err != nil {
		return fmt.Errorf("could not register strategy: %w", err)
	}
	return nil
}

// SetWeight updates the fusion weight of a registered strategy.
func (e *Engine) SetWeight(name string, weight float64) error {
	return e.fusion.SetWeight(name, weight)
}

// UpdateMarketData stores the market update and runs the strategies on it.
// It returns nil if no strategy had anything to say.
func (e *Engine) UpdateMarketData(ctx context.Context, instrument string, price, bid, ask, volume float64) (*model.FusedSignal, error) {
	snapshot, err := e.cache.Update(instrument, price, bid, ask, volume)
	if err != nil {
		return nil, fmt.Errorf("could not update market data: %w", err)
	}
	signal, ok := e.fusion.Process(ctx, snapshot)
	if !ok {
		return nil, nil
	}
	if err := e.bus.Signals.Publish(*signal); err != nil {
		log.Debug().Err(err).Str("instrument", signal.Instrument).Msg("signal not published")
	}
	if signal.Direction != model.SignalHold {
		log.Debug().
			Str("instrument", signal.Instrument).
			Str("direction", signal.Direction.String()).
			Float64("strength", signal.Strength).
			Float64("confidence", signal.Confidence).
			Bool("conflict", signal.Conflict).
			Msg("signal")
	}
	return signal, nil
}

// Snapshot returns the latest market state of the instrument.
func (e *Engine) Snapshot(instrument string) (model.Snapshot, bool) {
	return e.cache.Snapshot(instrument)
}

// Submit submits a new order.
func (e *Engine) Submit(request *model.Request) (string, error) {
	if request == nil {
		return "", order.ErrMissingInstrument
	}
	return e.orders.Submit(*request)
}

// Cancel cancels a live order.
func (e *Engine) Cancel(id string) bool {
	return e.orders.Cancel(id, "user")
}

// Status returns the current state of the order.
func (e *Engine) Status(id string) (model.Order, bool) {
	return e.orders.Status(id)
}

// Executions returns the logged executions of the instrument.
func (e *Engine) Executions(instrument string) []model.Execution {
	return e.orders.Executions(instrument)
}

// OrderExecutions returns the executions of the order, if it is known.
func (e *Engine) OrderExecutions(id string) ([]model.Execution, bool) {
	return e.orders.OrderExecutions(id)
}

// OnExecution registers a callback for every fill.
func (e *Engine) OnExecution(callback bus.Callback[model.Execution]) {
	e.bus.Executions.Subscribe(callback)
}

// OnStatus registers a callback for every order status change.
func (e *Engine) OnStatus(callback bus.Callback[model.Order]) {
	e.bus.Statuses.Subscribe(callback)
}

// OnSignal registers a callback for every fused signal.
func (e *Engine) OnSignal(callback bus.Callback[model.FusedSignal]) {
	e.bus.Signals.Subscribe(callback)
}

// Statistics returns the engine statistics.
func (e *Engine) Statistics() Statistics {
	weights := e.fusion.Weights()
	strategies := make(map[string]float64, len(weights))
	for id, w := range weights {
		strategies[string(id)] = w.Value
	}
	return Statistics{
		Statistics:  e.orders.Statistics(),
		Fusion:      e.fusion.Statistics(),
		Instruments: e.cache.Instruments(),
		Strategies:  strategies,
		Uptime:      time.Since(e.started),
	}
}

// Run runs the market data sweeper and the order expiry monitor until the context is done.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.cache.Run(ctx)
		return nil
	})
	g.Go(func() error {
		e.orders.Run(ctx)
		return nil
	})
	log.Info().
		Int("strategies", len(e.fusion.Weights())).
		Msg("engine started")
	return g.Wait()
}

// Shutdown cancels all live orders and stops the callbacks.
func (e *Engine) Shutdown(ctx context.Context) error {
	var err error
	e.once.Do(func() {
		err = e.orders.Shutdown(ctx)
		e.bus.Close()
		log.Info().Err(err).Msg("engine stopped")
	})
	return err
}
