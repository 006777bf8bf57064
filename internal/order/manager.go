package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/drakos74/smart-exec/internal/buffer"
	"github.com/drakos74/smart-exec/internal/bus"
	"github.com/drakos74/smart-exec/internal/concurrent"
	"github.com/drakos74/smart-exec/internal/execution"
	"github.com/drakos74/smart-exec/internal/metrics"
	"github.com/drakos74/smart-exec/internal/model"
	"github.com/drakos74/smart-exec/internal/storage"
	cointime "github.com/drakos74/smart-exec/internal/time"
)

const (
	executionsLabel = "executions"
	// epsilon absorbs the float rounding of sliced fills
	epsilon = 1e-9
)

// Config configures the order lifecycle.
type Config struct {
	LimitDeviation       float64       `yaml:"limit_deviation" json:"limit_deviation" validate:"gt=0,lte=1"`
	MonitorInterval      time.Duration `yaml:"monitor_interval" json:"monitor_interval" validate:"gt=0"`
	HistorySize          int           `yaml:"history_size" json:"history_size" validate:"gt=0"`
	ExecutionLogSize     int           `yaml:"execution_log_size" json:"execution_log_size" validate:"gte=0"`
	SubmitLatencyWarning time.Duration `yaml:"submit_latency_warning" json:"submit_latency_warning" validate:"gt=0"`
	DayLength            time.Duration `yaml:"day_length" json:"day_length" validate:"gte=0"`
}

// DefaultConfig returns the default lifecycle parameters.
func DefaultConfig() Config {
	return Config{
		LimitDeviation:       0.10,
		MonitorInterval:      time.Second,
		HistorySize:          10000,
		ExecutionLogSize:     10000,
		SubmitLatencyWarning: 50 * time.Millisecond,
	}
}

// Executor drives an order to completion.
type Executor interface {
	Execute(ctx context.Context, order model.Order, ledger execution.Ledger) execution.Result
}

// Statistics summarises the order flow.
type Statistics struct {
	TotalOrders          uint64                  `json:"total_orders"`
	Rejected             uint64                  `json:"rejected"`
	SuccessfulExecutions uint64                  `json:"successful_executions"`
	SuccessRate          float64                 `json:"success_rate"`
	AvgExecutionLatency  time.Duration           `json:"avg_execution_latency"`
	ExecutionLatency     metrics.LatencySnapshot `json:"execution_latency"`
	AvgSlippage          float64                 `json:"avg_slippage"`
	Fills                uint64                  `json:"fills"`
	// ActiveOrders counts all live orders, including the idle ones.
	ActiveOrders         int                     `json:"active_order_count"`
	// IdleOrders are live orders whose execution failed.
	// They stay live until they are cancelled or expire.
	IdleOrders           int                     `json:"idle_order_count"`
}

// entry is a live order.
// Its lock guards the order, so that fills, cancellation and expiry never write concurrently.
type entry struct {
	lock     *sync.Mutex
	order    model.Order
	filled   decimal.Decimal
	notional decimal.Decimal
	slippage float64
	fills    int
	cancel   context.CancelFunc
	// idle is set once the execution task gave up on a live order.
	idle bool
}

func (e *entry) get() model.Order {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.order
}

// Manager owns the lifecycle of all orders.
type Manager struct {
	config     Config
	slippage   model.SlippageControl
	market     execution.Market
	validator  *Validator
	executor   Executor
	bus        *bus.Bus
	registry   storage.Registry[model.Execution]
	ctx        context.Context
	stop       context.CancelFunc
	lock       *sync.RWMutex
	active     map[string]*entry
	closed     bool
	historyMtx *sync.RWMutex
	history    *buffer.Ring[model.Order]
	tasks      *sync.WaitGroup
	now        func() time.Time

	total        uint64
	rejected     uint64
	successful   uint64
	fills        uint64
	slippageLock *sync.Mutex
	slippageSum  float64
	latency      *metrics.LatencyStats
}

// NewManager creates a new order lifecycle manager.
func NewManager(config Config, slippage model.SlippageControl, market execution.Market, executor Executor, b *bus.Bus, registry storage.Registry[model.Execution]) *Manager {
	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		config:       config,
		slippage:     slippage,
		market:       market,
		validator:    NewValidator(config.LimitDeviation, slippage),
		executor:     executor,
		bus:          b,
		registry:     registry,
		ctx:          ctx,
		stop:         stop,
		lock:         new(sync.RWMutex),
		active:       make(map[string]*entry),
		historyMtx:   new(sync.RWMutex),
		history:      buffer.NewRing[model.Order](config.HistorySize),
		tasks:        new(sync.WaitGroup),
		now:          time.Now,
		slippageLock: new(sync.Mutex),
		latency:      new(metrics.LatencyStats),
	}
}

// NewID creates an order id e.g. 'AAPL_buy_1617181920000_3f2a9c1b'.
func NewID(instrument string, side model.Side, now time.Time) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s_%s_%d_%s", instrument, side, cointime.ToMilli(now), hex[:8])
}

// expiry returns the expiry time of the order, or zero if it does not expire.
func (m *Manager) expiry(request model.Request, now time.Time) time.Time {
	if request.Expiry > 0 {
		return now.Add(request.Expiry)
	}
	if request.TimeInForce != model.Day {
		return time.Time{}
	}
	if m.config.DayLength > 0 {
		return now.Add(m.config.DayLength)
	}
	return cointime.NextMidnight(now)
}

// Submit validates the order and starts its execution.
// Rejected orders still get an id, their status resolves to rejected.
// An error is returned only if the request cannot become an order at all.
func (m *Manager) Submit(request model.Request) (string, error) {
	start := m.now()
	instrument := model.Instrument(request.Instrument)
	if instrument == "" {
		return "", ErrMissingInstrument
	}

	maxSlippage := request.MaxSlippage
	if maxSlippage == 0 {
		maxSlippage = m.slippage.MaxSlippage
	}
	order := model.Order{
		ID:              NewID(instrument, request.Side, start),
		Instrument:      instrument,
		Side:            request.Side,
		Kind:            request.Kind,
		Quantity:        request.Quantity,
		Price:           request.Price,
		StopPrice:       request.StopPrice,
		Condition:       request.Condition,
		VisibleQuantity: request.VisibleQuantity,
		Algo:            request.Algo,
		MaxSlippage:     maxSlippage,
		TimeInForce:     request.TimeInForce,
		Status:          model.Pending,
		CreatedAt:       start,
		UpdatedAt:       start,
		ExpiresAt:       m.expiry(request, start),
	}

	m.lock.RLock()
	closed := m.closed
	m.lock.RUnlock()
	if closed {
		return "", ErrClosed
	}
	atomic.AddUint64(&m.total, 1)

	snapshot, ok := m.market.Snapshot(instrument)
	rejection := m.validator.Validate(order, snapshot, ok)
	if rejection == nil {
		rejection = m.validator.CheckSlippage(order, snapshot)
	}
	if rejection == nil {
		rejection = m.validator.CheckSize(&order, snapshot)
	}
	if rejection != nil {
		m.rejectOrder(order, *rejection)
		return order.ID, nil
	}

	if err := Transition(order.Status, model.Submitted); err != nil {
		return "", err
	}
	order.Status = model.Submitted
	ctx, cancel := context.WithCancel(m.ctx)
	e := &entry{
		lock:   new(sync.Mutex),
		order:  order,
		cancel: cancel,
	}

	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		cancel()
		return "", ErrClosed
	}
	m.active[order.ID] = e
	m.tasks.Add(1)
	m.lock.Unlock()

	metrics.Observer.Status(order.Status.String())
	m.publish(order)

	go m.execute(ctx, e)

	latency := m.now().Sub(start)
	if latency > m.config.SubmitLatencyWarning {
		log.Warn().Str("order", order.ID).Dur("latency", latency).Msg("slow submission")
	}
	log.Info().
		Str("order", order.ID).
		Str("instrument", order.Instrument).
		Str("side", order.Side.String()).
		Str("kind", order.Kind.String()).
		Str("algo", order.Algo.String()).
		Float64("quantity", order.Quantity).
		Msg("order accepted")
	return order.ID, nil
}

func (m *Manager) rejectOrder(order model.Order, rejection Rejection) {
	if err := Transition(order.Status, model.Rejected); err != nil {
		log.Error().Err(err).Str("order", order.ID).Msg("could not reject order")
		return
	}
	order.Status = model.Rejected
	order.Reason = rejection.String()
	order.UpdatedAt = m.now()
	m.archive(order)
	atomic.AddUint64(&m.rejected, 1)
	metrics.Observer.Reject(rejection.Reason)
	metrics.Observer.Status(order.Status.String())
	m.publish(order)
	log.Warn().
		Str("order", order.ID).
		Str("reason", rejection.Reason).
		Str("detail", rejection.Detail).
		Msg("order rejected")
}

// execute is the single execution task of the order.
func (m *Manager) execute(ctx context.Context, e *entry) {
	defer m.tasks.Done()
	defer e.cancel()

	start := m.now()
	var result execution.Result
	if err := concurrent.Supervise(e.get().ID, func() error {
		result = m.executor.Execute(ctx, e.get(), m)
		return nil
	}); err != nil {
		result = execution.Result{Reason: err.Error()}
	}
	m.latency.Observe(m.now().Sub(start))

	e.lock.Lock()
	order := e.order
	changed := false
	if order.Status.IsLive() {
		switch {
		case result.Success:
			changed = m.close(&order, model.Cancelled, "residual")
		case order.TimeInForce == model.IOC || order.TimeInForce == model.FOK:
			changed = m.close(&order, model.Cancelled, order.TimeInForce.String())
		default:
			e.idle = true
			log.Warn().
				Str("order", order.ID).
				Str("status", order.Status.String()).
				Str("reason", result.Reason).
				Float64("filled", order.Filled).
				Msg("execution failed, order stays live without an execution task")
		}
		e.order = order
	}
	e.lock.Unlock()

	if result.Success {
		atomic.AddUint64(&m.successful, 1)
	}
	if changed {
		metrics.Observer.Status(order.Status.String())
		m.publish(order)
	}
	if order.Status.IsTerminal() {
		m.retire(order)
	}
}

// close moves the order to a terminal status, returning false if it is not allowed to.
func (m *Manager) close(order *model.Order, status model.Status, reason string) bool {
	if err := Transition(order.Status, status); err != nil {
		return false
	}
	order.Status = status
	order.Reason = reason
	order.UpdatedAt = m.now()
	return true
}

// Apply applies a fill to its order.
func (m *Manager) Apply(exec model.Execution) error {
	m.lock.RLock()
	e, ok := m.active[exec.OrderID]
	m.lock.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", exec.OrderID, ErrUnknownOrder)
	}

	if !model.Positive(exec.Quantity) || !model.Positive(exec.Price) || !model.Finite(exec.Slippage) {
		return fmt.Errorf("%s: %v at %v: %w", exec.OrderID, exec.Quantity, exec.Price, ErrInvalidFill)
	}

	e.lock.Lock()
	order := e.order
	if !order.Status.IsLive() {
		e.lock.Unlock()
		return fmt.Errorf("%s is %s: %w", order.ID, order.Status, ErrInvalidTransition)
	}
	quantity := decimal.NewFromFloat(exec.Quantity)
	total := decimal.NewFromFloat(order.Quantity)
	filled := e.filled.Add(quantity)
	if !quantity.IsPositive() || filled.Sub(total).InexactFloat64() > epsilon {
		e.lock.Unlock()
		return fmt.Errorf("%s: %v on %v/%v: %w", order.ID, exec.Quantity, order.Filled, order.Quantity, ErrInvalidFill)
	}
	status := model.Partial
	if total.Sub(filled).InexactFloat64() <= epsilon {
		filled = total
		status = model.Filled
	}
	if err := Transition(order.Status, status); err != nil {
		e.lock.Unlock()
		return err
	}
	e.filled = filled
	e.notional = e.notional.Add(quantity.Mul(decimal.NewFromFloat(exec.Price)))
	e.fills++
	e.slippage += exec.Slippage
	order.Status = status
	order.Filled = filled.InexactFloat64()
	order.AvgFillPrice = e.notional.Div(filled).InexactFloat64()
	order.Notional = e.notional.InexactFloat64()
	order.Slippage = e.slippage / float64(e.fills)
	order.UpdatedAt = m.now()
	e.order = order
	e.lock.Unlock()

	atomic.AddUint64(&m.fills, 1)
	m.slippageLock.Lock()
	m.slippageSum += exec.Slippage
	m.slippageLock.Unlock()

	if err := m.registry.Add(storage.K{Pair: exec.Instrument, Label: executionsLabel}, exec); err != nil {
		log.Error().Err(err).Str("execution", exec.ID).Msg("could not log execution")
	}
	metrics.Observer.Fill(exec.Algo.String())
	metrics.Observer.Status(order.Status.String())
	if err := m.bus.Executions.Publish(exec); err != nil {
		log.Debug().Err(err).Str("execution", exec.ID).Msg("execution not published")
	}
	m.publish(order)
	if order.Status == model.Filled {
		e.cancel()
		m.retire(order)
	}
	log.Info().
		Str("order", order.ID).
		Str("instrument", exec.Instrument).
		Str("side", exec.Side.String()).
		Float64("quantity", exec.Quantity).
		Float64("price", exec.Price).
		Float64("slippage", exec.Slippage).
		Str("status", order.Status.String()).
		Msg("fill")
	return nil
}

// Cancel cancels a live order. It returns false if the order is unknown or already terminal.
func (m *Manager) Cancel(id string, reason string) bool {
	return m.terminate(id, model.Cancelled, reason)
}

func (m *Manager) terminate(id string, status model.Status, reason string) bool {
	m.lock.RLock()
	e, ok := m.active[id]
	m.lock.RUnlock()
	if !ok {
		log.Warn().Str("order", id).Str("status", status.String()).Msg("order not active")
		return false
	}

	e.lock.Lock()
	order := e.order
	if !m.close(&order, status, reason) {
		e.lock.Unlock()
		return false
	}
	e.order = order
	e.lock.Unlock()
	e.cancel()

	metrics.Observer.Status(order.Status.String())
	m.publish(order)
	m.retire(order)
	log.Info().
		Str("order", id).
		Str("status", order.Status.String()).
		Str("reason", reason).
		Msg("order closed")
	return true
}

// retire moves a terminal order from the active map to the history.
func (m *Manager) retire(order model.Order) {
	m.lock.Lock()
	_, ok := m.active[order.ID]
	delete(m.active, order.ID)
	m.lock.Unlock()
	if ok {
		m.archive(order)
	}
}

func (m *Manager) archive(order model.Order) {
	m.historyMtx.Lock()
	defer m.historyMtx.Unlock()
	m.history.Push(order)
}

func (m *Manager) publish(order model.Order) {
	if err := m.bus.Statuses.Publish(order); err != nil {
		log.Debug().Err(err).Str("order", order.ID).Msg("status not published")
	}
}

// Status returns a copy of the order.
func (m *Manager) Status(id string) (model.Order, bool) {
	m.lock.RLock()
	e, ok := m.active[id]
	m.lock.RUnlock()
	if ok {
		return e.get(), true
	}
	m.historyMtx.RLock()
	defer m.historyMtx.RUnlock()
	return m.history.Find(func(o model.Order) bool {
		return o.ID == id
	})
}

// Executions returns the logged executions of the instrument.
func (m *Manager) Executions(instrument string) []model.Execution {
	executions, err := m.registry.GetAll(storage.K{Pair: model.Instrument(instrument), Label: executionsLabel})
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Error().Err(err).Str("instrument", instrument).Msg("could not load executions")
		}
		return []model.Execution{}
	}
	return executions
}

// OrderExecutions returns the logged executions of the order.
func (m *Manager) OrderExecutions(id string) ([]model.Execution, bool) {
	order, ok := m.Status(id)
	if !ok {
		return nil, false
	}
	executions, err := m.registry.GetFor(storage.K{Pair: order.Instrument, Label: executionsLabel}, func(exec model.Execution) bool {
		return exec.OrderID == id
	})
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Error().Err(err).Str("order", id).Msg("could not load executions")
		}
		return []model.Execution{}, true
	}
	return executions, true
}

// Active returns the number of live orders.
func (m *Manager) Active() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.active)
}

// Idle returns the number of live orders without an execution task.
func (m *Manager) Idle() int {
	m.lock.RLock()
	entries := make([]*entry, 0, len(m.active))
	for _, e := range m.active {
		entries = append(entries, e)
	}
	m.lock.RUnlock()
	var n int
	for _, e := range entries {
		e.lock.Lock()
		if e.idle {
			n++
		}
		e.lock.Unlock()
	}
	return n
}

// Statistics returns the order flow statistics.
func (m *Manager) Statistics() Statistics {
	total := atomic.LoadUint64(&m.total)
	successful := atomic.LoadUint64(&m.successful)
	fills := atomic.LoadUint64(&m.fills)
	latency := m.latency.Snapshot()

	stats := Statistics{
		TotalOrders:          total,
		Rejected:             atomic.LoadUint64(&m.rejected),
		SuccessfulExecutions: successful,
		AvgExecutionLatency:  latency.Avg,
		ExecutionLatency:     latency,
		Fills:                fills,
		ActiveOrders:         m.Active(),
		IdleOrders:           m.Idle(),
	}
	if total > 0 {
		stats.SuccessRate = float64(successful) / float64(total)
	}
	if fills > 0 {
		m.slippageLock.Lock()
		stats.AvgSlippage = m.slippageSum / float64(fills)
		m.slippageLock.Unlock()
	}
	return stats
}

// Sweep expires the live orders past their expiry time.
func (m *Manager) Sweep(now time.Time) []string {
	m.lock.RLock()
	candidates := make([]string, 0)
	for id, e := range m.active {
		if e.get().Expired(now) {
			candidates = append(candidates, id)
		}
	}
	m.lock.RUnlock()

	expired := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if m.terminate(id, model.Expired, "expired") {
			expired = append(expired, id)
		}
	}
	return expired
}

// Run monitors the live orders for expiry until the context is done or the manager shuts down.
func (m *Manager) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.ctx, cancel)
	defer stop()
	log.Info().Dur("interval", m.config.MonitorInterval).Msg("order monitor started")
	cointime.Every(ctx, "order-expiry", m.config.MonitorInterval, func(time.Time) error {
		m.Sweep(m.now())
		return nil
	})
	log.Info().Msg("order monitor stopped")
}

// Shutdown cancels all live orders and waits for their execution tasks.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		return nil
	}
	m.closed = true
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	m.lock.Unlock()

	for _, id := range ids {
		m.Cancel(id, "shutdown")
	}
	m.stop()

	done := make(chan struct{})
	go func() {
		m.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Int("cancelled", len(ids)).Msg("order manager stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for execution tasks: %w", ctx.Err())
	}
}
