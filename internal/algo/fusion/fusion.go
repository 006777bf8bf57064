package fusion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/drakos74/smart-exec/internal/algo/strategy"
	"github.com/drakos74/smart-exec/internal/concurrent"
	"github.com/drakos74/smart-exec/internal/metrics"
	"github.com/drakos74/smart-exec/internal/model"
)

var (
	ErrNegativeWeight    = errors.New("negative or non-finite strategy weight")
	ErrDuplicateStrategy = errors.New("strategy already registered")
	ErrUnknownStrategy   = errors.New("unknown strategy")
)

// StrategyID identifies a registered strategy.
type StrategyID string

// Weight is the fusion weight of a registered strategy.
type Weight struct {
	Value float64
}

// Blend holds the coefficients of the fused confidence.
type Blend struct {
	Agreement  float64 `yaml:"agreement" json:"agreement" validate:"gte=0,lte=1"`
	Strength   float64 `yaml:"strength" json:"strength" validate:"gte=0,lte=1"`
	Confidence float64 `yaml:"confidence" json:"confidence" validate:"gte=0,lte=1"`
}

// Config configures the fusion engine.
type Config struct {
	Materiality   float64       `yaml:"materiality_threshold" json:"materiality_threshold" validate:"gte=0,lte=1"`
	Penalty       float64       `yaml:"conflict_penalty" json:"conflict_penalty" validate:"gt=0,lte=1"`
	Blend         Blend         `yaml:"blend" json:"blend"`
	LatencyTarget time.Duration `yaml:"latency_target" json:"latency_target" validate:"gt=0"`
	StatsWindow   int           `yaml:"stats_window" json:"stats_window" validate:"gt=0"`
}

// DefaultConfig returns the default fusion parameters.
func DefaultConfig() Config {
	return Config{
		Materiality: 0.3,
		Penalty:     0.8,
		Blend: Blend{
			Agreement:  0.4,
			Strength:   0.3,
			Confidence: 0.3,
		},
		LatencyTarget: 50 * time.Millisecond,
		StatsWindow:   1000,
	}
}

type registration struct {
	engine strategy.Engine
	weight Weight
}

type weighted struct {
	signal *model.TradingSignal
	weight float64
}

// Engine fans a market update out to all registered strategies and fuses their signals.
type Engine struct {
	config      Config
	lock        *sync.RWMutex
	order       []StrategyID
	strategies  map[StrategyID]registration
	instruments *instrumentLocks
	stats       *stats
}

// NewEngine creates a new fusion engine.
func NewEngine(config Config) *Engine {
	return &Engine{
		config:      config,
		lock:        new(sync.RWMutex),
		strategies:  make(map[StrategyID]registration),
		instruments: newInstrumentLocks(),
		stats:       newStats(config.StatsWindow),
	}
}

// Register adds a strategy with the given weight.
func (e *Engine) Register(engine strategy.Engine, weight float64) error {
	if !(weight >= 0) || math.IsInf(weight, 1) {
		return fmt.Errorf("%s: %f: %w", engine.Name(), weight, ErrNegativeWeight)
	}
	id := StrategyID(engine.Name())
	e.lock.Lock()
	defer e.lock.Unlock()
	if _, ok := e.strategies[id]; ok {
		return fmt.Errorf("%s: %w", id, ErrDuplicateStrategy)
	}
	e.strategies[id] = registration{
		engine: engine,
		weight: Weight{Value: weight},
	}
	e.order = append(e.order, id)
	log.Info().Str("strategy", string(id)).Float64("weight", weight).Msg("registered strategy")
	return nil
}

// SetWeight updates the weight of a registered strategy.
func (e *Engine) SetWeight(name string, weight float64) error {
	if !(weight >= 0) || math.IsInf(weight, 1) {
		return fmt.Errorf("%s: %f: %w", name, weight, ErrNegativeWeight)
	}
	id := StrategyID(name)
	e.lock.Lock()
	defer e.lock.Unlock()
	r, ok := e.strategies[id]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrUnknownStrategy)
	}
	r.weight = Weight{Value: weight}
	e.strategies[id] = r
	return nil
}

// Weights returns the current strategy weights.
func (e *Engine) Weights() map[StrategyID]Weight {
	e.lock.RLock()
	defer e.lock.RUnlock()
	weights := make(map[StrategyID]Weight, len(e.strategies))
	for id, r := range e.strategies {
		weights[id] = r.weight
	}
	return weights
}

func (e *Engine) registrations() []registration {
	e.lock.RLock()
	defer e.lock.RUnlock()
	rr := make([]registration, len(e.order))
	for i, id := range e.order {
		rr[i] = e.strategies[id]
	}
	return rr
}

// Process runs all strategies on the snapshot and fuses their signals.
// It returns false if no strategy produced a signal.
func (e *Engine) Process(ctx context.Context, snapshot model.Snapshot) (*model.FusedSignal, bool) {
	unlock := e.instruments.lock(snapshot.Instrument)
	defer unlock()

	start := time.Now()
	rr := e.registrations()
	signals := make([]*model.TradingSignal, len(rr))

	var g errgroup.Group
	for i, r := range rr {
		i, r := i, r
		g.Go(func() error {
			err := concurrent.Supervise(r.engine.Name(), func() error {
				s, err := r.engine.Generate(ctx, snapshot)
				if err != nil {
					return err
				}
				signals[i] = s
				return nil
			})
			if err != nil {
				log.Warn().Err(err).
					Str("strategy", r.engine.Name()).
					Str("instrument", snapshot.Instrument).
					Msg("strategy failed")
				metrics.Observer.StrategyError(r.engine.Name())
			}
			return nil
		})
	}
	_ = g.Wait()

	batch := make([]weighted, 0, len(rr))
	names := make([]string, 0, len(rr))
	weights := make(map[string]float64)
	for i, s := range signals {
		if s == nil {
			continue
		}
		batch = append(batch, weighted{signal: s, weight: rr[i].weight.Value})
		names = append(names, s.Strategy)
		weights[s.Strategy] = rr[i].weight.Value
	}
	if len(batch) == 0 {
		return nil, false
	}

	result, ok := fuse(batch, e.config)
	if !ok {
		return nil, false
	}
	sort.Strings(names)

	latency := time.Since(start)
	e.stats.add(latency, result.conflict)
	metrics.Observer.Fusion(result.direction.String(), result.conflict, latency)
	if latency > e.config.LatencyTarget {
		log.Warn().
			Str("instrument", snapshot.Instrument).
			Dur("latency", latency).
			Dur("target", e.config.LatencyTarget).
			Msg("slow fusion")
	}

	return &model.FusedSignal{
		Instrument: snapshot.Instrument,
		Direction:  result.direction,
		Strength:   result.strength,
		Confidence: result.confidence,
		Strategies: names,
		Weights:    weights,
		Conflict:   result.conflict,
		Latency:    latency,
		Time:       time.Now(),
	}, true
}

// Statistics returns the fusion performance statistics.
func (e *Engine) Statistics() Statistics {
	return e.stats.snapshot()
}

// instrumentLocks serializes the fusion passes of each instrument.
type instrumentLocks struct {
	mutex *sync.Mutex
	locks map[string]*sync.Mutex
}

func newInstrumentLocks() *instrumentLocks {
	return &instrumentLocks{
		mutex: new(sync.Mutex),
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *instrumentLocks) lock(instrument string) func() {
	l.mutex.Lock()
	m, ok := l.locks[instrument]
	if !ok {
		m = new(sync.Mutex)
		l.locks[instrument] = m
	}
	l.mutex.Unlock()
	m.Lock()
	return m.Unlock
}
