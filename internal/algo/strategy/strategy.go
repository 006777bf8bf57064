package strategy

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/drakos74/smart-exec/internal/buffer"
	"github.com/drakos74/smart-exec/internal/model"
)

// Engine produces a trading signal for a market update.
// A nil signal means the engine has nothing to say, most often because its history is still too short.
// Engines keep per instrument state and must be safe for concurrent use across instruments.
type Engine interface {
	Name() string
	Generate(ctx context.Context, snapshot model.Snapshot) (*model.TradingSignal, error)
}

const (
	RSIName                = "RSI"
	MACDName               = "MACD"
	SMAName                = "SMA"
	MomentumName           = "Momentum"
	MeanReversionName      = "MeanReversion"
	VolumeConfirmationName = "VolumeConfirmation"
)

// Config registers a strategy with its fusion weight.
type Config struct {
	Name   string             `yaml:"name" json:"name" validate:"required"`
	Weight float64            `yaml:"weight" json:"weight" validate:"gte=0"`
	Params map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
}

// Defaults returns the default strategy set.
func Defaults() []Config {
	return []Config{
		{Name: RSIName, Weight: 1.0},
		{Name: MACDName, Weight: 1.2},
		{Name: SMAName, Weight: 0.8},
	}
}

func (c Config) param(key string, def float64) float64 {
	if v, ok := c.Params[key]; ok {
		return v
	}
	return def
}

func (c Config) window(key string, def int) int {
	return int(c.param(key, float64(def)))
}

// New creates the engine for the given config.
func New(config Config) (Engine, error) {
	var engine Engine
	switch config.Name {
	case RSIName:
		engine = NewRSI(config.window("period", 14), config.param("oversold", 30), config.param("overbought", 70))
	case MACDName:
		engine = NewMACD(config.window("fast", 12), config.window("slow", 26), config.window("signal", 9))
	case SMAName:
		engine = NewSMA(config.window("short", 10), config.window("long", 20))
	case MomentumName:
		engine = NewMomentum(config.window("window", 5), config.param("scale", 10))
	case MeanReversionName:
		engine = NewMeanReversion(config.window("window", 10), config.param("scale", 5))
	case VolumeConfirmationName:
		engine = NewVolumeConfirmation(config.window("window", 5))
	default:
		return nil, fmt.Errorf("unknown strategy '%s'", config.Name)
	}
	return engine, nil
}

// series keeps a bounded history per instrument.
type series struct {
	size   int
	lock   *sync.Mutex
	values map[string]*buffer.Buffer
}

func newSeries(size int) *series {
	return &series{
		size:   size,
		lock:   new(sync.Mutex),
		values: make(map[string]*buffer.Buffer),
	}
}

// push appends the value to the instrument history and returns a copy of it.
func (s *series) push(instrument string, v float64) []float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	b, ok := s.values[instrument]
	if !ok {
		b = buffer.NewBuffer(s.size)
		s.values[instrument] = b
	}
	b.Push(v)
	return b.Get()
}

func newSignal(name string, snapshot model.Snapshot, direction model.Direction, strength, confidence float64) *model.TradingSignal {
	return &model.TradingSignal{
		Instrument: snapshot.Instrument,
		Strategy:   name,
		Direction:  direction,
		Strength:   strength,
		Confidence: confidence,
		Price:      snapshot.Price,
		Time:       time.Now(),
		Metadata:   make(map[string]float64),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
