package strategy

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"github.com/drakos74/smart-exec/internal/model"
)

const threshold = 0.1

// scoreSignal turns a score in [-1,1] into a signal.
func scoreSignal(name string, snapshot model.Snapshot, score float64) *model.TradingSignal {
	direction := model.SignalHold
	if score > threshold {
		direction = model.SignalBuy
	} else if score < -threshold {
		direction = model.SignalSell
	}
	strength := score
	if strength < 0 {
		strength = -strength
	}
	signal := newSignal(name, snapshot, direction, clamp(strength, 0, 1), 0.8)
	signal.Metadata["score"] = score
	return signal
}

// Momentum follows the last price move.
type Momentum struct {
	window  int
	scale   float64
	history *series
}

// NewMomentum creates a new momentum engine.
func NewMomentum(window int, scale float64) *Momentum {
	if window < 2 {
		window = 2
	}
	return &Momentum{
		window:  window,
		scale:   scale,
		history: newSeries(window),
	}
}

func (m *Momentum) Name() string {
	return MomentumName
}

func (m *Momentum) Generate(ctx context.Context, snapshot model.Snapshot) (*model.TradingSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prices := m.history.push(snapshot.Instrument, snapshot.Price)
	n := len(prices)
	if n < m.window {
		return nil, nil
	}
	momentum := (prices[n-1] - prices[n-2]) / prices[n-2]
	return scoreSignal(MomentumName, snapshot, clamp(momentum*m.scale, -1, 1)), nil
}

// MeanReversion bets on the price returning to its recent mean.
type MeanReversion struct {
	window  int
	scale   float64
	history *series
}

// NewMeanReversion creates a new mean reversion engine.
func NewMeanReversion(window int, scale float64) *MeanReversion {
	return &MeanReversion{
		window:  window,
		scale:   scale,
		history: newSeries(window),
	}
}

func (m *MeanReversion) Name() string {
	return MeanReversionName
}

func (m *MeanReversion) Generate(ctx context.Context, snapshot model.Snapshot) (*model.TradingSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prices := m.history.push(snapshot.Instrument, snapshot.Price)
	if len(prices) < m.window {
		return nil, nil
	}
	avg := stat.Mean(prices, nil)
	deviation := (prices[len(prices)-1] - avg) / avg
	return scoreSignal(MeanReversionName, snapshot, clamp(-deviation*m.scale, -1, 1)), nil
}

// VolumeConfirmation signals volume spikes against the recent average.
type VolumeConfirmation struct {
	window  int
	history *series
}

// NewVolumeConfirmation creates a new volume engine.
func NewVolumeConfirmation(window int) *VolumeConfirmation {
	if window < 2 {
		window = 2
	}
	return &VolumeConfirmation{
		window:  window,
		history: newSeries(window),
	}
}

func (v *VolumeConfirmation) Name() string {
	return VolumeConfirmationName
}

func (v *VolumeConfirmation) Generate(ctx context.Context, snapshot model.Snapshot) (*model.TradingSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	volumes := v.history.push(snapshot.Instrument, snapshot.Volume)
	n := len(volumes)
	if n < v.window {
		return nil, nil
	}
	avg := stat.Mean(volumes[:n-1], nil)
	if avg <= 0 {
		return scoreSignal(VolumeConfirmationName, snapshot, 0), nil
	}
	return scoreSignal(VolumeConfirmationName, snapshot, clamp((volumes[n-1]-avg)/avg, -1, 1)), nil
}
