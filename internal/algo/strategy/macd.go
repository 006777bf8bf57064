package strategy

import (
	"context"
	"math"

	"github.com/drakos74/smart-exec/internal/model"
)

// MACD signals the crossing of the MACD line over its signal line.
type MACD struct {
	fast    int
	slow    int
	signal  int
	history *series
}

// NewMACD creates a new MACD engine.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:    fast,
		slow:    slow,
		signal:  signal,
		history: newSeries(slow + signal + 10),
	}
}

func (m *MACD) Name() string {
	return MACDName
}

func (m *MACD) Generate(ctx context.Context, snapshot model.Snapshot) (*model.TradingSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prices := m.history.push(snapshot.Instrument, snapshot.Price)
	if len(prices) < m.slow+m.signal {
		return nil, nil
	}

	fast := EWM(prices, m.fast)
	slow := EWM(prices, m.slow)
	line := make([]float64, len(prices))
	for i := range prices {
		line[i] = fast[i] - slow[i]
	}
	signalLine := EWM(line, m.signal)

	n := len(prices) - 1
	macd := line[n]
	sig := signalLine[n]
	hist := macd - sig
	prev := line[n-1] - signalLine[n-1]

	signal := newSignal(MACDName, snapshot, model.SignalHold, 0.5, 0.7)
	switch {
	case macd > sig && hist > 0 && prev <= 0:
		signal.Direction = model.SignalBuy
		signal.Strength = clamp(math.Abs(hist)*10+0.6, 0, 1)
		signal.Confidence = 0.8
	case macd < sig && hist < 0 && prev >= 0:
		signal.Direction = model.SignalSell
		signal.Strength = clamp(math.Abs(hist)*10+0.6, 0, 1)
		signal.Confidence = 0.8
	}
	signal.Metadata["macd"] = macd
	signal.Metadata["signal"] = sig
	signal.Metadata["histogram"] = hist
	return signal, nil
}

// EWM is the exponentially weighted moving average for the given span,
// with the weights of the early values adjusted so that the first element equals the first value.
func EWM(values []float64, span int) []float64 {
	alpha := 2 / (float64(span) + 1)
	decay := 1 - alpha
	ewm := make([]float64, len(values))
	num, den := 0.0, 0.0
	for i, v := range values {
		num = v + decay*num
		den = 1 + decay*den
		ewm[i] = num / den
	}
	return ewm
}
