package strategy

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/drakos74/smart-exec/internal/model"
)

// SMA signals the crossing of a short over a long simple moving average.
type SMA struct {
	short   int
	long    int
	history *series
}

// NewSMA creates a new moving average crossover engine.
func NewSMA(short, long int) *SMA {
	return &SMA{
		short:   short,
		long:    long,
		history: newSeries(long + 10),
	}
}

func (s *SMA) Name() string {
	return SMAName
}

func (s *SMA) Generate(ctx context.Context, snapshot model.Snapshot) (*model.TradingSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prices := s.history.push(snapshot.Instrument, snapshot.Price)
	n := len(prices)
	if n < s.long {
		return nil, nil
	}

	short := stat.Mean(prices[n-s.short:], nil)
	long := stat.Mean(prices[n-s.long:], nil)
	prevShort, prevLong := short, long
	if n > s.short {
		prevShort = stat.Mean(prices[n-s.short-1:n-1], nil)
	}
	if n > s.long {
		prevLong = stat.Mean(prices[n-s.long-1:n-1], nil)
	}
	divergence := math.Abs(short-long) / long * 100

	signal := newSignal(SMAName, snapshot, model.SignalHold, 0.5, 0.6)
	switch {
	case short > long && prevShort <= prevLong:
		signal.Direction = model.SignalBuy
		signal.Strength = clamp(divergence+0.6, 0, 1)
		signal.Confidence = 0.75
	case short < long && prevShort >= prevLong:
		signal.Direction = model.SignalSell
		signal.Strength = clamp(divergence+0.6, 0, 1)
		signal.Confidence = 0.75
	}
	signal.Metadata["sma_short"] = short
	signal.Metadata["sma_long"] = long
	signal.Metadata["divergence_pct"] = divergence
	return signal, nil
}
