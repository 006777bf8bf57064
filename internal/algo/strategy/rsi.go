package strategy

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"github.com/drakos74/smart-exec/internal/model"
)

// RSI signals oversold and overbought conditions of the relative strength index.
type RSI struct {
	period     int
	oversold   float64
	overbought float64
	history    *series
}

// NewRSI creates a new RSI engine.
func NewRSI(period int, oversold, overbought float64) *RSI {
	return &RSI{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
		history:    newSeries(period + 1),
	}
}

func (r *RSI) Name() string {
	return RSIName
}

func (r *RSI) Generate(ctx context.Context, snapshot model.Snapshot) (*model.TradingSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prices := r.history.push(snapshot.Instrument, snapshot.Price)
	if len(prices) < r.period+1 {
		return nil, nil
	}

	rsi := CalcRSI(prices[len(prices)-r.period-1:])

	signal := newSignal(RSIName, snapshot, model.SignalHold, 0.5, 0.7)
	switch {
	case rsi <= r.oversold:
		signal.Direction = model.SignalBuy
		signal.Strength = clamp((r.oversold-rsi)/r.oversold+0.5, 0, 1)
		signal.Confidence = 0.8
	case rsi >= r.overbought:
		signal.Direction = model.SignalSell
		signal.Strength = clamp((rsi-r.overbought)/(100-r.overbought)+0.5, 0, 1)
		signal.Confidence = 0.8
	}
	signal.Metadata["rsi"] = rsi
	return signal, nil
}

// CalcRSI calculates the RSI on the differences of the given prices.
// A window without losses yields 100.
func CalcRSI(prices []float64) float64 {
	if len(prices) < 2 {
		return 50
	}
	gains := make([]float64, len(prices)-1)
	losses := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gains[i-1] = d
		} else {
			losses[i-1] = -d
		}
	}
	avgGain := stat.Mean(gains, nil)
	avgLoss := stat.Mean(losses, nil)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
