package main

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drakos74/smart-exec/infra/config"
	"github.com/drakos74/smart-exec/internal/model"
)

func TestFeed(t *testing.T) {
	f := newFeed([]string{"aapl", "msft"}, 100, 0.02, 0.001, 42)
	for i := 0; i < 1000; i++ {
		ticks := f.next()
		require.Len(t, ticks, 2)
		assert.Equal(t, "AAPL", ticks[0].instrument)
		for _, tick := range ticks {
			assert.True(t, tick.price > 0)
			assert.True(t, tick.bid < tick.price && tick.price < tick.ask)
			assert.True(t, tick.volume >= 1000 && tick.volume <= 10000)
		}
	}

	// same seed, same walk
	a := newFeed([]string{"AAPL"}, 100, 0.02, 0.001, 7).next()[0]
	b := newFeed([]string{"AAPL"}, 100, 0.02, 0.001, 7).next()[0]
	assert.Equal(t, a, b)
	assert.True(t, math.Abs(a.price-100) < 20)
}

func TestRunOptions_Order(t *testing.T) {

	type test struct {
		trade  bool
		signal *model.FusedSignal
		side   model.Side
	}

	tests := map[string]test{
		"no-trading": {
			signal: &model.FusedSignal{Instrument: "AAPL", Direction: model.SignalBuy, Confidence: 0.9},
		},
		"no-signal": {
			trade: true,
		},
		"hold": {
			trade:  true,
			signal: &model.FusedSignal{Instrument: "AAPL", Direction: model.SignalHold, Confidence: 0.9},
		},
		"low-confidence": {
			trade:  true,
			signal: &model.FusedSignal{Instrument: "AAPL", Direction: model.SignalBuy, Confidence: 0.2},
		},
		"buy": {
			trade:  true,
			signal: &model.FusedSignal{Instrument: "AAPL", Direction: model.SignalStrongBuy, Confidence: 0.9},
			side:   model.Buy,
		},
		"sell": {
			trade:  true,
			signal: &model.FusedSignal{Instrument: "AAPL", Direction: model.SignalSell, Confidence: 0.6},
			side:   model.Sell,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := &runOptions{trade: tt.trade, quantity: 10, confidence: 0.5, execution: model.VWAP}
			request := r.order(tt.signal)
			if tt.side == model.NoSide {
				assert.Nil(t, request)
				return
			}
			require.NotNil(t, request)
			assert.Equal(t, tt.side, request.Side)
			assert.Equal(t, 10.0, request.Quantity)
			assert.Equal(t, model.VWAP, request.Algo)
			assert.Equal(t, model.IOC, request.TimeInForce)
		})
	}
}

func TestConfigCmd(t *testing.T) {
	root := newRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetArgs([]string{"config", "--config", filepath.Join("..", "..", "infra", "config", "engine.yaml")})
	require.NoError(t, root.Execute())

	cfg, err := config.Parse(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 0.01, cfg.Slippage.MaxSlippage)
	assert.Len(t, cfg.Strategies, 3)

	root = newRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetArgs([]string{"config", "--config", "missing.yaml"})
	assert.Error(t, root.Execute())
}
