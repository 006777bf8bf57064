package coin

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drakos74/smart-exec/infra/config"
	"github.com/drakos74/smart-exec/internal/algo/fusion"
	"github.com/drakos74/smart-exec/internal/algo/strategy"
	"github.com/drakos74/smart-exec/internal/concurrent"
	"github.com/drakos74/smart-exec/internal/market"
	"github.com/drakos74/smart-exec/internal/model"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Slippage.SplitInterval = time.Millisecond
	cfg.Execution.PassiveWait = time.Millisecond
	cfg.Execution.TWAP.Interval = time.Millisecond
	cfg.Execution.TriggerPoll = time.Millisecond
	cfg.Orders.MonitorInterval = 5 * time.Millisecond
	cfg.Strategies = []strategy.Config{
		{Name: strategy.MomentumName, Weight: 1, Params: map[string]float64{"window": 2, "scale": 100}},
	}
	return cfg
}

func newEngine(t *testing.T, cfg config.Config) *Engine {
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, engine.Shutdown(ctx))
	})
	return engine
}

func TestNewEngine(t *testing.T) {

	type test struct {
		config func(cfg config.Config) config.Config
		err    bool
	}

	tests := map[string]test{
		"default": {
			config: func(cfg config.Config) config.Config {
				return config.Default()
			},
		},
		"void-execution-log": {
			config: func(cfg config.Config) config.Config {
				cfg.Orders.ExecutionLogSize = 0
				return cfg
			},
		},
		"invalid": {
			config: func(cfg config.Config) config.Config {
				cfg.Slippage.MaxSlippage = -1
				return cfg
			},
			err: true,
		},
		"unknown-strategy": {
			config: func(cfg config.Config) config.Config {
				cfg.Strategies = []strategy.Config{{Name: "Oracle", Weight: 1}}
				return cfg
			},
			err: true,
		},
		"duplicate-strategy": {
			config: func(cfg config.Config) config.Config {
				cfg.Strategies = append(cfg.Strategies, cfg.Strategies[0])
				return cfg
			},
			err: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			engine, err := NewEngine(tt.config(testConfig()))
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, engine.Shutdown(context.Background()))
		})
	}
}

func TestEngine_UpdateMarketData(t *testing.T) {
	engine := newEngine(t, testConfig())
	signals := concurrent.NewAssertion(2)
	engine.OnSignal(func(signal model.FusedSignal) error {
		signals.Expect(signal)
		return nil
	})

	ctx := context.Background()
	signal, err := engine.UpdateMarketData(ctx, "aapl", 100, 0, 0, 1000)
	require.NoError(t, err)
	assert.Nil(t, signal)

	signal, err = engine.UpdateMarketData(ctx, "AAPL", 101, 0, 0, 1000)
	require.NoError(t, err)
	require.NotNil(t, signal)
	assert.Equal(t, "AAPL", signal.Instrument)
	assert.Equal(t, model.SignalBuy, signal.Direction)
	assert.Equal(t, []string{strategy.MomentumName}, signal.Strategies)

	signal, err = engine.UpdateMarketData(ctx, "AAPL", 99, 98.9, 99.1, 1000)
	require.NoError(t, err)
	require.NotNil(t, signal)
	assert.Equal(t, model.SignalSell, signal.Direction)

	snapshot, ok := engine.Snapshot("AAPL")
	require.True(t, ok)
	assert.Equal(t, 98.9, snapshot.Bid)

	_, err = engine.UpdateMarketData(ctx, "AAPL", -1, 0, 0, 1000)
	assert.Error(t, err)

	signals.Assert(t, time.Second)
	stats := engine.Statistics()
	assert.Equal(t, uint64(2), stats.Fusion.SignalsProcessed)
	assert.Equal(t, []string{"AAPL"}, stats.Instruments)
	assert.Equal(t, map[string]float64{strategy.MomentumName: 1}, stats.Strategies)
}

func TestEngine_Strategies(t *testing.T) {
	engine := newEngine(t, testConfig())
	require.NoError(t, engine.AddStrategy(strategy.NewMeanReversion(3, 5), 0.5))
	assert.ErrorIs(t, engine.AddStrategy(strategy.NewMomentum(2, 1), 1), fusion.ErrDuplicateStrategy)
	assert.ErrorIs(t, engine.AddStrategy(strategy.NewSMA(2, 3), -1), fusion.ErrNegativeWeight)
	require.NoError(t, engine.SetWeight(strategy.MeanReversionName, 2))
	assert.ErrorIs(t, engine.SetWeight("Oracle", 2), fusion.ErrUnknownStrategy)
	assert.Equal(t, map[string]float64{
		strategy.MomentumName:      1,
		strategy.MeanReversionName: 2,
	}, engine.Statistics().Strategies)
}

func TestEngine_Orders(t *testing.T) {
	engine := newEngine(t, testConfig())
	_, err := engine.UpdateMarketData(context.Background(), "AAPL", 150, 149.8, 150.2, 10000)
	require.NoError(t, err)

	executions := concurrent.NewAssertion(1)
	engine.OnExecution(func(exec model.Execution) error {
		executions.Expect(exec)
		return nil
	})
	statuses := concurrent.NewAssertion(2)
	engine.OnStatus(func(order model.Order) error {
		statuses.Expect(order.Status)
		return nil
	})

	id, err := engine.Submit(model.NewRequest("AAPL").Buy().WithQuantity(100))
	require.NoError(t, err)

	ee := executions.Assert(t, time.Second)
	statuses.Assert(t, time.Second)
	exec := ee[0].(model.Execution)
	assert.Equal(t, id, exec.OrderID)

	order, ok := engine.Status(id)
	require.True(t, ok)
	assert.Equal(t, model.Filled, order.Status)
	assert.InDelta(t, exec.Price, order.AvgFillPrice, 1e-9)
	assert.Len(t, engine.Executions("AAPL"), 1)
	orderExecutions, ok := engine.OrderExecutions(id)
	require.True(t, ok)
	assert.Equal(t, []model.Execution{exec}, orderExecutions)

	_, err = engine.Submit(nil)
	assert.Error(t, err)

	rejected, err := engine.Submit(model.NewRequest("MSFT").Sell().WithQuantity(10))
	require.NoError(t, err)
	order, ok = engine.Status(rejected)
	require.True(t, ok)
	assert.Equal(t, model.Rejected, order.Status)
	assert.False(t, engine.Cancel(rejected))

	_, ok = engine.Status("unknown")
	assert.False(t, ok)
}

func TestEngine_NonFiniteMarketData(t *testing.T) {
	engine := newEngine(t, testConfig())
	ctx := context.Background()

	for _, price := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := engine.UpdateMarketData(ctx, "Z", price, 0, 0, 1000)
		assert.ErrorIs(t, err, market.ErrInvalidPrice)
	}
	_, err := engine.UpdateMarketData(ctx, "Z", 100, 0, 0, math.NaN())
	assert.ErrorIs(t, err, market.ErrInvalidVolume)
	_, ok := engine.Snapshot("Z")
	assert.False(t, ok)

	id, err := engine.Submit(model.NewRequest("Z").Buy().WithQuantity(10))
	require.NoError(t, err)
	order, ok := engine.Status(id)
	require.True(t, ok)
	assert.Equal(t, model.Rejected, order.Status)

	_, err = engine.UpdateMarketData(ctx, "Z", 100, 50, 150, 1000)
	require.NoError(t, err)
	id, err = engine.Submit(model.NewRequest("Z").Buy().WithQuantity(10).WithAlgo(model.Aggressive).WithMaxSlippage(math.NaN()))
	require.NoError(t, err)
	order, ok = engine.Status(id)
	require.True(t, ok)
	assert.Equal(t, model.Rejected, order.Status)
	assert.Empty(t, engine.Executions("Z"))
}

func TestEngine_Shutdown(t *testing.T) {
	engine := newEngine(t, testConfig())
	_, err := engine.UpdateMarketData(context.Background(), "AAPL", 150, 149.8, 150.2, 10000)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- engine.Run(ctx)
	}()

	id, err := engine.Submit(model.NewRequest("AAPL").Buy().WithQuantity(10).Stop(200).WithTimeInForce(model.GTC))
	require.NoError(t, err)

	require.NoError(t, engine.Shutdown(context.Background()))
	order, ok := engine.Status(id)
	require.True(t, ok)
	assert.Equal(t, model.Cancelled, order.Status)
	assert.Equal(t, "shutdown", order.Reason)

	_, err = engine.Submit(model.NewRequest("AAPL").Buy().WithQuantity(10))
	assert.Error(t, err)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
}
