package order

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drakos74/smart-exec/internal/model"
)

var aapl = model.Snapshot{
	Instrument: "AAPL",
	Price:      150,
	Bid:        149.8,
	Ask:        150.2,
	Volume:     10000,
}

func valid() model.Order {
	return model.Order{
		ID:          "AAPL_buy_test",
		Instrument:  "AAPL",
		Side:        model.Buy,
		Kind:        model.Market,
		Quantity:    100,
		MaxSlippage: 0.01,
		TimeInForce: model.Day,
	}
}

func TestValidator_Validate(t *testing.T) {

	type test struct {
		order    func(o model.Order) model.Order
		snapshot model.Snapshot
		missing  bool
		reason   string
	}

	tests := map[string]test{
		"market": {
			order: func(o model.Order) model.Order { return o },
		},
		"zero-quantity": {
			order: func(o model.Order) model.Order {
				o.Quantity = 0
				return o
			},
			reason: ReasonQuantity,
		},
		"negative-quantity": {
			order: func(o model.Order) model.Order {
				o.Quantity = -10
				return o
			},
			reason: ReasonQuantity,
		},
		"no-side": {
			order: func(o model.Order) model.Order {
				o.Side = model.NoSide
				return o
			},
			reason: ReasonSide,
		},
		"limit-without-price": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Limit
				return o
			},
			reason: ReasonPrice,
		},
		"stop-without-stop-price": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Stop
				return o
			},
			reason: ReasonStopPrice,
		},
		"stop-limit-without-price": {
			order: func(o model.Order) model.Order {
				o.Kind = model.StopLimit
				o.StopPrice = 151
				return o
			},
			reason: ReasonPrice,
		},
		"conditional-without-condition": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Conditional
				return o
			},
			reason: ReasonCondition,
		},
		"conditional-broken-condition": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Conditional
				o.Condition = "price >"
				return o
			},
			reason: ReasonCondition,
		},
		"conditional": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Conditional
				o.Condition = "price > 149 && spread < 1"
				return o
			},
		},
		"iceberg-oversized-clip": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Iceberg
				o.VisibleQuantity = 200
				return o
			},
			reason: ReasonVisible,
		},
		"iceberg": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Iceberg
				o.VisibleQuantity = 20
				return o
			},
		},
		"fok-twap": {
			order: func(o model.Order) model.Order {
				o.TimeInForce = model.FOK
				o.Algo = model.TWAP
				return o
			},
			reason: ReasonTimeInForce,
		},
		"invalid-max-slippage": {
			order: func(o model.Order) model.Order {
				o.MaxSlippage = 0
				return o
			},
			reason: ReasonMaxSlippage,
		},
		"nan-max-slippage": {
			order: func(o model.Order) model.Order {
				o.MaxSlippage = math.NaN()
				return o
			},
			reason: ReasonMaxSlippage,
		},
		"inf-max-slippage": {
			order: func(o model.Order) model.Order {
				o.MaxSlippage = math.Inf(1)
				return o
			},
			reason: ReasonMaxSlippage,
		},
		"nan-quantity": {
			order: func(o model.Order) model.Order {
				o.Quantity = math.NaN()
				return o
			},
			reason: ReasonQuantity,
		},
		"nan-limit-price": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Limit
				o.Price = math.NaN()
				return o
			},
			reason: ReasonPrice,
		},
		"inf-stop-price": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Stop
				o.StopPrice = math.Inf(1)
				return o
			},
			reason: ReasonStopPrice,
		},
		"nan-visible-quantity": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Iceberg
				o.VisibleQuantity = math.NaN()
				return o
			},
			reason: ReasonVisible,
		},
		"nan-market-price": {
			order:    func(o model.Order) model.Order { return o },
			snapshot: model.Snapshot{Instrument: "AAPL", Price: math.NaN()},
			reason:   ReasonMarketPrice,
		},
		"no-market-data": {
			order:   func(o model.Order) model.Order { return o },
			missing: true,
			reason:  ReasonNoMarketData,
		},
		"zero-market-price": {
			order:    func(o model.Order) model.Order { return o },
			snapshot: model.Snapshot{Instrument: "AAPL"},
			reason:   ReasonMarketPrice,
		},
		"limit-within-deviation": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Limit
				o.Price = 140
				return o
			},
		},
		"limit-beyond-deviation": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Limit
				o.Price = 170
				return o
			},
			reason: ReasonDeviation,
		},
	}

	v := NewValidator(0.10, model.DefaultSlippageControl())
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			snapshot := aapl
			if tt.snapshot.Instrument != "" {
				snapshot = tt.snapshot
			}
			rejection := v.Validate(tt.order(valid()), snapshot, !tt.missing)
			if tt.reason == "" {
				assert.Nil(t, rejection)
				return
			}
			require.NotNil(t, rejection)
			assert.Equal(t, tt.reason, rejection.Reason)
			assert.NotEmpty(t, rejection.Detail)
		})
	}
}

func TestValidator_CheckSlippage(t *testing.T) {

	type test struct {
		order  func(o model.Order) model.Order
		reject bool
	}

	tests := map[string]test{
		"market-within-spread": {
			order: func(o model.Order) model.Order { return o },
		},
		"market-tight-tolerance": {
			order: func(o model.Order) model.Order {
				o.MaxSlippage = 0.001
				return o
			},
			reject: true,
		},
		"limit-far-from-market": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Limit
				o.Price = 145
				return o
			},
			reject: true,
		},
		"limit-close-to-market": {
			order: func(o model.Order) model.Order {
				o.Kind = model.Limit
				o.Price = 149.5
				return o
			},
		},
	}

	v := NewValidator(0.10, model.DefaultSlippageControl())
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rejection := v.CheckSlippage(tt.order(valid()), aapl)
			if tt.reject {
				require.NotNil(t, rejection)
				assert.Equal(t, ReasonSlippage, rejection.Reason)
			} else {
				assert.Nil(t, rejection)
			}
		})
	}
}

func TestValidator_CheckSlippageNonFinite(t *testing.T) {
	v := NewValidator(0.10, model.DefaultSlippageControl())
	for name, snapshot := range map[string]model.Snapshot{
		"nan-price": {Instrument: "AAPL", Price: math.NaN(), Bid: 149.8, Ask: 150.2},
		"inf-ask":   {Instrument: "AAPL", Price: 150, Bid: 149.8, Ask: math.Inf(1)},
	} {
		t.Run(name, func(t *testing.T) {
			rejection := v.CheckSlippage(valid(), snapshot)
			require.NotNil(t, rejection)
			assert.Equal(t, ReasonMarketPrice, rejection.Reason)
		})
	}
}

func TestValidator_CheckSize(t *testing.T) {

	type test struct {
		splitting bool
		order     func(o model.Order) model.Order
		algo      model.Algo
		reject    bool
	}

	tests := map[string]test{
		"small": {
			splitting: true,
			order:     func(o model.Order) model.Order { return o },
			algo:      model.Balanced,
		},
		"large-promoted": {
			splitting: true,
			order: func(o model.Order) model.Order {
				o.Quantity = 10000
				o.Algo = model.Aggressive
				return o
			},
			algo: model.TWAP,
		},
		"large-iceberg": {
			splitting: true,
			order: func(o model.Order) model.Order {
				o.Quantity = 10000
				o.Kind = model.Iceberg
				o.VisibleQuantity = 100
				return o
			},
			algo: model.Balanced,
		},
		"large-fok": {
			splitting: true,
			order: func(o model.Order) model.Order {
				o.Quantity = 10000
				o.TimeInForce = model.FOK
				return o
			},
			reject: true,
		},
		"large-without-splitting": {
			order: func(o model.Order) model.Order {
				o.Quantity = 10000
				return o
			},
			reject: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			slippage := model.DefaultSlippageControl()
			slippage.EnableSplitting = tt.splitting
			v := NewValidator(0.10, slippage)
			order := tt.order(valid())
			rejection := v.CheckSize(&order, aapl)
			if tt.reject {
				require.NotNil(t, rejection)
				assert.Equal(t, ReasonOrderSize, rejection.Reason)
				return
			}
			assert.Nil(t, rejection)
			assert.Equal(t, tt.algo, order.Algo)
		})
	}
}
