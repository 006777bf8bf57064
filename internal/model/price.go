package model

import (
	"math"
	"time"
)

// Positive returns true for finite values above zero.
func Positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

// Finite returns true if the value is neither NaN nor infinite.
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Snapshot is the latest market state of an instrument.
type Snapshot struct {
	Instrument string    `json:"instrument"`
	Price      float64   `json:"price"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	Volume     float64   `json:"volume"`
	Time       time.Time `json:"time"`
}

// Spread returns the difference between the best ask and bid.
func (s Snapshot) Spread() float64 {
	return s.Ask - s.Bid
}

// Touch returns the best price on the same side as the order i.e. bid for buy orders.
func (s Snapshot) Touch(side Side) float64 {
	if side == Sell {
		return s.Ask
	}
	return s.Bid
}

// Opposite returns the best price on the opposite side i.e. ask for buy orders.
func (s Snapshot) Opposite(side Side) float64 {
	if side == Sell {
		return s.Bid
	}
	return s.Ask
}

// Execution is a single fill of an order.
type Execution struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	Instrument   string    `json:"instrument"`
	Side         Side      `json:"side"`
	Algo         Algo      `json:"algo"`
	Quantity     float64   `json:"quantity"`
	Price        float64   `json:"price"`
	Reference    float64   `json:"reference"`
	Slippage     float64   `json:"slippage"`
	Bid          float64   `json:"bid"`
	Ask          float64   `json:"ask"`
	Spread       float64   `json:"spread"`
	MarketImpact float64   `json:"market_impact"`
	Time         time.Time `json:"time"`
}
