package model

import "time"

// Direction is the trading decision carried by a signal.
type Direction byte

const (
	// SignalHold means no action
	SignalHold Direction = iota
	// SignalBuy suggests buying
	SignalBuy
	// SignalSell suggests selling
	SignalSell
	// SignalStrongBuy suggests buying with conviction
	SignalStrongBuy
	// SignalStrongSell suggests selling with conviction
	SignalStrongSell
)

// Directions lists all directions in their tie-break order.
var Directions = []Direction{SignalHold, SignalBuy, SignalSell, SignalStrongBuy, SignalStrongSell}

var directions = map[Direction]string{
	SignalHold:       "hold",
	SignalBuy:        "buy",
	SignalSell:       "sell",
	SignalStrongBuy:  "strong_buy",
	SignalStrongSell: "strong_sell",
}

func (d Direction) String() string {
	if s, ok := directions[d]; ok {
		return s
	}
	return unknown("direction", byte(d))
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Side returns the order side the direction would translate to.
func (d Direction) Side() Side {
	switch d {
	case SignalBuy, SignalStrongBuy:
		return Buy
	case SignalSell, SignalStrongSell:
		return Sell
	}
	return NoSide
}

// TradingSignal is the output of a single strategy for one market update.
type TradingSignal struct {
	Instrument string             `json:"instrument"`
	Strategy   string             `json:"strategy"`
	Direction  Direction          `json:"direction"`
	Strength   float64            `json:"strength"`
	Confidence float64            `json:"confidence"`
	Price      float64            `json:"price"`
	Time       time.Time          `json:"time"`
	Metadata   map[string]float64 `json:"metadata,omitempty"`
}

// FusedSignal is the aggregated decision of all strategies for one market update.
type FusedSignal struct {
	Instrument string             `json:"instrument"`
	Direction  Direction          `json:"direction"`
	Strength   float64            `json:"strength"`
	Confidence float64            `json:"confidence"`
	Strategies []string           `json:"strategies"`
	Weights    map[string]float64 `json:"weights"`
	Conflict   bool               `json:"conflict"`
	Latency    time.Duration      `json:"latency"`
	Time       time.Time          `json:"time"`
}
