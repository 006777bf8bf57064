package model

import (
	"fmt"
	"strings"
)

// Side defines the direction of an order, buy or sell.
type Side byte

const (
	// NoSide defines a missing or unrecognised side.
	NoSide Side = iota
	// Buy defines a buy order.
	Buy
	// Sell defines a sell order.
	Sell
)

// ParseSide parses the side from its string representation.
// Unknown values map to NoSide, so that validation can reject them.
func ParseSide(s string) Side {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy
	case "sell":
		return Sell
	}
	return NoSide
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "none"
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Instrument normalises an instrument symbol.
func Instrument(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func unknown(kind string, v byte) string {
	return fmt.Sprintf("%s(%d)", kind, v)
}
