package model

import (
	"math"
	"time"
)

// OrderKind defines the price conditions for an order i.e. market price, limit price etc ...
type OrderKind byte

const (
	// Market defines a market order
	Market OrderKind = iota
	// Limit defines a limit order
	Limit
	// Stop defines a stop order, becoming a market order once the stop price is crossed
	Stop
	// StopLimit defines a stop order, becoming a limit order once the stop price is crossed
	StopLimit
	// Conditional defines an order that waits for a condition on the market data
	Conditional
	// Iceberg defines an order executed in visible clips
	Iceberg
)

var orderKinds = map[OrderKind]string{
	Market:      "market",
	Limit:       "limit",
	Stop:        "stop",
	StopLimit:   "stop_limit",
	Conditional: "conditional",
	Iceberg:     "iceberg",
}

func (k OrderKind) String() string {
	if s, ok := orderKinds[k]; ok {
		return s
	}
	return unknown("kind", byte(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k OrderKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// NeedsPrice returns true if the order kind requires a limit price.
func (k OrderKind) NeedsPrice() bool {
	return k == Limit || k == StopLimit
}

// NeedsStop returns true if the order kind requires a stop price.
func (k OrderKind) NeedsStop() bool {
	return k == Stop || k == StopLimit
}

// Status defines the lifecycle state of an order.
type Status byte

const (
	// Pending is the initial state of an order
	Pending Status = iota
	// Submitted means the order passed validation and is being executed
	Submitted
	// Partial means the order has been partially filled
	Partial
	// Filled means the whole quantity has been executed
	Filled
	// Cancelled means the order was cancelled before completion
	Cancelled
	// Rejected means the order failed validation or the slippage pre-check
	Rejected
	// Expired means the order reached its expiry before completion
	Expired
)

var statuses = map[Status]string{
	Pending:   "pending",
	Submitted: "submitted",
	Partial:   "partial",
	Filled:    "filled",
	Cancelled: "cancelled",
	Rejected:  "rejected",
	Expired:   "expired",
}

func (s Status) String() string {
	if v, ok := statuses[s]; ok {
		return v
	}
	return unknown("status", byte(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal returns true if no further transition is allowed out of the status.
func (s Status) IsTerminal() bool {
	switch s {
	case Filled, Cancelled, Rejected, Expired:
		return true
	}
	return false
}

// IsLive returns true for orders that are being worked on.
func (s Status) IsLive() bool {
	return s == Submitted || s == Partial
}

// Algo defines the execution algorithm for an order.
type Algo byte

const (
	// Balanced prices between the last trade and the opposite touch
	Balanced Algo = iota
	// Aggressive crosses the spread with a premium
	Aggressive
	// Passive waits at the same side touch
	Passive
	// VWAP prices at the mean of the recent prices
	VWAP
	// TWAP splits the order into time spaced slices
	TWAP
)

var algos = map[Algo]string{
	Balanced:   "balanced",
	Aggressive: "aggressive",
	Passive:    "passive",
	VWAP:       "vwap",
	TWAP:       "twap",
}

func (a Algo) String() string {
	if s, ok := algos[a]; ok {
		return s
	}
	return unknown("algo", byte(a))
}

// MarshalText implements encoding.TextMarshaler.
func (a Algo) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ParseAlgo parses the execution algorithm from its name.
func ParseAlgo(s string) (Algo, bool) {
	for a, name := range algos {
		if name == s {
			return a, true
		}
	}
	return Balanced, false
}

// TimeInForce defines how long an order stays active.
type TimeInForce byte

const (
	// Day orders expire at the end of the trading day
	Day TimeInForce = iota
	// GTC orders stay active until cancelled
	GTC
	// IOC orders cancel whatever is not filled by the first execution
	IOC
	// FOK orders are either filled completely or cancelled
	FOK
)

var tifs = map[TimeInForce]string{
	Day: "DAY",
	GTC: "GTC",
	IOC: "IOC",
	FOK: "FOK",
}

func (t TimeInForce) String() string {
	if s, ok := tifs[t]; ok {
		return s
	}
	return unknown("tif", byte(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeInForce) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Order defines an order and its execution state.
type Order struct {
	ID              string      `json:"id"`
	Instrument      string      `json:"instrument"`
	Side            Side        `json:"side"`
	Kind            OrderKind   `json:"kind"`
	Quantity        float64     `json:"quantity"`
	Price           float64     `json:"price,omitempty"`
	StopPrice       float64     `json:"stop_price,omitempty"`
	Condition       string      `json:"condition,omitempty"`
	VisibleQuantity float64     `json:"visible_quantity,omitempty"`
	Algo            Algo        `json:"algo"`
	MaxSlippage     float64     `json:"max_slippage"`
	TimeInForce     TimeInForce `json:"time_in_force"`
	Status          Status      `json:"status"`
	Filled          float64     `json:"filled"`
	AvgFillPrice    float64     `json:"avg_fill_price"`
	Notional        float64     `json:"notional"`
	Slippage        float64     `json:"slippage"`
	Reason          string      `json:"reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	ExpiresAt       time.Time   `json:"expires_at,omitempty"`
}

// Remaining returns the quantity still to be filled.
func (o Order) Remaining() float64 {
	return math.Max(0, o.Quantity-o.Filled)
}

// Expired returns true if the order has an expiry before the given time.
func (o Order) Expired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && now.After(o.ExpiresAt)
}

// Request gathers the caller's parameters for a new order.
type Request struct {
	Instrument      string
	Side            Side
	Kind            OrderKind
	Quantity        float64
	Price           float64
	StopPrice       float64
	Condition       string
	VisibleQuantity float64
	Algo            Algo
	MaxSlippage     float64
	TimeInForce     TimeInForce
	Expiry          time.Duration
}

// NewRequest creates a new market order request for the given instrument.
func NewRequest(instrument string) *Request {
	return &Request{
		Instrument: Instrument(instrument),
	}
}

// Buy defines an order of type buy.
func (r *Request) Buy() *Request {
	r.Side = Buy
	return r
}

// Sell defines an order of type sell.
func (r *Request) Sell() *Request {
	r.Side = Sell
	return r
}

// WithSide defines the side of the order.
func (r *Request) WithSide(s Side) *Request {
	r.Side = s
	return r
}

// WithQuantity defines the quantity for this order.
func (r *Request) WithQuantity(q float64) *Request {
	r.Quantity = q
	return r
}

// Market defines an order with market order type.
func (r *Request) Market() *Request {
	r.Kind = Market
	return r
}

// Limit defines a limit order at the given price.
func (r *Request) Limit(p float64) *Request {
	r.Kind = Limit
	r.Price = p
	return r
}

// Stop defines a stop order triggered at the given stop price.
func (r *Request) Stop(stop float64) *Request {
	r.Kind = Stop
	r.StopPrice = stop
	return r
}

// StopLimit defines a stop order that becomes a limit order at the given price.
func (r *Request) StopLimit(stop, limit float64) *Request {
	r.Kind = StopLimit
	r.StopPrice = stop
	r.Price = limit
	return r
}

// When defines a conditional order gated by the given expression.
func (r *Request) When(condition string) *Request {
	r.Kind = Conditional
	r.Condition = condition
	return r
}

// Iceberg defines an iceberg order with the given visible clip size.
func (r *Request) Iceberg(visible float64) *Request {
	r.Kind = Iceberg
	r.VisibleQuantity = visible
	return r
}

// WithKind sets the order kind explicitly.
func (r *Request) WithKind(k OrderKind) *Request {
	r.Kind = k
	return r
}

// WithPrice sets the limit price.
func (r *Request) WithPrice(p float64) *Request {
	r.Price = p
	return r
}

// WithAlgo defines the execution algorithm.
func (r *Request) WithAlgo(a Algo) *Request {
	r.Algo = a
	return r
}

// WithMaxSlippage overrides the default slippage tolerance.
func (r *Request) WithMaxSlippage(s float64) *Request {
	r.MaxSlippage = s
	return r
}

// WithTimeInForce defines the time in force.
func (r *Request) WithTimeInForce(t TimeInForce) *Request {
	r.TimeInForce = t
	return r
}

// WithExpiry expires the order after the given duration.
func (r *Request) WithExpiry(d time.Duration) *Request {
	r.Expiry = d
	return r
}
