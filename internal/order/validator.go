package order

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/drakos74/smart-exec/internal/execution"
	"github.com/drakos74/smart-exec/internal/model"
)

// Rejection reasons.
const (
	ReasonQuantity     = "invalid_quantity"
	ReasonSide         = "invalid_side"
	ReasonPrice        = "missing_price"
	ReasonStopPrice    = "missing_stop_price"
	ReasonCondition    = "invalid_condition"
	ReasonVisible      = "invalid_visible_quantity"
	ReasonTimeInForce  = "invalid_time_in_force"
	ReasonMaxSlippage  = "invalid_max_slippage"
	ReasonNoMarketData = "no_market_data"
	ReasonMarketPrice  = "invalid_market_price"
	ReasonDeviation    = "limit_deviation"
	ReasonSlippage     = "slippage"
	ReasonOrderSize    = "order_size"
)

// Rejection describes why an order was rejected.
type Rejection struct {
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

func reject(reason string, detail string, args ...interface{}) *Rejection {
	return &Rejection{
		Reason: reason,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Validator checks orders before they are submitted for execution.
type Validator struct {
	deviation float64
	slippage  model.SlippageControl
}

// NewValidator creates a new validator.
func NewValidator(deviation float64, slippage model.SlippageControl) *Validator {
	return &Validator{
		deviation: deviation,
		slippage:  slippage,
	}
}

// Validate checks the order parameters against the current market snapshot.
func (v *Validator) Validate(order model.Order, snapshot model.Snapshot, ok bool) *Rejection {
	if !model.Positive(order.Quantity) {
		return reject(ReasonQuantity, "quantity must be positive: %v", order.Quantity)
	}
	if order.Side != model.Buy && order.Side != model.Sell {
		return reject(ReasonSide, "side must be buy or sell: %s", order.Side)
	}
	if order.Kind.NeedsPrice() && !model.Positive(order.Price) {
		return reject(ReasonPrice, "%s order needs a price", order.Kind)
	}
	if order.Kind.NeedsStop() && !model.Positive(order.StopPrice) {
		return reject(ReasonStopPrice, "%s order needs a stop price", order.Kind)
	}
	if order.Kind == model.Conditional {
		if order.Condition == "" {
			return reject(ReasonCondition, "conditional order needs a condition")
		}
		if _, err := execution.CompileCondition(order.Condition); err != nil {
			return reject(ReasonCondition, "%s", err.Error())
		}
	}
	if order.Kind == model.Iceberg && (!model.Positive(order.VisibleQuantity) || order.VisibleQuantity > order.Quantity) {
		return reject(ReasonVisible, "visible quantity %v must be in (0,%v]", order.VisibleQuantity, order.Quantity)
	}
	if order.TimeInForce == model.FOK && (order.Algo == model.TWAP || order.Kind == model.Iceberg) {
		return reject(ReasonTimeInForce, "%s cannot be sliced", order.TimeInForce)
	}
	if !(order.MaxSlippage > 0 && order.MaxSlippage <= 1) {
		return reject(ReasonMaxSlippage, "max slippage %v must be in (0,1]", order.MaxSlippage)
	}
	if !ok {
		return reject(ReasonNoMarketData, "no market data for %s", order.Instrument)
	}
	if !model.Positive(snapshot.Price) {
		return reject(ReasonMarketPrice, "invalid market price for %s: %v", order.Instrument, snapshot.Price)
	}
	if order.Kind.NeedsPrice() {
		deviation := math.Abs(order.Price-snapshot.Price) / snapshot.Price
		if deviation > v.deviation {
			return reject(ReasonDeviation, "limit price %v deviates %.2f%% from %v", order.Price, deviation*100, snapshot.Price)
		}
	}
	return nil
}

// CheckSlippage rejects orders whose estimated execution price already exceeds the slippage tolerance.
func (v *Validator) CheckSlippage(order model.Order, snapshot model.Snapshot) *Rejection {
	estimate := snapshot.Opposite(order.Side)
	if order.Kind.NeedsPrice() {
		estimate = order.Price
	}
	if !model.Positive(snapshot.Price) || !model.Positive(estimate) {
		return reject(ReasonMarketPrice, "no valid price estimate for %s", order.Instrument)
	}
	slippage := math.Abs(estimate-snapshot.Price) / snapshot.Price
	if slippage > order.MaxSlippage {
		return reject(ReasonSlippage, "estimated slippage %.4f > %.4f", slippage, order.MaxSlippage)
	}
	return nil
}

// CheckSize applies the order size policy, promoting large orders to TWAP if splitting is enabled.
func (v *Validator) CheckSize(order *model.Order, snapshot model.Snapshot) *Rejection {
	price := snapshot.Price
	if order.Kind.NeedsPrice() {
		price = order.Price
	}
	notional := order.Quantity * price
	if notional <= v.slippage.MaxOrderSize {
		return nil
	}
	if !v.slippage.EnableSplitting {
		return reject(ReasonOrderSize, "notional %.2f exceeds %.2f", notional, v.slippage.MaxOrderSize)
	}
	if order.Kind == model.Iceberg || order.Algo == model.TWAP {
		return nil
	}
	if order.TimeInForce == model.FOK {
		return reject(ReasonOrderSize, "notional %.2f exceeds %.2f for an order that cannot be sliced", notional, v.slippage.MaxOrderSize)
	}
	log.Info().
		Str("order", order.ID).
		Float64("notional", notional).
		Str("algo", order.Algo.String()).
		Msg("promoting large order to twap")
	order.Algo = model.TWAP
	return nil
}
