package model

import "time"

// SlippageControl is the process wide slippage and order size policy.
// It is read-only once the engine has started.
type SlippageControl struct {
	MaxSlippage       float64       `yaml:"max_slippage_pct" json:"max_slippage_pct" validate:"gt=0,lte=1"`
	PriceBuffer       float64       `yaml:"price_buffer_pct" json:"price_buffer_pct" validate:"gte=0,lt=1"`
	MarketImpactLimit float64       `yaml:"market_impact_limit" json:"market_impact_limit" validate:"gte=0"`
	AdaptivePricing   bool          `yaml:"adaptive_pricing" json:"adaptive_pricing"`
	EnableSplitting   bool          `yaml:"enable_order_splitting" json:"enable_order_splitting"`
	MaxOrderSize      float64       `yaml:"max_order_size" json:"max_order_size" validate:"gt=0"`
	MinSplitSize      float64       `yaml:"min_split_size" json:"min_split_size" validate:"gt=0"`
	SplitInterval     time.Duration `yaml:"split_interval" json:"split_interval" validate:"gte=0"`
}

// DefaultSlippageControl returns the default slippage policy.
func DefaultSlippageControl() SlippageControl {
	return SlippageControl{
		MaxSlippage:       0.01,
		PriceBuffer:       0.001,
		MarketImpactLimit: 0.005,
		AdaptivePricing:   true,
		EnableSplitting:   true,
		MaxOrderSize:      1000000,
		MinSplitSize:      100,
		SplitInterval:     2 * time.Second,
	}
}
