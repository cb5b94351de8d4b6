// internal/services/pricing.go
package services

import (
	"github.com/shopspring/decimal"

	"github.com/javajoker/gemstore-backend/internal/config"
)

var hundred = decimal.NewFromInt(100)

// PricingPolicy turns a merchandise subtotal into the amounts charged at checkout.
type PricingPolicy struct {
	TaxRatePercent        decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

type OrderTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

func NewPricingPolicy(cfg config.PaymentConfig) PricingPolicy {
	return PricingPolicy{
		TaxRatePercent:        decimal.NewFromFloat(cfg.TaxRatePercent),
		FreeShippingThreshold: decimal.NewFromFloat(cfg.FreeShippingThreshold),
		FlatShippingFee:       decimal.NewFromFloat(cfg.FlatShippingFee),
	}
}

// Totals computes tax and shipping for a subtotal. An empty subtotal ships free;
// anything at or above the threshold ships free.
func (p PricingPolicy) Totals(subtotal decimal.Decimal) OrderTotals {
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(p.TaxRatePercent).Div(hundred).Round(2)

	shipping := p.FlatShippingFee.Round(2)
	if subtotal.IsZero() || (p.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingThreshold)) {
		shipping = decimal.Zero
	}

	return OrderTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// LineTotal is unit price times quantity, rounded to cents.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
