package domain

import "github.com/shopspring/decimal"

// Variant priced unit-of-sale configuration of a product
type Variant struct {
	ProductID int64           `json:"product_id"`
	Unit      Unit            `json:"unit"`
	Price     decimal.Decimal `json:"price"`
	Step      decimal.Decimal `json:"step"`
	Min       decimal.Decimal `json:"min"`
	Max       decimal.Decimal `json:"max"`
}

// Validate checks 0 < step, 0 < min <= max and price >= 0.
func (v Variant) Validate() error {
	if v.ProductID <= 0 {
		return Validationf("product id must be positive")
	}
	if _, err := ParseUnit(string(v.Unit)); err != nil {
		return err
	}
	if v.Price.IsNegative() {
		return Validationf("price must not be negative")
	}
	if !v.Step.IsPositive() {
		return Validationf("step must be greater than zero")
	}
	if !v.Min.IsPositive() {
		return Validationf("min must be greater than zero")
	}
	if v.Min.GreaterThan(v.Max) {
		return Validationf("min %s is greater than max %s", v.Min, v.Max)
	}
	return nil
}

// Clamp moves a positive quantity into [Min, Max] and aligns it down to the
// step grid anchored at Min. The result never exceeds Max even when Max itself
// is off the grid.
func (v Variant) Clamp(q decimal.Decimal) decimal.Decimal {
	if q.LessThan(v.Min) {
		q = v.Min
	}
	if q.GreaterThan(v.Max) {
		q = v.Max
	}
	steps, _ := q.Sub(v.Min).QuoRem(v.Step, 0)
	return v.Min.Add(steps.Mul(v.Step))
}

// Aligned reports whether q is a legal cart quantity for v.
func (v Variant) Aligned(q decimal.Decimal) bool {
	if q.LessThan(v.Min) || q.GreaterThan(v.Max) {
		return false
	}
	return q.Sub(v.Min).Mod(v.Step).IsZero()
}
