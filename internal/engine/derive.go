package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/storekit/shopcore/internal/models"
)

// Derived-value calculations. All pure: same inputs, same outputs, no reads
// outside the arguments. The coordinator calls these eagerly on every write
// that touches an input, so stored derived fields never go stale.

// LineSubtotal is quantity x unit price at 2 decimal places.
func LineSubtotal(quantity uint, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// OrderSubtotal sums the line subtotals before any discount.
func OrderSubtotal(lines []models.OrderLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal)
	}
	return sum
}

// OrderTotal is the line subtotal sum minus every applied discount.
func OrderTotal(lines []models.OrderLine, discounts []models.OrderDiscount) decimal.Decimal {
	total := OrderSubtotal(lines)
	for _, d := range discounts {
		total = total.Sub(d.Amount)
	}
	return total
}

// DiscountAmount computes the amount a discount takes off an order.
// Percentage discounts are a share of the undiscounted subtotal; fixed
// discounts are capped so the order total can never go below zero.
func DiscountAmount(d *models.Discount, orderSubtotal, currentTotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch d.Type {
	case models.DiscountPercentage:
		amount = orderSubtotal.Mul(d.Value).Div(decimal.NewFromInt(100)).Round(2)
	case models.DiscountFixedAmount:
		amount = d.Value.Round(2)
	default:
		return decimal.Zero
	}
	if amount.GreaterThan(currentTotal) {
		amount = currentTotal
	}
	return amount
}

// CheckApplicable returns a DiscountNotApplicable naming the first failing
// condition, or nil when the discount may be applied to an order with the
// given undiscounted subtotal.
func CheckApplicable(d *models.Discount, orderSubtotal decimal.Decimal, now time.Time) error {
	switch {
	case !d.Active:
		return &DiscountNotApplicable{Code: d.Code, Reason: "inactive"}
	case now.Before(d.StartsAt):
		return &DiscountNotApplicable{Code: d.Code, Reason: "not started"}
	case now.After(d.EndsAt):
		return &DiscountNotApplicable{Code: d.Code, Reason: "expired"}
	case orderSubtotal.LessThan(d.MinOrderAmount):
		return &DiscountNotApplicable{Code: d.Code, Reason: "below minimum order amount"}
	case d.MaxUses != nil && d.CurrentUses >= *d.MaxUses:
		return &DiscountNotApplicable{Code: d.Code, Reason: "usage cap exhausted"}
	}
	return nil
}
