package engine

import "github.com/storekit/shopcore/internal/models"

// Legal status transitions. The schema only fixes the value sets; the
// transition sets encode the order and payment lifecycles: forward motion
// plus the explicit cancel/refund exits, never backward.

var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:    {models.OrderProcessing, models.OrderCancelled},
	models.OrderProcessing: {models.OrderShipped, models.OrderCancelled, models.OrderRefunded},
	models.OrderShipped:    {models.OrderDelivered, models.OrderRefunded},
	models.OrderDelivered:  {models.OrderRefunded},
	models.OrderCancelled:  nil,
	models.OrderRefunded:   nil,
}

var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentPending:   {models.PaymentCompleted, models.PaymentFailed},
	models.PaymentFailed:    {models.PaymentPending},
	models.PaymentCompleted: {models.PaymentRefunded},
	models.PaymentRefunded:  nil,
}

// CheckOrderTransition rejects any move not in the transition table,
// leaving the caller's order untouched.
func CheckOrderTransition(from, to models.OrderStatus) error {
	for _, next := range orderTransitions[from] {
		if next == to {
			return nil
		}
	}
	return invalidOrderTransition(from, to)
}

// CheckPaymentTransition validates a payment move. Completing a payment for
// a cancelled order is illegal regardless of the payment's own state.
func CheckPaymentTransition(from, to models.PaymentStatus, order models.OrderStatus) error {
	if to == models.PaymentCompleted && order == models.OrderCancelled {
		return invalidPaymentTransition(from, to)
	}
	for _, next := range paymentTransitions[from] {
		if next == to {
			return nil
		}
	}
	return invalidPaymentTransition(from, to)
}
