package engine

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storekit/shopcore/internal/models"
	"github.com/storekit/shopcore/internal/repo"
)

// LineInput is one requested order line. Unit price is never an input: it is
// snapshotted from the product inside the transaction.
type LineInput struct {
	ProductID uint `json:"product_id"`
	Quantity  uint `json:"quantity"`
}

// PlaceOrder reserves stock for every line, snapshots unit prices and creates
// the order in pending with its computed total. Product locks are taken in
// sorted key order before the transaction opens, so two concurrent multi-line
// orders cannot deadlock and can never jointly overdraw a product.
func (e *Engine) PlaceOrder(ctx context.Context, accountID uint, lines []LineInput, shippingAddrID, billingAddrID uint) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, &ConstraintViolation{Entity: "order", Field: "lines", Rule: "must not be empty"}
	}
	keys := make([]string, 0, len(lines))
	for _, l := range lines {
		if err := validateOrderLineInput(l); err != nil {
			return nil, err
		}
		keys = append(keys, productKey(l.ProductID))
	}

	release, err := e.locks.acquire(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	var order *models.Order
	err = e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		var txErr error
		order, txErr = e.placeOrderTx(ctx, tx, r, accountID, lines, shippingAddrID, billingAddrID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "order placed",
		"order_id", order.ID, "account_id", accountID, "total", order.TotalAmount)
	return order, nil
}

// PlaceOrderFromCart turns the account's cart into an order and clears the
// converted lines in the same transaction.
func (e *Engine) PlaceOrderFromCart(ctx context.Context, accountID, shippingAddrID, billingAddrID uint) (*models.Order, error) {
	cartLines, err := e.Repo().CartLines(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(cartLines) == 0 {
		return nil, &ConstraintViolation{Entity: "cart_line", Field: "account_id", Rule: "cart is empty"}
	}

	lines := make([]LineInput, 0, len(cartLines))
	keys := make([]string, 0, len(cartLines))
	cartIDs := make([]uint, 0, len(cartLines))
	for _, cl := range cartLines {
		lines = append(lines, LineInput{ProductID: cl.ProductID, Quantity: cl.Quantity})
		keys = append(keys, productKey(cl.ProductID))
		cartIDs = append(cartIDs, cl.ID)
	}

	release, err := e.locks.acquire(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	var order *models.Order
	err = e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		var txErr error
		order, txErr = e.placeOrderTx(ctx, tx, r, accountID, lines, shippingAddrID, billingAddrID)
		if txErr != nil {
			return txErr
		}
		return tx.Where("id IN ?", cartIDs).Delete(&models.CartLine{}).Error
	})
	if err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "order placed from cart",
		"order_id", order.ID, "account_id", accountID, "total", order.TotalAmount)
	return order, nil
}

func (e *Engine) placeOrderTx(ctx context.Context, tx *gorm.DB, r *repo.GormRepo, accountID uint, lines []LineInput, shippingAddrID, billingAddrID uint) (*models.Order, error) {
	if err := checkAccountExists(ctx, r, "order", accountID); err != nil {
		return nil, err
	}
	if err := checkAddressOwnership(ctx, r, "order", accountID, shippingAddrID); err != nil {
		return nil, err
	}
	if err := checkAddressOwnership(ctx, r, "order", accountID, billingAddrID); err != nil {
		return nil, err
	}

	order := &models.Order{
		AccountID:         accountID,
		ShippingAddressID: shippingAddrID,
		BillingAddressID:  billingAddrID,
		Status:            models.OrderPending,
		TotalAmount:       decimal.Zero,
		CreatedAt:         e.now().Unix(),
	}
	if err := tx.Create(order).Error; err != nil {
		return nil, err
	}

	orderLines := make([]models.OrderLine, 0, len(lines))
	for _, l := range lines {
		p, err := r.Product(ctx, l.ProductID)
		if err != nil {
			return nil, mustExist(err, "order_line", "product")
		}
		if !p.Active {
			return nil, &ConstraintViolation{Entity: "product", Field: "active", Rule: "inactive products cannot be ordered"}
		}

		// Guarded decrement: the row only changes when enough stock is left,
		// so the counter can never go negative even without the lock.
		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock_quantity >= ?", l.ProductID, l.Quantity).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", l.Quantity))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			current, err := r.Product(ctx, l.ProductID)
			if err != nil {
				return nil, err
			}
			return nil, &InsufficientStock{
				ProductID: l.ProductID,
				Requested: l.Quantity,
				Available: current.StockQuantity,
			}
		}

		ol := models.OrderLine{
			OrderID:   order.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: p.Price,
			Subtotal:  LineSubtotal(l.Quantity, p.Price),
		}
		if err := tx.Create(&ol).Error; err != nil {
			return nil, err
		}
		orderLines = append(orderLines, ol)
	}

	order.TotalAmount = OrderTotal(orderLines, nil)
	if err := tx.Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// ApplyDiscount attaches a discount to a pending order, recomputes the total
// and burns one use of the code, all atomically under the discount and order
// locks. The order lock keeps two concurrent applications from reading the
// same prior discounts and overwriting each other's total.
func (e *Engine) ApplyDiscount(ctx context.Context, orderID uint, code string) (*models.OrderDiscount, error) {
	known, err := e.Repo().DiscountByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &DiscountNotApplicable{Code: code, Reason: "unknown code"}
		}
		return nil, err
	}

	release, err := e.locks.acquire(ctx, discountKey(known.ID), orderKey(orderID))
	if err != nil {
		return nil, err
	}
	defer release()

	var applied *models.OrderDiscount
	err = e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		order, err := r.Order(ctx, orderID)
		if err != nil {
			return notFound("order", orderID, err)
		}
		if order.Status != models.OrderPending {
			return &DiscountNotApplicable{Code: code, Reason: "order is no longer pending"}
		}

		d, err := r.Discount(ctx, known.ID)
		if err != nil {
			return notFound("discount", known.ID, err)
		}
		if has, err := r.OrderHasDiscount(ctx, orderID, d.ID); err != nil {
			return err
		} else if has {
			return &DiscountNotApplicable{Code: code, Reason: "already applied to this order"}
		}

		lines, err := r.OrderLines(ctx, orderID)
		if err != nil {
			return err
		}
		existing, err := r.OrderDiscounts(ctx, orderID)
		if err != nil {
			return err
		}
		subtotal := OrderSubtotal(lines)
		currentTotal := OrderTotal(lines, existing)

		if err := CheckApplicable(d, subtotal, e.now()); err != nil {
			return err
		}
		amount := DiscountAmount(d, subtotal, currentTotal)

		applied = &models.OrderDiscount{OrderID: orderID, DiscountID: d.ID, Amount: amount}
		if err := tx.Create(applied).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Discount{}).
			Where("id = ?", d.ID).
			UpdateColumn("current_uses", gorm.Expr("current_uses + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.Order{}).
			Where("id = ?", orderID).
			UpdateColumn("total_amount", currentTotal.Sub(amount)).Error
	})
	if err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "discount applied",
		"order_id", orderID, "code", code, "amount", applied.Amount)
	return applied, nil
}

// RecordPayment creates the order's single pending payment under the order
// lock. The amount must match the order total exactly at creation time.
func (e *Engine) RecordPayment(ctx context.Context, orderID uint, method models.PaymentMethod, amount decimal.Decimal) (*models.Payment, error) {
	release, err := e.locks.acquire(ctx, orderKey(orderID))
	if err != nil {
		return nil, err
	}
	defer release()

	var payment *models.Payment
	err = e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		order, err := r.Order(ctx, orderID)
		if err != nil {
			return notFound("order", orderID, err)
		}
		if err := checkPaymentCardinality(ctx, r, orderID); err != nil {
			return err
		}
		if !amount.Equal(order.TotalAmount) {
			return &ConstraintViolation{Entity: "payment", Field: "amount", Rule: "must equal the order total"}
		}
		payment = &models.Payment{
			OrderID:        orderID,
			Amount:         amount,
			Status:         models.PaymentPending,
			Method:         method,
			TransactionRef: e.newRef(),
			CreatedAt:      e.now().Unix(),
		}
		if err := validatePayment(ctx, r, payment); err != nil {
			return err
		}
		return tx.Create(payment).Error
	})
	if err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "payment recorded",
		"payment_id", payment.ID, "order_id", orderID, "amount", amount)
	return payment, nil
}

// SettlePayment moves a payment through its lifecycle under the order lock
// and keeps the order in step: completion advances the order to processing,
// a refund drives the order to refunded, a failure leaves the order
// untouched for retry.
func (e *Engine) SettlePayment(ctx context.Context, paymentID uint, outcome models.PaymentStatus) (*models.Payment, error) {
	if !outcome.Valid() {
		return nil, &ConstraintViolation{Entity: "payment", Field: "status", Rule: "unknown value"}
	}
	pre, err := e.Repo().Payment(ctx, paymentID)
	if err != nil {
		return nil, notFound("payment", paymentID, err)
	}
	release, err := e.locks.acquire(ctx, orderKey(pre.OrderID))
	if err != nil {
		return nil, err
	}
	defer release()

	var payment *models.Payment
	err = e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		p, err := r.Payment(ctx, paymentID)
		if err != nil {
			return notFound("payment", paymentID, err)
		}
		order, err := r.Order(ctx, p.OrderID)
		if err != nil {
			return notFound("order", p.OrderID, err)
		}
		if err := CheckPaymentTransition(p.Status, outcome, order.Status); err != nil {
			return err
		}

		switch outcome {
		case models.PaymentCompleted:
			// The order may already be processing if fulfilment advanced it
			// before the payment cleared; the payment still completes.
			if order.Status != models.OrderProcessing {
				if err := CheckOrderTransition(order.Status, models.OrderProcessing); err != nil {
					return err
				}
				if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
					UpdateColumn("status", models.OrderProcessing).Error; err != nil {
					return err
				}
			}
		case models.PaymentRefunded:
			if err := CheckOrderTransition(order.Status, models.OrderRefunded); err != nil {
				return err
			}
			if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
				UpdateColumn("status", models.OrderRefunded).Error; err != nil {
				return err
			}
		}

		p.Status = outcome
		payment = p
		return tx.Save(p).Error
	})
	if err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "payment settled",
		"payment_id", paymentID, "outcome", outcome)
	return payment, nil
}

// CancelOrder is legal from pending or processing only; it puts every line's
// quantity back on the shelf under the order and product locks.
func (e *Engine) CancelOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	preLines, err := e.Repo().OrderLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(preLines)+1)
	keys = append(keys, orderKey(orderID))
	for _, l := range preLines {
		keys = append(keys, productKey(l.ProductID))
	}

	release, err := e.locks.acquire(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	var order *models.Order
	err = e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		o, err := r.Order(ctx, orderID)
		if err != nil {
			return notFound("order", orderID, err)
		}
		if err := CheckOrderTransition(o.Status, models.OrderCancelled); err != nil {
			return err
		}
		lines, err := r.OrderLines(ctx, orderID)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", l.ProductID).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", l.Quantity)).Error; err != nil {
				return err
			}
		}
		o.Status = models.OrderCancelled
		order = o
		return tx.Save(o).Error
	})
	if err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "order cancelled", "order_id", orderID)
	return order, nil
}

// AdvanceOrder handles the fulfilment moves (processing, shipped, delivered).
// Cancellation and refund have dedicated operations because they touch more
// than the status column.
func (e *Engine) AdvanceOrder(ctx context.Context, orderID uint, to models.OrderStatus) (*models.Order, error) {
	if !to.Valid() {
		return nil, &ConstraintViolation{Entity: "order", Field: "status", Rule: "unknown value"}
	}
	if to == models.OrderCancelled || to == models.OrderRefunded {
		return nil, &ConstraintViolation{Entity: "order", Field: "status", Rule: "cancel and refund have dedicated operations"}
	}
	var order *models.Order
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		o, err := r.Order(ctx, orderID)
		if err != nil {
			return notFound("order", orderID, err)
		}
		if err := CheckOrderTransition(o.Status, to); err != nil {
			return err
		}
		o.Status = to
		order = o
		return tx.Save(o).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
