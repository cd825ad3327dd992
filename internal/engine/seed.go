package engine

import (
	"context"

	"gorm.io/gorm"

	"github.com/storekit/shopcore/internal/models"
	"github.com/storekit/shopcore/internal/repo"
)

// SeedBundle is a bulk-import payload. Rows carry explicit IDs so references
// inside the bundle line up; categories must be listed parent-first.
type SeedBundle struct {
	Accounts       []models.Account       `json:"accounts"`
	Addresses      []models.Address       `json:"addresses"`
	Categories     []models.Category      `json:"categories"`
	Products       []models.Product       `json:"products"`
	ProductImages  []models.ProductImage  `json:"product_images"`
	Discounts      []models.Discount      `json:"discounts"`
	Orders         []models.Order         `json:"orders"`
	OrderLines     []models.OrderLine     `json:"order_lines"`
	OrderDiscounts []models.OrderDiscount `json:"order_discounts"`
	Payments       []models.Payment       `json:"payments"`
	Reviews        []models.Review        `json:"reviews"`
	CartLines      []models.CartLine      `json:"cart_lines"`
	WishlistLines  []models.WishlistLine  `json:"wishlist_lines"`
}

// Import loads a bundle in dependency order inside one transaction. Bulk
// input is not trusted: every row passes the same validation and integrity
// checks as a live call, and every derived field is recomputed rather than
// read from the payload. Lines of open orders (pending, processing) reserve
// stock like a live PlaceOrder would, so a later cancel restores exactly what
// was taken; settled orders are history and leave the counters alone.
func (e *Engine) Import(ctx context.Context, b *SeedBundle) error {
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		for i := range b.Accounts {
			a := &b.Accounts[i]
			if err := validateAccount(ctx, r, a); err != nil {
				return err
			}
			if err := tx.Create(a).Error; err != nil {
				return err
			}
		}
		for i := range b.Addresses {
			addr := &b.Addresses[i]
			if err := validateAddress(addr); err != nil {
				return err
			}
			if err := checkAccountExists(ctx, r, "address", addr.AccountID); err != nil {
				return err
			}
			if err := tx.Create(addr).Error; err != nil {
				return err
			}
		}
		for i := range b.Categories {
			c := &b.Categories[i]
			if err := validateCategory(c); err != nil {
				return err
			}
			if c.ParentID != nil {
				if err := checkCategoryExists(ctx, r, "category", *c.ParentID); err != nil {
					return err
				}
			}
			if err := tx.Create(c).Error; err != nil {
				return err
			}
		}
		for i := range b.Products {
			p := &b.Products[i]
			if err := validateProduct(ctx, r, p); err != nil {
				return err
			}
			if err := checkCategoryExists(ctx, r, "product", p.CategoryID); err != nil {
				return err
			}
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		for i := range b.ProductImages {
			img := &b.ProductImages[i]
			if err := checkProductExists(ctx, r, "product_image", img.ProductID); err != nil {
				return err
			}
			if err := validateProductImage(ctx, r, img); err != nil {
				return err
			}
			if err := tx.Create(img).Error; err != nil {
				return err
			}
		}
		for i := range b.Discounts {
			d := &b.Discounts[i]
			if err := validateDiscount(ctx, r, d); err != nil {
				return err
			}
			if err := tx.Create(d).Error; err != nil {
				return err
			}
		}
		for i := range b.Orders {
			o := &b.Orders[i]
			if !o.Status.Valid() {
				return &ConstraintViolation{Entity: "order", Field: "status", Rule: "unknown value"}
			}
			if err := checkAccountExists(ctx, r, "order", o.AccountID); err != nil {
				return err
			}
			if err := checkAddressOwnership(ctx, r, "order", o.AccountID, o.ShippingAddressID); err != nil {
				return err
			}
			if err := checkAddressOwnership(ctx, r, "order", o.AccountID, o.BillingAddressID); err != nil {
				return err
			}
			if err := tx.Create(o).Error; err != nil {
				return err
			}
		}
		for i := range b.OrderLines {
			ol := &b.OrderLines[i]
			if ol.Quantity < 1 {
				return &ConstraintViolation{Entity: "order_line", Field: "quantity", Rule: "must be >= 1"}
			}
			if ol.UnitPrice.IsNegative() {
				return &ConstraintViolation{Entity: "order_line", Field: "unit_price", Rule: "must be >= 0"}
			}
			order, err := r.Order(ctx, ol.OrderID)
			if err != nil {
				return mustExist(err, "order_line", "order")
			}
			if err := checkProductExists(ctx, r, "order_line", ol.ProductID); err != nil {
				return err
			}
			if order.Status == models.OrderPending || order.Status == models.OrderProcessing {
				res := tx.Model(&models.Product{}).
					Where("id = ? AND stock_quantity >= ?", ol.ProductID, ol.Quantity).
					UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", ol.Quantity))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					current, err := r.Product(ctx, ol.ProductID)
					if err != nil {
						return err
					}
					return &InsufficientStock{
						ProductID: ol.ProductID,
						Requested: ol.Quantity,
						Available: current.StockQuantity,
					}
				}
			}
			ol.Subtotal = LineSubtotal(ol.Quantity, ol.UnitPrice)
			if err := tx.Create(ol).Error; err != nil {
				return err
			}
		}
		for i := range b.OrderDiscounts {
			od := &b.OrderDiscounts[i]
			if _, err := r.Order(ctx, od.OrderID); err != nil {
				return mustExist(err, "order_discount", "order")
			}
			d, err := r.Discount(ctx, od.DiscountID)
			if err != nil {
				return mustExist(err, "order_discount", "discount")
			}
			if err := checkOrderDiscountCardinality(ctx, r, od.OrderID, od.DiscountID); err != nil {
				return err
			}
			lines, err := r.OrderLines(ctx, od.OrderID)
			if err != nil {
				return err
			}
			prior, err := r.OrderDiscounts(ctx, od.OrderID)
			if err != nil {
				return err
			}
			subtotal := OrderSubtotal(lines)
			od.Amount = DiscountAmount(d, subtotal, OrderTotal(lines, prior))
			if err := tx.Create(od).Error; err != nil {
				return err
			}
		}

		// Totals are derived; recompute them from what actually landed.
		for i := range b.Orders {
			o := &b.Orders[i]
			lines, err := r.OrderLines(ctx, o.ID)
			if err != nil {
				return err
			}
			discounts, err := r.OrderDiscounts(ctx, o.ID)
			if err != nil {
				return err
			}
			total := OrderTotal(lines, discounts)
			if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).
				UpdateColumn("total_amount", total).Error; err != nil {
				return err
			}
			o.TotalAmount = total
		}

		for i := range b.Payments {
			p := &b.Payments[i]
			order, err := r.Order(ctx, p.OrderID)
			if err != nil {
				return mustExist(err, "payment", "order")
			}
			if err := checkPaymentCardinality(ctx, r, p.OrderID); err != nil {
				return err
			}
			if !p.Amount.Equal(order.TotalAmount) {
				return &ConstraintViolation{Entity: "payment", Field: "amount", Rule: "must equal the order total"}
			}
			if err := validatePayment(ctx, r, p); err != nil {
				return err
			}
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		for i := range b.Reviews {
			rv := &b.Reviews[i]
			if err := checkAccountExists(ctx, r, "review", rv.AccountID); err != nil {
				return err
			}
			if err := checkProductExists(ctx, r, "review", rv.ProductID); err != nil {
				return err
			}
			if err := validateReview(ctx, r, rv); err != nil {
				return err
			}
			if err := tx.Create(rv).Error; err != nil {
				return err
			}
		}
		for i := range b.CartLines {
			cl := &b.CartLines[i]
			if err := checkAccountExists(ctx, r, "cart_line", cl.AccountID); err != nil {
				return err
			}
			if err := checkProductExists(ctx, r, "cart_line", cl.ProductID); err != nil {
				return err
			}
			if err := validateCartLine(ctx, r, cl); err != nil {
				return err
			}
			if err := tx.Create(cl).Error; err != nil {
				return err
			}
		}
		for i := range b.WishlistLines {
			wl := &b.WishlistLines[i]
			if err := checkAccountExists(ctx, r, "wishlist_line", wl.AccountID); err != nil {
				return err
			}
			if err := checkProductExists(ctx, r, "wishlist_line", wl.ProductID); err != nil {
				return err
			}
			if err := validateWishlistLine(ctx, r, wl); err != nil {
				return err
			}
			if err := tx.Create(wl).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.log.InfoContext(ctx, "seed bundle imported",
		"accounts", len(b.Accounts), "products", len(b.Products), "orders", len(b.Orders))
	return nil
}
