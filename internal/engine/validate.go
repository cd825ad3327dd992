package engine

import (
	"context"

	"github.com/storekit/shopcore/internal/models"
	"github.com/storekit/shopcore/internal/repo"
)

// Constraint validation: field presence, numeric bounds, enum membership and
// uniqueness for a single candidate entity. Uniqueness probes run against the
// enclosing transaction so a concurrent insert cannot slip between check and
// write. Each check fails with a ConstraintViolation naming field and rule.

func required(entity, field, value string) error {
	if value == "" {
		return &ConstraintViolation{Entity: entity, Field: field, Rule: "is required"}
	}
	return nil
}

func validateAccount(ctx context.Context, r *repo.GormRepo, a *models.Account) error {
	if err := required("account", "handle", a.Handle); err != nil {
		return err
	}
	if err := required("account", "email", a.Email); err != nil {
		return err
	}
	if err := required("account", "password_hash", a.PasswordHash); err != nil {
		return err
	}
	if taken, err := r.HandleTaken(ctx, a.Handle, a.ID); err != nil {
		return err
	} else if taken {
		return &ConstraintViolation{Entity: "account", Field: "handle", Rule: "must be unique"}
	}
	if taken, err := r.EmailTaken(ctx, a.Email, a.ID); err != nil {
		return err
	} else if taken {
		return &ConstraintViolation{Entity: "account", Field: "email", Rule: "must be unique"}
	}
	return nil
}

func validateAddress(a *models.Address) error {
	for _, f := range []struct{ name, value string }{
		{"line1", a.Line1}, {"city", a.City}, {"country", a.Country}, {"zip", a.Zip},
	} {
		if err := required("address", f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

func validateCategory(c *models.Category) error {
	return required("category", "name", c.Name)
}

func validateProduct(ctx context.Context, r *repo.GormRepo, p *models.Product) error {
	if err := required("product", "sku", p.SKU); err != nil {
		return err
	}
	if err := required("product", "name", p.Name); err != nil {
		return err
	}
	if p.Price.IsNegative() {
		return &ConstraintViolation{Entity: "product", Field: "price", Rule: "must be >= 0"}
	}
	if p.StockQuantity < 0 {
		return &ConstraintViolation{Entity: "product", Field: "stock_quantity", Rule: "must be >= 0"}
	}
	if taken, err := r.SKUTaken(ctx, p.SKU, p.ID); err != nil {
		return err
	} else if taken {
		return &ConstraintViolation{Entity: "product", Field: "sku", Rule: "must be unique"}
	}
	return nil
}

func validateOrderLineInput(in LineInput) error {
	if in.Quantity < 1 {
		return &ConstraintViolation{Entity: "order_line", Field: "quantity", Rule: "must be >= 1"}
	}
	return nil
}

func validatePayment(ctx context.Context, r *repo.GormRepo, p *models.Payment) error {
	if !p.Method.Valid() {
		return &ConstraintViolation{Entity: "payment", Field: "method", Rule: "unknown value"}
	}
	if !p.Status.Valid() {
		return &ConstraintViolation{Entity: "payment", Field: "status", Rule: "unknown value"}
	}
	if err := required("payment", "transaction_ref", p.TransactionRef); err != nil {
		return err
	}
	if taken, err := r.TransactionRefTaken(ctx, p.TransactionRef, p.ID); err != nil {
		return err
	} else if taken {
		return &ConstraintViolation{Entity: "payment", Field: "transaction_ref", Rule: "must be unique"}
	}
	return nil
}

func validateReview(ctx context.Context, r *repo.GormRepo, rv *models.Review) error {
	if rv.Rating < 1 || rv.Rating > 5 {
		return &ConstraintViolation{Entity: "review", Field: "rating", Rule: "must be between 1 and 5"}
	}
	if taken, err := r.ReviewPairTaken(ctx, rv.AccountID, rv.ProductID, rv.ID); err != nil {
		return err
	} else if taken {
		return &ConstraintViolation{Entity: "review", Field: "account_id,product_id", Rule: "must be unique"}
	}
	return nil
}

func validateCartLine(ctx context.Context, r *repo.GormRepo, cl *models.CartLine) error {
	if cl.Quantity < 1 {
		return &ConstraintViolation{Entity: "cart_line", Field: "quantity", Rule: "must be >= 1"}
	}
	if taken, err := r.CartPairTaken(ctx, cl.AccountID, cl.ProductID, cl.ID); err != nil {
		return err
	} else if taken {
		return &ConstraintViolation{Entity: "cart_line", Field: "account_id,product_id", Rule: "must be unique"}
	}
	return nil
}

func validateWishlistLine(ctx context.Context, r *repo.GormRepo, wl *models.WishlistLine) error {
	if taken, err := r.WishlistPairTaken(ctx, wl.AccountID, wl.ProductID, wl.ID); err != nil {
		return err
	} else if taken {
		return &ConstraintViolation{Entity: "wishlist_line", Field: "account_id,product_id", Rule: "must be unique"}
	}
	return nil
}

func validateDiscount(ctx context.Context, r *repo.GormRepo, d *models.Discount) error {
	if err := required("discount", "code", d.Code); err != nil {
		return err
	}
	if !d.Type.Valid() {
		return &ConstraintViolation{Entity: "discount", Field: "type", Rule: "unknown value"}
	}
	if d.Value.IsNegative() {
		return &ConstraintViolation{Entity: "discount", Field: "value", Rule: "must be >= 0"}
	}
	if d.MinOrderAmount.IsNegative() {
		return &ConstraintViolation{Entity: "discount", Field: "min_order_amount", Rule: "must be >= 0"}
	}
	if d.EndsAt.Before(d.StartsAt) {
		return &ConstraintViolation{Entity: "discount", Field: "ends_at", Rule: "must not precede starts_at"}
	}
	if taken, err := r.DiscountCodeTaken(ctx, d.Code, d.ID); err != nil {
		return err
	} else if taken {
		return &ConstraintViolation{Entity: "discount", Field: "code", Rule: "must be unique"}
	}
	return nil
}

func validateProductImage(ctx context.Context, r *repo.GormRepo, img *models.ProductImage) error {
	if err := required("product_image", "url", img.URL); err != nil {
		return err
	}
	if img.IsPrimary {
		if has, err := r.ProductHasPrimaryImage(ctx, img.ProductID, img.ID); err != nil {
			return err
		} else if has {
			return &ConstraintViolation{Entity: "product_image", Field: "is_primary", Rule: "at most one per product"}
		}
	}
	return nil
}
