package engine

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/storekit/shopcore/internal/models"
	"github.com/storekit/shopcore/internal/repo"
)

// --- Products ---

func (e *Engine) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if err := validateProduct(ctx, r, p); err != nil {
			return err
		}
		if err := checkCategoryExists(ctx, r, "product", p.CategoryID); err != nil {
			return err
		}
		return tx.Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "product created", "product_id", p.ID, "sku", p.SKU)
	return p, nil
}

// UpdateProduct serializes on the product lock because it may move stock,
// which concurrent orders are contending for.
func (e *Engine) UpdateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	release, err := e.locks.acquire(ctx, productKey(p.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	err = e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if _, err := r.Product(ctx, p.ID); err != nil {
			return notFound("product", p.ID, err)
		}
		if err := validateProduct(ctx, r, p); err != nil {
			return err
		}
		if err := checkCategoryExists(ctx, r, "product", p.CategoryID); err != nil {
			return err
		}
		return tx.Save(p).Error
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProduct cascades to the product's images; any order line, review,
// cart line or wishlist line blocks it.
func (e *Engine) DeleteProduct(ctx context.Context, id uint) error {
	return e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if _, err := r.Product(ctx, id); err != nil {
			return notFound("product", id, err)
		}
		if err := checkDeleteProduct(ctx, r, id); err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, id).Error
	})
}

// --- Product images ---

func (e *Engine) AddProductImage(ctx context.Context, img *models.ProductImage) (*models.ProductImage, error) {
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if err := checkProductExists(ctx, r, "product_image", img.ProductID); err != nil {
			return err
		}
		if err := validateProductImage(ctx, r, img); err != nil {
			return err
		}
		return tx.Create(img).Error
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// SetPrimaryImage atomically demotes the previous primary so the at-most-one
// invariant holds at every commit point.
func (e *Engine) SetPrimaryImage(ctx context.Context, productID, imageID uint) error {
	return e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		img, err := r.ProductImage(ctx, imageID)
		if err != nil {
			return notFound("product_image", imageID, err)
		}
		if img.ProductID != productID {
			return refViolation("product_image", "product", "belongs to a different product")
		}
		if err := tx.Model(&models.ProductImage{}).
			Where("product_id = ?", productID).
			UpdateColumn("is_primary", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.ProductImage{}).
			Where("id = ?", imageID).
			UpdateColumn("is_primary", true).Error
	})
}

func (e *Engine) DeleteProductImage(ctx context.Context, id uint) error {
	return e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if _, err := r.ProductImage(ctx, id); err != nil {
			return notFound("product_image", id, err)
		}
		return tx.Delete(&models.ProductImage{}, id).Error
	})
}

// --- Reviews ---

func (e *Engine) CreateReview(ctx context.Context, rv *models.Review) (*models.Review, error) {
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if err := checkAccountExists(ctx, r, "review", rv.AccountID); err != nil {
			return err
		}
		if err := checkProductExists(ctx, r, "review", rv.ProductID); err != nil {
			return err
		}
		if err := validateReview(ctx, r, rv); err != nil {
			return err
		}
		return tx.Create(rv).Error
	})
	if err != nil {
		return nil, err
	}
	return rv, nil
}

func (e *Engine) DeleteReview(ctx context.Context, id uint) error {
	return e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if _, err := r.Review(ctx, id); err != nil {
			return notFound("review", id, err)
		}
		return tx.Delete(&models.Review{}, id).Error
	})
}

// --- Cart ---

// AddCartLine merges into an existing line for the same product instead of
// violating the one-line-per-pair rule.
func (e *Engine) AddCartLine(ctx context.Context, accountID, productID, quantity uint) (*models.CartLine, error) {
	if quantity < 1 {
		return nil, &ConstraintViolation{Entity: "cart_line", Field: "quantity", Rule: "must be >= 1"}
	}
	var line *models.CartLine
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if err := checkAccountExists(ctx, r, "cart_line", accountID); err != nil {
			return err
		}
		if err := checkProductExists(ctx, r, "cart_line", productID); err != nil {
			return err
		}
		var existing models.CartLine
		res := tx.Where("account_id = ? AND product_id = ?", accountID, productID).First(&existing)
		if res.Error == nil {
			existing.Quantity += quantity
			line = &existing
			return tx.Save(&existing).Error
		}
		if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return res.Error
		}
		line = &models.CartLine{AccountID: accountID, ProductID: productID, Quantity: quantity}
		if err := validateCartLine(ctx, r, line); err != nil {
			return err
		}
		return tx.Create(line).Error
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (e *Engine) UpdateCartLine(ctx context.Context, id, quantity uint) (*models.CartLine, error) {
	var line *models.CartLine
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		existing, err := r.CartLine(ctx, id)
		if err != nil {
			return notFound("cart_line", id, err)
		}
		existing.Quantity = quantity
		if err := validateCartLine(ctx, r, existing); err != nil {
			return err
		}
		line = existing
		return tx.Save(existing).Error
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (e *Engine) RemoveCartLine(ctx context.Context, id uint) error {
	return e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if _, err := r.CartLine(ctx, id); err != nil {
			return notFound("cart_line", id, err)
		}
		return tx.Delete(&models.CartLine{}, id).Error
	})
}

func (e *Engine) ClearCart(ctx context.Context, accountID uint) error {
	return e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		return tx.Where("account_id = ?", accountID).Delete(&models.CartLine{}).Error
	})
}

// --- Wishlist ---

func (e *Engine) AddWishlistLine(ctx context.Context, accountID, productID uint) (*models.WishlistLine, error) {
	line := &models.WishlistLine{AccountID: accountID, ProductID: productID}
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if err := checkAccountExists(ctx, r, "wishlist_line", accountID); err != nil {
			return err
		}
		if err := checkProductExists(ctx, r, "wishlist_line", productID); err != nil {
			return err
		}
		if err := validateWishlistLine(ctx, r, line); err != nil {
			return err
		}
		return tx.Create(line).Error
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (e *Engine) RemoveWishlistLine(ctx context.Context, id uint) error {
	return e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if _, err := r.WishlistLine(ctx, id); err != nil {
			return notFound("wishlist_line", id, err)
		}
		return tx.Delete(&models.WishlistLine{}, id).Error
	})
}

// --- Discounts ---

func (e *Engine) CreateDiscount(ctx context.Context, d *models.Discount) (*models.Discount, error) {
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if err := validateDiscount(ctx, r, d); err != nil {
			return err
		}
		return tx.Create(d).Error
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDiscount takes the discount lock: the usage counter is contended
// with concurrent ApplyDiscount calls.
func (e *Engine) UpdateDiscount(ctx context.Context, d *models.Discount) (*models.Discount, error) {
	release, err := e.locks.acquire(ctx, discountKey(d.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	err = e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if _, err := r.Discount(ctx, d.ID); err != nil {
			return notFound("discount", d.ID, err)
		}
		if err := validateDiscount(ctx, r, d); err != nil {
			return err
		}
		return tx.Save(d).Error
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (e *Engine) DeleteDiscount(ctx context.Context, id uint) error {
	return e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if _, err := r.Discount(ctx, id); err != nil {
			return notFound("discount", id, err)
		}
		if err := checkDeleteDiscount(ctx, r, id); err != nil {
			return err
		}
		return tx.Delete(&models.Discount{}, id).Error
	})
}
