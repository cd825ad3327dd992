package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/storekit/shopcore/internal/models"
)

// GormRepo wraps a *gorm.DB (usually a transaction handle) with the typed
// lookups the validation and integrity checks run against. Reads made through
// a transaction handle see that transaction's own uncommitted writes, which
// is what keeps in-flight state invisible to everyone else.
type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func get[T any](r *GormRepo, ctx context.Context, id uint) (*T, error) {
	var out T
	if err := r.DB.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *GormRepo) Account(ctx context.Context, id uint) (*models.Account, error) {
	return get[models.Account](r, ctx, id)
}

func (r *GormRepo) Address(ctx context.Context, id uint) (*models.Address, error) {
	return get[models.Address](r, ctx, id)
}

func (r *GormRepo) Category(ctx context.Context, id uint) (*models.Category, error) {
	return get[models.Category](r, ctx, id)
}

func (r *GormRepo) Product(ctx context.Context, id uint) (*models.Product, error) {
	return get[models.Product](r, ctx, id)
}

func (r *GormRepo) ProductImage(ctx context.Context, id uint) (*models.ProductImage, error) {
	return get[models.ProductImage](r, ctx, id)
}

func (r *GormRepo) Order(ctx context.Context, id uint) (*models.Order, error) {
	return get[models.Order](r, ctx, id)
}

func (r *GormRepo) Payment(ctx context.Context, id uint) (*models.Payment, error) {
	return get[models.Payment](r, ctx, id)
}

func (r *GormRepo) Discount(ctx context.Context, id uint) (*models.Discount, error) {
	return get[models.Discount](r, ctx, id)
}

func (r *GormRepo) Review(ctx context.Context, id uint) (*models.Review, error) {
	return get[models.Review](r, ctx, id)
}

func (r *GormRepo) CartLine(ctx context.Context, id uint) (*models.CartLine, error) {
	return get[models.CartLine](r, ctx, id)
}

func (r *GormRepo) WishlistLine(ctx context.Context, id uint) (*models.WishlistLine, error) {
	return get[models.WishlistLine](r, ctx, id)
}

func (r *GormRepo) DiscountByCode(ctx context.Context, code string) (*models.Discount, error) {
	var d models.Discount
	if err := r.DB.WithContext(ctx).Where("code = ?", code).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *GormRepo) PaymentForOrder(ctx context.Context, orderID uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) OrderLines(ctx context.Context, orderID uint) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&lines).Error
	return lines, err
}

func (r *GormRepo) OrderDiscounts(ctx context.Context, orderID uint) ([]models.OrderDiscount, error) {
	var ds []models.OrderDiscount
	err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).Find(&ds).Error
	return ds, err
}

func (r *GormRepo) CartLines(ctx context.Context, accountID uint) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.DB.WithContext(ctx).Where("account_id = ?", accountID).Order("id ASC").Find(&lines).Error
	return lines, err
}

func (r *GormRepo) WishlistLines(ctx context.Context, accountID uint) ([]models.WishlistLine, error) {
	var lines []models.WishlistLine
	err := r.DB.WithContext(ctx).Where("account_id = ?", accountID).Order("id ASC").Find(&lines).Error
	return lines, err
}

func (r *GormRepo) Addresses(ctx context.Context, accountID uint) ([]models.Address, error) {
	var addrs []models.Address
	err := r.DB.WithContext(ctx).Where("account_id = ?", accountID).Order("id ASC").Find(&addrs).Error
	return addrs, err
}

func (r *GormRepo) ProductImages(ctx context.Context, productID uint) ([]models.ProductImage, error) {
	var imgs []models.ProductImage
	err := r.DB.WithContext(ctx).Where("product_id = ?", productID).Order("id ASC").Find(&imgs).Error
	return imgs, err
}

func (r *GormRepo) Products(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	var items []models.Product
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) OrdersForAccount(ctx context.Context, accountID uint, offset, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).Where("account_id = ?", accountID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error
	return orders, err
}

func (r *GormRepo) ReviewsForProduct(ctx context.Context, productID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := r.DB.WithContext(ctx).Where("product_id = ?", productID).Order("id ASC").Find(&reviews).Error
	return reviews, err
}

func (r *GormRepo) count(ctx context.Context, model any, query string, args ...any) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(model).Where(query, args...).Count(&n).Error
	return n, err
}

// Uniqueness probes. "Taken" means held by a different row than excludeID.

func (r *GormRepo) HandleTaken(ctx context.Context, handle string, excludeID uint) (bool, error) {
	n, err := r.count(ctx, &models.Account{}, "handle = ? AND id <> ?", handle, excludeID)
	return n > 0, err
}

func (r *GormRepo) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	n, err := r.count(ctx, &models.Account{}, "email = ? AND id <> ?", email, excludeID)
	return n > 0, err
}

func (r *GormRepo) SKUTaken(ctx context.Context, sku string, excludeID uint) (bool, error) {
	n, err := r.count(ctx, &models.Product{}, "sku = ? AND id <> ?", sku, excludeID)
	return n > 0, err
}

func (r *GormRepo) DiscountCodeTaken(ctx context.Context, code string, excludeID uint) (bool, error) {
	n, err := r.count(ctx, &models.Discount{}, "code = ? AND id <> ?", code, excludeID)
	return n > 0, err
}

func (r *GormRepo) TransactionRefTaken(ctx context.Context, ref string, excludeID uint) (bool, error) {
	n, err := r.count(ctx, &models.Payment{}, "transaction_ref = ? AND id <> ?", ref, excludeID)
	return n > 0, err
}

func (r *GormRepo) ReviewPairTaken(ctx context.Context, accountID, productID, excludeID uint) (bool, error) {
	n, err := r.count(ctx, &models.Review{},
		"account_id = ? AND product_id = ? AND id <> ?", accountID, productID, excludeID)
	return n > 0, err
}

func (r *GormRepo) CartPairTaken(ctx context.Context, accountID, productID, excludeID uint) (bool, error) {
	n, err := r.count(ctx, &models.CartLine{},
		"account_id = ? AND product_id = ? AND id <> ?", accountID, productID, excludeID)
	return n > 0, err
}

func (r *GormRepo) WishlistPairTaken(ctx context.Context, accountID, productID, excludeID uint) (bool, error) {
	n, err := r.count(ctx, &models.WishlistLine{},
		"account_id = ? AND product_id = ? AND id <> ?", accountID, productID, excludeID)
	return n > 0, err
}

func (r *GormRepo) OrderHasPayment(ctx context.Context, orderID uint) (bool, error) {
	n, err := r.count(ctx, &models.Payment{}, "order_id = ?", orderID)
	return n > 0, err
}

func (r *GormRepo) OrderHasDiscount(ctx context.Context, orderID, discountID uint) (bool, error) {
	n, err := r.count(ctx, &models.OrderDiscount{},
		"order_id = ? AND discount_id = ?", orderID, discountID)
	return n > 0, err
}

// Reference probes for the deletion policy.

func (r *GormRepo) AccountHasOrders(ctx context.Context, accountID uint) (bool, error) {
	n, err := r.count(ctx, &models.Order{}, "account_id = ?", accountID)
	return n > 0, err
}

func (r *GormRepo) AddressReferenced(ctx context.Context, addressID uint) (bool, error) {
	n, err := r.count(ctx, &models.Order{},
		"shipping_address_id = ? OR billing_address_id = ?", addressID, addressID)
	return n > 0, err
}

func (r *GormRepo) CategoryHasProducts(ctx context.Context, categoryID uint) (bool, error) {
	n, err := r.count(ctx, &models.Product{}, "category_id = ?", categoryID)
	return n > 0, err
}

func (r *GormRepo) CategoryHasChildren(ctx context.Context, categoryID uint) (bool, error) {
	n, err := r.count(ctx, &models.Category{}, "parent_id = ?", categoryID)
	return n > 0, err
}

func (r *GormRepo) ProductReferenced(ctx context.Context, productID uint) (bool, error) {
	for _, probe := range []struct {
		model any
		where string
	}{
		{&models.OrderLine{}, "product_id = ?"},
		{&models.Review{}, "product_id = ?"},
		{&models.CartLine{}, "product_id = ?"},
		{&models.WishlistLine{}, "product_id = ?"},
	} {
		n, err := r.count(ctx, probe.model, probe.where, productID)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (r *GormRepo) DiscountReferenced(ctx context.Context, discountID uint) (bool, error) {
	n, err := r.count(ctx, &models.OrderDiscount{}, "discount_id = ?", discountID)
	return n > 0, err
}

func (r *GormRepo) ProductHasPrimaryImage(ctx context.Context, productID, excludeID uint) (bool, error) {
	n, err := r.count(ctx, &models.ProductImage{},
		"product_id = ? AND is_primary AND id <> ?", productID, excludeID)
	return n > 0, err
}
