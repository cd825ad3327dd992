package engine

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/storekit/shopcore/internal/models"
	"github.com/storekit/shopcore/internal/repo"
)

// Relationship integrity: every reference must point at an existing row in
// the transaction snapshot, cardinality rules must hold, and deletions
// follow the ownership policy (cascade for owned leaves, restrict where
// history or catalog integrity depends on the target).

func refViolation(entity, reference, rule string) error {
	return &ReferentialViolation{Entity: entity, Reference: reference, Rule: rule}
}

func mustExist(err error, entity, reference string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return refViolation(entity, reference, "does not exist")
	}
	return err
}

func checkAddressOwnership(ctx context.Context, r *repo.GormRepo, entity string, accountID, addressID uint) error {
	addr, err := r.Address(ctx, addressID)
	if err != nil {
		return mustExist(err, entity, "address")
	}
	if addr.AccountID != accountID {
		return refViolation(entity, "address", "belongs to a different account")
	}
	return nil
}

func checkAccountExists(ctx context.Context, r *repo.GormRepo, entity string, accountID uint) error {
	if _, err := r.Account(ctx, accountID); err != nil {
		return mustExist(err, entity, "account")
	}
	return nil
}

func checkProductExists(ctx context.Context, r *repo.GormRepo, entity string, productID uint) error {
	if _, err := r.Product(ctx, productID); err != nil {
		return mustExist(err, entity, "product")
	}
	return nil
}

func checkCategoryExists(ctx context.Context, r *repo.GormRepo, entity string, categoryID uint) error {
	if _, err := r.Category(ctx, categoryID); err != nil {
		return mustExist(err, entity, "category")
	}
	return nil
}

// checkCategoryParent confirms the parent exists and that attaching it does
// not close a cycle. The walk is bounded by the number of categories.
func checkCategoryParent(ctx context.Context, r *repo.GormRepo, c *models.Category) error {
	if c.ParentID == nil {
		return nil
	}
	if *c.ParentID == c.ID {
		return refViolation("category", "parent", "must not reference itself")
	}
	cur := *c.ParentID
	for {
		parent, err := r.Category(ctx, cur)
		if err != nil {
			return mustExist(err, "category", "parent")
		}
		if parent.ID == c.ID {
			return refViolation("category", "parent", "would create a cycle")
		}
		if parent.ParentID == nil {
			return nil
		}
		cur = *parent.ParentID
	}
}

func checkPaymentCardinality(ctx context.Context, r *repo.GormRepo, orderID uint) error {
	has, err := r.OrderHasPayment(ctx, orderID)
	if err != nil {
		return err
	}
	if has {
		return refViolation("payment", "order", "already has a payment")
	}
	return nil
}

func checkOrderDiscountCardinality(ctx context.Context, r *repo.GormRepo, orderID, discountID uint) error {
	has, err := r.OrderHasDiscount(ctx, orderID, discountID)
	if err != nil {
		return err
	}
	if has {
		return refViolation("order_discount", "order", "discount already applied to this order")
	}
	return nil
}

// Deletion policy checks. Each returns nil when the delete may proceed;
// cascades are executed by the coordinator after the check passes.

func checkDeleteAccount(ctx context.Context, r *repo.GormRepo, accountID uint) error {
	has, err := r.AccountHasOrders(ctx, accountID)
	if err != nil {
		return err
	}
	if has {
		return refViolation("account", "order", "restricts deletion")
	}
	return nil
}

func checkDeleteAddress(ctx context.Context, r *repo.GormRepo, addressID uint) error {
	referenced, err := r.AddressReferenced(ctx, addressID)
	if err != nil {
		return err
	}
	if referenced {
		return refViolation("address", "order", "restricts deletion")
	}
	return nil
}

func checkDeleteCategory(ctx context.Context, r *repo.GormRepo, categoryID uint) error {
	if has, err := r.CategoryHasProducts(ctx, categoryID); err != nil {
		return err
	} else if has {
		return refViolation("category", "product", "restricts deletion")
	}
	if has, err := r.CategoryHasChildren(ctx, categoryID); err != nil {
		return err
	} else if has {
		return refViolation("category", "child category", "restricts deletion")
	}
	return nil
}

func checkDeleteProduct(ctx context.Context, r *repo.GormRepo, productID uint) error {
	referenced, err := r.ProductReferenced(ctx, productID)
	if err != nil {
		return err
	}
	if referenced {
		return refViolation("product", "order line, review, cart or wishlist", "restricts deletion")
	}
	return nil
}

func checkDeleteDiscount(ctx context.Context, r *repo.GormRepo, discountID uint) error {
	referenced, err := r.DiscountReferenced(ctx, discountID)
	if err != nil {
		return err
	}
	if referenced {
		return refViolation("discount", "order discount", "restricts deletion")
	}
	return nil
}
