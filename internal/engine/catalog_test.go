package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storekit/shopcore/internal/models"
)

func TestPrimaryImageInvariant(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 1, "1.00")

	first, err := e.AddProductImage(ctx, &models.ProductImage{
		ProductID: f.Product.ID, URL: "https://img.example.com/1.jpg", IsPrimary: true,
	})
	require.NoError(t, err)

	// A second primary for the same product is rejected outright.
	_, err = e.AddProductImage(ctx, &models.ProductImage{
		ProductID: f.Product.ID, URL: "https://img.example.com/2.jpg", IsPrimary: true,
	})
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "is_primary", cv.Field)

	second, err := e.AddProductImage(ctx, &models.ProductImage{
		ProductID: f.Product.ID, URL: "https://img.example.com/2.jpg",
	})
	require.NoError(t, err)

	// Promotion demotes the old primary in the same transaction.
	require.NoError(t, e.SetPrimaryImage(ctx, f.Product.ID, second.ID))

	imgs, err := e.Repo().ProductImages(ctx, f.Product.ID)
	require.NoError(t, err)
	var primaries int
	for _, img := range imgs {
		if img.IsPrimary {
			primaries++
			assert.Equal(t, second.ID, img.ID)
		}
	}
	assert.Equal(t, 1, primaries)

	// An image cannot be promoted through a different product.
	other := addProduct(t, e, f.Category.ID, "SKU-OTHER", 1, "1.00")
	err = e.SetPrimaryImage(ctx, other.ID, first.ID)
	var rv *ReferentialViolation
	require.ErrorAs(t, err, &rv)
}

func TestDeleteProductCascadesImages(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 1, "1.00")

	img, err := e.AddProductImage(ctx, &models.ProductImage{
		ProductID: f.Product.ID, URL: "https://img.example.com/1.jpg",
	})
	require.NoError(t, err)

	require.NoError(t, e.DeleteProduct(ctx, f.Product.ID))

	_, err = e.Repo().ProductImage(ctx, img.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteProductRestrictedByReferences(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 10, "5.00")

	_, err := e.AddWishlistLine(ctx, f.Account.ID, f.Product.ID)
	require.NoError(t, err)

	err = e.DeleteProduct(ctx, f.Product.ID)
	var rv *ReferentialViolation
	require.ErrorAs(t, err, &rv)
	assert.Equal(t, "product", rv.Entity)
}

func TestCartLineMergesOnRepeatAdd(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 10, "5.00")

	first, err := e.AddCartLine(ctx, f.Account.ID, f.Product.ID, 2)
	require.NoError(t, err)
	second, err := e.AddCartLine(ctx, f.Account.ID, f.Product.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, uint(5), second.Quantity)

	lines, err := e.Repo().CartLines(ctx, f.Account.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, uint(5), lines[0].Quantity)
}

func TestAddCartLineRejectsZeroQuantity(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 10, "5.00")

	_, err := e.AddCartLine(ctx, f.Account.ID, f.Product.ID, 0)
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "quantity", cv.Field)

	lines, err := e.Repo().CartLines(ctx, f.Account.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCartLineQuantityBounds(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 10, "5.00")

	line, err := e.AddCartLine(ctx, f.Account.ID, f.Product.ID, 2)
	require.NoError(t, err)

	_, err = e.UpdateCartLine(ctx, line.ID, 0)
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "quantity", cv.Field)
}

func TestReviewPairUniqueness(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 10, "5.00")

	_, err := e.CreateReview(ctx, &models.Review{
		AccountID: f.Account.ID, ProductID: f.Product.ID, Rating: 4, Comment: "solid",
	})
	require.NoError(t, err)

	_, err = e.CreateReview(ctx, &models.Review{
		AccountID: f.Account.ID, ProductID: f.Product.ID, Rating: 5, Comment: "changed my mind",
	})
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "must be unique", cv.Rule)
}

func TestReviewRatingBounds(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 10, "5.00")

	for _, rating := range []int{0, 6} {
		_, err := e.CreateReview(ctx, &models.Review{
			AccountID: f.Account.ID, ProductID: f.Product.ID, Rating: rating,
		})
		var cv *ConstraintViolation
		require.ErrorAs(t, err, &cv, "rating %d", rating)
		assert.Equal(t, "rating", cv.Field)
	}
}

func TestWishlistPairUniqueness(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 10, "5.00")

	_, err := e.AddWishlistLine(ctx, f.Account.ID, f.Product.ID)
	require.NoError(t, err)

	_, err = e.AddWishlistLine(ctx, f.Account.ID, f.Product.ID)
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "account_id,product_id", cv.Field)
}

func TestDiscountCodeUniqueAndDeleteRestricted(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 10, "60.00")

	d := seedDiscount(t, e, "SUMMER", nil)

	_, err := e.CreateDiscount(ctx, &models.Discount{
		Code: "SUMMER", Type: models.DiscountFixedAmount, Value: dec("5"),
		StartsAt: d.StartsAt, EndsAt: d.EndsAt, Active: true,
	})
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "code", cv.Field)

	order, err := e.PlaceOrder(ctx, f.Account.ID,
		[]LineInput{{ProductID: f.Product.ID, Quantity: 2}}, f.Address.ID, f.Address.ID)
	require.NoError(t, err)
	_, err = e.ApplyDiscount(ctx, order.ID, "SUMMER")
	require.NoError(t, err)

	// An applied discount is part of order history and cannot be removed.
	err = e.DeleteDiscount(ctx, d.ID)
	var rv *ReferentialViolation
	require.ErrorAs(t, err, &rv)
	assert.Equal(t, "discount", rv.Entity)
}
