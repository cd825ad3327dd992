package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storekit/shopcore/internal/models"
)

func sampleBundle() *SeedBundle {
	now := time.Now()
	return &SeedBundle{
		Accounts: []models.Account{
			{ID: 1, Handle: "importer", Email: "importer@example.com", PasswordHash: "$2a$10$seedhash", Active: true},
		},
		Addresses: []models.Address{
			{ID: 1, AccountID: 1, Line1: "1 Depot Rd", City: "Springfield", Country: "US", Zip: "12345"},
		},
		Categories: []models.Category{
			{ID: 1, Name: "imported"},
		},
		Products: []models.Product{
			{ID: 1, CategoryID: 1, SKU: "IMP-1", Name: "imported widget", Price: dec("10.00"), StockQuantity: 50, Active: true},
		},
		ProductImages: []models.ProductImage{
			{ID: 1, ProductID: 1, URL: "https://img.example.com/imp.jpg", IsPrimary: true},
		},
		Discounts: []models.Discount{
			{ID: 1, Code: "IMPORTED10", Type: models.DiscountPercentage, Value: dec("10"),
				StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), Active: true},
		},
		Orders: []models.Order{
			{ID: 1, AccountID: 1, ShippingAddressID: 1, BillingAddressID: 1,
				Status: models.OrderDelivered, TotalAmount: dec("999"), CreatedAt: now.Unix()},
		},
		OrderLines: []models.OrderLine{
			{ID: 1, OrderID: 1, ProductID: 1, Quantity: 2, UnitPrice: dec("10.00"), Subtotal: dec("999")},
		},
		OrderDiscounts: []models.OrderDiscount{
			{OrderID: 1, DiscountID: 1, Amount: dec("999")},
		},
		Payments: []models.Payment{
			{ID: 1, OrderID: 1, Amount: dec("18.00"), Status: models.PaymentCompleted,
				Method: models.MethodCreditCard, TransactionRef: "seed-txn-1", CreatedAt: now.Unix()},
		},
		Reviews: []models.Review{
			{ID: 1, AccountID: 1, ProductID: 1, Rating: 5, Comment: "arrived intact"},
		},
		CartLines: []models.CartLine{
			{ID: 1, AccountID: 1, ProductID: 1, Quantity: 3},
		},
		WishlistLines: []models.WishlistLine{
			{ID: 1, AccountID: 1, ProductID: 1},
		},
	}
}

func TestImportRecomputesDerivedValues(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Import(ctx, sampleBundle()))

	// The payload's bogus derived values are ignored and recomputed.
	lines, err := e.Repo().OrderLines(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Subtotal.Equal(dec("20.00")), "subtotal %s", lines[0].Subtotal)

	ods, err := e.Repo().OrderDiscounts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, ods, 1)
	assert.True(t, ods[0].Amount.Equal(dec("2.00")), "amount %s", ods[0].Amount)

	order, err := e.Repo().Order(ctx, 1)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(dec("18.00")), "total %s", order.TotalAmount)

	// Imported orders are history and must not drain live stock.
	p, err := e.Repo().Product(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, p.StockQuantity)
}

func TestImportRejectsPaymentAmountMismatch(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	b := sampleBundle()
	b.Payments[0].Amount = dec("17.99")

	err := e.Import(context.Background(), b)
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "must equal the order total", cv.Rule)
}

func TestImportInvalidBundleRollsBackCompletely(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	// The bad row is near the end of the bundle; everything imported before
	// it must vanish with the rollback.
	b := sampleBundle()
	b.Reviews[0].Rating = 9

	err := e.Import(ctx, b)
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "rating", cv.Field)

	_, err = e.Repo().Account(ctx, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	total, products, err := e.Repo().Products(ctx, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, products)
}

func TestImportOpenOrderReservesStock(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	b := sampleBundle()
	b.Orders[0].Status = models.OrderPending
	b.Payments[0].Status = models.PaymentPending
	require.NoError(t, e.Import(ctx, b))

	// A pending order still holds its stock, so cancelling it must restore
	// exactly what the import reserved.
	p, err := e.Repo().Product(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 48, p.StockQuantity)

	_, err = e.CancelOrder(ctx, 1)
	require.NoError(t, err)

	p, err = e.Repo().Product(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, p.StockQuantity)
}

func TestImportOpenOrderInsufficientStock(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	b := sampleBundle()
	b.Orders[0].Status = models.OrderProcessing
	b.Payments[0].Status = models.PaymentPending
	b.Products[0].StockQuantity = 1

	err := e.Import(ctx, b)
	var is *InsufficientStock
	require.ErrorAs(t, err, &is)
	assert.Equal(t, uint(2), is.Requested)
	assert.Equal(t, 1, is.Available)

	_, err = e.Repo().Account(ctx, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestImportRejectsDanglingReference(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	b := sampleBundle()
	b.OrderLines[0].ProductID = 42

	err := e.Import(context.Background(), b)
	var rv *ReferentialViolation
	require.ErrorAs(t, err, &rv)
	assert.Equal(t, "does not exist", rv.Rule)
}
