package engine

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storekit/shopcore/internal/models"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps every session on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))
	return New(db, opts...)
}

type fixture struct {
	Account  *models.Account
	Address  *models.Address
	Category *models.Category
	Product  *models.Product
}

func seedStore(t *testing.T, e *Engine, stock int, price string) *fixture {
	t.Helper()
	ctx := context.Background()

	acct, err := e.CreateAccount(ctx, AccountInput{
		Handle: "alice", Email: "alice@example.com", Password: "secret",
	})
	require.NoError(t, err)

	addr, err := e.CreateAddress(ctx, &models.Address{
		AccountID: acct.ID, Line1: "1 Main St", City: "Springfield",
		Country: "US", Zip: "12345", IsDefault: true,
	})
	require.NoError(t, err)

	cat, err := e.CreateCategory(ctx, &models.Category{Name: "widgets"})
	require.NoError(t, err)

	prod, err := e.CreateProduct(ctx, &models.Product{
		CategoryID: cat.ID, SKU: "SKU-1", Name: "widget",
		Price: dec(price), StockQuantity: stock, Active: true,
	})
	require.NoError(t, err)

	return &fixture{Account: acct, Address: addr, Category: cat, Product: prod}
}

func addProduct(t *testing.T, e *Engine, categoryID uint, sku string, stock int, price string) *models.Product {
	t.Helper()
	p, err := e.CreateProduct(context.Background(), &models.Product{
		CategoryID: categoryID, SKU: sku, Name: sku,
		Price: dec(price), StockQuantity: stock, Active: true,
	})
	require.NoError(t, err)
	return p
}

func TestCreateAccountUniqueness(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateAccount(ctx, AccountInput{Handle: "bob", Email: "bob@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = e.CreateAccount(ctx, AccountInput{Handle: "bob", Email: "other@example.com", Password: "pw"})
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "handle", cv.Field)

	_, err = e.CreateAccount(ctx, AccountInput{Handle: "bob2", Email: "bob@example.com", Password: "pw"})
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "email", cv.Field)
}

func TestCreateAccountRequiredFields(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateAccount(ctx, AccountInput{Handle: "x", Email: "x@example.com"})
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "password", cv.Field)

	_, err = e.CreateAccount(ctx, AccountInput{Email: "x@example.com", Password: "pw"})
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "handle", cv.Field)
}

func TestDeleteAccountCascadesAndRestricts(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 10, "5.00")

	_, err := e.AddCartLine(ctx, f.Account.ID, f.Product.ID, 2)
	require.NoError(t, err)
	_, err = e.AddWishlistLine(ctx, f.Account.ID, f.Product.ID)
	require.NoError(t, err)

	// With an order on file the account must not be deletable.
	order, err := e.PlaceOrder(ctx, f.Account.ID,
		[]LineInput{{ProductID: f.Product.ID, Quantity: 1}}, f.Address.ID, f.Address.ID)
	require.NoError(t, err)

	err = e.DeleteAccount(ctx, f.Account.ID)
	var rv *ReferentialViolation
	require.ErrorAs(t, err, &rv)
	assert.Equal(t, "account", rv.Entity)

	// Fresh account with only owned leaves deletes cleanly.
	acct2, err := e.CreateAccount(ctx, AccountInput{Handle: "carol", Email: "carol@example.com", Password: "pw"})
	require.NoError(t, err)
	addr2, err := e.CreateAddress(ctx, &models.Address{
		AccountID: acct2.ID, Line1: "2 Side St", City: "Springfield", Country: "US", Zip: "12345",
	})
	require.NoError(t, err)
	_, err = e.AddCartLine(ctx, acct2.ID, f.Product.ID, 1)
	require.NoError(t, err)

	require.NoError(t, e.DeleteAccount(ctx, acct2.ID))

	_, err = e.Repo().Address(ctx, addr2.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	lines, err := e.Repo().CartLines(ctx, acct2.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	// The first account's order survives untouched.
	_, err = e.Repo().Order(ctx, order.ID)
	require.NoError(t, err)
}

func TestDeleteAddressRestrictedByOrder(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 10, "5.00")

	_, err := e.PlaceOrder(ctx, f.Account.ID,
		[]LineInput{{ProductID: f.Product.ID, Quantity: 1}}, f.Address.ID, f.Address.ID)
	require.NoError(t, err)

	err = e.DeleteAddress(ctx, f.Address.ID)
	var rv *ReferentialViolation
	require.ErrorAs(t, err, &rv)
	assert.Equal(t, "address", rv.Entity)
}

func TestAddressDefaultIsExclusive(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 1, "1.00")

	second, err := e.CreateAddress(ctx, &models.Address{
		AccountID: f.Account.ID, Line1: "9 Oak Ave", City: "Springfield",
		Country: "US", Zip: "12345", IsDefault: true,
	})
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	first, err := e.Repo().Address(ctx, f.Address.ID)
	require.NoError(t, err)
	assert.False(t, first.IsDefault)
}

func TestCategoryTreeIntegrity(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	root, err := e.CreateCategory(ctx, &models.Category{Name: "root"})
	require.NoError(t, err)
	child, err := e.CreateCategory(ctx, &models.Category{Name: "child", ParentID: &root.ID})
	require.NoError(t, err)

	// Reparenting the root under its own child closes a cycle.
	root.ParentID = &child.ID
	_, err = e.UpdateCategory(ctx, root)
	var rv *ReferentialViolation
	require.ErrorAs(t, err, &rv)
	assert.Equal(t, "would create a cycle", rv.Rule)

	// A parented category blocks deletion, as does one holding products.
	err = e.DeleteCategory(ctx, root.ID)
	require.ErrorAs(t, err, &rv)

	addProduct(t, e, child.ID, "SKU-C", 1, "1.00")
	err = e.DeleteCategory(ctx, child.ID)
	require.ErrorAs(t, err, &rv)
	assert.Equal(t, "product", rv.Reference)
}

func TestCategoryMissingParentRejected(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	missing := uint(999)
	_, err := e.CreateCategory(context.Background(), &models.Category{Name: "orphan", ParentID: &missing})
	var rv *ReferentialViolation
	require.ErrorAs(t, err, &rv)
	assert.Equal(t, "does not exist", rv.Rule)
}

func TestRejectedMutationLeavesNoTrace(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	f := seedStore(t, e, 10, "5.00")

	// Second line references a missing product; the whole order must roll
	// back, including the first line's stock decrement.
	_, err := e.PlaceOrder(ctx, f.Account.ID, []LineInput{
		{ProductID: f.Product.ID, Quantity: 4},
		{ProductID: 9999, Quantity: 1},
	}, f.Address.ID, f.Address.ID)
	var rv *ReferentialViolation
	require.ErrorAs(t, err, &rv)

	p, err := e.Repo().Product(ctx, f.Product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, p.StockQuantity)

	orders, err := e.Repo().OrdersForAccount(ctx, f.Account.ID, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestSKUUniqueness(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	f := seedStore(t, e, 1, "1.00")

	_, err := e.CreateProduct(context.Background(), &models.Product{
		CategoryID: f.Category.ID, SKU: "SKU-1", Name: "dupe", Price: dec("2.00"),
	})
	var cv *ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "sku", cv.Field)
	assert.Equal(t, "must be unique", cv.Rule)
}
