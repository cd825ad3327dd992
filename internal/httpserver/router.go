package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/storekit/shopcore/internal/identity"
)

type Deps struct {
	OrderHandler    *OrderHandler
	CatalogHandler  *CatalogHandler
	AccountHandler  *AccountHandler
	DiscountHandler *DiscountHandler
	SeedHandler     *SeedHandler
	SearchHandler   *SearchHandler
	JWTSecret       []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/accounts", d.AccountHandler.CreateAccount)
	v1.GET("/products", d.CatalogHandler.GetProducts)
	v1.GET("/products/:id", d.CatalogHandler.GetProduct)
	v1.GET("/products/:id/reviews", d.CatalogHandler.GetProductReviews)
	if d.SearchHandler != nil && d.SearchHandler.Indexer != nil {
		v1.GET("/search", d.SearchHandler.Search)
	}

	auth := v1.Group("", identity.Middleware(d.JWTSecret))

	auth.GET("/addresses", d.AccountHandler.ListAddresses)
	auth.POST("/addresses", d.AccountHandler.CreateAddress)
	auth.PATCH("/addresses/:id", d.AccountHandler.UpdateAddress)
	auth.DELETE("/addresses/:id", d.AccountHandler.DeleteAddress)

	auth.GET("/cart", d.AccountHandler.GetCart)
	auth.POST("/cart", d.AccountHandler.AddToCart)
	auth.PATCH("/cart/:id", d.AccountHandler.UpdateCartLine)
	auth.DELETE("/cart/:id", d.AccountHandler.RemoveCartLine)
	auth.DELETE("/cart", d.AccountHandler.ClearCart)

	auth.GET("/wishlist", d.AccountHandler.GetWishlist)
	auth.POST("/wishlist", d.AccountHandler.AddToWishlist)
	auth.DELETE("/wishlist/:id", d.AccountHandler.RemoveFromWishlist)

	auth.POST("/reviews", d.AccountHandler.CreateReview)
	auth.DELETE("/reviews/:id", d.AccountHandler.DeleteReview)

	auth.POST("/orders", d.OrderHandler.PlaceOrder)
	auth.POST("/orders/from-cart", d.OrderHandler.PlaceOrderFromCart)
	auth.GET("/orders", d.OrderHandler.ListOrders)
	auth.GET("/orders/:id", d.OrderHandler.GetOrder)
	auth.POST("/orders/:id/discount", d.OrderHandler.ApplyDiscount)
	auth.POST("/orders/:id/payment", d.OrderHandler.RecordPayment)
	auth.POST("/orders/:id/cancel", d.OrderHandler.CancelOrder)

	admin := auth.Group("/admin", identity.AdminOnly)

	admin.POST("/products", d.CatalogHandler.CreateProduct)
	admin.PATCH("/products/:id", d.CatalogHandler.UpdateProduct)
	admin.DELETE("/products/:id", d.CatalogHandler.DeleteProduct)
	admin.POST("/products/:id/images", d.CatalogHandler.AddProductImage)
	admin.POST("/products/:id/images/:image_id/primary", d.CatalogHandler.SetPrimaryImage)
	admin.DELETE("/products/:id/images/:image_id", d.CatalogHandler.DeleteProductImage)

	admin.POST("/categories", d.CatalogHandler.CreateCategory)
	admin.PATCH("/categories/:id", d.CatalogHandler.UpdateCategory)
	admin.DELETE("/categories/:id", d.CatalogHandler.DeleteCategory)

	admin.POST("/discounts", d.DiscountHandler.CreateDiscount)
	admin.PATCH("/discounts/:id", d.DiscountHandler.UpdateDiscount)
	admin.DELETE("/discounts/:id", d.DiscountHandler.DeleteDiscount)

	admin.DELETE("/accounts/:id", d.AccountHandler.DeleteAccount)
	admin.POST("/orders/:id/advance", d.OrderHandler.AdvanceOrder)
	admin.POST("/payments/:id/settle", d.OrderHandler.SettlePayment)
	admin.POST("/seed", d.SeedHandler.Import)
}
