package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	Handle       string `gorm:"uniqueIndex;not null"      json:"handle"`
	Email        string `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash string `gorm:"not null"                  json:"-"`
	Active       bool   `gorm:"not null;default:true"     json:"active"`
	Admin        bool   `gorm:"not null;default:false"    json:"admin"`
}

type Address struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	AccountID uint   `gorm:"index;not null"            json:"account_id"`
	Line1     string `gorm:"not null"                  json:"line1"`
	Line2     string `json:"line2"`
	City      string `gorm:"not null"                  json:"city"`
	Country   string `gorm:"not null"                  json:"country"`
	Zip       string `gorm:"not null"                  json:"zip"`
	IsDefault bool   `gorm:"not null;default:false"    json:"is_default"`
}

type Category struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name     string `gorm:"not null"                  json:"name"`
	ParentID *uint  `gorm:"index"                     json:"parent_id,omitempty"`
}

type Product struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"       json:"id"`
	CategoryID    uint            `gorm:"index;not null"                 json:"category_id"`
	SKU           string          `gorm:"uniqueIndex;not null"           json:"sku"`
	Name          string          `gorm:"not null"                       json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(16,2);not null"    json:"price"`
	StockQuantity int             `gorm:"not null;check:stock_quantity>=0" json:"stock_quantity"`
	Active        bool            `gorm:"not null;default:true"          json:"active"`
}

type ProductImage struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	ProductID uint   `gorm:"index;not null"            json:"product_id"`
	URL       string `gorm:"not null"                  json:"url"`
	IsPrimary bool   `gorm:"not null;default:false"    json:"is_primary"`
}

type Order struct {
	ID                uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	AccountID         uint            `gorm:"index;not null"              json:"account_id"`
	ShippingAddressID uint            `gorm:"not null"                    json:"shipping_address_id"`
	BillingAddressID  uint            `gorm:"not null"                    json:"billing_address_id"`
	Status            OrderStatus     `gorm:"not null"                    json:"status"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"total_amount"`
	CreatedAt         int64           `gorm:"not null"                    json:"created_at"`
}

type OrderLine struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"       json:"id"`
	OrderID   uint            `gorm:"index;not null"                 json:"order_id"`
	ProductID uint            `gorm:"index;not null"                 json:"product_id"`
	Quantity  uint            `gorm:"not null;check:quantity>0"      json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(16,2);not null"    json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(16,2);not null"    json:"subtotal"`
}

type Payment struct {
	ID             uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID        uint            `gorm:"uniqueIndex;not null"        json:"order_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"amount"`
	Status         PaymentStatus   `gorm:"not null"                    json:"status"`
	Method         PaymentMethod   `gorm:"not null"                    json:"method"`
	TransactionRef string          `gorm:"uniqueIndex;not null"        json:"transaction_ref"`
	CreatedAt      int64           `gorm:"not null"                    json:"created_at"`
}

type Review struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"                      json:"id"`
	AccountID uint   `gorm:"not null;uniqueIndex:idx_review_account_product" json:"account_id"`
	ProductID uint   `gorm:"not null;uniqueIndex:idx_review_account_product" json:"product_id"`
	Rating    int    `gorm:"not null;check:rating>=1 AND rating<=5"        json:"rating"`
	Comment   string `json:"comment"`
}

type CartLine struct {
	ID        uint `gorm:"primaryKey;autoIncrement"                    json:"id"`
	AccountID uint `gorm:"not null;uniqueIndex:idx_cart_account_product" json:"account_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_cart_account_product" json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"                  json:"quantity"`
}

type WishlistLine struct {
	ID        uint `gorm:"primaryKey;autoIncrement"                    json:"id"`
	AccountID uint `gorm:"not null;uniqueIndex:idx_wish_account_product" json:"account_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_wish_account_product" json:"product_id"`
}

type Discount struct {
	ID             uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	Code           string          `gorm:"uniqueIndex;not null"        json:"code"`
	Type           DiscountType    `gorm:"not null"                    json:"type"`
	Value          decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"value"`
	MinOrderAmount decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"min_order_amount"`
	MaxUses        *uint           `json:"max_uses,omitempty"`
	CurrentUses    uint            `gorm:"not null;default:0"          json:"current_uses"`
	StartsAt       time.Time       `gorm:"not null"                    json:"starts_at"`
	EndsAt         time.Time       `gorm:"not null"                    json:"ends_at"`
	Active         bool            `gorm:"not null;default:true"       json:"active"`
}

// OrderDiscount joins an Order and a Discount; the composite key keeps a
// discount from being applied twice to the same order.
type OrderDiscount struct {
	OrderID    uint            `gorm:"primaryKey"                  json:"order_id"`
	DiscountID uint            `gorm:"primaryKey"                  json:"discount_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"amount"`
}

// All lists every model in migration order (referenced entities first).
func All() []any {
	return []any{
		&Account{}, &Address{}, &Category{}, &Product{}, &ProductImage{},
		&Order{}, &OrderLine{}, &Payment{}, &Review{}, &CartLine{},
		&WishlistLine{}, &Discount{}, &OrderDiscount{},
	}
}
