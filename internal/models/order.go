package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

// OrderStatus values.
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValidOrderStatus reports whether s is a known order status.
func IsValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Order is a placed customer order.
type Order struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Reference string `gorm:"type:varchar(32);not null;uniqueIndex"` // Public order reference.

	AccountID uint64   `gorm:"not null;index:idx_orders_account_created"` // Owning account ID.
	Account   *Account `gorm:"foreignKey:AccountID"`                      // Owning account.

	DeliveryAddress string `gorm:"type:text"` // Shipping address.

	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // Sum of order items.
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // Coupon discount.
	DeliveryFee    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // Delivery fee.
	FinalTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // Amount due.
	PaidAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // Amount received.

	PaymentMethod PaymentMethod `gorm:"type:varchar(10)"`   // Chosen payment method.
	CouponCode    string        `gorm:"type:varchar(50)"` // Applied coupon code.

	Status OrderStatus `gorm:"type:varchar(20);not null;default:'pending';index"` // Fulfilment state.

	Items   []OrderItem `gorm:"foreignKey:OrderID"` // Order lines.
	Payment *Payment    `gorm:"foreignKey:OrderID"` // Payment record.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_orders_account_created"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`                                  // Last update timestamp.
}

// OrderItem is a priced line of an order.
type OrderItem struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OrderID uint64 `gorm:"not null;index"` // Owning order ID.

	ProductID *uint64  `gorm:"index"`                // Product ID, nil when the product was removed.
	Product   *Product `gorm:"foreignKey:ProductID"` // Product.

	Name     string          `gorm:"type:varchar(200)"`                     // Product name at order time.
	Size     string          `gorm:"type:varchar(5)"`                       // Size label.
	Quantity int             `gorm:"not null;default:1"`                    // Units ordered.
	Price    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // Unit price at order time.
}

// Subtotal returns price times quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PaymentMethod is how an order is settled.
type PaymentMethod string

// PaymentMethod values.
const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodVisa PaymentMethod = "visa"
)

// IsValidPaymentMethod reports whether m is a known payment method.
func IsValidPaymentMethod(m PaymentMethod) bool {
	return m == PaymentMethodCash || m == PaymentMethodVisa
}

// Payment records settlement of an order.
type Payment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OrderID uint64 `gorm:"not null;uniqueIndex"` // Settled order ID.

	Method      PaymentMethod `gorm:"type:varchar(10);not null"`    // Payment method.
	IsPaid      bool          `gorm:"not null;default:false;index"` // Whether payment was confirmed.
	FromBalance bool          `gorm:"not null;default:false"`       // Paid from the wallet balance.
	PaidAt      *time.Time    // Confirmation timestamp.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
