package models

import (
	"time"

	"github.com/ngduyd/ecommerce-payments/pkg/database"
	"github.com/shopspring/decimal"
)

// Order is owned by the order subsystem; the payment core reads it and
// mutates only its status, through the coordinator.
type Order struct {
	ID          uint            `gorm:"primaryKey"`
	UserID      uint            `gorm:"index;not null"`
	Status      OrderStatus     `gorm:"size:20;not null"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ShippingFee decimal.Decimal `gorm:"type:decimal(12,2)"`
	Items       []OrderItem     `gorm:"foreignKey:OrderID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (o *Order) TableName() string {
	return "orders"
}

// TotalMinorUnits is TotalPrice in hundredths, the unit Payment.Amount
// is stored in.
func (o *Order) TotalMinorUnits() int64 {
	return o.TotalPrice.Mul(decimal.NewFromInt(100)).IntPart()
}

// OrderItem is the slice of an order a checkout line item is built
// from.
type OrderItem struct {
	ID       uint            `gorm:"primaryKey"`
	OrderID  uint            `gorm:"index;not null"`
	Name     string          `gorm:"size:255"`
	Price    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity int             `gorm:"not null"`
}

func (i *OrderItem) TableName() string {
	return "order_items"
}

func init() {
	database.RegisterAutoMigrateModels(&Order{}, &OrderItem{})
}
