package models

import (
	"time"

	"github.com/ngduyd/ecommerce-payments/pkg/database"
)

// Payment is one payment attempt against an order. Amount is stored in
// minor units (hundredths of the order currency) so provider adapters
// convert at their own edge: VNPay wants amount*100, ZaloPay wants
// whole VND, Stripe wants cents.
type Payment struct {
	ID      uint          `gorm:"primaryKey"`
	OrderID uint          `gorm:"index;not null;uniqueIndex:idx_payments_active,priority:1"`
	Amount  int64         `gorm:"not null"`
	Method  PaymentMethod `gorm:"column:payment_method;size:20;not null"`
	Status  PaymentStatus `gorm:"column:payment_status;size:20;not null;index"`

	// ActiveKey backs idx_payments_active: 1 while the payment is
	// pending or completed, NULL otherwise. NULL rows never collide
	// in the unique index, so the database itself enforces at most
	// one active payment per order even for writers that skip the
	// ledger's row lock. The store keeps it in sync with Status.
	ActiveKey *uint8 `gorm:"column:active_key;uniqueIndex:idx_payments_active,priority:2"`

	// TransactionID is the generated, provider-correlatable reference
	// (VNPay vnp_TxnRef, ZaloPay app_trans_id).
	TransactionID string `gorm:"size:64;uniqueIndex"`

	// Stripe correlation ids, populated after the provider call.
	StripePaymentIntentID string `gorm:"size:100;index"`
	StripeSessionID       string `gorm:"size:100;index"`

	PaymentTime *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Payment) TableName() string {
	return "payments"
}

// Active reports whether this payment blocks creation of another one
// for the same order.
func (p *Payment) Active() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusCompleted
}

// ActiveKeyFor returns the active_key column value for a status.
func ActiveKeyFor(status PaymentStatus) *uint8 {
	if status == PaymentStatusPending || status == PaymentStatusCompleted {
		one := uint8(1)
		return &one
	}
	return nil
}

func init() {
	database.RegisterAutoMigrateModels(&Payment{})
}
