package types

import (
	"time"

	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/storage"
)

// PaymentCompletedEvent fires when a payment reaches completed for the
// first time. Tx is the ledger's open transaction-scoped store: the
// handler's order mutation commits or rolls back together with the
// payment transition.
type PaymentCompletedEvent struct {
	Tx            storage.Store
	PaymentID     uint
	OrderID       uint
	Method        models.PaymentMethod
	Amount        int64
	TransactionID string
	CompletedAt   time.Time
}

// PaymentFailedEvent fires when a payment reaches failed for the first
// time. Same transaction semantics as PaymentCompletedEvent.
type PaymentFailedEvent struct {
	Tx            storage.Store
	PaymentID     uint
	OrderID       uint
	Method        models.PaymentMethod
	TransactionID string
	FailedAt      time.Time
}
