package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ngduyd/ecommerce-payments/pkg/models"
)

// ErrNotFound is returned by lookups that matched no row. Callers
// translate it into their own user-facing error.
var ErrNotFound = errors.New("storage: record not found")

// ErrActiveConflict is the idx_payments_active unique violation: the
// order already holds a pending or completed payment.
var ErrActiveConflict = errors.New("storage: order already has an active payment")

// Store is the only mutation path for Payment and Order rows. The
// conditional writes (CASPaymentStatus and the
// UpdateOrderStatusIf*) are atomic at the storage layer; business code
// must never read-modify-write around them.
type Store interface {
	// WithTx runs fn against a transaction-scoped store. Nested calls
	// reuse the already-open transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	GetOrderWithItems(ctx context.Context, id uint) (*models.Order, error)
	// LockOrder reads the order row under a row lock; only meaningful
	// inside WithTx, where it serializes concurrent payment creation
	// for the same order.
	LockOrder(ctx context.Context, id uint) (*models.Order, error)
	// UpdateOrderStatusIf moves the order expect -> next, reporting
	// whether a row actually changed.
	UpdateOrderStatusIf(ctx context.Context, orderID uint, expect, next models.OrderStatus) (bool, error)
	// UpdateOrderStatusIfNot moves any order not already in `not` to
	// next, reporting whether a row actually changed.
	UpdateOrderStatusIfNot(ctx context.Context, orderID uint, not, next models.OrderStatus) (bool, error)

	GetPayment(ctx context.Context, id uint) (*models.Payment, error)
	FindPaymentByTransactionID(ctx context.Context, txnID string) (*models.Payment, error)
	FindPaymentByStripeIntent(ctx context.Context, intentID string) (*models.Payment, error)
	FindPaymentByStripeSession(ctx context.Context, sessionID string) (*models.Payment, error)
	HasActivePayment(ctx context.Context, orderID uint) (bool, error)
	CreatePayment(ctx context.Context, p *models.Payment) error
	SaveStripeCorrelation(ctx context.Context, paymentID uint, intentID, sessionID string) error
	// CASPaymentStatus is the compare-and-swap transition write:
	// UPDATE ... SET payment_status = next WHERE id = ? AND
	// payment_status = expect. Returns false when the row was not in
	// the expected state.
	CASPaymentStatus(ctx context.Context, paymentID uint, expect, next models.PaymentStatus, paidAt *time.Time) (bool, error)
	DeletePayment(ctx context.Context, id uint) error
	ListPayments(ctx context.Context) ([]models.Payment, error)

	RecordNotification(ctx context.Context, n *models.PaymentNotification) error
}
