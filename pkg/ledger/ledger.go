package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/ngduyd/ecommerce-payments/pkg/errors"
	"github.com/ngduyd/ecommerce-payments/pkg/events"
	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/storage"
	"github.com/ngduyd/ecommerce-payments/pkg/types"
)

// Ledger owns the Payment lifecycle. All status movement goes through
// ApplyStatus*, all creation through Create, so the invariants (one
// active payment per order, monotonic transitions, single-effect order
// updates) hold no matter which provider path calls in.
type Ledger struct {
	store storage.Store
}

func New(store storage.Store) *Ledger {
	return &Ledger{store: store}
}

// Create inserts a pending payment for the order. The existence check
// and the insert run in one transaction under a row lock on the order,
// so two concurrent creations cannot both pass the check.
func (l *Ledger) Create(ctx context.Context, orderID uint, amount int64, method models.PaymentMethod, transactionID string) (*models.Payment, error) {
	if !method.Valid() {
		return nil, apperrors.ErrInvalidStatus
	}
	var created *models.Payment
	err := l.store.WithTx(ctx, func(tx storage.Store) error {
		if _, err := tx.LockOrder(ctx, orderID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperrors.ErrOrderNotFound
			}
			return err
		}
		active, err := tx.HasActivePayment(ctx, orderID)
		if err != nil {
			return err
		}
		if active {
			return apperrors.ErrPaymentExists
		}
		p := &models.Payment{
			OrderID:       orderID,
			Amount:        amount,
			Method:        method,
			Status:        models.PaymentStatusPending,
			TransactionID: transactionID,
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			if errors.Is(err, storage.ErrActiveConflict) {
				return apperrors.ErrPaymentExists
			}
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ApplyStatus moves the payment to next. Duplicate application of the
// current status is a no-op success. Returns the payment and whether
// an order side effect actually ran.
func (l *Ledger) ApplyStatus(ctx context.Context, paymentID uint, next models.PaymentStatus) (*models.Payment, bool, error) {
	return l.apply(ctx, next, func(ctx context.Context, tx storage.Store) (*models.Payment, error) {
		p, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

// ApplyStatusByTransactionID is ApplyStatus keyed by the generated
// transaction reference (VNPay, ZaloPay lookups).
func (l *Ledger) ApplyStatusByTransactionID(ctx context.Context, transactionID string, next models.PaymentStatus) (*models.Payment, bool, error) {
	return l.apply(ctx, next, func(ctx context.Context, tx storage.Store) (*models.Payment, error) {
		return tx.FindPaymentByTransactionID(ctx, transactionID)
	})
}

// ApplyStatusByStripeIntent is ApplyStatus keyed by the Stripe
// payment intent correlation id.
func (l *Ledger) ApplyStatusByStripeIntent(ctx context.Context, intentID string, next models.PaymentStatus) (*models.Payment, bool, error) {
	return l.apply(ctx, next, func(ctx context.Context, tx storage.Store) (*models.Payment, error) {
		return tx.FindPaymentByStripeIntent(ctx, intentID)
	})
}

// ApplyStatusByStripeSession is ApplyStatus keyed by the Stripe
// checkout session correlation id.
func (l *Ledger) ApplyStatusByStripeSession(ctx context.Context, sessionID string, next models.PaymentStatus) (*models.Payment, bool, error) {
	return l.apply(ctx, next, func(ctx context.Context, tx storage.Store) (*models.Payment, error) {
		return tx.FindPaymentByStripeSession(ctx, sessionID)
	})
}

type lookupFunc func(ctx context.Context, tx storage.Store) (*models.Payment, error)

func (l *Ledger) apply(ctx context.Context, next models.PaymentStatus, lookup lookupFunc) (*models.Payment, bool, error) {
	if !next.Valid() {
		return nil, false, apperrors.ErrInvalidStatus
	}
	var out *models.Payment
	var effected bool
	err := l.store.WithTx(ctx, func(tx storage.Store) error {
		p, err := lookup(ctx, tx)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperrors.ErrPaymentNotFound
			}
			return err
		}
		out, effected, err = l.applyTx(ctx, tx, p, next)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, effected, nil
}

func (l *Ledger) applyTx(ctx context.Context, tx storage.Store, p *models.Payment, next models.PaymentStatus) (*models.Payment, bool, error) {
	effect, noop, ok := Transition(p.Status, next)
	if !ok {
		return nil, false, apperrors.ErrInvalidTransition
	}
	if noop {
		// At-least-once delivery lands here on the second and later
		// attempts; the first delivery already did the work.
		slog.Debug("duplicate status application", "payment_id", p.ID, "status", next)
		return p, false, nil
	}

	var paidAt *time.Time
	if next == models.PaymentStatusCompleted {
		now := time.Now()
		paidAt = &now
	}
	swapped, err := tx.CASPaymentStatus(ctx, p.ID, p.Status, next, paidAt)
	if err != nil {
		return nil, false, err
	}
	if !swapped {
		// Lost the race against a concurrent notification. Re-read:
		// if the row already holds the requested status the outcome is
		// the same and this delivery is a no-op; anything else is a
		// genuine conflict.
		cur, err := tx.GetPayment(ctx, p.ID)
		if err != nil {
			return nil, false, err
		}
		if cur.Status == next {
			return cur, false, nil
		}
		return nil, false, apperrors.ErrInvalidTransition
	}

	p.Status = next
	if paidAt != nil {
		p.PaymentTime = paidAt
	}

	switch effect {
	case EffectConfirmOrder:
		err = events.EmitPaymentCompleted(ctx, &types.PaymentCompletedEvent{
			Tx:            tx,
			PaymentID:     p.ID,
			OrderID:       p.OrderID,
			Method:        p.Method,
			Amount:        p.Amount,
			TransactionID: p.TransactionID,
			CompletedAt:   time.Now(),
		})
	case EffectCancelOrder:
		err = events.EmitPaymentFailed(ctx, &types.PaymentFailedEvent{
			Tx:            tx,
			PaymentID:     p.ID,
			OrderID:       p.OrderID,
			Method:        p.Method,
			TransactionID: p.TransactionID,
			FailedAt:      time.Now(),
		})
	}
	if err != nil {
		return nil, false, err
	}
	return p, effect != EffectNone, nil
}

// Delete removes a payment that never settled. Completed and refunded
// payments are immutable history.
func (l *Ledger) Delete(ctx context.Context, paymentID uint) error {
	return l.store.WithTx(ctx, func(tx storage.Store) error {
		p, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperrors.ErrPaymentNotFound
			}
			return err
		}
		if p.Status != models.PaymentStatusPending && p.Status != models.PaymentStatusFailed {
			return apperrors.DeleteNotAllowedFor(string(p.Status))
		}
		return tx.DeletePayment(ctx, p.ID)
	})
}

// Store exposes the backing store for read paths (lookups, reports).
func (l *Ledger) Store() storage.Store {
	return l.store
}
