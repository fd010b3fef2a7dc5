package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ngduyd/ecommerce-payments/pkg/errors"
	"github.com/ngduyd/ecommerce-payments/pkg/events"
	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/orders"
	"github.com/ngduyd/ecommerce-payments/pkg/storage"
)

func newTestLedger(t *testing.T) (*Ledger, *storage.MemoryStore) {
	t.Helper()
	events.SetEventHandler(orders.NewCoordinator())
	store := storage.NewMemoryStore()
	store.SeedOrder(&models.Order{
		ID:         1,
		UserID:     7,
		Status:     models.OrderStatusPending,
		TotalPrice: decimal.NewFromInt(150),
	})
	return New(store), store
}

func TestCreatePayment(t *testing.T) {
	lg, _ := newTestLedger(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodVNPay, "VNP001")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPending, p.Status)
	require.Equal(t, int64(15000), p.Amount)
	require.Equal(t, "VNP001", p.TransactionID)
}

func TestCreatePaymentUnknownOrder(t *testing.T) {
	lg, _ := newTestLedger(t)

	_, err := lg.Create(context.Background(), 99, 15000, models.PaymentMethodVNPay, "VNP001")
	require.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func TestCreatePaymentConflict(t *testing.T) {
	lg, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := lg.Create(ctx, 1, 15000, models.PaymentMethodVNPay, "VNP001")
	require.NoError(t, err)

	_, err = lg.Create(ctx, 1, 15000, models.PaymentMethodZaloPay, "ZP001")
	require.ErrorIs(t, err, apperrors.ErrPaymentExists)
}

func TestCreateAllowedAfterFailure(t *testing.T) {
	lg, _ := newTestLedger(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodVNPay, "VNP001")
	require.NoError(t, err)
	_, _, err = lg.ApplyStatus(ctx, p.ID, models.PaymentStatusFailed)
	require.NoError(t, err)

	_, err = lg.Create(ctx, 1, 15000, models.PaymentMethodZaloPay, "ZP001")
	require.NoError(t, err)
}

func TestApplyCompletedConfirmsOrder(t *testing.T) {
	lg, store := newTestLedger(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodVNPay, "VNP001")
	require.NoError(t, err)

	updated, effected, err := lg.ApplyStatus(ctx, p.ID, models.PaymentStatusCompleted)
	require.NoError(t, err)
	require.True(t, effected)
	require.Equal(t, models.PaymentStatusCompleted, updated.Status)
	require.NotNil(t, updated.PaymentTime)

	order, err := store.GetOrder(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusConfirmed, order.Status)
}

func TestApplyCompletedTwiceSingleEffect(t *testing.T) {
	lg, store := newTestLedger(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodVNPay, "VNP001")
	require.NoError(t, err)

	_, effected, err := lg.ApplyStatus(ctx, p.ID, models.PaymentStatusCompleted)
	require.NoError(t, err)
	require.True(t, effected)

	updated, effected, err := lg.ApplyStatus(ctx, p.ID, models.PaymentStatusCompleted)
	require.NoError(t, err)
	require.False(t, effected)
	require.Equal(t, models.PaymentStatusCompleted, updated.Status)

	order, err := store.GetOrder(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusConfirmed, order.Status)
}

func TestApplyFailedCancelsOrder(t *testing.T) {
	lg, store := newTestLedger(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodVNPay, "VNP001")
	require.NoError(t, err)

	updated, effected, err := lg.ApplyStatus(ctx, p.ID, models.PaymentStatusFailed)
	require.NoError(t, err)
	require.True(t, effected)
	require.Equal(t, models.PaymentStatusFailed, updated.Status)

	order, err := store.GetOrder(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCancelled, order.Status)
}

func TestApplyFailedAfterCompletedRejected(t *testing.T) {
	lg, store := newTestLedger(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodVNPay, "VNP001")
	require.NoError(t, err)
	_, _, err = lg.ApplyStatus(ctx, p.ID, models.PaymentStatusCompleted)
	require.NoError(t, err)

	_, _, err = lg.ApplyStatus(ctx, p.ID, models.PaymentStatusFailed)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	order, err := store.GetOrder(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusConfirmed, order.Status)
}

func TestApplyRefundAfterCompleted(t *testing.T) {
	lg, _ := newTestLedger(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodStripe, "STRIPE001")
	require.NoError(t, err)
	_, _, err = lg.ApplyStatus(ctx, p.ID, models.PaymentStatusCompleted)
	require.NoError(t, err)

	updated, effected, err := lg.ApplyStatus(ctx, p.ID, models.PaymentStatusRefunded)
	require.NoError(t, err)
	require.False(t, effected)
	require.Equal(t, models.PaymentStatusRefunded, updated.Status)
}

func TestApplyInvalidStatus(t *testing.T) {
	lg, _ := newTestLedger(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodVNPay, "VNP001")
	require.NoError(t, err)

	_, _, err = lg.ApplyStatus(ctx, p.ID, models.PaymentStatus("paid"))
	require.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}

func TestApplyStatusByTransactionID(t *testing.T) {
	lg, _ := newTestLedger(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodVNPay, "VNP001")
	require.NoError(t, err)

	updated, effected, err := lg.ApplyStatusByTransactionID(ctx, "VNP001", models.PaymentStatusCompleted)
	require.NoError(t, err)
	require.True(t, effected)
	require.Equal(t, p.ID, updated.ID)

	_, _, err = lg.ApplyStatusByTransactionID(ctx, "VNP999", models.PaymentStatusCompleted)
	require.ErrorIs(t, err, apperrors.ErrPaymentNotFound)
}

func TestDeletePayment(t *testing.T) {
	lg, _ := newTestLedger(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodVNPay, "VNP001")
	require.NoError(t, err)
	require.NoError(t, lg.Delete(ctx, p.ID))

	require.ErrorIs(t, lg.Delete(ctx, p.ID), apperrors.ErrPaymentNotFound)
}

func TestDeleteCompletedPaymentRejected(t *testing.T) {
	lg, _ := newTestLedger(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodVNPay, "VNP001")
	require.NoError(t, err)
	_, _, err = lg.ApplyStatus(ctx, p.ID, models.PaymentStatusCompleted)
	require.NoError(t, err)

	err = lg.Delete(ctx, p.ID)
	require.Error(t, err)
	var ue *apperrors.Error
	require.ErrorAs(t, err, &ue)
	require.Equal(t, "payment.delete_precondition", ue.Code)
	require.Contains(t, ue.Message, "completed")
}
