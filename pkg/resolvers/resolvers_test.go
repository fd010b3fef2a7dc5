package resolvers

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ngduyd/ecommerce-payments/pkg/dispatcher"
	"github.com/ngduyd/ecommerce-payments/pkg/events"
	"github.com/ngduyd/ecommerce-payments/pkg/hashid"
	"github.com/ngduyd/ecommerce-payments/pkg/ledger"
	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/orders"
	"github.com/ngduyd/ecommerce-payments/pkg/payments"
	"github.com/ngduyd/ecommerce-payments/pkg/payments/cod"
	"github.com/ngduyd/ecommerce-payments/pkg/storage"
)

func newTestResolver(t *testing.T) (*Resolver, *storage.MemoryStore, *ledger.Ledger) {
	t.Helper()
	events.SetEventHandler(orders.NewCoordinator())
	require.NoError(t, payments.Register(&cod.COD{}))

	store := storage.NewMemoryStore()
	store.SeedOrder(&models.Order{
		ID:         1,
		UserID:     7,
		Status:     models.OrderStatusPending,
		TotalPrice: decimal.NewFromInt(150),
	})

	lg := ledger.New(store)
	d := dispatcher.New(store, lg, orders.NewCoordinator(), nil)
	return New(store, lg, d), store, lg
}

func publicID(id uint) string {
	return hashid.Encode(dispatcher.HashIDTypePayment, id)
}

func TestCreatePaymentCODByOwner(t *testing.T) {
	r, store, _ := newTestResolver(t)
	ctx := context.Background()

	resp := r.CreatePaymentCOD(ctx, Actor{UserID: 7}, 1)
	require.True(t, resp.Success)
	require.Equal(t, 200, resp.Code)
	require.NotEmpty(t, resp.Data["payment_id"])

	order, err := store.GetOrder(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusConfirmed, order.Status)
}

func TestCreatePaymentDeniedForStranger(t *testing.T) {
	r, _, _ := newTestResolver(t)

	resp := r.CreatePaymentCOD(context.Background(), Actor{UserID: 99}, 1)
	require.False(t, resp.Success)
	require.Equal(t, 403, resp.Code)
}

func TestCreatePaymentAllowedForAdmin(t *testing.T) {
	r, _, _ := newTestResolver(t)

	resp := r.CreatePaymentCOD(context.Background(), Actor{UserID: 2, Admin: true}, 1)
	require.True(t, resp.Success)
}

func TestCreatePaymentMissingOrderID(t *testing.T) {
	r, _, _ := newTestResolver(t)

	resp := r.CreatePaymentCOD(context.Background(), Actor{UserID: 7}, 0)
	require.False(t, resp.Success)
	require.Equal(t, 400, resp.Code)
}

func TestCreatePaymentOrderNotFound(t *testing.T) {
	r, _, _ := newTestResolver(t)

	resp := r.CreatePaymentCOD(context.Background(), Actor{UserID: 7}, 404)
	require.False(t, resp.Success)
	require.Equal(t, 404, resp.Code)
	require.Equal(t, "Order not found", resp.Message)
}

func TestCreatePaymentConflictEnvelope(t *testing.T) {
	r, _, _ := newTestResolver(t)
	ctx := context.Background()

	require.True(t, r.CreatePaymentCOD(ctx, Actor{UserID: 7}, 1).Success)

	resp := r.CreatePaymentCOD(ctx, Actor{UserID: 7}, 1)
	require.False(t, resp.Success)
	require.Equal(t, 400, resp.Code)
	require.Equal(t, "Payment already exists for this order", resp.Message)
}

func TestUpdatePaymentStatusAdminRefund(t *testing.T) {
	r, _, lg := newTestResolver(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodStripe, "STRIPE1")
	require.NoError(t, err)
	_, _, err = lg.ApplyStatus(ctx, p.ID, models.PaymentStatusCompleted)
	require.NoError(t, err)

	resp := r.UpdatePaymentStatus(ctx, Actor{UserID: 2, Admin: true}, publicID(p.ID), "refunded")
	require.True(t, resp.Success)
	require.Equal(t, "refunded", resp.Data["payment_status"])
}

func TestUpdatePaymentStatusDeniedForOwner(t *testing.T) {
	r, _, lg := newTestResolver(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodStripe, "STRIPE1")
	require.NoError(t, err)

	resp := r.UpdatePaymentStatus(ctx, Actor{UserID: 7}, publicID(p.ID), "completed")
	require.False(t, resp.Success)
	require.Equal(t, 403, resp.Code)
}

func TestUpdatePaymentStatusInvalidValue(t *testing.T) {
	r, _, lg := newTestResolver(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodStripe, "STRIPE1")
	require.NoError(t, err)

	resp := r.UpdatePaymentStatus(ctx, Actor{Admin: true}, publicID(p.ID), "paid")
	require.False(t, resp.Success)
	require.Equal(t, 400, resp.Code)
}

func TestUpdatePaymentStatusInvalidTransition(t *testing.T) {
	r, _, lg := newTestResolver(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodStripe, "STRIPE1")
	require.NoError(t, err)
	_, _, err = lg.ApplyStatus(ctx, p.ID, models.PaymentStatusCompleted)
	require.NoError(t, err)

	resp := r.UpdatePaymentStatus(ctx, Actor{Admin: true}, publicID(p.ID), "failed")
	require.False(t, resp.Success)
	require.Equal(t, "Payment status transition not allowed", resp.Message)
}

func TestDeletePendingPaymentByOwner(t *testing.T) {
	r, store, lg := newTestResolver(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodVNPay, "VNP1")
	require.NoError(t, err)

	resp := r.DeletePayment(ctx, Actor{UserID: 7}, publicID(p.ID))
	require.True(t, resp.Success)

	_, err = store.GetPayment(ctx, p.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteCompletedPaymentRejected(t *testing.T) {
	r, _, lg := newTestResolver(t)
	ctx := context.Background()

	p, err := lg.Create(ctx, 1, 15000, models.PaymentMethodVNPay, "VNP1")
	require.NoError(t, err)
	_, _, err = lg.ApplyStatus(ctx, p.ID, models.PaymentStatusCompleted)
	require.NoError(t, err)

	resp := r.DeletePayment(ctx, Actor{UserID: 7}, publicID(p.ID))
	require.False(t, resp.Success)
	require.Contains(t, resp.Message, "Cannot delete payments with status")
}

func TestDeletePaymentUnknownID(t *testing.T) {
	r, _, _ := newTestResolver(t)

	resp := r.DeletePayment(context.Background(), Actor{Admin: true}, "not-a-real-id")
	require.False(t, resp.Success)
	require.Equal(t, 404, resp.Code)
}

func TestConfirmStripePaymentRequiresIntentID(t *testing.T) {
	r, _, _ := newTestResolver(t)

	resp := r.ConfirmStripePayment(context.Background(), Actor{UserID: 7}, "")
	require.False(t, resp.Success)
	require.Equal(t, 400, resp.Code)
}

func TestCanPerform(t *testing.T) {
	require.True(t, canPerform(Actor{Admin: true}, ActionUpdatePayment, 1))
	require.True(t, canPerform(Actor{UserID: 5}, ActionCreatePayment, 5))
	require.True(t, canPerform(Actor{UserID: 5}, ActionDeletePayment, 5))
	require.False(t, canPerform(Actor{UserID: 5}, ActionCreatePayment, 6))
	require.False(t, canPerform(Actor{UserID: 5}, ActionUpdatePayment, 5))
	require.False(t, canPerform(Actor{}, ActionCreatePayment, 0))
}
