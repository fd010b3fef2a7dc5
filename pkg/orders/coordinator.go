package orders

import (
	"context"
	"log/slog"

	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/storage"
	"github.com/ngduyd/ecommerce-payments/pkg/types"
)

// Coordinator derives order status changes from terminal payment
// events. Both hooks are conditional writes, so replays of the same
// event settle on the same order state without double effect.
type Coordinator struct{}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// OnPaymentCompleted confirms a pending order. Orders in any other
// state are left alone; a duplicate completion notification lands
// here and does nothing.
func (c *Coordinator) OnPaymentCompleted(ctx context.Context, event *types.PaymentCompletedEvent) error {
	changed, err := event.Tx.UpdateOrderStatusIf(ctx, event.OrderID, models.OrderStatusPending, models.OrderStatusConfirmed)
	if err != nil {
		return err
	}
	if changed {
		slog.Info("order confirmed by payment", "order_id", event.OrderID, "payment_id", event.PaymentID, "method", event.Method)
	}
	return nil
}

// OnPaymentFailed cancels the order unless it is already cancelled.
func (c *Coordinator) OnPaymentFailed(ctx context.Context, event *types.PaymentFailedEvent) error {
	changed, err := event.Tx.UpdateOrderStatusIfNot(ctx, event.OrderID, models.OrderStatusCancelled, models.OrderStatusCancelled)
	if err != nil {
		return err
	}
	if changed {
		slog.Info("order cancelled by failed payment", "order_id", event.OrderID, "payment_id", event.PaymentID, "method", event.Method)
	}
	return nil
}

// ConfirmOnCreation applies the cash-on-delivery rule: creating the
// COD payment itself confirms the order. Same conditional write as a
// completion event, on the caller's store.
func (c *Coordinator) ConfirmOnCreation(ctx context.Context, store storage.Store, orderID uint) error {
	_, err := store.UpdateOrderStatusIf(ctx, orderID, models.OrderStatusPending, models.OrderStatusConfirmed)
	return err
}
