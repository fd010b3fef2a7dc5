package events

import (
	"context"

	"github.com/ngduyd/ecommerce-payments/pkg/types"
)

// EventHandler receives terminal payment events. The order status
// coordinator is the in-process handler; it runs inside the ledger's
// transaction via the event's Tx store.
type EventHandler interface {
	OnPaymentCompleted(ctx context.Context, event *types.PaymentCompletedEvent) error
	OnPaymentFailed(ctx context.Context, event *types.PaymentFailedEvent) error
}

var handler EventHandler

// SetEventHandler registers the handler. Call once at startup, before
// any dispatching begins.
func SetEventHandler(h EventHandler) {
	handler = h
}

func EmitPaymentCompleted(ctx context.Context, event *types.PaymentCompletedEvent) error {
	if handler != nil {
		return handler.OnPaymentCompleted(ctx, event)
	}
	return nil
}

func EmitPaymentFailed(ctx context.Context, event *types.PaymentFailedEvent) error {
	if handler != nil {
		return handler.OnPaymentFailed(ctx, event)
	}
	return nil
}
