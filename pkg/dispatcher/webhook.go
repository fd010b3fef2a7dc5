package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/ngduyd/ecommerce-payments/pkg/errors"
	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/payments"
)

// HandleStripeWebhook verifies and applies a Stripe event. A non-nil
// error means the delivery was not authenticated or could not be
// applied for a transient reason; the caller answers 400 so Stripe
// redelivers. Deliveries that redelivery cannot fix (unhandled event
// types, unknown correlation ids, invalid transitions) are
// acknowledged, since rejecting those would only buy a retry storm.
func (d *Dispatcher) HandleStripeWebhook(ctx context.Context, body []byte, signature string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while handling Stripe webhook", "panic", r)
			err = fmt.Errorf("stripe webhook: recovered panic: %v", r)
		}
	}()

	provider := payments.Get(string(models.PaymentMethodStripe))
	if provider == nil {
		return apperrors.ErrProviderFailure
	}

	event, verr := provider.VerifyNotification(map[string]string{
		"payload":   string(body),
		"signature": signature,
	})
	if verr != nil {
		d.recordNotification(ctx, string(models.PaymentMethodStripe), models.NotificationSourceWebhook, "", string(body), "rejected: invalid signature")
		return apperrors.ErrInvalidSignature
	}

	switch event.EventType {
	case "payment_intent.succeeded":
		return d.applyStripeOutcome(ctx, event.EventType, event.IntentID, d.ledger.ApplyStatusByStripeIntent, models.PaymentStatusCompleted, string(body))
	case "checkout.session.completed":
		return d.applyStripeOutcome(ctx, event.EventType, event.SessionID, d.ledger.ApplyStatusByStripeSession, models.PaymentStatusCompleted, string(body))
	case "payment_intent.payment_failed":
		return d.applyStripeOutcome(ctx, event.EventType, event.IntentID, d.ledger.ApplyStatusByStripeIntent, models.PaymentStatusFailed, string(body))
	default:
		slog.Info("ignoring unhandled Stripe event", "type", event.EventType)
		d.recordNotification(ctx, string(models.PaymentMethodStripe), models.NotificationSourceWebhook, "", string(body), "ignored: unhandled event type")
	}
	return nil
}

func (d *Dispatcher) applyStripeOutcome(ctx context.Context, eventType, key string, apply func(context.Context, string, models.PaymentStatus) (*models.Payment, bool, error), next models.PaymentStatus, payload string) error {
	if key == "" {
		slog.Warn("Stripe event lacks a correlation id", "type", eventType)
		d.recordNotification(ctx, string(models.PaymentMethodStripe), models.NotificationSourceWebhook, "", payload, "ignored: missing correlation id")
		return nil
	}

	updated, effected, err := apply(ctx, key, next)
	if err != nil {
		if errors.Is(err, apperrors.ErrPaymentNotFound) {
			slog.Warn("no payment matches Stripe event", "type", eventType, "key", key)
			d.recordNotification(ctx, string(models.PaymentMethodStripe), models.NotificationSourceWebhook, "", payload, "ignored: payment not found")
			return nil
		}
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			slog.Warn("Stripe event rejected by transition rules", "type", eventType, "key", key)
			d.recordNotification(ctx, string(models.PaymentMethodStripe), models.NotificationSourceWebhook, "", payload, "rejected: "+err.Error())
			return nil
		}
		// Transient store failure. Surface it so Stripe redelivers.
		slog.Error("failed to apply Stripe event", "type", eventType, "key", key, "error", err)
		d.recordNotification(ctx, string(models.PaymentMethodStripe), models.NotificationSourceWebhook, "", payload, "deferred: "+err.Error())
		return err
	}
	d.publish(ctx, updated, effected)
	d.recordNotification(ctx, string(models.PaymentMethodStripe), models.NotificationSourceWebhook, updated.TransactionID, payload, "applied: "+string(next))
	return nil
}
