package dispatcher

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/ngduyd/ecommerce-payments/pkg/errors"
	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/payments"
	ptypes "github.com/ngduyd/ecommerce-payments/pkg/payments/types"
	"github.com/ngduyd/ecommerce-payments/pkg/storage"
)

// CallbackResponse is the acknowledgement ZaloPay expects from the
// server callback. return_code 1 stops redelivery, 0 asks ZaloPay to
// retry, negative values flag a rejected callback.
type CallbackResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
}

// HandleZaloPayCallback is the server-to-server reconciliation path
// for ZaloPay. ZaloPay only calls back for successful payments.
func (d *Dispatcher) HandleZaloPayCallback(ctx context.Context, form map[string]string) (resp CallbackResponse) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while handling ZaloPay callback", "panic", r)
			resp = CallbackResponse{ReturnCode: 0, ReturnMessage: "internal error"}
		}
	}()

	payload := marshalPayload(form)
	provider := payments.Get(string(models.PaymentMethodZaloPay))
	if provider == nil {
		return CallbackResponse{ReturnCode: 0, ReturnMessage: "channel unavailable"}
	}

	event, err := provider.VerifyNotification(form)
	if err != nil {
		d.recordNotification(ctx, string(models.PaymentMethodZaloPay), models.NotificationSourceIPN, "", payload, "rejected: invalid mac")
		return CallbackResponse{ReturnCode: -1, ReturnMessage: "mac not equal"}
	}

	p, err := d.store.FindPaymentByTransactionID(ctx, event.TransactionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			d.recordNotification(ctx, string(models.PaymentMethodZaloPay), models.NotificationSourceIPN, event.TransactionID, payload, "rejected: payment not found")
			return CallbackResponse{ReturnCode: -2, ReturnMessage: "order not found"}
		}
		slog.Error("failed to resolve payment for ZaloPay callback", "transaction_id", event.TransactionID, "error", err)
		return CallbackResponse{ReturnCode: 0, ReturnMessage: "internal error"}
	}
	if event.Amount != p.Amount {
		d.recordNotification(ctx, string(models.PaymentMethodZaloPay), models.NotificationSourceIPN, event.TransactionID, payload, "rejected: amount mismatch")
		return CallbackResponse{ReturnCode: -2, ReturnMessage: "invalid amount"}
	}

	if provider.TranslateStatus(event.RawStatus) != ptypes.StatusCompleted {
		d.recordNotification(ctx, string(models.PaymentMethodZaloPay), models.NotificationSourceIPN, event.TransactionID, payload, "ignored: unknown provider status")
		return CallbackResponse{ReturnCode: -2, ReturnMessage: "unknown status"}
	}

	updated, effected, err := d.ledger.ApplyStatus(ctx, p.ID, models.PaymentStatusCompleted)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			// Terminal in a different state; redelivery will not change
			// that, so stop the retries.
			d.recordNotification(ctx, string(models.PaymentMethodZaloPay), models.NotificationSourceIPN, event.TransactionID, payload, "rejected: already reconciled")
			return CallbackResponse{ReturnCode: 1, ReturnMessage: "already processed"}
		}
		slog.Error("failed to apply ZaloPay callback", "payment_id", p.ID, "error", err)
		return CallbackResponse{ReturnCode: 0, ReturnMessage: "internal error"}
	}
	d.publish(ctx, updated, effected)
	d.recordNotification(ctx, string(models.PaymentMethodZaloPay), models.NotificationSourceIPN, event.TransactionID, payload, "applied: completed")
	return CallbackResponse{ReturnCode: 1, ReturnMessage: "success"}
}
