package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/payments"
	ptypes "github.com/ngduyd/ecommerce-payments/pkg/payments/types"
	"github.com/ngduyd/ecommerce-payments/pkg/storage"
)

// IPNResponse is the acknowledgement body VNPay expects from the IPN
// endpoint. Always delivered with HTTP 200; the RspCode carries the
// actual outcome.
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

var (
	ipnSuccess          = IPNResponse{RspCode: "00", Message: "Confirm Success"}
	ipnPaymentFailed    = IPNResponse{RspCode: "00", Message: "Payment failed"}
	ipnOrderNotFound    = IPNResponse{RspCode: "01", Message: "Order not found"}
	ipnAlreadyConfirmed = IPNResponse{RspCode: "02", Message: "Order already confirmed"}
	ipnInvalidAmount    = IPNResponse{RspCode: "04", Message: "Invalid amount"}
	ipnInvalidSignature = IPNResponse{RspCode: "97", Message: "Invalid signature"}
	ipnUnknownError     = IPNResponse{RspCode: "99", Message: "Unknown error"}
)

// HandleVNPayIPN is the server-to-server reconciliation path for
// VNPay. Whatever happens inside, the caller gets a well-formed IPN
// acknowledgement; VNPay retries anything else.
func (d *Dispatcher) HandleVNPayIPN(ctx context.Context, params map[string]string) (resp IPNResponse) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while handling VNPay IPN", "panic", r)
			resp = ipnUnknownError
		}
	}()

	payload := marshalPayload(params)
	provider := payments.Get(string(models.PaymentMethodVNPay))
	if provider == nil {
		return ipnUnknownError
	}

	event, err := provider.VerifyNotification(params)
	if err != nil {
		d.recordNotification(ctx, string(models.PaymentMethodVNPay), models.NotificationSourceIPN, params["vnp_TxnRef"], payload, "rejected: invalid signature")
		return ipnInvalidSignature
	}

	p, err := d.store.FindPaymentByTransactionID(ctx, event.TransactionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			d.recordNotification(ctx, string(models.PaymentMethodVNPay), models.NotificationSourceIPN, event.TransactionID, payload, "rejected: order not found")
			return ipnOrderNotFound
		}
		slog.Error("failed to resolve payment for VNPay IPN", "transaction_id", event.TransactionID, "error", err)
		return ipnUnknownError
	}
	if event.Amount != p.Amount {
		d.recordNotification(ctx, string(models.PaymentMethodVNPay), models.NotificationSourceIPN, event.TransactionID, payload, "rejected: amount mismatch")
		return ipnInvalidAmount
	}
	if p.Status != models.PaymentStatusPending {
		d.recordNotification(ctx, string(models.PaymentMethodVNPay), models.NotificationSourceIPN, event.TransactionID, payload, "rejected: already reconciled")
		return ipnAlreadyConfirmed
	}

	switch provider.TranslateStatus(event.RawStatus) {
	case ptypes.StatusCompleted:
		updated, effected, err := d.ledger.ApplyStatus(ctx, p.ID, models.PaymentStatusCompleted)
		if err != nil {
			slog.Error("failed to apply completed status from VNPay IPN", "payment_id", p.ID, "error", err)
			return ipnUnknownError
		}
		d.publish(ctx, updated, effected)
		d.recordNotification(ctx, string(models.PaymentMethodVNPay), models.NotificationSourceIPN, event.TransactionID, payload, "applied: completed")
		return ipnSuccess
	case ptypes.StatusFailed:
		updated, effected, err := d.ledger.ApplyStatus(ctx, p.ID, models.PaymentStatusFailed)
		if err != nil {
			slog.Error("failed to apply failed status from VNPay IPN", "payment_id", p.ID, "error", err)
			return ipnUnknownError
		}
		d.publish(ctx, updated, effected)
		d.recordNotification(ctx, string(models.PaymentMethodVNPay), models.NotificationSourceIPN, event.TransactionID, payload, "applied: failed")
		return ipnPaymentFailed
	default:
		d.recordNotification(ctx, string(models.PaymentMethodVNPay), models.NotificationSourceIPN, event.TransactionID, payload, "ignored: unknown provider status")
		return ipnUnknownError
	}
}

func marshalPayload(params map[string]string) string {
	b, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return string(b)
}
