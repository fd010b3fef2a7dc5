package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/payments"
	ptypes "github.com/ngduyd/ecommerce-payments/pkg/payments/types"
	"github.com/ngduyd/ecommerce-payments/pkg/payments/zalopay"
	"github.com/ngduyd/ecommerce-payments/pkg/storage"
)

// ReturnResult is what the end user sees after a provider redirects
// their browser back. The redirect is informational; the IPN/webhook
// remains the source of truth, so a reconciliation that already
// happened is reported as success here.
type ReturnResult struct {
	Success bool
	Title   string
	Message string
}

// HandleReturn processes the synchronous browser return from VNPay or
// ZaloPay. The provider is inferred from the query shape.
func (d *Dispatcher) HandleReturn(ctx context.Context, params map[string]string) (result ReturnResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while handling payment return", "panic", r)
			result = ReturnResult{Title: "Payment Failed", Message: "Unable to process payment result"}
		}
	}()

	switch {
	case params["vnp_SecureHash"] != "":
		return d.handleProviderReturn(ctx, string(models.PaymentMethodVNPay), params, func(p payments.Provider) (*ptypes.VerifiedEvent, error) {
			return p.VerifyNotification(params)
		})
	case params["checksum"] != "":
		return d.handleProviderReturn(ctx, string(models.PaymentMethodZaloPay), params, func(p payments.Provider) (*ptypes.VerifiedEvent, error) {
			zp, ok := p.(*zalopay.ZaloPay)
			if !ok {
				return nil, errProviderUnavailable
			}
			return zp.VerifyReturn(params)
		})
	default:
		return ReturnResult{Title: "Payment Failed", Message: "Unrecognized payment return"}
	}
}

var errProviderUnavailable = errors.New("payment channel unavailable")

func (d *Dispatcher) handleProviderReturn(ctx context.Context, channel string, params map[string]string, verify func(payments.Provider) (*ptypes.VerifiedEvent, error)) ReturnResult {
	payload := marshalPayload(params)
	provider := payments.Get(channel)
	if provider == nil {
		return ReturnResult{Title: "Payment Failed", Message: "Payment channel unavailable"}
	}

	event, err := verify(provider)
	if err != nil {
		d.recordNotification(ctx, channel, models.NotificationSourceReturn, "", payload, "rejected: invalid signature")
		return ReturnResult{Title: "Payment Failed", Message: "Invalid payment signature"}
	}

	p, err := d.store.FindPaymentByTransactionID(ctx, event.TransactionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			d.recordNotification(ctx, channel, models.NotificationSourceReturn, event.TransactionID, payload, "rejected: payment not found")
			return ReturnResult{Title: "Payment Failed", Message: "Payment not found"}
		}
		slog.Error("failed to resolve payment on return", "channel", channel, "transaction_id", event.TransactionID, "error", err)
		return ReturnResult{Title: "Payment Failed", Message: "Unable to process payment result"}
	}
	if event.Amount != 0 && event.Amount != p.Amount {
		d.recordNotification(ctx, channel, models.NotificationSourceReturn, event.TransactionID, payload, "rejected: amount mismatch")
		return ReturnResult{Title: "Payment Failed", Message: "Invalid amount"}
	}

	switch provider.TranslateStatus(event.RawStatus) {
	case ptypes.StatusCompleted:
		updated, effected, err := d.ledger.ApplyStatusByTransactionID(ctx, event.TransactionID, models.PaymentStatusCompleted)
		if err != nil {
			slog.Error("failed to apply completed status on return", "payment_id", p.ID, "error", err)
			return ReturnResult{Title: "Payment Failed", Message: "Unable to process payment result"}
		}
		d.publish(ctx, updated, effected)
		d.recordNotification(ctx, channel, models.NotificationSourceReturn, event.TransactionID, payload, "applied: completed")
		return ReturnResult{Success: true, Title: "Payment Successful", Message: "Your payment has been confirmed"}
	case ptypes.StatusFailed:
		updated, effected, err := d.ledger.ApplyStatusByTransactionID(ctx, event.TransactionID, models.PaymentStatusFailed)
		if err != nil {
			slog.Error("failed to apply failed status on return", "payment_id", p.ID, "error", err)
			return ReturnResult{Title: "Payment Failed", Message: "Unable to process payment result"}
		}
		d.publish(ctx, updated, effected)
		d.recordNotification(ctx, channel, models.NotificationSourceReturn, event.TransactionID, payload, "applied: failed")
		return ReturnResult{Title: "Payment Failed", Message: "Your payment was not completed"}
	case ptypes.StatusPending:
		d.recordNotification(ctx, channel, models.NotificationSourceReturn, event.TransactionID, payload, "ignored: still processing")
		return ReturnResult{Success: true, Title: "Payment Processing", Message: "Your payment is being processed"}
	default:
		d.recordNotification(ctx, channel, models.NotificationSourceReturn, event.TransactionID, payload, "ignored: unknown provider status")
		return ReturnResult{Title: "Payment Failed", Message: "Unrecognized payment status"}
	}
}

// RenderHTML produces the user-facing result page shown after a
// provider redirect.
func (r ReturnResult) RenderHTML() string {
	icon, bgColor, textColor := "✗", "bg-red-100", "text-red-800"
	if r.Success {
		icon, bgColor, textColor = "✓", "bg-green-100", "text-green-800"
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gray-100 h-screen flex items-center justify-center">
    <div class="max-w-md w-full mx-auto">
        <div class="bg-white shadow-lg rounded-lg p-6">
            <div class="text-center">
                <div class="mx-auto flex items-center justify-center h-12 w-12 rounded-full %s mb-4">
                    <span class="text-2xl font-bold %s">%s</span>
                </div>
                <h3 class="text-lg font-medium text-gray-900 mb-2">%s</h3>
                <p class="text-sm text-gray-500 mb-4">%s</p>
                <button onclick="window.close()" class="w-full bg-blue-600 hover:bg-blue-700 text-white font-medium py-2 px-4 rounded">
                    Close Window
                </button>
            </div>
        </div>
    </div>
    <script>
        if (window.opener) {
            window.opener.postMessage({
                type: 'payment_result',
                success: %v,
                message: '%s'
            }, '*');
        }
    </script>
</body>
</html>`,
		r.Title, bgColor, textColor, icon, r.Title, r.Message,
		r.Success, r.Message)
}
