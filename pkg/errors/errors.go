package errors

import "fmt"

// Error is a user-visible error with a stable code string and the
// numeric code carried in the response envelope.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

// New builds a user error. The code string is stable across releases,
// the message is what clients display.
func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// Newf is New with a formatted message, for errors that embed runtime
// state (e.g. the offending status value).
func Newf(code string, status int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Status: status}
}

// Payment reconciliation errors. Messages mirror the public API
// contract and must not be reworded casually.
var (
	ErrOrderIDRequired     = New("payment.order_id_required", "order_id is required", 400)
	ErrOrderNotFound       = New("payment.order_not_found", "Order not found", 404)
	ErrPaymentNotFound     = New("payment.not_found", "Payment not found", 404)
	ErrPaymentExists       = New("payment.already_exists", "Payment already exists for this order", 400)
	ErrCreateNotAllowed    = New("payment.create_denied", "You are not authorized to create payment for this order", 403)
	ErrUpdateNotAllowed    = New("payment.update_denied", "You are not authorized to update this payment", 403)
	ErrDeleteNotAllowed    = New("payment.delete_denied", "You are not authorized to delete this payment", 403)
	ErrInvalidStatus       = New("payment.invalid_status", "Invalid status. Status must be one of: pending, completed, failed, refunded", 400)
	ErrInvalidTransition   = New("payment.invalid_transition", "Payment status transition not allowed", 400)
	ErrInvalidSignature    = New("payment.invalid_signature", "Invalid signature", 400)
	ErrInvalidNotification = New("payment.invalid_notification", "Invalid notification payload", 400)
	ErrAmountMismatch      = New("payment.amount_mismatch", "Invalid amount", 400)
	ErrProviderFailure     = New("payment.provider_failure", "Payment provider request failed", 500)
	ErrPaymentIDRequired   = New("payment.payment_id_required", "payment_id and status are required", 400)
	ErrIntentIDRequired    = New("payment.intent_id_required", "payment_intent_id is required", 400)
)

// DeleteNotAllowedFor reports the non-deletable status back to the
// caller exactly like the legacy API did.
func DeleteNotAllowedFor(status string) *Error {
	return Newf("payment.delete_precondition", 400, "Cannot delete payments with status: %s", status)
}
