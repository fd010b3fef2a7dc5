package models

// PaymentStatus is the canonical payment state vocabulary. Every
// transition site matches exhaustively on these values; provider
// status strings never leak past the adapters.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Valid reports whether s is one of the enumerated payment states.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsTerminal returns true when no automatic reconciliation may move
// the payment out of s. Completed still admits the manual refund path.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusRefunded
}

// CanTransitionTo reports whether the state machine allows s -> target.
// Re-applying the current state is always allowed and is a no-op at the
// ledger level.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	if s == target {
		return true
	}
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusCompleted || target == PaymentStatusFailed
	case PaymentStatusCompleted:
		return target == PaymentStatusRefunded
	case PaymentStatusFailed, PaymentStatusRefunded:
		return false
	default:
		return false
	}
}

// PaymentMethod identifies the provider a payment runs through.
type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodZaloPay PaymentMethod = "zalopay"
	PaymentMethodVNPay   PaymentMethod = "vnpay"
	PaymentMethodStripe  PaymentMethod = "stripe"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodZaloPay, PaymentMethodVNPay, PaymentMethodStripe:
		return true
	}
	return false
}

// OrderStatus is the order lifecycle as far as payments care about it.
// The order subsystem owns the rest of the vocabulary.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)
