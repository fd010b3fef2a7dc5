package ledger

import "github.com/ngduyd/ecommerce-payments/pkg/models"

// Effect names the dependent order mutation a transition triggers.
type Effect int

const (
	EffectNone Effect = iota
	EffectConfirmOrder
	EffectCancelOrder
)

// Transition is the state machine decision: given the current and the
// requested status it returns the order side effect, whether the
// request is a duplicate of the current state, and whether the
// transition is allowed at all. Pure function of its inputs; the
// outcome never depends on how many times a notification is
// delivered.
func Transition(current, next models.PaymentStatus) (effect Effect, noop bool, ok bool) {
	if current == next {
		return EffectNone, true, true
	}
	switch current {
	case models.PaymentStatusPending:
		switch next {
		case models.PaymentStatusCompleted:
			return EffectConfirmOrder, false, true
		case models.PaymentStatusFailed:
			return EffectCancelOrder, false, true
		}
	case models.PaymentStatusCompleted:
		if next == models.PaymentStatusRefunded {
			return EffectNone, false, true
		}
	}
	// failed and refunded admit nothing; completed admits only refund.
	return EffectNone, false, false
}
