package resolvers

// Actor is the request-scoped identity every mutation receives
// explicitly; there is no ambient session lookup.
type Actor struct {
	UserID uint
	Admin  bool
}

type Action string

const (
	ActionCreatePayment Action = "payment.create"
	ActionUpdatePayment Action = "payment.update"
	ActionDeletePayment Action = "payment.delete"
)

// canPerform is the single capability gate consulted before any
// ledger call. Order-scoped actions require ownership; manual status
// overrides are operator-only.
func canPerform(actor Actor, action Action, ownerID uint) bool {
	if actor.Admin {
		return true
	}
	switch action {
	case ActionCreatePayment, ActionDeletePayment:
		return actor.UserID != 0 && actor.UserID == ownerID
	default:
		return false
	}
}
