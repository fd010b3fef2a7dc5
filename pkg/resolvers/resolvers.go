package resolvers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ngduyd/ecommerce-payments/pkg/dispatcher"
	apperrors "github.com/ngduyd/ecommerce-payments/pkg/errors"
	"github.com/ngduyd/ecommerce-payments/pkg/hashid"
	"github.com/ngduyd/ecommerce-payments/pkg/ledger"
	"github.com/ngduyd/ecommerce-payments/pkg/models"
	ptypes "github.com/ngduyd/ecommerce-payments/pkg/payments/types"
	"github.com/ngduyd/ecommerce-payments/pkg/storage"
)

// Response is the uniform mutation envelope. Errors surface here as a
// structured result, never as an unhandled fault.
type Response struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Code    int                    `json:"code"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

type Resolver struct {
	store      storage.Store
	ledger     *ledger.Ledger
	dispatcher *dispatcher.Dispatcher
}

func New(store storage.Store, lg *ledger.Ledger, d *dispatcher.Dispatcher) *Resolver {
	return &Resolver{store: store, ledger: lg, dispatcher: d}
}

func (r *Resolver) CreatePaymentCOD(ctx context.Context, actor Actor, orderID uint) Response {
	if resp, authorized := r.authorizeOrder(ctx, actor, orderID); !authorized {
		return resp
	}
	data, err := r.dispatcher.CreateCODPayment(ctx, orderID)
	if err != nil {
		return fail(err)
	}
	return ok("Payment created", data)
}

func (r *Resolver) CreatePaymentZaloPay(ctx context.Context, actor Actor, orderID uint) Response {
	if resp, authorized := r.authorizeOrder(ctx, actor, orderID); !authorized {
		return resp
	}
	data, err := r.dispatcher.CreateZaloPayPayment(ctx, orderID, ptypes.InitiateOptions{})
	if err != nil {
		return fail(err)
	}
	return ok("Payment created", data)
}

func (r *Resolver) CreatePaymentVNPay(ctx context.Context, actor Actor, orderID uint, bankCode, orderType, locale, clientIP string) Response {
	if resp, authorized := r.authorizeOrder(ctx, actor, orderID); !authorized {
		return resp
	}
	data, err := r.dispatcher.CreateVNPayPayment(ctx, orderID, ptypes.InitiateOptions{
		BankCode:  bankCode,
		OrderType: orderType,
		Locale:    locale,
		ClientIP:  clientIP,
	})
	if err != nil {
		return fail(err)
	}
	return ok("Payment created", data)
}

func (r *Resolver) CreatePaymentStripe(ctx context.Context, actor Actor, orderID uint, customerEmail string) Response {
	if resp, authorized := r.authorizeOrder(ctx, actor, orderID); !authorized {
		return resp
	}
	data, err := r.dispatcher.CreateStripeIntentPayment(ctx, orderID, ptypes.InitiateOptions{
		CustomerEmail: customerEmail,
	})
	if err != nil {
		return fail(err)
	}
	return ok("Payment created", data)
}

func (r *Resolver) CreateStripeCheckoutSession(ctx context.Context, actor Actor, orderID uint, successURL, cancelURL string) Response {
	if resp, authorized := r.authorizeOrder(ctx, actor, orderID); !authorized {
		return resp
	}
	data, err := r.dispatcher.CreateStripeCheckoutSession(ctx, orderID, ptypes.InitiateOptions{
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return fail(err)
	}
	return ok("Checkout session created", data)
}

// UpdatePaymentStatus is the manual override path, operator-only.
// It is how completed payments become refunded.
func (r *Resolver) UpdatePaymentStatus(ctx context.Context, actor Actor, publicID, status string) Response {
	p, resp, authorized := r.authorizePayment(ctx, actor, ActionUpdatePayment, publicID)
	if !authorized {
		return resp
	}
	next := models.PaymentStatus(status)
	if !next.Valid() {
		return fail(apperrors.ErrInvalidStatus)
	}
	updated, _, err := r.ledger.ApplyStatus(ctx, p.ID, next)
	if err != nil {
		return fail(err)
	}
	return ok("Payment updated", map[string]interface{}{
		"payment_id":     publicID,
		"payment_status": string(updated.Status),
	})
}

func (r *Resolver) DeletePayment(ctx context.Context, actor Actor, publicID string) Response {
	p, resp, authorized := r.authorizePayment(ctx, actor, ActionDeletePayment, publicID)
	if !authorized {
		return resp
	}
	if err := r.ledger.Delete(ctx, p.ID); err != nil {
		return fail(err)
	}
	return ok("Payment deleted", nil)
}

func (r *Resolver) ConfirmStripePayment(ctx context.Context, actor Actor, intentID string) Response {
	if intentID == "" {
		return fail(apperrors.ErrIntentIDRequired)
	}
	if actor.UserID == 0 && !actor.Admin {
		return fail(errUnauthorized)
	}
	data, err := r.dispatcher.ConfirmStripePayment(ctx, intentID)
	if err != nil {
		return fail(err)
	}
	return ok("Payment confirmed", data)
}

var errUnauthorized = apperrors.New("auth.forbidden", "You are not allowed to perform this action", 403)

// authorizeOrder loads the order and gates creation on ownership.
// The second return value reports whether the caller may proceed.
func (r *Resolver) authorizeOrder(ctx context.Context, actor Actor, orderID uint) (Response, bool) {
	if orderID == 0 {
		return fail(apperrors.ErrOrderIDRequired), false
	}
	order, err := r.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fail(apperrors.ErrOrderNotFound), false
		}
		return fail(err), false
	}
	if !canPerform(actor, ActionCreatePayment, order.UserID) {
		return fail(errUnauthorized), false
	}
	return Response{}, true
}

func (r *Resolver) authorizePayment(ctx context.Context, actor Actor, action Action, publicID string) (*models.Payment, Response, bool) {
	if publicID == "" {
		return nil, fail(apperrors.ErrPaymentIDRequired), false
	}
	id, err := hashid.Decode(dispatcher.HashIDTypePayment, publicID)
	if err != nil {
		return nil, fail(apperrors.ErrPaymentNotFound), false
	}
	p, err := r.store.GetPayment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fail(apperrors.ErrPaymentNotFound), false
		}
		return nil, fail(err), false
	}
	order, err := r.store.GetOrder(ctx, p.OrderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fail(apperrors.ErrOrderNotFound), false
		}
		return nil, fail(err), false
	}
	if !canPerform(actor, action, order.UserID) {
		return nil, fail(errUnauthorized), false
	}
	return p, Response{}, true
}

func ok(message string, data map[string]interface{}) Response {
	return Response{Success: true, Message: message, Code: 200, Data: data}
}

func fail(err error) Response {
	var ue *apperrors.Error
	if errors.As(err, &ue) {
		return Response{Success: false, Message: ue.Message, Code: ue.Status}
	}
	slog.Error("unexpected resolver error", "error", err)
	return Response{Success: false, Message: "Internal server error", Code: 500}
}
