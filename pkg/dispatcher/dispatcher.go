package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ngduyd/ecommerce-payments/pkg/errors"
	"github.com/ngduyd/ecommerce-payments/pkg/hashid"
	"github.com/ngduyd/ecommerce-payments/pkg/ledger"
	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/orders"
	"github.com/ngduyd/ecommerce-payments/pkg/payments"
	stripepay "github.com/ngduyd/ecommerce-payments/pkg/payments/stripe"
	ptypes "github.com/ngduyd/ecommerce-payments/pkg/payments/types"
	"github.com/ngduyd/ecommerce-payments/pkg/storage"
)

// HashIDTypePayment namespaces the public payment references exposed
// in API responses.
var HashIDTypePayment = hashid.NewType("pm-", "payment", 6)

// Notifier forwards terminal payment outcomes downstream after the
// local transaction has committed. May be nil.
type Notifier interface {
	PublishPaymentEvent(ctx context.Context, event PaymentEventMessage) error
}

// PaymentEventMessage is the committed outcome published downstream.
type PaymentEventMessage struct {
	PaymentID     string    `json:"payment_id"`
	OrderID       uint      `json:"order_id"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	Amount        int64     `json:"amount"`
	TransactionID string    `json:"transaction_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Dispatcher is the single entry point for payment creation and for
// every inbound provider notification. It verifies authenticity via
// the provider adapter, resolves the target payment, and drives the
// ledger; provider errors never escape it unhandled.
type Dispatcher struct {
	store       storage.Store
	ledger      *ledger.Ledger
	coordinator *orders.Coordinator
	notifier    Notifier
}

func New(store storage.Store, lg *ledger.Ledger, coordinator *orders.Coordinator, notifier Notifier) *Dispatcher {
	return &Dispatcher{store: store, ledger: lg, coordinator: coordinator, notifier: notifier}
}

// CreateCODPayment records a pending cash-on-delivery payment and
// confirms the order immediately: for COD, placing the order is the
// commitment.
func (d *Dispatcher) CreateCODPayment(ctx context.Context, orderID uint) (map[string]interface{}, error) {
	order, err := d.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	p, err := d.ledger.Create(ctx, order.ID, order.TotalMinorUnits(), models.PaymentMethodCOD, newTransactionID("COD"))
	if err != nil {
		return nil, err
	}
	if err := d.coordinator.ConfirmOnCreation(ctx, d.store, order.ID); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"payment_id":     hashid.Encode(HashIDTypePayment, p.ID),
		"transaction_id": p.TransactionID,
	}, nil
}

// CreateZaloPayPayment asks ZaloPay for an order URL first and only
// persists the payment once the provider accepted the order, so a
// provider timeout leaves no dangling pending row.
func (d *Dispatcher) CreateZaloPayPayment(ctx context.Context, orderID uint, opts ptypes.InitiateOptions) (map[string]interface{}, error) {
	order, err := d.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	provider := payments.Get(string(models.PaymentMethodZaloPay))
	result, err := d.initiate(ctx, provider, order, opts)
	if err != nil {
		return nil, err
	}

	transactionID := result.ProviderRef
	if transactionID == "" {
		transactionID = newTransactionID("ZP")
	}
	p, err := d.ledger.Create(ctx, order.ID, order.TotalMinorUnits(), models.PaymentMethodZaloPay, transactionID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"payment_id":     hashid.Encode(HashIDTypePayment, p.ID),
		"payment_url":    result.RedirectURL,
		"transaction_id": p.TransactionID,
	}, nil
}

// CreateVNPayPayment persists the payment and then builds the signed
// pay URL locally; VNPay initiation has no outbound call to fail.
func (d *Dispatcher) CreateVNPayPayment(ctx context.Context, orderID uint, opts ptypes.InitiateOptions) (map[string]interface{}, error) {
	order, err := d.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	p, err := d.ledger.Create(ctx, order.ID, order.TotalMinorUnits(), models.PaymentMethodVNPay, newTransactionID("VNP"))
	if err != nil {
		return nil, err
	}

	opts.TransactionID = p.TransactionID
	provider := payments.Get(string(models.PaymentMethodVNPay))
	result, err := d.initiate(ctx, provider, order, opts)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"payment_id":     hashid.Encode(HashIDTypePayment, p.ID),
		"payment_url":    result.RedirectURL,
		"transaction_id": p.TransactionID,
	}, nil
}

// CreateStripeIntentPayment persists the payment, creates the Stripe
// PaymentIntent and stores the correlation id. If Stripe rejects the
// intent the fresh pending row is removed again so the order is not
// left blocked by an unreconcilable payment.
func (d *Dispatcher) CreateStripeIntentPayment(ctx context.Context, orderID uint, opts ptypes.InitiateOptions) (map[string]interface{}, error) {
	order, err := d.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	p, err := d.ledger.Create(ctx, order.ID, order.TotalMinorUnits(), models.PaymentMethodStripe, newTransactionID("STRIPE"))
	if err != nil {
		return nil, err
	}

	opts.TransactionID = p.TransactionID
	provider := payments.Get(string(models.PaymentMethodStripe))
	result, err := d.initiate(ctx, provider, order, opts)
	if err != nil {
		d.discardAfterProviderFailure(ctx, p.ID)
		return nil, err
	}
	if err := d.store.SaveStripeCorrelation(ctx, p.ID, result.ProviderRef, ""); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"payment_id":        hashid.Encode(HashIDTypePayment, p.ID),
		"client_secret":     result.ClientSecret,
		"payment_intent_id": result.ProviderRef,
		"transaction_id":    p.TransactionID,
	}, nil
}

// CreateStripeCheckoutSession is CreateStripeIntentPayment's hosted
// checkout sibling; the session id is the stored correlation.
func (d *Dispatcher) CreateStripeCheckoutSession(ctx context.Context, orderID uint, opts ptypes.InitiateOptions) (map[string]interface{}, error) {
	order, err := d.loadOrderWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	sp, err := d.stripeProvider()
	if err != nil {
		return nil, err
	}

	p, err := d.ledger.Create(ctx, order.ID, order.TotalMinorUnits(), models.PaymentMethodStripe, newTransactionID("STRIPE"))
	if err != nil {
		return nil, err
	}
	result, err := sp.CreateCheckoutSession(ctx, order, opts)
	if err != nil {
		d.discardAfterProviderFailure(ctx, p.ID)
		return nil, d.asProviderError(err)
	}
	if err := d.store.SaveStripeCorrelation(ctx, p.ID, "", result.ProviderRef); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"payment_id":     hashid.Encode(HashIDTypePayment, p.ID),
		"session_id":     result.ProviderRef,
		"checkout_url":   result.RedirectURL,
		"transaction_id": p.TransactionID,
	}, nil
}

// ConfirmStripePayment polls the provider-side intent state and
// reconciles the local payment against it.
func (d *Dispatcher) ConfirmStripePayment(ctx context.Context, intentID string) (map[string]interface{}, error) {
	sp, err := d.stripeProvider()
	if err != nil {
		return nil, err
	}
	intent, err := sp.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, d.asProviderError(err)
	}

	p, err := d.store.FindPaymentByStripeIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, err
	}

	rawStatus := string(intent.Status)
	switch sp.TranslateStatus(rawStatus) {
	case ptypes.StatusCompleted:
		updated, effected, err := d.ledger.ApplyStatus(ctx, p.ID, models.PaymentStatusCompleted)
		if err != nil {
			return nil, err
		}
		d.publish(ctx, updated, effected)
		return map[string]interface{}{
			"payment_status": "completed",
			"transaction_id": updated.TransactionID,
		}, nil
	case ptypes.StatusFailed:
		updated, effected, err := d.ledger.ApplyStatus(ctx, p.ID, models.PaymentStatusFailed)
		if err != nil {
			return nil, err
		}
		d.publish(ctx, updated, effected)
		return nil, apperrors.New("payment.failed", "Payment failed", 400)
	case ptypes.StatusPending:
		return map[string]interface{}{
			"payment_status": "pending",
			"transaction_id": p.TransactionID,
		}, nil
	default:
		return map[string]interface{}{
			"payment_status": rawStatus,
			"transaction_id": p.TransactionID,
		}, nil
	}
}

func (d *Dispatcher) loadOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := d.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}
	return d.rejectIfActive(ctx, order)
}

func (d *Dispatcher) loadOrderWithItems(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := d.store.GetOrderWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}
	return d.rejectIfActive(ctx, order)
}

// rejectIfActive is a cheap pre-check that avoids the provider call
// when an active payment obviously exists. The race-proof check is the
// one inside ledger.Create.
func (d *Dispatcher) rejectIfActive(ctx context.Context, order *models.Order) (*models.Order, error) {
	active, err := d.store.HasActivePayment(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperrors.ErrPaymentExists
	}
	return order, nil
}

// initiate invokes the provider with panic containment: a misbehaving
// adapter becomes a ProviderError result, never an unhandled fault.
func (d *Dispatcher) initiate(ctx context.Context, provider payments.Provider, order *models.Order, opts ptypes.InitiateOptions) (result *ptypes.InitiationResult, err error) {
	if provider == nil {
		return nil, apperrors.ErrProviderFailure
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("provider panic during initiate", "provider", provider.Name(), "panic", r)
			result, err = nil, apperrors.ErrProviderFailure
		}
	}()
	result, err = provider.Initiate(ctx, order, opts)
	if err != nil {
		return nil, d.asProviderError(err)
	}
	return result, nil
}

// asProviderError keeps user errors as-is and wraps raw provider
// failures into the uniform taxonomy.
func (d *Dispatcher) asProviderError(err error) error {
	var ue *apperrors.Error
	if errors.As(err, &ue) {
		return err
	}
	slog.Error("payment provider call failed", "error", err)
	return apperrors.ErrProviderFailure
}

func (d *Dispatcher) discardAfterProviderFailure(ctx context.Context, paymentID uint) {
	if err := d.ledger.Delete(ctx, paymentID); err != nil {
		// The row stays behind tagged pending; the confirm flow can
		// still reconcile it later.
		slog.Error("failed to discard payment after provider failure", "payment_id", paymentID, "error", err)
	}
}

func (d *Dispatcher) stripeProvider() (*stripepay.Stripe, error) {
	sp, ok := payments.Get(string(models.PaymentMethodStripe)).(*stripepay.Stripe)
	if !ok {
		return nil, apperrors.ErrProviderFailure
	}
	return sp, nil
}

// publish forwards a committed terminal outcome downstream. Best
// effort: delivery failures are logged, local state already holds.
func (d *Dispatcher) publish(ctx context.Context, p *models.Payment, effected bool) {
	if d.notifier == nil || p == nil || !effected {
		return
	}
	msg := PaymentEventMessage{
		PaymentID:     hashid.Encode(HashIDTypePayment, p.ID),
		OrderID:       p.OrderID,
		Method:        string(p.Method),
		Status:        string(p.Status),
		Amount:        p.Amount,
		TransactionID: p.TransactionID,
		OccurredAt:    time.Now(),
	}
	if err := d.notifier.PublishPaymentEvent(ctx, msg); err != nil {
		slog.Error("failed to publish payment event", "payment_id", p.ID, "error", err)
	}
}

func (d *Dispatcher) recordNotification(ctx context.Context, provider, source, transactionID, payload, outcome string) {
	n := &models.PaymentNotification{
		Provider:      provider,
		Source:        source,
		TransactionID: transactionID,
		Payload:       payload,
		Outcome:       outcome,
	}
	if err := d.store.RecordNotification(ctx, n); err != nil {
		slog.Error("failed to record payment notification", "provider", provider, "source", source, "error", err)
	}
}

// newTransactionID builds the generated provider-correlatable
// reference, e.g. VNP20240115083045-1a2b3c4d. The random tail keeps
// two same-second creations from colliding on the unique index.
func newTransactionID(prefix string) string {
	return fmt.Sprintf("%s%s-%s", strings.ToUpper(prefix), time.Now().Format("20060102150405"), uuid.NewString()[:8])
}
