package stripe

import (
	"context"
	"fmt"
	"log"

	apperrors "github.com/ngduyd/ecommerce-payments/pkg/errors"
	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/payments/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Config is the Stripe account material. WebhookSecret verifies the
// Stripe-Signature header on inbound webhook events.
type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

type Stripe struct {
	cfg Config
}

func New(cfg Config) *Stripe {
	return &Stripe{cfg: cfg}
}

func (s *Stripe) Init() error {
	stripeapi.Key = s.cfg.SecretKey
	if s.cfg.SecretKey == "" {
		log.Printf("[Stripe] missing secret key, channel will reject requests")
	}
	return nil
}

func (s *Stripe) Name() string {
	return string(models.PaymentMethodStripe)
}

// Initiate creates a PaymentIntent for the order total and returns the
// client secret the frontend confirms with.
func (s *Stripe) Initiate(ctx context.Context, order *models.Order, opts types.InitiateOptions) (*types.InitiationResult, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(order.TotalMinorUnits()),
		Currency: stripeapi.String(string(stripeapi.CurrencyUSD)),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", cast.ToString(order.ID))
	params.AddMetadata("transaction_id", opts.TransactionID)
	if opts.CustomerEmail != "" {
		params.AddMetadata("customer_email", opts.CustomerEmail)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe payment intent: %w", err)
	}

	return &types.InitiationResult{
		ProviderRef:  intent.ID,
		ClientSecret: intent.ClientSecret,
		Message:      "Stripe Payment Intent created successfully",
	}, nil
}

// CreateCheckoutSession builds a hosted checkout page from the order's
// line items plus the shipping fee, if any.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, order *models.Order, opts types.InitiateOptions) (*types.InitiationResult, error) {
	var lineItems []*stripeapi.CheckoutSessionLineItemParams
	for _, item := range order.Items {
		name := item.Name
		if name == "" {
			name = "Product"
		}
		lineItems = append(lineItems, &stripeapi.CheckoutSessionLineItemParams{
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency: stripeapi.String(string(stripeapi.CurrencyUSD)),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripeapi.String(name),
					Description: stripeapi.String("Order item from E-commerce store"),
				},
				UnitAmount: stripeapi.Int64(item.Price.Mul(decimal.NewFromInt(100)).IntPart()),
			},
			Quantity: stripeapi.Int64(int64(item.Quantity)),
		})
	}
	if order.ShippingFee.IsPositive() {
		lineItems = append(lineItems, &stripeapi.CheckoutSessionLineItemParams{
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency: stripeapi.String(string(stripeapi.CurrencyUSD)),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripeapi.String("Shipping Fee"),
					Description: stripeapi.String("Delivery charge"),
				},
				UnitAmount: stripeapi.Int64(order.ShippingFee.Mul(decimal.NewFromInt(100)).IntPart()),
			},
			Quantity: stripeapi.Int64(1),
		})
	}
	if len(lineItems) == 0 {
		return nil, apperrors.New("payment.order_empty", "No items found in order", 400)
	}

	successURL := opts.SuccessURL
	if successURL == "" {
		successURL = s.cfg.SuccessURL + "?session_id={CHECKOUT_SESSION_ID}"
	}
	cancelURL := opts.CancelURL
	if cancelURL == "" {
		cancelURL = s.cfg.CancelURL
	}

	params := &stripeapi.CheckoutSessionParams{
		Mode:       stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripeapi.String(successURL),
		CancelURL:  stripeapi.String(cancelURL),
	}
	params.Context = ctx
	params.AddMetadata("order_id", cast.ToString(order.ID))

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}

	return &types.InitiationResult{
		ProviderRef: sess.ID,
		RedirectURL: sess.URL,
		Message:     "Stripe Checkout Session created successfully",
	}, nil
}

// RetrieveIntent fetches the current provider-side intent state, used
// by the polling confirm flow.
func (s *Stripe) RetrieveIntent(ctx context.Context, intentID string) (*stripeapi.PaymentIntent, error) {
	params := &stripeapi.PaymentIntentParams{}
	params.Context = ctx
	return paymentintent.Get(intentID, params)
}

// VerifyNotification authenticates a webhook delivery. The payload map
// carries the raw body under "payload" and the Stripe-Signature header
// under "signature".
func (s *Stripe) VerifyNotification(payload map[string]string) (*types.VerifiedEvent, error) {
	body, okBody := payload["payload"]
	sig, okSig := payload["signature"]
	if !okBody || !okSig || body == "" || sig == "" {
		return nil, apperrors.ErrInvalidNotification
	}

	event, err := webhook.ConstructEvent([]byte(body), sig, s.cfg.WebhookSecret)
	if err != nil {
		return nil, apperrors.ErrInvalidSignature
	}

	objectID := cast.ToString(event.Data.Object["id"])
	ev := &types.VerifiedEvent{
		Provider:  s.Name(),
		EventType: string(event.Type),
		RawStatus: cast.ToString(event.Data.Object["status"]),
	}
	switch string(event.Type) {
	case "checkout.session.completed":
		ev.SessionID = objectID
	default:
		ev.IntentID = objectID
	}
	return ev, nil
}

// TranslateStatus maps payment intent statuses onto the canonical
// vocabulary.
func (s *Stripe) TranslateStatus(providerStatus string) types.Status {
	switch providerStatus {
	case "succeeded":
		return types.StatusCompleted
	case "canceled", "payment_failed":
		return types.StatusFailed
	case "requires_payment_method", "requires_confirmation", "requires_action", "processing":
		return types.StatusPending
	default:
		return types.StatusUnknown
	}
}
