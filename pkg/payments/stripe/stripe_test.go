package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	stripeapi "github.com/stripe/stripe-go/v76"

	apperrors "github.com/ngduyd/ecommerce-payments/pkg/errors"
	"github.com/ngduyd/ecommerce-payments/pkg/payments/types"
)

const testWebhookSecret = "whsec_test"

func newTestStripe() *Stripe {
	return New(Config{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		SuccessURL:    "http://localhost:8080/payment/return",
		CancelURL:     "http://localhost:8080/payment/return",
	})
}

// signBody mimics the Stripe-Signature header for a webhook body.
func signBody(body string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, body)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventBody(eventType, objectID, status string) string {
	return fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"api_version": %q,
		"type": %q,
		"data": {"object": {"id": %q, "status": %q}}
	}`, stripeapi.APIVersion, eventType, objectID, status)
}

func TestVerifyNotificationIntentSucceeded(t *testing.T) {
	s := newTestStripe()
	body := eventBody("payment_intent.succeeded", "pi_123", "succeeded")

	event, err := s.VerifyNotification(map[string]string{
		"payload":   body,
		"signature": signBody(body),
	})
	require.NoError(t, err)
	require.Equal(t, "stripe", event.Provider)
	require.Equal(t, "payment_intent.succeeded", event.EventType)
	require.Equal(t, "pi_123", event.IntentID)
	require.Empty(t, event.SessionID)
	require.Equal(t, types.StatusCompleted, s.TranslateStatus(event.RawStatus))
}

func TestVerifyNotificationCheckoutCompleted(t *testing.T) {
	s := newTestStripe()
	body := eventBody("checkout.session.completed", "cs_456", "complete")

	event, err := s.VerifyNotification(map[string]string{
		"payload":   body,
		"signature": signBody(body),
	})
	require.NoError(t, err)
	require.Equal(t, "checkout.session.completed", event.EventType)
	require.Equal(t, "cs_456", event.SessionID)
	require.Empty(t, event.IntentID)
}

func TestVerifyNotificationBadSignature(t *testing.T) {
	s := newTestStripe()
	body := eventBody("payment_intent.succeeded", "pi_123", "succeeded")

	_, err := s.VerifyNotification(map[string]string{
		"payload":   body,
		"signature": "t=1,v1=deadbeef",
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidSignature)
}

func TestVerifyNotificationTamperedBody(t *testing.T) {
	s := newTestStripe()
	body := eventBody("payment_intent.succeeded", "pi_123", "succeeded")
	sig := signBody(body)

	_, err := s.VerifyNotification(map[string]string{
		"payload":   eventBody("payment_intent.succeeded", "pi_999", "succeeded"),
		"signature": sig,
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidSignature)
}

func TestVerifyNotificationMissingFields(t *testing.T) {
	s := newTestStripe()

	_, err := s.VerifyNotification(map[string]string{"payload": "{}"})
	require.ErrorIs(t, err, apperrors.ErrInvalidNotification)

	_, err = s.VerifyNotification(map[string]string{"signature": "t=1,v1=abc"})
	require.ErrorIs(t, err, apperrors.ErrInvalidNotification)
}

func TestTranslateStatus(t *testing.T) {
	s := newTestStripe()

	require.Equal(t, types.StatusCompleted, s.TranslateStatus("succeeded"))
	require.Equal(t, types.StatusFailed, s.TranslateStatus("canceled"))
	require.Equal(t, types.StatusFailed, s.TranslateStatus("payment_failed"))
	require.Equal(t, types.StatusPending, s.TranslateStatus("processing"))
	require.Equal(t, types.StatusPending, s.TranslateStatus("requires_action"))
	require.Equal(t, types.StatusUnknown, s.TranslateStatus("mystery"))
}
