package vnpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ngduyd/ecommerce-payments/pkg/errors"
	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/payments/types"
)

const testSecret = "VNPAYSECRET"

func newTestVNPay() *VNPay {
	v := New(Config{
		TmnCode:    "TESTCODE",
		HashSecret: testSecret,
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "http://localhost:8080/payment/return",
	})
	v.now = func() time.Time { return time.Date(2024, 1, 15, 8, 30, 45, 0, time.UTC) }
	return v
}

func signParams(t *testing.T, params map[string]string) string {
	t.Helper()
	h := hmac.New(sha512.New, []byte(testSecret))
	h.Write([]byte(hashData(params)))
	return hex.EncodeToString(h.Sum(nil))
}

func notification(t *testing.T, overrides map[string]string) map[string]string {
	t.Helper()
	params := map[string]string{
		"vnp_TxnRef":            "VNP202401150830450001",
		"vnp_Amount":            "15000",
		"vnp_ResponseCode":      "00",
		"vnp_TransactionStatus": "00",
		"vnp_TmnCode":           "TESTCODE",
	}
	for k, val := range overrides {
		params[k] = val
	}
	params["vnp_SecureHash"] = signParams(t, params)
	return params
}

func TestInitiateBuildsSignedPayURL(t *testing.T) {
	v := newTestVNPay()
	order := &models.Order{ID: 1, TotalPrice: decimal.NewFromInt(150)}

	result, err := v.Initiate(context.Background(), order, types.InitiateOptions{
		TransactionID: "VNP202401150830450001",
		BankCode:      "NCB",
		ClientIP:      "10.0.0.9",
	})
	require.NoError(t, err)

	u, err := url.Parse(result.RedirectURL)
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "15000", q.Get("vnp_Amount"))
	require.Equal(t, "VNP202401150830450001", q.Get("vnp_TxnRef"))
	require.Equal(t, "NCB", q.Get("vnp_BankCode"))
	require.Equal(t, "20240115083045", q.Get("vnp_CreateDate"))
	require.NotEmpty(t, q.Get("vnp_SecureHash"))
}

func TestInitiateSignatureRoundTrip(t *testing.T) {
	v := newTestVNPay()
	order := &models.Order{ID: 1, TotalPrice: decimal.NewFromInt(150)}

	result, err := v.Initiate(context.Background(), order, types.InitiateOptions{TransactionID: "VNP1"})
	require.NoError(t, err)

	u, err := url.Parse(result.RedirectURL)
	require.NoError(t, err)
	params := map[string]string{}
	for k, vs := range u.Query() {
		params[k] = vs[0]
	}
	params["vnp_ResponseCode"] = "00"
	delete(params, "vnp_SecureHash")
	params["vnp_SecureHash"] = signParams(t, params)

	event, err := v.VerifyNotification(params)
	require.NoError(t, err)
	require.Equal(t, "VNP1", event.TransactionID)
}

func TestVerifyNotification(t *testing.T) {
	v := newTestVNPay()

	event, err := v.VerifyNotification(notification(t, nil))
	require.NoError(t, err)
	require.Equal(t, "vnpay", event.Provider)
	require.Equal(t, "VNP202401150830450001", event.TransactionID)
	require.Equal(t, int64(15000), event.Amount)
	require.Equal(t, "00", event.RawStatus)
}

func TestVerifyNotificationUppercaseHashAccepted(t *testing.T) {
	v := newTestVNPay()

	params := notification(t, nil)
	params["vnp_SecureHash"] = strings.ToUpper(params["vnp_SecureHash"])
	_, err := v.VerifyNotification(params)
	require.NoError(t, err)
}

func TestVerifyNotificationTamperedAmount(t *testing.T) {
	v := newTestVNPay()

	params := notification(t, nil)
	params["vnp_Amount"] = "1"
	_, err := v.VerifyNotification(params)
	require.ErrorIs(t, err, apperrors.ErrInvalidSignature)
}

func TestVerifyNotificationMissingHash(t *testing.T) {
	v := newTestVNPay()

	params := notification(t, nil)
	delete(params, "vnp_SecureHash")
	_, err := v.VerifyNotification(params)
	require.ErrorIs(t, err, apperrors.ErrInvalidNotification)
}

func TestVerifyNotificationMissingTxnRef(t *testing.T) {
	v := newTestVNPay()

	params := notification(t, nil)
	delete(params, "vnp_TxnRef")
	params["vnp_SecureHash"] = signParams(t, params)
	_, err := v.VerifyNotification(params)
	require.ErrorIs(t, err, apperrors.ErrInvalidNotification)
}

func TestTranslateStatus(t *testing.T) {
	v := newTestVNPay()

	require.Equal(t, types.StatusCompleted, v.TranslateStatus("00"))
	require.Equal(t, types.StatusFailed, v.TranslateStatus("01"))
	require.Equal(t, types.StatusUnknown, v.TranslateStatus("24"))
	require.Equal(t, types.StatusUnknown, v.TranslateStatus(""))
}
