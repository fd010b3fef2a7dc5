package vnpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"

	apperrors "github.com/ngduyd/ecommerce-payments/pkg/errors"
	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/payments/types"
	"github.com/spf13/cast"
)

// Config is the VNPay merchant material. HashSecret keys the
// HMAC-SHA512 over both outbound pay URLs and inbound notifications.
type Config struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

type VNPay struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *VNPay {
	return &VNPay{cfg: cfg, now: time.Now}
}

func (v *VNPay) Init() error {
	return nil
}

func (v *VNPay) Name() string {
	return string(models.PaymentMethodVNPay)
}

// Initiate builds the signed pay URL. No outbound call is made; the
// signature is computed locally, so initiation cannot time out.
func (v *VNPay) Initiate(ctx context.Context, order *models.Order, opts types.InitiateOptions) (*types.InitiationResult, error) {
	locale := opts.Locale
	if locale == "" {
		locale = "vn"
	}
	orderType := opts.OrderType
	if orderType == "" {
		orderType = "other"
	}
	clientIP := opts.ClientIP
	if clientIP == "" {
		clientIP = "127.0.0.1"
	}

	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    v.cfg.TmnCode,
		"vnp_Amount":     cast.ToString(order.TotalMinorUnits()),
		"vnp_CreateDate": v.now().Format("20060102150405"),
		"vnp_CurrCode":   "VND",
		"vnp_IpAddr":     clientIP,
		"vnp_Locale":     locale,
		"vnp_OrderInfo":  "Payment for order #" + opts.TransactionID,
		"vnp_OrderType":  orderType,
		"vnp_ReturnUrl":  v.cfg.ReturnURL,
		"vnp_TxnRef":     opts.TransactionID,
	}
	if opts.BankCode != "" {
		params["vnp_BankCode"] = opts.BankCode
	}

	query := hashData(params)
	secureHash := v.sign(query)
	payURL := v.cfg.PayURL + "?" + query + "&vnp_SecureHash=" + secureHash

	return &types.InitiationResult{
		RedirectURL: payURL,
		Message:     "Please complete payment on VNPay",
	}, nil
}

// VerifyNotification re-computes the secure hash over the sorted
// parameters, excluding the hash fields themselves. Constant-time
// compare; any missing field fails closed.
func (v *VNPay) VerifyNotification(payload map[string]string) (*types.VerifiedEvent, error) {
	received, ok := payload["vnp_SecureHash"]
	if !ok || received == "" {
		return nil, apperrors.ErrInvalidNotification
	}
	txnRef := payload["vnp_TxnRef"]
	if txnRef == "" {
		return nil, apperrors.ErrInvalidNotification
	}

	params := make(map[string]string, len(payload))
	for k, val := range payload {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		if strings.HasPrefix(k, "vnp_") {
			params[k] = val
		}
	}
	expected := v.sign(hashData(params))
	if !hmac.Equal([]byte(strings.ToLower(received)), []byte(expected)) {
		return nil, apperrors.ErrInvalidSignature
	}

	return &types.VerifiedEvent{
		Provider:      v.Name(),
		TransactionID: txnRef,
		Amount:        cast.ToInt64(payload["vnp_Amount"]),
		RawStatus:     payload["vnp_ResponseCode"],
	}, nil
}

// TranslateStatus maps vnp_ResponseCode: 00 success, 01 explicit
// failure (cancels the order). Any other code is left to VNPay's own
// retry handling.
func (v *VNPay) TranslateStatus(providerStatus string) types.Status {
	switch providerStatus {
	case "00":
		return types.StatusCompleted
	case "01":
		return types.StatusFailed
	default:
		return types.StatusUnknown
	}
}

func (v *VNPay) sign(data string) string {
	h := hmac.New(sha512.New, []byte(v.cfg.HashSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// hashData builds the canonical sorted, url-encoded k=v&... string
// VNPay signs.
func hashData(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(params[k]))
	}
	return sb.String()
}
