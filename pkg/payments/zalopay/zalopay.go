package zalopay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/ngduyd/ecommerce-payments/pkg/errors"
	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/payments/types"
	"github.com/spf13/cast"
	"github.com/valyala/fasthttp"
)

const requestTimeout = 10 * time.Second

// Config is the ZaloPay merchant material. Key1 signs outbound
// create-order requests, Key2 authenticates inbound callbacks.
type Config struct {
	AppID       string
	Key1        string
	Key2        string
	Endpoint    string
	CallbackURL string
	ReturnURL   string
}

type ZaloPay struct {
	cfg Config
}

func New(cfg Config) *ZaloPay {
	return &ZaloPay{cfg: cfg}
}

func (z *ZaloPay) Init() error {
	if z.cfg.AppID == "" || z.cfg.Key1 == "" || z.cfg.Key2 == "" {
		log.Printf("[ZaloPay] missing credentials, channel will reject requests")
	}
	return nil
}

func (z *ZaloPay) Name() string {
	return string(models.PaymentMethodZaloPay)
}

type createResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
	OrderURL      string `json:"order_url"`
	ZPTransToken  string `json:"zp_trans_token"`
}

// Initiate calls the ZaloPay create-order API and returns the order
// URL the customer is redirected to. The generated app_trans_id comes
// back as ProviderRef and becomes the payment's transaction id.
func (z *ZaloPay) Initiate(ctx context.Context, order *models.Order, opts types.InitiateOptions) (*types.InitiationResult, error) {
	appTransID := z.newAppTransID()
	appTime := time.Now().UnixMilli()
	// ZaloPay amounts are whole VND.
	amount := order.TotalMinorUnits() / 100

	embedData, _ := json.Marshal(map[string]string{"redirecturl": z.cfg.ReturnURL})
	item := "[]"

	form := url.Values{}
	form.Set("app_id", z.cfg.AppID)
	form.Set("app_user", fmt.Sprintf("user_%d", order.UserID))
	form.Set("app_time", cast.ToString(appTime))
	form.Set("app_trans_id", appTransID)
	form.Set("amount", cast.ToString(amount))
	form.Set("embed_data", string(embedData))
	form.Set("item", item)
	form.Set("description", fmt.Sprintf("Payment for order #%d", order.ID))
	form.Set("callback_url", z.cfg.CallbackURL)

	// mac = HMAC-SHA256(key1, app_id|app_trans_id|app_user|amount|app_time|embed_data|item)
	macData := strings.Join([]string{
		z.cfg.AppID, appTransID, form.Get("app_user"),
		cast.ToString(amount), cast.ToString(appTime),
		string(embedData), item,
	}, "|")
	form.Set("mac", z.sign(z.cfg.Key1, macData))

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(z.cfg.Endpoint)
	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBodyString(form.Encode())

	if err := fasthttp.DoTimeout(req, resp, requestTimeout); err != nil {
		return nil, fmt.Errorf("zalopay create order: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("zalopay create order: status %d", resp.StatusCode())
	}

	var out createResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("zalopay create order: %w", err)
	}
	if out.ReturnCode != 1 {
		log.Printf("[ZaloPay] create order rejected: code=%d message=%s", out.ReturnCode, out.ReturnMessage)
		return nil, apperrors.New("payment.provider_rejected", out.ReturnMessage, 400)
	}

	return &types.InitiationResult{
		ProviderRef: appTransID,
		RedirectURL: out.OrderURL,
		ClientArgs: map[string]interface{}{
			"zp_trans_token": out.ZPTransToken,
		},
		Message: "Please complete payment on ZaloPay",
	}, nil
}

// VerifyNotification authenticates a ZaloPay callback: payload carries
// `data` (a JSON string) and `mac` = HMAC-SHA256(key2, data). ZaloPay
// only calls back for successful payments, so a verified callback is
// a completed one.
func (z *ZaloPay) VerifyNotification(payload map[string]string) (*types.VerifiedEvent, error) {
	data, okData := payload["data"]
	mac, okMac := payload["mac"]
	if !okData || !okMac || data == "" || mac == "" {
		return nil, apperrors.ErrInvalidNotification
	}
	if !hmac.Equal([]byte(z.sign(z.cfg.Key2, data)), []byte(mac)) {
		return nil, apperrors.ErrInvalidSignature
	}

	var body struct {
		AppTransID string `json:"app_trans_id"`
		Amount     int64  `json:"amount"`
	}
	if err := json.Unmarshal([]byte(data), &body); err != nil {
		return nil, apperrors.ErrInvalidNotification
	}
	if body.AppTransID == "" {
		return nil, apperrors.ErrInvalidNotification
	}

	return &types.VerifiedEvent{
		Provider:      z.Name(),
		TransactionID: body.AppTransID,
		Amount:        body.Amount * 100,
		RawStatus:     "1",
	}, nil
}

// VerifyReturn authenticates the browser redirect query. ZaloPay
// signs it with key2 over a fixed field order, separately from the
// server callback scheme.
func (z *ZaloPay) VerifyReturn(params map[string]string) (*types.VerifiedEvent, error) {
	checksum := params["checksum"]
	if checksum == "" || params["apptransid"] == "" {
		return nil, apperrors.ErrInvalidNotification
	}
	data := strings.Join([]string{
		params["appid"], params["apptransid"], params["pmcid"],
		params["bankcode"], params["amount"], params["discountamount"], params["status"],
	}, "|")
	if !hmac.Equal([]byte(z.sign(z.cfg.Key2, data)), []byte(checksum)) {
		return nil, apperrors.ErrInvalidSignature
	}
	return &types.VerifiedEvent{
		Provider:      z.Name(),
		TransactionID: params["apptransid"],
		Amount:        cast.ToInt64(params["amount"]) * 100,
		RawStatus:     params["status"],
	}, nil
}

// TranslateStatus maps ZaloPay's return/status codes: 1 success,
// 2 failed, 3 processing.
func (z *ZaloPay) TranslateStatus(providerStatus string) types.Status {
	switch providerStatus {
	case "1":
		return types.StatusCompleted
	case "2":
		return types.StatusFailed
	case "3":
		return types.StatusPending
	default:
		return types.StatusUnknown
	}
}

func (z *ZaloPay) sign(key, data string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// newAppTransID builds the yymmdd_xxxxxx id format ZaloPay requires;
// the date prefix must be the provider's notion of today.
func (z *ZaloPay) newAppTransID() string {
	return fmt.Sprintf("%s_%d%04d", time.Now().Format("060102"), time.Now().UnixMilli()%1e9, rand.Intn(10000))
}
