package config

import "os"

// AppConfig holds every external collaborator secret the payment
// subsystems need. Values are opaque here; each provider adapter knows
// how to use its own section.
type AppConfig struct {
	HTTP struct {
		Listen  string
		BaseURL string
	}

	Database struct {
		DSN string
	}

	ZaloPay struct {
		AppID       string
		Key1        string
		Key2        string
		Endpoint    string
		CallbackURL string
		ReturnURL   string
	}

	VNPay struct {
		TmnCode    string
		HashSecret string
		PayURL     string
		ReturnURL  string
	}

	Stripe struct {
		SecretKey     string
		WebhookSecret string
		SuccessURL    string
		CancelURL     string
	}

	AWS struct {
		Region      string
		AccessKey   string
		Secret      string
		SQSQueueURL string
	}
}

var Config *AppConfig

// Load reads the configuration from environment variables. Sandbox
// endpoints are the defaults so a fresh checkout talks to provider
// sandboxes, never production.
func Load() *AppConfig {
	cfg := &AppConfig{}

	cfg.HTTP.Listen = getenv("HTTP_LISTEN", ":8080")
	cfg.HTTP.BaseURL = getenv("APP_BASE_URL", "http://localhost:8080")

	cfg.Database.DSN = getenv("DATABASE_DSN",
		"ecommerce:ecommerce@tcp(127.0.0.1:3306)/ecommerce?charset=utf8mb4&parseTime=True&loc=Local")

	cfg.ZaloPay.AppID = os.Getenv("ZALOPAY_APP_ID")
	cfg.ZaloPay.Key1 = os.Getenv("ZALOPAY_KEY1")
	cfg.ZaloPay.Key2 = os.Getenv("ZALOPAY_KEY2")
	cfg.ZaloPay.Endpoint = getenv("ZALOPAY_ENDPOINT", "https://sb-openapi.zalopay.vn/v2/create")
	cfg.ZaloPay.CallbackURL = getenv("ZALOPAY_CALLBACK_URL", cfg.HTTP.BaseURL+"/payment/callback")
	cfg.ZaloPay.ReturnURL = getenv("ZALOPAY_RETURN_URL", cfg.HTTP.BaseURL+"/payment/return")

	cfg.VNPay.TmnCode = os.Getenv("VNPAY_TMN_CODE")
	cfg.VNPay.HashSecret = os.Getenv("VNPAY_HASH_SECRET")
	cfg.VNPay.PayURL = getenv("VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html")
	cfg.VNPay.ReturnURL = getenv("VNPAY_RETURN_URL", cfg.HTTP.BaseURL+"/payment/return")

	cfg.Stripe.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
	cfg.Stripe.WebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	cfg.Stripe.SuccessURL = getenv("STRIPE_SUCCESS_URL", cfg.HTTP.BaseURL+"/payment/return")
	cfg.Stripe.CancelURL = getenv("STRIPE_CANCEL_URL", cfg.HTTP.BaseURL+"/payment/return")

	cfg.AWS.Region = os.Getenv("AWS_REGION")
	cfg.AWS.AccessKey = os.Getenv("AWS_ACCESS_KEY")
	cfg.AWS.Secret = os.Getenv("AWS_SECRET")
	cfg.AWS.SQSQueueURL = os.Getenv("PAYMENT_SQS_QUEUE_URL")

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
