package types

// Status is the canonical vocabulary providers are translated into.
// Unknown means the provider said something this system does not act
// on; it is never treated as success or failure.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPending   Status = "pending"
	StatusUnknown   Status = "unknown"
)

// InitiateOptions carries the per-request knobs a provider may need
// when building its payment request. Unused fields are ignored by
// providers that do not care.
type InitiateOptions struct {
	TransactionID string
	BankCode      string
	OrderType     string
	Locale        string
	ClientIP      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// InitiationResult is what a provider hands back after building its
// payment request. ProviderRef is the provider-side correlation id
// (app_trans_id, payment intent id, checkout session id), empty for
// providers without one.
type InitiationResult struct {
	ProviderRef  string
	RedirectURL  string
	ClientSecret string
	ClientArgs   map[string]interface{}
	Message      string
}

// VerifiedEvent is an inbound notification that passed signature
// verification. Amount is in minor units, zero when the provider did
// not echo one.
type VerifiedEvent struct {
	Provider      string
	TransactionID string
	IntentID      string
	SessionID     string
	Amount        int64
	RawStatus     string
	EventType     string
}
