package payments

import (
	"context"
	"sort"

	"github.com/ngduyd/ecommerce-payments/pkg/models"
	"github.com/ngduyd/ecommerce-payments/pkg/payments/types"
)

// Provider encapsulates one external payment channel. Adapters talk to
// the provider and verify its notifications; they never touch the
// payment ledger.
type Provider interface {
	// Init prepares provider resources (clients, keys). Called once at
	// startup.
	Init() error

	// Name returns the channel name, matching models.PaymentMethod.
	Name() string

	// Initiate builds the provider-specific payment request for the
	// order: a redirect URL, a checkout session, or nothing at all for
	// cash on delivery.
	Initiate(ctx context.Context, order *models.Order, opts types.InitiateOptions) (*types.InitiationResult, error)

	// VerifyNotification authenticates an inbound notification
	// payload. Fails closed: a missing field or a bad signature is an
	// error, never a best-effort pass.
	VerifyNotification(payload map[string]string) (*types.VerifiedEvent, error)

	// TranslateStatus maps the provider's status vocabulary onto the
	// canonical one.
	TranslateStatus(providerStatus string) types.Status
}

var providers map[string]Provider

// Register installs the channel set and initializes each one.
func Register(list ...Provider) error {
	providers = make(map[string]Provider, len(list))
	for _, p := range list {
		if err := p.Init(); err != nil {
			return err
		}
		providers[p.Name()] = p
	}
	return nil
}

// Get returns the named channel, nil when unknown.
func Get(channel string) Provider {
	return providers[channel]
}

// AvailableChannels lists the registered channel names, sorted.
func AvailableChannels() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
