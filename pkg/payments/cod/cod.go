package cod

import (
	"context"

	"github.com/ngduyd/ecommerce-payments/pkg/models"
	apperrors "github.com/ngduyd/ecommerce-payments/pkg/errors"
	"github.com/ngduyd/ecommerce-payments/pkg/payments/types"
)

// COD is cash on delivery: no external provider, no redirect. The
// dispatcher confirms the order at creation time; the payment itself
// settles when the courier collects.
type COD struct{}

func (c *COD) Init() error {
	return nil
}

func (c *COD) Name() string {
	return string(models.PaymentMethodCOD)
}

func (c *COD) Initiate(ctx context.Context, order *models.Order, opts types.InitiateOptions) (*types.InitiationResult, error) {
	return &types.InitiationResult{
		Message: "Cash on delivery, no payment URL",
	}, nil
}

// VerifyNotification always rejects: cash on delivery has no inbound
// notifications, so anything arriving here is spoofed.
func (c *COD) VerifyNotification(payload map[string]string) (*types.VerifiedEvent, error) {
	return nil, apperrors.ErrInvalidNotification
}

func (c *COD) TranslateStatus(providerStatus string) types.Status {
	return types.StatusUnknown
}
