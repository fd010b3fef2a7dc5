package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPaymentStatusValid(t *testing.T) {
	require.True(t, PaymentStatusPending.Valid())
	require.True(t, PaymentStatusCompleted.Valid())
	require.True(t, PaymentStatusFailed.Valid())
	require.True(t, PaymentStatusRefunded.Valid())
	require.False(t, PaymentStatus("paid").Valid())
	require.False(t, PaymentStatus("").Valid())
}

func TestPaymentStatusTransitions(t *testing.T) {
	require.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusCompleted))
	require.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusFailed))
	require.True(t, PaymentStatusCompleted.CanTransitionTo(PaymentStatusRefunded))
	require.True(t, PaymentStatusCompleted.CanTransitionTo(PaymentStatusCompleted))

	require.False(t, PaymentStatusCompleted.CanTransitionTo(PaymentStatusFailed))
	require.False(t, PaymentStatusCompleted.CanTransitionTo(PaymentStatusPending))
	require.False(t, PaymentStatusFailed.CanTransitionTo(PaymentStatusCompleted))
	require.False(t, PaymentStatusRefunded.CanTransitionTo(PaymentStatusPending))
	require.False(t, PaymentStatusPending.CanTransitionTo(PaymentStatusRefunded))
}

func TestPaymentStatusIsTerminal(t *testing.T) {
	require.True(t, PaymentStatusCompleted.IsTerminal())
	require.True(t, PaymentStatusRefunded.IsTerminal())
	require.False(t, PaymentStatusPending.IsTerminal())
	require.False(t, PaymentStatusFailed.IsTerminal())
}

func TestPaymentMethodValid(t *testing.T) {
	require.True(t, PaymentMethodCOD.Valid())
	require.True(t, PaymentMethodZaloPay.Valid())
	require.True(t, PaymentMethodVNPay.Valid())
	require.True(t, PaymentMethodStripe.Valid())
	require.False(t, PaymentMethod("paypal").Valid())
}

func TestPaymentActive(t *testing.T) {
	require.True(t, (&Payment{Status: PaymentStatusPending}).Active())
	require.True(t, (&Payment{Status: PaymentStatusCompleted}).Active())
	require.False(t, (&Payment{Status: PaymentStatusFailed}).Active())
	require.False(t, (&Payment{Status: PaymentStatusRefunded}).Active())
}

func TestOrderTotalMinorUnits(t *testing.T) {
	order := &Order{TotalPrice: decimal.NewFromFloat(149.99)}
	require.Equal(t, int64(14999), order.TotalMinorUnits())

	order = &Order{TotalPrice: decimal.NewFromInt(150)}
	require.Equal(t, int64(15000), order.TotalMinorUnits())
}
