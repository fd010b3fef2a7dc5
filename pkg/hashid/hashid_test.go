package hashid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	typ := NewType("pm-", "payment", 6)

	for _, id := range []uint{1, 42, 99999} {
		encoded := Encode(typ, id)
		require.True(t, len(encoded) >= len("pm-")+6)

		decoded, err := Decode(typ, encoded)
		require.NoError(t, err)
		require.Equal(t, id, decoded)
	}
}

func TestDecodeRejectsWrongPrefix(t *testing.T) {
	typ := NewType("pm-", "payment", 6)

	_, err := Decode(typ, "ord-abcdef")
	require.Error(t, err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	typ := NewType("pm-", "payment", 6)

	_, err := Decode(typ, "pm-!!!")
	require.Error(t, err)
}

func TestNamespacesDoNotCross(t *testing.T) {
	paymentType := NewType("pm-", "payment", 6)
	orderType := NewType("ord-", "order", 6)

	encoded := Encode(paymentType, 7)
	_, err := Decode(orderType, encoded)
	require.Error(t, err)
}
