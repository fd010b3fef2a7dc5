package hashid

import (
	"fmt"
	"strings"

	"github.com/speps/go-hashids/v2"
)

// Type is a prefixed hashid namespace. Each entity family gets its own
// salt so ids from different tables never collide or decode across
// namespaces.
type Type struct {
	prefix string
	h      *hashids.HashID
}

// NewType builds a hashid namespace. Panics on bad alphabet setup,
// which only happens at init time.
func NewType(prefix, salt string, minLength int) *Type {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = minLength
	h, err := hashids.NewWithData(hd)
	if err != nil {
		panic(fmt.Sprintf("hashid: invalid namespace %q: %v", salt, err))
	}
	return &Type{prefix: prefix, h: h}
}

// Encode turns a database id into its public reference.
func Encode(t *Type, id uint) string {
	s, err := t.h.Encode([]int{int(id)})
	if err != nil {
		// Encode only fails on negative input, impossible for uint.
		return ""
	}
	return t.prefix + s
}

// Decode turns a public reference back into the database id.
func Decode(t *Type, value string) (uint, error) {
	if !strings.HasPrefix(value, t.prefix) {
		return 0, fmt.Errorf("hashid: %q is not a %q reference", value, t.prefix)
	}
	ids, err := t.h.DecodeWithError(strings.TrimPrefix(value, t.prefix))
	if err != nil {
		return 0, err
	}
	if len(ids) != 1 || ids[0] < 0 {
		return 0, fmt.Errorf("hashid: %q does not decode to a single id", value)
	}
	return uint(ids[0]), nil
}
