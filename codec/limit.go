package codec

import "fmt"

// Limit wraps another codec and rejects oversized payloads at Decode time
// without invoking the inner codec. Encode passes through unchanged.
// MaxDecode <= 0 disables the check.
//
// Typical use: guard against oversized entries coming from a shared backend.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxDecode int // maximum permitted payload length in bytes
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
