// Package codec provides pluggable value serialization for scopecache.
package codec

// Codec encodes/decodes values V to []byte for backend storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
