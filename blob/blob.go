// Package blob is the "pluggable serializer" spec.md §9.2 calls for in
// place of the original implementation's pickle: a small, opaque,
// self-describing binary encoding for the handful of structured values this
// store persists inline -- field-name maps, per-document stored-field
// lists, and inline posting tuples. It wraps
// github.com/fxamacker/cbor/v2, the same "encode a small Go value to a
// compact blob" idiom used elsewhere in the retrieved pack (see
// ipld/ipldbindcode/cbor.go's encodeCBOR/decodeCBOR).
package blob

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var encMode = func() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err) // CanonicalEncOptions() is always a valid EncMode
	}
	return m
}()

// Encode serializes v to a self-describing byte blob.
func Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := encMode.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("blob: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes b into v (a pointer).
func Decode(b []byte, v interface{}) error {
	if err := cbor.Unmarshal(b, v); err != nil {
		return fmt.Errorf("blob: decode: %w", err)
	}
	return nil
}
