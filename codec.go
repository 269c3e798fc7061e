// codec.go -- the coded layer: a key/value codec composed over the
// hash-table writer/reader types.
//
// The original implementation gets this by subclassing HashWriter /
// HashReader and overriding add/__getitem__/etc. Go has no implementation
// inheritance, and the original's own design notes (spec.md §9) call for
// composition instead: a Codec supplies encode/decode, and a thin wrapper
// applies it around the otherwise-unmodified Writer/Reader.
//
// (c) Sudhi Herle 2018
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package ohash

// Codec transcodes application-level keys/values to and from the raw
// byte strings the hash table stores. TermIndex, TermVector, and any
// other coded table implement this.
type Codec interface {
	EncodeKey(key interface{}) ([]byte, error)
	DecodeKey(b []byte) (interface{}, error)
	EncodeValue(value interface{}) ([]byte, error)
	DecodeValue(b []byte) (interface{}, error)
}

// CodedWriter wraps a HashWriter with a Codec.
type CodedWriter struct {
	*HashWriter
	Codec Codec
}

// NewCodedWriter wraps w with codec.
func NewCodedWriter(w *HashWriter, codec Codec) *CodedWriter {
	return &CodedWriter{HashWriter: w, Codec: codec}
}

// AddCoded encodes key/value with the codec and appends the result.
func (w *CodedWriter) AddCoded(key, value interface{}) error {
	k, err := w.Codec.EncodeKey(key)
	if err != nil {
		return err
	}
	v, err := w.Codec.EncodeValue(value)
	if err != nil {
		return err
	}
	return w.HashWriter.Add(k, v)
}

// CodedReader wraps a HashReader with a Codec.
type CodedReader struct {
	*HashReader
	Codec Codec
}

// NewCodedReader wraps r with codec.
func NewCodedReader(r *HashReader, codec Codec) *CodedReader {
	return &CodedReader{HashReader: r, Codec: codec}
}

// GetCoded decodes and returns the first value matching key.
func (r *CodedReader) GetCoded(key interface{}) (interface{}, error) {
	k, err := r.Codec.EncodeKey(key)
	if err != nil {
		return nil, err
	}
	v, err := r.HashReader.Get(k)
	if err != nil {
		return nil, err
	}
	return r.Codec.DecodeValue(v)
}

// ContainsCoded reports whether key has at least one record.
func (r *CodedReader) ContainsCoded(key interface{}) (bool, error) {
	k, err := r.Codec.EncodeKey(key)
	if err != nil {
		return false, err
	}
	return r.HashReader.Contains(k)
}

// ItemsCoded returns every decoded (key, value) pair in insertion order.
func (r *CodedReader) ItemsCoded() ([][2]interface{}, error) {
	raw, err := r.HashReader.Items()
	if err != nil {
		return nil, err
	}
	out := make([][2]interface{}, len(raw))
	for i, kv := range raw {
		k, err := r.Codec.DecodeKey(kv[0])
		if err != nil {
			return nil, err
		}
		v, err := r.Codec.DecodeValue(kv[1])
		if err != nil {
			return nil, err
		}
		out[i] = [2]interface{}{k, v}
	}
	return out, nil
}

// CodedOrderedWriter wraps an OrderedHashWriter with a Codec.
type CodedOrderedWriter struct {
	*OrderedHashWriter
	Codec Codec
}

// NewCodedOrderedWriter wraps w with codec.
func NewCodedOrderedWriter(w *OrderedHashWriter, codec Codec) *CodedOrderedWriter {
	return &CodedOrderedWriter{OrderedHashWriter: w, Codec: codec}
}

// AddCoded encodes key/value with the codec and appends the result. The
// encoded key must strictly increase over the previously added encoded
// key (OrderedHashWriter.Add enforces this).
func (w *CodedOrderedWriter) AddCoded(key, value interface{}) error {
	k, err := w.Codec.EncodeKey(key)
	if err != nil {
		return err
	}
	v, err := w.Codec.EncodeValue(value)
	if err != nil {
		return err
	}
	return w.OrderedHashWriter.Add(k, v)
}

// CodedOrderedReader wraps an OrderedHashReader with a Codec.
type CodedOrderedReader struct {
	*OrderedHashReader
	Codec Codec
}

// NewCodedOrderedReader wraps r with codec.
func NewCodedOrderedReader(r *OrderedHashReader, codec Codec) *CodedOrderedReader {
	return &CodedOrderedReader{OrderedHashReader: r, Codec: codec}
}

// GetCoded decodes and returns the first value matching key.
func (r *CodedOrderedReader) GetCoded(key interface{}) (interface{}, error) {
	k, err := r.Codec.EncodeKey(key)
	if err != nil {
		return nil, err
	}
	v, err := r.OrderedHashReader.Get(k)
	if err != nil {
		return nil, err
	}
	return r.Codec.DecodeValue(v)
}

// ItemsFromCoded returns every decoded (key, value) pair with key >=
// from, ascending.
func (r *CodedOrderedReader) ItemsFromCoded(from interface{}) ([][2]interface{}, error) {
	fk, err := r.Codec.EncodeKey(from)
	if err != nil {
		return nil, err
	}
	raw, err := r.OrderedHashReader.ItemsFrom(fk)
	if err != nil {
		return nil, err
	}
	out := make([][2]interface{}, len(raw))
	for i, kv := range raw {
		k, err := r.Codec.DecodeKey(kv[0])
		if err != nil {
			return nil, err
		}
		v, err := r.Codec.DecodeValue(kv[1])
		if err != nil {
			return nil, err
		}
		out[i] = [2]interface{}{k, v}
	}
	return out, nil
}

// KeysFromCoded returns every decoded key >= from, ascending.
func (r *CodedOrderedReader) KeysFromCoded(from interface{}) ([]interface{}, error) {
	fk, err := r.Codec.EncodeKey(from)
	if err != nil {
		return nil, err
	}
	raw, err := r.OrderedHashReader.KeysFrom(fk)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(raw))
	for i, k := range raw {
		dk, err := r.Codec.DecodeKey(k)
		if err != nil {
			return nil, err
		}
		out[i] = dk
	}
	return out, nil
}
