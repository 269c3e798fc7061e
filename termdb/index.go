// index.go -- TermIndexWriter/Reader (component F): (field, term) ->
// term-stats, keyed by a persisted field-name -> u16 id map.
//
// (c) Sudhi Herle 2018
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package termdb

import (
	"fmt"

	ohash "github.com/opencoff/go-ohash"
	"github.com/opencoff/go-ohash/blob"
)

// TermIndexWriter builds the term dictionary: an ordered hash table whose
// keys are `u16 field_id || utf8(term)` and whose values are encoded
// TermInfo records, composed over the coded layer via termIndexCodec.
// Field names are assigned sequential ids as they are first seen and
// persisted as a blob between the ordered trailer and the final header.
type TermIndexWriter struct {
	cw     *ohash.CodedOrderedWriter
	fields *fieldIDMap
}

// NewTermIndexWriter prepares f to receive strictly-increasing
// (field, term) keys.
func NewTermIndexWriter(f ohash.File, opts ...ohash.WriterOption) (*TermIndexWriter, error) {
	ow, err := ohash.NewOrderedHashWriter(f, opts...)
	if err != nil {
		return nil, err
	}
	fields := newFieldIDMap()
	cw := ohash.NewCodedOrderedWriter(ow, termIndexCodec{fields: fields})
	return &TermIndexWriter{cw: cw, fields: fields}, nil
}

// Add stores ti under (field, term). Callers are responsible for
// presenting keys in strictly increasing byte order across field ids and
// terms, same as the underlying ordered writer.
func (w *TermIndexWriter) Add(field, term string, ti *TermInfo) error {
	return w.cw.AddCoded(TermKey{Field: field, Term: term}, ti)
}

// Close persists the field-name map (as a blob, between the ordered
// trailer and the header) and commits the file.
func (w *TermIndexWriter) Close() error {
	return w.cw.CloseWithTrailer(func() error {
		enc, err := blob.Encode(w.fields.byID)
		if err != nil {
			return err
		}
		return w.cw.WriteRaw(enc)
	})
}

// Abort discards the writer without committing anything.
func (w *TermIndexWriter) Abort() { w.cw.Abort() }

// TermIndexReader opens a term index for lookups.
type TermIndexReader struct {
	cr     *ohash.CodedOrderedReader
	fields *fieldNameTable
}

// NewTermIndexReader opens f for (field, term) lookups.
func NewTermIndexReader(f ohash.File, opts ...ohash.ReaderOption) (*TermIndexReader, error) {
	or, err := ohash.NewOrderedHashReader(f, opts...)
	if err != nil {
		return nil, err
	}

	raw, err := or.ReadTrailingBlob()
	if err != nil {
		return nil, err
	}
	var names map[uint16]string
	if err := blob.Decode(raw, &names); err != nil {
		return nil, fmt.Errorf("termdb: decode field-name map: %w", err)
	}

	fields := newFieldNameTable(names)
	cr := ohash.NewCodedOrderedReader(or, termIndexCodec{fields: fields})
	return &TermIndexReader{cr: cr, fields: fields}, nil
}

// Get returns the TermInfo stored for (field, term).
func (r *TermIndexReader) Get(field, term string) (*TermInfo, error) {
	v, err := r.cr.GetCoded(TermKey{Field: field, Term: term})
	if err != nil {
		return nil, err
	}
	return v.(*TermInfo), nil
}

// Frequency returns the term's total weight without decoding the rest of
// its TermInfo.
func (r *TermIndexReader) Frequency(field, term string) (float32, error) {
	key := encodeTermKey(r.fields.id(field), term)
	rg, err := r.cr.RangeForKey(key)
	if err != nil {
		return 0, err
	}
	return ReadWeight(r.cr.GetFloat32At, rg.Pos)
}

// DocFrequency returns the term's document frequency without decoding the
// rest of its TermInfo.
func (r *TermIndexReader) DocFrequency(field, term string) (uint32, error) {
	key := encodeTermKey(r.fields.id(field), term)
	rg, err := r.cr.RangeForKey(key)
	if err != nil {
		return 0, err
	}
	return ReadDocFreq(r.cr.GetUint32At, rg.Pos)
}

// Items decodes every (field, term) -> TermInfo pair, in insertion order.
func (r *TermIndexReader) Items() ([]TermKey, []*TermInfo, error) {
	raw, err := r.cr.Items()
	if err != nil {
		return nil, nil, err
	}
	keys := make([]TermKey, len(raw))
	vals := make([]*TermInfo, len(raw))
	for i, kv := range raw {
		k, err := r.cr.Codec.DecodeKey(kv[0])
		if err != nil {
			return nil, nil, err
		}
		v, err := r.cr.Codec.DecodeValue(kv[1])
		if err != nil {
			return nil, nil, err
		}
		keys[i] = k.(TermKey)
		vals[i] = v.(*TermInfo)
	}
	return keys, vals, nil
}

// Close releases the underlying reader.
func (r *TermIndexReader) Close() error { return r.cr.Close() }
