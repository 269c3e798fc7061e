// vector.go -- TermVectorWriter/Reader (component F): (docnum, field) ->
// offset, sharing the term index's field-id trick via the coded layer.
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
	ohash "github.com/opencoff/go-ohash"
	"github.com/opencoff/go-ohash/blob"
)

// TermVectorWriter builds the (docnum, field) -> offset table: same
// ordered-hash-table-plus-field-map shape as TermIndexWriter, composed
// over the coded layer via termVectorCodec, but with an 8-byte big-endian
// signed offset as the value instead of a TermInfo.
type TermVectorWriter struct {
	cw     *ohash.CodedOrderedWriter
	fields *fieldIDMap
}

// NewTermVectorWriter prepares f to receive strictly-increasing
// (docnum, field) keys.
func NewTermVectorWriter(f ohash.File, opts ...ohash.WriterOption) (*TermVectorWriter, error) {
	ow, err := ohash.NewOrderedHashWriter(f, opts...)
	if err != nil {
		return nil, err
	}
	fields := newFieldIDMap()
	cw := ohash.NewCodedOrderedWriter(ow, termVectorCodec{fields: fields})
	return &TermVectorWriter{cw: cw, fields: fields}, nil
}

// Add records the byte offset of docnum's field vector.
func (w *TermVectorWriter) Add(docnum uint32, field string, offset int64) error {
	return w.cw.AddCoded(vectorKey{docnum: docnum, field: field}, offset)
}

// Close persists the field-name map and commits the file.
func (w *TermVectorWriter) Close() error {
	return w.cw.CloseWithTrailer(func() error {
		enc, err := blob.Encode(w.fields.byID)
		if err != nil {
			return err
		}
		return w.cw.WriteRaw(enc)
	})
}

// Abort discards the writer without committing anything.
func (w *TermVectorWriter) Abort() { w.cw.Abort() }

// TermVectorReader opens a term-vector table for lookups.
type TermVectorReader struct {
	cr     *ohash.CodedOrderedReader
	fields *fieldNameTable
}

// NewTermVectorReader opens f for (docnum, field) lookups.
func NewTermVectorReader(f ohash.File, opts ...ohash.ReaderOption) (*TermVectorReader, error) {
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
		return nil, err
	}

	fields := newFieldNameTable(names)
	cr := ohash.NewCodedOrderedReader(or, termVectorCodec{fields: fields})
	return &TermVectorReader{cr: cr, fields: fields}, nil
}

// Get returns the byte offset stored for (docnum, field).
func (r *TermVectorReader) Get(docnum uint32, field string) (int64, error) {
	v, err := r.cr.GetCoded(vectorKey{docnum: docnum, field: field})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// Close releases the underlying reader.
func (r *TermVectorReader) Close() error { return r.cr.Close() }
