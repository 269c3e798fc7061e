// Package stored implements the stored-fields table (component H): an
// array of variable-length serialized document field-value lists,
// indexed by document number.
//
// (c) Sudhi Herle 2018
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.
package stored

import (
	"fmt"
	"sort"

	ohash "github.com/opencoff/go-ohash"
	"github.com/opencoff/go-ohash/blob"
)

const headerSize = 8 + 4  // directory_offset i64 + length u32
const dirEntrySize = 8 + 4 // offset i64 + byte_length u32

// record is the per-document payload: a positional vector sized to the
// field-name map known at write time, plus (name, value) pairs for any
// field not in that map.
type record struct {
	Values []interface{}   `cbor:"v"`
	Extra  [][]interface{} `cbor:"e,omitempty"`
}

type direntry struct {
	offset int64
	length uint32
}

// Writer builds a stored-fields table. Field names known up front get a
// positional slot; names presented to Append that weren't declared are
// carried as dynamic (name, value) tail pairs.
type Writer struct {
	f          ohash.File
	fieldNames []string
	positions  map[string]int
	dir        []direntry
	pos        int64
	closed     bool
}

// NewWriter reserves the 12-byte header and prepares f to receive
// per-document field-value lists for the declared fieldNames.
func NewWriter(f ohash.File, fieldNames []string) (*Writer, error) {
	if err := f.Seek(headerSize); err != nil {
		return nil, err
	}
	positions := make(map[string]int, len(fieldNames))
	for i, name := range fieldNames {
		positions[name] = i
	}
	return &Writer{f: f, fieldNames: fieldNames, positions: positions, pos: headerSize}, nil
}

// Append serializes one document's field values and records its
// directory entry. A nil/missing value in a declared field is recorded
// as an unset slot; unknown field names become dynamic tail pairs,
// emitted in sorted order for deterministic output.
func (w *Writer) Append(values map[string]interface{}) error {
	if w.closed {
		return ohash.ErrFrozen
	}

	vec := make([]interface{}, len(w.fieldNames))
	var extraKeys []string
	for k := range values {
		if _, ok := w.positions[k]; !ok {
			extraKeys = append(extraKeys, k)
		}
	}
	sort.Strings(extraKeys)

	for name, idx := range w.positions {
		if v, ok := values[name]; ok {
			vec[idx] = v
		}
	}

	var extra [][]interface{}
	for _, k := range extraKeys {
		extra = append(extra, []interface{}{k, values[k]})
	}

	enc, err := blob.Encode(record{Values: vec, Extra: extra})
	if err != nil {
		return fmt.Errorf("stored: encode document: %w", err)
	}

	n, err := w.f.Write(enc)
	if err != nil {
		return err
	}
	w.dir = append(w.dir, direntry{offset: w.pos, length: uint32(n)})
	w.pos += int64(n)
	return nil
}

// Close writes the field-name map, the directory, then seeks back and
// writes the header, and commits the file.
func (w *Writer) Close() error {
	if w.closed {
		return ohash.ErrFrozen
	}
	w.closed = true

	dirOffset := w.pos
	enc, err := blob.Encode(w.positions)
	if err != nil {
		return fmt.Errorf("stored: encode field-name map: %w", err)
	}
	if err := w.f.WriteString(enc); err != nil {
		return err
	}

	for _, d := range w.dir {
		if err := w.f.WriteInt64(d.offset); err != nil {
			return err
		}
		if err := w.f.WriteUint32(d.length); err != nil {
			return err
		}
	}

	if err := w.f.Seek(0); err != nil {
		return err
	}
	if err := w.f.WriteInt64(dirOffset); err != nil {
		return err
	}
	if err := w.f.WriteUint32(uint32(len(w.dir))); err != nil {
		return err
	}

	return ohash.Commit(w.f)
}

// Abort discards the writer without committing anything.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	ohash.Abort(w.f)
}

// Reader opens a stored-fields table for positional lookups.
type Reader struct {
	f         ohash.File
	names     map[string]int
	dirBase   int64
	length    uint32
	closed    bool
}

// NewReader opens f for Get lookups.
func NewReader(f ohash.File) (*Reader, error) {
	if err := f.Seek(0); err != nil {
		return nil, err
	}
	dirOffset, err := f.ReadInt64()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ohash.ErrBadFormat, err)
	}
	length, err := f.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ohash.ErrBadFormat, err)
	}

	if err := f.Seek(dirOffset); err != nil {
		return nil, err
	}
	raw, err := f.ReadString()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ohash.ErrBadFormat, err)
	}
	var names map[string]int
	if err := blob.Decode(raw, &names); err != nil {
		return nil, fmt.Errorf("stored: decode field-name map: %w", err)
	}
	base, err := f.Tell()
	if err != nil {
		return nil, err
	}

	return &Reader{f: f, names: names, dirBase: base, length: length}, nil
}

// Len returns the number of stored documents.
func (r *Reader) Len() int { return int(r.length) }

func (r *Reader) entryAt(docnum uint32) (int64, uint32, error) {
	pos := r.dirBase + int64(docnum)*dirEntrySize
	off, err := r.f.GetInt64(pos)
	if err != nil {
		return 0, 0, err
	}
	ln, err := r.f.GetUint32(pos + 8)
	if err != nil {
		return 0, 0, err
	}
	return off, ln, nil
}

// Get returns the field-value mapping stored for docnum, or
// ohash.ErrOutOfRange if docnum is not a valid document number.
func (r *Reader) Get(docnum uint32) (map[string]interface{}, error) {
	if r.closed {
		return nil, ohash.ErrClosed
	}
	if docnum >= r.length {
		return nil, ohash.ErrOutOfRange
	}

	off, ln, err := r.entryAt(docnum)
	if err != nil {
		return nil, err
	}
	raw, err := r.f.ReadAt(off, int(ln))
	if err != nil {
		return nil, err
	}

	var rec record
	if err := blob.Decode(raw, &rec); err != nil {
		return nil, fmt.Errorf("stored: decode document %d: %w", docnum, err)
	}

	out := make(map[string]interface{}, len(r.names)+len(rec.Extra))
	for name, idx := range r.names {
		if idx < len(rec.Values) && rec.Values[idx] != nil {
			out[name] = rec.Values[idx]
		}
	}
	for _, kv := range rec.Extra {
		if len(kv) != 2 {
			continue
		}
		if name, ok := kv[0].(string); ok {
			out[name] = kv[1]
		}
	}
	return out, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r.closed {
		return ohash.ErrClosed
	}
	r.closed = true
	return r.f.Close()
}
