// codec.go -- ohash.Codec implementations for TermIndex and TermVector,
// wiring both tables through the ordered coded layer instead of hand-
// rolling key encode/decode against the raw ordered hash table.
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
	"encoding/binary"
	"fmt"
)

// TermKey identifies one (field, term) pair.
type TermKey struct {
	Field string
	Term  string
}

// vectorKey identifies one (docnum, field) pair.
type vectorKey struct {
	docnum uint32
	field  string
}

// fieldResolver turns field names into the persisted u16 ids the on-disk
// key encoding uses, and back. *fieldIDMap (write side) assigns new ids as
// fields are first seen; *fieldNameTable (read side) is the persisted,
// immutable result.
type fieldResolver interface {
	id(field string) uint16
	name(id uint16) string
}

func encodeTermKey(fieldID uint16, term string) []byte {
	buf := make([]byte, 2+len(term))
	binary.BigEndian.PutUint16(buf[0:2], fieldID)
	copy(buf[2:], term)
	return buf
}

func encodeVectorKey(docnum uint32, fieldID uint16) []byte {
	var buf [6]byte
	binary.BigEndian.PutUint32(buf[0:4], docnum)
	binary.BigEndian.PutUint16(buf[4:6], fieldID)
	return buf[:]
}

// termIndexCodec implements ohash.Codec for TermKey -> *TermInfo.
type termIndexCodec struct {
	fields fieldResolver
}

func (c termIndexCodec) EncodeKey(key interface{}) ([]byte, error) {
	tk := key.(TermKey)
	return encodeTermKey(c.fields.id(tk.Field), tk.Term), nil
}

func (c termIndexCodec) DecodeKey(b []byte) (interface{}, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("termdb: truncated term key")
	}
	fieldID := binary.BigEndian.Uint16(b[0:2])
	return TermKey{Field: c.fields.name(fieldID), Term: string(b[2:])}, nil
}

func (termIndexCodec) EncodeValue(value interface{}) ([]byte, error) {
	return value.(*TermInfo).ToString()
}

func (termIndexCodec) DecodeValue(b []byte) (interface{}, error) {
	return FromString(b)
}

// termVectorCodec implements ohash.Codec for vectorKey -> offset (int64).
type termVectorCodec struct {
	fields fieldResolver
}

func (c termVectorCodec) EncodeKey(key interface{}) ([]byte, error) {
	vk := key.(vectorKey)
	return encodeVectorKey(vk.docnum, c.fields.id(vk.field)), nil
}

func (c termVectorCodec) DecodeKey(b []byte) (interface{}, error) {
	if len(b) < 6 {
		return nil, fmt.Errorf("termdb: truncated vector key")
	}
	docnum := binary.BigEndian.Uint32(b[0:4])
	fieldID := binary.BigEndian.Uint16(b[4:6])
	return vectorKey{docnum: docnum, field: c.fields.name(fieldID)}, nil
}

func (termVectorCodec) EncodeValue(value interface{}) ([]byte, error) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(value.(int64)))
	return buf[:], nil
}

func (termVectorCodec) DecodeValue(b []byte) (interface{}, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("termdb: truncated vector offset")
	}
	return int64(binary.BigEndian.Uint64(b[:8])), nil
}
