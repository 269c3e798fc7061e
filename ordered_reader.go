// ordered_reader.go -- OrderedHashReader: binary search over sorted keys
//
// (c) Sudhi Herle 2018
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package ohash

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// OrderedHashReader adds ordered range queries on top of HashReader,
// backed by the sorted payload-offset trailer OrderedHashWriter appends.
type OrderedHashReader struct {
	*HashReader
	length    uint32
	indexBase int64
}

// NewOrderedHashReader opens f for ordered lookups.
func NewOrderedHashReader(f File, opts ...ReaderOption) (*OrderedHashReader, error) {
	hr, err := NewHashReader(f, opts...)
	if err != nil {
		return nil, err
	}

	if err := f.Seek(hr.EndOfHashes()); err != nil {
		return nil, err
	}
	n, err := f.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	base, err := f.Tell()
	if err != nil {
		return nil, err
	}

	return &OrderedHashReader{HashReader: hr, length: n, indexBase: base}, nil
}

// Len returns the number of ordered entries in the trailer.
func (r *OrderedHashReader) Len() int {
	return int(r.length)
}

// ReadTrailingBlob seeks past the offset array and reads one more
// length-prefixed blob, written via OrderedHashWriter.CloseWithTrailer +
// HashWriter.WriteRaw immediately after the ordered trailer. Used by
// termdb.TermIndexReader to recover the persisted field-name map.
func (r *OrderedHashReader) ReadTrailingBlob() ([]byte, error) {
	pos := r.indexBase + int64(r.length)*8
	if err := r.f.Seek(pos); err != nil {
		return nil, err
	}
	return r.f.ReadString()
}

func (r *OrderedHashReader) offsetAt(i uint32) (int64, error) {
	return r.f.GetInt64(r.indexBase + int64(i)*8)
}

func (r *OrderedHashReader) keyAt(pos int64) ([]byte, error) {
	hdr, err := r.read(pos, 4)
	if err != nil {
		return nil, err
	}
	keyLen := int(binary.BigEndian.Uint32(hdr))
	return r.read(pos+lengthsSize, keyLen)
}

// closestOffset returns the payload offset of the smallest stored key >=
// key, or (-1, false) if key is past every stored key.
func (r *OrderedHashReader) closestOffset(key []byte) (int64, bool, error) {
	var readErr error
	lo := sort.Search(int(r.length), func(i int) bool {
		off, err := r.offsetAt(uint32(i))
		if err != nil {
			readErr = err
			return true
		}
		k, err := r.keyAt(off)
		if err != nil {
			readErr = err
			return true
		}
		return bytes.Compare(k, key) >= 0
	})
	if readErr != nil {
		return 0, false, readErr
	}
	if lo == int(r.length) {
		return 0, false, nil
	}
	off, err := r.offsetAt(uint32(lo))
	return off, true, err
}

// ClosestKey returns the smallest stored key >= key, or nil if key is
// past every stored key.
func (r *OrderedHashReader) ClosestKey(key []byte) ([]byte, error) {
	off, ok, err := r.closestOffset(key)
	if err != nil || !ok {
		return nil, err
	}
	return r.keyAt(off)
}

// rangesFrom walks every record from the closest offset >= key onward.
func (r *OrderedHashReader) rangesFrom(key []byte, yield func(recordRange) (bool, error)) error {
	off, ok, err := r.closestOffset(key)
	if err != nil || !ok {
		return err
	}
	return r.ranges(off, yield)
}

// ItemsFrom returns every (key, value) pair with key >= from, ascending.
func (r *OrderedHashReader) ItemsFrom(from []byte) ([][2][]byte, error) {
	var out [][2][]byte
	err := r.rangesFrom(from, func(rr recordRange) (bool, error) {
		k, err := r.read(rr.key.Pos, rr.key.N)
		if err != nil {
			return false, err
		}
		v, err := r.read(rr.value.Pos, rr.value.N)
		if err != nil {
			return false, err
		}
		out = append(out, [2][]byte{k, v})
		return true, nil
	})
	return out, err
}

// KeysFrom returns every key >= from, ascending.
func (r *OrderedHashReader) KeysFrom(from []byte) ([][]byte, error) {
	var out [][]byte
	err := r.rangesFrom(from, func(rr recordRange) (bool, error) {
		k, err := r.read(rr.key.Pos, rr.key.N)
		if err != nil {
			return false, err
		}
		out = append(out, k)
		return true, nil
	})
	return out, err
}

// ValuesFrom returns every value whose key is >= from, ascending.
func (r *OrderedHashReader) ValuesFrom(from []byte) ([][]byte, error) {
	var out [][]byte
	err := r.rangesFrom(from, func(rr recordRange) (bool, error) {
		v, err := r.read(rr.value.Pos, rr.value.N)
		if err != nil {
			return false, err
		}
		out = append(out, v)
		return true, nil
	})
	return out, err
}
