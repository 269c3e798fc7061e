// reader.go -- HashReader: the CDB-style immutable hash table, read side
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
	"encoding/binary"
	"fmt"

	lru "github.com/opencoff/golang-lru"
)

// ByteRange locates a decoded value within the memory-mapped view: the
// absolute offset and length of its bytes.
type ByteRange struct {
	Pos int64
	N   int
}

// HashReader opens a previously-written CDB-style hash table for
// constant-time lookups. It holds the file memory-mapped for its
// lifetime; all returned byte slices are zero-copy views into that
// mapping and must not be retained past Close.
type HashReader struct {
	f        File
	format   int
	hashtype byte
	hashFunc HashFunc

	headerSize  int
	pointerSize int

	buckets [256]directoryEntry

	startOfHashes int64
	endOfHashesV  int64

	// opportunistic decoded-value cache, keyed by the raw key bytes.
	// Mirrors DBReader's ARC cache in the teacher -- pure read-side
	// performance, invisible to the Get/All/Items contract.
	cache *lru.ARCCache

	closed bool
}

// ReaderOption configures a HashReader at construction.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	cacheSize int
}

// WithCache sets the number of decoded values to retain in the
// opportunistic ARC cache. 0 (the default) disables caching.
func WithCache(n int) ReaderOption {
	return func(c *readerConfig) { c.cacheSize = n }
}

// NewHashReader opens f (already positioned at 0, typically via
// Open(path)) for lookups.
func NewHashReader(f File, opts ...ReaderOption) (*HashReader, error) {
	var cfg readerConfig
	for _, o := range opts {
		o(&cfg)
	}

	r := &HashReader{f: f}

	if err := f.Seek(0); err != nil {
		return nil, err
	}

	magic, err := f.Read(4)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}

	if string(magic) == magicBytes {
		r.format = 1
		r.headerSize = format1HeaderSize
		r.pointerSize = pointerSizeF1

		ht, err := f.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
		}
		r.hashtype = ht

		if _, err := f.Read(3); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
		}

		eoh, err := f.ReadInt64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
		}
		if eoh < int64(r.headerSize) {
			return nil, ErrBadFormat
		}
		r.endOfHashesV = eoh
	} else {
		r.format = 0
		r.headerSize = format0HeaderSize
		r.pointerSize = pointerSizeF0
		r.hashtype = 0

		if err := f.Seek(0); err != nil {
			return nil, err
		}
	}
	r.hashFunc = hashFuncs[r.hashtype]

	for i := 0; i < 256; i++ {
		pos, err := f.ReadInt64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
		}
		n, err := f.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
		}
		r.buckets[i] = directoryEntry{pos: pos, numSlots: n}
	}
	r.startOfHashes = r.buckets[0].pos

	if r.format == 0 {
		last := r.buckets[255]
		r.endOfHashesV = last.pos + int64(last.numSlots)*int64(r.pointerSize)
	}

	if cfg.cacheSize > 0 {
		c, err := lru.NewARC(cfg.cacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = c
	}

	return r, nil
}

// EndOfHashes returns the file offset immediately after the last slot
// table byte.
func (r *HashReader) EndOfHashes() int64 {
	return r.endOfHashesV
}

// HeaderSize returns the size of the header+directory region.
func (r *HashReader) HeaderSize() int64 {
	return int64(r.headerSize)
}

func (r *HashReader) checkClosed() error {
	if r.closed {
		return ErrClosed
	}
	return nil
}

// Close releases the memory-mapped view. Results previously returned by
// this reader must not be used afterward.
func (r *HashReader) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	if r.cache != nil {
		r.cache.Purge()
	}
	return r.f.Close()
}

func (r *HashReader) read(pos int64, n int) ([]byte, error) {
	return r.f.ReadAt(pos, n)
}

// recordRange describes one decoded record's key and value byte ranges.
type recordRange struct {
	key   ByteRange
	value ByteRange
}

func (r *HashReader) decodeRecordAt(pos int64) (recordRange, int64, error) {
	hdr, err := r.read(pos, lengthsSize)
	if err != nil {
		return recordRange{}, 0, err
	}
	keyLen := binary.BigEndian.Uint32(hdr[0:4])
	valLen := binary.BigEndian.Uint32(hdr[4:8])

	keyPos := pos + lengthsSize
	valPos := keyPos + int64(keyLen)
	next := valPos + int64(valLen)

	return recordRange{
		key:   ByteRange{Pos: keyPos, N: int(keyLen)},
		value: ByteRange{Pos: valPos, N: int(valLen)},
	}, next, nil
}

// ranges iterates every record between pos and the start of the hash
// tables, in append (== insertion) order.
func (r *HashReader) ranges(pos int64, yield func(recordRange) (bool, error)) error {
	if pos == 0 {
		pos = int64(r.headerSize)
	}
	eod := r.startOfHashes
	for pos < eod {
		rr, next, err := r.decodeRecordAt(pos)
		if err != nil {
			return err
		}
		cont, err := yield(rr)
		if err != nil || !cont {
			return err
		}
		pos = next
	}
	return nil
}

// Items returns every (key, value) pair in insertion order.
func (r *HashReader) Items() ([][2][]byte, error) {
	if err := r.checkClosed(); err != nil {
		return nil, err
	}
	var out [][2][]byte
	err := r.ranges(0, func(rr recordRange) (bool, error) {
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

// Keys returns every key in insertion order.
func (r *HashReader) Keys() ([][]byte, error) {
	if err := r.checkClosed(); err != nil {
		return nil, err
	}
	var out [][]byte
	err := r.ranges(0, func(rr recordRange) (bool, error) {
		k, err := r.read(rr.key.Pos, rr.key.N)
		if err != nil {
			return false, err
		}
		out = append(out, k)
		return true, nil
	})
	return out, err
}

// Values returns every value in insertion order.
func (r *HashReader) Values() ([][]byte, error) {
	if err := r.checkClosed(); err != nil {
		return nil, err
	}
	var out [][]byte
	err := r.ranges(0, func(rr recordRange) (bool, error) {
		v, err := r.read(rr.value.Pos, rr.value.N)
		if err != nil {
			return false, err
		}
		out = append(out, v)
		return true, nil
	})
	return out, err
}

// RangesForKey yields the (valuePos, valueLen) of every record whose key
// equals key, in insertion order, walking the probe sequence in the
// appropriate bucket until an empty slot terminates it.
func (r *HashReader) RangesForKey(key []byte) ([]ByteRange, error) {
	if err := r.checkClosed(); err != nil {
		return nil, err
	}

	keyhash := r.hashFunc(key)
	bucket := r.buckets[keyhash&0xff]
	if bucket.numSlots == 0 {
		return nil, nil
	}

	slotPos := bucket.pos + (int64((keyhash>>8))%int64(bucket.numSlots))*int64(r.pointerSize)
	tableEnd := bucket.pos + int64(bucket.numSlots)*int64(r.pointerSize)

	var out []ByteRange
	for i := uint32(0); i < bucket.numSlots; i++ {
		sh, pos, err := r.readPointer(slotPos)
		if err != nil {
			return nil, err
		}
		if pos == 0 {
			return out, nil
		}

		slotPos += int64(r.pointerSize)
		if slotPos == tableEnd {
			slotPos = bucket.pos
		}

		if sh == keyhash {
			hdr, err := r.read(pos, lengthsSize)
			if err != nil {
				return nil, err
			}
			keyLen := binary.BigEndian.Uint32(hdr[0:4])
			valLen := binary.BigEndian.Uint32(hdr[4:8])
			if int(keyLen) == len(key) {
				got, err := r.read(pos+lengthsSize, int(keyLen))
				if err != nil {
					return nil, err
				}
				if string(got) == string(key) {
					out = append(out, ByteRange{Pos: pos + lengthsSize + int64(keyLen), N: int(valLen)})
				}
			}
		}
	}
	return out, nil
}

func (r *HashReader) readPointer(pos int64) (uint32, int64, error) {
	if r.format != 0 {
		b, err := r.read(pos, pointerSizeF1)
		if err != nil {
			return 0, 0, err
		}
		return binary.BigEndian.Uint32(b[0:4]), int64(binary.BigEndian.Uint64(b[4:12])), nil
	}
	b, err := r.read(pos, pointerSizeF0)
	if err != nil {
		return 0, 0, err
	}
	return uint32(int64(binary.BigEndian.Uint64(b[0:8]))), int64(binary.BigEndian.Uint64(b[8:16])), nil
}

// All returns the values of every record matching key, in insertion
// order.
func (r *HashReader) All(key []byte) ([][]byte, error) {
	ranges, err := r.RangesForKey(key)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(ranges))
	for i, rg := range ranges {
		v, err := r.read(rg.Pos, rg.N)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// RangeForKey returns the first matching (pos, len), or ErrNotFound.
func (r *HashReader) RangeForKey(key []byte) (ByteRange, error) {
	ranges, err := r.RangesForKey(key)
	if err != nil {
		return ByteRange{}, err
	}
	if len(ranges) == 0 {
		return ByteRange{}, ErrNotFound
	}
	return ranges[0], nil
}

// Get returns the first value matching key, or ErrNotFound.
func (r *HashReader) Get(key []byte) ([]byte, error) {
	if r.cache != nil {
		if v, ok := r.cache.Get(string(key)); ok {
			return v.([]byte), nil
		}
	}

	rg, err := r.RangeForKey(key)
	if err != nil {
		return nil, err
	}
	v, err := r.read(rg.Pos, rg.N)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Add(string(key), v)
	}
	return v, nil
}

// GetDefault returns the first value matching key, or def if key is
// absent. Any other error (e.g. ErrClosed) is a programmer error, not a
// missing key, and is fatal rather than silently folded into def.
func (r *HashReader) GetDefault(key, def []byte) []byte {
	v, err := r.Get(key)
	if err == nil {
		return v
	}
	if err == ErrNotFound {
		return def
	}
	panic(err)
}

// GetFloat32At reads a big-endian float32 at an absolute file offset,
// without going through any record decoding. Used by callers (e.g.
// termdb's Frequency) that know the exact byte layout of a value they
// already located via RangeForKey.
func (r *HashReader) GetFloat32At(pos int64) (float32, error) {
	return r.f.GetFloat32(pos)
}

// GetUint32At reads a big-endian uint32 at an absolute file offset. See
// GetFloat32At.
func (r *HashReader) GetUint32At(pos int64) (uint32, error) {
	return r.f.GetUint32(pos)
}

// GetByteAt reads a single byte at an absolute file offset. See
// GetFloat32At.
func (r *HashReader) GetByteAt(pos int64) (byte, error) {
	return r.f.GetByte(pos)
}

// Contains reports whether key has at least one record.
func (r *HashReader) Contains(key []byte) (bool, error) {
	ranges, err := r.RangesForKey(key)
	if err != nil {
		return false, err
	}
	return len(ranges) > 0, nil
}
