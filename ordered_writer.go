// ordered_writer.go -- OrderedHashWriter: adds a sorted offset trailer
//
// (c) Sudhi Herle 2018
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package ohash

import "bytes"

// OrderedHashWriter builds on HashWriter by additionally requiring keys
// to strictly increase and recording each record's payload offset into a
// sorted index, appended after the slot tables so a reader can binary
// search it.
type OrderedHashWriter struct {
	*HashWriter
	index   []int64
	lastKey []byte
}

// NewOrderedHashWriter prepares f to receive strictly-increasing keys.
func NewOrderedHashWriter(f File, opts ...WriterOption) (*OrderedHashWriter, error) {
	hw, err := NewHashWriter(f, opts...)
	if err != nil {
		return nil, err
	}
	return &OrderedHashWriter{HashWriter: hw}, nil
}

// Add adds key/value, requiring key > the previously added key.
func (w *OrderedHashWriter) Add(key, value []byte) error {
	if w.closed {
		return ErrFrozen
	}
	if bytes.Compare(key, w.lastKey) <= 0 {
		return ErrKeyOrder
	}

	pos := w.pos
	if err := w.addRecord(key, value); err != nil {
		return err
	}

	w.index = append(w.index, pos)
	w.lastKey = append([]byte(nil), key...)
	return nil
}

// AddAll adds a batch of strictly-increasing key/value pairs.
func (w *OrderedHashWriter) AddAll(items [][2][]byte) error {
	for _, kv := range items {
		if err := w.Add(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// writeIndexTrailer appends the sorted offset array: a uint32 length
// followed by that many int64 payload offsets, in the order Add was
// called (== ascending key order, since Add enforces that).
func (w *OrderedHashWriter) writeIndexTrailer() error {
	if err := w.f.WriteUint32(uint32(len(w.index))); err != nil {
		return err
	}
	for _, off := range w.index {
		if err := w.f.WriteInt64(off); err != nil {
			return err
		}
	}
	return nil
}

// Close writes the slot tables, the offset trailer, then the directory
// header, and commits the file.
func (w *OrderedHashWriter) Close() error {
	return w.closeHelper(w.writeIndexTrailer)
}

// CloseWithTrailer writes the slot tables, the offset trailer, then extra
// (if non-nil, e.g. a field-name map blob), then the directory header,
// and commits the file. Lets a layer built on top of OrderedHashWriter
// (termdb.TermIndexWriter) splice in one more trailer section without
// reaching into HashWriter's internals.
func (w *OrderedHashWriter) CloseWithTrailer(extra func() error) error {
	return w.closeHelper(func() error {
		if err := w.writeIndexTrailer(); err != nil {
			return err
		}
		if extra != nil {
			return extra()
		}
		return nil
	})
}
