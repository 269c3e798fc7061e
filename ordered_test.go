// ordered_test.go -- test suite for OrderedHashWriter/OrderedHashReader
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
	"os"
	"testing"
)

func TestOrderedHashWriterRange(t *testing.T) {
	assert := newAsserter(t)

	fn := tmpPath(t, "ordered")
	defer os.Remove(fn)

	wf, err := Create(fn)
	assert(err == nil, "create: %s", err)

	w, err := NewOrderedHashWriter(wf)
	assert(err == nil, "new writer: %s", err)

	names := sortedKV()
	for _, k := range names {
		assert(w.Add([]byte(k), []byte(kv[k])) == nil, "add %s", k)
	}
	assert(w.Close() == nil, "close")

	rf, err := Open(fn)
	assert(err == nil, "open: %s", err)

	r, err := NewOrderedHashReader(rf)
	assert(err == nil, "new reader: %s", err)
	defer r.Close()

	assert(r.Len() == len(names), "exp %d entries, saw %d", len(names), r.Len())

	closest, err := r.ClosestKey([]byte("coconut"))
	assert(err == nil, "closest: %s", err)
	assert(string(closest) == "delta", "exp delta, saw %s", string(closest))

	from, err := r.KeysFrom([]byte("bravo"))
	assert(err == nil, "keys from: %s", err)
	assert(len(from) == len(names)-1, "exp %d keys, saw %d", len(names)-1, len(from))
	assert(string(from[0]) == "bravo", "exp bravo first, saw %s", string(from[0]))

	none, err := r.ClosestKey([]byte("zzz"))
	assert(err == nil, "closest past end: %s", err)
	assert(none == nil, "exp nil, saw %s", string(none))
}

func TestOrderedHashWriterRejectsOutOfOrder(t *testing.T) {
	assert := newAsserter(t)

	fn := tmpPath(t, "ordering-violation")
	defer os.Remove(fn)

	wf, err := Create(fn)
	assert(err == nil, "create: %s", err)

	w, err := NewOrderedHashWriter(wf)
	assert(err == nil, "new writer: %s", err)

	assert(w.Add([]byte("b"), []byte("1")) == nil, "add b")
	err = w.Add([]byte("a"), []byte("2"))
	assert(err == ErrKeyOrder, "exp ErrKeyOrder, saw %v", err)

	err = w.Add([]byte("b"), []byte("3"))
	assert(err == ErrKeyOrder, "exp ErrKeyOrder on repeat, saw %v", err)

	w.Abort()
}
