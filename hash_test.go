// hash_test.go -- test suite for the four selectable hash functions
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

func TestHashTypeSelection(t *testing.T) {
	assert := newAsserter(t)

	for id := byte(1); id <= 3; id++ {
		fn := tmpPath(t, "hashtype")

		wf, err := Create(fn)
		assert(err == nil, "create: %s", err)

		w, err := NewHashWriter(wf, WithHashType(id))
		assert(err == nil, "new writer: %s", err)
		assert(w.Add([]byte("k"), []byte("v")) == nil, "add")
		assert(w.Close() == nil, "close")

		rf, err := Open(fn)
		assert(err == nil, "open: %s", err)

		r, err := NewHashReader(rf)
		assert(err == nil, "new reader: %s", err)

		v, err := r.Get([]byte("k"))
		assert(err == nil, "get with hashtype %d: %s", id, err)
		assert(string(v) == "v", "hashtype %d: exp v, saw %s", id, string(v))

		assert(r.Close() == nil, "close reader")
		os.Remove(fn)
	}
}

func TestHashFuncsAreDeterministic(t *testing.T) {
	assert := newAsserter(t)

	for _, hf := range hashFuncs {
		a := hf([]byte("some key"))
		b := hf([]byte("some key"))
		assert(a == b, "hash function not deterministic: %d != %d", a, b)
	}
}
