// writer_test.go -- test suite for HashWriter/HashReader
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
	"fmt"
	"math/rand"
	"os"
	"sort"
	"testing"
)

var kv = map[string]string{
	"alpha":   "one",
	"bravo":   "two",
	"charlie": "three",
	"delta":   "four",
	"echo":    "five",
}

func tmpPath(t *testing.T, tag string) string {
	t.Helper()
	return fmt.Sprintf("%s/ohash-%s-%d.db", os.TempDir(), tag, rand.Int())
}

func TestHashWriterBasic(t *testing.T) {
	assert := newAsserter(t)

	fn := tmpPath(t, "basic")
	defer os.Remove(fn)

	wf, err := Create(fn)
	assert(err == nil, "create: %s", err)

	w, err := NewHashWriter(wf)
	assert(err == nil, "new writer: %s", err)

	for k, v := range kv {
		assert(w.Add([]byte(k), []byte(v)) == nil, "add %s", k)
	}
	assert(w.Close() == nil, "close")

	rf, err := Open(fn)
	assert(err == nil, "open: %s", err)

	r, err := NewHashReader(rf)
	assert(err == nil, "new reader: %s", err)
	defer r.Close()

	for k, v := range kv {
		got, err := r.Get([]byte(k))
		assert(err == nil, "get %s: %s", k, err)
		assert(string(got) == v, "key %s: exp %s, saw %s", k, v, string(got))
	}

	_, err = r.Get([]byte("nosuchkey"))
	assert(err == ErrNotFound, "exp ErrNotFound, saw %v", err)
}

func TestHashReaderGetDefault(t *testing.T) {
	assert := newAsserter(t)

	fn := tmpPath(t, "getdefault")
	defer os.Remove(fn)

	wf, err := Create(fn)
	assert(err == nil, "create: %s", err)

	w, err := NewHashWriter(wf)
	assert(err == nil, "new writer: %s", err)
	assert(w.Add([]byte("k"), []byte("v")) == nil, "add")
	assert(w.Close() == nil, "close")

	rf, err := Open(fn)
	assert(err == nil, "open: %s", err)

	r, err := NewHashReader(rf)
	assert(err == nil, "new reader: %s", err)

	got := r.GetDefault([]byte("k"), []byte("def"))
	assert(string(got) == "v", "exp v, saw %s", string(got))

	got = r.GetDefault([]byte("nosuchkey"), []byte("def"))
	assert(string(got) == "def", "exp def for missing key, saw %s", string(got))

	assert(r.Close() == nil, "close reader")

	func() {
		defer func() {
			rec := recover()
			assert(rec != nil, "exp GetDefault to panic on a closed reader")
			assert(rec == ErrClosed, "exp panic value ErrClosed, saw %v", rec)
		}()
		r.GetDefault([]byte("k"), []byte("def"))
	}()
}

func TestHashWriterDuplicateKeys(t *testing.T) {
	assert := newAsserter(t)

	fn := tmpPath(t, "dup")
	defer os.Remove(fn)

	wf, err := Create(fn)
	assert(err == nil, "create: %s", err)

	w, err := NewHashWriter(wf)
	assert(err == nil, "new writer: %s", err)

	assert(w.Add([]byte("k"), []byte("v1")) == nil, "add v1")
	assert(w.Add([]byte("k"), []byte("v2")) == nil, "add v2")
	assert(w.Close() == nil, "close")

	rf, err := Open(fn)
	assert(err == nil, "open: %s", err)

	r, err := NewHashReader(rf)
	assert(err == nil, "new reader: %s", err)
	defer r.Close()

	all, err := r.All([]byte("k"))
	assert(err == nil, "all: %s", err)
	assert(len(all) == 2, "exp 2 values, saw %d", len(all))
	assert(string(all[0]) == "v1", "first value: exp v1, saw %s", string(all[0]))
	assert(string(all[1]) == "v2", "second value: exp v2, saw %s", string(all[1]))

	first, err := r.Get([]byte("k"))
	assert(err == nil, "get: %s", err)
	assert(string(first) == "v1", "get returns first: exp v1, saw %s", string(first))
}

func TestHashWriterItemsOrder(t *testing.T) {
	assert := newAsserter(t)

	fn := tmpPath(t, "items")
	defer os.Remove(fn)

	wf, err := Create(fn)
	assert(err == nil, "create: %s", err)

	w, err := NewHashWriter(wf)
	assert(err == nil, "new writer: %s", err)

	order := []string{"zebra", "apple", "mango", "kiwi"}
	for _, k := range order {
		assert(w.Add([]byte(k), []byte(k)) == nil, "add %s", k)
	}
	assert(w.Close() == nil, "close")

	rf, err := Open(fn)
	assert(err == nil, "open: %s", err)

	r, err := NewHashReader(rf)
	assert(err == nil, "new reader: %s", err)
	defer r.Close()

	keys, err := r.Keys()
	assert(err == nil, "keys: %s", err)
	assert(len(keys) == len(order), "exp %d keys, saw %d", len(order), len(keys))
	for i, k := range keys {
		assert(string(k) == order[i], "key[%d]: exp %s, saw %s", i, order[i], string(k))
	}
}

func TestHashWriterFormat0RoundTrip(t *testing.T) {
	assert := newAsserter(t)

	fn := tmpPath(t, "fmt0")
	defer os.Remove(fn)

	wf, err := Create(fn)
	assert(err == nil, "create: %s", err)

	w, err := NewHashWriter(wf, WithFormat(0))
	assert(err == nil, "new writer: %s", err)

	assert(w.Add([]byte("one"), []byte("1")) == nil, "add one")
	assert(w.Add([]byte("two"), []byte("2")) == nil, "add two")
	assert(w.Close() == nil, "close")

	rf, err := Open(fn)
	assert(err == nil, "open: %s", err)

	r, err := NewHashReader(rf)
	assert(err == nil, "new reader: %s", err)
	defer r.Close()

	v, err := r.Get([]byte("two"))
	assert(err == nil, "get: %s", err)
	assert(string(v) == "2", "exp 2, saw %s", string(v))
}

func TestHashReaderCache(t *testing.T) {
	assert := newAsserter(t)

	fn := tmpPath(t, "cache")
	defer os.Remove(fn)

	wf, err := Create(fn)
	assert(err == nil, "create: %s", err)

	w, err := NewHashWriter(wf)
	assert(err == nil, "new writer: %s", err)
	assert(w.Add([]byte("k"), []byte("v")) == nil, "add")
	assert(w.Close() == nil, "close")

	rf, err := Open(fn)
	assert(err == nil, "open: %s", err)

	r, err := NewHashReader(rf, WithCache(8))
	assert(err == nil, "new reader: %s", err)
	defer r.Close()

	for i := 0; i < 3; i++ {
		v, err := r.Get([]byte("k"))
		assert(err == nil, "get %d: %s", i, err)
		assert(string(v) == "v", "exp v, saw %s", string(v))
	}
}

func sortedKV() []string {
	var names []string
	for k := range kv {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
