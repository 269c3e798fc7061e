// stored_test.go -- test suite for the stored-fields table
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
	"math/rand"
	"os"
	"testing"

	ohash "github.com/opencoff/go-ohash"
)

func tmpPath(t *testing.T, tag string) string {
	t.Helper()
	return fmt.Sprintf("%s/stored-%s-%d.stb", os.TempDir(), tag, rand.Int())
}

func TestStoredFieldsRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	fn := tmpPath(t, "basic")
	defer os.Remove(fn)

	wf, err := ohash.Create(fn)
	assert(err == nil, "create: %s", err)

	w, err := NewWriter(wf, []string{"title", "body"})
	assert(err == nil, "new writer: %s", err)

	assert(w.Append(map[string]interface{}{"title": "hello", "body": "world"}) == nil, "append doc0")
	assert(w.Append(map[string]interface{}{"title": "second"}) == nil, "append doc1")
	assert(w.Close() == nil, "close")

	rf, err := ohash.Open(fn)
	assert(err == nil, "open: %s", err)

	r, err := NewReader(rf)
	assert(err == nil, "new reader: %s", err)
	defer r.Close()

	assert(r.Len() == 2, "exp 2 documents, saw %d", r.Len())

	doc0, err := r.Get(0)
	assert(err == nil, "get doc0: %s", err)
	assert(doc0["title"] == "hello", "exp title hello, saw %v", doc0["title"])
	assert(doc0["body"] == "world", "exp body world, saw %v", doc0["body"])

	doc1, err := r.Get(1)
	assert(err == nil, "get doc1: %s", err)
	assert(doc1["title"] == "second", "exp title second, saw %v", doc1["title"])
	_, hasBody := doc1["body"]
	assert(!hasBody, "doc1 should not carry an unset body field")

	_, err = r.Get(2)
	assert(err == ohash.ErrOutOfRange, "exp ErrOutOfRange, saw %v", err)
}

func TestStoredFieldsDynamicTail(t *testing.T) {
	assert := newAsserter(t)

	fn := tmpPath(t, "dynamic")
	defer os.Remove(fn)

	wf, err := ohash.Create(fn)
	assert(err == nil, "create: %s", err)

	w, err := NewWriter(wf, []string{"title"})
	assert(err == nil, "new writer: %s", err)

	assert(w.Append(map[string]interface{}{"title": "known", "tag": "x", "rank": "1"}) == nil, "append")
	assert(w.Close() == nil, "close")

	rf, err := ohash.Open(fn)
	assert(err == nil, "open: %s", err)

	r, err := NewReader(rf)
	assert(err == nil, "new reader: %s", err)
	defer r.Close()

	doc0, err := r.Get(0)
	assert(err == nil, "get: %s", err)
	assert(doc0["title"] == "known", "exp title known, saw %v", doc0["title"])
	assert(doc0["tag"] == "x", "exp tag x, saw %v", doc0["tag"])
	assert(doc0["rank"] == "1", "exp rank 1, saw %v", doc0["rank"])
}
