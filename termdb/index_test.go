// index_test.go -- test suite for TermIndexWriter/TermIndexReader
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
	"fmt"
	"math/rand"
	"os"
	"testing"

	ohash "github.com/opencoff/go-ohash"
)

func tmpPath(t *testing.T, tag string) string {
	t.Helper()
	return fmt.Sprintf("%s/termdb-%s-%d.trm", os.TempDir(), tag, rand.Int())
}

func TestTermIndexRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	fn := tmpPath(t, "index")
	defer os.Remove(fn)

	wf, err := ohash.Create(fn)
	assert(err == nil, "create: %s", err)

	w, err := NewTermIndexWriter(wf)
	assert(err == nil, "new writer: %s", err)

	titleDog := &TermInfo{}
	titleDog.AddBlock(PostingBlock{IDs: []uint64{1, 2}, Weights: []float32{1, 1}, MinLength: 3, MaxLength: 3})

	titleCat := &TermInfo{}
	titleCat.AddBlock(PostingBlock{IDs: []uint64{2}, Weights: []float32{2}, MinLength: 3, MaxLength: 3})

	bodyDog := &TermInfo{}
	bodyDog.AddBlock(PostingBlock{IDs: []uint64{1}, Weights: []float32{4}, MinLength: 100, MaxLength: 100})

	assert(w.Add("body", "dog", bodyDog) == nil, "add body/dog")
	assert(w.Add("title", "cat", titleCat) == nil, "add title/cat")
	assert(w.Add("title", "dog", titleDog) == nil, "add title/dog")
	assert(w.Close() == nil, "close")

	rf, err := ohash.Open(fn)
	assert(err == nil, "open: %s", err)

	r, err := NewTermIndexReader(rf)
	assert(err == nil, "new reader: %s", err)
	defer r.Close()

	got, err := r.Get("title", "dog")
	assert(err == nil, "get title/dog: %s", err)
	assert(got.DocFreq == 2, "exp docfreq 2, saw %d", got.DocFreq)

	freq, err := r.Frequency("title", "cat")
	assert(err == nil, "frequency: %s", err)
	assert(freq == 2, "exp frequency 2, saw %v", freq)

	df, err := r.DocFrequency("body", "dog")
	assert(err == nil, "docfrequency: %s", err)
	assert(df == 1, "exp docfreq 1, saw %d", df)

	_, err = r.Get("title", "nosuchterm")
	assert(err == ohash.ErrNotFound, "exp ErrNotFound, saw %v", err)

	keys, vals, err := r.Items()
	assert(err == nil, "items: %s", err)
	assert(len(keys) == 3, "exp 3 items, saw %d", len(keys))
	assert(len(vals) == 3, "exp 3 values, saw %d", len(vals))
}

func TestTermIndexUnknownField(t *testing.T) {
	assert := newAsserter(t)

	fn := tmpPath(t, "unknown-field")
	defer os.Remove(fn)

	wf, err := ohash.Create(fn)
	assert(err == nil, "create: %s", err)

	w, err := NewTermIndexWriter(wf)
	assert(err == nil, "new writer: %s", err)

	ti := &TermInfo{}
	ti.AddBlock(PostingBlock{IDs: []uint64{1}, Weights: []float32{1}, MinLength: 1, MaxLength: 1})
	assert(w.Add("title", "dog", ti) == nil, "add")
	assert(w.Close() == nil, "close")

	rf, err := ohash.Open(fn)
	assert(err == nil, "open: %s", err)

	r, err := NewTermIndexReader(rf)
	assert(err == nil, "new reader: %s", err)
	defer r.Close()

	_, err = r.Get("nosuchfield", "dog")
	assert(err == ohash.ErrNotFound, "exp ErrNotFound for unknown field, saw %v", err)
}
