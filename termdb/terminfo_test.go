// terminfo_test.go -- test suite for the term-stats record
//
// (c) Sudhi Herle 2018
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package termdb

import "testing"

func TestLengthByteBijectionMonotone(t *testing.T) {
	assert := newAsserter(t)

	prev := byte(0)
	for l := 1; l < 5000; l += 7 {
		b := LengthToByte(l)
		assert(b >= prev, "length_to_byte not monotone at length %d: %d < %d", l, b, prev)
		prev = b
	}
}

func TestLengthByteSmallRoundTrips(t *testing.T) {
	assert := newAsserter(t)

	for l := 0; l < 255; l++ {
		b := LengthToByte(l)
		got := ByteToLength(b)
		assert(got == l, "length %d: round trip got %d", l, got)
	}
}

func TestTermInfoAddBlockAndRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	ti := &TermInfo{}
	err := ti.AddBlock(PostingBlock{
		IDs:       []uint64{1, 2, 5},
		Weights:   []float32{1, 2, 0.5},
		MinLength: 10,
		MaxLength: 40,
	})
	assert(err == nil, "add block 1: %s", err)
	err = ti.AddBlock(PostingBlock{
		IDs:       []uint64{6, 9},
		Weights:   []float32{3, 1},
		MinLength: 5,
		MaxLength: 400,
	})
	assert(err == nil, "add block 2: %s", err)

	assert(ti.DocFreq == 5, "exp docfreq 5, saw %d", ti.DocFreq)
	assert(ti.Weight == 7.5, "exp weight 7.5, saw %v", ti.Weight)
	assert(ti.MaxWeight == 3, "exp max weight 3, saw %v", ti.MaxWeight)
	assert(ti.MinLength() == 5, "exp min length 5, saw %d", ti.MinLength())
	assert(ti.MaxLength() > 0, "exp positive max length, saw %d", ti.MaxLength())
	assert(ti.MinID != nil && *ti.MinID == 1, "exp min id 1, saw %v", ti.MinID)
	assert(ti.MaxID != nil && *ti.MaxID == 9, "exp max id 9, saw %v", ti.MaxID)

	enc, err := ti.ToString()
	assert(err == nil, "encode: %s", err)

	got, err := FromString(enc)
	assert(err == nil, "decode: %s", err)
	assert(got.Weight == ti.Weight, "weight mismatch after round trip")
	assert(got.DocFreq == ti.DocFreq, "docfreq mismatch after round trip")
	assert(*got.MinID == *ti.MinID, "minid mismatch after round trip")
	assert(*got.MaxID == *ti.MaxID, "maxid mismatch after round trip")
}

func TestAddBlockRejectsSentinelID(t *testing.T) {
	assert := newAsserter(t)

	ti := &TermInfo{}
	err := ti.AddBlock(PostingBlock{
		IDs:       []uint64{1, NoID, 5},
		Weights:   []float32{1, 2, 0.5},
		MinLength: 10,
		MaxLength: 40,
	})
	assert(err == ErrSentinelID, "exp ErrSentinelID, saw %v", err)
	assert(ti.DocFreq == 0, "exp rejected block to fold nothing in, saw docfreq %d", ti.DocFreq)
	assert(ti.MinID == nil, "exp rejected block to leave MinID nil, saw %v", ti.MinID)
}

func TestTermInfoInlinePostingsRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	ti := &TermInfo{
		Weight:    2.5,
		DocFreq:   2,
		MaxWeight: 1.5,
		Inline: &InlinePostings{
			IDs:     []uint64{3, 7},
			Weights: []float32{1, 1.5},
		},
	}

	enc, err := ti.ToString()
	assert(err == nil, "encode: %s", err)
	assert(enc[0] == 1, "exp magic 1, saw %d", enc[0])

	got, err := FromString(enc)
	assert(err == nil, "decode: %s", err)
	assert(got.Inline != nil, "exp inline postings")
	assert(len(got.Inline.IDs) == 2, "exp 2 ids, saw %d", len(got.Inline.IDs))
	assert(got.Inline.IDs[1] == 7, "exp id 7, saw %d", got.Inline.IDs[1])
}

func TestTermInfoAbsentIDsRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	ti := &TermInfo{Weight: 1, DocFreq: 0}
	enc, err := ti.ToString()
	assert(err == nil, "encode: %s", err)

	got, err := FromString(enc)
	assert(err == nil, "decode: %s", err)
	assert(got.MinID == nil, "exp nil min id, saw %v", got.MinID)
	assert(got.MaxID == nil, "exp nil max id, saw %v", got.MaxID)
}
