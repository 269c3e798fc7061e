// terminfo.go -- the term-stats record (component G): weight, document
// frequency, length extrema, and an inline-or-pointer postings variant.
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
	"errors"
	"fmt"
	"math"

	"github.com/opencoff/go-ohash/blob"
)

// NoID is the sentinel "absent" value for MinID/MaxID on disk. The valid
// document-id space is therefore [0, 0xFFFFFFFE].
const NoID = 0xFFFFFFFF

// ErrSentinelID is returned by AddBlock when a posting block's document
// ids collide with the NoID sentinel used to mark an absent MinID/MaxID.
var ErrSentinelID = errors.New("termdb: document id collides with NoID sentinel")

const (
	structSize = 4 + 4 + 1 + 1 + 4 + 4 + 4 + 4 // f,I,B,B,f,f,I,I = 26 bytes
	magicSize  = 1
)

// legacy fallback stats, used when from_string decodes the old variable
// length pickled-tuple form (magic >= 2) which predates this record's
// fixed struct.
const (
	legacyMinLength = 1
	legacyMaxLength = 106374
	legacyMaxWeight = 999999999
)

// InlinePostings is a posting list small enough to embed inside its
// term-stats record (tag 1), in place of a pointer to an out-of-line
// posting block.
type InlinePostings struct {
	IDs     []uint64
	Weights []float32
	Values  [][]byte
}

// PostingBlock is the subset of a posting block's statistics AddBlock
// needs to fold into a running TermInfo.
type PostingBlock struct {
	IDs       []uint64
	Weights   []float32
	MinLength int
	MaxLength int
}

func (b PostingBlock) maxWeight() float32 {
	var m float32
	for _, w := range b.Weights {
		if w > m {
			m = w
		}
	}
	return m
}

func (b PostingBlock) weightSum() float32 {
	var s float32
	for _, w := range b.Weights {
		s += w
	}
	return s
}

// TermInfo is the per-term statistics record stored as the value of the
// term index: a fixed 26-byte struct plus a tagged postings tail.
type TermInfo struct {
	Weight        float32
	DocFreq       uint32
	MinLengthByte byte
	MaxLengthByte byte
	MaxWeight     float32

	MinID *uint32 // nil == absent
	MaxID *uint32 // nil == absent

	PostingsPointer *int64          // tag 0; nil means "no pointer" (-1 on disk)
	Inline          *InlinePostings // tag 1; non-nil selects the inline form

	haveLength bool // true once AddBlock has folded in at least one block
}

// LengthToByte compresses a document length into a single byte through a
// monotonic (but lossy) encoding: lengths below 255 are stored exactly,
// longer ones map to int(sqrt(length))+239 capped at 255, so length 255
// encodes to 254 and every length from 256 up encodes to 255 (which
// ByteToLength decodes as 256). Callers treat this pair as an opaque
// bijection (spec'd behavior, not exact round-trip).
func LengthToByte(length int) byte {
	if length <= 0 {
		return 0
	}
	if length < 255 {
		return byte(length)
	}
	v := int(math.Sqrt(float64(length))) + 239 // continuous with the length<255 branch at the boundary
	if v > 255 {
		v = 255
	}
	return byte(v)
}

// ByteToLength is the inverse quantization of LengthToByte.
func ByteToLength(b byte) int {
	if b < 255 {
		return int(b)
	}
	d := int(b) - 239
	return d * d
}

// AddBlock folds a posting block's statistics into ti: sums weight and
// doc count, takes the min of min-length bytes and max of max-length
// bytes, the max of max-weights, and extends the id range (first-ever
// min id, latest max id). Returns ErrSentinelID, folding nothing in, if
// any id in b.IDs equals the NoID sentinel.
func (ti *TermInfo) AddBlock(b PostingBlock) error {
	for _, id := range b.IDs {
		if uint32(id) == NoID {
			return ErrSentinelID
		}
	}

	ti.Weight += b.weightSum()
	ti.DocFreq += uint32(len(b.IDs))

	ml := LengthToByte(b.MinLength)
	if !ti.haveLength {
		ti.MinLengthByte = ml
		ti.haveLength = true
	} else if ml < ti.MinLengthByte {
		ti.MinLengthByte = ml
	}

	xl := LengthToByte(b.MaxLength)
	if xl > ti.MaxLengthByte {
		ti.MaxLengthByte = xl
	}

	if w := b.maxWeight(); w > ti.MaxWeight {
		ti.MaxWeight = w
	}

	if len(b.IDs) > 0 {
		first := uint32(b.IDs[0])
		last := uint32(b.IDs[len(b.IDs)-1])
		if ti.MinID == nil {
			ti.MinID = &first
		}
		ti.MaxID = &last
	}

	return nil
}

// MinLength decodes the stored min-length byte through the bijection.
func (ti *TermInfo) MinLength() int { return ByteToLength(ti.MinLengthByte) }

// MaxLength decodes the stored max-length byte through the bijection.
func (ti *TermInfo) MaxLength() int { return ByteToLength(ti.MaxLengthByte) }

func idOrSentinel(id *uint32) uint32 {
	if id == nil {
		return NoID
	}
	return *id
}

func sentinelOrID(v uint32) *uint32 {
	if v == NoID {
		return nil
	}
	id := v
	return &id
}

// ToString encodes ti as `magic || struct || tail`: magic 0 selects a
// postings pointer tail, magic 1 an inline blob tail.
func (ti *TermInfo) ToString() ([]byte, error) {
	buf := make([]byte, magicSize+structSize)

	binary.BigEndian.PutUint32(buf[1:5], math.Float32bits(ti.Weight))
	binary.BigEndian.PutUint32(buf[5:9], ti.DocFreq)
	buf[9] = ti.MinLengthByte
	buf[10] = ti.MaxLengthByte
	binary.BigEndian.PutUint32(buf[11:15], math.Float32bits(ti.MaxWeight))
	binary.BigEndian.PutUint32(buf[15:19], 0) // reserved
	binary.BigEndian.PutUint32(buf[19:23], idOrSentinel(ti.MinID))
	binary.BigEndian.PutUint32(buf[23:27], idOrSentinel(ti.MaxID))

	if ti.Inline != nil {
		buf[0] = 1
		tail, err := blob.Encode(ti.Inline)
		if err != nil {
			return nil, fmt.Errorf("termdb: encode inline postings: %w", err)
		}
		return append(buf, tail...), nil
	}

	buf[0] = 0
	p := int64(-1)
	if ti.PostingsPointer != nil {
		p = *ti.PostingsPointer
	}
	var tail [8]byte
	binary.BigEndian.PutUint64(tail[:], uint64(p))
	return append(buf, tail[:]...), nil
}

// FromString decodes a TermInfo from ToString's output, or from the
// legacy variable-length tuple form (magic >= 2, read-only).
func FromString(s []byte) (*TermInfo, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("termdb: empty term-stats record")
	}
	magic := s[0]

	if magic >= 2 {
		return fromLegacyTuple(s)
	}

	if len(s) < magicSize+structSize {
		return nil, fmt.Errorf("termdb: truncated term-stats record")
	}
	body := s[1 : 1+structSize]
	ti := &TermInfo{
		Weight:        math.Float32frombits(binary.BigEndian.Uint32(body[0:4])),
		DocFreq:       binary.BigEndian.Uint32(body[4:8]),
		MinLengthByte: body[8],
		MaxLengthByte: body[9],
		MaxWeight:     math.Float32frombits(binary.BigEndian.Uint32(body[10:14])),
	}
	ti.MinID = sentinelOrID(binary.BigEndian.Uint32(body[18:22]))
	ti.MaxID = sentinelOrID(binary.BigEndian.Uint32(body[22:26]))

	tail := s[1+structSize:]
	switch magic {
	case 0:
		if len(tail) < 8 {
			return nil, fmt.Errorf("termdb: truncated postings pointer")
		}
		p := int64(binary.BigEndian.Uint64(tail[:8]))
		if p != -1 {
			ptr := p
			ti.PostingsPointer = &ptr
		}
	case 1:
		var inline InlinePostings
		if err := blob.Decode(tail, &inline); err != nil {
			return nil, fmt.Errorf("termdb: decode inline postings: %w", err)
		}
		ti.Inline = &inline
	default:
		return nil, fmt.Errorf("termdb: unknown term-stats magic %d", magic)
	}

	return ti, nil
}

// fromLegacyTuple decodes the pre-struct on-disk form: a pickled/blob-
// encoded tuple of 1, 2 or 3 elements, decoding to (postings),
// (postings, freq), or (freq, postings, docfreq). Stats this old format
// never recorded are faked with the documented placeholder values.
func fromLegacyTuple(s []byte) (*TermInfo, error) {
	var v []interface{}
	if err := blob.Decode(s, &v); err != nil {
		return nil, fmt.Errorf("termdb: decode legacy term-stats tuple: %w", err)
	}

	var freq, docfreq float64
	var postings interface{}
	switch len(v) {
	case 1:
		freq, docfreq = 1, 1
		postings = v[0]
	case 2:
		postings = v[0]
		freq, _ = toFloat(v[1])
		docfreq = freq
	case 3:
		freq, _ = toFloat(v[0])
		postings = v[1]
		docfreq, _ = toFloat(v[2])
	default:
		return nil, fmt.Errorf("termdb: malformed legacy term-stats tuple (len %d)", len(v))
	}

	ti := &TermInfo{
		Weight:        float32(freq),
		DocFreq:       uint32(docfreq),
		MinLengthByte: LengthToByte(legacyMinLength),
		MaxLengthByte: LengthToByte(legacyMaxLength),
		MaxWeight:     legacyMaxWeight,
	}

	if p, ok := postings.(int64); ok {
		ti.PostingsPointer = &p
	} else if p, ok := toFloat(postings); ok {
		ptr := int64(p)
		ti.PostingsPointer = &ptr
	}

	return ti, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// ReadWeight reads only the weight field of a ToString-encoded record at
// datapos, without decoding the rest.
func ReadWeight(get func(pos int64) (float32, error), datapos int64) (float32, error) {
	return get(datapos + 1)
}

// ReadDocFreq reads only the doc-frequency field at datapos.
func ReadDocFreq(get func(pos int64) (uint32, error), datapos int64) (uint32, error) {
	return get(datapos + 1 + 4)
}

// ReadMinAndMaxLength reads only the two length bytes at datapos.
func ReadMinAndMaxLength(getByte func(pos int64) (byte, error), datapos int64) (minLen, maxLen int, err error) {
	lenpos := datapos + 1 + 4 + 4
	ml, err := getByte(lenpos)
	if err != nil {
		return 0, 0, err
	}
	xl, err := getByte(lenpos + 1)
	if err != nil {
		return 0, 0, err
	}
	return ByteToLength(ml), ByteToLength(xl), nil
}

// ReadMaxWeight reads only the max-weight field at datapos.
func ReadMaxWeight(get func(pos int64) (float32, error), datapos int64) (float32, error) {
	return get(datapos + 1 + 4 + 4 + 2)
}
