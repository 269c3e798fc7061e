// Package lengths implements the field-lengths container (component I):
// per-field byte arrays approximating document lengths, totals, and
// memoized min/max, with a mergeable add_other and a versioned on-disk
// format.
//
// (c) Sudhi Herle 2018
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.
package lengths

import (
	"fmt"
	"sort"

	ohash "github.com/opencoff/go-ohash"
	"github.com/opencoff/go-ohash/termdb"
)

// Lengths holds, per field, a byte array of length-encoded document
// lengths, a running total, and memoized min/max (invalidated whenever
// that field's array is mutated).
type Lengths struct {
	lengths map[string][]byte
	totals  map[string]uint64
	mins    map[string]int
	maxes   map[string]int
}

// New returns an empty Lengths container.
func New() *Lengths {
	return &Lengths{
		lengths: make(map[string][]byte),
		totals:  make(map[string]uint64),
		mins:    make(map[string]int),
		maxes:   make(map[string]int),
	}
}

func (l *Lengths) createField(fieldname string, docnum uint32) {
	dc := l.DocCount()
	if want := int(docnum) + 1; want > dc {
		dc = want
	}
	l.lengths[fieldname] = make([]byte, dc)
}

func (l *Lengths) invalidate(fieldname string) {
	delete(l.mins, fieldname)
	delete(l.maxes, fieldname)
}

// Add records length for (docnum, fieldname). A length of 0 is a no-op,
// matching the source's "unset" convention (a zero length byte reads
// back as the caller's default via Get).
func (l *Lengths) Add(docnum uint32, fieldname string, length int) {
	if length == 0 {
		return
	}
	if _, ok := l.lengths[fieldname]; !ok {
		l.createField(fieldname, docnum)
	}
	arr := l.lengths[fieldname]
	if need := int(docnum) + 1; need > len(arr) {
		arr = append(arr, make([]byte, need-len(arr))...)
		l.lengths[fieldname] = arr
	}
	arr[docnum] = termdb.LengthToByte(length)
	l.totals[fieldname] += uint64(length)
	l.invalidate(fieldname)
}

// LengthItem is one (docnum, fieldname, length) triple for AddAll.
type LengthItem struct {
	Docnum    uint32
	Fieldname string
	Length    int
}

// AddAll adds a batch of length observations.
func (l *Lengths) AddAll(items []LengthItem) {
	for _, it := range items {
		l.Add(it.Docnum, it.Fieldname, it.Length)
	}
}

// AddOther merges other into l: l's field arrays, including an empty one
// for each field only other has, are padded to l's current doc count,
// then each of other's field arrays is concatenated onto l's
// counterpart, l's arrays are padded again to the new doc count, and
// totals are summed per field. other itself is not modified or padded.
func (l *Lengths) AddOther(other *Lengths) {
	doccount := l.DocCount()
	for fname := range other.lengths {
		if _, ok := l.lengths[fname]; !ok {
			l.lengths[fname] = nil
		}
	}
	l.padArrays(doccount)

	for fname, arr := range other.lengths {
		l.lengths[fname] = append(l.lengths[fname], arr...)
		l.invalidate(fname)
	}
	l.padArrays(l.DocCount())

	for fname, total := range other.totals {
		l.totals[fname] += total
	}
}

func (l *Lengths) padArrays(doccount int) {
	for fieldname, arr := range l.lengths {
		if len(arr) < doccount {
			l.lengths[fieldname] = append(arr, make([]byte, doccount-len(arr))...)
			l.invalidate(fieldname)
		}
	}
}

// DocCount returns the longest field array's length, or 0 if empty.
func (l *Lengths) DocCount() int {
	max := 0
	for _, arr := range l.lengths {
		if len(arr) > max {
			max = len(arr)
		}
	}
	return max
}

// FieldLength returns the total (decoded) length recorded for fieldname.
func (l *Lengths) FieldLength(fieldname string) uint64 {
	return l.totals[fieldname]
}

// MinFieldLength returns the smallest decoded length byte recorded for
// fieldname, memoized after the first call. Fixes the source's
// mins/maxes aliasing bug: this reads and caches under mins, not maxes.
func (l *Lengths) MinFieldLength(fieldname string) int {
	if v, ok := l.mins[fieldname]; ok {
		return v
	}
	arr, ok := l.lengths[fieldname]
	if !ok || len(arr) == 0 {
		return 0
	}
	mn := arr[0]
	for _, b := range arr[1:] {
		if b < mn {
			mn = b
		}
	}
	v := termdb.ByteToLength(mn)
	l.mins[fieldname] = v
	return v
}

// MaxFieldLength returns the largest decoded length byte recorded for
// fieldname, memoized after the first call.
func (l *Lengths) MaxFieldLength(fieldname string) int {
	if v, ok := l.maxes[fieldname]; ok {
		return v
	}
	arr, ok := l.lengths[fieldname]
	if !ok || len(arr) == 0 {
		return 0
	}
	mx := arr[0]
	for _, b := range arr[1:] {
		if b > mx {
			mx = b
		}
	}
	v := termdb.ByteToLength(mx)
	l.maxes[fieldname] = v
	return v
}

// Get returns the decoded length recorded for (docnum, fieldname), or
// default if the field is unknown, docnum is out of range, or the stored
// byte is zero (unset).
func (l *Lengths) Get(docnum uint32, fieldname string, def int) int {
	arr, ok := l.lengths[fieldname]
	if !ok || int(docnum) >= len(arr) {
		return def
	}
	b := arr[docnum]
	if b == 0 {
		return def
	}
	return termdb.ByteToLength(b)
}

// FieldNames returns every field name with recorded lengths.
func (l *Lengths) FieldNames() []string {
	names := make([]string, 0, len(l.lengths))
	for name := range l.lengths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const legacyHeaderByte = 0xFF
const currentVersion = 1

// ToFile pads every field array to doccount and writes the current (v1)
// on-disk layout: `0xFF | version:i32 | doc_count:u32 | field_count:u16`,
// then, per field, `varstring(name) | u8[doccount] | total:u32`.
func (l *Lengths) ToFile(f ohash.File, doccount uint32) error {
	l.padArrays(int(doccount))

	if err := f.WriteByte(legacyHeaderByte); err != nil {
		return err
	}
	if err := f.WriteUint32(uint32(currentVersion)); err != nil {
		return err
	}
	if err := f.WriteUint32(doccount); err != nil {
		return err
	}

	names := l.FieldNames()
	if err := f.WriteUint16(uint16(len(names))); err != nil {
		return err
	}

	for _, name := range names {
		if err := f.WriteString([]byte(name)); err != nil {
			return err
		}
		arr := l.lengths[name]
		for _, b := range arr {
			if err := f.WriteByte(b); err != nil {
				return err
			}
		}
		if err := f.WriteUint32(uint32(l.totals[name])); err != nil {
			return err
		}
	}

	return ohash.Commit(f)
}

// FromFile reads a field-lengths file, dispatching on the leading 0xFF
// (current, v1) or its absence (legacy v0, whose totals weren't stored
// and are synthesized by summing decoded lengths). doccount must match
// the value stored in a v1 file.
func FromFile(f ohash.File, doccount uint32) (*Lengths, error) {
	if err := f.Seek(0); err != nil {
		return nil, err
	}

	hdr, err := f.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ohash.ErrBadFormat, err)
	}

	version := 0
	dc := doccount
	if hdr == legacyHeaderByte {
		v, err := f.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ohash.ErrBadFormat, err)
		}
		version = int(v)

		dc, err = f.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ohash.ErrBadFormat, err)
		}
		if dc != doccount {
			return nil, ohash.ErrDocCountMismatch
		}
	} else {
		if err := f.Seek(0); err != nil {
			return nil, err
		}
	}

	fieldCount, err := f.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ohash.ErrBadFormat, err)
	}

	l := New()
	for i := 0; i < int(fieldCount); i++ {
		name, err := f.ReadString()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ohash.ErrBadFormat, err)
		}
		arr := make([]byte, dc)
		for j := range arr {
			b, err := f.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ohash.ErrBadFormat, err)
			}
			arr[j] = b
		}
		l.lengths[string(name)] = arr

		if version > 0 {
			total, err := f.ReadUint32()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ohash.ErrBadFormat, err)
			}
			l.totals[string(name)] = uint64(total)
		} else {
			var total uint64
			for _, b := range arr {
				total += uint64(termdb.ByteToLength(b))
			}
			l.totals[string(name)] = total
		}
	}

	return l, nil
}
