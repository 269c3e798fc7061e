// file.go -- positioned random-access file abstraction
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
	"io"
	"math"
	"os"
	"syscall"
)

// File is the positioned random-access contract the hash-table engine is
// built on. It knows how to stream bytes sequentially (for writers) and
// fetch bytes at an absolute offset or via a zero-copy memory-mapped view
// (for readers). Multi-file directory/storage orchestration -- locking,
// segment layout, multiple files sharing one logical index -- lives
// above this contract and is out of scope here.
type File interface {
	io.Closer

	// Tell returns the current sequential write/read cursor.
	Tell() (int64, error)
	// Seek repositions the sequential cursor.
	Seek(offset int64) error

	// Write appends p at the current cursor.
	Write(p []byte) (int, error)
	WriteByte(b byte) error
	WriteUint16(v uint16) error
	WriteUint32(v uint32) error
	WriteInt64(v int64) error
	WriteFloat32(v float32) error
	// WriteString writes a length-prefixed (uint32) byte string.
	WriteString(s []byte) error

	// Read reads exactly n bytes at the current cursor.
	Read(n int) ([]byte, error)
	ReadByte() (byte, error)
	ReadUint16() (uint16, error)
	ReadUint32() (uint32, error)
	ReadInt64() (int64, error)
	// ReadString reads a length-prefixed (uint32) byte string.
	ReadString() ([]byte, error)

	// ReadAt returns n bytes at absolute offset pos without disturbing
	// the sequential cursor. For a reader this is a zero-copy slice of
	// the memory-mapped view; for a writer it is implementation defined
	// (and unused -- writers are append-only).
	ReadAt(pos int64, n int) ([]byte, error)
	GetByte(pos int64) (byte, error)
	GetUint32(pos int64) (uint32, error)
	GetInt64(pos int64) (int64, error)
	GetFloat32(pos int64) (float32, error)

	// Map returns the whole file as a zero-copy byte slice. Only valid
	// on a reader; callers must not retain the slice past Close.
	Map() []byte
}

// localFile is the concrete, OS-file-backed implementation of File.
// Writers stream sequentially to a tmp file and are committed atomically
// (fsync + rename) by the caller once the header is in its final form.
// Readers mmap the whole file for their lifetime, matching DBReader's
// mmap-for-lifetime discipline in the teacher.
type localFile struct {
	fh     *os.File
	path   string
	tmp    string // non-empty while a writer hasn't been committed
	mm     []byte // populated only for readers
	closed bool
}

// Create opens path for writing via a uniquely-named tmp file in the same
// directory; the caller commits it to path with Commit once done, or
// discards it with Abort.
func Create(path string) (*localFile, error) {
	tmp := fmt.Sprintf("%s.tmp.%d", path, rand32())
	fh, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	return &localFile{fh: fh, path: path, tmp: tmp}, nil
}

// Open opens path read-only and mmaps it for the reader's lifetime.
func Open(path string) (*localFile, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	st, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, err
	}

	sz := int(st.Size())
	var mm []byte
	if sz > 0 {
		mm, err = syscall.Mmap(int(fh.Fd()), 0, sz, syscall.PROT_READ, syscall.MAP_PRIVATE)
		if err != nil {
			fh.Close()
			return nil, fmt.Errorf("ohash: mmap %s: %w", path, err)
		}
	}

	return &localFile{fh: fh, path: path, mm: mm}, nil
}

// Commit fsyncs and atomically renames the tmp file into its final
// location. Only meaningful for a File obtained via Create.
func (f *localFile) Commit() error {
	if f.tmp == "" {
		return nil
	}
	if err := f.fh.Sync(); err != nil {
		return err
	}
	if err := f.fh.Close(); err != nil {
		return err
	}
	err := os.Rename(f.tmp, f.path)
	f.tmp = ""
	f.closed = true
	return err
}

// Abort closes and removes the tmp file without committing it.
func (f *localFile) Abort() {
	f.fh.Close()
	if f.tmp != "" {
		os.Remove(f.tmp)
		f.tmp = ""
	}
	f.closed = true
}

func (f *localFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.mm != nil {
		syscall.Munmap(f.mm)
		f.mm = nil
	}
	return f.fh.Close()
}

func (f *localFile) Tell() (int64, error) {
	return f.fh.Seek(0, io.SeekCurrent)
}

func (f *localFile) Seek(offset int64) error {
	_, err := f.fh.Seek(offset, io.SeekStart)
	return err
}

func (f *localFile) Write(p []byte) (int, error) {
	n, err := f.fh.Write(p)
	if err == nil && n != len(p) {
		err = errShortWrite(n)
	}
	return n, err
}

func (f *localFile) WriteByte(b byte) error {
	_, err := f.Write([]byte{b})
	return err
}

func (f *localFile) WriteUint16(v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := f.Write(b[:])
	return err
}

func (f *localFile) WriteUint32(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := f.Write(b[:])
	return err
}

func (f *localFile) WriteInt64(v int64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	_, err := f.Write(b[:])
	return err
}

func (f *localFile) WriteFloat32(v float32) error {
	return f.WriteUint32(math.Float32bits(v))
}

func (f *localFile) WriteString(s []byte) error {
	if err := f.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	_, err := f.Write(s)
	return err
}

func (f *localFile) Read(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(f.fh, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (f *localFile) ReadByte() (byte, error) {
	b, err := f.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (f *localFile) ReadUint16() (uint16, error) {
	b, err := f.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (f *localFile) ReadUint32() (uint32, error) {
	b, err := f.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (f *localFile) ReadInt64() (int64, error) {
	b, err := f.Read(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (f *localFile) ReadString() ([]byte, error) {
	n, err := f.ReadUint32()
	if err != nil {
		return nil, err
	}
	return f.Read(int(n))
}

func (f *localFile) ReadAt(pos int64, n int) ([]byte, error) {
	if f.mm != nil {
		if pos < 0 || int(pos)+n > len(f.mm) {
			return nil, fmt.Errorf("%w: read %d bytes at %d past eof", ErrBadFormat, n, pos)
		}
		return f.mm[pos : int(pos)+n], nil
	}
	b := make([]byte, n)
	if _, err := f.fh.ReadAt(b, pos); err != nil {
		return nil, err
	}
	return b, nil
}

func (f *localFile) GetByte(pos int64) (byte, error) {
	b, err := f.ReadAt(pos, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (f *localFile) GetUint32(pos int64) (uint32, error) {
	b, err := f.ReadAt(pos, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (f *localFile) GetInt64(pos int64) (int64, error) {
	b, err := f.ReadAt(pos, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (f *localFile) GetFloat32(pos int64) (float32, error) {
	v, err := f.GetUint32(pos)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (f *localFile) Map() []byte {
	return f.mm
}

// Commit finalizes a writer-mode File obtained via Create, atomically
// renaming its tmp file into place; it is a no-op (besides Close) for any
// other File implementation. Exported so packages layered above the
// hash-table writers (stored, lengths) -- which own their own header
// formats and therefore their own Close logic -- get the same
// tmp-file-plus-rename durability without reaching into an unexported
// type.
func Commit(f File) error {
	if lf, ok := f.(*localFile); ok {
		return lf.Commit()
	}
	return f.Close()
}

// Abort discards a writer-mode File obtained via Create without
// committing it. See Commit.
func Abort(f File) {
	if lf, ok := f.(*localFile); ok {
		lf.Abort()
		return
	}
	f.Close()
}
