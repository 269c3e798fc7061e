// writer.go -- HashWriter: the CDB-style immutable hash table, write side
//
// (c) Sudhi Herle 2018
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package ohash

const (
	magicBytes = "HASH"

	// directory entry: position (int64) + slot count (uint32)
	headerEntrySize = 12

	// format-1 header: 4 magic + 1 hashtype + 3 reserved + 8 end-of-hashes
	format1HeaderSize = 16 + 256*headerEntrySize
	format0HeaderSize = 256 * headerEntrySize

	// record length prefix: key length (uint32) + value length (uint32)
	lengthsSize = 8

	// format-1 slot: hash (uint32) + position (int64)
	pointerSizeF1 = 12
	// format-0 slot: hash (int64) + position (int64)
	pointerSizeF0 = 16
)

type slot struct {
	hash uint32
	pos  int64
}

// HashWriter builds a CDB-style immutable hash table: a payload region of
// (key,value) records followed by 256 open-addressed slot tables and a
// directory header written back at the start once every record has been
// streamed.
type HashWriter struct {
	f        File
	format   int
	hashtype byte
	hashFunc HashFunc

	headerSize  int
	pointerSize int

	buckets [256][]slot

	pos    int64
	closed bool

	sidecar bool
}

// WriterOption configures a HashWriter/OrderedHashWriter at construction.
type WriterOption func(*writerConfig)

type writerConfig struct {
	format   int
	hashtype byte
	sidecar  bool
}

// WithFormat selects the legacy (0) or current (1) on-disk format. The
// default is format 1. A format-0 file is hashed with nativeHash (id 0),
// so it can be read back by this implementation only (see hash.go).
func WithFormat(format int) WriterOption {
	return func(c *writerConfig) { c.format = format }
}

// WithHashType selects one of the four hash functions (1=djb2, 2=md5,
// 3=crc32). Only meaningful for format 1; format 0 always uses hash id 0.
func WithHashType(id byte) WriterOption {
	return func(c *writerConfig) { c.hashtype = id }
}

// WithSidecar causes Close to also write a detached integrity-checksum
// sidecar file (see integrity.go) next to the hash table.
func WithSidecar() WriterOption {
	return func(c *writerConfig) { c.sidecar = true }
}

func defaultWriterConfig() writerConfig {
	return writerConfig{format: 1, hashtype: 2}
}

// NewHashWriter prepares f (freshly created, cursor at 0) to receive
// records. f is usually obtained via Create(path).
func NewHashWriter(f File, opts ...WriterOption) (*HashWriter, error) {
	cfg := defaultWriterConfig()
	for _, o := range opts {
		o(&cfg)
	}

	w := &HashWriter{f: f, format: cfg.format, hashtype: cfg.hashtype, sidecar: cfg.sidecar}
	if cfg.format != 0 {
		w.headerSize = format1HeaderSize
		w.pointerSize = pointerSizeF1
	} else {
		w.headerSize = format0HeaderSize
		w.pointerSize = pointerSizeF0
		w.hashtype = 0
	}
	w.hashFunc = hashFuncs[w.hashtype]

	if err := f.Seek(int64(w.headerSize)); err != nil {
		return nil, err
	}
	w.pos = int64(w.headerSize)

	return w, nil
}

// AddAll adds a batch of key/value pairs in order. Keys need not be
// distinct and need not be sorted (use OrderedHashWriter for that).
func (w *HashWriter) AddAll(items [][2][]byte) error {
	if w.closed {
		return ErrFrozen
	}
	for _, kv := range items {
		if err := w.addRecord(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// Add adds a single key/value pair.
func (w *HashWriter) Add(key, value []byte) error {
	if w.closed {
		return ErrFrozen
	}
	return w.addRecord(key, value)
}

func (w *HashWriter) addRecord(key, value []byte) error {
	if uint64(len(key)) > 0xffffffff || uint64(len(value)) > 0xffffffff {
		return ErrTooLarge
	}

	if err := w.f.WriteUint32(uint32(len(key))); err != nil {
		return err
	}
	if err := w.f.WriteUint32(uint32(len(value))); err != nil {
		return err
	}
	if _, err := w.f.Write(key); err != nil {
		return err
	}
	if _, err := w.f.Write(value); err != nil {
		return err
	}

	h := w.hashFunc(key)
	bucket := h & 0xff
	w.buckets[bucket] = append(w.buckets[bucket], slot{hash: h, pos: w.pos})

	w.pos += int64(lengthsSize + len(key) + len(value))
	return nil
}

// WriteRaw writes a length-prefixed blob at the file's current sequential
// position. It exists so a trailer composed above OrderedHashWriter (see
// termdb.TermIndexWriter's field-name map) can append one more chunk
// before the directory header is written, without reaching into File
// itself.
func (w *HashWriter) WriteRaw(p []byte) error {
	return w.f.WriteString(p)
}

// directoryEntry records where a bucket's slot table lives and how big it
// is, so Close can write the 256-entry directory header.
type directoryEntry struct {
	pos      int64
	numSlots uint32
}

// writeSlotTables writes each of the 256 buckets' open-addressed slot
// tables and returns both the directory (for the header) and the file
// offset immediately after the last slot table byte (end-of-hashes).
func (w *HashWriter) writeSlotTables() ([256]directoryEntry, int64, error) {
	var dir [256]directoryEntry

	pos, err := w.f.Tell()
	if err != nil {
		return dir, 0, err
	}

	for i := 0; i < 256; i++ {
		entries := w.buckets[i]
		numSlots := 2 * len(entries)
		dir[i] = directoryEntry{pos: pos, numSlots: uint32(numSlots)}

		table := make([]slot, numSlots)
		for _, e := range entries {
			n := int((e.hash >> 8)) % numSlots
			for table[n].pos != 0 {
				n = (n + 1) % numSlots
			}
			table[n] = e
		}

		for _, s := range table {
			if err := w.writePointer(s.hash, s.pos); err != nil {
				return dir, 0, err
			}
			pos += int64(w.pointerSize)
		}
	}

	return dir, pos, nil
}

func (w *HashWriter) writePointer(hash uint32, pos int64) error {
	if w.format != 0 {
		if err := w.f.WriteUint32(hash); err != nil {
			return err
		}
	} else {
		if err := w.f.WriteInt64(int64(hash)); err != nil {
			return err
		}
	}
	return w.f.WriteInt64(pos)
}

// writeDirectory seeks back to the start of the file and writes the
// header (format 1 only) followed by the 256-entry directory. Called
// last, after every other byte of the file has already been written --
// this is what makes a half-written file unopenable (see spec.md §5).
func (w *HashWriter) writeDirectory(dir [256]directoryEntry, endOfHashes int64) error {
	if err := w.f.Seek(0); err != nil {
		return err
	}

	if w.format != 0 {
		if _, err := w.f.Write([]byte(magicBytes)); err != nil {
			return err
		}
		if err := w.f.WriteByte(w.hashtype); err != nil {
			return err
		}
		if _, err := w.f.Write([]byte{0, 0, 0}); err != nil {
			return err
		}
		if err := w.f.WriteInt64(endOfHashes); err != nil {
			return err
		}
	}

	for _, e := range dir {
		if err := w.f.WriteInt64(e.pos); err != nil {
			return err
		}
		if err := w.f.WriteUint32(e.numSlots); err != nil {
			return err
		}
	}

	return nil
}

// Close writes the slot tables and directory header, then commits the
// file. After Close, the writer must not be used again.
func (w *HashWriter) Close() error {
	return w.closeHelper(nil)
}

// closeHelper lets OrderedHashWriter splice its own trailer in between
// the slot tables and the directory header.
func (w *HashWriter) closeHelper(trailer func() error) error {
	if w.closed {
		return ErrFrozen
	}

	dir, endOfHashes, err := w.writeSlotTables()
	if err != nil {
		return err
	}

	if trailer != nil {
		if err := trailer(); err != nil {
			return err
		}
	}

	if err := w.writeDirectory(dir, endOfHashes); err != nil {
		return err
	}

	w.closed = true
	return w.commit()
}

func (w *HashWriter) commit() error {
	lf, ok := w.f.(*localFile)
	if !ok {
		return w.f.Close()
	}
	if err := lf.Commit(); err != nil {
		return err
	}
	if w.sidecar {
		return WriteSidecar(lf.path)
	}
	return nil
}

// Abort discards the writer without committing anything to the final
// path.
func (w *HashWriter) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	if lf, ok := w.f.(*localFile); ok {
		lf.Abort()
		return
	}
	w.f.Close()
}
