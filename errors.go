// errors.go -- sentinel errors for the ohash store
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
	"errors"
	"fmt"
)

func errShortWrite(n int) error {
	return fmt.Errorf("ohash: incomplete write; saw %d bytes", n)
}

var (
	// ErrNotFound is returned when a key is not present in the store.
	ErrNotFound = errors.New("ohash: key not found")

	// ErrKeyOrder is returned by an OrderedWriter when a key does not
	// strictly increase over the previous one.
	ErrKeyOrder = errors.New("ohash: keys must strictly increase")

	// ErrClosed is returned when a reader is used after Close. Writers
	// report ErrFrozen instead.
	ErrClosed = errors.New("ohash: use of closed file")

	// ErrFrozen is returned when Add is called on a writer that has
	// already been closed.
	ErrFrozen = errors.New("ohash: writer already closed")

	// ErrBadMagic is returned when a file's magic bytes don't match any
	// recognized format.
	ErrBadMagic = errors.New("ohash: bad file magic")

	// ErrBadFormat is returned for a structurally corrupt header,
	// directory, or trailer.
	ErrBadFormat = errors.New("ohash: corrupt or truncated format")

	// ErrDocCountMismatch is returned when a Lengths file's declared
	// doc count doesn't match the caller-supplied doc count.
	ErrDocCountMismatch = errors.New("ohash: doc count mismatch")

	// ErrTooLarge is returned when a key or value exceeds the format's
	// 32-bit length field.
	ErrTooLarge = errors.New("ohash: key or value too large")

	// ErrOutOfRange is returned when a document number is out of range
	// of a stored-fields table.
	ErrOutOfRange = errors.New("ohash: document number out of range")
)
