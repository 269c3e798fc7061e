// hash.go -- the four hash functions selectable by a one-byte id
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
	"crypto/md5"
	"encoding/binary"
	"hash/crc32"
)

// HashFunc computes a stable 32-bit hash of a raw key. Keys are always
// hashed as the raw bytes the caller wrote -- text keys are expected to
// already be Latin-1 encoded by the caller before this is invoked.
type HashFunc func(key []byte) uint32

// nativeHash is hash id 0: a fast, process-local string hash used only by
// legacy format-0 files. Its output is NOT portable across
// implementations (the original format-0 files relied on the host
// language's built-in string hash) -- format-0 files written by another
// implementation cannot be read by this one, and vice versa. Format-1
// files should always prefer djb2Hash, md5Hash, or crc32Hash.
func nativeHash(key []byte) uint32 {
	// FNV-1a: stable within this implementation, which is all format-0
	// compatibility can promise.
	var h uint32 = 2166136261
	for _, b := range key {
		h ^= uint32(b)
		h *= 16777619
	}
	return h
}

// djb2Hash is hash id 1.
func djb2Hash(key []byte) uint32 {
	h := uint32(5381)
	for _, b := range key {
		h = (h + (h << 5)) ^ uint32(b)
	}
	return h
}

// md5Hash is hash id 2: the low 32 bits of the big-endian integer
// interpretation of md5(key).
func md5Hash(key []byte) uint32 {
	sum := md5.Sum(key)
	return binary.BigEndian.Uint32(sum[12:16])
}

// crc32Hash is hash id 3: IEEE CRC-32.
func crc32Hash(key []byte) uint32 {
	return crc32.ChecksumIEEE(key)
}

// hashFuncs is indexed by the one-byte hash-id discriminator stored in
// the format-1 header (or implied to be 0 for format-0 files).
var hashFuncs = [4]HashFunc{nativeHash, djb2Hash, md5Hash, crc32Hash}
