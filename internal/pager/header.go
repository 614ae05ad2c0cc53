package pager

import (
	"errors"
	"hash/crc32"
)

// File header layout, at the start of page 1:
//
//	Bytes  0-15: magic string
//	Bytes 16-19: page size (big-endian uint32)
//	Bytes 20-23: page count
//	Bytes 24-27: change counter
//	Bytes 28-31: format version
//	Bytes 32-35: CRC-32 of bytes 0-31
const (
	headerMagic   = "PageVault db 1\x00\x00"
	headerSize    = 36
	formatVersion = 1
)

// Errors for header validation.
var (
	ErrNotADatabase = errors.New("pager: not a database file or wrong encryption key")
	ErrBadVersion   = errors.New("pager: unsupported format version")
)

// fileHeader is the decoded page-1 header.
type fileHeader struct {
	PageSize      uint32
	PageCount     uint32
	ChangeCounter uint32
	Version       uint32
}

// serialize writes the header into buf, which must hold at least headerSize
// bytes. Bytes past the header are left untouched.
func (h *fileHeader) serialize(buf []byte) {
	copy(buf[0:16], headerMagic)
	putUint32(buf[16:20], h.PageSize)
	putUint32(buf[20:24], h.PageCount)
	putUint32(buf[24:28], h.ChangeCounter)
	putUint32(buf[28:32], h.Version)
	putUint32(buf[32:36], crc32.ChecksumIEEE(buf[0:32]))
}

// deserialize reads and validates the header from buf. A magic or checksum
// mismatch yields ErrNotADatabase: the file is either not a database or was
// decrypted with the wrong key.
func (h *fileHeader) deserialize(buf []byte) error {
	if len(buf) < headerSize {
		return ErrNotADatabase
	}
	if string(buf[0:16]) != headerMagic {
		return ErrNotADatabase
	}
	if getUint32[uint32](buf[32:36]) != crc32.ChecksumIEEE(buf[0:32]) {
		return ErrNotADatabase
	}

	h.PageSize = getUint32[uint32](buf[16:20])
	h.PageCount = getUint32[uint32](buf[20:24])
	h.ChangeCounter = getUint32[uint32](buf[24:28])
	h.Version = getUint32[uint32](buf[28:32])

	if !validPageSize(int(h.PageSize)) {
		return ErrNotADatabase
	}
	if h.Version != formatVersion {
		return ErrBadVersion
	}
	if h.PageCount == 0 {
		return ErrNotADatabase
	}
	return nil
}

// validPageSize reports whether n is a power of two within the allowed
// range.
func validPageSize(n int) bool {
	return n >= MinPageSize && n <= MaxPageSize && n&(n-1) == 0
}
