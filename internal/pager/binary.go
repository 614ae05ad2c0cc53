package pager

import (
	"encoding/binary"

	"golang.org/x/exp/constraints"
)

// putUint32 writes v big-endian into buf[0:4]. Generic over the integer
// type so PageID and counter fields encode without casts at every call
// site.
func putUint32[T constraints.Integer](buf []byte, v T) {
	binary.BigEndian.PutUint32(buf, uint32(v))
}

// getUint32 reads a big-endian uint32 from buf[0:4] as T.
func getUint32[T constraints.Integer](buf []byte) T {
	return T(binary.BigEndian.Uint32(buf))
}
