package pager

// Page size limits. Sizes must be a power of two within this range.
const (
	DefaultPageSize = 4096
	MinPageSize     = 512
	MaxPageSize     = 65536
)

// lockByteOffset is the byte offset of the reserved lock-byte page. The page
// covering this offset is never used for data.
const lockByteOffset = 1 << 30

// PageID identifies a page in a database file. Pages are numbered from 1;
// 0 is never a valid page.
type PageID uint32

// headerPage is the page holding the file header.
const headerPage PageID = 1

// Purpose classifies why the pager is handing a page buffer to the codec.
// The purpose, not the page content, determines which key and direction the
// codec applies.
type Purpose int

const (
	// PurposeLoad is a page read from the database file into the cache.
	PurposeLoad Purpose = iota
	// PurposeReload is a page re-read from the file after its cached copy
	// was dropped or invalidated.
	PurposeReload
	// PurposeUndo is a journal image being restored during rollback.
	PurposeUndo
	// PurposeMainWrite is a page being flushed to the database file.
	PurposeMainWrite
	// PurposeJournalWrite is a pre-transaction image being appended to the
	// rollback journal.
	PurposeJournalWrite
)

// String returns the string representation of a Purpose.
func (pu Purpose) String() string {
	switch pu {
	case PurposeLoad:
		return "load"
	case PurposeReload:
		return "reload"
	case PurposeUndo:
		return "undo"
	case PurposeMainWrite:
		return "main-write"
	case PurposeJournalWrite:
		return "journal-write"
	default:
		return "unknown"
	}
}

// Codec transforms page buffers where they cross between the page cache and
// the disk. The pager holds only this opaque reference; codec state lives
// with the implementation.
//
// Transform must follow the purpose contract: on PurposeLoad, PurposeReload
// and PurposeUndo the buffer is transformed in place and returned; on
// PurposeMainWrite and PurposeJournalWrite the input buffer must not be
// mutated and the returned buffer (typically an internal scratch buffer) is
// only valid until the next Transform call. Transform never fails; codec
// implementations must be constructed so that failure is impossible.
type Codec interface {
	Transform(buf []byte, purpose Purpose) []byte

	// PageSizeChanged tells the codec the pager's page size. Codecs
	// reallocate size-dependent state lazily, not in this call.
	PageSizeChanged(pageSize int)

	// Free releases codec state. Called when the codec is replaced or the
	// pager closes.
	Free()
}

// page is a cached page with its plaintext content.
type page struct {
	id    PageID
	data  []byte
	dirty bool
}

// isLockBytePage reports whether a page covers the reserved lock-byte
// offset for the given page size.
func isLockBytePage(id PageID, pageSize int) bool {
	return int64(id-1)*int64(pageSize) == lockByteOffset
}
