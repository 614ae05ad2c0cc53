package codec

import (
	"github.com/pagevault/pagevault/internal/crypt"
	"github.com/pagevault/pagevault/internal/pager"
)

// CryptBlock pairs a read-side and a write-side cipher context for one
// database file. Outside of a rekey both sides point at the same context.
// A nil context on either side means that side is a no-op.
type CryptBlock struct {
	pageSize int
	readCtx  *crypt.Context
	writeCtx *crypt.Context
	scratch  []byte
}

var _ pager.Codec = (*CryptBlock)(nil)

// NewBlock creates a block with both sides set to ctx.
func NewBlock(pageSize int, ctx *crypt.Context) *CryptBlock {
	return &CryptBlock{
		pageSize: pageSize,
		readCtx:  ctx,
		writeCtx: ctx,
	}
}

// Transform applies the cipher selected by purpose. Decryption happens in
// place and returns buf; encryption leaves buf untouched and returns the
// block's scratch buffer, which is valid until the next Transform call.
func (b *CryptBlock) Transform(buf []byte, purpose pager.Purpose) []byte {
	switch purpose {
	case pager.PurposeLoad, pager.PurposeReload, pager.PurposeUndo:
		if b.readCtx == nil {
			return buf
		}
		b.readCtx.Transform(buf, buf)
		return buf

	case pager.PurposeMainWrite:
		return b.encrypt(buf, b.writeCtx)

	case pager.PurposeJournalWrite:
		return b.encrypt(buf, b.readCtx)

	default:
		return buf
	}
}

func (b *CryptBlock) encrypt(buf []byte, ctx *crypt.Context) []byte {
	if ctx == nil {
		return buf
	}
	if len(b.scratch) < len(buf) {
		b.scratch = make([]byte, len(buf))
	}
	out := b.scratch[:len(buf)]
	ctx.Transform(out, buf)
	return out
}

// PageSizeChanged resizes the scratch buffer for a new page size. The
// pager calls this after learning the true page size from the file header.
func (b *CryptBlock) PageSizeChanged(pageSize int) {
	if pageSize != b.pageSize {
		b.pageSize = pageSize
		b.scratch = nil
	}
}

// Free zeroes both cipher contexts.
func (b *CryptBlock) Free() {
	if b.writeCtx != nil && b.writeCtx != b.readCtx {
		b.writeCtx.Zero()
	}
	if b.readCtx != nil {
		b.readCtx.Zero()
	}
	b.readCtx = nil
	b.writeCtx = nil
	for i := range b.scratch {
		b.scratch[i] = 0
	}
}

// ReadContext returns the read-side cipher context.
func (b *CryptBlock) ReadContext() *crypt.Context { return b.readCtx }

// WriteContext returns the write-side cipher context.
func (b *CryptBlock) WriteContext() *crypt.Context { return b.writeCtx }

// SetReadContext replaces the read-side context without freeing the old
// one; the caller owns both.
func (b *CryptBlock) SetReadContext(ctx *crypt.Context) { b.readCtx = ctx }

// SetWriteContext replaces the write-side context without freeing the old
// one; the caller owns both.
func (b *CryptBlock) SetWriteContext(ctx *crypt.Context) { b.writeCtx = ctx }
