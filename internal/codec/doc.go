// Package codec connects the cipher layer to the pager.
//
// A CryptBlock implements pager.Codec. It holds two cipher contexts: the
// read context matches whatever key the pages on disk were written with,
// and the write context is the key new page images are written with. The
// two are the same object except during a rekey, when the write context
// runs ahead of the read context until every page has been rewritten.
//
// The block dispatches on the pager's I/O purpose:
//
//   - Load, Reload, Undo: decrypt in place with the read context.
//   - Main write: encrypt into a scratch buffer with the write context,
//     leaving the caller's page image untouched.
//   - Journal write: encrypt into the scratch buffer with the read
//     context, so journal images can be replayed verbatim onto a file
//     whose pages still carry the old key.
package codec
