// Package pager implements the paged file manager that hosts the encryption
// codec.
//
// # Overview
//
// A Pager owns one database file as an array of fixed-size pages numbered
// from 1. Page 1 holds the file header. All page I/O flows through an
// optional Codec registered with SetCodec, so that pages are encrypted and
// decrypted exactly where they cross between the in-memory page cache and
// the disk. The pager itself never inspects page content beyond its own
// header page; pages are opaque byte blocks.
//
// # Transactions
//
// The pager supports one exclusive write transaction at a time, made atomic
// by a rollback journal:
//
//	if err := p.Begin(); err != nil { ... }
//	buf, err := p.Get(id)       // load through the codec
//	err = p.Write(id, data)     // journal the old image, mark dirty
//	err = p.Commit()            // flush dirty pages through the codec
//
// The first modification of a page in a transaction appends the page's
// pre-transaction image to the journal. Journal images are encrypted with
// the codec's read key (PurposeJournalWrite), never the write key: the
// journal restores pages to their pre-transaction state, so its pages must
// decrypt with the key that was in effect before the transaction began.
//
// Rollback plays the journal back into the file and refreshes cached pages
// (PurposeUndo), then truncates the file to its pre-transaction page count.
// A hot journal found when the file is first opened is played back the same
// way before the header is read.
//
// # Codec contract
//
// Every page marked dirty in a transaction is passed through the codec with
// PurposeMainWrite exactly once when the transaction commits, before the
// page is flushed to the file. Codec implementations may rely on this: a
// full-file rewrite is performed by marking every page dirty and
// committing.
//
// # Reserved page
//
// The page covering byte offset 1 GiB is reserved for file locking and
// never carries data; Allocate skips it and full-file rewrites must skip it
// too (see ReservedPage).
package pager
