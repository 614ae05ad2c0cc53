package pagevault

import (
	"github.com/pagevault/pagevault/internal/codec"
	"github.com/pagevault/pagevault/internal/crypt"
	"github.com/pagevault/pagevault/internal/pager"
)

// Rekey changes the main database's encryption key in place. An empty
// passphrase decrypts the database.
func (db *DB) Rekey(passphrase string) error {
	return db.RekeyDatabase(MainDatabase, passphrase)
}

// RekeyDatabase changes the named database's encryption key in place,
// rewriting every page under the new key inside a single transaction.
// Either the whole database ends up under the new key, or the operation
// fails and every page remains readable under the old one.
//
// During the rewrite the block's write key runs ahead of its read key:
// pages flushed to the main file use the new key while rollback-journal
// images keep using the old one, so an interrupted rekey is recovered by
// the ordinary journal playback at next open.
func (db *DB) RekeyDatabase(name, passphrase string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	a, err := db.lookup(name)
	if err != nil {
		return err
	}

	newCtx, err := crypt.New([]byte(passphrase), db.opts.Suite)
	if err != nil {
		return err
	}

	blk := a.block()
	if blk == nil && newCtx == nil {
		// Plaintext to plaintext.
		return nil
	}

	created := false
	if blk == nil {
		// Encrypting a plaintext database: reads keep passing through,
		// writes start using the new key.
		ps, err := a.pager.PageSize()
		if err != nil {
			newCtx.Zero()
			return err
		}
		blk = codec.NewBlock(ps, nil)
		blk.SetWriteContext(newCtx)
		if err := a.pager.SetCodec(blk); err != nil {
			newCtx.Zero()
			return err
		}
		created = true
	} else {
		blk.SetWriteContext(newCtx)
	}
	oldCtx := blk.ReadContext()

	if err := db.rewriteAllPages(a.pager); err != nil {
		// Revert: the new write key is discarded and the block returns
		// to its pre-rekey state.
		blk.SetWriteContext(oldCtx)
		if newCtx != nil {
			newCtx.Zero()
		}
		if created {
			// Best effort: if the failed transaction could not be
			// rolled back, the block cannot be deregistered yet. Both
			// its contexts are absent, so it passes pages through
			// unchanged until it is replaced.
			if cerr := a.pager.SetCodec(nil); cerr != nil {
				db.log.Warn("stale crypto block left installed after failed rekey",
					"db", name, "error", cerr.Error())
			}
		}
		return err
	}

	// The new key is authoritative for reads from now on.
	if oldCtx != nil {
		oldCtx.Zero()
	}
	blk.SetReadContext(newCtx)

	if blk.ReadContext() == nil && blk.WriteContext() == nil {
		if err := a.pager.SetCodec(nil); err != nil {
			return err
		}
	}

	db.log.Info("rekey complete", "db", name, "encrypted", newCtx != nil)
	return nil
}

// rewriteAllPages forces every page of the database through the write-side
// cipher inside one transaction. The reserved lock-byte page is skipped.
// On any failure the transaction is rolled back and the first error is
// returned.
func (db *DB) rewriteAllPages(p *pager.Pager) error {
	if err := p.Begin(); err != nil {
		return err
	}

	count, err := p.PageCount()
	if err != nil {
		p.Rollback()
		return err
	}

	for id := PageID(1); uint32(id) <= count; id++ {
		if p.ReservedPage(id) {
			continue
		}
		if err := p.MarkDirty(id); err != nil {
			p.Rollback()
			return err
		}
	}

	if err := p.Commit(); err != nil {
		p.Rollback()
		return err
	}
	return nil
}
