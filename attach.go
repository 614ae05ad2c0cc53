package pagevault

import (
	"github.com/pagevault/pagevault/internal/crypt"
)

// Attach opens another database file under this connection.
//
// Key selection follows the attach inheritance rules: a non-empty
// passphrase derives a fresh key for the new database; an empty passphrase
// inherits the main database's read key as an independent copy, so freeing
// either database's key later leaves the other intact. If the main
// database is unencrypted, the attached database is opened unencrypted.
func (db *DB) Attach(name, path, passphrase string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	for _, a := range db.dbs {
		if a.name == name {
			return ErrNameInUse
		}
	}

	var ctx *crypt.Context
	if passphrase != "" {
		var err error
		ctx, err = crypt.New([]byte(passphrase), db.opts.Suite)
		if err != nil {
			return err
		}
	} else {
		main, err := db.lookup(MainDatabase)
		if err != nil {
			return err
		}
		if b := main.block(); b != nil {
			ctx = b.ReadContext().Clone()
		}
	}

	a, err := db.openFile(name, path, ctx)
	if err != nil {
		if ctx != nil {
			ctx.Zero()
		}
		return err
	}

	db.dbs = append(db.dbs, a)
	db.log.Debug("attached database", "db", name, "path", path, "encrypted", ctx != nil)
	return nil
}

// Detach closes an attached database and removes it from the connection.
// The main database cannot be detached.
func (db *DB) Detach(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if name == MainDatabase {
		return ErrMainDatabase
	}
	a, err := db.lookup(name)
	if err != nil {
		return err
	}

	for i, cand := range db.dbs {
		if cand == a {
			db.dbs = append(db.dbs[:i], db.dbs[i+1:]...)
			break
		}
	}

	db.log.Debug("detached database", "db", name)
	return a.pager.Close()
}
