package pagevault

import (
	"errors"
)

// ErrTxDone reports use of a transaction after Commit or Rollback.
var ErrTxDone = errors.New("pagevault: transaction has already been committed or rolled back")

// Tx is a write transaction on one database. A database supports one
// write transaction at a time; Begin fails while another is active.
type Tx struct {
	att  *attached
	done bool
}

// Begin starts a write transaction on the main database.
func (db *DB) Begin() (*Tx, error) {
	return db.BeginOn(MainDatabase)
}

// BeginOn starts a write transaction on the named database.
func (db *DB) BeginOn(name string) (*Tx, error) {
	db.mu.Lock()
	a, err := db.lookup(name)
	db.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := a.pager.Begin(); err != nil {
		return nil, err
	}
	return &Tx{att: a}, nil
}

// Read returns a copy of a page as of this transaction.
func (t *Tx) Read(id PageID) ([]byte, error) {
	if t.done {
		return nil, ErrTxDone
	}
	data, err := t.att.pager.Get(id)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write replaces the content of a page. data must be exactly one page;
// page 1 is the file header and cannot be written.
func (t *Tx) Write(id PageID, data []byte) error {
	if t.done {
		return ErrTxDone
	}
	return t.att.pager.Write(id, data)
}

// Allocate appends a zeroed page and returns its number.
func (t *Tx) Allocate() (PageID, error) {
	if t.done {
		return 0, ErrTxDone
	}
	return t.att.pager.Allocate()
}

// Truncate shrinks the database to n pages.
func (t *Tx) Truncate(n uint32) error {
	if t.done {
		return ErrTxDone
	}
	return t.att.pager.Truncate(n)
}

// PageCount returns the page count as of this transaction.
func (t *Tx) PageCount() (uint32, error) {
	if t.done {
		return 0, ErrTxDone
	}
	return t.att.pager.PageCount()
}

// Commit makes the transaction's writes durable. On error the transaction
// stays open; call Rollback to discard it.
func (t *Tx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	if err := t.att.pager.Commit(); err != nil {
		return err
	}
	t.done = true
	return nil
}

// Rollback discards the transaction's writes.
func (t *Tx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	if err := t.att.pager.Rollback(); err != nil {
		return err
	}
	t.done = true
	return nil
}
