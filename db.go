package pagevault

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pagevault/pagevault/internal/codec"
	"github.com/pagevault/pagevault/internal/crypt"
	"github.com/pagevault/pagevault/internal/logging"
	"github.com/pagevault/pagevault/internal/pager"
)

// Re-exported cipher suite names, so callers never import internal
// packages.
type Suite = crypt.Suite

const (
	SuiteRC4      = crypt.SuiteRC4
	SuiteChaCha20 = crypt.SuiteChaCha20
)

// ParseSuite parses a cipher suite name.
func ParseSuite(name string) (Suite, error) { return crypt.ParseSuite(name) }

// Logger is the structured logging interface accepted by Options.
type Logger = logging.Logger

// NewLogger creates a logger writing to stderr, a file, or stdout.
func NewLogger(level, format, output string) Logger {
	return logging.New(logging.Config{Level: level, Format: format, Output: output})
}

// PageID numbers pages starting at 1. Page 1 is the file header and is not
// accessible through transactions.
type PageID = pager.PageID

// Errors returned by DB operations.
var (
	ErrClosed           = errors.New("pagevault: database is closed")
	ErrDatabaseNotFound = errors.New("pagevault: no attached database with that name")
	ErrNameInUse        = errors.New("pagevault: attachment name already in use")
	ErrMainDatabase     = errors.New("pagevault: the main database cannot be detached")
	ErrKeyAfterUse      = errors.New("pagevault: key must be set before the database is used")

	// ErrNotADatabase reports a file that is not a database, or a
	// database opened with the wrong key.
	ErrNotADatabase = pager.ErrNotADatabase

	// ErrFileNotFound reports a missing database file when creation is
	// disabled.
	ErrFileNotFound = pager.ErrDoesNotExist
)

// MainDatabase is the attachment name of the database given to Open.
const MainDatabase = "main"

// attached is one database file open under a connection: the main database
// plus any databases added with Attach.
type attached struct {
	name  string
	pager *pager.Pager
}

// block returns the database's crypto block, or nil if it is not
// encrypted.
func (a *attached) block() *codec.CryptBlock {
	b, _ := a.pager.Codec().(*codec.CryptBlock)
	return b
}

// DB is a connection to a main database and zero or more attached
// databases. All methods are safe for concurrent use; writes are
// serialized per database by its single-writer transaction.
type DB struct {
	mu     sync.Mutex
	opts   Options
	log    logging.Logger
	dbs    []*attached
	closed bool
}

// Open opens or creates the database at path. If opts.Passphrase is set,
// the file is opened with that key; a fresh file is created encrypted.
func Open(path string, opts Options) (*DB, error) {
	if opts.PageSize == 0 {
		opts.PageSize = DefaultOptions().PageSize
	}
	if opts.CachePages == 0 {
		opts.CachePages = DefaultOptions().CachePages
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	db := &DB{opts: opts, log: opts.Logger}

	ctx, err := crypt.New([]byte(opts.Passphrase), opts.Suite)
	if err != nil {
		return nil, err
	}

	a, err := db.openFile(MainDatabase, path, ctx)
	if err != nil {
		return nil, err
	}
	db.dbs = []*attached{a}

	db.log.Debug("opened database", "path", path, "encrypted", ctx != nil)
	return db, nil
}

// openFile opens one database file and installs its crypto block when a
// key context is given.
func (db *DB) openFile(name, path string, ctx *crypt.Context) (*attached, error) {
	p, err := pager.Open(path, pager.Config{
		PageSize:   db.opts.PageSize,
		CachePages: db.opts.CachePages,
		Create:     db.opts.CreateIfMissing && !db.opts.ReadOnly,
		ReadOnly:   db.opts.ReadOnly,
		NoSync:     db.opts.NoSync,
		Logger:     db.log.WithFields("db", name),
	})
	if err != nil {
		return nil, err
	}
	if ctx != nil {
		if err := p.SetCodec(codec.NewBlock(db.opts.PageSize, ctx)); err != nil {
			p.Close()
			return nil, err
		}
	}
	return &attached{name: name, pager: p}, nil
}

// lookup finds an attached database by name. Callers hold db.mu.
func (db *DB) lookup(name string) (*attached, error) {
	if db.closed {
		return nil, ErrClosed
	}
	for _, a := range db.dbs {
		if a.name == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDatabaseNotFound, name)
}

// SetKey installs an encryption key on the main database. It must be
// called before the first page operation, while the file header is still
// unread; afterwards the only way to change the key is Rekey.
func (db *DB) SetKey(passphrase string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	a, err := db.lookup(MainDatabase)
	if err != nil {
		return err
	}
	if a.pager.Initialized() {
		return ErrKeyAfterUse
	}

	ctx, err := crypt.New([]byte(passphrase), db.opts.Suite)
	if err != nil {
		return err
	}
	if ctx == nil {
		return a.pager.SetCodec(nil)
	}
	return a.pager.SetCodec(codec.NewBlock(db.opts.PageSize, ctx))
}

// IsEncrypted reports whether the named database has an encryption key
// installed.
func (db *DB) IsEncrypted(name string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	a, err := db.lookup(name)
	if err != nil {
		return false, err
	}
	b := a.block()
	return b != nil && b.ReadContext() != nil, nil
}

// Databases returns the attachment names in attach order, main first.
func (db *DB) Databases() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	names := make([]string, len(db.dbs))
	for i, a := range db.dbs {
		names[i] = a.name
	}
	return names
}

// PageCount returns the number of pages in the named database.
func (db *DB) PageCount(name string) (uint32, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	a, err := db.lookup(name)
	if err != nil {
		return 0, err
	}
	return a.pager.PageCount()
}

// PageSize returns the page size of the named database.
func (db *DB) PageSize(name string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	a, err := db.lookup(name)
	if err != nil {
		return 0, err
	}
	return a.pager.PageSize()
}

// ChangeCounter returns the named database's commit counter, incremented
// once per committed transaction.
func (db *DB) ChangeCounter(name string) (uint32, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	a, err := db.lookup(name)
	if err != nil {
		return 0, err
	}
	return a.pager.ChangeCounter()
}

// ReadPage returns a copy of a page of the main database.
func (db *DB) ReadPage(id PageID) ([]byte, error) {
	return db.ReadPageFrom(MainDatabase, id)
}

// ReadPageFrom returns a copy of a page of the named database.
func (db *DB) ReadPageFrom(name string, id PageID) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	a, err := db.lookup(name)
	if err != nil {
		return nil, err
	}
	data, err := a.pager.Get(id)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Close closes every attached database. Cipher contexts are zeroed.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	db.closed = true

	var firstErr error
	for _, a := range db.dbs {
		if err := a.pager.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	db.dbs = nil
	return firstErr
}
