package pagevault

import (
	"github.com/pagevault/pagevault/internal/crypt"
	"github.com/pagevault/pagevault/internal/logging"
)

// Options configures an open database.
type Options struct {
	// PageSize is the page size used when creating a new database file.
	// An existing file's header takes precedence.
	// Default: 4096 bytes.
	PageSize int

	// CachePages is the number of pages to cache in memory.
	// Default: 256 pages.
	CachePages int

	// CreateIfMissing creates the database file if it doesn't exist.
	// The zero value is false; DefaultOptions enables it.
	CreateIfMissing bool

	// ReadOnly opens the database in read-only mode.
	// Default: false.
	ReadOnly bool

	// NoSync skips fsync on commit. Faster, but a crash can lose recent
	// transactions.
	// Default: false.
	NoSync bool

	// Passphrase encrypts the database. Empty means no encryption.
	Passphrase string

	// Suite selects the cipher suite used with Passphrase.
	// Default: SuiteRC4.
	Suite crypt.Suite

	// Logger receives structured log output. Nil disables logging.
	Logger logging.Logger
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		PageSize:        4096,
		CachePages:      256,
		CreateIfMissing: true,
	}
}

// WithPageSize sets the page size for new database files.
func (o Options) WithPageSize(size int) Options {
	o.PageSize = size
	return o
}

// WithCachePages sets the page cache capacity.
func (o Options) WithCachePages(n int) Options {
	o.CachePages = n
	return o
}

// WithCreateIfMissing enables or disables auto-creation.
func (o Options) WithCreateIfMissing(create bool) Options {
	o.CreateIfMissing = create
	return o
}

// WithReadOnly enables or disables read-only mode.
func (o Options) WithReadOnly(readOnly bool) Options {
	o.ReadOnly = readOnly
	return o
}

// WithNoSync enables or disables fsync on commit.
func (o Options) WithNoSync(noSync bool) Options {
	o.NoSync = noSync
	return o
}

// WithPassphrase sets the encryption passphrase.
func (o Options) WithPassphrase(passphrase string) Options {
	o.Passphrase = passphrase
	return o
}

// WithSuite sets the cipher suite.
func (o Options) WithSuite(suite crypt.Suite) Options {
	o.Suite = suite
	return o
}

// WithLogger sets the logger.
func (o Options) WithLogger(log logging.Logger) Options {
	o.Logger = log
	return o
}
