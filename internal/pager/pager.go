package pager

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/pagevault/pagevault/internal/logging"
)

// Errors returned by pager operations.
var (
	ErrClosed         = errors.New("pager: database is closed")
	ErrReadOnly       = errors.New("pager: database is read-only")
	ErrNoTransaction  = errors.New("pager: no active transaction")
	ErrInTransaction  = errors.New("pager: transaction already active")
	ErrPageOutOfRange = errors.New("pager: page number out of range")
	ErrHeaderPage     = errors.New("pager: header page is not writable")
	ErrHotJournal     = errors.New("pager: hot journal present on read-only database")
	ErrPageSize       = errors.New("pager: invalid page size")
	ErrDoesNotExist   = errors.New("pager: database file does not exist")
)

// Config controls how a Pager opens its database file.
type Config struct {
	// PageSize is used when creating a new database file. An existing
	// file's header takes precedence. Zero means DefaultPageSize.
	PageSize int

	// CachePages caps the number of clean pages held in memory.
	CachePages int

	// Create creates the database file if it does not exist.
	Create bool

	// ReadOnly opens the file without write access. Transactions are
	// rejected.
	ReadOnly bool

	// NoSync skips fsync on commit. Faster for bulk loads; a crash can
	// lose or corrupt recent transactions.
	NoSync bool

	// Logger receives pager events. Nil means no logging.
	Logger logging.Logger
}

const defaultCachePages = 256

// dbFile is the file access a Pager needs. *os.File satisfies it; tests
// substitute fault-injecting wrappers.
type dbFile interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
	Sync() error
	Stat() (os.FileInfo, error)
	Close() error
}

// Pager mediates all page I/O for one database file. Reads and writes pass
// through the installed Codec, the file header is maintained on page 1, and
// write transactions are protected by a rollback journal.
//
// Initialization is deferred until the first operation that touches the
// file, so a codec can be installed after Open without the header having
// been read with the wrong key.
type Pager struct {
	mu sync.Mutex

	path        string
	journalPath string
	file        dbFile
	log         logging.Logger

	cfg      Config
	pageSize int
	hdr      fileHeader
	codec    Codec
	cache    *pageCache

	// everLoaded tracks pages that have been read from disk at least once,
	// so a re-read after eviction is distinguishable from a first load.
	everLoaded map[PageID]bool

	jw          *journalWriter
	journaled   map[PageID]bool
	txOrigCount uint32
	inTx        bool

	initialized bool
	closed      bool
}

// Open opens or creates the database file at path. The file header is not
// read until the first page operation; install a codec first if the file is
// encrypted.
func Open(path string, cfg Config) (*Pager, error) {
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if !validPageSize(cfg.PageSize) {
		return nil, ErrPageSize
	}
	if cfg.CachePages <= 0 {
		cfg.CachePages = defaultCachePages
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}

	flags := os.O_RDWR
	if cfg.ReadOnly {
		flags = os.O_RDONLY
	} else if cfg.Create {
		flags |= os.O_CREATE
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDoesNotExist, path)
		}
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &Pager{
		path:        path,
		journalPath: path + "-journal",
		file:        f,
		log:         cfg.Logger,
		cfg:         cfg,
		pageSize:    cfg.PageSize,
		cache:       newPageCache(cfg.CachePages),
		everLoaded:  make(map[PageID]bool),
	}, nil
}

// SetCodec installs a codec for all subsequent page I/O, freeing any
// previously installed one. It must not be called while a transaction is
// active.
func (p *Pager) SetCodec(c Codec) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.inTx {
		return ErrInTransaction
	}

	if p.codec != nil {
		p.codec.Free()
	}
	p.codec = c
	if c != nil && p.initialized {
		c.PageSizeChanged(p.pageSize)
	}
	return nil
}

// Codec returns the installed codec, or nil.
func (p *Pager) Codec() Codec {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.codec
}

// ensureInit recovers a hot journal, then reads or creates the file header.
// Callers hold p.mu.
func (p *Pager) ensureInit() error {
	if p.initialized {
		return nil
	}
	if p.closed {
		return ErrClosed
	}

	if err := p.recoverJournal(); err != nil {
		return err
	}

	info, err := p.file.Stat()
	if err != nil {
		return fmt.Errorf("stat database: %w", err)
	}

	if info.Size() == 0 {
		if p.cfg.ReadOnly {
			return ErrNotADatabase
		}
		if err := p.createHeader(); err != nil {
			return err
		}
	} else {
		if err := p.readHeader(); err != nil {
			return err
		}
	}

	p.initialized = true
	return nil
}

// createHeader writes page 1 of a fresh database file.
func (p *Pager) createHeader() error {
	p.hdr = fileHeader{
		PageSize:  uint32(p.pageSize),
		PageCount: 1,
		Version:   formatVersion,
	}
	if p.codec != nil {
		p.codec.PageSizeChanged(p.pageSize)
	}

	buf := make([]byte, p.pageSize)
	p.hdr.serialize(buf)

	out := buf
	if p.codec != nil {
		out = p.codec.Transform(buf, PurposeMainWrite)
	}
	if _, err := p.file.WriteAt(out, 0); err != nil {
		return fmt.Errorf("write header page: %w", err)
	}
	if err := p.syncFile(); err != nil {
		return fmt.Errorf("sync header page: %w", err)
	}

	p.log.Debug("created database", "path", p.path, "page_size", p.pageSize)
	return nil
}

// readHeader probes the first headerSize bytes of page 1. The per-page
// stream ciphers restart on every page, so decrypting a prefix of page 1
// yields the prefix of the decrypted page.
func (p *Pager) readHeader() error {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(io.NewSectionReader(p.file, 0, headerSize), buf); err != nil {
		return ErrNotADatabase
	}

	if p.codec != nil {
		buf = p.codec.Transform(buf, PurposeLoad)
	}

	var hdr fileHeader
	if err := hdr.deserialize(buf); err != nil {
		return err
	}

	p.hdr = hdr
	p.pageSize = int(hdr.PageSize)
	if p.codec != nil {
		p.codec.PageSizeChanged(p.pageSize)
	}
	return nil
}

// syncFile flushes the database file unless syncing is disabled.
func (p *Pager) syncFile() error {
	if p.cfg.NoSync {
		return nil
	}
	return p.file.Sync()
}

// recoverJournal plays back a leftover journal from a crashed transaction.
// Images are written to the file exactly as journaled; no codec is involved.
func (p *Pager) recoverJournal() error {
	if _, err := os.Stat(p.journalPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat journal: %w", err)
	}
	if p.cfg.ReadOnly {
		return ErrHotJournal
	}

	r, err := openJournal(p.journalPath)
	if err != nil {
		if errors.Is(err, ErrJournalCorrupt) {
			// A torn header means the transaction never wrote a page
			// to the database file.
			return os.Remove(p.journalPath)
		}
		return err
	}

	restored := 0
	for {
		id, data, err := r.next()
		if err != nil {
			break
		}
		off := int64(id-1) * int64(r.pageSize)
		if _, err := p.file.WriteAt(data, off); err != nil {
			r.close()
			return fmt.Errorf("restore page %d: %w", id, err)
		}
		restored++
	}
	if err := r.close(); err != nil {
		return err
	}

	if err := p.file.Truncate(int64(r.origCount) * int64(r.pageSize)); err != nil {
		return fmt.Errorf("truncate after recovery: %w", err)
	}
	if err := p.syncFile(); err != nil {
		return fmt.Errorf("sync after recovery: %w", err)
	}
	if err := os.Remove(p.journalPath); err != nil {
		return fmt.Errorf("remove journal: %w", err)
	}

	p.log.Info("recovered from hot journal",
		"path", p.path,
		"pages_restored", restored)
	return nil
}

// Get returns the decrypted content of a page. The returned slice is the
// cache's copy; callers that retain it across pager calls must copy it.
func (p *Pager) Get(id PageID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pg, err := p.getPage(id)
	if err != nil {
		return nil, err
	}
	return pg.data, nil
}

func (p *Pager) getPage(id PageID) (*page, error) {
	if err := p.ensureInit(); err != nil {
		return nil, err
	}
	if id == 0 || uint32(id) > p.hdr.PageCount {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, id, p.hdr.PageCount)
	}

	if pg, ok := p.cache.get(id); ok {
		return pg, nil
	}

	buf := make([]byte, p.pageSize)
	off := int64(id-1) * int64(p.pageSize)
	if _, err := p.file.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("read page %d: %w", id, err)
	}

	// The lock-byte page never passes through the codec.
	if p.codec != nil && !isLockBytePage(id, p.pageSize) {
		purpose := PurposeLoad
		if p.everLoaded[id] {
			purpose = PurposeReload
		}
		buf = p.codec.Transform(buf, purpose)
	}
	p.everLoaded[id] = true

	pg := &page{id: id, data: buf}
	p.cache.put(pg)
	return pg, nil
}

// Begin starts a write transaction and creates the rollback journal.
func (p *Pager) Begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.cfg.ReadOnly {
		return ErrReadOnly
	}
	if p.inTx {
		return ErrInTransaction
	}
	if err := p.ensureInit(); err != nil {
		return err
	}

	jw, err := createJournal(p.journalPath, p.pageSize, p.hdr.PageCount)
	if err != nil {
		return err
	}

	p.jw = jw
	p.journaled = make(map[PageID]bool)
	p.txOrigCount = p.hdr.PageCount
	p.inTx = true
	return nil
}

// journalPage records the pre-transaction image of a page before its first
// modification. Pages allocated inside the transaction have no pre-image.
func (p *Pager) journalPage(id PageID) error {
	if p.journaled[id] || uint32(id) > p.txOrigCount {
		return nil
	}

	var img []byte
	if pg, ok := p.cache.get(id); ok && !isLockBytePage(id, p.pageSize) && p.codec != nil {
		img = p.codec.Transform(pg.data, PurposeJournalWrite)
	} else if ok {
		img = make([]byte, p.pageSize)
		copy(img, pg.data)
	} else {
		img = make([]byte, p.pageSize)
		off := int64(id-1) * int64(p.pageSize)
		if _, err := p.file.ReadAt(img, off); err != nil {
			return fmt.Errorf("read page %d for journal: %w", id, err)
		}
	}

	if err := p.jw.writeRecord(id, img); err != nil {
		return err
	}
	p.journaled[id] = true
	return nil
}

// Write replaces the content of a page inside the current transaction.
// data must be exactly one page. Page 1 belongs to the pager.
func (p *Pager) Write(id PageID, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.inTx {
		return ErrNoTransaction
	}
	if id == headerPage {
		return ErrHeaderPage
	}
	if len(data) != p.pageSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrPageSize, len(data), p.pageSize)
	}
	if id == 0 || uint32(id) > p.hdr.PageCount {
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, id, p.hdr.PageCount)
	}

	if err := p.journalPage(id); err != nil {
		return err
	}

	buf := make([]byte, p.pageSize)
	copy(buf, data)
	if pg, ok := p.cache.get(id); ok {
		pg.data = buf
		pg.dirty = true
		return nil
	}
	p.cache.put(&page{id: id, data: buf, dirty: true})
	return nil
}

// MarkDirty journals a page and flags it for rewrite at commit without
// changing its content. Rekeying uses this to force every page back through
// the write-side cipher.
func (p *Pager) MarkDirty(id PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.inTx {
		return ErrNoTransaction
	}
	if isLockBytePage(id, p.pageSize) {
		return nil
	}
	pg, err := p.getPage(id)
	if err != nil {
		return err
	}
	if err := p.journalPage(id); err != nil {
		return err
	}
	pg.dirty = true
	return nil
}

// Allocate appends a zeroed page to the file inside the current
// transaction and returns its number.
func (p *Pager) Allocate() (PageID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.inTx {
		return 0, ErrNoTransaction
	}

	p.hdr.PageCount++
	if isLockBytePage(PageID(p.hdr.PageCount), p.pageSize) {
		// The lock-byte page stays zeroed and unused.
		p.cache.put(&page{id: PageID(p.hdr.PageCount), data: make([]byte, p.pageSize), dirty: true})
		p.hdr.PageCount++
	}
	id := PageID(p.hdr.PageCount)
	p.cache.put(&page{id: id, data: make([]byte, p.pageSize), dirty: true})
	return id, nil
}

// Truncate shrinks the database to n pages inside the current transaction.
// Dropped pages are journaled so a rollback restores them.
func (p *Pager) Truncate(n uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.inTx {
		return ErrNoTransaction
	}
	if n == 0 || n > p.hdr.PageCount {
		return fmt.Errorf("%w: truncate to %d pages", ErrPageOutOfRange, n)
	}

	for id := PageID(n + 1); uint32(id) <= p.hdr.PageCount; id++ {
		if err := p.journalPage(id); err != nil {
			return err
		}
		p.cache.remove(id)
	}
	p.hdr.PageCount = n
	return nil
}

// Commit flushes every dirty page through the write-side codec, syncs the
// file, and deletes the journal. On error the transaction stays open so the
// caller can roll it back.
func (p *Pager) Commit() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.inTx {
		return ErrNoTransaction
	}

	// The header is rewritten on every commit, so its pre-image goes to
	// the journal alongside the data pages.
	if err := p.journalPage(headerPage); err != nil {
		return err
	}
	if !p.cfg.NoSync {
		if err := p.jw.sync(); err != nil {
			return fmt.Errorf("sync journal: %w", err)
		}
	}

	p.hdr.ChangeCounter++
	hp, err := p.getPage(headerPage)
	if err != nil {
		p.hdr.ChangeCounter--
		return err
	}
	p.hdr.serialize(hp.data)
	hp.dirty = true

	dirty := p.cache.dirtyPages()
	sort.Slice(dirty, func(i, j int) bool { return dirty[i].id < dirty[j].id })

	for _, pg := range dirty {
		out := pg.data
		if p.codec != nil && !isLockBytePage(pg.id, p.pageSize) {
			out = p.codec.Transform(pg.data, PurposeMainWrite)
		}
		off := int64(pg.id-1) * int64(p.pageSize)
		if _, err := p.file.WriteAt(out, off); err != nil {
			p.hdr.ChangeCounter--
			return fmt.Errorf("write page %d: %w", pg.id, err)
		}
	}
	if err := p.syncFile(); err != nil {
		p.hdr.ChangeCounter--
		return fmt.Errorf("sync database: %w", err)
	}

	if p.hdr.PageCount < p.txOrigCount {
		if err := p.file.Truncate(int64(p.hdr.PageCount) * int64(p.pageSize)); err != nil {
			return fmt.Errorf("truncate database: %w", err)
		}
	}

	for _, pg := range dirty {
		pg.dirty = false
		// The page is on disk now; any future read of it is a reload.
		p.everLoaded[pg.id] = true
	}

	if err := p.jw.remove(); err != nil {
		return fmt.Errorf("remove journal: %w", err)
	}
	p.jw = nil
	p.journaled = nil
	p.inTx = false

	p.log.Debug("committed transaction",
		"path", p.path,
		"pages_written", len(dirty))
	return nil
}

// Rollback plays the journal back into the file, refreshes affected cached
// pages through the codec, and truncates the file to its pre-transaction
// size.
func (p *Pager) Rollback() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.inTx {
		return ErrNoTransaction
	}

	if err := p.jw.close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}

	r, err := openJournal(p.journalPath)
	if err != nil {
		return err
	}
	for {
		id, data, nerr := r.next()
		if nerr != nil {
			break
		}
		off := int64(id-1) * int64(p.pageSize)
		if _, werr := p.file.WriteAt(data, off); werr != nil {
			r.close()
			return fmt.Errorf("restore page %d: %w", id, werr)
		}

		// Refresh the in-memory copy from the restored image so readers
		// see pre-transaction content without another disk round trip.
		if pg, ok := p.cache.get(id); ok {
			img := make([]byte, p.pageSize)
			copy(img, data)
			if p.codec != nil && !isLockBytePage(id, p.pageSize) {
				img = p.codec.Transform(img, PurposeUndo)
			}
			pg.data = img
			pg.dirty = false
		}
	}
	if err := r.close(); err != nil {
		return err
	}

	// Pages allocated inside the transaction have no journal record;
	// drop them from the cache entirely.
	for _, pg := range p.cache.dirtyPages() {
		p.cache.remove(pg.id)
	}

	p.hdr.PageCount = p.txOrigCount
	if hp, ok := p.cache.get(headerPage); ok {
		var hdr fileHeader
		if hdr.deserialize(hp.data) == nil {
			p.hdr = hdr
		}
	}

	if err := p.file.Truncate(int64(p.hdr.PageCount) * int64(p.pageSize)); err != nil {
		return fmt.Errorf("truncate after rollback: %w", err)
	}
	if err := p.syncFile(); err != nil {
		return fmt.Errorf("sync after rollback: %w", err)
	}
	if err := os.Remove(p.journalPath); err != nil {
		return fmt.Errorf("remove journal: %w", err)
	}

	p.jw = nil
	p.journaled = nil
	p.inTx = false

	p.log.Debug("rolled back transaction", "path", p.path)
	return nil
}

// PageCount returns the current number of pages, reading the header first
// if necessary.
func (p *Pager) PageCount() (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureInit(); err != nil {
		return 0, err
	}
	return p.hdr.PageCount, nil
}

// PageSize returns the database page size, reading the header first if
// necessary.
func (p *Pager) PageSize() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureInit(); err != nil {
		return 0, err
	}
	return p.pageSize, nil
}

// ChangeCounter returns the header change counter.
func (p *Pager) ChangeCounter() (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureInit(); err != nil {
		return 0, err
	}
	return p.hdr.ChangeCounter, nil
}

// ReservedPage reports whether a page is the lock-byte page, which is
// never encrypted and never holds data.
func (p *Pager) ReservedPage(id PageID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return isLockBytePage(id, p.pageSize)
}

// Initialized reports whether the file header has been read or written.
// A codec can only be installed or replaced freely before that point.
func (p *Pager) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// InTransaction reports whether a write transaction is active.
func (p *Pager) InTransaction() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inTx
}

// Path returns the database file path.
func (p *Pager) Path() string {
	return p.path
}

// Close rolls back any active transaction, frees the codec, and closes the
// file.
func (p *Pager) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}

	var rbErr error
	if p.inTx {
		p.mu.Unlock()
		rbErr = p.Rollback()
		p.mu.Lock()
	}

	if p.codec != nil {
		p.codec.Free()
		p.codec = nil
	}
	p.cache.clear()
	p.closed = true
	err := p.file.Close()
	p.mu.Unlock()

	if rbErr != nil {
		return rbErr
	}
	return err
}
