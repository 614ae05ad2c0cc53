package pager

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// Rollback journal layout:
//
//	header: magic (8 bytes), original page count (4), page size (4)
//	record: page number (4), page image (pageSize), CRC-32 of the image (4)
//
// Page images are stored as they appear on disk, i.e. already passed
// through the codec's journal-write path. Playback stops at the first
// record with a bad checksum or short read; a torn tail means the journal
// was cut off mid-append and everything after it never made it to disk.
const (
	journalMagic      = "pvjrnl\x00\x01"
	journalHeaderSize = 16
)

// ErrJournalCorrupt reports a journal whose header cannot be parsed.
var ErrJournalCorrupt = errors.New("pager: journal header corrupted")

// journalWriter appends pre-transaction page images to the rollback
// journal.
type journalWriter struct {
	f        *os.File
	path     string
	pageSize int
}

// createJournal creates the rollback journal for a transaction and writes
// its header.
func createJournal(path string, pageSize int, origCount uint32) (*journalWriter, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}

	hdr := make([]byte, journalHeaderSize)
	copy(hdr[0:8], journalMagic)
	putUint32(hdr[8:12], origCount)
	putUint32(hdr[12:16], pageSize)
	if _, err := f.Write(hdr); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write journal header: %w", err)
	}

	return &journalWriter{f: f, path: path, pageSize: pageSize}, nil
}

// writeRecord appends one page image. data must be pageSize bytes and is
// not retained.
func (j *journalWriter) writeRecord(id PageID, data []byte) error {
	rec := make([]byte, 4+j.pageSize+4)
	putUint32(rec[0:4], id)
	copy(rec[4:4+j.pageSize], data)
	putUint32(rec[4+j.pageSize:], crc32.ChecksumIEEE(data))

	if _, err := j.f.Write(rec); err != nil {
		return fmt.Errorf("write journal record for page %d: %w", id, err)
	}
	return nil
}

// sync flushes the journal to disk. Must complete before any journaled page
// is overwritten in the database file.
func (j *journalWriter) sync() error {
	return j.f.Sync()
}

// close closes the journal file without removing it.
func (j *journalWriter) close() error {
	return j.f.Close()
}

// remove closes and deletes the journal. Deleting the journal is what
// commits the transaction against a crash.
func (j *journalWriter) remove() error {
	if err := j.f.Close(); err != nil {
		os.Remove(j.path)
		return err
	}
	return os.Remove(j.path)
}

// journalReader iterates the records of a rollback journal during playback.
type journalReader struct {
	f         *os.File
	pageSize  int
	origCount uint32
}

// openJournal opens an existing journal and reads its header.
func openJournal(path string) (*journalReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	hdr := make([]byte, journalHeaderSize)
	if _, err := io.ReadFull(f, hdr); err != nil {
		f.Close()
		return nil, ErrJournalCorrupt
	}
	if string(hdr[0:8]) != journalMagic {
		f.Close()
		return nil, ErrJournalCorrupt
	}

	pageSize := getUint32[int](hdr[12:16])
	if !validPageSize(pageSize) {
		f.Close()
		return nil, ErrJournalCorrupt
	}

	return &journalReader{
		f:         f,
		pageSize:  pageSize,
		origCount: getUint32[uint32](hdr[8:12]),
	}, nil
}

// next returns the next page image. It returns io.EOF at the end of the
// journal and also on a torn tail (short record or checksum mismatch),
// since a torn record was never committed to disk and must not be played
// back.
func (r *journalReader) next() (PageID, []byte, error) {
	rec := make([]byte, 4+r.pageSize+4)
	if _, err := io.ReadFull(r.f, rec); err != nil {
		return 0, nil, io.EOF
	}

	id := getUint32[PageID](rec[0:4])
	data := rec[4 : 4+r.pageSize]
	if getUint32[uint32](rec[4+r.pageSize:]) != crc32.ChecksumIEEE(data) {
		return 0, nil, io.EOF
	}
	if id == 0 {
		return 0, nil, io.EOF
	}
	return id, data, nil
}

// close closes the journal file.
func (r *journalReader) close() error {
	return r.f.Close()
}
