package pagevault

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func testOptions() Options {
	return DefaultOptions().WithPageSize(512)
}

// fillPages writes n data pages with recognizable content and returns the
// expected content by page number.
func fillPages(t *testing.T, db *DB, n int) map[PageID][]byte {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	want := make(map[PageID][]byte)
	for i := 0; i < n; i++ {
		id, err := tx.Allocate()
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		data := bytes.Repeat([]byte{byte(id)}, 512)
		copy(data, fmt.Sprintf("page %d", id))
		if err := tx.Write(id, data); err != nil {
			t.Fatalf("Write(%d): %v", id, err)
		}
		want[id] = data
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return want
}

func checkPages(t *testing.T, db *DB, want map[PageID][]byte) {
	t.Helper()
	for id, data := range want {
		got, err := db.ReadPage(id)
		if err != nil {
			t.Fatalf("ReadPage(%d): %v", id, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("page %d content mismatch", id)
		}
	}
}

func TestOpenEncryptedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pv")

	db, err := Open(path, testOptions().WithPassphrase("secret"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := fillPages(t, db, 5)
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db2, err := Open(path, testOptions().WithPassphrase("secret"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()
	checkPages(t, db2, want)

	enc, err := db2.IsEncrypted(MainDatabase)
	if err != nil {
		t.Fatalf("IsEncrypted: %v", err)
	}
	if !enc {
		t.Error("IsEncrypted = false for an encrypted database")
	}
}

func TestWrongKeyFailsToOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pv")

	db, err := Open(path, testOptions().WithPassphrase("secret"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	fillPages(t, db, 2)
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, passphrase := range []string{"wrong", ""} {
		db2, err := Open(path, testOptions().WithPassphrase(passphrase))
		if err != nil {
			t.Fatalf("Open(%q): %v", passphrase, err)
		}
		if _, err := db2.ReadPage(2); !errors.Is(err, ErrNotADatabase) {
			t.Errorf("ReadPage with passphrase %q: got %v, want ErrNotADatabase", passphrase, err)
		}
		db2.Close()
	}
}

func TestSetKeyBeforeUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pv")

	db, err := Open(path, testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.SetKey("secret"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	want := fillPages(t, db, 3)
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db2, err := Open(path, testOptions().WithPassphrase("secret"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()
	checkPages(t, db2, want)
}

func TestSetKeyAfterUseRejected(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.pv"), testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	fillPages(t, db, 1)
	if err := db.SetKey("secret"); !errors.Is(err, ErrKeyAfterUse) {
		t.Errorf("SetKey after use: got %v, want ErrKeyAfterUse", err)
	}
}

func TestRekeyEncryptPlaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pv")

	db, err := Open(path, testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := fillPages(t, db, 9) // 10 pages including the header
	if err := db.Rekey("secret"); err != nil {
		t.Fatalf("Rekey: %v", err)
	}

	// Reads immediately after the rekey use the new key.
	checkPages(t, db, want)
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db2, err := Open(path, testOptions().WithPassphrase("secret"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	checkPages(t, db2, want)
	db2.Close()

	// Without the key the pages are garbage.
	db3, err := Open(path, testOptions())
	if err != nil {
		t.Fatalf("reopen plaintext: %v", err)
	}
	defer db3.Close()
	if _, err := db3.ReadPage(2); !errors.Is(err, ErrNotADatabase) {
		t.Errorf("ReadPage without key: got %v, want ErrNotADatabase", err)
	}
}

func TestRekeyDecrypt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pv")

	db, err := Open(path, testOptions().WithPassphrase("secret"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := fillPages(t, db, 4)

	if err := db.Rekey(""); err != nil {
		t.Fatalf("Rekey(\"\"): %v", err)
	}
	enc, err := db.IsEncrypted(MainDatabase)
	if err != nil {
		t.Fatalf("IsEncrypted: %v", err)
	}
	if enc {
		t.Error("IsEncrypted = true after decrypting rekey")
	}
	checkPages(t, db, want)
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db2, err := Open(path, testOptions())
	if err != nil {
		t.Fatalf("reopen without key: %v", err)
	}
	defer db2.Close()
	checkPages(t, db2, want)
}

func TestRekeySameKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pv")

	db, err := Open(path, testOptions().WithPassphrase("secret"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	want := fillPages(t, db, 3)
	if err := db.Rekey("secret"); err != nil {
		t.Fatalf("Rekey: %v", err)
	}
	checkPages(t, db, want)
}

func TestRekeyChangeKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pv")

	db, err := Open(path, testOptions().WithPassphrase("old"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := fillPages(t, db, 6)
	if err := db.Rekey("new"); err != nil {
		t.Fatalf("Rekey: %v", err)
	}
	checkPages(t, db, want)
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db2, err := Open(path, testOptions().WithPassphrase("new"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	checkPages(t, db2, want)
	db2.Close()

	db3, err := Open(path, testOptions().WithPassphrase("old"))
	if err != nil {
		t.Fatalf("reopen old key: %v", err)
	}
	defer db3.Close()
	if _, err := db3.ReadPage(2); !errors.Is(err, ErrNotADatabase) {
		t.Errorf("ReadPage with old key: got %v, want ErrNotADatabase", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pv")

	// Zero-value options do not create the file.
	if _, err := Open(path, Options{}); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("Open with zero options: got %v, want ErrFileNotFound", err)
	}

	db, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Open with defaults: %v", err)
	}
	db.Close()
}

func TestRekeyFailureReverts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pv")

	db, err := Open(path, testOptions().WithPassphrase("secret"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := fillPages(t, db, 4)

	// An open transaction makes the rekey's own transaction fail to
	// begin, exercising the revert path.
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := db.Rekey("new"); err == nil {
		t.Fatal("Rekey succeeded with a transaction open")
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	// The old key must still be fully in effect, for reads and writes.
	checkPages(t, db, want)
	more := fillPages(t, db, 2)
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db2, err := Open(path, testOptions().WithPassphrase("secret"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()
	checkPages(t, db2, want)
	checkPages(t, db2, more)
}

func TestRekeyFailureOnPlaintextRemovesBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pv")

	db, err := Open(path, testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := fillPages(t, db, 2)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := db.Rekey("secret"); err == nil {
		t.Fatal("Rekey succeeded with a transaction open")
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	enc, err := db.IsEncrypted(MainDatabase)
	if err != nil {
		t.Fatalf("IsEncrypted: %v", err)
	}
	if enc {
		t.Error("IsEncrypted = true after failed rekey of plaintext database")
	}
	checkPages(t, db, want)
	db.Close()
}

func TestAttachInheritsKey(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "main.pv")
	auxPath := filepath.Join(dir, "aux.pv")

	db, err := Open(mainPath, testOptions().WithPassphrase("secret"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Attach("aux", auxPath, ""); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	tx, err := db.BeginOn("aux")
	if err != nil {
		t.Fatalf("BeginOn(aux): %v", err)
	}
	id, err := tx.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	data := bytes.Repeat([]byte{0xC3}, 512)
	if err := tx.Write(id, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	enc, err := db.IsEncrypted("aux")
	if err != nil {
		t.Fatalf("IsEncrypted: %v", err)
	}
	if !enc {
		t.Error("attached database did not inherit encryption")
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The attached file opens standalone under the inherited key.
	aux, err := Open(auxPath, testOptions().WithPassphrase("secret"))
	if err != nil {
		t.Fatalf("open aux standalone: %v", err)
	}
	defer aux.Close()
	got, err := aux.ReadPage(id)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("aux page content mismatch under inherited key")
	}
}

func TestAttachKeyIsIndependentCopy(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(filepath.Join(dir, "main.pv"), testOptions().WithPassphrase("secret"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	fillPages(t, db, 2)

	if err := db.Attach("aux", filepath.Join(dir, "aux.pv"), ""); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	auxWant := map[PageID][]byte{}
	tx, err := db.BeginOn("aux")
	if err != nil {
		t.Fatalf("BeginOn: %v", err)
	}
	id, err := tx.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	data := bytes.Repeat([]byte{0x7E}, 512)
	if err := tx.Write(id, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	auxWant[id] = data

	// Rekeying main zeroes its old context. The attached database holds
	// its own copy and must be unaffected.
	if err := db.Rekey("rotated"); err != nil {
		t.Fatalf("Rekey: %v", err)
	}

	got, err := db.ReadPageFrom("aux", id)
	if err != nil {
		t.Fatalf("ReadPageFrom(aux): %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("aux page unreadable after main rekey")
	}
}

func TestAttachToPlaintextMain(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(filepath.Join(dir, "main.pv"), testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Attach("aux", filepath.Join(dir, "aux.pv"), ""); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	enc, err := db.IsEncrypted("aux")
	if err != nil {
		t.Fatalf("IsEncrypted: %v", err)
	}
	if enc {
		t.Error("attached database encrypted despite plaintext main")
	}
}

func TestAttachWithOwnKey(t *testing.T) {
	dir := t.TempDir()
	auxPath := filepath.Join(dir, "aux.pv")

	db, err := Open(filepath.Join(dir, "main.pv"), testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Attach("aux", auxPath, "auxsecret"); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	tx, err := db.BeginOn("aux")
	if err != nil {
		t.Fatalf("BeginOn: %v", err)
	}
	id, err := tx.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	data := bytes.Repeat([]byte{0x2A}, 512)
	if err := tx.Write(id, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	aux, err := Open(auxPath, testOptions().WithPassphrase("auxsecret"))
	if err != nil {
		t.Fatalf("open aux: %v", err)
	}
	defer aux.Close()
	got, err := aux.ReadPage(id)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("aux page content mismatch")
	}
}

func TestDetach(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(filepath.Join(dir, "main.pv"), testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Attach("aux", filepath.Join(dir, "aux.pv"), ""); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if got := db.Databases(); len(got) != 2 || got[0] != "main" || got[1] != "aux" {
		t.Errorf("Databases() = %v, want [main aux]", got)
	}

	if err := db.Detach("aux"); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if _, err := db.ReadPageFrom("aux", 2); !errors.Is(err, ErrDatabaseNotFound) {
		t.Errorf("ReadPageFrom after detach: got %v, want ErrDatabaseNotFound", err)
	}

	if err := db.Detach("main"); !errors.Is(err, ErrMainDatabase) {
		t.Errorf("Detach(main): got %v, want ErrMainDatabase", err)
	}
}

func TestChaCha20Suite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pv")

	db, err := Open(path, testOptions().WithPassphrase("secret").WithSuite(SuiteChaCha20))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := fillPages(t, db, 3)
	if err := db.Rekey("rotated"); err != nil {
		t.Fatalf("Rekey: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db2, err := Open(path, testOptions().WithPassphrase("rotated").WithSuite(SuiteChaCha20))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()
	checkPages(t, db2, want)
}

func TestEncryptedFileHasNoPlaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pv")

	db, err := Open(path, testOptions().WithPassphrase("secret"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	id, err := tx.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	marker := bytes.Repeat([]byte("TOPSECRET"), 57)[:512]
	if err := tx.Write(id, marker); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if bytes.Contains(raw, []byte("TOPSECRET")) {
		t.Error("plaintext marker visible in encrypted file")
	}
}

func TestTxAfterDone(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.pv"), testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := tx.Allocate(); !errors.Is(err, ErrTxDone) {
		t.Errorf("Allocate after commit: got %v, want ErrTxDone", err)
	}
	if err := tx.Rollback(); !errors.Is(err, ErrTxDone) {
		t.Errorf("Rollback after commit: got %v, want ErrTxDone", err)
	}
}

func TestCloseTwice(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.pv"), testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := db.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close: got %v, want ErrClosed", err)
	}
}
