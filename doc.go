// Package pagevault is an encrypted paged storage file.
//
// A PageVault database is a flat file of fixed-size pages fronted by a
// page cache and a rollback journal. Encryption is transparent and
// page-granular: pages are encrypted and decrypted exactly where they
// cross between the cache and the disk, so everything above the pager
// works on plaintext and never knows a key is involved.
//
// # Opening
//
//	db, err := pagevault.Open("app.pv", pagevault.DefaultOptions().
//	    WithPassphrase("secret"))
//
// Opening with the wrong passphrase fails with ErrNotADatabase: the file
// header does not validate after decryption.
//
// # Transactions
//
// All writes happen inside a transaction backed by a rollback journal:
//
//	tx, err := db.Begin()
//	id, err := tx.Allocate()
//	err = tx.Write(id, page)
//	err = tx.Commit()
//
// If the process dies mid-commit, the journal is played back on the next
// open and the file reverts to its pre-transaction state.
//
// # Attached databases
//
// Additional files can be attached under the same connection. An attached
// database without its own passphrase inherits the main database's key as
// an independent copy:
//
//	err = db.Attach("aux", "aux.pv", "")
//
// # Rekeying
//
// Rekey re-encrypts the whole file under a new key inside one
// transaction; an empty passphrase decrypts it:
//
//	err = db.Rekey("new-secret")
//
// A crash during a rekey is recovered by the journal like any other
// transaction, because journal images are always written under the key
// the file had when the transaction began.
package pagevault
