package crypt

import (
	"crypto/sha1"
	"crypto/sha256"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/pbkdf2"
)

// Key sizes per suite.
const (
	// RC4KeySize is the key length of the legacy suite: a prefix of the
	// SHA-1 digest of the passphrase.
	RC4KeySize = 16
	// ChaChaKeySize is the ChaCha20 key length.
	ChaChaKeySize = chacha20.KeySize
)

// PBKDF2 parameters for SuiteChaCha20. The salt is a fixed domain string:
// the file format carries no per-file salt, and the key must be derivable
// from the passphrase alone.
const (
	kdfIterations = 64000
	kdfSalt       = "pagevault.kdf.v1"
)

// deriveKey turns a non-empty passphrase into key bytes for the given suite.
// Derivation is deterministic and retains nothing of the passphrase.
func deriveKey(passphrase []byte, suite Suite) ([]byte, error) {
	switch suite {
	case SuiteRC4:
		digest := sha1.Sum(passphrase)
		key := make([]byte, RC4KeySize)
		copy(key, digest[:RC4KeySize])
		return key, nil
	case SuiteChaCha20:
		return pbkdf2.Key(passphrase, []byte(kdfSalt), kdfIterations, ChaChaKeySize, sha256.New), nil
	default:
		return nil, ErrUnknownSuite
	}
}
