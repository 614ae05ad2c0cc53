// Package crypt implements the cipher contexts used to encrypt and decrypt
// database pages.
//
// A Context holds exactly one symmetric key together with a self-inverse
// stream transform: applying the transform twice with the same context yields
// the original bytes. Pages are transformed as whole fixed-size blocks with
// the keystream restarted for every page, so the transform of byte i depends
// only on the key and on i. There is no IV, no chaining, and no
// authentication; identical plaintext pages produce identical ciphertext.
//
// Absence of encryption is modeled as a nil *Context, never as a zero-filled
// key. An all-zero derived key is a legal (if weak) key and encrypts
// normally.
//
// Two cipher suites are available:
//
//   - SuiteRC4 keys RC4 with the first 16 bytes of the SHA-1 digest of the
//     passphrase. This is the legacy format and the default; files written
//     with it stay readable by existing deployments.
//   - SuiteChaCha20 keys ChaCha20 (zero nonce, restarted per page) with a
//     32-byte PBKDF2-SHA-256 derivation. The keystream is stronger but the
//     overall scheme keeps the same unauthenticated whole-page shape, and
//     the two suites are not interchangeable at the file level.
package crypt
