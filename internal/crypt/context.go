package crypt

import (
	"crypto/rc4"
	"errors"

	"golang.org/x/crypto/chacha20"
)

// Suite selects the stream cipher and key derivation used by a Context.
type Suite int

const (
	// SuiteRC4 is the legacy suite: RC4 keyed with a SHA-1 digest prefix.
	SuiteRC4 Suite = iota
	// SuiteChaCha20 is ChaCha20 keyed via PBKDF2-SHA-256.
	SuiteChaCha20
)

// String returns the string representation of a Suite.
func (s Suite) String() string {
	switch s {
	case SuiteRC4:
		return "rc4"
	case SuiteChaCha20:
		return "chacha20"
	default:
		return "unknown"
	}
}

// ParseSuite parses a suite name as used in configuration and CLI flags.
func ParseSuite(name string) (Suite, error) {
	switch name {
	case "", "rc4":
		return SuiteRC4, nil
	case "chacha20":
		return SuiteChaCha20, nil
	default:
		return 0, ErrUnknownSuite
	}
}

// Errors returned by context operations.
var (
	ErrUnknownSuite = errors.New("crypt: unknown cipher suite")
)

// Context holds one symmetric key and its stream transform.
// A nil *Context means "no encryption"; callers must never encode absence
// as a zero-filled key.
type Context struct {
	suite Suite
	key   []byte
}

// New derives a Context from a passphrase. An empty or nil passphrase yields
// a nil Context (no encryption) with no error. The passphrase is not
// retained; only the derived key is.
func New(passphrase []byte, suite Suite) (*Context, error) {
	if len(passphrase) == 0 {
		return nil, nil
	}
	key, err := deriveKey(passphrase, suite)
	if err != nil {
		return nil, err
	}
	c := &Context{suite: suite, key: key}
	// Construct a cipher once so that Transform can assume a valid key.
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

// newRaw builds a Context directly from key bytes. Test helper surface for
// the codec layer; the key is copied.
func newRaw(key []byte, suite Suite) (*Context, error) {
	k := make([]byte, len(key))
	copy(k, key)
	c := &Context{suite: suite, key: k}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) check() error {
	switch c.suite {
	case SuiteRC4:
		_, err := rc4.NewCipher(c.key)
		return err
	case SuiteChaCha20:
		var nonce [chacha20.NonceSize]byte
		_, err := chacha20.NewUnauthenticatedCipher(c.key, nonce[:])
		return err
	default:
		return ErrUnknownSuite
	}
}

// Clone returns an independent byte-exact duplicate of the context.
// Zeroing or destroying one does not affect the other.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	key := make([]byte, len(c.key))
	copy(key, c.key)
	return &Context{suite: c.suite, key: key}
}

// Transform applies the keystream to src and writes the result to dst.
// dst may alias src for an in-place transform. Both slices must have the
// same length. The keystream restarts on every call, so the transform is
// self-inverse: Transform(Transform(p)) == p.
//
// The key was validated at construction; a failure here means the context
// was corrupted after the fact, which is a programming error.
func (c *Context) Transform(dst, src []byte) {
	switch c.suite {
	case SuiteRC4:
		stream, err := rc4.NewCipher(c.key)
		if err != nil {
			panic("crypt: corrupted cipher context")
		}
		stream.XORKeyStream(dst, src)
	case SuiteChaCha20:
		var nonce [chacha20.NonceSize]byte
		stream, err := chacha20.NewUnauthenticatedCipher(c.key, nonce[:])
		if err != nil {
			panic("crypt: corrupted cipher context")
		}
		stream.XORKeyStream(dst, src)
	default:
		panic("crypt: corrupted cipher context")
	}
}

// Key returns a copy of the raw key bytes.
func (c *Context) Key() []byte {
	key := make([]byte, len(c.key))
	copy(key, c.key)
	return key
}

// Suite returns the cipher suite of the context.
func (c *Context) Suite() Suite {
	return c.suite
}

// Zero overwrites the key material. The context must not be used afterwards.
func (c *Context) Zero() {
	if c == nil {
		return
	}
	for i := range c.key {
		c.key[i] = 0
	}
}
