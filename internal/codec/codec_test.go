package codec

import (
	"bytes"
	"testing"

	"github.com/pagevault/pagevault/internal/crypt"
	"github.com/pagevault/pagevault/internal/pager"
)

func mustContext(t *testing.T, passphrase string) *crypt.Context {
	t.Helper()
	ctx, err := crypt.New([]byte(passphrase), crypt.SuiteRC4)
	if err != nil {
		t.Fatalf("New(%q): %v", passphrase, err)
	}
	return ctx
}

func TestMainWriteLeavesInputUntouched(t *testing.T) {
	b := NewBlock(512, mustContext(t, "secret"))

	plain := bytes.Repeat([]byte{0xAB}, 512)
	orig := append([]byte(nil), plain...)

	enc := b.Transform(plain, pager.PurposeMainWrite)
	if !bytes.Equal(plain, orig) {
		t.Error("main write mutated the input page")
	}
	if bytes.Equal(enc, plain) {
		t.Error("encrypted output equals plaintext")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	b := NewBlock(512, mustContext(t, "secret"))

	plain := bytes.Repeat([]byte{0x5C}, 512)
	enc := append([]byte(nil), b.Transform(plain, pager.PurposeMainWrite)...)

	got := b.Transform(enc, pager.PurposeLoad)
	if !bytes.Equal(got, plain) {
		t.Error("load did not invert main write")
	}
}

func TestLoadDecryptsInPlace(t *testing.T) {
	b := NewBlock(512, mustContext(t, "secret"))

	buf := bytes.Repeat([]byte{0x11}, 512)
	got := b.Transform(buf, pager.PurposeLoad)
	if &got[0] != &buf[0] {
		t.Error("load returned a different buffer")
	}
}

func TestJournalWriteUsesReadContext(t *testing.T) {
	oldCtx := mustContext(t, "old")
	newCtx := mustContext(t, "new")

	b := NewBlock(512, oldCtx)
	b.SetWriteContext(newCtx)

	plain := bytes.Repeat([]byte{0x42}, 512)

	jimg := append([]byte(nil), b.Transform(plain, pager.PurposeJournalWrite)...)
	mimg := append([]byte(nil), b.Transform(plain, pager.PurposeMainWrite)...)
	if bytes.Equal(jimg, mimg) {
		t.Fatal("journal image and main image match despite split contexts")
	}

	// The journal image must decrypt under the old key.
	want := make([]byte, 512)
	oldCtx.Transform(want, plain)
	if !bytes.Equal(jimg, want) {
		t.Error("journal image was not encrypted with the read context")
	}
}

func TestNilContextsAreIdentity(t *testing.T) {
	b := NewBlock(512, nil)

	plain := bytes.Repeat([]byte{0x99}, 512)
	orig := append([]byte(nil), plain...)

	for _, purpose := range []pager.Purpose{
		pager.PurposeLoad,
		pager.PurposeReload,
		pager.PurposeUndo,
		pager.PurposeMainWrite,
		pager.PurposeJournalWrite,
	} {
		got := b.Transform(plain, purpose)
		if !bytes.Equal(got, orig) {
			t.Errorf("purpose %v modified data with nil contexts", purpose)
		}
	}
}

func TestPageSizeChanged(t *testing.T) {
	b := NewBlock(512, mustContext(t, "secret"))

	small := bytes.Repeat([]byte{0x01}, 512)
	b.Transform(small, pager.PurposeMainWrite)

	b.PageSizeChanged(4096)

	large := bytes.Repeat([]byte{0x02}, 4096)
	enc := b.Transform(large, pager.PurposeMainWrite)
	if len(enc) != 4096 {
		t.Fatalf("encrypted length = %d, want 4096", len(enc))
	}

	dec := b.Transform(append([]byte(nil), enc...), pager.PurposeLoad)
	if !bytes.Equal(dec, large) {
		t.Error("round trip failed after page size change")
	}
}

func TestFreeClearsContexts(t *testing.T) {
	b := NewBlock(512, mustContext(t, "secret"))
	b.Free()

	if b.ReadContext() != nil || b.WriteContext() != nil {
		t.Error("contexts still set after Free")
	}

	// A freed block must act as identity.
	plain := bytes.Repeat([]byte{0x77}, 512)
	orig := append([]byte(nil), plain...)
	if got := b.Transform(plain, pager.PurposeMainWrite); !bytes.Equal(got, orig) {
		t.Error("freed block still transforms data")
	}
}
