package hasher

import (
	"path/filepath"
	"testing"

	"github.com/cfd-dev/deduplicate-files/internal/testutil"
	"github.com/cfd-dev/deduplicate-files/internal/types"
)

func TestExactKnownDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	testutil.WriteFile(t, path, "hello")

	got, err := Exact(path)
	if err != nil {
		t.Fatalf("Exact() failed: %v", err)
	}
	// md5("hello")
	want := "5d41402abc4b2a76b9719d911017c592"
	if got != want {
		t.Errorf("Exact() = %q, want %q", got, want)
	}
}

func TestExactDeterminism(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	testutil.WriteFile(t, path, "some file content that spans a single block")

	first, err := Exact(path)
	if err != nil {
		t.Fatalf("Exact() failed: %v", err)
	}
	second, err := Exact(path)
	if err != nil {
		t.Fatalf("Exact() failed: %v", err)
	}
	if first != second {
		t.Errorf("digests differ: %q vs %q", first, second)
	}
}

func TestExactLargeFileSpansBlocks(t *testing.T) {
	// Content larger than one 8 KiB read block
	content := make([]byte, 3*blockSize+17)
	for i := range content {
		content[i] = byte(i % 251)
	}
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	testutil.WriteFile(t, a, string(content))
	testutil.WriteFile(t, b, string(content))

	hashA, err := Exact(a)
	if err != nil {
		t.Fatalf("Exact(a) failed: %v", err)
	}
	hashB, err := Exact(b)
	if err != nil {
		t.Fatalf("Exact(b) failed: %v", err)
	}
	if hashA != hashB {
		t.Errorf("identical content hashed differently: %q vs %q", hashA, hashB)
	}
}

func TestExactMissingFile(t *testing.T) {
	if _, err := Exact(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("Exact() on missing file succeeded, want error")
	}
}

func TestFingerprintDispatch(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "doc.txt")
	testutil.WriteFile(t, txt, "plain content")
	digest, err := Fingerprint(txt, types.KindOf(txt))
	if err != nil {
		t.Fatalf("Fingerprint(generic) failed: %v", err)
	}
	if len(digest) != 32 {
		t.Errorf("generic fingerprint has %d hex chars, want 32", len(digest))
	}

	img := filepath.Join(dir, "pic.png")
	testutil.WritePNG(t, img, testutil.Gradient(64, 64))
	code, err := Fingerprint(img, types.KindOf(img))
	if err != nil {
		t.Fatalf("Fingerprint(image) failed: %v", err)
	}
	if len(code) != 14 {
		t.Errorf("perceptual fingerprint has %d hex chars, want 14", len(code))
	}
}
