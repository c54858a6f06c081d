package fileid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDigest(t *testing.T) {
	d1 := Digest([]byte("Save 20% of income"))
	d2 := Digest([]byte("Save 20% of income"))
	if d1 != d2 {
		t.Errorf("same content should give same digest: %q vs %q", d1, d2)
	}
	if !strings.HasPrefix(d1, prefix) {
		t.Errorf("digest should have prefix %q: got %q", prefix, d1)
	}
	if len(d1) != len(prefix)+64 {
		t.Errorf("unexpected digest length: %q", d1)
	}
}

func TestDigest_differentContent(t *testing.T) {
	if Digest([]byte("a")) == Digest([]byte("b")) {
		t.Error("different content should give different digests")
	}
}

func TestDigest_empty(t *testing.T) {
	// sha256 of the empty string
	want := prefix + "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Digest(nil); got != want {
		t.Errorf("Digest(nil) = %q, want %q", got, want)
	}
}

func TestFileDigest_matchesDigest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "budget.pdf")
	content := []byte("%PDF-1.4 not really")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}
	got, err := FileDigest(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != Digest(content) {
		t.Errorf("FileDigest = %q, want %q", got, Digest(content))
	}
}

func TestFileDigest_missing(t *testing.T) {
	if _, err := FileDigest(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
}
