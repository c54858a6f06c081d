package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/finbot/internal/indexer"
	"github.com/hyperjump/finbot/internal/models"
)

// fakeIngester records paths and reports repeats as already ingested.
type fakeIngester struct {
	mu    sync.Mutex
	paths []string
	seen  map[string]bool
}

func (f *fakeIngester) IngestPath(ctx context.Context, path, userID, source string, skipKnown bool) (*models.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if userID != Uploader || source != models.SourceWatcher || !skipKnown {
		return nil, os.ErrInvalid
	}
	if f.seen[path] {
		return nil, indexer.ErrAlreadyIngested
	}
	f.seen[path] = true
	f.paths = append(f.paths, path)
	return &models.UploadResult{Success: true, DocumentsProcessed: 1, TotalChunksCreated: 1}, nil
}

func (f *fakeIngester) ingested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func startWatcher(t *testing.T, ing Ingester, roots ...string) *Watcher {
	t.Helper()
	w := NewWatcher(ing, roots, WithDebounce(50*time.Millisecond), WithLogger(zap.NewNop()))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		w.Stop()
		cancel()
	})
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	return w
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, &fakeIngester{})

	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}
	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
}

func TestWatcher_AddDirectoryBeforeStart(t *testing.T) {
	w := NewWatcher(&fakeIngester{}, nil)
	if err := w.AddDirectory(t.TempDir(), false); err == nil {
		t.Error("expected error before Start")
	}
}

func TestWatcher_IngestsSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	ing := &fakeIngester{}
	startWatcher(t, ing, dir)

	for name, content := range map[string]string{
		"guide.pdf":   "%PDF",
		"notes.txt":   "ignored",
		".~lock.docx": "ignored",
	} {
		if err := writeFile(filepath.Join(dir, name), content); err != nil {
			t.Fatal(err)
		}
	}
	if !waitFor(t, func() bool { return len(ing.ingested()) >= 1 }) {
		t.Fatal("guide.pdf was not ingested")
	}
	time.Sleep(200 * time.Millisecond)
	got := ing.ingested()
	if len(got) != 1 || !strings.HasSuffix(got[0], "guide.pdf") {
		t.Errorf("ingested = %v", got)
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.docx", "b.xlsx", "skip.md"} {
		if err := writeFile(filepath.Join(dir, name), "x"); err != nil {
			t.Fatal(err)
		}
	}
	if err := mkdirAll(filepath.Join(dir, ".cache")); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, ".cache", "c.pdf"), "x"); err != nil {
		t.Fatal(err)
	}

	ing := &fakeIngester{}
	w := startWatcher(t, ing, dir)
	w.SyncExistingFiles()
	w.SyncExistingFiles() // second pass only hits known files

	got := ing.ingested()
	if len(got) != 2 {
		t.Fatalf("ingested = %v, want a.docx and b.xlsx", got)
	}
	for _, p := range got {
		if !strings.HasSuffix(p, "a.docx") && !strings.HasSuffix(p, "b.xlsx") {
			t.Errorf("unexpected file %s", p)
		}
	}
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	startWatcher(t, &fakeIngester{}, root)
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_NewDirectoryIsIngested(t *testing.T) {
	dir := t.TempDir()
	ing := &fakeIngester{}
	startWatcher(t, ing, dir)

	nested := filepath.Join(dir, "level1", "level2")
	if err := mkdirAll(nested); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "deep.pdf"), "x"); err != nil {
		t.Fatal(err)
	}
	found := waitFor(t, func() bool {
		for _, p := range ing.ingested() {
			if strings.HasSuffix(p, "deep.pdf") {
				return true
			}
		}
		return false
	})
	if !found {
		t.Errorf("expected deep.pdf to be ingested, got %v", ing.ingested())
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.pdf", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
		{"/tmp/a", "/tmp/ab", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, filepath.Clean(tt.path)); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestIsHidden(t *testing.T) {
	for name, want := range map[string]bool{".~lock.x.docx#": true, ".git": true, "guide.pdf": false, "a.b": false} {
		if got := isHidden(name); got != want {
			t.Errorf("isHidden(%q) = %v, want %v", name, got, want)
		}
	}
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
