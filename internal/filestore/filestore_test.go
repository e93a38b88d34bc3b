package filestore

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocal_SaveAndOpen(t *testing.T) {
	store, err := NewLocal(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	const hash = "ab12cd34"
	n, err := store.Save(strings.NewReader("hello blob"), hash)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != int64(len("hello blob")) {
		t.Errorf("Save wrote %d bytes, want %d", n, len("hello blob"))
	}

	rc, err := store.Open(hash)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello blob" {
		t.Errorf("read %q, want %q", data, "hello blob")
	}

	// Blobs are sharded by hash prefix.
	if _, err := os.Stat(filepath.Join(store.root, "ab", hash)); err != nil {
		t.Errorf("blob not at sharded path: %v", err)
	}
}

func TestLocal_SaveIdempotent(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	const hash = "ffee0011"
	if _, err := store.Save(strings.NewReader("original"), hash); err != nil {
		t.Fatal(err)
	}

	// Second save under the same hash keeps the original content and
	// reports its size.
	n, err := store.Save(strings.NewReader("different, longer content"), hash)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len("original")) {
		t.Errorf("repeated Save returned %d, want existing size %d", n, len("original"))
	}

	rc, err := store.Open(hash)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "original" {
		t.Errorf("content overwritten: %q", data)
	}
}

func TestLocal_OpenMissing(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Open("deadbeef"); err == nil {
		t.Error("Open of missing blob succeeded")
	}
}
