package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"podstudio/internal/services"
)

func TestEnsureWithinAcceptsDescendant(t *testing.T) {
	base := t.TempDir()
	candidate := filepath.Join(base, "uploads", "seg_1.mp3")

	got, err := EnsureWithin(base, candidate)
	if err != nil {
		t.Fatalf("EnsureWithin: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Fatalf("expected absolute path, got %q", got)
	}
}

func TestEnsureWithinAcceptsBaseItself(t *testing.T) {
	base := t.TempDir()
	if _, err := EnsureWithin(base, base); err != nil {
		t.Fatalf("EnsureWithin(base, base): %v", err)
	}
}

func TestEnsureWithinRejectsDotDot(t *testing.T) {
	base := t.TempDir()
	candidate := filepath.Join(base, "..", "evil.mp3")

	_, err := EnsureWithin(base, candidate)
	if err == nil {
		t.Fatal("expected path escape error")
	}
	if !errors.Is(err, services.ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape, got %v", err)
	}
}

func TestEnsureWithinRejectsSibling(t *testing.T) {
	parent := t.TempDir()
	base := filepath.Join(parent, "episodes")
	sibling := filepath.Join(parent, "episodes-evil", "a.mp3")
	if err := os.MkdirAll(base, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := EnsureWithin(base, sibling); !errors.Is(err, services.ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape for sibling prefix, got %v", err)
	}
}

func TestEnsureWithinRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink semantics differ on windows")
	}
	parent := t.TempDir()
	base := filepath.Join(parent, "base")
	outside := filepath.Join(parent, "outside")
	for _, dir := range []string{base, outside} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	link := filepath.Join(base, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}

	_, err := EnsureWithin(base, filepath.Join(link, "a.mp3"))
	if !errors.Is(err, services.ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape through symlink, got %v", err)
	}
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists existing: %v", err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists missing: %v", err)
	}
}

func TestNonEmptyFile(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	full := filepath.Join(dir, "full")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	if NonEmptyFile(empty) {
		t.Fatal("empty file reported non-empty")
	}
	if !NonEmptyFile(full) {
		t.Fatal("non-empty file reported empty")
	}
	if NonEmptyFile(filepath.Join(dir, "missing")) {
		t.Fatal("missing file reported non-empty")
	}
}
