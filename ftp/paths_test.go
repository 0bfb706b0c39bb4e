package ftp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testSession(t *testing.T) *Session {
	t.Helper()
	return &Session{
		userRoot:   t.TempDir(),
		workingDir: "/",
	}
}

func TestResolve(t *testing.T) {
	s := testSession(t)
	s.workingDir = "/docs"
	root := s.userRoot

	tests := []struct {
		arg  string
		want string
	}{
		{"", filepath.Join(root, "docs")},
		{"/", root},
		{"/a/b.txt", filepath.Join(root, "a", "b.txt")},
		{"b.txt", filepath.Join(root, "docs", "b.txt")},
		{"../up.txt", filepath.Join(root, "up.txt")},
		{"sub/../b.txt", filepath.Join(root, "docs", "b.txt")},
	}
	for _, tt := range tests {
		if got := s.resolve(tt.arg); got != tt.want {
			t.Errorf("resolve(%q) = %q, want %q", tt.arg, got, tt.want)
		}
	}
}

func TestResolveUnderCwd(t *testing.T) {
	s := testSession(t)
	s.workingDir = "/docs"
	want := filepath.Join(s.userRoot, "docs", "up.txt")
	if got := s.resolveUnderCwd("up.txt"); got != want {
		t.Errorf("resolveUnderCwd = %q, want %q", got, want)
	}
}

func TestIsDescendant(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	if !isDescendant(root, sub) {
		t.Error("direct child not recognized as descendant")
	}
	if isDescendant(root, root) {
		t.Error("root must not be its own descendant")
	}
	if isDescendant(root, filepath.Dir(root)) {
		t.Error("parent recognized as descendant")
	}
	// Sibling whose name shares the root as a prefix.
	if isDescendant(root, root+"2") {
		t.Error("prefix sibling recognized as descendant")
	}
}

func TestIsDescendantThroughSymlink(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if isDescendant(root, link) {
		t.Error("symlink to outside dir counted as descendant")
	}
}

func TestIsWithinRoot(t *testing.T) {
	root := t.TempDir()
	if !isWithinRoot(root, root) {
		t.Error("root must count as within itself")
	}
	if !isWithinRoot(root, filepath.Join(root, "new", "deep")) {
		t.Error("nonexistent nested target rejected")
	}
	if isWithinRoot(root, filepath.Join(root, "..", "other")) {
		t.Error("lexical escape accepted")
	}
}

func TestRelativeToRoot(t *testing.T) {
	s := testSession(t)
	sub := filepath.Join(s.userRoot, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if got := s.relativeToRoot(s.userRoot); got != "/" {
		t.Errorf("relativeToRoot(root) = %q, want /", got)
	}
	if got := s.relativeToRoot(sub); got != "/a/b" {
		t.Errorf("relativeToRoot(sub) = %q, want /a/b", got)
	}
}

func TestStatRegularFile(t *testing.T) {
	s := testSession(t)
	file := filepath.Join(s.userRoot, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(s.userRoot, "d")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := s.statRegularFile(file); err != nil {
		t.Errorf("existing file: %v", err)
	}
	if _, err := s.statRegularFile(dir); !errors.Is(err, ErrNotFound) {
		t.Errorf("directory: got %v, want ErrNotFound", err)
	}
	if _, err := s.statRegularFile(filepath.Join(s.userRoot, "absent")); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}
	if _, err := s.statRegularFile(filepath.Join(s.userRoot, "..", "f")); !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("escape: got %v, want ErrOutsideRoot", err)
	}
}

func TestStatDir(t *testing.T) {
	s := testSession(t)
	dir := filepath.Join(s.userRoot, "d")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := s.statDir(dir); err != nil {
		t.Errorf("existing dir: %v", err)
	}
	if _, err := s.statDir(s.userRoot); err != nil {
		t.Errorf("root itself: %v", err)
	}
	if _, err := s.statDir(filepath.Join(s.userRoot, "absent")); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}
	if _, err := s.statDir(filepath.Dir(s.userRoot)); !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("parent of root: got %v, want ErrOutsideRoot", err)
	}
}
