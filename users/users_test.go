package users

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAddAndVerify(t *testing.T) {
	store := NewLocalUsers()
	added, err := store.Add("alice", "secret")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added.PasswordHash == "secret" {
		t.Fatal("password stored in plaintext")
	}

	got, err := store.Get("alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !Verify(got.PasswordHash, "secret") {
		t.Error("correct password rejected")
	}
	if Verify(got.PasswordHash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestGetUnknown(t *testing.T) {
	store := NewLocalUsers()
	if _, err := store.Get("nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(unknown) = %v, want ErrNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	store := NewLocalUsers()
	store.AddHash("bob", "$2a$10$fakehash")
	if old := store.Remove("bob"); old == nil {
		t.Fatal("Remove returned nil for existing user")
	}
	if _, err := store.Get("bob"); !errors.Is(err, ErrNotFound) {
		t.Fatal("user still present after Remove")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	content := "alice,$2a$10$aaaaaaaaaaaaaaaaaaaaaa\n" +
		"\n" +
		"malformed-line\n" +
		",missingname\n" +
		"bob,$2a$10$bbbbbbbbbbbbbbbbbbbbbb\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	store, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := len(store.List()); got != 2 {
		t.Fatalf("loaded %d users, want 2", got)
	}
	u, err := store.Get("bob")
	if err != nil {
		t.Fatalf("Get(bob): %v", err)
	}
	if u.PasswordHash != "$2a$10$bbbbbbbbbbbbbbbbbbbbbb" {
		t.Errorf("bob hash = %q", u.PasswordHash)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
