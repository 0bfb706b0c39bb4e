// Package users holds the credential store the FTP server authenticates
// against. Passwords are never stored; only bcrypt hashes are kept, either
// preloaded from a credentials file or computed by Add.
package users

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound is returned by Get for unknown usernames.
var ErrNotFound = errors.New("user not found")

// User is a single credential-store entry.
type User struct {
	Username     string
	PasswordHash string
}

// Users is the read-only lookup capability injected into the server.
// Implementations must be safe for concurrent use.
type Users interface {
	// Get finds a user by username. It returns ErrNotFound for unknown
	// names; callers must not reveal through the wire whether a name exists.
	Get(username string) (*User, error)
}

var _ Users = &LocalUsers{}

// LocalUsers is an in-memory credential store.
type LocalUsers struct {
	users map[string]*User
	mu    sync.RWMutex
}

func NewLocalUsers() *LocalUsers {
	return &LocalUsers{
		users: make(map[string]*User),
	}
}

func (u *LocalUsers) Get(username string) (*User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

// List returns a snapshot of all stored users.
func (u *LocalUsers) List() map[string]*User {
	u.mu.RLock()
	defer u.mu.RUnlock()
	snapshot := make(map[string]*User, len(u.users))
	for name, user := range u.users {
		snapshot[name] = user
	}
	return snapshot
}

// Add hashes the given plaintext password with bcrypt and stores the user,
// replacing any existing entry with the same name.
func (u *LocalUsers) Add(username, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return u.AddHash(username, string(hash)), nil
}

// AddHash stores a user with a precomputed bcrypt hash.
func (u *LocalUsers) AddHash(username, hash string) *User {
	u.mu.Lock()
	defer u.mu.Unlock()
	user := &User{
		Username:     username,
		PasswordHash: hash,
	}
	u.users[username] = user
	return user
}

func (u *LocalUsers) Remove(username string) *User {
	u.mu.Lock()
	defer u.mu.Unlock()
	old := u.users[username]
	delete(u.users, username)
	return old
}

// Verify reports whether password matches the stored bcrypt hash.
func Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// LoadFile reads a credentials file of "username,bcrypt-hash" lines into a
// LocalUsers store. Lines that do not split into exactly two fields are
// skipped.
func LoadFile(path string) (*LocalUsers, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening credentials file: %w", err)
	}
	defer f.Close()

	store := NewLocalUsers()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.SplitN(strings.TrimSpace(scanner.Text()), ",", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		store.AddHash(parts[0], parts[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	return store, nil
}
