package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ErrInvalidCredentials is returned for an unknown user or wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// Directory is the in-memory set of login accounts.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{accounts: make(map[string]domain.Account)}
}

// SeedDefaults registers the demo admin and user accounts.
func SeedDefaults(adminPassword, userPassword string, cost int) (*Directory, error) {
	dir := NewDirectory()
	if err := dir.Add("admin", adminPassword, domain.AccountRoleAdmin, cost); err != nil {
		return nil, err
	}
	if err := dir.Add("user", userPassword, domain.AccountRoleUser, cost); err != nil {
		return nil, err
	}
	return dir, nil
}

// Add registers or replaces an account.
func (d *Directory) Add(username, password string, role domain.AccountRole, cost int) error {
	hash, err := HashPassword(password, cost)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[username] = domain.Account{Username: username, PasswordHash: hash, Role: role}
	return nil
}

// Authenticate checks a username/password pair.
func (d *Directory) Authenticate(username, password string) (*domain.Account, error) {
	d.mu.RLock()
	account, ok := d.accounts[username]
	d.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := ComparePassword(account.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &account, nil
}
