package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rmaeda/annotation-portal/internal/models"
)

// FileUserRepository keeps the user set in a single JSON array file,
// rewritten in full on every mutation. A process-wide mutex serializes
// the read-modify-write cycle so near-simultaneous mutations cannot
// lose writes.
type FileUserRepository struct {
	path string
	mu   sync.RWMutex
}

// NewFileUserRepository creates the annotations directory and the users
// file (as an empty array) when missing.
func NewFileUserRepository(dir string) (*FileUserRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create annotations dir: %w", err)
	}
	r := &FileUserRepository{path: filepath.Join(dir, "users.json")}
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		if err := r.save(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileUserRepository) load() ([]models.User, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, r.path, err)
	}
	return users, nil
}

func (r *FileUserRepository) save(users []models.User) error {
	if users == nil {
		users = []models.User{}
	}
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal users: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	return nil
}

// List returns all users in registration order.
func (r *FileUserRepository) List() ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.load()
}

// FindByUsername matches case-sensitively.
func (r *FileUserRepository) FindByUsername(username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			u := users[i]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// Create adds a new user, failing on a taken username or a corrupt file.
func (r *FileUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Username == user.Username {
			return ErrDuplicate
		}
	}
	return r.save(append(users, *user))
}

// Update replaces the stored user with the same username.
func (r *FileUserRepository) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Username == user.Username {
			users[i] = *user
			return r.save(users)
		}
	}
	return ErrNotFound
}

// Delete removes the user entry; annotation history is untouched.
func (r *FileUserRepository) Delete(username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return false, err
	}
	for i := range users {
		if users[i].Username == username {
			return true, r.save(append(users[:i], users[i+1:]...))
		}
	}
	return false, nil
}
