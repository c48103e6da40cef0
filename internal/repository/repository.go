package repository

import (
	"errors"

	"github.com/rmaeda/annotation-portal/internal/models"
)

var (
	// ErrNotFound is returned when no user carries the given username.
	ErrNotFound = errors.New("repository: user not found")
	// ErrDuplicate is returned when creating a user whose username is taken.
	ErrDuplicate = errors.New("repository: user already exists")
	// ErrCorrupt is returned when a persisted file exists but cannot be
	// parsed. Write paths must refuse to proceed rather than overwrite
	// the file; read paths may degrade to an empty result after logging.
	ErrCorrupt = errors.New("repository: persisted state is corrupt")
)

// UserRepository stores the live user set.
type UserRepository interface {
	// List returns all users in registration order.
	List() ([]models.User, error)

	// FindByUsername returns the user with the exact username.
	FindByUsername(username string) (*models.User, error)

	// Create adds a new user. Fails with ErrDuplicate when taken.
	Create(user *models.User) error

	// Update replaces the stored user with the same username.
	Update(user *models.User) error

	// Delete removes the user entry. Returns false when absent.
	// Annotation records referencing the username are untouched.
	Delete(username string) (bool, error)
}

// AnnotationRepository is the append-only annotation ledger.
type AnnotationRepository interface {
	// Append durably adds one record, assigning its id and timestamp.
	// It never mutates or removes prior records.
	Append(input models.AnnotationInput) (*models.AnnotationRecord, error)

	// List returns every record in insertion order.
	List() ([]models.AnnotationRecord, error)
}
