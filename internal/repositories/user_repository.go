package repositories

import (
	"errors"

	"github.com/nishiisharma/Assignment1.kombee/internal/models"
)

// ErrNotFound is returned when the targeted user does not exist.
var ErrNotFound = errors.New("user not found")

// UserRepository defines the interface for user data access. Create, Update
// and Delete each execute as a single transaction so partial writes are never
// observable.
type UserRepository interface {
	// ExistsByEmail reports whether a user with the given email is registered.
	ExistsByEmail(email string) (bool, error)
	// Create assigns an ID and persists the user with its hobby and file rows.
	Create(user *models.User) error
	// GetByEmail retrieves a user by email, without children.
	GetByEmail(email string) (*models.User, error)
	// GetByID retrieves a user by ID, optionally preloading children.
	GetByID(id string, withChildren bool) (*models.User, error)
	// Update overwrites the user's scalar fields and wholly replaces its
	// hobby set, returning the stored snapshot.
	Update(user *models.User) (*models.User, error)
	// Delete removes the user and cascades its hobby and file rows.
	Delete(id string) error
	// List returns a stable ID-ordered page of users with children, plus the
	// total user count.
	List(offset, limit int) ([]models.User, int64, error)
}
