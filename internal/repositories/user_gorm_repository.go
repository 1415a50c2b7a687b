package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nishiisharma/Assignment1.kombee/internal/models"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// ExistsByEmail reports whether a user with the given email exists.
func (r *GORMUserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email %s: %w", email, err)
	}
	return count > 0, nil
}

// Create persists a new user together with its hobby and file rows. GORM
// saves the associations inside the same transaction as the user row.
func (r *GORMUserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID, optionally preloading its hobby and
// file collections.
func (r *GORMUserRepository) GetByID(id string, withChildren bool) (*models.User, error) {
	var user models.User
	query := r.db
	if withChildren {
		query = query.Preload("Hobbies").Preload("Files")
	}
	if err := query.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// Update overwrites the user's scalar fields and replaces its hobby set in a
// single transaction. File rows are left untouched; only registration stores
// files.
func (r *GORMUserRepository) Update(user *models.User) (*models.User, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		if err := tx.First(&existing, "id = ?", user.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load user %s: %w", user.ID, err)
		}

		updates := map[string]interface{}{
			"first_name":     user.FirstName,
			"last_name":      user.LastName,
			"email":          user.Email,
			"contact_number": user.ContactNumber,
			"postcode":       user.Postcode,
			"gender":         user.Gender,
			"address":        user.Address,
			"city":           user.City,
			"state":          user.State,
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update user %s: %w", user.ID, err)
		}

		// Old hobbies are discarded wholesale, never diffed.
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Hobby{}).Error; err != nil {
			return fmt.Errorf("failed to clear hobbies for user %s: %w", user.ID, err)
		}
		if len(user.Hobbies) > 0 {
			hobbies := make([]models.Hobby, len(user.Hobbies))
			for i, h := range user.Hobbies {
				hobbies[i] = models.Hobby{Name: h.Name, UserID: user.ID}
			}
			if err := tx.Create(&hobbies).Error; err != nil {
				return fmt.Errorf("failed to insert hobbies for user %s: %w", user.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(user.ID, true)
}

// Delete removes the user and its hobby and file rows in one transaction.
// The children are deleted explicitly so the cascade holds even on databases
// that do not enforce foreign keys.
func (r *GORMUserRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		if err := tx.First(&existing, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load user %s: %w", id, err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Hobby{}).Error; err != nil {
			return fmt.Errorf("failed to delete hobbies for user %s: %w", id, err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.FileUpload{}).Error; err != nil {
			return fmt.Errorf("failed to delete file uploads for user %s: %w", id, err)
		}
		if err := tx.Delete(&models.User{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete user %s: %w", id, err)
		}
		return nil
	})
}

// List returns one page of users with their children preloaded, ordered by ID
// for deterministic pagination, along with the total user count.
func (r *GORMUserRepository) List(offset, limit int) ([]models.User, int64, error) {
	var total int64
	if err := r.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := r.db.Preload("Hobbies").Preload("Files").
		Order("id").Offset(offset).Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}
