package services

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/nishiisharma/Assignment1.kombee/internal/models"
	"github.com/nishiisharma/Assignment1.kombee/internal/repositories"
	"github.com/nishiisharma/Assignment1.kombee/internal/security"
	"github.com/nishiisharma/Assignment1.kombee/internal/storage"
	"github.com/nishiisharma/Assignment1.kombee/pkg/rabbitmq"
)

var (
	// ErrEmailTaken is returned when registering with an email that is
	// already in use.
	ErrEmailTaken = errors.New("email already in use")
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password, deliberately without distinguishing which.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DefaultPageSize is the page size used when the caller does not supply one.
const DefaultPageSize = 10

// UploadedFile is one file submitted with a registration.
type UploadedFile struct {
	Name    string
	Content io.Reader
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	FirstName       string   `form:"first_name" json:"first_name" validate:"required,max=50"`
	LastName        string   `form:"last_name" json:"last_name" validate:"required,max=50"`
	Email           string   `form:"email" json:"email" validate:"required,email"`
	ContactNumber   string   `form:"contact_number" json:"contact_number" validate:"required,e164|numeric"`
	Postcode        string   `form:"postcode" json:"postcode" validate:"required,max=6"`
	Password        string   `form:"password" json:"password" validate:"required,min=6"`
	ConfirmPassword string   `form:"confirm_password" json:"confirm_password" validate:"required,eqfield=Password"`
	Gender          string   `form:"gender" json:"gender" validate:"required"`
	Address         string   `form:"address" json:"address" validate:"required"`
	City            string   `form:"city" json:"city" validate:"required"`
	State           string   `form:"state" json:"state" validate:"required"`
	Hobbies         []string `form:"hobbies" json:"hobbies" validate:"required,min=1,dive,required"`

	// Files are attached by the handler from the multipart form; they are
	// not part of the validated field set.
	Files []UploadedFile `form:"-" json:"-" validate:"-"`
}

// UpdateInput carries an update request: scalar fields plus the replacement
// hobby set. Files cannot be changed after registration.
type UpdateInput struct {
	FirstName     string   `json:"first_name" validate:"required,max=50"`
	LastName      string   `json:"last_name" validate:"required,max=50"`
	Email         string   `json:"email" validate:"required,email"`
	ContactNumber string   `json:"contact_number" validate:"required,e164|numeric"`
	Postcode      string   `json:"postcode" validate:"required,max=6"`
	Gender        string   `json:"gender" validate:"required"`
	Address       string   `json:"address" validate:"required"`
	City          string   `json:"city" validate:"required"`
	State         string   `json:"state" validate:"required"`
	Hobbies       []string `json:"hobbies" validate:"required,min=1,dive,required"`
}

// UserSummary is the listing projection of a user: scalar fields plus hobby
// and file names. The password hash and stored file paths are never exposed.
type UserSummary struct {
	ID            string   `json:"id"`
	FirstName     string   `json:"first_name"`
	LastName      string   `json:"last_name"`
	Email         string   `json:"email"`
	ContactNumber string   `json:"contact_number"`
	Postcode      string   `json:"postcode"`
	Gender        string   `json:"gender"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	Hobbies       []string `json:"hobbies"`
	Files         []string `json:"files"`
}

// UserPage is one page of the user listing.
type UserPage struct {
	TotalCount  int64         `json:"total_count"`
	CurrentPage int           `json:"current_page"`
	PageSize    int           `json:"page_size"`
	Users       []UserSummary `json:"users"`
}

// AccountService orchestrates registration, login, update, delete and
// listing against its collaborators. It holds no per-request state.
type AccountService struct {
	userRepo repositories.UserRepository
	stash    storage.FileStash
	hasher   *security.PasswordHasher
	tokens   *security.TokenIssuer
	mqClient *rabbitmq.Client // optional; nil disables event publishing
}

// NewAccountService creates a new AccountService. mqClient may be nil.
func NewAccountService(userRepo repositories.UserRepository, stash storage.FileStash, hasher *security.PasswordHasher, tokens *security.TokenIssuer, mqClient *rabbitmq.Client) *AccountService {
	return &AccountService{
		userRepo: userRepo,
		stash:    stash,
		hasher:   hasher,
		tokens:   tokens,
		mqClient: mqClient,
	}
}

// Register creates a new account: rejects a duplicate email, hashes the
// password, stores every uploaded file, and persists the user with its hobby
// and file rows. A file storage failure aborts the whole registration so no
// user row is left referencing missing files. No token is issued here; login
// is a separate step.
func (s *AccountService) Register(in *RegisterInput) error {
	exists, err := s.userRepo.ExistsByEmail(in.Email)
	if err != nil {
		return fmt.Errorf("failed to check email availability: %w", err)
	}
	if exists {
		return ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		ContactNumber: in.ContactNumber,
		Postcode:      in.Postcode,
		PasswordHash:  passwordHash,
		Gender:        in.Gender,
		Address:       in.Address,
		City:          in.City,
		State:         in.State,
	}
	for _, name := range in.Hobbies {
		user.Hobbies = append(user.Hobbies, models.Hobby{Name: name})
	}

	// All files must be durably stored before the user row is committed.
	for _, f := range in.Files {
		path, err := s.stash.Store(f.Name, f.Content)
		if err != nil {
			return fmt.Errorf("failed to store uploaded file %s: %w", f.Name, err)
		}
		user.Files = append(user.Files, models.FileUpload{FileName: f.Name, FilePath: path})
	}

	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	s.publishEvent("user.registered", map[string]interface{}{
		"userID": user.ID,
		"email":  user.Email,
	})
	return nil
}

// Login verifies the credentials and returns a signed token. Unknown email
// and wrong password both surface as ErrInvalidCredentials so callers cannot
// probe which check failed.
func (s *AccountService) Login(email, password string) (string, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Email, user.ID, user.FirstName+" "+user.LastName)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

// Update overwrites the user's scalar fields and replaces its hobby set,
// returning the stored snapshot. repositories.ErrNotFound propagates when the
// target does not exist.
func (s *AccountService) Update(id string, in *UpdateInput) (*models.User, error) {
	user := &models.User{
		ID:            id,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		ContactNumber: in.ContactNumber,
		Postcode:      in.Postcode,
		Gender:        in.Gender,
		Address:       in.Address,
		City:          in.City,
		State:         in.State,
	}
	for _, name := range in.Hobbies {
		user.Hobbies = append(user.Hobbies, models.Hobby{Name: name})
	}

	updated, err := s.userRepo.Update(user)
	if err != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", id, err)
	}

	s.publishEvent("user.updated", map[string]interface{}{
		"userID": updated.ID,
		"email":  updated.Email,
	})
	return updated, nil
}

// Delete removes the user and its hobby and file rows.
// repositories.ErrNotFound propagates when the target does not exist.
func (s *AccountService) Delete(id string) error {
	if err := s.userRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}

	s.publishEvent("user.deleted", map[string]interface{}{
		"userID": id,
	})
	return nil
}

// List returns one page of the user listing. Page numbers are 1-based and
// non-positive page or size values fall back to the defaults.
func (s *AccountService) List(page, pageSize int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	users, total, err := s.userRepo.List((page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	summaries := make([]UserSummary, 0, len(users))
	for _, u := range users {
		summary := UserSummary{
			ID:            u.ID,
			FirstName:     u.FirstName,
			LastName:      u.LastName,
			Email:         u.Email,
			ContactNumber: u.ContactNumber,
			Postcode:      u.Postcode,
			Gender:        u.Gender,
			Address:       u.Address,
			City:          u.City,
			State:         u.State,
			Hobbies:       make([]string, 0, len(u.Hobbies)),
			Files:         make([]string, 0, len(u.Files)),
		}
		for _, h := range u.Hobbies {
			summary.Hobbies = append(summary.Hobbies, h.Name)
		}
		for _, f := range u.Files {
			summary.Files = append(summary.Files, f.FileName)
		}
		summaries = append(summaries, summary)
	}

	return &UserPage{
		TotalCount:  total,
		CurrentPage: page,
		PageSize:    pageSize,
		Users:       summaries,
	}, nil
}

// publishEvent publishes an account lifecycle event if a RabbitMQ client is
// configured. Publishing is best effort and never fails the request.
func (s *AccountService) publishEvent(event string, data map[string]interface{}) {
	if s.mqClient == nil {
		return
	}
	if err := s.mqClient.PublishAccountEvent(event, data); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", event, err)
	}
}
