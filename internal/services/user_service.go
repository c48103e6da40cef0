package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rmaeda/annotation-portal/internal/config"
	"github.com/rmaeda/annotation-portal/internal/constants"
	"github.com/rmaeda/annotation-portal/internal/models"
	"github.com/rmaeda/annotation-portal/internal/repository"
	"github.com/rmaeda/annotation-portal/internal/security"
)

var (
	ErrInvalidUsername    = fmt.Errorf("username must be at least %d characters", constants.MinUsernameLength)
	ErrDuplicateUser      = errors.New("username already exists")
	ErrInvalidRole        = errors.New("role must be annotator or admin")
	ErrWeakPassword       = errors.New("password does not meet the policy")
	ErrAdminKeyInvalid    = errors.New("a valid admin key is required to create admin accounts")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserDisabled       = errors.New("account is disabled")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// UserService handles registration, authentication and the account
// lifecycle. Deleting or disabling a user never touches the annotation
// ledger; historical records stay attributed to the username.
type UserService struct {
	users    repository.UserRepository
	policy   config.PasswordPolicy
	adminKey string
}

// NewUserService creates a new UserService.
func NewUserService(users repository.UserRepository, policy config.PasswordPolicy, adminKey string) *UserService {
	return &UserService{
		users:    users,
		policy:   policy,
		adminKey: adminKey,
	}
}

// RegisterInput represents the required information to create an account.
type RegisterInput struct {
	Username string
	Password string
	Role     models.Role
	AdminKey string
}

// Register validates the input and stores a new user with a freshly
// derived password hash. Admin accounts additionally require the
// pre-shared admin creation key.
func (s *UserService) Register(input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if len(username) < constants.MinUsernameLength {
		return nil, ErrInvalidUsername
	}

	role := input.Role
	if role == "" {
		role = models.RoleAnnotator
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if role == models.RoleAdmin {
		if s.adminKey == "" || input.AdminKey != s.adminKey {
			return nil, ErrAdminKeyInvalid
		}
	}

	if err := security.ValidatePassword(input.Password, s.policy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now(),
		IsActive:     true,
	}

	if err := s.users.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate verifies credentials and records the login time. The
// three failure modes stay distinguishable programmatically; user-facing
// flows collapse them into one message.
func (s *UserService) Authenticate(username, password string) (*models.User, error) {
	user, err := s.users.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.users.Update(user); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	return user, nil
}

// Get returns the user with the given username.
func (s *UserService) Get(username string) (*models.User, error) {
	user, err := s.users.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// List returns all users in registration order.
func (s *UserService) List() ([]models.User, error) {
	return s.users.List()
}

// SetActive enables or disables an account. Disabled users cannot
// authenticate; their ledger records remain valid. Returns false when
// the user does not exist.
func (s *UserService) SetActive(username string, active bool) (bool, error) {
	user, err := s.users.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	user.IsActive = active
	if err := s.users.Update(user); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the account. Ledger records bearing the username are
// untouched and stay queryable.
func (s *UserService) Delete(username string) (bool, error) {
	return s.users.Delete(username)
}

// UpdatePassword re-validates the policy before rehashing.
func (s *UserService) UpdatePassword(username, newPassword string) error {
	if err := security.ValidatePassword(newPassword, s.policy); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	user, err := s.users.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	return s.users.Update(user)
}
