package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"pos_service/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type UserUseCase interface {
	CreateUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, id string, password *string, role *domain.Role) (*domain.User, error)
	DeleteUser(ctx context.Context, actorID, id string) error
	EnsureAdmin(ctx context.Context, username, password string) error
}

type userUseCase struct {
	userRepo domain.UserRepository
	log      *logrus.Logger
	cost     int
}

// NewUserUseCase hashes with bcrypt.DefaultCost unless a cost is given.
func NewUserUseCase(repo domain.UserRepository, logger *logrus.Logger, cost ...int) UserUseCase {
	uc := &userUseCase{
		userRepo: repo,
		log:      logger,
		cost:     bcrypt.DefaultCost,
	}
	if len(cost) > 0 {
		uc.cost = cost[0]
	}
	return uc
}

func (uc *userUseCase) CreateUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	uc.log.Infof("Use Case: Attempting to create user: %s", username)

	if username == "" {
		uc.log.Warn("Use Case: User creation failed - empty username")
		return nil, domain.NewValidationError("username", "cannot be empty")
	}
	if role == "" {
		role = domain.RoleSales
	}
	if !domain.IsValidRole(role) {
		uc.log.Warnf("Use Case: User creation failed - unknown role '%s'", role)
		return nil, domain.NewValidationError("role", "must be one of admin, manager, sales")
	}
	if err := validatePassword(password); err != nil {
		uc.log.Warnf("Use Case: User creation failed - password validation error: %v", err)
		return nil, err
	}

	hash, err := uc.hash(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := uc.userRepo.CreateUser(ctx, user)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create user %s: %v", username, err)
		return nil, err
	}
	uc.log.Infof("Use Case: User created successfully. ID: %s, Username: %s, Role: %s", created.ID, created.Username, created.Role)
	return created, nil
}

func (uc *userUseCase) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := uc.userRepo.GetUserByID(ctx, id)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to get user %s: %v", id, err)
		return nil, err
	}
	return user, nil
}

func (uc *userUseCase) ListUsers(ctx context.Context) ([]domain.User, error) {
	return uc.userRepo.ListUsers(ctx)
}

func (uc *userUseCase) UpdateUser(ctx context.Context, id string, password *string, role *domain.Role) (*domain.User, error) {
	user, err := uc.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if role != nil {
		if !domain.IsValidRole(*role) {
			return nil, domain.NewValidationError("role", "must be one of admin, manager, sales")
		}
		user.Role = *role
	}
	if password != nil {
		if err := validatePassword(*password); err != nil {
			return nil, err
		}
		hash, err := uc.hash(*password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = time.Now().UTC()

	updated, err := uc.userRepo.UpdateUser(ctx, user)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to update user %s: %v", id, err)
		return nil, err
	}
	uc.log.Infof("Use Case: User %s updated (role %s)", updated.ID, updated.Role)
	return updated, nil
}

func (uc *userUseCase) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		uc.log.Warnf("Use Case: User %s attempted to delete their own account", id)
		return fmt.Errorf("cannot delete the signed-in account: %w", domain.ErrForbidden)
	}
	if err := uc.userRepo.DeleteUser(ctx, id); err != nil {
		uc.log.Warnf("Use Case: Repository failed to delete user %s: %v", id, err)
		return err
	}
	uc.log.Infof("Use Case: User %s deleted by %s", id, actorID)
	return nil
}

// EnsureAdmin creates the bootstrap administrator when the username is free.
// An existing account with that name is left untouched.
func (uc *userUseCase) EnsureAdmin(ctx context.Context, username, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil
	}
	_, err := uc.userRepo.GetUserByUsername(ctx, username)
	if err == nil {
		uc.log.Debugf("Use Case: Bootstrap admin '%s' already exists", username)
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}
	_, err = uc.CreateUser(ctx, username, password, domain.RoleAdmin)
	if errors.Is(err, domain.ErrUserExists) {
		return nil
	}
	return err
}

func (uc *userUseCase) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), uc.cost)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to hash password: %v", err)
		return "", fmt.Errorf("internal error processing password: %w", err)
	}
	return string(hashed), nil
}

// validatePassword enforces basic password complexity rules.
func validatePassword(password string) error {
	if len(password) < 8 {
		return domain.NewValidationError("password", "must be at least 8 characters long")
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	if !hasUpper {
		return domain.NewValidationError("password", "must contain at least one uppercase letter")
	}
	if !hasLower {
		return domain.NewValidationError("password", "must contain at least one lowercase letter")
	}
	if !hasDigit {
		return domain.NewValidationError("password", "must contain at least one digit")
	}
	return nil
}
