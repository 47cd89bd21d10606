package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos_service/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type AuthUseCase interface {
	Login(ctx context.Context, username, password string) (*domain.Session, *domain.User, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
}

type authUseCase struct {
	userRepo domain.UserRepository
	sessions domain.SessionStore
	ttl      time.Duration
	log      *logrus.Logger
	now      func() time.Time
}

func NewAuthUseCase(users domain.UserRepository, sessions domain.SessionStore, ttl time.Duration, logger *logrus.Logger) AuthUseCase {
	return &authUseCase{
		userRepo: users,
		sessions: sessions,
		ttl:      ttl,
		log:      logger,
		now:      time.Now,
	}
}

func (uc *authUseCase) Login(ctx context.Context, username, password string) (*domain.Session, *domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	uc.log.Infof("Use Case: Attempting authentication for user: %s", username)

	if username == "" || password == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}

	user, err := uc.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			uc.log.Warnf("Use Case: Auth failed - user not found: %s", username)
			return nil, nil, domain.ErrInvalidCredentials
		}
		uc.log.Errorf("Use Case: Error retrieving user %s during auth: %v", username, err)
		return nil, nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			uc.log.Warnf("Use Case: Auth failed - incorrect password for user %s (ID: %s)", username, user.ID)
			return nil, nil, domain.ErrInvalidCredentials
		}
		uc.log.Errorf("Use Case: Error comparing password hash for user %s: %v", username, err)
		return nil, nil, fmt.Errorf("internal error during authentication: %w", err)
	}

	session := &domain.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		ExpiresAt: uc.now().UTC().Add(uc.ttl),
	}
	if err := uc.sessions.Create(ctx, session); err != nil {
		uc.log.Errorf("Use Case: Failed to store session for user %s: %v", username, err)
		return nil, nil, fmt.Errorf("could not create session: %w", err)
	}

	uc.log.Infof("Use Case: Authentication successful for user %s (ID: %s)", username, user.ID)
	return session, user, nil
}

func (uc *authUseCase) Logout(ctx context.Context, token string) error {
	if err := uc.sessions.Delete(ctx, token); err != nil {
		uc.log.Warnf("Use Case: Failed to remove session: %v", err)
		return err
	}
	return nil
}

func (uc *authUseCase) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrSessionNotFound
	}
	session, err := uc.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.Expired(uc.now()) {
		_ = uc.sessions.Delete(ctx, token)
		return nil, domain.ErrSessionNotFound
	}

	// Role and username come from the user record, not the login snapshot.
	user, err := uc.userRepo.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			uc.log.Warnf("Use Case: Session for removed user %s revoked", session.UserID)
			_ = uc.sessions.Delete(ctx, token)
			return nil, domain.ErrSessionNotFound
		}
		uc.log.Errorf("Use Case: Error loading user %s for session: %v", session.UserID, err)
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	if user.Role != session.Role {
		uc.log.Infof("Use Case: Role for user %s changed from %s to %s", user.ID, session.Role, user.Role)
	}
	session.Role = user.Role
	session.Username = user.Username
	return session, nil
}
