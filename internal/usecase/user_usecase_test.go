package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"pos_service/internal/domain"
	"pos_service/internal/repository"
	"pos_service/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAccounts(t *testing.T) (UserUseCase, *authUseCase) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := repository.NewMemoryStore(logger)
	users := NewUserUseCase(store.Users(), logger, bcrypt.MinCost)
	auth := NewAuthUseCase(store.Users(), session.NewMemoryStore(), time.Hour, logger).(*authUseCase)
	return users, auth
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"Short1", false},
		{"alllowercase1", false},
		{"ALLUPPERCASE1", false},
		{"NoDigitsHere", false},
		{"Secur3Pass", true},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := validatePassword(tt.password)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrValidation)
			}
		})
	}
}

func TestCreateUser(t *testing.T) {
	users, _ := newAccounts(t)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, " Alice ", "Secur3Pass", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, domain.RoleSales, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Secur3Pass")))

	_, err = users.CreateUser(ctx, "alice", "Secur3Pass", domain.RoleManager)
	assert.ErrorIs(t, err, domain.ErrUserExists)

	_, err = users.CreateUser(ctx, "bob", "Secur3Pass", domain.Role("owner"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	users, _ := newAccounts(t)
	ctx := context.Background()

	admin, err := users.CreateUser(ctx, "admin", "Secur3Pass", domain.RoleAdmin)
	require.NoError(t, err)
	clerk, err := users.CreateUser(ctx, "clerk", "Secur3Pass", domain.RoleSales)
	require.NoError(t, err)

	manager := domain.RoleManager
	updated, err := users.UpdateUser(ctx, clerk.ID, nil, &manager)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, updated.Role)

	weak := "weak"
	_, err = users.UpdateUser(ctx, clerk.ID, &weak, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.ErrorIs(t, users.DeleteUser(ctx, admin.ID, admin.ID), domain.ErrForbidden)
	require.NoError(t, users.DeleteUser(ctx, admin.ID, clerk.ID))
	_, err = users.GetUserByID(ctx, clerk.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	users, _ := newAccounts(t)
	ctx := context.Background()

	require.NoError(t, users.EnsureAdmin(ctx, "root", "Secur3Pass"))
	require.NoError(t, users.EnsureAdmin(ctx, "root", "Different9Pass"))

	all, err := users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.RoleAdmin, all[0].Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(all[0].PasswordHash), []byte("Secur3Pass")))
}

func TestLoginLogoutAuthenticate(t *testing.T) {
	users, auth := newAccounts(t)
	ctx := context.Background()

	_, err := users.CreateUser(ctx, "alice", "Secur3Pass", domain.RoleSales)
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, "alice", "WrongPass1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, _, err = auth.Login(ctx, "nobody", "Secur3Pass")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	sess, user, err := auth.Login(ctx, "ALICE", "Secur3Pass")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, sess.Token)

	got, err := auth.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
	assert.Equal(t, domain.RoleSales, got.Role)

	require.NoError(t, auth.Logout(ctx, sess.Token))
	_, err = auth.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAuthenticate_ExpiredSession(t *testing.T) {
	users, auth := newAccounts(t)
	ctx := context.Background()

	_, err := users.CreateUser(ctx, "alice", "Secur3Pass", domain.RoleSales)
	require.NoError(t, err)
	sess, _, err := auth.Login(ctx, "alice", "Secur3Pass")
	require.NoError(t, err)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAuthenticate_UsesCurrentUserRecord(t *testing.T) {
	users, auth := newAccounts(t)
	ctx := context.Background()

	admin, err := users.CreateUser(ctx, "admin", "Secur3Pass", domain.RoleAdmin)
	require.NoError(t, err)
	bob, err := users.CreateUser(ctx, "bob", "Secur3Pass", domain.RoleManager)
	require.NoError(t, err)
	sess, _, err := auth.Login(ctx, "bob", "Secur3Pass")
	require.NoError(t, err)

	sales := domain.RoleSales
	_, err = users.UpdateUser(ctx, bob.ID, nil, &sales)
	require.NoError(t, err)
	got, err := auth.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSales, got.Role)

	require.NoError(t, users.DeleteUser(ctx, admin.ID, bob.ID))
	_, err = auth.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
