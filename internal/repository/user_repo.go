package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos_service/internal/domain"

	"github.com/sirupsen/logrus"
)

const userColumns = `id, username, password_hash, role, created_at, updated_at`

type postgresUserRepository struct {
	db  DBTX
	log *logrus.Logger
}

func NewPostgresUserRepository(db DBTX, logger *logrus.Logger) domain.UserRepository {
	return &postgresUserRepository{
		db:  db,
		log: logger,
	}
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var role string
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return user, nil
}

func (r *postgresUserRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
        INSERT INTO users (id, username, password_hash, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`

	r.log.Debugf("Repository: Attempting to create user: %s", user.Username)

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.PasswordHash, string(user.Role), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if pqErrorCode(err) == pqUniqueViolation {
			r.log.Warnf("Repository: Attempted to create user with duplicate username: %s", user.Username)
			return nil, domain.ErrUserExists
		}
		r.log.Errorf("Repository: Failed to create user '%s': %v", user.Username, err)
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	r.log.Infof("Repository: User created with ID: %s, Username: %s", user.ID, user.Username)
	return user, nil
}

func (r *postgresUserRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Debugf("Repository: User with %s %v not found", where, arg)
			return nil, domain.ErrUserNotFound
		}
		r.log.Errorf("Repository: Failed to get user by %s %v: %v", where, arg, err)
		return nil, fmt.Errorf("could not get user by %s: %w", where, err)
	}
	return user, nil
}

func (r *postgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "username", username)
}

func (r *postgresUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id", id)
}

func (r *postgresUserRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	if err != nil {
		r.log.Errorf("Repository: Failed to list users: %v", err)
		return nil, fmt.Errorf("could not list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user data: %w", err)
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (r *postgresUserRepository) UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
        UPDATE users SET password_hash = $1, role = $2, updated_at = $3
        WHERE id = $4
        RETURNING ` + userColumns
	updated, err := scanUser(r.db.QueryRowContext(ctx, query, user.PasswordHash, string(user.Role), user.UpdatedAt, user.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		r.log.Errorf("Repository: Failed to update user %s: %v", user.ID, err)
		return nil, fmt.Errorf("could not update user: %w", err)
	}
	r.log.Infof("Repository: User %s updated", user.ID)
	return updated, nil
}

func (r *postgresUserRepository) DeleteUser(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Repository: Failed to delete user %s: %v", id, err)
		return fmt.Errorf("could not delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not confirm user deletion: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	r.log.Infof("Repository: User deleted with ID: %s", id)
	return nil
}
