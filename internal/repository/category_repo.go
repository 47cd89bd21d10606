package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos_service/internal/domain"

	"github.com/sirupsen/logrus"
)

type postgresCategoryRepository struct {
	db  DBTX
	log *logrus.Logger
}

func NewPostgresCategoryRepository(db DBTX, logger *logrus.Logger) domain.CategoryRepository {
	return &postgresCategoryRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresCategoryRepository) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `INSERT INTO categories (id, name) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, category.ID, category.Name)
	if err != nil {
		if pqErrorCode(err) == pqUniqueViolation {
			r.log.Warnf("Repository: Attempted to create category with duplicate name: %s", category.Name)
			return nil, domain.ErrCategoryExists
		}
		r.log.Errorf("Repository: Failed to create category '%s': %v", category.Name, err)
		return nil, fmt.Errorf("could not create category: %w", err)
	}
	r.log.Infof("Repository: Category created with ID: %s, Name: %s", category.ID, category.Name)
	return category, nil
}

func (r *postgresCategoryRepository) GetCategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	query := `SELECT id, name FROM categories WHERE id = $1`
	category := &domain.Category{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&category.ID, &category.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Category with ID %s not found", id)
			return nil, domain.ErrCategoryNotFound
		}
		r.log.Errorf("Repository: Failed to get category by ID %s: %v", id, err)
		return nil, fmt.Errorf("could not get category by id: %w", err)
	}
	return category, nil
}

func (r *postgresCategoryRepository) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `UPDATE categories SET name = $1 WHERE id = $2 RETURNING id, name`
	err := r.db.QueryRowContext(ctx, query, category.Name, category.ID).Scan(&category.ID, &category.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Category with ID %s not found for update", category.ID)
			return nil, domain.ErrCategoryNotFound
		}
		if pqErrorCode(err) == pqUniqueViolation {
			r.log.Warnf("Repository: Attempted to rename category %s to duplicate name: %s", category.ID, category.Name)
			return nil, domain.ErrCategoryExists
		}
		r.log.Errorf("Repository: Failed to update category ID %s: %v", category.ID, err)
		return nil, fmt.Errorf("could not update category: %w", err)
	}
	r.log.Infof("Repository: Category updated with ID: %s", category.ID)
	return category, nil
}

func (r *postgresCategoryRepository) DeleteCategory(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Repository: Failed to delete category ID %s: %v", id, err)
		return fmt.Errorf("could not delete category: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not confirm category deletion: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrCategoryNotFound
	}
	r.log.Infof("Repository: Category deleted with ID: %s", id)
	return nil
}

func (r *postgresCategoryRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		r.log.Errorf("Repository: Failed to list categories: %v", err)
		return nil, fmt.Errorf("could not list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, fmt.Errorf("error scanning category data: %w", err)
		}
		categories = append(categories, category)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}
