package usecase

import (
	"context"
	"strings"

	"pos_service/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CategoryUseCase interface {
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type categoryUseCase struct {
	categoryRepo domain.CategoryRepository
	log          *logrus.Logger
}

func NewCategoryUseCase(repo domain.CategoryRepository, logger *logrus.Logger) CategoryUseCase {
	return &categoryUseCase{
		categoryRepo: repo,
		log:          logger,
	}
}

func (uc *categoryUseCase) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		uc.log.Warn("Use Case: Attempted to create category with empty name")
		return nil, domain.NewValidationError("name", "cannot be empty")
	}

	created, err := uc.categoryRepo.CreateCategory(ctx, &domain.Category{ID: uuid.NewString(), Name: name})
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create category '%s': %v", name, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Category '%s' created successfully with ID %s", created.Name, created.ID)
	return created, nil
}

func (uc *categoryUseCase) GetCategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	return uc.categoryRepo.GetCategoryByID(ctx, id)
}

func (uc *categoryUseCase) UpdateCategory(ctx context.Context, id, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "cannot be empty")
	}
	updated, err := uc.categoryRepo.UpdateCategory(ctx, &domain.Category{ID: id, Name: name})
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to update category %s: %v", id, err)
		return nil, err
	}
	return updated, nil
}

func (uc *categoryUseCase) DeleteCategory(ctx context.Context, id string) error {
	if err := uc.categoryRepo.DeleteCategory(ctx, id); err != nil {
		uc.log.Warnf("Use Case: Repository failed to delete category %s: %v", id, err)
		return err
	}
	uc.log.Infof("Use Case: Category %s deleted; its products are now uncategorized", id)
	return nil
}

func (uc *categoryUseCase) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return uc.categoryRepo.ListCategories(ctx)
}
