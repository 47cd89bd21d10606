package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"pos_service/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ProductUseCase interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, updates map[string]interface{}) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	ListLowStock(ctx context.Context) ([]domain.Product, error)
}

type productUseCase struct {
	productRepo  domain.ProductRepository
	categoryRepo domain.CategoryRepository
	log          *logrus.Logger
}

func NewProductUseCase(pRepo domain.ProductRepository, cRepo domain.CategoryRepository, logger *logrus.Logger) ProductUseCase {
	return &productUseCase{
		productRepo:  pRepo,
		categoryRepo: cRepo,
		log:          logger,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	product.SKU = strings.TrimSpace(product.SKU)
	product.ImageURL = strings.TrimSpace(product.ImageURL)

	if product.Name == "" {
		uc.log.Warn("Use Case: Attempted to create product with empty name")
		return nil, domain.NewValidationError("name", "cannot be empty")
	}
	if product.SKU == "" {
		uc.log.Warnf("Use Case: Attempted to create product '%s' without SKU", product.Name)
		return nil, domain.NewValidationError("sku", "cannot be empty")
	}
	if product.Price < 0 || math.IsNaN(product.Price) {
		uc.log.Warnf("Use Case: Attempted to create product '%s' with invalid price: %f", product.Name, product.Price)
		return nil, domain.ErrInvalidPrice
	}
	if product.Quantity < 0 {
		uc.log.Warnf("Use Case: Attempted to create product '%s' with negative quantity: %d", product.Name, product.Quantity)
		return nil, domain.NewValidationError("quantity", "cannot be negative")
	}
	if product.LowStockThreshold == 0 {
		product.LowStockThreshold = domain.DefaultLowStockThreshold
	}
	if product.LowStockThreshold < 0 {
		return nil, domain.NewValidationError("lowStockThreshold", "must be positive")
	}
	if product.CategoryID != "" {
		if _, err := uc.categoryRepo.GetCategoryByID(ctx, product.CategoryID); err != nil {
			uc.log.Warnf("Use Case: Category ID %s not found during product creation: %v", product.CategoryID, err)
			return nil, err
		}
	}

	now := time.Now().UTC()
	product.ID = uuid.NewString()
	product.CreatedAt = now
	product.UpdatedAt = now

	uc.log.Infof("Use Case: Attempting to create product '%s' (SKU %s)", product.Name, product.SKU)
	createdProduct, err := uc.productRepo.CreateProduct(ctx, product)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create product '%s': %v", product.Name, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Product '%s' created successfully with ID %s", createdProduct.Name, createdProduct.ID)
	return createdProduct, nil
}

func (uc *productUseCase) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrProductNotFound
	}
	product, err := uc.productRepo.GetProductByID(ctx, id)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to get product ID %s: %v", id, err)
		return nil, err
	}
	return product, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, id string, updates map[string]interface{}) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrProductNotFound
	}
	if len(updates) == 0 {
		return uc.productRepo.GetProductByID(ctx, id)
	}

	if _, err := uc.productRepo.GetProductByID(ctx, id); err != nil {
		uc.log.Warnf("Use Case: Product ID %s not found for update: %v", id, err)
		return nil, err
	}

	validUpdates := make(map[string]interface{})
	for key, value := range updates {
		switch key {
		case "name", "sku":
			s, ok := value.(string)
			s = strings.TrimSpace(s)
			if !ok || s == "" {
				uc.log.Warnf("Use Case: Invalid or empty '%s' provided for update ID %s", key, id)
				return nil, domain.NewValidationError(key, "cannot be empty if provided")
			}
			validUpdates[key] = s
		case "imageUrl":
			s, ok := value.(string)
			if !ok && value != nil {
				return nil, domain.NewValidationError(key, "must be a string")
			}
			validUpdates[key] = strings.TrimSpace(s)
		case "price":
			price, ok := toFloat(value)
			if !ok || price < 0 || math.IsNaN(price) {
				uc.log.Warnf("Use Case: Invalid or negative 'price' provided for update ID %s", id)
				return nil, domain.ErrInvalidPrice
			}
			validUpdates[key] = price
		case "quantity":
			quantity, ok := toInt(value)
			if !ok || quantity < 0 {
				uc.log.Warnf("Use Case: Invalid or negative 'quantity' provided for update ID %s", id)
				return nil, domain.NewValidationError(key, "must be a non-negative integer")
			}
			validUpdates[key] = quantity
		case "lowStockThreshold":
			threshold, ok := toInt(value)
			if !ok || threshold <= 0 {
				return nil, domain.NewValidationError(key, "must be a positive integer")
			}
			validUpdates[key] = threshold
		case "categoryId":
			catID, ok := value.(string)
			if !ok && value != nil {
				return nil, domain.NewValidationError(key, "must be a string or null")
			}
			catID = strings.TrimSpace(catID)
			if catID != "" {
				if _, err := uc.categoryRepo.GetCategoryByID(ctx, catID); err != nil {
					uc.log.Warnf("Use Case: Category ID %s not found during product update for ID %s: %v", catID, id, err)
					return nil, err
				}
			}
			validUpdates[key] = catID
		default:
			uc.log.Warnf("Use Case: Attempted to update unknown or unsupported field '%s' for product ID %s", key, id)
		}
	}

	if len(validUpdates) == 0 {
		return uc.productRepo.GetProductByID(ctx, id)
	}

	updatedProduct, err := uc.productRepo.UpdateProduct(ctx, id, validUpdates)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed partial update for product ID %s: %v", id, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Product updated successfully for ID %s", updatedProduct.ID)
	return updatedProduct, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrProductNotFound
	}
	if err := uc.productRepo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, domain.ErrProductInUse) {
			uc.log.Warnf("Use Case: Product %s has recorded sales and cannot be deleted", id)
		}
		return err
	}
	uc.log.Infof("Use Case: Product deleted successfully for ID %s", id)
	return nil
}

func (uc *productUseCase) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if filter.CategoryID != "" {
		if _, err := uc.categoryRepo.GetCategoryByID(ctx, filter.CategoryID); err != nil {
			return nil, err
		}
	}
	products, err := uc.productRepo.ListProducts(ctx, filter)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list products: %v", err)
		return nil, err
	}
	return products, nil
}

func (uc *productUseCase) ListLowStock(ctx context.Context) ([]domain.Product, error) {
	products, err := uc.productRepo.ListLowStock(ctx)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list low-stock products: %v", err)
		return nil, err
	}
	return products, nil
}

// toFloat accepts the numeric shapes encoding/json and callers produce.
func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case float64:
		i := int(v)
		if float64(i) != v {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
