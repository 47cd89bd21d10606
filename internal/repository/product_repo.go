package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"pos_service/internal/domain"

	"github.com/sirupsen/logrus"
)

const productColumns = `id, name, sku, price, quantity, low_stock_threshold, image_url, category_id, created_at, updated_at`

// productFieldColumns maps the updatable API fields to their columns.
var productFieldColumns = map[string]string{
	"name":              "name",
	"sku":               "sku",
	"price":             "price",
	"quantity":          "quantity",
	"lowStockThreshold": "low_stock_threshold",
	"imageUrl":          "image_url",
	"categoryId":        "category_id",
}

type postgresProductRepository struct {
	db  DBTX
	log *logrus.Logger
}

func NewPostgresProductRepository(db DBTX, logger *logrus.Logger) domain.ProductRepository {
	return &postgresProductRepository{
		db:  db,
		log: logger,
	}
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var categoryID sql.NullString
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.SKU,
		&product.Price,
		&product.Quantity,
		&product.LowStockThreshold,
		&product.ImageURL,
		&categoryID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if categoryID.Valid {
		product.CategoryID = categoryID.String
	}
	return product, nil
}

func (r *postgresProductRepository) translateWriteError(err error, product string) error {
	switch pqErrorCode(err) {
	case pqUniqueViolation:
		r.log.Warnf("Repository: Duplicate SKU for product '%s'", product)
		return domain.ErrDuplicateSKU
	case pqForeignKeyViolation:
		r.log.Warnf("Repository: Product '%s' references a missing category", product)
		return domain.ErrCategoryNotFound
	case pqCheckViolation:
		r.log.Warnf("Repository: Check constraint violation for product '%s': %s", product, pqErrorMessage(err))
		return domain.NewValidationError("product", pqErrorMessage(err))
	}
	return nil
}

func (r *postgresProductRepository) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
        INSERT INTO products (id, name, sku, price, quantity, low_stock_threshold, image_url, category_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.SKU,
		product.Price,
		product.Quantity,
		product.LowStockThreshold,
		product.ImageURL,
		nullString(product.CategoryID),
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if mapped := r.translateWriteError(err, product.Name); mapped != nil {
			return nil, mapped
		}
		r.log.Errorf("Repository: Failed to create product '%s': %v", product.Name, err)
		return nil, fmt.Errorf("could not create product: %w", err)
	}
	r.log.Infof("Repository: Product created with ID: %s, SKU: %s", product.ID, product.SKU)
	return product, nil
}

func (r *postgresProductRepository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Debugf("Repository: Product with ID %s not found", id)
			return nil, domain.ErrProductNotFound
		}
		r.log.Errorf("Repository: Failed to get product by ID %s: %v", id, err)
		return nil, fmt.Errorf("could not get product by id: %w", err)
	}
	return product, nil
}

func (r *postgresProductRepository) UpdateProduct(ctx context.Context, id string, updates map[string]interface{}) (*domain.Product, error) {
	if len(updates) == 0 {
		return r.GetProductByID(ctx, id)
	}

	keys := make([]string, 0, len(updates))
	for key := range updates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	args := []interface{}{}
	setClauses := []string{}
	argCounter := 1

	for _, key := range keys {
		column, ok := productFieldColumns[key]
		if !ok {
			r.log.Warnf("Repository: Skipping unknown field '%s' provided for product update ID %s", key, id)
			continue
		}
		value := updates[key]
		if key == "categoryId" {
			catID, _ := value.(string)
			value = nullString(catID)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argCounter))
		args = append(args, value)
		argCounter++
	}

	if len(setClauses) == 0 {
		return r.GetProductByID(ctx, id)
	}
	setClauses = append(setClauses, "updated_at = NOW()")

	query := "UPDATE products SET " + strings.Join(setClauses, ", ") +
		fmt.Sprintf(" WHERE id = $%d RETURNING ", argCounter) + productColumns
	args = append(args, id)

	r.log.Debugf("Repository: Executing partial update for ID %s: %s", id, query)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Product with ID %s not found for update", id)
			return nil, domain.ErrProductNotFound
		}
		if mapped := r.translateWriteError(err, id); mapped != nil {
			return nil, mapped
		}
		r.log.Errorf("Repository: Failed to update product ID %s: %v", id, err)
		return nil, fmt.Errorf("could not update product: %w", err)
	}

	r.log.Infof("Repository: Product %s updated (%d fields)", id, len(setClauses)-1)
	return product, nil
}

func (r *postgresProductRepository) DeleteProduct(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if pqErrorCode(err) == pqForeignKeyViolation {
			r.log.Warnf("Repository: Refusing to delete product %s referenced by sales", id)
			return domain.ErrProductInUse
		}
		r.log.Errorf("Repository: Failed to delete product ID %s: %v", id, err)
		return fmt.Errorf("could not delete product: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not confirm product deletion: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	r.log.Infof("Repository: Product deleted with ID: %s", id)
	return nil
}

func (r *postgresProductRepository) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	limit, offset := domain.NormalizeLimit(filter.Limit, filter.Offset)

	where := []string{}
	args := []interface{}{}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY name ASC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	products, err := r.queryProducts(ctx, query, args...)
	if err != nil {
		r.log.Errorf("Repository: Failed to list products (limit %d, offset %d): %v", limit, offset, err)
		return nil, err
	}
	r.log.Debugf("Repository: Retrieved %d products (limit: %d, offset: %d)", len(products), limit, offset)
	return products, nil
}

func (r *postgresProductRepository) ListLowStock(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
        WHERE quantity < low_stock_threshold
        ORDER BY quantity ASC, name ASC`
	products, err := r.queryProducts(ctx, query)
	if err != nil {
		r.log.Errorf("Repository: Failed to list low-stock products: %v", err)
		return nil, err
	}
	return products, nil
}

func (r *postgresProductRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning product data: %w", err)
		}
		products = append(products, *product)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func (r *postgresProductRepository) DecrementStock(ctx context.Context, id string, amount int) (*domain.Product, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	query := `
        UPDATE products
        SET quantity = quantity - $1, updated_at = NOW()
        WHERE id = $2 AND quantity >= $1
        RETURNING ` + productColumns

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, amount, id))
	if err == nil {
		r.log.Debugf("Repository: Stock for product %s decremented by %d to %d", id, amount, product.Quantity)
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		r.log.Errorf("Repository: Failed to decrement stock for product %s: %v", id, err)
		return nil, fmt.Errorf("could not decrement stock: %w", err)
	}

	// The guard rejected the row: either it is gone or it holds too little.
	current, getErr := r.GetProductByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	r.log.Warnf("Repository: Insufficient stock for product %s (requested %d, available %d)", id, amount, current.Quantity)
	return nil, &domain.StockError{
		ProductID:   current.ID,
		ProductName: current.Name,
		Requested:   amount,
		Available:   current.Quantity,
	}
}
