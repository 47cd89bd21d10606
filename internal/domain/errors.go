package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInvalidQuantity    = errors.New("quantity must be a positive integer")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrPersistence        = errors.New("persistence error")
	ErrEmptyCart          = errors.New("cart must contain at least one item")
	ErrInvalidPrice       = errors.New("price cannot be negative")
	ErrInvalidPaymentMode = errors.New("invalid payment mode")
	ErrDuplicateSKU       = errors.New("product with this SKU already exists")
	ErrProductInUse       = errors.New("product is referenced by recorded sales")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCategoryExists     = errors.New("category with this name already exists")
	ErrSaleNotFound       = errors.New("sale not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrForbidden          = errors.New("operation not permitted for this role")
	ErrValidation         = errors.New("validation failed")
)

// StockError reports a line that asks for more than is on hand.
type StockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for product '%s': requested %d, available %d", name, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// PersistenceError wraps a storage failure together with the checkout stage it happened in.
type PersistenceError struct {
	Stage string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error while %s: %v", e.Stage, e.Err)
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ValidationError carries a field-level message and matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
