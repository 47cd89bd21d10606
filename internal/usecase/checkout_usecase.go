package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"pos_service/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Checkout stages, reported in logs and in PersistenceError.Stage.
const (
	StageValidating      = "validating cart"
	StagePersistingSale  = "persisting sale"
	StagePersistingItems = "persisting sale items"
	StageApplyingStock   = "applying stock"
	StageCommitting      = "committing sale"
)

const maxLineQuantity = math.MaxInt32

type CheckoutUseCase interface {
	Checkout(ctx context.Context, req *domain.CheckoutRequest) (*domain.Sale, error)
	ValidateCart(ctx context.Context, items []domain.CartLine) (*CartValidation, error)
}

type ValidatedLine struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Available   int     `json:"available"`
	LineTotal   float64 `json:"lineTotal"`
}

type CartValidation struct {
	Lines []ValidatedLine `json:"lines"`
	Total float64         `json:"total"`
}

type CheckoutOption func(*checkoutUseCase)

// WithClock replaces the source of sale timestamps.
func WithClock(now func() time.Time) CheckoutOption {
	return func(uc *checkoutUseCase) { uc.now = now }
}

// WithIDGenerator replaces the generator for sale and sale item ids.
func WithIDGenerator(newID func() string) CheckoutOption {
	return func(uc *checkoutUseCase) { uc.newID = newID }
}

// WithCurrencyDecimals sets the minor-unit precision used for totals.
func WithCurrencyDecimals(decimals int) CheckoutOption {
	return func(uc *checkoutUseCase) { uc.decimals = decimals }
}

var _ CheckoutUseCase = (*checkoutUseCase)(nil)

type checkoutUseCase struct {
	products domain.ProductRepository
	tx       domain.TransactionManager
	log      *logrus.Logger

	now      func() time.Time
	newID    func() string
	decimals int
}

func NewCheckoutUseCase(products domain.ProductRepository, tx domain.TransactionManager, logger *logrus.Logger, opts ...CheckoutOption) CheckoutUseCase {
	uc := &checkoutUseCase{
		products: products,
		tx:       tx,
		log:      logger,
		now:      time.Now,
		newID:    uuid.NewString,
		decimals: 2,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ValidateCart checks every line against current stock without writing anything.
// Repeated lines for one product are checked against their combined quantity.
func (uc *checkoutUseCase) ValidateCart(ctx context.Context, items []domain.CartLine) (*CartValidation, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	products := make(map[string]*domain.Product, len(items))
	requested := make(map[string]int, len(items))
	lines := make([]ValidatedLine, 0, len(items))

	for i, line := range items {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" {
			return nil, fmt.Errorf("item %d: %w", i, domain.ErrProductNotFound)
		}

		product, ok := products[productID]
		if !ok {
			var err error
			product, err = uc.products.GetProductByID(ctx, productID)
			if err != nil {
				if errors.Is(err, domain.ErrProductNotFound) {
					return nil, fmt.Errorf("item %d (product %s): %w", i, productID, domain.ErrProductNotFound)
				}
				return nil, &domain.PersistenceError{Stage: StageValidating, Err: err}
			}
			products[productID] = product
		}

		quantity, ok := wholeQuantity(line.Quantity)
		if !ok {
			return nil, fmt.Errorf("item %d (product %s): %w", i, productID, domain.ErrInvalidQuantity)
		}
		if line.Price < 0 || math.IsNaN(line.Price) || math.IsInf(line.Price, 0) {
			return nil, fmt.Errorf("item %d (product %s): %w", i, productID, domain.ErrInvalidPrice)
		}

		requested[productID] += quantity
		if requested[productID] > product.Quantity {
			return nil, &domain.StockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   requested[productID],
				Available:   product.Quantity,
			}
		}

		lines = append(lines, ValidatedLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    quantity,
			Price:       line.Price,
			Available:   product.Quantity,
			LineTotal:   roundTo(line.Price*float64(quantity), uc.decimals),
		})
	}

	return &CartValidation{Lines: lines, Total: cartTotal(lines, uc.decimals)}, nil
}

func (uc *checkoutUseCase) Checkout(ctx context.Context, req *domain.CheckoutRequest) (*domain.Sale, error) {
	logger := uc.log.WithFields(logrus.Fields{
		"cashier_id": req.CashierID,
		"lines":      len(req.Items),
	})

	mode, err := domain.ParsePaymentMode(req.Sale.PaymentMode)
	if err != nil {
		logger.Warnf("Checkout: Rejected cart with payment mode '%s'", req.Sale.PaymentMode)
		return nil, err
	}

	validation, err := uc.ValidateCart(ctx, req.Items)
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			logger.Errorf("Checkout: Could not read stock during validation: %v", err)
		} else {
			logger.Warnf("Checkout: Cart rejected during validation, nothing written: %v", err)
		}
		return nil, err
	}

	if req.Sale.Total != 0 && math.Abs(req.Sale.Total-validation.Total) >= 0.5*math.Pow10(-uc.decimals) {
		logger.Warnf("Checkout: Client total %.4f differs from computed total %.4f; using computed", req.Sale.Total, validation.Total)
	}

	sale := &domain.Sale{
		ID:           uc.newID(),
		Total:        validation.Total,
		CustomerName: strings.TrimSpace(req.Sale.CustomerName),
		PaymentMode:  mode,
		CreatedBy:    req.CashierID,
		CreatedAt:    uc.now().UTC(),
	}
	logger = logger.WithField("sale_id", sale.ID)

	stage := StagePersistingSale
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context, repos domain.TxRepositories) error {
		if err := repos.Sales.CreateSale(ctx, sale); err != nil {
			return &domain.PersistenceError{Stage: stage, Err: err}
		}

		stage = StagePersistingItems
		items := make([]domain.SaleItem, 0, len(validation.Lines))
		for _, line := range validation.Lines {
			item := domain.SaleItem{
				ID:          uc.newID(),
				SaleID:      sale.ID,
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Quantity:    line.Quantity,
				Price:       line.Price,
			}
			if err := repos.Sales.CreateSaleItem(ctx, &item); err != nil {
				return &domain.PersistenceError{Stage: stage, Err: err}
			}
			items = append(items, item)
		}

		stage = StageApplyingStock
		for _, line := range validation.Lines {
			if _, err := repos.Products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrProductNotFound) {
					return err
				}
				return &domain.PersistenceError{Stage: stage, Err: err}
			}
		}

		stage = StageCommitting
		sale.Items = items
		return nil
	})
	if err != nil {
		var perr *domain.PersistenceError
		if !errors.As(err, &perr) && !errors.Is(err, domain.ErrInsufficientStock) && !errors.Is(err, domain.ErrProductNotFound) {
			err = &domain.PersistenceError{Stage: stage, Err: err}
		}
		logger.WithFields(logrus.Fields{
			"stage":       stage,
			"rolled_back": true,
		}).Errorf("Checkout: Write path failed after validation; sale header and items rolled back: %v", err)
		return nil, err
	}

	logger.Infof("Checkout: Sale completed with total %.2f (%s, %d lines)", sale.Total, sale.PaymentMode, len(sale.Items))
	return sale, nil
}

func wholeQuantity(q float64) (int, bool) {
	if math.IsNaN(q) || math.IsInf(q, 0) || q <= 0 || q != math.Trunc(q) || q > maxLineQuantity {
		return 0, false
	}
	return int(q), true
}

func cartTotal(lines []ValidatedLine, decimals int) float64 {
	total := 0.0
	for _, line := range lines {
		total += line.Price * float64(line.Quantity)
	}
	return roundTo(total, decimals)
}

func roundTo(value float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(value*scale) / scale
}
