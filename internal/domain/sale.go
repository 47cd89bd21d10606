package domain

import (
	"context"
	"strings"
	"time"
)

type PaymentMode string

const (
	PaymentCash PaymentMode = "Cash"
	PaymentCard PaymentMode = "Card"
	PaymentUPI  PaymentMode = "UPI"
)

// ParsePaymentMode accepts any casing and defaults a blank value to Cash.
func ParsePaymentMode(raw string) (PaymentMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return PaymentCash, nil
	case "cash":
		return PaymentCash, nil
	case "card":
		return PaymentCard, nil
	case "upi":
		return PaymentUPI, nil
	default:
		return "", ErrInvalidPaymentMode
	}
}

type Sale struct {
	ID           string      `json:"id"`
	Total        float64     `json:"total"`
	CustomerName string      `json:"customerName,omitempty"`
	PaymentMode  PaymentMode `json:"paymentMode"`
	CreatedBy    string      `json:"createdBy,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	Items        []SaleItem  `json:"items,omitempty"`
}

// SaleItem stores the price the customer was shown, not the live product price.
type SaleItem struct {
	ID          string  `json:"id"`
	SaleID      string  `json:"saleId"`
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// CartLine is one requested line of a checkout. Quantity is kept as a number
// so that fractional input can be rejected as ErrInvalidQuantity.
type CartLine struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
}

type SaleHeader struct {
	Total        float64 `json:"total"`
	CustomerName string  `json:"customerName,omitempty"`
	PaymentMode  string  `json:"paymentMode"`
}

type CheckoutRequest struct {
	Sale  SaleHeader `json:"sale"`
	Items []CartLine `json:"items"`
	// CashierID is filled from the session, never from the body.
	CashierID string `json:"-"`
}

type SaleFilter struct {
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

type SalesSummary struct {
	From          time.Time               `json:"from"`
	To            time.Time               `json:"to"`
	SaleCount     int                     `json:"saleCount"`
	Revenue       float64                 `json:"revenue"`
	ItemsSold     int                     `json:"itemsSold"`
	ByPaymentMode map[PaymentMode]float64 `json:"byPaymentMode"`
	LowStockCount int                     `json:"lowStockCount"`
}

type SaleRepository interface {
	CreateSale(ctx context.Context, sale *Sale) error
	CreateSaleItem(ctx context.Context, item *SaleItem) error
	GetSaleByID(ctx context.Context, id string) (*Sale, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]Sale, error)
	Summarize(ctx context.Context, from, to time.Time) (*SalesSummary, error)
}

// TxRepositories are bound to one transaction and must not escape it.
type TxRepositories struct {
	Products ProductRepository
	Sales    SaleRepository
}

type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
