package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"pos_service/internal/domain"
	"pos_service/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalesAndDailySummary(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := repository.NewMemoryStore(logger)
	ctx := context.Background()

	seedProduct(t, store, "p1", "Notebook", 10, 20)
	seedProduct(t, store, "p2", "Pencil", 2, 6)

	day := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	clock := day
	checkout := NewCheckoutUseCase(store.Products(), store, logger, WithClock(func() time.Time { return clock }))

	_, err := checkout.Checkout(ctx, &domain.CheckoutRequest{
		Sale:  domain.SaleHeader{PaymentMode: "Cash"},
		Items: []domain.CartLine{{ProductID: "p1", Quantity: 2, Price: 10}},
	})
	require.NoError(t, err)

	clock = day.Add(3 * time.Hour)
	_, err = checkout.Checkout(ctx, &domain.CheckoutRequest{
		Sale:  domain.SaleHeader{PaymentMode: "card"},
		Items: []domain.CartLine{{ProductID: "p2", Quantity: 3, Price: 2}},
	})
	require.NoError(t, err)

	clock = day.AddDate(0, 0, 1)
	_, err = checkout.Checkout(ctx, &domain.CheckoutRequest{
		Items: []domain.CartLine{{ProductID: "p1", Quantity: 1, Price: 10}},
	})
	require.NoError(t, err)

	sales := NewSaleUseCase(store.Sales(), logger)
	onDay, err := sales.ListSales(ctx, "2024-03-15", "2024-03-15", 10, 0)
	require.NoError(t, err)
	require.Len(t, onDay, 2)
	assert.True(t, onDay[0].CreatedAt.After(onDay[1].CreatedAt), "newest first")

	all, err := sales.ListSales(ctx, "", "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = sales.ListSales(ctx, "15/03/2024", "", 10, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = sales.ListSales(ctx, "2024-03-16", "2024-03-15", 10, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = sales.GetSaleByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSaleNotFound)

	reports := NewReportUseCase(store.Sales(), store.Products(), logger)
	summary, err := reports.DailySummary(ctx, "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.SaleCount)
	assert.Equal(t, 26.0, summary.Revenue)
	assert.Equal(t, 5, summary.ItemsSold)
	assert.Equal(t, 20.0, summary.ByPaymentMode[domain.PaymentCash])
	assert.Equal(t, 6.0, summary.ByPaymentMode[domain.PaymentCard])
	assert.Equal(t, 1, summary.LowStockCount)

	_, err = reports.DailySummary(ctx, "yesterday")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
