package usecase

import (
	"context"
	"time"

	"pos_service/internal/domain"

	"github.com/sirupsen/logrus"
)

type ReportUseCase interface {
	DailySummary(ctx context.Context, date string) (*domain.SalesSummary, error)
}

type reportUseCase struct {
	saleRepo    domain.SaleRepository
	productRepo domain.ProductRepository
	log         *logrus.Logger
	now         func() time.Time
}

func NewReportUseCase(sales domain.SaleRepository, products domain.ProductRepository, logger *logrus.Logger) ReportUseCase {
	return &reportUseCase{
		saleRepo:    sales,
		productRepo: products,
		log:         logger,
		now:         time.Now,
	}
}

// DailySummary totals the sales of one UTC day. A blank date means today.
func (uc *reportUseCase) DailySummary(ctx context.Context, date string) (*domain.SalesSummary, error) {
	var day time.Time
	if date == "" {
		now := uc.now().UTC()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, domain.NewValidationError("date", "must be a date in YYYY-MM-DD format")
		}
		day = parsed
	}

	summary, err := uc.saleRepo.Summarize(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		uc.log.Errorf("Use Case: Failed to summarize sales for %s: %v", day.Format(dateLayout), err)
		return nil, err
	}

	lowStock, err := uc.productRepo.ListLowStock(ctx)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to count low-stock products: %v", err)
		return nil, err
	}
	summary.LowStockCount = len(lowStock)

	return summary, nil
}
