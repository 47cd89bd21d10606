package usecase

import (
	"context"
	"strings"
	"time"

	"pos_service/internal/domain"

	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

type SaleUseCase interface {
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, from, to string, limit, offset int) ([]domain.Sale, error)
}

type saleUseCase struct {
	saleRepo domain.SaleRepository
	log      *logrus.Logger
}

func NewSaleUseCase(repo domain.SaleRepository, logger *logrus.Logger) SaleUseCase {
	return &saleUseCase{
		saleRepo: repo,
		log:      logger,
	}
}

func (uc *saleUseCase) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrSaleNotFound
	}
	sale, err := uc.saleRepo.GetSaleByID(ctx, id)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to get sale ID %s: %v", id, err)
		return nil, err
	}
	return sale, nil
}

// ListSales accepts bounds as RFC3339 timestamps or YYYY-MM-DD dates (UTC).
// A bare "to" date includes that whole day.
func (uc *saleUseCase) ListSales(ctx context.Context, from, to string, limit, offset int) ([]domain.Sale, error) {
	filter := domain.SaleFilter{Limit: limit, Offset: offset}

	if from != "" {
		t, _, err := parseBound(from)
		if err != nil {
			return nil, domain.NewValidationError("from", "must be RFC3339 or YYYY-MM-DD")
		}
		filter.From = t
	}
	if to != "" {
		t, dateOnly, err := parseBound(to)
		if err != nil {
			return nil, domain.NewValidationError("to", "must be RFC3339 or YYYY-MM-DD")
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		filter.To = t
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return nil, domain.NewValidationError("from", "must not be after 'to'")
	}

	sales, err := uc.saleRepo.ListSales(ctx, filter)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list sales: %v", err)
		return nil, err
	}
	return sales, nil
}

func parseBound(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(dateLayout, raw)
	return t, true, err
}
