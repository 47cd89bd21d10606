package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos_service/internal/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const saleColumns = `id, total, customer_name, payment_mode, created_by, created_at`

type postgresSaleRepository struct {
	db  DBTX
	log *logrus.Logger
}

func NewPostgresSaleRepository(db DBTX, logger *logrus.Logger) domain.SaleRepository {
	return &postgresSaleRepository{
		db:  db,
		log: logger,
	}
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	sale := &domain.Sale{}
	var customerName, createdBy sql.NullString
	var paymentMode string
	if err := row.Scan(&sale.ID, &sale.Total, &customerName, &paymentMode, &createdBy, &sale.CreatedAt); err != nil {
		return nil, err
	}
	sale.CustomerName = customerName.String
	sale.CreatedBy = createdBy.String
	sale.PaymentMode = domain.PaymentMode(paymentMode)
	return sale, nil
}

func (r *postgresSaleRepository) CreateSale(ctx context.Context, sale *domain.Sale) error {
	query := `
        INSERT INTO sales (id, total, customer_name, payment_mode, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		sale.ID,
		sale.Total,
		nullString(sale.CustomerName),
		string(sale.PaymentMode),
		nullString(sale.CreatedBy),
		sale.CreatedAt,
	)
	if err != nil {
		r.log.Errorf("Repository: Failed to insert sale %s: %v", sale.ID, err)
		return fmt.Errorf("could not create sale entry: %w", err)
	}
	r.log.Debugf("Repository: Sale entry created with ID: %s", sale.ID)
	return nil
}

func (r *postgresSaleRepository) CreateSaleItem(ctx context.Context, item *domain.SaleItem) error {
	query := `
        INSERT INTO sale_items (id, sale_id, product_id, product_name, quantity, price)
        VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, item.ID, item.SaleID, item.ProductID, item.ProductName, item.Quantity, item.Price)
	if err != nil {
		r.log.Errorf("Repository: Failed to insert sale item (product_id: %s, quantity: %d) for sale %s: %v", item.ProductID, item.Quantity, item.SaleID, err)
		if pqErrorCode(err) == pqForeignKeyViolation && strings.Contains(pqErrorMessage(err), "product") {
			return domain.ErrProductNotFound
		}
		return fmt.Errorf("could not create sale item (product_id: %s): %w", item.ProductID, err)
	}
	return nil
}

func (r *postgresSaleRepository) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`
	sale, err := scanSale(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Sale with ID %s not found", id)
			return nil, domain.ErrSaleNotFound
		}
		r.log.Errorf("Repository: Failed to get sale by ID %s: %v", id, err)
		return nil, fmt.Errorf("could not retrieve sale: %w", err)
	}

	itemsMap, err := r.getSaleItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	sale.Items = itemsMap[id]
	if sale.Items == nil {
		sale.Items = []domain.SaleItem{}
	}
	return sale, nil
}

func (r *postgresSaleRepository) getSaleItems(ctx context.Context, saleIDs []string) (map[string][]domain.SaleItem, error) {
	query := `
        SELECT id, sale_id, product_id, product_name, quantity, price
        FROM sale_items
        WHERE sale_id = ANY($1)
        ORDER BY sale_id, id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(saleIDs))
	if err != nil {
		r.log.Errorf("Repository: Failed to query items for sales (%v): %v", saleIDs, err)
		return nil, fmt.Errorf("could not retrieve sale items: %w", err)
	}
	defer rows.Close()

	itemsMap := make(map[string][]domain.SaleItem)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("error scanning sale item: %w", err)
		}
		itemsMap[item.SaleID] = append(itemsMap[item.SaleID], item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale items: %w", err)
	}
	return itemsMap, nil
}

func (r *postgresSaleRepository) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	limit, offset := domain.NormalizeLimit(filter.Limit, filter.Offset)

	where := []string{}
	args := []interface{}{}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	query := `SELECT ` + saleColumns + ` FROM sales`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Errorf("Repository: Failed to list sales: %v", err)
		return nil, fmt.Errorf("could not retrieve sales: %w", err)
	}
	defer rows.Close()

	sales := []domain.Sale{}
	saleIDs := []string{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning sale data: %w", err)
		}
		sales = append(sales, *sale)
		saleIDs = append(saleIDs, sale.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}
	if len(sales) == 0 {
		return sales, nil
	}

	itemsMap, err := r.getSaleItems(ctx, saleIDs)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		if items, ok := itemsMap[sales[i].ID]; ok {
			sales[i].Items = items
		} else {
			sales[i].Items = []domain.SaleItem{}
		}
	}

	r.log.Debugf("Repository: Retrieved %d sales (limit %d, offset %d)", len(sales), limit, offset)
	return sales, nil
}

func (r *postgresSaleRepository) Summarize(ctx context.Context, from, to time.Time) (*domain.SalesSummary, error) {
	summary := &domain.SalesSummary{
		From:          from,
		To:            to,
		ByPaymentMode: map[domain.PaymentMode]float64{},
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT payment_mode, COUNT(*), COALESCE(SUM(total), 0)
        FROM sales
        WHERE created_at >= $1 AND created_at < $2
        GROUP BY payment_mode`, from, to)
	if err != nil {
		r.log.Errorf("Repository: Failed to summarize sales: %v", err)
		return nil, fmt.Errorf("could not summarize sales: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mode string
		var count int
		var revenue float64
		if err := rows.Scan(&mode, &count, &revenue); err != nil {
			return nil, fmt.Errorf("error scanning sales summary: %w", err)
		}
		summary.SaleCount += count
		summary.Revenue += revenue
		summary.ByPaymentMode[domain.PaymentMode(mode)] = revenue
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales summary: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
        SELECT COALESCE(SUM(si.quantity), 0)
        FROM sale_items si
        JOIN sales s ON s.id = si.sale_id
        WHERE s.created_at >= $1 AND s.created_at < $2`, from, to).Scan(&summary.ItemsSold)
	if err != nil {
		r.log.Errorf("Repository: Failed to count items sold: %v", err)
		return nil, fmt.Errorf("could not count items sold: %w", err)
	}
	return summary, nil
}
