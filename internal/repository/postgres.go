package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos_service/internal/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func pqErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func pqErrorMessage(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Message
	}
	return err.Error()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// PostgresStore groups the Postgres repositories around one connection pool
// and runs multi-table writes in a single transaction.
type PostgresStore struct {
	db  *sql.DB
	log *logrus.Logger

	products   domain.ProductRepository
	categories domain.CategoryRepository
	sales      domain.SaleRepository
	users      domain.UserRepository
}

var _ domain.TransactionManager = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:         db,
		log:        logger,
		products:   NewPostgresProductRepository(db, logger),
		categories: NewPostgresCategoryRepository(db, logger),
		sales:      NewPostgresSaleRepository(db, logger),
		users:      NewPostgresUserRepository(db, logger),
	}
}

func (s *PostgresStore) Products() domain.ProductRepository    { return s.products }
func (s *PostgresStore) Categories() domain.CategoryRepository { return s.categories }
func (s *PostgresStore) Sales() domain.SaleRepository          { return s.sales }
func (s *PostgresStore) Users() domain.UserRepository          { return s.users }

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos domain.TxRepositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log.Errorf("Repository: Failed to begin transaction: %v", err)
		return fmt.Errorf("could not start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			s.log.Error("Repository: Recovered from panic, rolling back transaction")
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			s.log.Warnf("Repository: Rolling back transaction due to error: %v", err)
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Errorf("Repository: Failed to rollback transaction: %v", rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				s.log.Errorf("Repository: Failed to commit transaction: %v", cErr)
				err = fmt.Errorf("failed to commit transaction: %w", cErr)
				return
			}
			s.log.Debug("Repository: Transaction committed")
		}
	}()

	err = fn(ctx, domain.TxRepositories{
		Products: NewPostgresProductRepository(tx, s.log),
		Sales:    NewPostgresSaleRepository(tx, s.log),
	})
	return err
}
