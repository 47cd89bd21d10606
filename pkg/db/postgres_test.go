package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect("")
	assert.ErrorContains(t, err, "database URL cannot be empty")
}

func TestMigrate_AppliesEmbeddedSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.Contains(t, schema, "CREATE TABLE IF NOT EXISTS sale_items")

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS categories")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Migrate(context.Background(), db))

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	assert.ErrorContains(t, Migrate(context.Background(), db), "failed to apply schema")

	assert.NoError(t, mock.ExpectationsWereMet())
}
