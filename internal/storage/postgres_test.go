package storage

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	backend := NewPostgresWithDB(db)

	mock.ExpectQuery("SELECT value FROM app_state WHERE key = \\$1").
		WithArgs(KeyDocuments).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`[]`)))

	value, err := backend.Load(context.Background(), KeyDocuments)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(value))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadMissingKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	backend := NewPostgresWithDB(db)

	mock.ExpectQuery("SELECT value FROM app_state WHERE key = \\$1").
		WithArgs(KeyUsers).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err = backend.Load(context.Background(), KeyUsers)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	backend := NewPostgresWithDB(db)

	mock.ExpectExec("INSERT INTO app_state").
		WithArgs(KeyBackground, []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, backend.Save(context.Background(), KeyBackground, []byte(`{}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	backend := NewPostgresWithDB(db)

	mock.ExpectExec("DELETE FROM app_state WHERE key = \\$1").
		WithArgs(KeyActiveUser).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, backend.Delete(context.Background(), KeyActiveUser))
	assert.NoError(t, mock.ExpectationsWereMet())
}
