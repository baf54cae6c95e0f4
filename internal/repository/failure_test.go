package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readinglist/internal/domain"
)

var errDiskFull = errors.New("database or disk is full")

func TestItemRepository_CreateRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO items").WillReturnError(errDiskFull)
	mock.ExpectRollback()

	repo := NewItemRepository(db, testLogger())
	err = repo.Create(context.Background(), newTestItem("i1", "https://a.com", baseTime))

	require.Error(t, err)
	assert.ErrorIs(t, err, errDiskFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_UpdateTagLinkFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE items SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM item_tags").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT OR IGNORE INTO item_tags").WillReturnError(errDiskFull)
	mock.ExpectRollback()

	repo := NewItemRepository(db, testLogger())
	err = repo.Update(context.Background(), newTestItem("i1", "https://a.com", baseTime, "t1"))

	assert.ErrorIs(t, err, errDiskFull)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagRepository_DeleteRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT item_id FROM item_tags").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow("i1"))
	mock.ExpectExec("UPDATE items SET updated_at").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM item_tags").WillReturnError(errDiskFull)
	mock.ExpectRollback()

	repo := NewTagRepository(db, testLogger())
	affected, err := repo.Delete(context.Background(), "t1", baseTime)

	assert.ErrorIs(t, err, errDiskFull)
	assert.Nil(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_SaveFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO settings").WillReturnError(errDiskFull)

	repo := NewSettingsRepository(db, testLogger())
	err = repo.Save(context.Background(), domain.DefaultSettings())

	assert.ErrorIs(t, err, errDiskFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}
