// internal/services/favorite_service_test.go
package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/gemstore-backend/internal/models"
)

func TestFavoriteAddRecordsActivity(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewFavoriteService(db)
	userID, gemID := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "gemstones" WHERE id = \$1`).
		WillReturnRows(cartGemstoneRows(gemID, 1, models.GemstoneStatusActive))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "favorites" .*ON CONFLICT DO NOTHING`).WillReturnRows(idRows())
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "activities"`).WillReturnRows(idRows())
	mock.ExpectCommit()

	favorite, err := svc.Add(userID, gemID)
	require.NoError(t, err)
	assert.Equal(t, gemID, favorite.GemstoneID)
	assert.Equal(t, "Kashmir Sapphire", favorite.Gemstone.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteAddTwiceReturnsExistingRow(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewFavoriteService(db)
	userID, gemID, favoriteID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "gemstones"`).
		WillReturnRows(cartGemstoneRows(gemID, 1, models.GemstoneStatusActive))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "favorites" .*ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT \* FROM "favorites" WHERE \(user_id = \$1 AND gemstone_id = \$2\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "gemstone_id"}).
			AddRow(favoriteID.String(), userID.String(), gemID.String()))

	favorite, err := svc.Add(userID, gemID)
	require.NoError(t, err)
	assert.Equal(t, favoriteID, favorite.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteAddHiddenGemstone(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewFavoriteService(db)

	mock.ExpectQuery(`SELECT \* FROM "gemstones"`).
		WillReturnRows(cartGemstoneRows(uuid.New(), 1, models.GemstoneStatusArchived))

	_, err := svc.Add(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrGemstoneNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteRemove(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewFavoriteService(db)
	userID, gemID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "favorites" WHERE user_id = \$1 AND gemstone_id = \$2`).
		WithArgs(userID, gemID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "favorites"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, svc.Remove(userID, gemID))
	assert.ErrorIs(t, svc.Remove(userID, gemID), ErrGemstoneNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsFavorite(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewFavoriteService(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "favorites" WHERE \(user_id = \$1 AND gemstone_id = \$2\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := svc.IsFavorite(uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)
}
