// internal/services/gemstone_service_test.go
package services

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

func TestCreateGemstoneRejectsPriceBelowMinimum(t *testing.T) {
	svc := NewGemstoneService(nil, NewImageMatcher())

	_, err := svc.CreateGemstone(&CreateGemstoneRequest{Name: "Pigeon Blood", Type: "ruby", Price: dec("0")})
	assert.True(t, errors.Is(err, ErrInvalidPrice))

	_, err = svc.CreateGemstone(&CreateGemstoneRequest{Name: "Pigeon Blood", Type: "ruby", Price: dec("10"), Weight: dec("-1")})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = svc.CreateGemstone(&CreateGemstoneRequest{Type: "ruby", Price: dec("10")})
	assert.ErrorContains(t, err, "validation failed")
}

func TestCreateGemstoneDuplicateSerial(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewGemstoneService(db, NewImageMatcher())

	mock.ExpectQuery(`SELECT count\(\*\) FROM "gemstones" WHERE serial_number = \$1`).
		WithArgs("RUB-0001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := svc.CreateGemstone(&CreateGemstoneRequest{
		SerialNumber: "RUB-0001",
		Name:         "Pigeon Blood",
		Type:         "ruby",
		Price:        dec("1200"),
	})
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func draftGemstoneRows(id uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "type", "color", "price", "stock_quantity", "status"}).
		AddRow(id.String(), "Unreleased Ruby", "ruby", "red", "900.00", 2, string(models.GemstoneStatusDraft))
}

func TestGetGemstoneHidesDraftFromCustomers(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewGemstoneService(db, NewImageMatcher())
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "gemstones"`).WillReturnRows(draftGemstoneRows(id))

	_, err := svc.GetGemstone(id, false)
	assert.True(t, errors.Is(err, ErrGemstoneNotFound))
}

func TestGetGemstoneAdminSeesDraftWithFallbackImage(t *testing.T) {
	db, mock := newMockDB(t)
	matcher := NewImageMatcher()
	svc := NewGemstoneService(db, matcher)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "gemstones"`).WillReturnRows(draftGemstoneRows(id))

	gemstone, err := svc.GetGemstone(id, true)
	require.NoError(t, err)
	assert.Equal(t, id, gemstone.ID)
	require.Len(t, gemstone.Images, 1)
	assert.Equal(t, matcher.Match("ruby", "red"), gemstone.Images[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGemstoneMissing(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewGemstoneService(db, NewImageMatcher())

	mock.ExpectQuery(`SELECT \* FROM "gemstones"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.GetGemstone(uuid.New(), true)
	assert.True(t, errors.Is(err, ErrGemstoneNotFound))
}

func TestDeleteGemstoneHardDeletesCartItemsAndFavorites(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewGemstoneService(db, NewImageMatcher())
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "gemstones" SET "deleted_at"=\$1 WHERE id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "cart_items" WHERE gemstone_id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "favorites" WHERE gemstone_id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.DeleteGemstone(id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteGemstoneMissing(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewGemstoneService(db, NewImageMatcher())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "gemstones" SET "deleted_at"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, svc.DeleteGemstone(uuid.New()), ErrGemstoneNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchGemstonesUsesFullTextDocument(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewGemstoneService(db, NewImageMatcher())

	mock.ExpectQuery(`SELECT count\(\*\) FROM "gemstones" WHERE status = \$1 AND \(to_tsvector\('english', name \|\| ' ' \|\| coalesce\(description, ''\)\) @@ plainto_tsquery\('english', \$2\) OR type = \$3 OR serial_number = \$4\)`).
		WithArgs(models.GemstoneStatusActive, "Pigeon Blood", "pigeon blood", "PIGEON BLOOD").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "gemstones" WHERE .*plainto_tsquery`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "color", "price", "status"}).
			AddRow(uuid.NewString(), "Pigeon Blood Ruby", "ruby", "red", "4200.00", string(models.GemstoneStatusActive)))

	gemstones, total, err := svc.SearchGemstones(GemstoneSearchParams{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 20, Search: " Pigeon Blood "},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, gemstones, 1)
	assert.Equal(t, "Pigeon Blood Ruby", gemstones[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
