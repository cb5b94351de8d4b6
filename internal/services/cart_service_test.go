// internal/services/cart_service_test.go
package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/gemstore-backend/internal/models"
)

func cartGemstoneRows(id uuid.UUID, stock int, status models.GemstoneStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "price", "stock_quantity", "status"}).
		AddRow(id.String(), "Kashmir Sapphire", "3100.00", stock, string(status))
}

func TestAddItemMergesIntoExistingLine(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewCartService(db, PricingPolicy{}, nil)
	userID, gemID, itemID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "gemstones" WHERE id = \$1`).
		WillReturnRows(cartGemstoneRows(gemID, 5, models.GemstoneStatusActive))
	mock.ExpectQuery(`SELECT \* FROM "cart_items" WHERE \(user_id = \$1 AND gemstone_id = \$2\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "gemstone_id", "quantity"}).
			AddRow(itemID.String(), userID.String(), gemID.String(), 2))
	mock.ExpectExec(`UPDATE "cart_items" SET "quantity"=\$1,"updated_at"=\$2`).
		WithArgs(5, sqlmock.AnyArg(), itemID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	item, err := svc.AddItem(userID, &AddCartItemRequest{GemstoneID: gemID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, itemID, item.ID)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, "Kashmir Sapphire", item.Gemstone.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItemMergedQuantityCappedByStock(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewCartService(db, PricingPolicy{}, nil)
	userID, gemID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "gemstones"`).
		WillReturnRows(cartGemstoneRows(gemID, 5, models.GemstoneStatusActive))
	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "gemstone_id", "quantity"}).
			AddRow(uuid.NewString(), userID.String(), gemID.String(), 4))
	mock.ExpectRollback()

	_, err := svc.AddItem(userID, &AddCartItemRequest{GemstoneID: gemID, Quantity: 2})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItemCreatesNewLine(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewCartService(db, PricingPolicy{}, nil)
	userID, gemID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "gemstones"`).
		WillReturnRows(cartGemstoneRows(gemID, 5, models.GemstoneStatusActive))
	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "cart_items"`).WillReturnRows(idRows())
	mock.ExpectCommit()

	item, err := svc.AddItem(userID, &AddCartItemRequest{GemstoneID: gemID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, userID, item.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItemRejectsHiddenGemstoneAndBadQuantity(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewCartService(db, PricingPolicy{}, nil)
	gemID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "gemstones"`).
		WillReturnRows(cartGemstoneRows(gemID, 5, models.GemstoneStatusDraft))
	mock.ExpectRollback()

	_, err := svc.AddItem(uuid.New(), &AddCartItemRequest{GemstoneID: gemID, Quantity: 1})
	assert.ErrorIs(t, err, ErrGemstoneNotFound)

	_, err = svc.AddItem(uuid.New(), &AddCartItemRequest{GemstoneID: gemID, Quantity: 0})
	assert.ErrorContains(t, err, "validation failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
