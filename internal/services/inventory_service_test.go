// internal/services/inventory_service_test.go
package services

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/gemstore-backend/internal/models"
)

func TestAdjustedPrice(t *testing.T) {
	tests := []struct {
		name  string
		price string
		mode  PriceAdjustmentMode
		value string
		want  string
	}{
		{"percent increase", "100.00", PriceAdjustPercent, "10", "110.00"},
		{"percent decrease rounds", "99.99", PriceAdjustPercent, "-15", "84.99"},
		{"amount increase", "250.00", PriceAdjustAmount, "49.50", "299.50"},
		{"floors at one cent", "20.00", PriceAdjustAmount, "-50", "0.01"},
		{"deep percent floors", "0.02", PriceAdjustPercent, "-99", "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdjustedPrice(decimal.RequireFromString(tt.price), tt.mode, decimal.RequireFromString(tt.value))
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestBulkAdjustPricesValidation(t *testing.T) {
	svc := NewInventoryService(nil, nil, 3)

	_, err := svc.BulkAdjustPrices(&BulkPriceAdjustRequest{Mode: "double", Value: decimal.NewFromInt(2)})
	assert.ErrorContains(t, err, "validation failed")

	_, err = svc.BulkAdjustPrices(&BulkPriceAdjustRequest{Mode: PriceAdjustAmount, Value: decimal.Zero})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = svc.BulkAdjustPrices(&BulkPriceAdjustRequest{Mode: PriceAdjustPercent, Value: decimal.NewFromInt(-100)})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestNewInventoryServiceClampsThreshold(t *testing.T) {
	assert.Equal(t, 0, NewInventoryService(nil, nil, -5).Threshold())
	assert.Equal(t, 3, NewInventoryService(nil, nil, 3).Threshold())
}

func stockRows(id uuid.UUID, stock int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "type", "price", "stock_quantity", "status"}).
		AddRow(id.String(), "Ceylon Sapphire", "sapphire", "800.00", stock, string(models.GemstoneStatusActive))
}

func TestAdjustStockNeverGoesBelowZero(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewInventoryService(db, nil, 3)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "gemstones" SET "stock_quantity"=stock_quantity \+ \$1 WHERE .*stock_quantity \+ \$3 >= 0`).
		WithArgs(-5, id, -5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT \* FROM "gemstones" WHERE id = \$1`).WillReturnRows(stockRows(id, 2))

	_, err := svc.AdjustStock(id, &AdjustStockRequest{Delta: -5})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStockMissingGemstone(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewInventoryService(db, nil, 3)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "gemstones"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT \* FROM "gemstones"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.AdjustStock(uuid.New(), &AdjustStockRequest{Delta: -1})
	assert.ErrorIs(t, err, ErrGemstoneNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStockOpensAlertAtThreshold(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewInventoryService(db, nil, 3)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "gemstones" SET "stock_quantity"=stock_quantity \+ \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT \* FROM "gemstones" WHERE id = \$1`).WillReturnRows(stockRows(id, 1))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "inventory_alerts" .*ON CONFLICT DO NOTHING`).WillReturnRows(idRows())
	mock.ExpectCommit()

	gemstone, err := svc.AdjustStock(id, &AdjustStockRequest{Delta: -2, Reason: "breakage"})
	require.NoError(t, err)
	assert.Equal(t, 1, gemstone.StockQuantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInventoryAlertsSkipsStonesWithOpenAlert(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewInventoryService(db, nil, 3)
	first, second := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "gemstones" WHERE .*NOT EXISTS \(SELECT 1 FROM inventory_alerts a`).
		WithArgs(models.GemstoneStatusActive, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "stock_quantity", "status"}).
			AddRow(first.String(), "Ceylon Sapphire", 0, string(models.GemstoneStatusActive)).
			AddRow(second.String(), "Paraiba Tourmaline", 2, string(models.GemstoneStatusActive)))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "inventory_alerts" .*ON CONFLICT DO NOTHING`).WillReturnRows(idRows())
	mock.ExpectCommit()
	// Another check opened an alert for the second stone in the meantime.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "inventory_alerts" .*ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	alerts, err := svc.CheckInventoryAlerts()
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, first, alerts[0].GemstoneID)
	assert.Equal(t, 0, alerts[0].StockAtAlert)
	assert.Equal(t, 3, alerts[0].Threshold)
	assert.Equal(t, "Ceylon Sapphire", alerts[0].Gemstone.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInventoryAlertsNothingLow(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewInventoryService(db, nil, 3)

	mock.ExpectQuery(`SELECT \* FROM "gemstones"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	alerts, err := svc.CheckInventoryAlerts()
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
