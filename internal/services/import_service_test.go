// internal/services/import_service_test.go
package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/gemstore-backend/internal/models"
)

const catalogCSV = `Serial_Number,Name,Type,Price,Stock_Quantity,Images,Featured,Weight,Supplier
SAP-0001,Ceylon Sapphire,Sapphire,1200.456,2,a.jpg| b.jpg,yes,1.5,acme
SAP-0002,,ruby,100,1,,,,
,,,,,,,,
SAP-0001,Copy,sapphire,10,1,,,,
,Loose Opal,opal,0,1,,,,
,Loose Garnet,garnet,45,-1,,,,
,Draft Topaz,topaz,30,0,,no,,
`

func TestParseGemstoneCSV(t *testing.T) {
	records, rowErrs, err := ParseGemstoneCSV(strings.NewReader(catalogCSV))
	require.NoError(t, err)

	require.Len(t, records, 2)
	first := records[0]
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "SAP-0001", first.Gemstone.SerialNumber)
	assert.Equal(t, "sapphire", first.Gemstone.Type)
	assert.Equal(t, "1200.46", first.Gemstone.Price.StringFixed(2))
	assert.Equal(t, "1.50", first.Gemstone.Weight.StringFixed(2))
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, []string(first.Gemstone.Images))
	assert.True(t, first.Gemstone.Featured)
	assert.Equal(t, models.GemstoneStatusActive, first.Gemstone.Status)

	assert.Equal(t, 8, records[1].Row)
	assert.Equal(t, "Draft Topaz", records[1].Gemstone.Name)

	require.Len(t, rowErrs, 4)
	assert.Equal(t, ImportRowError{Row: 3, Field: "name", Message: "name is required"}, rowErrs[0])
	assert.Equal(t, 5, rowErrs[1].Row)
	assert.Equal(t, "serial_number", rowErrs[1].Field)
	assert.Contains(t, rowErrs[1].Message, "row 2")
	assert.Equal(t, "price", rowErrs[2].Field)
	assert.Equal(t, 6, rowErrs[2].Row)
	assert.Equal(t, "stock_quantity", rowErrs[3].Field)
}

func TestParseGemstoneCSVHeaderErrors(t *testing.T) {
	_, _, err := ParseGemstoneCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptyCSV))

	_, _, err = ParseGemstoneCSV(strings.NewReader("name,color\nRuby,red\n"))
	assert.True(t, errors.Is(err, ErrMissingColumns))
	assert.Contains(t, err.Error(), "type, price")
}

func TestParseGemstoneCSVStripsBOM(t *testing.T) {
	records, rowErrs, err := ParseGemstoneCSV(strings.NewReader("\ufeffname,type,price\nPigeon Blood Ruby,ruby,950\n"))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, records, 1)
	assert.Equal(t, "Pigeon Blood Ruby", records[0].Gemstone.Name)
}

func TestParseGemstoneCSVRejectsUnknownStatus(t *testing.T) {
	_, rowErrs, err := ParseGemstoneCSV(strings.NewReader("name,type,price,status\nRuby,ruby,10,sold\n"))
	require.NoError(t, err)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, "status", rowErrs[0].Field)
}

func TestWriteGemstoneCSVRoundTrip(t *testing.T) {
	gems := []models.Gemstone{
		{
			SerialNumber:  "EME-0042",
			Name:          "Muzo Emerald, AAA",
			Type:          "emerald",
			Color:         "green",
			Weight:        decimal.RequireFromString("2.1"),
			Price:         decimal.RequireFromString("4800"),
			StockQuantity: 1,
			Certified:     true,
			Status:        models.GemstoneStatusDraft,
			Images:        []string{"front.jpg", "side.jpg"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGemstoneCSV(&buf, gems))
	assert.True(t, strings.HasPrefix(buf.String(), strings.Join(CSVColumns, ",")+"\n"))

	records, rowErrs, err := ParseGemstoneCSV(&buf)
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, records, 1)

	got := records[0].Gemstone
	assert.Equal(t, "Muzo Emerald, AAA", got.Name)
	assert.True(t, got.Price.Equal(gems[0].Price))
	assert.True(t, got.Weight.Equal(gems[0].Weight))
	assert.Equal(t, models.GemstoneStatusDraft, got.Status)
	assert.True(t, got.Certified)
	assert.Equal(t, []string{"front.jpg", "side.jpg"}, []string(got.Images))
}

func TestExportActiveOnly(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "serial_number", "name", "type", "weight", "price", "stock_quantity", "status", "images"}).
		AddRow("6f1c1a8e-5b7a-4a59-9a57-3d1f5c2b8e11", "SAP-0001", "Ceylon Sapphire", "sapphire", "1.50", "1200.00", 2, "active", "{a.jpg,b.jpg}")
	mock.ExpectQuery(`SELECT \* FROM "gemstones" WHERE status = \$1`).
		WithArgs("active").
		WillReturnRows(rows)

	var buf bytes.Buffer
	count, err := NewImportService(db).Export(&buf, false)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, buf.String(), "SAP-0001,Ceylon Sapphire,sapphire,,,,1.50,,1200.00,2,false,active,false,,a.jpg|b.jpg")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRejectsBadHeaderBeforeTouchingDB(t *testing.T) {
	db, mock := newMockDB(t)

	_, err := NewImportService(db).Import(strings.NewReader("name\nRuby\n"), ImportOptions{DryRun: true})
	assert.True(t, errors.Is(err, ErrMissingColumns))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseGemstoneCSVRecordsSuppliedFields(t *testing.T) {
	records, _, err := ParseGemstoneCSV(strings.NewReader("serial_number,name,type,price,stock_quantity\nSAP-0001,Ceylon Sapphire,sapphire,900,\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)

	fields := records[0].Fields
	assert.True(t, fields["name"])
	assert.True(t, fields["price"])
	assert.False(t, fields["stock_quantity"], "blank cell is not supplied")
	assert.False(t, fields["status"], "absent column is not supplied")
}

func TestGemstoneUpdatesOnlySuppliedColumns(t *testing.T) {
	g := models.Gemstone{Name: "Ceylon Sapphire", Type: "sapphire", Price: decimal.RequireFromString("900"), Status: models.GemstoneStatusActive}
	updates := gemstoneUpdates(g, map[string]bool{"name": true, "type": true, "price": true})

	assert.Len(t, updates, 4)
	assert.Contains(t, updates, "deleted_at")
	assert.NotContains(t, updates, "stock_quantity")
	assert.NotContains(t, updates, "status")
	assert.NotContains(t, updates, "images")
}

func TestImportPartialColumnsKeepsStoredValues(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "gemstones" WHERE serial_number = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "serial_number", "name", "type", "price", "stock_quantity", "status"}).
			AddRow("6f1c1a8e-5b7a-4a59-9a57-3d1f5c2b8e11", "SAP-0001", "Old Name", "sapphire", "1200.00", 7, "archived"))
	mock.ExpectExec(`UPDATE "gemstones" SET "deleted_at"=\$1,"name"=\$2,"price"=\$3,"type"=\$4,"updated_at"=\$5 WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := NewImportService(db).Import(strings.NewReader("serial_number,name,type,price\nSAP-0001,Ceylon Sapphire,sapphire,900\n"), ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportDryRunRollsBack(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "gemstones" WHERE serial_number = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "gemstones"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("0b7e7a52-2f6a-4f5e-bb8e-2d6a1c7f9e10"))
	mock.ExpectRollback()

	result, err := NewImportService(db).Import(strings.NewReader("serial_number,name,type,price\nRUB-0009,Burmese Ruby,ruby,2500\nRUB-0010,,ruby,10\n"), ImportOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.NoError(t, mock.ExpectationsWereMet())
}
