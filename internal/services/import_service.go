// internal/services/import_service.go
package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/gemstore-backend/internal/metrics"
	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

// CSVColumns is the export column order. Imports accept any order.
var CSVColumns = []string{
	"serial_number", "name", "type", "color", "cut", "clarity", "weight", "origin",
	"price", "stock_quantity", "certified", "status", "featured", "description", "images",
}

var requiredCSVColumns = []string{"name", "type", "price"}

const imageSeparator = "|"

var (
	ErrMissingColumns = errors.New("csv is missing required columns")
	ErrEmptyCSV       = errors.New("csv has no header row")
	errDryRunRollback = errors.New("dry run")
)

type ImportService struct {
	db *gorm.DB
}

type ImportOptions struct {
	DryRun bool `json:"dry_run"`
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Skipped int              `json:"skipped"`
	Errors  []ImportRowError `json:"errors"`
	DryRun  bool             `json:"dry_run"`
}

// GemstoneRecord is one valid CSV row. Row is the 1-based line number, so the
// first data row is 2. Fields holds the columns the row actually supplied;
// updates of an existing gemstone touch only those.
type GemstoneRecord struct {
	Row      int
	Gemstone models.Gemstone
	Fields   map[string]bool
}

func NewImportService(db *gorm.DB) *ImportService {
	return &ImportService{db: db}
}

// ParseGemstoneCSV validates every row. Invalid rows are reported and left
// out of the returned records; a bad header fails the whole file.
func ParseGemstoneCSV(r io.Reader) ([]GemstoneRecord, []ImportRowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if name != "" {
			columns[name] = i
		}
	}

	var missing []string
	for _, name := range requiredCSVColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var (
		records []GemstoneRecord
		rowErrs []ImportRowError
		serials = make(map[string]int)
	)

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rowErrs = append(rowErrs, ImportRowError{Row: parseErr.StartLine, Message: parseErr.Err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)

		get := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[idx])
		}

		if isBlankRow(fields) {
			continue
		}

		gemstone, fieldErr := parseGemstoneRow(get)
		if fieldErr != nil {
			fieldErr.Row = line
			rowErrs = append(rowErrs, *fieldErr)
			continue
		}

		if gemstone.SerialNumber != "" {
			if first, dup := serials[gemstone.SerialNumber]; dup {
				rowErrs = append(rowErrs, ImportRowError{
					Row:     line,
					Field:   "serial_number",
					Message: fmt.Sprintf("duplicate of row %d", first),
				})
				continue
			}
			serials[gemstone.SerialNumber] = line
		}

		supplied := make(map[string]bool, len(CSVColumns))
		for _, name := range CSVColumns {
			if get(name) != "" {
				supplied[name] = true
			}
		}

		records = append(records, GemstoneRecord{Row: line, Gemstone: gemstone, Fields: supplied})
	}

	return records, rowErrs, nil
}

func isBlankRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseGemstoneRow(get func(string) string) (models.Gemstone, *ImportRowError) {
	fail := func(field, format string, args ...interface{}) (models.Gemstone, *ImportRowError) {
		return models.Gemstone{}, &ImportRowError{Field: field, Message: fmt.Sprintf(format, args...)}
	}

	g := models.Gemstone{
		SerialNumber: get("serial_number"),
		Name:         get("name"),
		Type:         strings.ToLower(get("type")),
		Color:        strings.ToLower(get("color")),
		Cut:          get("cut"),
		Clarity:      get("clarity"),
		Origin:       get("origin"),
		Description:  get("description"),
		Status:       models.GemstoneStatusActive,
	}

	if g.Name == "" {
		return fail("name", "name is required")
	}
	if g.Type == "" {
		return fail("type", "type is required")
	}

	price, err := decimal.NewFromString(get("price"))
	if err != nil {
		return fail("price", "invalid price %q", get("price"))
	}
	if price.LessThan(minPrice) {
		return fail("price", "price must be at least 0.01")
	}
	g.Price = price.Round(2)

	if raw := get("weight"); raw != "" {
		weight, err := decimal.NewFromString(raw)
		if err != nil || weight.IsNegative() {
			return fail("weight", "invalid weight %q", raw)
		}
		g.Weight = weight.Round(2)
	}

	if raw := get("stock_quantity"); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil || stock < 0 {
			return fail("stock_quantity", "invalid stock quantity %q", raw)
		}
		g.StockQuantity = stock
	}

	if raw := get("certified"); raw != "" {
		certified, ok := parseCSVBool(raw)
		if !ok {
			return fail("certified", "invalid boolean %q", raw)
		}
		g.Certified = certified
	}

	if raw := get("featured"); raw != "" {
		featured, ok := parseCSVBool(raw)
		if !ok {
			return fail("featured", "invalid boolean %q", raw)
		}
		g.Featured = featured
	}

	if raw := strings.ToLower(get("status")); raw != "" {
		status := models.GemstoneStatus(raw)
		switch status {
		case models.GemstoneStatusDraft, models.GemstoneStatusActive, models.GemstoneStatusArchived:
			g.Status = status
		default:
			return fail("status", "unknown status %q", raw)
		}
	}

	if raw := get("images"); raw != "" {
		for _, image := range strings.Split(raw, imageSeparator) {
			if image = strings.TrimSpace(image); image != "" {
				g.Images = append(g.Images, image)
			}
		}
	}

	return g, nil
}

func parseCSVBool(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}

// Import upserts valid rows by serial number in one transaction. A dry run
// performs the same writes and rolls them back so the counts are exact.
func (s *ImportService) Import(r io.Reader, opts ImportOptions) (*ImportResult, error) {
	records, rowErrs, err := ParseGemstoneCSV(r)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Errors:  rowErrs,
		Skipped: len(rowErrs),
		DryRun:  opts.DryRun,
	}
	if result.Errors == nil {
		result.Errors = []ImportRowError{}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, record := range records {
			created, err := upsertGemstone(tx, record)
			if err != nil {
				return fmt.Errorf("row %d: %w", record.Row, err)
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		if opts.DryRun {
			return errDryRunRollback
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRunRollback) {
		return nil, fmt.Errorf("import failed: %w", err)
	}

	if !opts.DryRun {
		metrics.RecordImportRows(result.Created, result.Updated, 0, len(result.Errors))
	}
	logrus.WithFields(logrus.Fields{
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
		"dry_run": opts.DryRun,
	}).Info("Gemstone CSV import finished")

	return result, nil
}

func upsertGemstone(tx *gorm.DB, record GemstoneRecord) (bool, error) {
	g := record.Gemstone
	if g.SerialNumber != "" {
		var existing models.Gemstone
		err := tx.Unscoped().Where("serial_number = ?", g.SerialNumber).First(&existing).Error
		if err == nil {
			if err := tx.Unscoped().Model(&existing).Updates(gemstoneUpdates(g, record.Fields)).Error; err != nil {
				return false, fmt.Errorf("failed to update %s: %w", g.SerialNumber, err)
			}
			return false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
	} else {
		serial, err := utils.GenerateSerialNumber(g.Type)
		if err != nil {
			return false, err
		}
		g.SerialNumber = serial
	}

	if err := tx.Create(&g).Error; err != nil {
		return false, fmt.Errorf("failed to create %s: %w", g.SerialNumber, err)
	}
	return true, nil
}

// gemstoneUpdates maps the supplied columns onto an existing row. Columns
// that are absent or blank keep their stored value. Matching a soft-deleted
// row revives it.
func gemstoneUpdates(g models.Gemstone, supplied map[string]bool) map[string]interface{} {
	values := map[string]interface{}{
		"name":           g.Name,
		"type":           g.Type,
		"color":          g.Color,
		"cut":            g.Cut,
		"clarity":        g.Clarity,
		"weight":         g.Weight,
		"origin":         g.Origin,
		"price":          g.Price,
		"stock_quantity": g.StockQuantity,
		"certified":      g.Certified,
		"status":         g.Status,
		"featured":       g.Featured,
		"description":    g.Description,
		"images":         g.Images,
	}

	updates := map[string]interface{}{"deleted_at": nil}
	for column, value := range values {
		if supplied[column] {
			updates[column] = value
		}
	}
	return updates
}

// Export writes every non-deleted gemstone, ordered by serial number.
func (s *ImportService) Export(w io.Writer, includeHidden bool) (int, error) {
	query := s.db.Model(&models.Gemstone{}).Order("serial_number ASC")
	if !includeHidden {
		query = query.Where("status = ?", models.GemstoneStatusActive)
	}

	var gemstones []models.Gemstone
	if err := query.Find(&gemstones).Error; err != nil {
		return 0, fmt.Errorf("failed to load gemstones: %w", err)
	}

	if err := WriteGemstoneCSV(w, gemstones); err != nil {
		return 0, err
	}
	return len(gemstones), nil
}

func WriteGemstoneCSV(w io.Writer, gemstones []models.Gemstone) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVColumns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, g := range gemstones {
		if err := writer.Write([]string{
			g.SerialNumber,
			g.Name,
			g.Type,
			g.Color,
			g.Cut,
			g.Clarity,
			g.Weight.StringFixed(2),
			g.Origin,
			g.Price.StringFixed(2),
			strconv.Itoa(g.StockQuantity),
			strconv.FormatBool(g.Certified),
			string(g.Status),
			strconv.FormatBool(g.Featured),
			g.Description,
			strings.Join(g.Images, imageSeparator),
		}); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
