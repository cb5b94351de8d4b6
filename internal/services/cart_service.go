// internal/services/cart_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/javajoker/gemstore-backend/internal/models"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

var ErrGemstoneUnavailable = errors.New("gemstone is not available for purchase")

type CartService struct {
	db              *gorm.DB
	pricing         PricingPolicy
	currencyService *CurrencyService
}

type AddCartItemRequest struct {
	GemstoneID uuid.UUID `json:"gemstone_id" validate:"required"`
	Quantity   int       `json:"quantity" validate:"required,min=1,max=100"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=100"`
}

type CartLine struct {
	models.CartItem
	LineTotal decimal.Decimal `json:"line_total"`
	Available bool            `json:"available"`
}

type CartView struct {
	Items        []CartLine      `json:"items"`
	ItemCount    int             `json:"item_count"`
	Totals       OrderTotals     `json:"totals"`
	Currency     string          `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	Display      OrderTotals     `json:"display_totals"`
}

func NewCartService(db *gorm.DB, pricing PricingPolicy, currencyService *CurrencyService) *CartService {
	return &CartService{
		db:              db,
		pricing:         pricing,
		currencyService: currencyService,
	}
}

// GetCart returns the cart with totals in the base currency and in the
// requested display currency.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID, currency string) (*CartView, error) {
	var items []models.CartItem
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Preload("Gemstone").
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	view := &CartView{Items: make([]CartLine, 0, len(items))}
	subtotal := decimal.Zero
	for _, item := range items {
		line := CartLine{
			CartItem:  item,
			LineTotal: LineTotal(item.Gemstone.Price, item.Quantity),
			Available: item.Gemstone.IsVisible() && item.Gemstone.StockQuantity >= item.Quantity,
		}
		view.Items = append(view.Items, line)
		view.ItemCount += item.Quantity
		subtotal = subtotal.Add(line.LineTotal)
	}
	view.Totals = s.pricing.Totals(subtotal)

	display, err := s.displayTotals(ctx, view.Totals, currency)
	if err != nil {
		return nil, err
	}
	view.Currency = display.currency
	view.ExchangeRate = display.rate
	view.Display = display.totals

	return view, nil
}

// AddItem adds a gemstone or merges into the existing line. The merged
// quantity must not exceed current stock.
func (s *CartService) AddItem(userID uuid.UUID, req *AddCartItemRequest) (*models.CartItem, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var item models.CartItem
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var gemstone models.Gemstone
		if err := tx.First(&gemstone, "id = ?", req.GemstoneID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGemstoneNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}
		if !gemstone.IsVisible() {
			return ErrGemstoneNotFound
		}

		err := tx.Where("user_id = ? AND gemstone_id = ?", userID, req.GemstoneID).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if req.Quantity > gemstone.StockQuantity {
				return ErrInsufficientStock
			}
			item = models.CartItem{UserID: userID, GemstoneID: req.GemstoneID, Quantity: req.Quantity}
			if err := tx.Omit("Gemstone").Create(&item).Error; err != nil {
				return fmt.Errorf("failed to add cart item: %w", err)
			}
		case err != nil:
			return fmt.Errorf("database error: %w", err)
		default:
			merged := item.Quantity + req.Quantity
			if merged > gemstone.StockQuantity {
				return ErrInsufficientStock
			}
			if err := tx.Model(&item).Update("quantity", merged).Error; err != nil {
				return fmt.Errorf("failed to update cart item: %w", err)
			}
			item.Quantity = merged
		}

		item.Gemstone = gemstone
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateQuantity sets the line quantity; zero removes the line.
func (s *CartService) UpdateQuantity(userID, gemstoneID uuid.UUID, req *UpdateCartItemRequest) (*models.CartItem, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.Quantity == 0 {
		return nil, s.RemoveItem(userID, gemstoneID)
	}

	var item models.CartItem
	if err := s.db.Where("user_id = ? AND gemstone_id = ?", userID, gemstoneID).
		Preload("Gemstone").
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if req.Quantity > item.Gemstone.StockQuantity {
		return nil, ErrInsufficientStock
	}

	if err := s.db.Model(&item).Update("quantity", req.Quantity).Error; err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	item.Quantity = req.Quantity
	return &item, nil
}

func (s *CartService) RemoveItem(userID, gemstoneID uuid.UUID) error {
	result := s.db.Unscoped().Where("user_id = ? AND gemstone_id = ?", userID, gemstoneID).Delete(&models.CartItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (s *CartService) Clear(userID uuid.UUID) error {
	if err := s.db.Unscoped().Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

type displayAmounts struct {
	currency string
	rate     decimal.Decimal
	totals   OrderTotals
}

func (s *CartService) displayTotals(ctx context.Context, totals OrderTotals, currency string) (*displayAmounts, error) {
	return convertTotals(ctx, s.currencyService, totals, currency)
}

// convertTotals converts each component separately so the display lines add up.
func convertTotals(ctx context.Context, currencyService *CurrencyService, totals OrderTotals, currency string) (*displayAmounts, error) {
	if currencyService == nil {
		return &displayAmounts{currency: currency, rate: decimal.NewFromInt(1), totals: totals}, nil
	}

	code, err := currencyService.Normalize(currency)
	if err != nil {
		return nil, err
	}
	rate, err := currencyService.GetRate(ctx, currencyService.BaseCurrency(), code)
	if err != nil {
		return nil, err
	}

	convert := func(amount decimal.Decimal) decimal.Decimal {
		return RoundForCurrency(amount.Mul(rate), code)
	}
	display := OrderTotals{
		Subtotal: convert(totals.Subtotal),
		Tax:      convert(totals.Tax),
		Shipping: convert(totals.Shipping),
	}
	display.Total = display.Subtotal.Add(display.Tax).Add(display.Shipping)

	return &displayAmounts{currency: code, rate: rate, totals: display}, nil
}
