// internal/services/currency_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/gemstore-backend/internal/config"
	"github.com/javajoker/gemstore-backend/internal/metrics"
	"github.com/javajoker/gemstore-backend/internal/models"
)

var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrRateUnavailable     = errors.New("exchange rate unavailable")
)

// zeroDecimalCurrencies have no minor unit.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "CA$",
	"AUD": "A$",
	"CHF": "CHF ",
	"INR": "₹",
	"KRW": "₩",
	"CNY": "CN¥",
	"TWD": "NT$",
}

// RateStore persists the last fetched rate per pair.
type RateStore interface {
	Latest(ctx context.Context, base, quote string) (*models.ExchangeRate, error)
	Save(ctx context.Context, rates []models.ExchangeRate) error
}

type GormRateStore struct {
	db *gorm.DB
}

func NewGormRateStore(db *gorm.DB) *GormRateStore {
	return &GormRateStore{db: db}
}

func (s *GormRateStore) Latest(ctx context.Context, base, quote string) (*models.ExchangeRate, error) {
	var rate models.ExchangeRate
	err := s.db.WithContext(ctx).
		Where("base = ? AND quote = ?", base, quote).
		Order("fetched_at DESC").
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (s *GormRateStore) Save(ctx context.Context, rates []models.ExchangeRate) error {
	if len(rates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "base"}, {Name: "quote"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "source", "fetched_at", "updated_at"}),
	}).Create(&rates).Error
}

type CurrencyService struct {
	cfg     config.CurrencyConfig
	store   RateStore
	cache   RateCache
	fetcher RateFetcher
	ttl     time.Duration
	now     func() time.Time
}

func NewCurrencyService(cfg config.CurrencyConfig, store RateStore, cache RateCache, fetcher RateFetcher) *CurrencyService {
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CurrencyService{
		cfg:     cfg,
		store:   store,
		cache:   cache,
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
	}
}

type ConversionResult struct {
	Amount          decimal.Decimal `json:"amount"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Rate            decimal.Decimal `json:"rate"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	Formatted       string          `json:"formatted"`
}

type RatesSnapshot struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	Supported []string                   `json:"supported"`
}

func (s *CurrencyService) BaseCurrency() string {
	return s.cfg.BaseCurrency
}

// Normalize upper-cases code and checks it is supported. Empty means base.
func (s *CurrencyService) Normalize(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return s.cfg.BaseCurrency, nil
	}
	if !s.cfg.IsSupported(code) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
	}
	return code, nil
}

// GetRate returns how many units of `to` one unit of `from` buys. Pairs that do
// not involve the base currency are crossed through it.
func (s *CurrencyService) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, err := s.Normalize(from)
	if err != nil {
		return decimal.Zero, err
	}
	to, err = s.Normalize(to)
	if err != nil {
		return decimal.Zero, err
	}

	if from == to {
		metrics.RecordRateLookup("identity")
		return decimal.NewFromInt(1), nil
	}

	base := s.cfg.BaseCurrency
	switch {
	case from == base:
		return s.baseRate(ctx, to)
	case to == base:
		fromRate, err := s.baseRate(ctx, from)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromInt(1).DivRound(fromRate, 8), nil
	default:
		fromRate, err := s.baseRate(ctx, from)
		if err != nil {
			return decimal.Zero, err
		}
		toRate, err := s.baseRate(ctx, to)
		if err != nil {
			return decimal.Zero, err
		}
		return toRate.DivRound(fromRate, 8), nil
	}
}

// baseRate resolves base->quote through cache, then a fresh DB row, then the
// API. A stale DB row is used only when the API is unreachable.
func (s *CurrencyService) baseRate(ctx context.Context, quote string) (decimal.Decimal, error) {
	base := s.cfg.BaseCurrency

	if rate, ok, err := s.cache.Get(ctx, base, quote); err != nil {
		logrus.WithError(err).WithField("quote", quote).Warn("Rate cache lookup failed")
	} else if ok {
		metrics.RecordRateLookup("cache")
		return rate, nil
	}

	var stored *models.ExchangeRate
	if s.store != nil {
		row, err := s.store.Latest(ctx, base, quote)
		if err != nil {
			logrus.WithError(err).WithField("quote", quote).Warn("Rate store lookup failed")
		}
		stored = row
	}

	if stored != nil && s.now().Sub(stored.FetchedAt) < s.ttl {
		s.cacheRate(ctx, quote, stored.Rate)
		metrics.RecordRateLookup("database")
		return stored.Rate, nil
	}

	rates, err := s.fetchAndStore(ctx, []string{quote})
	if err == nil {
		if rate, ok := rates[quote]; ok {
			metrics.RecordRateLookup("api")
			return rate, nil
		}
	}

	if stored != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"quote":      quote,
			"fetched_at": stored.FetchedAt,
		}).Warn("Using stale exchange rate")
		metrics.RecordRateLookup("database")
		return stored.Rate, nil
	}

	if err == nil {
		err = fmt.Errorf("no rate returned for %s", quote)
	}
	return decimal.Zero, fmt.Errorf("%w: %s/%s: %v", ErrRateUnavailable, base, quote, err)
}

func (s *CurrencyService) fetchAndStore(ctx context.Context, quotes []string) (map[string]decimal.Decimal, error) {
	if s.fetcher == nil {
		return nil, errors.New("no rate fetcher configured")
	}

	rates, err := s.fetcher.FetchRates(ctx, s.cfg.BaseCurrency, quotes)
	if err != nil {
		return nil, err
	}

	fetchedAt := s.now()
	rows := make([]models.ExchangeRate, 0, len(rates))
	for quote, rate := range rates {
		rows = append(rows, models.ExchangeRate{
			Base:      s.cfg.BaseCurrency,
			Quote:     quote,
			Rate:      rate,
			Source:    s.fetcher.Source(),
			FetchedAt: fetchedAt,
		})
		s.cacheRate(ctx, quote, rate)
	}

	if s.store != nil {
		if err := s.store.Save(ctx, rows); err != nil {
			logrus.WithError(err).Error("Failed to persist exchange rates")
		}
	}
	return rates, nil
}

func (s *CurrencyService) cacheRate(ctx context.Context, quote string, rate decimal.Decimal) {
	if err := s.cache.Set(ctx, s.cfg.BaseCurrency, quote, rate, s.ttl); err != nil {
		logrus.WithError(err).WithField("quote", quote).Warn("Failed to cache exchange rate")
	}
}

// Convert applies the current rate and rounds to the target currency's minor unit.
func (s *CurrencyService) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rate, err := s.GetRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	to, _ = s.Normalize(to)
	return RoundForCurrency(amount.Mul(rate), to), nil
}

func (s *CurrencyService) ConvertDetailed(ctx context.Context, amount decimal.Decimal, from, to string) (*ConversionResult, error) {
	from, err := s.Normalize(from)
	if err != nil {
		return nil, err
	}
	to, err = s.Normalize(to)
	if err != nil {
		return nil, err
	}

	rate, err := s.GetRate(ctx, from, to)
	if err != nil {
		return nil, err
	}
	converted := RoundForCurrency(amount.Mul(rate), to)

	return &ConversionResult{
		Amount:          amount,
		From:            from,
		To:              to,
		Rate:            rate,
		ConvertedAmount: converted,
		Formatted:       FormatMoney(converted, to),
	}, nil
}

// Rates lists base->quote for every supported currency.
func (s *CurrencyService) Rates(ctx context.Context) (*RatesSnapshot, error) {
	snapshot := &RatesSnapshot{
		Base:      s.cfg.BaseCurrency,
		Rates:     make(map[string]decimal.Decimal, len(s.cfg.SupportedCurrencies)),
		Supported: s.cfg.SupportedCurrencies,
	}

	for _, code := range s.cfg.SupportedCurrencies {
		rate, err := s.GetRate(ctx, s.cfg.BaseCurrency, code)
		if err != nil {
			return nil, err
		}
		snapshot.Rates[code] = rate
	}
	return snapshot, nil
}

// RefreshRates fetches every supported currency in one request and overwrites
// the cache and store.
func (s *CurrencyService) RefreshRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	quotes := make([]string, 0, len(s.cfg.SupportedCurrencies))
	for _, code := range s.cfg.SupportedCurrencies {
		if code != s.cfg.BaseCurrency {
			quotes = append(quotes, code)
		}
	}
	if len(quotes) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	rates, err := s.fetchAndStore(ctx, quotes)
	metrics.RecordRateRefresh(err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh exchange rates: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"base":  s.cfg.BaseCurrency,
		"count": len(rates),
	}).Info("Exchange rates refreshed")
	return rates, nil
}

// StartScheduler runs RefreshRates on the configured cron spec. Callers stop
// the returned cron on shutdown.
func (s *CurrencyService) StartScheduler() (*cron.Cron, error) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(s.cfg.RefreshSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.RefreshRates(ctx); err != nil {
			logrus.WithError(err).Error("Scheduled exchange rate refresh failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", s.cfg.RefreshSchedule, err)
	}

	scheduler.Start()
	logrus.WithField("schedule", s.cfg.RefreshSchedule).Info("Exchange rate refresh scheduled")
	return scheduler, nil
}

// LocalizeGemstones fills DisplayPrice/DisplayCurrency for the requested currency.
func (s *CurrencyService) LocalizeGemstones(ctx context.Context, gemstones []models.Gemstone, currency string) error {
	currency, err := s.Normalize(currency)
	if err != nil {
		return err
	}
	if currency == s.cfg.BaseCurrency || len(gemstones) == 0 {
		return nil
	}

	rate, err := s.GetRate(ctx, s.cfg.BaseCurrency, currency)
	if err != nil {
		return err
	}

	for i := range gemstones {
		price := RoundForCurrency(gemstones[i].Price.Mul(rate), currency)
		gemstones[i].DisplayPrice = &price
		gemstones[i].DisplayCurrency = currency
	}
	return nil
}

func RoundForCurrency(amount decimal.Decimal, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return amount.Round(0)
	}
	return amount.Round(2)
}

// FormatMoney renders amount with the currency symbol, e.g. "$1,234.50" or "¥1,235".
func FormatMoney(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(currency)
	places := int32(2)
	if zeroDecimalCurrencies[currency] {
		places = 0
	}

	text := amount.Abs().StringFixed(places)
	intPart, fracPart := text, ""
	if dot := strings.IndexByte(text, '.'); dot >= 0 {
		intPart, fracPart = text[:dot], text[dot:]
	}

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}

	symbol, ok := currencySymbols[currency]
	if !ok {
		return fmt.Sprintf("%s%s%s %s", sign, grouped.String(), fracPart, currency)
	}
	return sign + symbol + grouped.String() + fracPart
}
