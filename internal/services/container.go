// internal/services/container.go
package services

import (
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/javajoker/gemstore-backend/internal/config"
)

const ratesAPITimeout = 10 * time.Second

// Infrastructure carries the optional external clients. Nil fields fall
// back to in-process implementations.
type Infrastructure struct {
	Redis       *redis.Client
	AWS         *session.Session
	RateFetcher RateFetcher
}

// Services is the wired service graph shared by the HTTP server and gemctl.
type Services struct {
	Notification *NotificationService
	Storage      *StorageService
	Media        *MediaService
	Currency     *CurrencyService
	Gemstone     *GemstoneService
	Inventory    *InventoryService
	Cart         *CartService
	Payment      *PaymentService
	Order        *OrderService
	Activity     *ActivityService
	Favorite     *FavoriteService
	Chat         *ChatService
	Auth         *AuthService
	User         *UserService
	Admin        *AdminService
	Import       *ImportService
}

func NewServices(db *gorm.DB, cfg *config.Config, infra Infrastructure) *Services {
	var cache RateCache = NewMemoryRateCache()
	if infra.Redis != nil {
		cache = NewRedisRateCache(infra.Redis)
	}

	fetcher := infra.RateFetcher
	if fetcher == nil {
		fetcher = NewHTTPRateFetcher(cfg.Currency.RatesAPIURL, cfg.Currency.RatesAPIKey, ratesAPITimeout)
	}

	pricing := NewPricingPolicy(cfg.Payment)
	threshold := cfg.Inventory.LowStockThreshold

	notification := NewNotificationService(db, cfg)
	storage := NewStorageService(cfg, infra.AWS)
	currency := NewCurrencyService(cfg.Currency, NewGormRateStore(db), cache, fetcher)
	inventory := NewInventoryService(db, notification, threshold)
	payment := NewPaymentService(cfg.Payment)

	return &Services{
		Notification: notification,
		Storage:      storage,
		Media:        NewMediaService(db, infra.AWS, cfg.AWS.VideoOptimizeLambda, cfg.AWS.S3Bucket, storage),
		Currency:     currency,
		Gemstone:     NewGemstoneService(db, NewImageMatcher()),
		Inventory:    inventory,
		Cart:         NewCartService(db, pricing, currency),
		Payment:      payment,
		Order:        NewOrderService(db, pricing, currency, payment, notification, inventory),
		Activity:     NewActivityService(db),
		Favorite:     NewFavoriteService(db),
		Chat:         NewChatService(db),
		Auth:         NewAuthService(db, cfg, notification),
		User:         NewUserService(db, storage, cfg.Currency),
		Admin:        NewAdminService(db, notification, threshold),
		Import:       NewImportService(db),
	}
}
