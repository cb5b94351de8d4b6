// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Log         LogConfig
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	AWS         AWSConfig
	Payment     PaymentConfig
	Currency    CurrencyConfig
	Inventory   InventoryConfig
	Email       EmailConfig
	I18n        I18nConfig
	Frontend    FrontendConfig
	Seed        SeedConfig
}

// SeedConfig holds the bootstrap admin account created on first start.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
}

type LogConfig struct {
	Level  string
	Format string
}

type FrontendConfig struct {
	BaseURL        string
	AllowedOrigins []string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  int // in hours
	RefreshTokenTTL int // in hours
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type AWSConfig struct {
	Region              string
	AccessKeyID         string
	SecretAccessKey     string
	S3Bucket            string
	CloudFrontURL       string
	VideoOptimizeLambda string
}

type PaymentConfig struct {
	StripeSecretKey       string
	StripePublishableKey  string
	TaxRatePercent        float64
	FreeShippingThreshold float64
	FlatShippingFee       float64
}

type CurrencyConfig struct {
	BaseCurrency        string
	SupportedCurrencies []string
	RatesAPIURL         string
	RatesAPIKey         string
	CacheTTLMinutes     int
	RefreshSchedule     string
}

type InventoryConfig struct {
	LowStockThreshold int
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != "" && e.FromEmail != ""
}

type I18nConfig struct {
	DefaultLocale string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "gemstore"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL:  getEnvAsInt("JWT_ACCESS_TTL", 24),   // 24 hours
			RefreshTokenTTL: getEnvAsInt("JWT_REFRESH_TTL", 168), // 7 days
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		AWS: AWSConfig{
			Region:              getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:         getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:            getEnv("AWS_S3_BUCKET", "gemstore-media"),
			CloudFrontURL:       getEnv("AWS_CLOUDFRONT_URL", ""),
			VideoOptimizeLambda: getEnv("AWS_VIDEO_OPTIMIZE_FUNCTION", ""),
		},
		Payment: PaymentConfig{
			StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
			StripePublishableKey:  getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			TaxRatePercent:        getEnvAsFloat("TAX_RATE_PERCENT", 8.0),
			FreeShippingThreshold: getEnvAsFloat("FREE_SHIPPING_THRESHOLD", 500.0),
			FlatShippingFee:       getEnvAsFloat("FLAT_SHIPPING_FEE", 25.0),
		},
		Currency: CurrencyConfig{
			BaseCurrency:        strings.ToUpper(getEnv("BASE_CURRENCY", "USD")),
			SupportedCurrencies: upperAll(getEnvAsSlice("SUPPORTED_CURRENCIES", []string{"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "CHF", "INR"})),
			RatesAPIURL:         getEnv("EXCHANGE_RATES_API_URL", "https://api.exchangerate.host/latest"),
			RatesAPIKey:         getEnv("EXCHANGE_RATES_API_KEY", ""),
			CacheTTLMinutes:     getEnvAsInt("EXCHANGE_RATES_CACHE_TTL", 60),
			RefreshSchedule:     getEnv("EXCHANGE_RATES_REFRESH_CRON", "@every 1h"),
		},
		Inventory: InventoryConfig{
			LowStockThreshold: getEnvAsInt("LOW_STOCK_THRESHOLD", 3),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "orders@gemstore.local"),
			FromName:     getEnv("FROM_NAME", "Gemstore"),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		Frontend: FrontendConfig{
			BaseURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Seed.AdminPassword == "admin123456" && c.Environment == "production" {
		return fmt.Errorf("default admin password must be changed in production")
	}

	if !c.Currency.IsSupported(c.Currency.BaseCurrency) {
		return fmt.Errorf("base currency %s is not in the supported currency list", c.Currency.BaseCurrency)
	}

	return nil
}

// IsSupported reports whether code is one of the configured currencies.
func (c CurrencyConfig) IsSupported(code string) bool {
	code = strings.ToUpper(code)
	for _, supported := range c.SupportedCurrencies {
		if supported == code {
			return true
		}
	}
	return false
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func upperAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
