// internal/bootstrap/bootstrap.go
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/gemstore-backend/internal/config"
	"github.com/javajoker/gemstore-backend/internal/database"
	"github.com/javajoker/gemstore-backend/internal/i18n"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

// App holds the process-wide resources shared by the server and gemctl.
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Services *services.Services
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT. Production defaults to JSON.
func ConfigureLogging(cfg config.LogConfig, environment string) {
	logrus.SetOutput(os.Stdout)

	if cfg.Format == "json" || environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// New loads configuration and connects every backing service. Redis and AWS
// are optional: a failed Redis ping falls back to the in-memory rate cache.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	ConfigureLogging(cfg.Log, cfg.Environment)

	if err := i18n.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize i18n: %w", err)
	}
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, DB: db}
	app.Redis = connectRedis(cfg.Redis)

	sess, err := services.NewAWSSession(cfg.AWS)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	if sess == nil {
		logrus.Info("AWS credentials not set, using local uploads")
	}

	app.Services = services.NewServices(db, cfg, services.Infrastructure{
		Redis: app.Redis,
		AWS:   sess,
	})
	return app, nil
}

func connectRedis(cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		logrus.Info("Redis disabled, using in-memory rate cache")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).WithField("addr", cfg.Addr()).Warn("Redis unreachable, using in-memory rate cache")
		client.Close()
		return nil
	}

	logrus.WithField("addr", cfg.Addr()).Info("Redis connection established")
	return client
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing Redis connection")
		}
	}
	if a.DB != nil {
		database.Close(a.DB)
	}
}
