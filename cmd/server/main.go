// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/gemstore-backend/internal/bootstrap"
	"github.com/javajoker/gemstore-backend/internal/database"
	"github.com/javajoker/gemstore-backend/internal/middleware"
	"github.com/javajoker/gemstore-backend/internal/router"
)

func main() {
	app, err := bootstrap.New()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start")
	}
	defer app.Close()
	cfg := app.Config

	if err := database.RunMigrations(app.DB); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	if err := database.SeedInitialData(app.DB, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		logrus.WithError(err).Fatal("Failed to seed initial data")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Background jobs
	stop := make(chan struct{})
	limiters := middleware.DefaultRateLimiters()
	limiters.StartCleanup(stop)

	scheduler, err := app.Services.Currency.StartScheduler()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start exchange rate scheduler")
	}

	r := router.Initialize(app.DB, cfg, app.Services, limiters)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	close(stop)
	<-scheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}
