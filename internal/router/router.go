// internal/router/router.go
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/javajoker/gemstore-backend/internal/config"
	"github.com/javajoker/gemstore-backend/internal/handlers"
	"github.com/javajoker/gemstore-backend/internal/metrics"
	"github.com/javajoker/gemstore-backend/internal/middleware"
	"github.com/javajoker/gemstore-backend/internal/services"
	"github.com/javajoker/gemstore-backend/internal/utils"
)

const version = "1.0.0"

func Initialize(db *gorm.DB, cfg *config.Config, svc *services.Services, limiters *middleware.RateLimiters) *gin.Engine {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Auth)
	userHandler := handlers.NewUserHandler(svc.User)
	gemstoneHandler := handlers.NewGemstoneHandler(svc.Gemstone, svc.Currency, svc.Favorite)
	currencyHandler := handlers.NewCurrencyHandler(svc.Currency)
	cartHandler := handlers.NewCartHandler(svc.Cart)
	orderHandler := handlers.NewOrderHandler(svc.Order)
	favoriteHandler := handlers.NewFavoriteHandler(svc.Favorite)
	chatHandler := handlers.NewChatHandler(svc.Chat)
	activityHandler := handlers.NewActivityHandler(svc.Activity)
	inventoryHandler := handlers.NewInventoryHandler(svc.Inventory)
	mediaHandler := handlers.NewMediaHandler(svc.Storage, svc.Media, svc.Gemstone)
	importHandler := handlers.NewImportHandler(svc.Import)
	adminHandler := handlers.NewAdminHandler(svc.Admin, svc.Chat)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.AllowedOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(limiters.General.Middleware())

	r.GET("/health", healthHandler(db))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Local uploads are served only when S3 is not in use.
	if cfg.AWS.AccessKeyID == "" {
		r.Static("/uploads", "./"+services.LocalUploadDir)
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.AuditLogMiddleware(db))
	{
		auth := v1.Group("/auth")
		auth.Use(limiters.Auth.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.GET("/verify-email/:token", authHandler.VerifyEmail)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		gemstones := v1.Group("/gemstones")
		gemstones.Use(middleware.OptionalAuth())
		{
			gemstones.GET("", gemstoneHandler.GetGemstones)
			gemstones.GET("/featured", gemstoneHandler.GetFeatured)
			gemstones.GET("/filters", gemstoneHandler.GetFilters)
			gemstones.GET("/:id", gemstoneHandler.GetGemstone)
			gemstones.GET("/:id/related", gemstoneHandler.GetRelated)
		}

		currency := v1.Group("/currency")
		{
			currency.GET("/rates", currencyHandler.GetRates)
			currency.GET("/convert", currencyHandler.Convert)
		}

		cart := v1.Group("/cart")
		cart.Use(middleware.AuthRequired())
		{
			cart.GET("", cartHandler.GetCart)
			cart.DELETE("", cartHandler.Clear)
			cart.POST("/items", cartHandler.AddItem)
			cart.PUT("/items/:gemstone_id", cartHandler.UpdateItem)
			cart.DELETE("/items/:gemstone_id", cartHandler.RemoveItem)
		}

		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("/checkout", orderHandler.Checkout)
			orders.GET("", orderHandler.ListMyOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.POST("/:id/cancel", orderHandler.CancelOrder)
			orders.POST("/:id/payment", orderHandler.StartPayment)
			orders.POST("/:id/confirm-payment", orderHandler.ConfirmPayment)
		}

		favorites := v1.Group("/favorites")
		favorites.Use(middleware.AuthRequired())
		{
			favorites.GET("", favoriteHandler.List)
			favorites.POST("/:gemstone_id", favoriteHandler.Add)
			favorites.DELETE("/:gemstone_id", favoriteHandler.Remove)
		}

		chat := v1.Group("/chat")
		chat.Use(middleware.AuthRequired())
		{
			chat.GET("/messages", chatHandler.GetMessages)
			chat.POST("/messages", chatHandler.SendMessage)
			chat.PUT("/read", chatHandler.MarkRead)
			chat.GET("/unread", chatHandler.UnreadCount)
		}

		v1.GET("/activity", middleware.AuthRequired(), activityHandler.MyFeed)

		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.GET("/profile", userHandler.GetProfile)
			users.PUT("/profile", userHandler.UpdateProfile)
			users.PUT("/preferences", userHandler.UpdatePreferences)
			users.PUT("/password", userHandler.ChangePassword)
			users.POST("/avatar", limiters.Upload.Middleware(), userHandler.UploadAvatar)
			users.DELETE("/account", userHandler.DeleteAccount)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)

			adminGemstones := admin.Group("/gemstones")
			{
				adminGemstones.GET("", gemstoneHandler.GetGemstones)
				adminGemstones.POST("", gemstoneHandler.CreateGemstone)
				adminGemstones.POST("/bulk-price", inventoryHandler.BulkAdjustPrices)
				adminGemstones.GET("/:id", gemstoneHandler.GetGemstone)
				adminGemstones.PUT("/:id", gemstoneHandler.UpdateGemstone)
				adminGemstones.DELETE("/:id", gemstoneHandler.DeleteGemstone)
				adminGemstones.PUT("/:id/price", inventoryHandler.UpdatePrice)
				adminGemstones.PUT("/:id/stock", inventoryHandler.SetStock)
				adminGemstones.POST("/:id/stock/adjust", inventoryHandler.AdjustStock)
				adminGemstones.POST("/:id/images", limiters.Upload.Middleware(), mediaHandler.UploadGemstoneImages)
				adminGemstones.POST("/:id/video/optimize", mediaHandler.OptimizeVideo)
			}

			admin.POST("/media/upload", limiters.Upload.Middleware(), mediaHandler.UploadFile)

			inventory := admin.Group("/inventory")
			{
				inventory.GET("/low-stock", inventoryHandler.LowStock)
				inventory.GET("/alerts", inventoryHandler.ListAlerts)
				inventory.POST("/check", inventoryHandler.CheckAlerts)
				inventory.PUT("/alerts/:id/resolve", inventoryHandler.ResolveAlert)
				inventory.GET("/value", inventoryHandler.Value)
			}

			adminOrders := admin.Group("/orders")
			{
				adminOrders.GET("", orderHandler.ListOrders)
				adminOrders.GET("/:id", orderHandler.GetOrder)
				adminOrders.PUT("/:id/status", orderHandler.UpdateStatus)
				adminOrders.POST("/:id/cancel", orderHandler.CancelOrder)
			}

			admin.GET("/analytics/orders", adminHandler.GetOrderAnalytics)

			adminUsers := admin.Group("/users")
			{
				adminUsers.GET("", adminHandler.GetUsers)
				adminUsers.PUT("/:id/status", adminHandler.UpdateUserStatus)
				adminUsers.PUT("/:id/role", adminHandler.UpdateUserRole)
				adminUsers.GET("/:id/activity", activityHandler.UserFeed)
			}

			adminChat := admin.Group("/chat")
			{
				adminChat.GET("/unread", adminHandler.GetUnreadChat)
				adminChat.GET("/conversations", chatHandler.ListConversations)
				adminChat.GET("/conversations/:user_id", chatHandler.GetConversation)
				adminChat.POST("/conversations/:user_id/reply", chatHandler.Reply)
				adminChat.PUT("/conversations/:user_id/read", chatHandler.AdminMarkRead)
			}

			admin.POST("/currency/refresh", currencyHandler.RefreshRates)

			admin.POST("/import/gemstones", limiters.Upload.Middleware(), importHandler.ImportGemstones)
			admin.GET("/export/gemstones", importHandler.ExportGemstones)

			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings/:category/:key", adminHandler.UpdateSetting)
			admin.GET("/audit-logs", adminHandler.GetAuditLogs)
		}
	}

	return r
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, health, dbStatus := http.StatusOK, "healthy", "up"

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status, health, dbStatus = http.StatusServiceUnavailable, "degraded", "down"
		}

		c.JSON(status, gin.H{
			"status":   health,
			"version":  version,
			"database": dbStatus,
		})
	}
}
