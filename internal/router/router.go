// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/estate-backend/internal/config"
	"github.com/javajoker/estate-backend/internal/handlers"
	"github.com/javajoker/estate-backend/internal/middleware"
	"github.com/javajoker/estate-backend/internal/models"
	"github.com/javajoker/estate-backend/internal/services"
	"github.com/javajoker/estate-backend/internal/termsheet"
	"github.com/javajoker/estate-backend/internal/utils"
)

// Options replaces collaborators that Initialize would otherwise build from
// the configuration. Zero values mean "build the default".
type Options struct {
	Storage    *services.StorageService
	Canceler   services.SubscriptionCanceler
	Mailer     services.Mailer
	TermSheets termsheet.KV
	RateLimits *middleware.RateLimits
}

// Initialize wires services, handlers and routes. The returned func stops
// background work started here and must be called on shutdown.
func Initialize(db *gorm.DB, cfg *config.Config, opts Options) (*gin.Engine, func()) {
	// Initialize services
	var notificationService *services.NotificationService
	if opts.Mailer != nil {
		notificationService = services.NewNotificationServiceWithMailer(db, cfg, opts.Mailer)
	} else {
		notificationService = services.NewNotificationService(db, cfg)
	}

	storageService := opts.Storage
	if storageService == nil {
		var err error
		if storageService, err = services.NewStorageService(cfg); err != nil {
			logrus.WithError(err).Warn("Object storage unavailable, document uploads disabled")
		}
	}

	canceler := opts.Canceler
	if canceler == nil {
		canceler = services.NewPaymentService(cfg)
	}

	kv := opts.TermSheets
	if kv == nil {
		kv = termsheet.NewGormKV(db)
	}

	authService := services.NewAuthService(db, cfg)
	userService := services.NewUserService(db)
	contractService := services.NewContractService(db, cfg, storageService, notificationService)
	signingService := services.NewSigningService(db, cfg, contractService, notificationService)
	approvalService := services.NewApprovalService(db, cfg, canceler, notificationService)
	adminService := services.NewAdminService(db)
	termSheets := termsheet.NewService(kv, cfg.TermSheet.Namespace)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	contractHandler := handlers.NewContractHandler(contractService, signingService)
	signingHandler := handlers.NewSigningHandler(signingService)
	termSheetHandler := handlers.NewTermSheetHandler(termSheets)
	earlyAccessHandler := handlers.NewEarlyAccessHandler(approvalService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	limits := opts.RateLimits
	if limits == nil {
		limits = middleware.NewRateLimits()
	}

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(limits.General.Middleware())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(limits.Auth.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
		}

		// User routes
		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.PUT("/me", userHandler.UpdateProfile)
		}

		// Template catalogue and term sheets
		tmpl := v1.Group("/templates")
		{
			tmpl.GET("", termSheetHandler.ListTemplates)
			tmpl.POST("/:id/preview", termSheetHandler.PreviewTemplate)
		}

		termSheetRoutes := v1.Group("/term-sheets")
		termSheetRoutes.Use(middleware.AuthRequired())
		{
			termSheetRoutes.GET("", termSheetHandler.List)
			termSheetRoutes.POST("", termSheetHandler.Create)
			termSheetRoutes.GET("/:id", termSheetHandler.Get)
			termSheetRoutes.PATCH("/:id", termSheetHandler.Update)
			termSheetRoutes.DELETE("/:id", termSheetHandler.Delete)
			termSheetRoutes.GET("/:id/document", termSheetHandler.Document)
		}

		// Contract routes
		contracts := v1.Group("/contracts")
		contracts.Use(middleware.AuthRequired())
		{
			contracts.GET("", contractHandler.ListContracts)
			contracts.GET("/:id", contractHandler.GetContract)
			contracts.POST("/:id/sections/:sectionId/sign", contractHandler.SignSection)

			// Authoring and link management
			authors := contracts.Group("")
			authors.Use(middleware.RequireRoles(models.UserRoleAgent, models.UserRoleContractor, models.UserRoleAdmin))
			{
				authors.POST("", contractHandler.CreateContract)
				authors.POST("/:id/document", limits.Upload.Middleware(), contractHandler.AttachDocument)
				authors.POST("/:id/signing-links", contractHandler.IssueSigningLink)
				authors.GET("/:id/signing-links", contractHandler.ListSigningLinks)
			}
		}

		signingLinks := v1.Group("/signing-links")
		signingLinks.Use(middleware.AuthRequired(), middleware.RequireRoles(models.UserRoleAgent, models.UserRoleContractor, models.UserRoleAdmin))
		{
			signingLinks.DELETE("/:id", contractHandler.RevokeSigningLink)
		}

		// Public signing via emailed token
		sign := v1.Group("/sign")
		sign.Use(limits.Signing.Middleware())
		{
			sign.GET("/:token", signingHandler.Resolve)
			sign.POST("/:token/sections/:sectionId", signingHandler.Sign)
		}

		// Early access for members
		earlyAccess := v1.Group("/early-access")
		earlyAccess.Use(middleware.AuthRequired())
		{
			earlyAccess.POST("/apply", earlyAccessHandler.Apply)
			earlyAccess.GET("/me", earlyAccessHandler.GetMine)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			// Dashboard
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)

			// User management
			adminUsers := admin.Group("/users")
			{
				adminUsers.GET("", adminHandler.GetUsers)
				adminUsers.PUT("/:id/status", adminHandler.UpdateUserStatus)
			}

			admin.GET("/audit-logs", adminHandler.GetAuditLogs)

			notifications := admin.Group("/notifications")
			{
				notifications.GET("", adminHandler.GetNotifications)
				notifications.PUT("/:id/read", adminHandler.MarkNotificationRead)
			}

			// Early-access review and quotas
			adminEarlyAccess := admin.Group("/early-access")
			{
				adminEarlyAccess.POST("/review", earlyAccessHandler.Review)
				adminEarlyAccess.GET("/applications", earlyAccessHandler.ListApplications)
				adminEarlyAccess.GET("/quotas", earlyAccessHandler.ListQuotas)
				adminEarlyAccess.PUT("/quotas/:role", earlyAccessHandler.UpdateQuota)
			}
		}
	}

	return r, limits.Close
}
