package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/polterabyte/inventory-ctrl-api/api/swagger"
	"github.com/polterabyte/inventory-ctrl-api/internal/handler"
	"github.com/polterabyte/inventory-ctrl-api/internal/middleware"
	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	"github.com/polterabyte/inventory-ctrl-api/internal/repository"
	"github.com/polterabyte/inventory-ctrl-api/internal/service"
	"github.com/polterabyte/inventory-ctrl-api/pkg/cache"
	"github.com/polterabyte/inventory-ctrl-api/pkg/config"
	"github.com/polterabyte/inventory-ctrl-api/pkg/database"
	"github.com/polterabyte/inventory-ctrl-api/pkg/jobs"
	"github.com/polterabyte/inventory-ctrl-api/pkg/logger"
	corsmiddleware "github.com/polterabyte/inventory-ctrl-api/pkg/middleware/cors"
	reqidmiddleware "github.com/polterabyte/inventory-ctrl-api/pkg/middleware/requestid"
)

// @title Inventory Control API
// @version 1.0.0
// @description Material request workflow with warehouse access control
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	warehouseRepo := repository.NewWarehouseRepository(db)
	productRepo := repository.NewProductRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	assignmentRepo := repository.NewUserWarehouseRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	authService := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "inventory-ctrl-api",
	})
	userService := service.NewUserService(userRepo, auditRepo, validate, logr)

	assignmentOpts := []service.UserWarehouseServiceOption{
		service.WithAssignmentAudit(auditRepo),
	}
	if cfg.Access.CacheEnabled {
		assignmentOpts = append(assignmentOpts, service.WithAccessCache(cacheRepo, cfg.Access.CacheTTL))
	}
	assignmentService := service.NewUserWarehouseService(assignmentRepo, warehouseRepo, userRepo, logr, assignmentOpts...)

	warehouseService := service.NewWarehouseService(warehouseRepo, assignmentService, logr)

	transactionService := service.NewTransactionService(transactionRepo, productRepo, assignmentService, logr,
		service.WithExportMaxRows(cfg.Exports.MaxRows))

	notificationService := service.NewNotificationService(notificationRepo, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})

	metricsService := service.NewMetricsService()

	requestOpts := []service.RequestServiceOption{
		service.WithRequestAudit(auditRepo),
		service.WithTransitionMetrics(metricsService),
		service.WithSubmittedItemEdits(cfg.Requests.AllowSubmittedItemEdits),
		service.WithMaxItemsPerRequest(cfg.Requests.MaxItemsPerRequest),
	}
	if cfg.Notifications.Enabled {
		requestOpts = append(requestOpts, service.WithRequestNotifier(notificationService))
	}
	requestService := service.NewRequestService(requestRepo, assignmentService, productRepo, transactionService, logr, validate, requestOpts...)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	requestHandler := handler.NewRequestHandler(requestService)
	assignmentHandler := handler.NewUserWarehouseHandler(assignmentService)
	transactionHandler := handler.NewTransactionHandler(transactionService)
	warehouseHandler := handler.NewWarehouseHandler(warehouseService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	metricsHandler := handler.NewMetricsHandler(metricsService, db, redisClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/change-password", authHandler.ChangePassword)

	requests := authed.Group("/requests")
	requests.POST("", requestHandler.Create)
	requests.GET("", requestHandler.List)
	requests.GET("/:id", requestHandler.Get)
	requests.GET("/:id/history", requestHandler.History)
	requests.GET("/:id/transactions", transactionHandler.ListByRequest)
	requests.POST("/:id/submit", requestHandler.Submit)
	requests.POST("/:id/approve", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), requestHandler.Approve)
	requests.POST("/:id/receive", requestHandler.Receive)
	requests.POST("/:id/install", requestHandler.Install)
	requests.POST("/:id/complete", requestHandler.Complete)
	requests.POST("/:id/cancel", requestHandler.Cancel)
	requests.POST("/:id/reject", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), requestHandler.Reject)
	requests.POST("/:id/items", requestHandler.AddItem)
	requests.DELETE("/:id/items/:itemId", requestHandler.RemoveItem)

	assignments := authed.Group("/user-warehouses")
	assignments.GET("/check/:warehouseId", assignmentHandler.CheckAccess)
	assignments.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), assignmentHandler.Assign)
	assignments.POST("/bulk", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), assignmentHandler.BulkAssign)
	assignments.GET("/:userId", assignmentHandler.ListForUser)
	assignments.GET("/:userId/default", assignmentHandler.DefaultWarehouse)
	assignments.PATCH("/:userId/:warehouseId", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), assignmentHandler.Update)
	assignments.DELETE("/:userId/:warehouseId", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), assignmentHandler.Remove)
	assignments.PUT("/:userId/:warehouseId/default", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), assignmentHandler.SetDefault)

	transactions := authed.Group("/transactions")
	transactions.GET("", transactionHandler.List)
	transactions.GET("/export", transactionHandler.Export)

	warehouses := authed.Group("/warehouses")
	warehouses.GET("", warehouseHandler.List)
	warehouses.GET("/:id", warehouseHandler.Get)

	notifications := authed.Group("/notifications")
	notifications.GET("", notificationHandler.List)
	notifications.POST("/read-all", notificationHandler.MarkAllRead)
	notifications.POST("/:id/read", notificationHandler.MarkRead)

	users := authed.Group("/users")
	users.GET("/me", userHandler.Me)
	users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), userHandler.List)
	users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
	users.GET("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), userHandler.Get)
	users.PATCH("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
	users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Delete)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Notifications.Enabled {
		notificationService.Start(ctx)
		defer notificationService.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
