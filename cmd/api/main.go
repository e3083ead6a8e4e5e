package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	_ "factory/api/swagger" // swagger docs
	"factory/internal/auth"
	"factory/internal/cache"
	"factory/internal/config"
	"factory/internal/database"
	"factory/internal/event"
	"factory/internal/handler"
	"factory/internal/logger"
	"factory/internal/middleware"
	"factory/internal/repository"
	"factory/internal/service"
	"factory/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Factory Inventory API
// @version         1.0
// @description     Inventory, bill of materials and production order management for a footwear factory.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer zapLogger.Sync()

	db, err := database.NewConnection(cfg.Database, cfg.Log.Level, zapLogger)
	if err != nil {
		zapLogger.Fatal("Database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Warn("Failed to auto-migrate models", zap.Error(err))
	}
	zapLogger.Info("Connected to PostgreSQL")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Post-commit sinks: websocket always, redis and kafka when configured
	wsHub := websocket.NewHub(zapLogger)
	go wsHub.Run(ctx)

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Warn("Redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}
	// a nil *redis.Client must not reach the UniversalClient interface
	dashboardCache := cache.NewDashboardCache(nil, cfg.Redis.DashboardTTL)
	if redisClient != nil {
		dashboardCache = cache.NewDashboardCache(redisClient, cfg.Redis.DashboardTTL)
	}

	sinks := []event.Sink{wsHub, dashboardCache}
	if cfg.Kafka.Enabled() {
		publisher := event.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		sinks = append(sinks, publisher)
		zapLogger.Info("Publishing stock movements to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	dispatcher := event.NewDispatcher(zapLogger.Named("events"), sinks...)

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	productRepo := repository.NewProductRepository(db)
	bomRepo := repository.NewBOMRepository(db)
	stockLogRepo := repository.NewStockLogRepository(db)
	poRepo := repository.NewPurchaseOrderRepository(db)
	woRepo := repository.NewWorkOrderRepository(db)
	soRepo := repository.NewSalesOrderRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	// Core stock components
	mutator := service.NewStockMutator(materialRepo, productRepo)
	ledger := service.NewStockLedger(stockLogRepo)
	calculator := service.NewBOMCalculator(productRepo, bomRepo)

	// Services
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire, cfg.JWT.RefreshTokenExpire)
	userService := service.NewUserService(txManager, userRepo, auditRepo, tokens)
	roleService := service.NewRoleService(txManager, roleRepo, auditRepo)
	auditService := service.NewAuditService(auditRepo)
	supplierService := service.NewSupplierService(txManager, supplierRepo, materialRepo, poRepo, auditRepo)
	customerService := service.NewCustomerService(txManager, customerRepo, soRepo, auditRepo)
	materialService := service.NewMaterialService(txManager, materialRepo, supplierRepo, bomRepo, poRepo, stockLogRepo, auditRepo, mutator, ledger, dispatcher)
	productService := service.NewProductService(txManager, productRepo, bomRepo, soRepo, woRepo, stockLogRepo, auditRepo, mutator, ledger, dispatcher)
	bomService := service.NewBOMService(txManager, bomRepo, productRepo, materialRepo, auditRepo, calculator)
	poService := service.NewPurchaseOrderService(txManager, poRepo, supplierRepo, materialRepo, auditRepo, mutator, ledger, dispatcher)
	woService := service.NewWorkOrderService(txManager, woRepo, productRepo, auditRepo, calculator, mutator, ledger, dispatcher)
	soService := service.NewSalesOrderService(txManager, soRepo, customerRepo, productRepo, auditRepo, mutator, ledger, dispatcher)
	stockService := service.NewStockService(txManager, materialRepo, productRepo, auditRepo, mutator, ledger, dispatcher)
	dashboardService := service.NewDashboardService(dashboardRepo, ledger, dashboardCache, zapLogger.Named("dashboard"))
	exportService := service.NewExportService(materialService, productService, supplierService, customerService)

	if err := roleService.Seed(ctx); err != nil {
		zapLogger.Fatal("Role seed failed", zap.Error(err))
	}
	created, err := userService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		zapLogger.Warn("Bootstrap administrator not created", zap.Error(err))
	} else if created {
		zapLogger.Info("Created bootstrap administrator", zap.String("username", cfg.Admin.Username))
	}

	authenticator := middleware.NewAuthenticator(tokens, roleService, cfg.Server.Mode == "release")

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.RegisterValidators(); err != nil {
		zapLogger.Fatal("Validator setup failed", zap.Error(err))
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(zapLogger.Named("http")))
	router.Use(middleware.Recovery(zapLogger))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	router.Use(cors.New(corsConfig))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws"})))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	checks := map[string]handler.Pinger{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	handler.NewHealthHandler(checks).RegisterRoutes(router.Group(""))

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, tokens, c)
	})

	api := router.Group("/api")
	handler.NewUserHandler(userService, roleService, authenticator).RegisterRoutes(api)
	handler.NewRoleHandler(roleService, authenticator).RegisterRoutes(api)
	handler.NewAuditHandler(auditService, authenticator).RegisterRoutes(api)
	handler.NewMaterialHandler(materialService, exportService, authenticator).RegisterRoutes(api)
	handler.NewProductHandler(productService, exportService, authenticator).RegisterRoutes(api)
	handler.NewPartnerHandler(supplierService, customerService, exportService, authenticator).RegisterRoutes(api)
	handler.NewBOMHandler(bomService, authenticator).RegisterRoutes(api)
	handler.NewPurchaseOrderHandler(poService, authenticator).RegisterRoutes(api)
	handler.NewWorkOrderHandler(woService, authenticator).RegisterRoutes(api)
	handler.NewSalesOrderHandler(soService, authenticator).RegisterRoutes(api)
	handler.NewStockHandler(stockService, authenticator).RegisterRoutes(api)
	handler.NewDashboardHandler(dashboardService, authenticator).RegisterRoutes(api)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
