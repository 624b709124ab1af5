package main

import (
	"context"
	"distributor-portal/auth"
	"distributor-portal/internal/config"
	"distributor-portal/internal/content"
	"distributor-portal/internal/customer"
	"distributor-portal/internal/db"
	"distributor-portal/internal/device"
	"distributor-portal/internal/distributor"
	"distributor-portal/internal/document"
	"distributor-portal/internal/logger"
	"distributor-portal/internal/mail"
	"distributor-portal/internal/metrics"
	"distributor-portal/internal/middleware"
	"distributor-portal/internal/notification"
	"distributor-portal/internal/product"
	"distributor-portal/internal/storage"
	"distributor-portal/internal/tenant"
	"distributor-portal/internal/user"
	"distributor-portal/internal/visibility"
	"distributor-portal/internal/worker"
	"distributor-portal/redis"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "distributor-portal",
		File:        cfg.LogFile,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.GetLogger()

	// Connect to database
	conn, err := db.ConnectDb(cfg)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.CloseDb(conn)

	// Migrate database schema
	if err := db.Migrate(conn); err != nil {
		log.Fatal("Database migration failed", zap.Error(err))
	}

	// Seed the operator account (for development)
	if cfg.Environment == "development" && cfg.SeedAdminPassword != "" {
		created, err := db.SeedAdmin(conn, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
		if err != nil {
			log.Error("Seeding platform admin failed", zap.Error(err))
		} else if created {
			log.Info("Seeded platform admin", zap.String("email", cfg.SeedAdminEmail))
		}
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer startCancel()

	// Initialize Redis
	cache := redis.NewCache(startCtx, redis.Options{
		Address:  cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log)
	defer cache.Close()

	auth.Configure(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	mailer, err := mail.New(cfg, log)
	if err != nil {
		log.Fatal("Mailer setup failed", zap.Error(err))
	}

	// Object storage is optional; without it documents keep metadata only
	var (
		deviceBlobs device.BlobRemover
		docBlobs    document.Blobs
	)
	if cfg.S3Endpoint != "" {
		store, err := storage.New(startCtx, storage.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			log.Fatal("Object storage setup failed", zap.Error(err))
		}
		deviceBlobs, docBlobs = store, store
		log.Info("Object storage connected", zap.String("bucket", cfg.S3Bucket))
	} else {
		log.Warn("S3_ENDPOINT not set, document files are not stored")
	}

	pool := worker.NewWorkerPool(cfg.WorkerPoolSize, 256, log)

	// Initialize repository
	userRepo := user.NewRepository(conn)
	distributorRepo := distributor.NewRepository(conn)
	customerRepo := customer.NewRepository(conn)
	deviceRepo := device.NewRepository(conn)
	docRepo := document.NewRepository(conn)
	productRepo := product.NewRepository(conn)
	contentRepo := content.NewRepository(conn)
	notificationRepo := notification.NewRepository(conn)

	// Initialize service
	visibilityService := visibility.NewService(visibility.NewRepository(conn))
	dispatcher := notification.NewDispatcher(visibilityService, notificationRepo, mailer, cache, notification.Options{
		Concurrency: cfg.NotifyConcurrency,
		SendTimeout: cfg.NotifySendTimeout,
		ClaimTTL:    cfg.NotifyClaimTTL,
		PortalURL:   cfg.FrontendAddress,
	})
	userService := user.NewService(userRepo, mailer, cfg.FrontendAddress)
	distributorService := distributor.NewService(distributorRepo, deviceBlobs, cache)
	customerService := customer.NewService(customerRepo)
	deviceService := device.NewService(deviceRepo, deviceBlobs, cache)
	docService := document.NewService(docRepo, docBlobs, 15*time.Minute)
	productService := product.NewService(productRepo)
	contentService := content.NewService(contentRepo, visibilityService, dispatcher, cache, pool)

	// Initialize handler
	userHandler := user.NewHandler(userService)
	distributorHandler := distributor.NewHandler(distributorService)
	customerHandler := customer.NewHandler(customerService)
	deviceHandler := device.NewHandler(deviceService)
	docHandler := document.NewHandler(docService, cfg.MaxUploadSize)
	productHandler := product.NewHandler(productService)
	contentHandler := content.NewHandler(contentService)

	authMW := &middleware.Auth{
		UserService:    userService,
		Tenants:        tenant.NewResolver(conn),
		InternalSecret: cfg.InternalSecret,
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.MaxMultipartMemory = 8 << 20
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(logger.Middleware())
	router.Use(metrics.NewHTTPMetrics("distributor-portal").Middleware())
	router.Use(middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.Environment == "development" {
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsConfig.AllowOrigins = []string{cfg.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "redis": cache.Enabled()})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// User routes
	router.POST("/login", userHandler.Login)
	router.POST("/refresh", userHandler.RefreshToken)

	api := router.Group("/", authMW.AuthMiddleWare())
	api.DELETE("/logout", userHandler.Logout)
	api.GET("/profile", userHandler.GetProfile)
	api.PUT("/profile", userHandler.UpdateProfile)
	api.GET("/distributors/:id/users", userHandler.ListCompanyUsers)
	api.POST("/distributors/:id/users", userHandler.Invite)
	api.PUT("/users/:id", userHandler.UpdateMember)
	api.DELETE("/users/:id", userHandler.DeleteMember)

	api.GET("/customers", customerHandler.List)
	api.POST("/customers", customerHandler.Create)
	api.GET("/customers/:id", customerHandler.Show)
	api.PUT("/customers/:id", customerHandler.Update)
	api.DELETE("/customers/:id", customerHandler.Delete)

	api.GET("/devices", deviceHandler.List)
	api.POST("/devices", deviceHandler.Create)
	api.GET("/devices/:id", deviceHandler.Show)
	api.PUT("/devices/:id", deviceHandler.Update)
	api.DELETE("/devices/:id", deviceHandler.Delete)

	api.GET("/devices/:id/documents", docHandler.List)
	api.POST("/devices/:id/documents", docHandler.Upload)
	api.GET("/devices/:id/document-history", docHandler.History)
	api.GET("/devices/:id/documents/:docID", docHandler.Show)
	api.PUT("/devices/:id/documents/:docID", docHandler.Update)
	api.PUT("/devices/:id/documents/:docID/share", docHandler.Share)
	api.POST("/devices/:id/documents/:docID/archive", docHandler.Archive)
	api.DELETE("/devices/:id/documents/:docID", docHandler.Delete)

	api.GET("/products", productHandler.List)
	api.GET("/products/:id", productHandler.Show)

	api.GET("/content/:kind", contentHandler.Visible)
	api.GET("/content/:kind/:id", contentHandler.ShowVisible)

	// Platform admin routes
	admin := api.Group("/", authMW.RequirePlatformAdmin())
	admin.GET("/distributors", distributorHandler.List)
	admin.POST("/distributors", distributorHandler.Create)
	admin.GET("/distributors/:id", distributorHandler.Show)
	admin.PUT("/distributors/:id", distributorHandler.Update)
	admin.DELETE("/distributors/:id", distributorHandler.Delete)

	admin.POST("/products", productHandler.Create)
	admin.PUT("/products/:id", productHandler.Update)
	admin.DELETE("/products/:id", productHandler.Delete)

	admin.GET("/admin/content/:kind", contentHandler.List)
	admin.POST("/admin/content/:kind", contentHandler.Create)
	admin.GET("/admin/content/:kind/:id", contentHandler.Show)
	admin.PUT("/admin/content/:kind/:id", contentHandler.Update)
	admin.DELETE("/admin/content/:kind/:id", contentHandler.Delete)
	admin.POST("/admin/content/:kind/:id/publish", contentHandler.Publish)
	admin.POST("/admin/content/:kind/:id/archive", contentHandler.Archive)
	admin.GET("/admin/content/:kind/:id/sharing", contentHandler.Sharing)
	admin.PUT("/admin/content/:kind/:id/sharing", contentHandler.SetSharing)
	admin.POST("/admin/content/:kind/:id/notify", contentHandler.Notify)
	admin.GET("/admin/content/:kind/:id/notifications", contentHandler.NotificationStatus)

	// internal use routes
	router.POST("/internal/notifications", authMW.InternalAuthMiddleware(), contentHandler.Trigger)

	// Server configuration
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.Info("Server listening", zap.String("port", cfg.ServerPort))
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
	if err := pool.Shutdown(ctx); err != nil {
		log.Warn("Background jobs cancelled", zap.Error(err))
	}

	log.Info("Server shutdown complete")
}
