package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"pricelist-service/internal/config"
	"pricelist-service/internal/events"
	"pricelist-service/internal/handlers"
	"pricelist-service/internal/middleware"
	"pricelist-service/internal/models"
	"pricelist-service/internal/repository"
	"pricelist-service/internal/services"
	"pricelist-service/internal/theme"
)

// @title Price List Import API
// @version 1.0.0
// @description Configuration-driven supplier price-list import and catalog service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.example.com/support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8095
// @BasePath /api/v1

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()
	if cfg.Environment != "production" {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.AutoMigrate(
		&models.Supplier{},
		&models.SupplierConfig{},
		&models.Product{},
		&models.SupplierOffer{},
		&models.OfferProduct{},
		&models.ImportRun{},
	); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	// Initialize Redis (optional - caches supplier configurations)
	var redisClient *redis.Client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warnf("Failed to parse Redis URL: %v (continuing without Redis)", err)
	} else {
		redisClient = redis.NewClient(redisOpts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warnf("Failed to connect to Redis: %v (caching disabled)", err)
			redisClient = nil
		} else {
			logger.Info("Redis connected")
		}
		cancel()
	}

	// Initialize repositories
	store := repository.NewStore(db, redisClient)

	// Initialize event publisher (optional - service works without NATS)
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Warnf("Failed to initialize event publisher: %v. Events will not be published.", err)
		} else {
			logger.Info("Event publisher initialized")
		}
	} else {
		logger.Info("NATS_URL not configured, event publishing disabled")
	}

	// Load the theme catalog and bridge selection changes onto the bus
	themeManager := theme.NewManager(cfg.ThemeDir, cfg.ThemeConfigFile, logger)
	if err := themeManager.Load(); err != nil {
		logger.Warnf("Failed to load theme catalog: %v (theme endpoints serve an empty catalog)", err)
	}
	themeChanges := themeManager.Subscribe()
	go func() {
		for change := range themeChanges {
			publisher.PublishThemeChanged(change.Theme, change.Skin)
		}
	}()

	// Initialize services
	importService := services.NewImportService(store, publisher, logger, cfg.ImportBatchRate, cfg.DefaultCurrency)

	// Initialize handlers
	importsHandler := handlers.NewImportsHandler(importService, store.Suppliers, int(cfg.MaxUploadSizeMB), cfg.ImportBatchSize)
	suppliersHandler := handlers.NewSuppliersHandler(store.Suppliers)
	offersHandler := handlers.NewOffersHandler(store.Offers)
	productsHandler := handlers.NewProductsHandler(store.Products)
	themesHandler := handlers.NewThemesHandler(themeManager)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SetupCORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck)

	// API routes
	api := router.Group("/api/v1")
	{
		imports := api.Group("/imports")
		{
			imports.POST("", importsHandler.UploadPriceList)
			imports.GET("", importsHandler.ListRuns)
			imports.GET("/template", importsHandler.GetImportTemplate)
			imports.GET("/:id", importsHandler.GetRun)
		}

		suppliers := api.Group("/suppliers")
		{
			suppliers.GET("", suppliersHandler.ListSuppliers)
			suppliers.POST("", suppliersHandler.CreateSupplier)
			suppliers.GET("/:id", suppliersHandler.GetSupplier)
			suppliers.PUT("/:id", suppliersHandler.UpdateSupplier)
			suppliers.DELETE("/:id", suppliersHandler.DeleteSupplier)
			suppliers.GET("/:id/config", suppliersHandler.GetSupplierConfig)
			suppliers.PUT("/:id/config", suppliersHandler.UpsertSupplierConfig)
		}

		offers := api.Group("/offers")
		{
			offers.GET("", offersHandler.ListOffers)
			offers.GET("/:id", offersHandler.GetOffer)
			offers.DELETE("/:id", offersHandler.DeleteOffer)
		}

		products := api.Group("/products")
		{
			products.GET("", productsHandler.ListProducts)
			products.GET("/:id", productsHandler.GetProduct)
		}

		themes := api.Group("/themes")
		{
			themes.GET("", themesHandler.ListThemes)
			themes.GET("/current", themesHandler.GetCurrentTheme)
			themes.PUT("/current", themesHandler.ApplyTheme)
			themes.POST("/reload", themesHandler.ReloadThemes)
			themes.GET("/:name", themesHandler.GetTheme)
		}
		api.GET("/skins/:name", themesHandler.GetSkin)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8095"
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infof("Price list service starting on port %s", port)
		if err := router.Run(":" + port); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	logger.Info("Shutting down server...")

	if publisher != nil {
		publisher.Close()
		logger.Info("Event publisher closed")
	}

	logger.Info("Server shutdown complete")
}
