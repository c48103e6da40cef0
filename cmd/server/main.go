package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/rmaeda/annotation-portal/internal/config"
	"github.com/rmaeda/annotation-portal/internal/constants"
	"github.com/rmaeda/annotation-portal/internal/handlers"
	"github.com/rmaeda/annotation-portal/internal/logging"
	"github.com/rmaeda/annotation-portal/internal/middleware"
	"github.com/rmaeda/annotation-portal/internal/repository"
	"github.com/rmaeda/annotation-portal/internal/services"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	gin.SetMode(cfg.GinMode)

	// Flat-file storage under the annotations directory
	userRepo, err := repository.NewFileUserRepository(cfg.AnnotationsDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("init user storage")
	}
	ledger, err := repository.NewFileAnnotationRepository(cfg.AnnotationsDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("init annotation storage")
	}

	// Services
	userService := services.NewUserService(userRepo, cfg.Password, cfg.AdminCreationKey)
	annotationService := services.NewAnnotationService(ledger, userRepo, logger)
	catalogService := services.NewCatalogService(cfg.CropsDir, cfg.GroundTruthDir)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	annotationHandler := handlers.NewAnnotationHandler(annotationService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	adminHandler := handlers.NewAdminHandler(userService, annotationService, catalogService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	// Cookie-backed sessions
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Annotation portal is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.Me)
		}

		// Catalog routes (protected)
		catalog := api.Group("/catalog")
		catalog.Use(middleware.RequireAuth())
		{
			catalog.GET("/folders", catalogHandler.Folders)
			catalog.GET("/items", catalogHandler.Items)
			catalog.GET("/image", catalogHandler.Image)
		}

		// Annotation routes (protected)
		annotations := api.Group("/annotations")
		annotations.Use(middleware.RequireAuth())
		{
			annotations.POST("", annotationHandler.Create)
			annotations.GET("/mine", annotationHandler.Mine)
			annotations.GET("/latest", annotationHandler.Latest)
			annotations.GET("/progress", annotationHandler.Progress)
		}

		// Admin routes (protected, admin role)
		admin := api.Group("/admin")
		admin.Use(middleware.RequireAuth(), middleware.RequireAdmin(userService))
		{
			admin.GET("/overview", adminHandler.Overview)
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users", adminHandler.CreateUser)
			admin.PATCH("/users/:username/active", adminHandler.SetUserActive)
			admin.POST("/users/:username/password", adminHandler.ResetUserPassword)
			admin.DELETE("/users/:username", adminHandler.DeleteUser)
			admin.GET("/stats/users", adminHandler.UserStats)
			admin.GET("/annotations", adminHandler.Annotations)
			admin.GET("/export", adminHandler.Export)
			admin.GET("/quality/multi-annotated", adminHandler.QualityMultiAnnotated)
			admin.GET("/quality/folder-correction-rates", adminHandler.QualityFolderCorrectionRates)
			admin.GET("/quality/common-corrections", adminHandler.QualityCommonCorrections)
			admin.GET("/quality/agreement", adminHandler.QualityAgreement)
			admin.GET("/catalog/integrity", adminHandler.CatalogIntegrity)
		}
	}

	logger.Info().Str("addr", cfg.ListenAddr).Msg("server starting")
	if err := r.Run(cfg.ListenAddr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
