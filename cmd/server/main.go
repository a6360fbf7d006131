package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/avelov/photo-share-gallery/internal/config"
	"github.com/avelov/photo-share-gallery/internal/database"
	"github.com/avelov/photo-share-gallery/internal/handler"
	"github.com/avelov/photo-share-gallery/internal/middleware"
	"github.com/avelov/photo-share-gallery/internal/queue"
	"github.com/avelov/photo-share-gallery/internal/repository"
	"github.com/avelov/photo-share-gallery/internal/router"
	"github.com/avelov/photo-share-gallery/internal/storage"
)

func main() {
	// Missing .env is fine in production where real env vars are set.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	store, err := storage.New(config.LoadStorageConfig())
	if err != nil {
		logger.Fatal("connect object storage", zap.Error(err))
	}

	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	allowed := repository.NewAllowedEmailRepo(db)
	photos := repository.NewPhotoRepo(db)
	tags := repository.NewTagRepo(db)
	slideshows := repository.NewSlideshowRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens, allowed)
	adminH := handler.NewAdminHandler(allowed)
	photoH := handler.NewPhotoHandler(photos, tags, slideshows, store)
	slideshowH := handler.NewSlideshowHandler(slideshows, photos)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.RequestLogger(logger))

	var gallery []echo.MiddlewareFunc
	if rdb != nil {
		gallery = append(gallery,
			middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
			middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
		)
	} else {
		logger.Warn("redis unavailable, rate limiting and response cache disabled")
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterGallery(e, photoH, slideshowH, cfg.JWTSecret, gallery...)
	router.RegisterAdmin(e, adminH, cfg.JWTSecret)

	go func() {
		if err := queue.StartActivityConsumer(logger); err != nil {
			logger.Warn("activity consumer stopped", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
