package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/nkazemy/marketplace-api/internal/config"
	"github.com/nkazemy/marketplace-api/internal/database"
	"github.com/nkazemy/marketplace-api/internal/handler"
	"github.com/nkazemy/marketplace-api/internal/middleware"
	"github.com/nkazemy/marketplace-api/internal/queue"
	"github.com/nkazemy/marketplace-api/internal/repository"
	"github.com/nkazemy/marketplace-api/internal/router"
	"github.com/nkazemy/marketplace-api/internal/service"
	"github.com/nkazemy/marketplace-api/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables caching and rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Print("redis unavailable; cache and rate limiting disabled")
	}

	issuer := utils.NewTokenIssuer(
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour,
	)

	users := repository.NewUserRepo(db)
	stores := repository.NewStoreRepo(db)
	categories := repository.NewCategoryRepo(db)
	products := repository.NewProductRepo(db)
	cart := repository.NewCartRepo(db)

	events := queue.NewPublisher(cfg.AMQPURL)
	if cfg.AMQPURL != "" {
		go queue.StartAuditConsumer(cfg.AMQPURL)
	}

	auth := service.NewAuthService(users, issuer, cfg.BcryptCost)

	authHandler := handler.NewAuthHandler(auth, events)
	categoryHandler := handler.NewCategoryHandler(categories)
	storeHandler := handler.NewStoreHandler(stores)
	productHandler := handler.NewProductHandler(products, stores)
	cartHandler := handler.NewCartHandler(cart, products, events)

	e := echo.New()
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, issuer, rateLimit)
	router.RegisterCatalog(e, issuer, cache, categoryHandler, storeHandler, productHandler, cartHandler)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
