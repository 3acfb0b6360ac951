package main

import (
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/foodlens/backend/config"
	httpDelivery "github.com/foodlens/backend/internal/delivery/http"
	"github.com/foodlens/backend/internal/infrastructure/cache"
	"github.com/foodlens/backend/internal/infrastructure/images"
	"github.com/foodlens/backend/internal/infrastructure/openfoodfacts"
	"github.com/foodlens/backend/internal/infrastructure/openrouter"
	"github.com/foodlens/backend/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := buildLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting foodlens backend",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Infrastructure
	scanCache := cache.NewScanCache(cfg.Cache.Capacity)
	database := openfoodfacts.NewClient(cfg.Database, logger)
	model := openrouter.NewClient(cfg.Model, cfg.ModelChain(), logger)
	imageResolver := images.NewResolver(cfg.Database.ImageBase, cfg.Resolver.ImageCheckTimeout, logger)

	if model.Configured() {
		logger.Info("model gateway configured", zap.Strings("models", cfg.ModelChain()))
	} else {
		logger.Warn("model API key missing; model-dependent operations will be unavailable")
	}

	// Usecase layer
	matcher := usecase.NewMatchingService(logger)
	eco := usecase.NewEcoEstimator(cfg.Resolver.HomeCountry)
	resolver := usecase.NewResolutionService(scanCache, database, model, imageResolver, matcher, eco, logger)
	alternatives := usecase.NewAlternativeService(database, model, matcher, logger)

	// Delivery
	handler := httpDelivery.NewHandler(resolver, alternatives, scanCache, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("server listening", zap.String("addr", addr))

	if err := router.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func buildLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
