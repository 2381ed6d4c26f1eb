package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/trilu/lupito-catalog/config"
	httpDelivery "github.com/trilu/lupito-catalog/internal/delivery/http"
	"github.com/trilu/lupito-catalog/internal/infrastructure/cache"
	"github.com/trilu/lupito-catalog/internal/infrastructure/postgres"
	"github.com/trilu/lupito-catalog/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting lupito-catalog v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Infrastructure: catalog database and snapshot cache
	db, err := postgres.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to catalog database: %v", err)
	}
	store := postgres.NewCatalogStore(db)
	defer store.Close()

	snapshotCache := cache.NewMemoryCache()
	log.Printf("Snapshot TTL: %s", cfg.Cache.SnapshotTTL)

	// Brand alias table: failure degrades to no alias resolution rather
	// than blocking startup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	aliasMap, err := store.AliasMap(ctx)
	cancel()
	if err != nil {
		log.Printf("WARNING: brand alias table unavailable, continuing without alias resolution: %v", err)
		aliasMap = nil
	} else {
		log.Printf("Loaded %d brand aliases", len(aliasMap))
	}

	// Usecase layer
	debug := cfg.Matching.EnableDebugLogging
	normalizer := usecase.NewNormalizer(aliasMap, debug)
	classifier := usecase.NewVariantClassifier()
	matcher := usecase.NewCandidateMatcher(usecase.MatcherConfig{
		FormBonus:          cfg.Matching.FormBonus,
		AmbiguityDelta:     cfg.Matching.AmbiguityDelta,
		EnableDebugLogging: debug,
	})
	resolution := usecase.NewResolutionService(normalizer, classifier, matcher, usecase.ResolutionConfig{
		AutoMergeThreshold:     cfg.Matching.AutoMergeThreshold,
		ReviewThreshold:        cfg.Matching.ReviewThreshold,
		MinimumThreshold:       cfg.Matching.MinimumThreshold,
		MaxConsecutiveFailures: cfg.Matching.MaxConsecutiveFailures,
		EnableDebugLogging:     debug,
	})
	importService := usecase.NewImportService(store, snapshotCache, resolution, usecase.ImportServiceConfig{
		SnapshotTTL:        cfg.Cache.SnapshotTTL,
		EnableDebugLogging: debug,
	})

	log.Printf("Matching: auto-merge>=%.2f, review>=%.2f, minimum>=%.2f, debug=%v",
		cfg.Matching.AutoMergeThreshold,
		cfg.Matching.ReviewThreshold,
		cfg.Matching.MinimumThreshold,
		debug)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(importService)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
