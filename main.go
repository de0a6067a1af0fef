package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"curator/api"
	"curator/archive"
	"curator/config"
	"curator/curation"
	"curator/dedup"
	"curator/feeds"
	"curator/intel"
	"curator/kafka"
	"curator/store"
)

func main() {
	log.SetOutput(os.Stderr)

	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	cohere, err := intel.NewCohere(intel.CohereConfig{
		APIKey:     cfg.CohereAPIKey,
		EmbedModel: cfg.EmbedModel,
		ChatModel:  cfg.ChatModel,
	})
	if err != nil {
		log.Fatalf("failed to init cohere client: %v", err)
	}

	engine := dedup.NewEngine(dedup.Config{Bloom: initLinkFilter(cfg)})

	publisher := initPublisher(cfg)
	defer func() { _ = publisher.Close() }()

	factory := &curation.Factory{
		DB:        db,
		Engine:    engine,
		Embedder:  cohere,
		Intel:     cohere,
		Fetcher:   feeds.NewFetcher(),
		Publisher: publisher,
		Archiver:  initArchiver(cfg),
		ItemDelay: cfg.ItemDelay,
	}

	r := api.NewRouter(factory, db)
	log.Printf("Starting API server on %s", cfg.Addr)
	log.Println("API endpoints available:")
	log.Println("  GET    /health")
	log.Println("  POST   /api/curation/run")
	log.Println("  POST   /api/curation/items")
	log.Println("  GET    /api/jobs")
	log.Println("  GET    /api/jobs/:id")
	log.Println("  POST   /api/jobs/:id/cancel")
	log.Println("  DELETE /api/jobs/:id")
	log.Println("  DELETE /api/jobs")
	log.Println("  GET    /api/articles")
	log.Println("  GET    /api/articles/:id")
	log.Println("  POST   /api/articles/:id/status")
	log.Println("  GET    /api/settings")
	log.Println("  PUT    /api/settings")
	log.Println("  GET    /api/sources")
	log.Println("  POST   /api/sources")

	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// initLinkFilter connects the Redis-backed link filter if configured.
// The filter is a fast-path hint only, so failures degrade to
// store-backed dedup rather than aborting startup.
func initLinkFilter(cfg *config.Config) *dedup.LinkFilter {
	if cfg.RedisAddr == "" {
		log.Println("Redis not configured; link filter disabled")
		return nil
	}
	filter, err := dedup.NewLinkFilter(dedup.LinkFilterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Printf("Warning: link filter unavailable: %v (falling back to store dedup)", err)
		return nil
	}
	return filter
}

// initPublisher connects the Kafka progress mirror if configured.
func initPublisher(cfg *config.Config) *kafka.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Println("Kafka not configured; progress mirroring disabled")
		return nil
	}
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
	})
	if err != nil {
		log.Printf("Warning: failed to init Kafka publisher: %v (progress mirroring disabled)", err)
		return nil
	}
	return pub
}

// initArchiver connects the S3 archiver if configured.
func initArchiver(cfg *config.Config) *archive.Archiver {
	if cfg.S3Bucket == "" {
		log.Println("S3 not configured; archiving disabled")
		return nil
	}
	arch, err := archive.NewArchiver(context.Background(), archive.Config{
		Bucket: cfg.S3Bucket,
		Region: cfg.S3Region,
		Prefix: cfg.S3Prefix,
	})
	if err != nil {
		log.Printf("Warning: failed to init S3 archiver: %v (archiving disabled)", err)
		return nil
	}
	return arch
}
