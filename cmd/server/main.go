package main

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/todmy/style-analyzer/internal/api"
	"github.com/todmy/style-analyzer/internal/auth"
	"github.com/todmy/style-analyzer/internal/confidence"
	"github.com/todmy/style-analyzer/internal/config"
	"github.com/todmy/style-analyzer/internal/consolidation"
	"github.com/todmy/style-analyzer/internal/feedback"
	"github.com/todmy/style-analyzer/internal/metrics"
	"github.com/todmy/style-analyzer/internal/nlp"
	"github.com/todmy/style-analyzer/internal/reliability"
	"github.com/todmy/style-analyzer/internal/session"
	"github.com/todmy/style-analyzer/internal/validation"
)

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	table := reliability.NewTable(cfg.RuleReliability)
	if path := os.Getenv("RELIABILITY_OVERRIDES_PATH"); path != "" {
		overrides, err := reliability.LoadOverrides(path)
		if err != nil {
			log.Fatalf("Failed to load reliability overrides: %v", err)
		}
		table.Merge(overrides)
	}

	authConfig := auth.DefaultConfig()
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		authConfig.SecretKey = secret
	}

	// Postgres is optional; without DATABASE_URL everything runs in memory.
	var reviewers auth.ReviewerRepository = auth.NewMemoryRepository()
	var feedbackStore feedback.Store = feedback.NewMemoryStore()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		db, err := sql.Open("postgres", dbURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}

		reviewers = auth.NewPostgresRepository(db)
		feedbackStore = feedback.NewPostgresStore(db)
	}

	var annotator nlp.Annotator
	if nlpURL := os.Getenv("NLP_SERVICE_URL"); nlpURL != "" {
		annotator = nlp.NewCachedAnnotator(
			nlp.NewClient(nlp.WithBaseURL(nlpURL)),
			nlp.NewMemoryCache(),
		)
	} else {
		annotator = nlp.NewStaticAnnotator(nil)
	}

	sink := metrics.NewSink()
	calculator := confidence.NewCalculator(cfg)
	pipeline := validation.NewPipeline(cfg, validation.DefaultPipelineConfig(), table, calculator, annotator, sink, logger)
	consolidator := consolidation.NewConsolidator(cfg, consolidation.DefaultConsolidatorConfig(), sink)

	sessions := session.NewCache(30*time.Minute, logger)
	defer sessions.Close()

	authService := auth.NewJWTService(authConfig, reviewers)

	server := api.NewServer(cfg, pipeline, consolidator, sessions, authService, feedbackStore, sink, logger)

	fmt.Printf("Starting style-analyzer server on port %s\n", port)
	if err := server.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
