package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/todmy/style-analyzer/internal/config"
	"github.com/todmy/style-analyzer/internal/feedback"
	"github.com/todmy/style-analyzer/internal/reliability"
)

// The tuner is a batch job: it aggregates reviewer feedback, proposes
// bounded reliability overrides against the shipped table, and writes them
// to a file the server loads on its next start. It never touches a live
// server.
//
// Deltas are anchored to the shipped base table, never to the previous
// override file. Re-running on the same feedback is therefore a no-op, and
// coefficients cannot drift more than the per-run bound away from base no
// matter how many runs happen. Moving a coefficient further requires
// shipping a new base table.
func main() {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatalf("DATABASE_URL is required")
	}

	outPath := os.Getenv("RELIABILITY_OVERRIDES_PATH")
	if outPath == "" {
		outPath = "reliability_overrides.json"
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	store := feedback.NewPostgresStore(db)
	aggregated, err := store.Aggregate(context.Background())
	if err != nil {
		log.Fatalf("Failed to aggregate feedback: %v", err)
	}

	table := reliability.NewTable(cfg.RuleReliability)
	tuner := reliability.NewTuner(table, reliability.DefaultTunerConfig())
	overrides := tuner.Propose(aggregated)

	if err := reliability.WriteOverrides(outPath, overrides); err != nil {
		log.Fatalf("Failed to write overrides: %v", err)
	}

	fmt.Printf("Wrote %d reliability overrides to %s\n", len(overrides), outPath)
}
