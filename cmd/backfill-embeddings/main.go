// backfill-embeddings enqueues River embedding jobs for sessions that have no embedding for
// EMBEDDING_MODEL. Workers in the API process run the jobs; duplicates of pending jobs are skipped.
//
// Usage:
//
//	backfill-embeddings [-conference <uuid>]
//
// Without -conference every conference is scanned.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/confhub/recommender/internal/repository"
	"github.com/confhub/recommender/internal/service"
	"github.com/confhub/recommender/pkg/database"
)

var (
	errEmbeddingProviderRequired = errors.New("EMBEDDING_PROVIDER is required")
	errEmbeddingModelRequired    = errors.New("EMBEDDING_MODEL is required")
)

const (
	defaultEmbeddingMaxAttempts = 3
	exitSuccess                 = 0
	exitFailure                 = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	conferenceFlag := flag.String("conference", "", "only backfill sessions of this conference (UUID)")
	flag.Parse()

	conferenceID := uuid.Nil

	if *conferenceFlag != "" {
		id, err := uuid.Parse(*conferenceFlag)
		if err != nil {
			slog.Error("invalid -conference", "value", *conferenceFlag, "error", err)

			return exitFailure
		}

		conferenceID = id
	}

	// Load .env for consistency with the main API server (godotenv.Load() there).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")

		return exitFailure
	}

	embeddingModel, err := getEmbeddingModel()
	if err != nil {
		slog.Error(err.Error())

		return exitFailure
	}

	maxAttempts := getEnvAsInt("EMBEDDING_MAX_ATTEMPTS", defaultEmbeddingMaxAttempts)
	if maxAttempts <= 0 {
		maxAttempts = defaultEmbeddingMaxAttempts
	}

	ctx := context.Background()

	db, err := database.NewPostgresPool(ctx, databaseURL, database.WithAfterConnect(pgxvec.RegisterTypes))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	// Insert-only client: no queues or workers are started here.
	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)

		return exitFailure
	}

	enqueuer := service.NewSessionEmbeddingEnqueuer(
		riverClient,
		repository.NewSessionsRepository(db, embeddingModel),
		embeddingModel,
		service.EmbeddingsQueueName,
		maxAttempts,
		nil,
	)

	enqueued, err := enqueuer.Backfill(ctx, conferenceID)
	if err != nil {
		slog.Error("Backfill failed", "error", err, "enqueued", enqueued)

		return exitFailure
	}

	slog.Info("Backfill complete", "enqueued", enqueued, "conference_id", conferenceID)

	fmt.Printf("Enqueued %d embedding job(s).\n", enqueued)

	return exitSuccess
}

func getEnvAsInt(key string, defaultValue int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}

	return n
}

// getEmbeddingModel returns the model name the API workers use for the sessions table.
func getEmbeddingModel() (string, error) {
	if os.Getenv("EMBEDDING_PROVIDER") == "" {
		return "", errEmbeddingProviderRequired
	}

	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		return "", errEmbeddingModelRequired
	}

	return model, nil
}
