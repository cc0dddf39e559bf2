// createtoken issues a bearer token for an attendee profile, for local testing and tooling.
//
// Usage:
//
//	createtoken -profile <uuid> [-ttl 24h] [-conference <uuid>]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/confhub/recommender/internal/auth"
	"github.com/confhub/recommender/internal/config"
	"github.com/confhub/recommender/internal/huberrors"
	"github.com/confhub/recommender/internal/repository"
	"github.com/confhub/recommender/pkg/database"
)

const defaultTokenTTL = 24 * time.Hour

func main() {
	os.Exit(run())
}

func run() int {
	profileFlag := flag.String("profile", "", "attendee profile ID (UUID, required)")
	conferenceFlag := flag.String("conference", "", "conference ID used in the example request")
	ttl := flag.Duration("ttl", defaultTokenTTL, "token lifetime")
	flag.Parse()

	profileID, err := uuid.Parse(*profileFlag)
	if err != nil {
		slog.Error("-profile must be a valid UUID", "value", *profileFlag)

		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)

		return 1
	}

	ctx := context.Background()

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithAfterConnect(pgxvec.RegisterTypes))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return 1
	}
	defer db.Close()

	profile, err := repository.NewProfilesRepository(db).GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, huberrors.ErrNotFound) {
			slog.Error("Profile not found", "profile_id", profileID)
		} else {
			slog.Error("Failed to load profile", "error", err)
		}

		return 1
	}

	token, err := auth.IssueToken(cfg.AuthJWTSecret, cfg.AuthJWTIssuer, profile.ID, *ttl)
	if err != nil {
		slog.Error("Failed to issue token", "error", err)

		return 1
	}

	conference := *conferenceFlag
	if conference == "" {
		conference = "<conference-id>"
	}

	fmt.Println("✓ Token ready!")
	fmt.Println()
	fmt.Println("Profile:", profile.ID)
	fmt.Println("Expires:", time.Now().Add(*ttl).Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Bearer token (use this in your requests):", token)
	fmt.Println()
	fmt.Println("Example curl command:")
	fmt.Println()
	fmt.Printf("curl -H \"Authorization: Bearer %s\" http://localhost:%s/v1/contexts/%s/recommendations\n",
		token, cfg.Port, conference)

	return 0
}
