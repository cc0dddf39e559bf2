package ranking

import (
	"time"

	"github.com/google/uuid"

	"github.com/confhub/recommender/internal/models"
)

var (
	trackAI     = models.Track{ID: uuid.MustParse("0190a000-0000-7000-8000-00000000a001"), Name: "AI", Color: "#7c3aed"}
	trackDesign = models.Track{ID: uuid.MustParse("0190a000-0000-7000-8000-00000000a002"), Name: "Design", Color: "#db2777"}
	trackOps    = models.Track{ID: uuid.MustParse("0190a000-0000-7000-8000-00000000a003"), Name: "Ops", Color: "#059669"}

	day = time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
)

func session(id, title string, track models.Track, start time.Duration) models.Session {
	return models.Session{
		ID:        uuid.MustParse(id),
		Title:     title,
		StartTime: day.Add(start),
		Track:     track,
		Room:      models.Room{ID: uuid.New(), Name: "Hall " + track.Name},
	}
}
