package models

import (
	"time"

	"github.com/google/uuid"
)

// Room is the venue a session takes place in.
type Room struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Track groups sessions by theme.
type Track struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

// Session is a candidate item for recommendation. The recommender never mutates sessions.
type Session struct {
	ID           uuid.UUID `json:"id"`
	ConferenceID uuid.UUID `json:"conference_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	StartTime    time.Time `json:"start_time"`
	Room         Room      `json:"room"`
	Track        Track     `json:"track"`
	Topics       []string  `json:"topics,omitempty"`
	Difficulty   *string   `json:"difficulty,omitempty"`
	Featured     bool      `json:"featured"` // keynote or flagship
	Embedding    []float32 `json:"-"`
}

// EmbeddingText is the text embedded for a session: title, description, and topic tags.
func (s *Session) EmbeddingText() string {
	text := s.Title
	if s.Description != "" {
		text += "\n" + s.Description
	}

	for i, topic := range s.Topics {
		if i == 0 {
			text += "\nTopics: " + topic
		} else {
			text += ", " + topic
		}
	}

	return text
}
