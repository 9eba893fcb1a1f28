package models

import (
	"time"

	"github.com/google/uuid"
)

// Scene is one narrated beat of a script. Each scene yields one generated
// image; the narration across all scenes is voiced as a single audio track.
type Scene struct {
	Narration   string `json:"narration"`
	ImagePrompt string `json:"image_prompt"`
}

// Script is the input to a generation job. Scripts are immutable once
// created; regenerating content means creating a new script.
type Script struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Topic     *string   `json:"topic,omitempty"` // Set when the script was AI-generated from a topic
	Scenes    []Scene   `json:"scenes"`
	CreatedAt time.Time `json:"created_at"`
}
