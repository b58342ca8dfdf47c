package galaxy

import (
	"time"

	"starfield-server/internal/generation"
	"starfield-server/internal/starfield"
)

type Galaxy struct {
	ID          int                  `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  starfield.Parameters `json:"parameters"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// CreateGalaxyRequest creates a galaxy. Missing parameters fall back to the
// service defaults.
type CreateGalaxyRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Parameters  *starfield.Parameters `json:"parameters"`
}

// UpdateAccepted acknowledges a parameter edit whose generation is under way.
type UpdateAccepted struct {
	GalaxyID    int    `json:"galaxy_id"`
	RequestID   uint64 `json:"request_id"`
	Fingerprint string `json:"fingerprint"`
	TotalStars  int    `json:"total_stars"`
}

type BufferSource string

const (
	SourceLive      BufferSource = "live"
	SourceCache     BufferSource = "cache"
	SourceGenerated BufferSource = "generated"
)

// StarField is a galaxy's buffer together with what produced it.
type StarField struct {
	GalaxyID    int
	Parameters  starfield.Parameters
	Fingerprint string
	RequestID   uint64
	Source      BufferSource
	Buffer      *starfield.StarBuffer
}

// DiskCount is the number of leading rows that belong to the disk.
func (f *StarField) DiskCount() int {
	return f.Parameters.Normalize().StarCount
}

type GenerationStatus struct {
	GalaxyID int `json:"galaxy_id"`
	generation.Status
}

type StarFieldStats struct {
	GalaxyID    int    `json:"galaxy_id"`
	Fingerprint string `json:"fingerprint"`
	starfield.Summary
}
