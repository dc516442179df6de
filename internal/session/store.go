// Package session persists playback sessions between requests.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/tutorcast/api/internal/model"
	"github.com/tutorcast/api/internal/playback"
)

// ErrNotFound is returned when a session does not exist or has expired
var ErrNotFound = errors.New("session not found")

// Record is a stored session: the engine snapshot plus the project it plays.
// The project is embedded so a session survives recompilation of its source.
type Record struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"projectId"`
	Project   *model.Project    `json:"project"`
	Snapshot  playback.Snapshot `json:"snapshot"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Store keeps session records with a sliding TTL
type Store interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error
	Close() error
}
