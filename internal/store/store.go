package store

import (
	"context"
	"errors"

	"github.com/marketgen/api/internal/model"
)

// ErrNotFound is returned when a session does not exist or the caller is not
// its owner.
var ErrNotFound = errors.New("generation not found")

// SourceTexts carries the (already extracted) inputs persisted with a session.
type SourceTexts struct {
	WebsiteURL  string
	PPTText     string
	WebsiteText string
}

// SessionStore is the record-store collaborator for generation sessions and
// their child image records. Implementations must make IncrementCompleted an
// atomic increment; it is called from concurrent workers.
type SessionStore interface {
	// CreateSession creates a session in the processing state and returns its id.
	CreateSession(ctx context.Context, userID string, src SourceTexts) (string, error)

	// UpdateAssets stores the generated text assets and the expected image count.
	UpdateAssets(ctx context.Context, generationID string, brief *model.MarketingBrief, email *model.EmailCopy, angles *model.CreativeAngleSet, prompts *model.ImagePromptSet, totalImages int) error

	// AddImage persists a generated image record.
	AddImage(ctx context.Context, img *model.GeneratedImage) (*model.GeneratedImage, error)

	// IncrementCompleted atomically bumps the session's completed image count.
	IncrementCompleted(ctx context.Context, generationID string) error

	// Complete marks the session completed with its total elapsed seconds.
	Complete(ctx context.Context, generationID string, elapsed float64) error

	// Fail marks the session failed with a (truncated) error message.
	Fail(ctx context.Context, generationID, errMsg string) error

	// Get returns a session with its images ordered by image index.
	// A non-empty userID scopes the lookup to that owner.
	Get(ctx context.Context, generationID, userID string) (*model.GenerationSession, error)

	// ListByUser returns the user's sessions, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]model.GenerationSession, error)
}
