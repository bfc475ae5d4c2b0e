package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketgen/api/internal/model"
)

// MemoryStore is an in-memory SessionStore for tests and local development.
// It is not a production fallback: the durable store is required there.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*model.GenerationSession
	images    map[string][]model.GeneratedImage
	completed map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*model.GenerationSession),
		images:    make(map[string][]model.GeneratedImage),
		completed: make(map[string]int),
	}
}

func (s *MemoryStore) CreateSession(ctx context.Context, userID string, src SourceTexts) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	generationID := uuid.New().String()
	now := time.Now()
	s.sessions[generationID] = &model.GenerationSession{
		ID:          generationID,
		UserID:      userID,
		WebsiteURL:  src.WebsiteURL,
		PPTText:     model.Truncate(src.PPTText, model.MaxSourceTextLen),
		WebsiteText: model.Truncate(src.WebsiteText, model.MaxSourceTextLen),
		Status:      model.StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return generationID, nil
}

func (s *MemoryStore) UpdateAssets(ctx context.Context, generationID string, brief *model.MarketingBrief, email *model.EmailCopy, angles *model.CreativeAngleSet, prompts *model.ImagePromptSet, totalImages int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[generationID]
	if !ok {
		return ErrNotFound
	}
	session.MarketingBrief = brief
	session.EmailContent = email
	session.CreativeAngles = angles
	session.ImagePrompts = prompts
	session.TotalImages = totalImages
	session.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) AddImage(ctx context.Context, img *model.GeneratedImage) (*model.GeneratedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *img
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.AngleName = model.Truncate(stored.AngleName, model.MaxAngleNameLen)
	stored.ImageSummary = model.Truncate(stored.ImageSummary, model.MaxSummaryLen)
	stored.Prompt = model.Truncate(stored.Prompt, model.MaxPromptLen)

	s.images[stored.GenerationID] = append(s.images[stored.GenerationID], stored)
	return &stored, nil
}

func (s *MemoryStore) IncrementCompleted(ctx context.Context, generationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[generationID]++
	return nil
}

func (s *MemoryStore) Complete(ctx context.Context, generationID string, elapsed float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[generationID]
	if !ok {
		return ErrNotFound
	}
	session.Status = model.StatusCompleted
	session.GenerationTime = elapsed
	session.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Fail(ctx context.Context, generationID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[generationID]
	if !ok {
		return ErrNotFound
	}
	session.Status = model.StatusFailed
	session.ErrorMessage = model.Truncate(errMsg, model.MaxErrorLen)
	session.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, generationID, userID string) (*model.GenerationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[generationID]
	if !ok {
		return nil, ErrNotFound
	}
	if userID != "" && session.UserID != userID {
		return nil, ErrNotFound
	}

	copied := *session
	copied.CompletedImages = s.completed[generationID]
	copied.Images = append([]model.GeneratedImage(nil), s.images[generationID]...)
	sort.Slice(copied.Images, func(i, j int) bool {
		return copied.Images[i].ImageIndex < copied.Images[j].ImageIndex
	})
	return &copied, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]model.GenerationSession, error) {
	s.mu.Lock()
	ids := make([]string, 0)
	for id, session := range s.sessions {
		if session.UserID == userID {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	sessions := make([]model.GenerationSession, 0, len(ids))
	for _, id := range ids {
		session, err := s.Get(ctx, id, userID)
		if err != nil {
			continue
		}
		sessions = append(sessions, *session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}
