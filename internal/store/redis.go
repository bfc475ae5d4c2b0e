package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/marketgen/api/internal/model"
)

const sessionTTL = 30 * 24 * time.Hour

// RedisStore implements SessionStore on Redis. The session document lives in
// a hash under the "data" field; the completed-images counter lives in its own
// "completed" field so concurrent workers can HIncrBy it without a
// read-modify-write race.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func sessionKey(id string) string { return fmt.Sprintf("generation:%s", id) }
func imagesKey(id string) string  { return fmt.Sprintf("generation:%s:images", id) }
func userKey(userID string) string {
	return fmt.Sprintf("user:%s:generations", userID)
}

// CreateSession creates a session record in the processing state.
func (s *RedisStore) CreateSession(ctx context.Context, userID string, src SourceTexts) (string, error) {
	generationID := uuid.New().String()
	now := time.Now()

	session := &model.GenerationSession{
		ID:          generationID,
		UserID:      userID,
		WebsiteURL:  src.WebsiteURL,
		PPTText:     model.Truncate(src.PPTText, model.MaxSourceTextLen),
		WebsiteText: model.Truncate(src.WebsiteText, model.MaxSourceTextLen),
		Status:      model.StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.setSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.redis.ZAdd(ctx, userKey(userID), redis.Z{
		Score:  float64(now.Unix()),
		Member: generationID,
	}).Err(); err != nil {
		return "", fmt.Errorf("failed to index session: %w", err)
	}
	s.redis.Expire(ctx, userKey(userID), sessionTTL)

	return generationID, nil
}

// UpdateAssets stores the four text assets and the expected image count.
func (s *RedisStore) UpdateAssets(ctx context.Context, generationID string, brief *model.MarketingBrief, email *model.EmailCopy, angles *model.CreativeAngleSet, prompts *model.ImagePromptSet, totalImages int) error {
	session, err := s.getSessionData(ctx, generationID)
	if err != nil {
		return err
	}

	session.MarketingBrief = brief
	session.EmailContent = email
	session.CreativeAngles = angles
	session.ImagePrompts = prompts
	session.TotalImages = totalImages
	session.UpdatedAt = time.Now()

	return s.setSession(ctx, session)
}

// AddImage persists a generated image record under the session.
func (s *RedisStore) AddImage(ctx context.Context, img *model.GeneratedImage) (*model.GeneratedImage, error) {
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

	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image: %w", err)
	}

	if err := s.redis.RPush(ctx, imagesKey(stored.GenerationID), data).Err(); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}
	s.redis.Expire(ctx, imagesKey(stored.GenerationID), sessionTTL)

	return &stored, nil
}

// IncrementCompleted bumps the completed counter with a database-side atomic
// increment; concurrent workers never lose updates.
func (s *RedisStore) IncrementCompleted(ctx context.Context, generationID string) error {
	return s.redis.HIncrBy(ctx, sessionKey(generationID), "completed", 1).Err()
}

// Complete marks the session completed.
func (s *RedisStore) Complete(ctx context.Context, generationID string, elapsed float64) error {
	session, err := s.getSessionData(ctx, generationID)
	if err != nil {
		return err
	}

	session.Status = model.StatusCompleted
	session.GenerationTime = elapsed
	session.UpdatedAt = time.Now()

	return s.setSession(ctx, session)
}

// Fail marks the session failed with a truncated error message.
func (s *RedisStore) Fail(ctx context.Context, generationID, errMsg string) error {
	session, err := s.getSessionData(ctx, generationID)
	if err != nil {
		return err
	}

	session.Status = model.StatusFailed
	session.ErrorMessage = model.Truncate(errMsg, model.MaxErrorLen)
	session.UpdatedAt = time.Now()

	return s.setSession(ctx, session)
}

// Get returns a session with its images ordered by image index.
func (s *RedisStore) Get(ctx context.Context, generationID, userID string) (*model.GenerationSession, error) {
	session, err := s.getSessionData(ctx, generationID)
	if err != nil {
		return nil, err
	}
	if userID != "" && session.UserID != userID {
		return nil, ErrNotFound
	}

	completed, err := s.redis.HGet(ctx, sessionKey(generationID), "completed").Result()
	if err == nil {
		if n, convErr := strconv.Atoi(completed); convErr == nil {
			session.CompletedImages = n
		}
	}

	images, err := s.getImages(ctx, generationID)
	if err != nil {
		return nil, err
	}
	session.Images = images

	return session, nil
}

// ListByUser returns the user's sessions, newest first.
func (s *RedisStore) ListByUser(ctx context.Context, userID string, limit int) ([]model.GenerationSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	ids, err := s.redis.ZRevRange(ctx, userKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]model.GenerationSession, 0, len(ids))
	for _, id := range ids {
		session, err := s.Get(ctx, id, userID)
		if err != nil {
			continue
		}
		sessions = append(sessions, *session)
	}

	return sessions, nil
}

func (s *RedisStore) setSession(ctx context.Context, session *model.GenerationSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := sessionKey(session.ID)
	if err := s.redis.HSet(ctx, key, "data", data).Err(); err != nil {
		return err
	}
	s.redis.Expire(ctx, key, sessionTTL)
	return nil
}

func (s *RedisStore) getSessionData(ctx context.Context, generationID string) (*model.GenerationSession, error) {
	data, err := s.redis.HGet(ctx, sessionKey(generationID), "data").Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var session model.GenerationSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

func (s *RedisStore) getImages(ctx context.Context, generationID string) ([]model.GeneratedImage, error) {
	raw, err := s.redis.LRange(ctx, imagesKey(generationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read images: %w", err)
	}

	images := make([]model.GeneratedImage, 0, len(raw))
	for _, item := range raw {
		var img model.GeneratedImage
		if err := json.Unmarshal([]byte(item), &img); err != nil {
			continue
		}
		images = append(images, img)
	}

	sort.Slice(images, func(i, j int) bool { return images[i].ImageIndex < images[j].ImageIndex })
	return images, nil
}
