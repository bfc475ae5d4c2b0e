package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/marketgen/api/internal/client"
	"github.com/marketgen/api/internal/model"
	"github.com/marketgen/api/internal/store"
)

// ItemOutcome is one creative item's result as it finishes. Exactly one of
// Image or Err is set.
type ItemOutcome struct {
	Index     int
	AngleName string
	Image     *model.GeneratedImage
	Err       error
}

// ImageService runs the image-generation batch. Every item is submitted
// simultaneously, each in its own goroutine; a failed item is logged and
// dropped without disturbing its siblings.
type ImageService struct {
	engine   client.ImageEngine
	transfer ArtifactTransfer
	store    store.SessionStore

	// maxConcurrent caps in-flight items when positive; zero means every
	// item runs at once.
	maxConcurrent int
}

func NewImageService(engine client.ImageEngine, transfer ArtifactTransfer, sessionStore store.SessionStore, maxConcurrent int) *ImageService {
	return &ImageService{
		engine:        engine,
		transfer:      transfer,
		store:         sessionStore,
		maxConcurrent: maxConcurrent,
	}
}

// GenerateBatchStream launches one worker per item and returns a channel of
// outcomes in completion order. The channel is closed after the last worker
// finishes; an empty batch yields an already-closed channel.
func (s *ImageService) GenerateBatchStream(ctx context.Context, userID, generationID string, items []model.CreativeItem) <-chan ItemOutcome {
	outcomes := make(chan ItemOutcome, len(items))
	if len(items) == 0 {
		close(outcomes)
		return outcomes
	}

	var sem chan struct{}
	if s.maxConcurrent > 0 {
		sem = make(chan struct{}, s.maxConcurrent)
	}

	log.Printf("[ImageBatch] Launching %d parallel workers for generation %s", len(items), generationID)

	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(item model.CreativeItem) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			outcomes <- s.processItem(ctx, userID, generationID, item)
		}(item)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	return outcomes
}

// GenerateBatch runs the batch to completion and returns the successful images
// ordered by their original item index, regardless of completion order.
func (s *ImageService) GenerateBatch(ctx context.Context, userID, generationID string, items []model.CreativeItem) []model.GeneratedImage {
	images := make([]model.GeneratedImage, 0, len(items))
	for outcome := range s.GenerateBatchStream(ctx, userID, generationID, items) {
		if outcome.Err != nil {
			log.Printf("[ImageBatch] Item %d (%s) failed: %v", outcome.Index, outcome.AngleName, outcome.Err)
			continue
		}
		images = append(images, *outcome.Image)
	}

	sort.Slice(images, func(i, j int) bool { return images[i].ImageIndex < images[j].ImageIndex })

	log.Printf("[ImageBatch] Generation %s finished: %d/%d images succeeded",
		generationID, len(images), len(items))
	return images
}

// processItem runs one item end to end: engine round-trip, transfer to durable
// storage, persistence. Any error, including a panic, stays confined to this
// item.
func (s *ImageService) processItem(ctx context.Context, userID, generationID string, item model.CreativeItem) (outcome ItemOutcome) {
	outcome = ItemOutcome{Index: item.Index, AngleName: item.AngleName}
	defer func() {
		if r := recover(); r != nil {
			outcome.Image = nil
			outcome.Err = fmt.Errorf("worker panic: %v", r)
		}
	}()

	start := time.Now()
	taskName := fmt.Sprintf("Marketing_Gen_%d", item.Index)

	urls, err := s.engine.SubmitAndAwait(ctx, item.Prompt, taskName)
	if err != nil {
		outcome.Err = fmt.Errorf("image generation failed: %w", err)
		return outcome
	}
	if len(urls) == 0 {
		outcome.Err = fmt.Errorf("engine returned no image urls")
		return outcome
	}

	artifact, err := s.transfer.Transfer(ctx, urls[0], userID, generationID)
	if err != nil {
		outcome.Err = fmt.Errorf("artifact transfer failed: %w", err)
		return outcome
	}

	img := &model.GeneratedImage{
		GenerationID:   generationID,
		UserID:         userID,
		AngleName:      item.AngleName,
		ImageSummary:   item.Summary,
		Prompt:         item.Prompt,
		ImageURL:       artifact.PublicURL,
		StoragePath:    artifact.StoragePath,
		StorageType:    artifact.StorageType,
		ImageIndex:     item.Index,
		GenerationTime: time.Since(start).Seconds(),
	}

	stored, err := s.store.AddImage(ctx, img)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to persist image: %w", err)
		return outcome
	}

	// Progress counter is best effort: the image itself is already durable.
	if err := s.store.IncrementCompleted(ctx, generationID); err != nil {
		log.Printf("[ImageBatch] Failed to bump completed counter for %s: %v", generationID, err)
	}

	log.Printf("[ImageBatch] Item %d (%s) completed in %.1fs", item.Index, item.AngleName, stored.GenerationTime)
	outcome.Image = stored
	return outcome
}
