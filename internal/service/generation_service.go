package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marketgen/api/internal/model"
	"github.com/marketgen/api/internal/store"
)

// GenerationService orchestrates one full generation: text assets, then the
// parallel image batch, then the terminal session status. Any stage failure
// marks the session failed; per-item image failures never do.
type GenerationService struct {
	assets *AssetService
	images *ImageService
	store  store.SessionStore
}

func NewGenerationService(assets *AssetService, images *ImageService, sessionStore store.SessionStore) *GenerationService {
	return &GenerationService{
		assets: assets,
		images: images,
		store:  sessionStore,
	}
}

// Run executes the pipeline to completion and returns the aggregated result.
func (s *GenerationService) Run(ctx context.Context, input model.GenerateInput) (*model.GenerationResult, error) {
	start := time.Now()

	result, imageTime, err := s.run(ctx, input)
	if err != nil {
		s.fail(ctx, input.GenerationID, err)
		return nil, err
	}

	total := time.Since(start).Seconds()
	if storeErr := s.store.Complete(ctx, input.GenerationID, total); storeErr != nil {
		log.Printf("[Generation] Failed to mark %s completed: %v", input.GenerationID, storeErr)
	}

	result.Performance = model.Performance{
		TotalTime:           total,
		ImageGenerationTime: imageTime,
		ImagesGenerated:     len(result.GeneratedImages),
		ImagesRequested:     input.ImageCount,
		ParallelMode:        "true_parallel",
	}

	log.Printf("[Generation] %s completed in %.1fs (%d/%d images)",
		input.GenerationID, total, len(result.GeneratedImages), input.ImageCount)
	return result, nil
}

// RunStream executes the pipeline while emitting progress events. The
// returned channel always ends with exactly one terminal event, complete or
// error, and is closed afterwards.
func (s *GenerationService) RunStream(ctx context.Context, input model.GenerateInput) <-chan model.StreamEvent {
	events := make(chan model.StreamEvent, input.ImageCount+8)

	go func() {
		defer close(events)
		start := time.Now()

		emit := func(ev model.StreamEvent) {
			ev.GenerationID = input.GenerationID
			ev.UserID = input.UserID
			events <- ev
		}

		pptText := CleanText(input.PPTText)
		websiteText := CleanText(input.WebsiteText)
		sourceContext := BuildSourceContext(pptText, websiteText)

		brief, err := s.assets.GenerateBrief(ctx, sourceContext)
		if err != nil {
			s.fail(ctx, input.GenerationID, err)
			ev := model.NewStreamEvent(model.EventError)
			ev.Message = err.Error()
			emit(ev)
			return
		}
		ev := model.NewStreamEvent(model.EventBrief)
		ev.Data = brief
		emit(ev)

		angles, email, err := s.generateAnglesAndEmail(ctx, brief, input.ImageCount)
		if err != nil {
			s.fail(ctx, input.GenerationID, err)
			ev := model.NewStreamEvent(model.EventError)
			ev.Message = err.Error()
			emit(ev)
			return
		}
		ev = model.NewStreamEvent(model.EventEmail)
		ev.Data = email
		emit(ev)

		prompts, err := s.assets.GenerateImagePrompts(ctx, brief, angles)
		if err != nil {
			s.fail(ctx, input.GenerationID, err)
			ev := model.NewStreamEvent(model.EventError)
			ev.Message = err.Error()
			emit(ev)
			return
		}

		items := model.ItemsFromPrompts(prompts)
		if err := s.store.UpdateAssets(ctx, input.GenerationID, brief, email, angles, prompts, len(items)); err != nil {
			err = fmt.Errorf("failed to save assets: %w", err)
			s.fail(ctx, input.GenerationID, err)
			ev := model.NewStreamEvent(model.EventError)
			ev.Message = err.Error()
			emit(ev)
			return
		}

		ev = model.NewStreamEvent(model.EventImageStart)
		ev.Count = len(items)
		emit(ev)

		imageStart := time.Now()
		generated := 0
		for outcome := range s.images.GenerateBatchStream(ctx, input.UserID, input.GenerationID, items) {
			if outcome.Err != nil {
				log.Printf("[Generation] Item %d (%s) failed: %v", outcome.Index, outcome.AngleName, outcome.Err)
				continue
			}
			generated++
			ev = model.NewStreamEvent(model.EventImage)
			ev.Data = outcome.Image
			emit(ev)
		}
		imageTime := time.Since(imageStart).Seconds()

		total := time.Since(start).Seconds()
		if storeErr := s.store.Complete(ctx, input.GenerationID, total); storeErr != nil {
			log.Printf("[Generation] Failed to mark %s completed: %v", input.GenerationID, storeErr)
		}

		ev = model.NewStreamEvent(model.EventComplete)
		ev.Performance = &model.Performance{
			TotalTime:           total,
			ImageGenerationTime: imageTime,
			ImagesGenerated:     generated,
			ImagesRequested:     input.ImageCount,
			ParallelMode:        "true_parallel",
		}
		emit(ev)
	}()

	return events
}

func (s *GenerationService) run(ctx context.Context, input model.GenerateInput) (*model.GenerationResult, float64, error) {
	pptText := CleanText(input.PPTText)
	websiteText := CleanText(input.WebsiteText)
	sourceContext := BuildSourceContext(pptText, websiteText)

	brief, err := s.assets.GenerateBrief(ctx, sourceContext)
	if err != nil {
		return nil, 0, err
	}

	angles, email, err := s.generateAnglesAndEmail(ctx, brief, input.ImageCount)
	if err != nil {
		return nil, 0, err
	}

	prompts, err := s.assets.GenerateImagePrompts(ctx, brief, angles)
	if err != nil {
		return nil, 0, err
	}

	items := model.ItemsFromPrompts(prompts)
	if err := s.store.UpdateAssets(ctx, input.GenerationID, brief, email, angles, prompts, len(items)); err != nil {
		return nil, 0, fmt.Errorf("failed to save assets: %w", err)
	}

	imageStart := time.Now()
	images := s.images.GenerateBatch(ctx, input.UserID, input.GenerationID, items)
	imageTime := time.Since(imageStart).Seconds()

	return &model.GenerationResult{
		GenerationID:    input.GenerationID,
		MarketingBrief:  brief,
		Email:           email,
		CreativeAngles:  angles,
		ImagePrompts:    prompts,
		GeneratedImages: images,
	}, imageTime, nil
}

// generateAnglesAndEmail runs the two brief-dependent text stages in parallel;
// either failure aborts both.
func (s *GenerationService) generateAnglesAndEmail(ctx context.Context, brief *model.MarketingBrief, count int) (*model.CreativeAngleSet, *model.EmailCopy, error) {
	var (
		angles *model.CreativeAngleSet
		email  *model.EmailCopy
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		angles, err = s.assets.GenerateAngles(gctx, brief, count)
		return err
	})
	g.Go(func() error {
		var err error
		email, err = s.assets.GenerateEmail(gctx, brief)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return angles, email, nil
}

func (s *GenerationService) fail(ctx context.Context, generationID string, cause error) {
	log.Printf("[Generation] %s failed: %v", generationID, cause)
	if err := s.store.Fail(ctx, generationID, cause.Error()); err != nil {
		log.Printf("[Generation] Failed to mark %s failed: %v", generationID, err)
	}
}
