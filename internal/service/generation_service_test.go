package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/marketgen/api/internal/model"
	"github.com/marketgen/api/internal/store"
)

const (
	testBriefJSON = `{
		"product_or_service": "Task orchestration platform",
		"target_audience": "Engineering leads",
		"value_proposition": "Ship faster with less coordination overhead",
		"key_benefits": ["automation", "visibility"],
		"tone_of_voice": "confident",
		"call_to_action": "Start a free trial"
	}`
	testAnglesJSON = `{"angles": [
		{"angle_name": "Workflow Clarity", "intent": "show the flow", "visual_focus": "workflow"},
		{"angle_name": "System Overview", "intent": "show the parts", "visual_focus": "architecture"}
	]}`
	testEmailJSON   = `{"subject": "Ship faster", "body": "Hello, try our platform."}`
	testPromptsJSON = `{"prompts": [
		{"angle_name": "Workflow Clarity", "summary": "Shows the task flow.", "prompt": "Title: Flow\nVisual Type: workflow diagram"},
		{"angle_name": "System Overview", "summary": "Shows the system.", "prompt": "Title: System\nVisual Type: system architecture"}
	]}`
)

// scriptedTextGen routes each request to a canned response by inspecting the
// prompts, the same way the real model is steered.
type scriptedTextGen struct {
	failStage string // "brief", "angles", "email", "prompts"
}

func (g *scriptedTextGen) ChatCompletionJSON(ctx context.Context, system, user string) (string, error) {
	switch {
	case strings.Contains(system, "visual designer"):
		if g.failStage == "prompts" {
			return "", fmt.Errorf("model unavailable")
		}
		return testPromptsJSON, nil
	case strings.Contains(system, "creative director"):
		if g.failStage == "angles" {
			return "", fmt.Errorf("model unavailable")
		}
		return testAnglesJSON, nil
	case strings.Contains(system, "copywriter"):
		if g.failStage == "email" {
			return "", fmt.Errorf("model unavailable")
		}
		return testEmailJSON, nil
	default:
		if g.failStage == "brief" {
			return "", fmt.Errorf("model unavailable")
		}
		return testBriefJSON, nil
	}
}

func (g *scriptedTextGen) IsConfigured() bool { return true }

func newTestGenerationService(textGen *scriptedTextGen, engine *fakeEngine, st store.SessionStore) *GenerationService {
	assets := NewAssetService(textGen)
	images := NewImageService(engine, &fakeTransfer{}, st, 0)
	return NewGenerationService(assets, images, st)
}

func collectEvents(t *testing.T, ch <-chan model.StreamEvent) []model.StreamEvent {
	t.Helper()
	var events []model.StreamEvent
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("stream did not finish in time")
		}
	}
}

func TestRunStream_SuccessEndsWithComplete(t *testing.T) {
	st := store.NewMemoryStore()
	genID := createTestSession(t, st)
	svc := newTestGenerationService(&scriptedTextGen{}, newFakeEngine(), st)

	events := collectEvents(t, svc.RunStream(context.Background(), model.GenerateInput{
		UserID:       "user-1",
		GenerationID: genID,
		PPTText:      "slide text",
		ImageCount:   2,
	}))

	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	last := events[len(events)-1]
	if last.Type != model.EventComplete {
		t.Fatalf("last event is %q, want %q", last.Type, model.EventComplete)
	}
	if last.Performance == nil || last.Performance.ParallelMode != "true_parallel" {
		t.Error("complete event missing performance data")
	}
	if last.Performance.ImagesGenerated != 2 {
		t.Errorf("images_generated = %d, want 2", last.Performance.ImagesGenerated)
	}

	counts := map[string]int{}
	for _, ev := range events {
		counts[ev.Type]++
		if ev.GenerationID != genID {
			t.Errorf("event %s has generation id %q", ev.Type, ev.GenerationID)
		}
	}
	for _, typ := range []string{model.EventBrief, model.EventEmail, model.EventImageStart, model.EventComplete} {
		if counts[typ] != 1 {
			t.Errorf("expected exactly one %s event, got %d", typ, counts[typ])
		}
	}
	if counts[model.EventImage] != 2 {
		t.Errorf("expected 2 image events, got %d", counts[model.EventImage])
	}
	if counts[model.EventError] != 0 {
		t.Errorf("unexpected error event")
	}

	session, err := st.Get(context.Background(), genID, "user-1")
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if session.Status != model.StatusCompleted {
		t.Errorf("session status = %s, want completed", session.Status)
	}
	if session.TotalImages != 2 {
		t.Errorf("total images = %d, want 2", session.TotalImages)
	}
}

func TestRunStream_StageFailureEndsWithError(t *testing.T) {
	for _, stage := range []string{"brief", "angles", "email", "prompts"} {
		t.Run(stage, func(t *testing.T) {
			st := store.NewMemoryStore()
			genID := createTestSession(t, st)
			svc := newTestGenerationService(&scriptedTextGen{failStage: stage}, newFakeEngine(), st)

			events := collectEvents(t, svc.RunStream(context.Background(), model.GenerateInput{
				UserID:       "user-1",
				GenerationID: genID,
				PPTText:      "slide text",
				ImageCount:   2,
			}))

			if len(events) == 0 {
				t.Fatal("no events emitted")
			}
			last := events[len(events)-1]
			if last.Type != model.EventError {
				t.Fatalf("last event is %q, want %q", last.Type, model.EventError)
			}
			if last.Message == "" {
				t.Error("error event has no message")
			}

			session, err := st.Get(context.Background(), genID, "user-1")
			if err != nil {
				t.Fatalf("failed to load session: %v", err)
			}
			if session.Status != model.StatusFailed {
				t.Errorf("session status = %s, want failed", session.Status)
			}
			if session.ErrorMessage == "" {
				t.Error("session has no error message")
			}
		})
	}
}

func TestRunStream_AllImagesFailingStillCompletes(t *testing.T) {
	engine := newFakeEngine()
	engine.failures["Title: Flow\nVisual Type: workflow diagram"] = fmt.Errorf("engine down")
	engine.failures["Title: System\nVisual Type: system architecture"] = fmt.Errorf("engine down")

	st := store.NewMemoryStore()
	genID := createTestSession(t, st)
	svc := newTestGenerationService(&scriptedTextGen{}, engine, st)

	events := collectEvents(t, svc.RunStream(context.Background(), model.GenerateInput{
		UserID:       "user-1",
		GenerationID: genID,
		PPTText:      "slide text",
		ImageCount:   2,
	}))

	last := events[len(events)-1]
	if last.Type != model.EventComplete {
		t.Fatalf("last event is %q, want %q; item failures must not fail the run", last.Type, model.EventComplete)
	}
	if last.Performance.ImagesGenerated != 0 {
		t.Errorf("images_generated = %d, want 0", last.Performance.ImagesGenerated)
	}

	session, _ := st.Get(context.Background(), genID, "user-1")
	if session.Status != model.StatusCompleted {
		t.Errorf("session status = %s, want completed", session.Status)
	}
}

func TestRun_BlockingModeAggregatesResult(t *testing.T) {
	st := store.NewMemoryStore()
	genID := createTestSession(t, st)
	svc := newTestGenerationService(&scriptedTextGen{}, newFakeEngine(), st)

	result, err := svc.Run(context.Background(), model.GenerateInput{
		UserID:       "user-1",
		GenerationID: genID,
		PPTText:      "slide text",
		ImageCount:   2,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.MarketingBrief == nil || result.MarketingBrief.ProductOrService == "" {
		t.Error("missing marketing brief")
	}
	if result.Email == nil || result.Email.Subject == "" {
		t.Error("missing email")
	}
	if len(result.GeneratedImages) != 2 {
		t.Fatalf("expected 2 images, got %d", len(result.GeneratedImages))
	}
	for i, img := range result.GeneratedImages {
		if img.ImageIndex != i {
			t.Errorf("image %d has index %d", i, img.ImageIndex)
		}
	}
	if result.Performance.ParallelMode != "true_parallel" {
		t.Error("missing performance data")
	}
}

func TestRun_StageFailureMarksSessionFailed(t *testing.T) {
	st := store.NewMemoryStore()
	genID := createTestSession(t, st)
	svc := newTestGenerationService(&scriptedTextGen{failStage: "brief"}, newFakeEngine(), st)

	_, err := svc.Run(context.Background(), model.GenerateInput{
		UserID:       "user-1",
		GenerationID: genID,
		PPTText:      "slide text",
		ImageCount:   2,
	})
	if err == nil {
		t.Fatal("expected error from failed brief stage")
	}

	session, storeErr := st.Get(context.Background(), genID, "user-1")
	if storeErr != nil {
		t.Fatalf("failed to load session: %v", storeErr)
	}
	if session.Status != model.StatusFailed {
		t.Errorf("session status = %s, want failed", session.Status)
	}
}

func TestCleanText(t *testing.T) {
	in := "Line one   with   spaces\n\n\n\nLine two\t\ttabs  \n"
	got := CleanText(in)
	want := "Line one with spaces\n\nLine two tabs"
	if got != want {
		t.Errorf("CleanText = %q, want %q", got, want)
	}
}

func TestBuildSourceContext(t *testing.T) {
	got := BuildSourceContext("ppt", "web")
	if !strings.Contains(got, "SOURCE: PRESENTATION\nppt") {
		t.Errorf("missing presentation section: %q", got)
	}
	if !strings.Contains(got, "SOURCE: WEBSITE\nweb") {
		t.Errorf("missing website section: %q", got)
	}
}
