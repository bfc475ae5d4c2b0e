package store

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/marketgen/api/internal/model"
)

func TestMemoryStore_SessionLifecycle(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	id, err := st.CreateSession(ctx, "user-1", SourceTexts{
		WebsiteURL:  "https://example.com",
		PPTText:     "slides",
		WebsiteText: "website",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	session, err := st.Get(ctx, id, "user-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if session.Status != model.StatusProcessing {
		t.Errorf("new session status = %s", session.Status)
	}
	if session.PPTText != "slides" || session.WebsiteURL != "https://example.com" {
		t.Errorf("source texts not persisted: %+v", session)
	}

	if err := st.Complete(ctx, id, 12.5); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	session, _ = st.Get(ctx, id, "user-1")
	if session.Status != model.StatusCompleted || session.GenerationTime != 12.5 {
		t.Errorf("completed session = %+v", session)
	}
}

func TestMemoryStore_OwnershipScoping(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	id, _ := st.CreateSession(ctx, "owner", SourceTexts{PPTText: "x"})

	if _, err := st.Get(ctx, id, "intruder"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for wrong owner, got %v", err)
	}
	if _, err := st.Get(ctx, "missing-id", "owner"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for missing id, got %v", err)
	}
	if _, err := st.Get(ctx, id, ""); err != nil {
		t.Errorf("empty user id must skip scoping, got %v", err)
	}
}

func TestMemoryStore_ImagesSortedAndCapped(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	id, _ := st.CreateSession(ctx, "user-1", SourceTexts{PPTText: "x"})

	longPrompt := strings.Repeat("p", model.MaxPromptLen+100)
	for _, idx := range []int{2, 0, 1} {
		_, err := st.AddImage(ctx, &model.GeneratedImage{
			GenerationID: id,
			UserID:       "user-1",
			ImageIndex:   idx,
			Prompt:       longPrompt,
		})
		if err != nil {
			t.Fatalf("add image failed: %v", err)
		}
	}

	session, err := st.Get(ctx, id, "user-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(session.Images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(session.Images))
	}
	for i, img := range session.Images {
		if img.ImageIndex != i {
			t.Errorf("position %d has index %d", i, img.ImageIndex)
		}
		if len(img.Prompt) != model.MaxPromptLen {
			t.Errorf("prompt not capped, len=%d", len(img.Prompt))
		}
		if img.ID == "" {
			t.Error("image was not assigned an id")
		}
	}
}

func TestMemoryStore_ConcurrentIncrements(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	id, _ := st.CreateSession(ctx, "user-1", SourceTexts{PPTText: "x"})

	n := 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := st.IncrementCompleted(ctx, id); err != nil {
				t.Errorf("increment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	session, _ := st.Get(ctx, id, "user-1")
	if session.CompletedImages != n {
		t.Errorf("completed = %d, want %d", session.CompletedImages, n)
	}
}

func TestMemoryStore_FailTruncatesError(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	id, _ := st.CreateSession(ctx, "user-1", SourceTexts{PPTText: "x"})

	longErr := strings.Repeat("e", model.MaxErrorLen+50)
	if err := st.Fail(ctx, id, longErr); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	session, _ := st.Get(ctx, id, "user-1")
	if session.Status != model.StatusFailed {
		t.Errorf("status = %s", session.Status)
	}
	if len(session.ErrorMessage) != model.MaxErrorLen {
		t.Errorf("error not truncated, len=%d", len(session.ErrorMessage))
	}
}

func TestMemoryStore_ListByUserNewestFirst(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, _ := st.CreateSession(ctx, "user-1", SourceTexts{PPTText: "x"})
		ids = append(ids, id)
	}
	st.CreateSession(ctx, "user-2", SourceTexts{PPTText: "y"})

	sessions, err := st.ListByUser(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	for i := 1; i < len(sessions); i++ {
		if sessions[i].CreatedAt.After(sessions[i-1].CreatedAt) {
			t.Errorf("sessions not sorted newest first")
		}
	}

	limited, _ := st.ListByUser(ctx, "user-1", 2)
	if len(limited) != 2 {
		t.Errorf("limit ignored, got %d sessions", len(limited))
	}
}
