package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/marketgen/api/internal/middleware"
	"github.com/marketgen/api/internal/model"
	"github.com/marketgen/api/internal/store"
)

func setupGenerationsApp(st store.SessionStore) *fiber.App {
	auth := middleware.NewAuthMiddleware("test-secret", "development")
	h := NewGenerationsHandler(st)

	app := fiber.New()
	api := app.Group("/api", auth.Authenticate())
	api.Get("/generations", h.List)
	api.Get("/generations/:generationId", h.Get)
	return app
}

func doUserRequest(t *testing.T, app *fiber.App, userID, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-User-ID", userID)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func parseBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}

func TestGenerationsList(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	st.CreateSession(ctx, "user-1", store.SourceTexts{PPTText: "a"})
	st.CreateSession(ctx, "user-1", store.SourceTexts{PPTText: "b"})
	st.CreateSession(ctx, "user-2", store.SourceTexts{PPTText: "c"})

	app := setupGenerationsApp(st)
	resp := doUserRequest(t, app, "user-1", "/api/generations")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	result := parseBody(t, resp)
	if result["count"] != float64(2) {
		t.Errorf("count = %v, want 2", result["count"])
	}
	if result["user_id"] != "user-1" {
		t.Errorf("user_id = %v", result["user_id"])
	}
}

func TestGenerationsGet(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	id, _ := st.CreateSession(ctx, "user-1", store.SourceTexts{PPTText: "a"})
	st.AddImage(ctx, &model.GeneratedImage{GenerationID: id, UserID: "user-1", ImageIndex: 0, ImageURL: "u"})

	app := setupGenerationsApp(st)
	resp := doUserRequest(t, app, "user-1", "/api/generations/"+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	result := parseBody(t, resp)
	if result["id"] != id {
		t.Errorf("id = %v, want %s", result["id"], id)
	}
	images, ok := result["images"].([]interface{})
	if !ok || len(images) != 1 {
		t.Errorf("images = %v, want 1 entry", result["images"])
	}
}

func TestGenerationsGet_WrongOwner(t *testing.T) {
	st := store.NewMemoryStore()
	id, _ := st.CreateSession(context.Background(), "user-1", store.SourceTexts{PPTText: "a"})

	app := setupGenerationsApp(st)
	resp := doUserRequest(t, app, "user-2", "/api/generations/"+id)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for other user's session", resp.StatusCode)
	}
}

func TestGenerationsGet_Missing(t *testing.T) {
	app := setupGenerationsApp(store.NewMemoryStore())
	resp := doUserRequest(t, app, "user-1", "/api/generations/does-not-exist")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	result := parseBody(t, resp)
	errObj, ok := result["error"].(map[string]interface{})
	if !ok || errObj["code"] != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND error envelope, got %v", result)
	}
}

func TestGenerations_NoAuth(t *testing.T) {
	app := setupGenerationsApp(store.NewMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/api/generations", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}
