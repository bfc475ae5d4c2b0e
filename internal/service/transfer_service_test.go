package service

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeStorage records uploads in memory.
type fakeStorage struct {
	keys []string
	data [][]byte
}

func (s *fakeStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	content, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.keys = append(s.keys, key)
	s.data = append(s.data, content)
	return "https://cdn.example/" + key, nil
}

func (s *fakeStorage) GetPublicURL(key string) string {
	return "https://cdn.example/" + key
}

func TestTransfer_DownloadsAndUploads(t *testing.T) {
	imageBytes := []byte("fake-png-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(imageBytes)
	}))
	defer srv.Close()

	storage := &fakeStorage{}
	svc := NewTransferService(storage, 5*time.Second)

	artifact, err := svc.Transfer(context.Background(), srv.URL, "user-abc-def", "gen-123")
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if len(storage.keys) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(storage.keys))
	}
	if !bytes.Equal(storage.data[0], imageBytes) {
		t.Error("uploaded bytes differ from downloaded bytes")
	}

	key := storage.keys[0]
	if !strings.HasPrefix(key, "gen-123/") {
		t.Errorf("key %q not namespaced by generation id", key)
	}
	if !strings.HasSuffix(key, ".png") {
		t.Errorf("key %q missing png extension", key)
	}
	if strings.Contains(strings.TrimPrefix(key, "gen-123/"), "-") {
		t.Errorf("key %q contains unsanitized characters", key)
	}
	if artifact.PublicURL != "https://cdn.example/"+key {
		t.Errorf("public url %q does not match key", artifact.PublicURL)
	}
	if artifact.StorageType != "r2" {
		t.Errorf("storage type = %q", artifact.StorageType)
	}
}

func TestTransfer_HTTPErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	svc := NewTransferService(&fakeStorage{}, 5*time.Second)
	if _, err := svc.Transfer(context.Background(), srv.URL, "user", "gen"); err == nil {
		t.Fatal("expected error for 403 download")
	}
}

func TestTransfer_NoStorageConfigured(t *testing.T) {
	svc := NewTransferService(nil, 5*time.Second)
	if _, err := svc.Transfer(context.Background(), "http://example.com/x.png", "user", "gen"); err == nil {
		t.Fatal("expected error when storage is not configured")
	}
}

func TestBuildStorageKey_UniquePerCall(t *testing.T) {
	a := buildStorageKey("user-1", "gen-1")
	b := buildStorageKey("user-1", "gen-1")
	if a == b {
		t.Errorf("keys collide: %q", a)
	}
}
