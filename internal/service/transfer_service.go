package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marketgen/api/internal/client"
	"github.com/marketgen/api/internal/model"
)

// ArtifactTransfer moves a transient external image to durable storage.
type ArtifactTransfer interface {
	Transfer(ctx context.Context, sourceURL, userID, generationID string) (*model.StoredArtifact, error)
}

// TransferService downloads engine output and re-uploads it to object storage.
// There is no local-disk fallback: artifacts must survive process restart, so
// an upload failure is a failure.
type TransferService struct {
	storage    client.StorageClient
	httpClient *http.Client
}

// NewTransferService creates a transfer service with a bounded download timeout.
func NewTransferService(storage client.StorageClient, timeout time.Duration) *TransferService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TransferService{
		storage:    storage,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Transfer downloads the image at sourceURL and stores it under
// {generationID}/{user}_{timestamp}_{suffix}.png, returning the durable
// location.
func (s *TransferService) Transfer(ctx context.Context, sourceURL, userID, generationID string) (*model.StoredArtifact, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("object storage not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("image download error (status %d)", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	key := buildStorageKey(userID, generationID)

	publicURL, err := s.storage.Upload(ctx, key, bytes.NewReader(imageData), "image/png")
	if err != nil {
		return nil, fmt.Errorf("failed to upload artifact: %w", err)
	}

	log.Printf("[Transfer] Stored %d bytes at %s", len(imageData), key)

	return &model.StoredArtifact{
		PublicURL:   publicURL,
		StoragePath: key,
		StorageType: "r2",
	}, nil
}

// buildStorageKey produces a collision-resistant destination path namespaced
// by generation id.
func buildStorageKey(userID, generationID string) string {
	safeUser := strings.ReplaceAll(userID, "-", "")
	if safeUser == "" {
		safeUser = "user"
	}
	if len(safeUser) > 10 {
		safeUser = safeUser[:10]
	}
	timestamp := time.Now().Format("20060102_150405")
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("%s/%s_%s_%s.png", generationID, safeUser, timestamp, suffix)
}
