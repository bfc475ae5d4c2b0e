package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/marketgen/api/internal/config"
	"github.com/marketgen/api/internal/extract"
	"github.com/marketgen/api/internal/middleware"
	"github.com/marketgen/api/internal/model"
	"github.com/marketgen/api/internal/service"
	"github.com/marketgen/api/internal/store"
	"github.com/marketgen/api/internal/worker"
	"github.com/marketgen/api/pkg/response"
)

const defaultImageCount = 3

// GenerateHandler accepts generation requests in three modes: blocking,
// NDJSON streaming, and queued.
type GenerateHandler struct {
	generation   *service.GenerationService
	sessionStore store.SessionStore
	webExtractor *extract.WebExtractor
	asynqClient  *asynq.Client
	validator    *validator.Validate
	limits       config.LimitsConfig
}

func NewGenerateHandler(
	generation *service.GenerationService,
	sessionStore store.SessionStore,
	webExtractor *extract.WebExtractor,
	asynqClient *asynq.Client,
	v *validator.Validate,
	limits config.LimitsConfig,
) *GenerateHandler {
	return &GenerateHandler{
		generation:   generation,
		sessionStore: sessionStore,
		webExtractor: webExtractor,
		asynqClient:  asynqClient,
		validator:    v,
		limits:       limits,
	}
}

// generateRequest is the parsed multipart form.
type generateRequest struct {
	WebsiteURL string `validate:"omitempty,url"`
	ImageCount int    `validate:"min=1"`
}

// Generate handles POST /api/generate (blocking mode).
func (h *GenerateHandler) Generate(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	input, respErr := h.prepare(c, userID)
	if input == nil {
		return respErr
	}

	result, err := h.generation.Run(context.Background(), *input)
	if err != nil {
		return response.GenerationError(c, err.Error())
	}

	return response.OK(c, model.GenerateResponse{
		Success:      true,
		GenerationID: input.GenerationID,
		UserID:       userID,
		Mode:         "blocking",
		Data:         result,
	})
}

// GenerateStream handles POST /api/generate-stream. Progress is written as
// newline-delimited JSON; the connection stays open until the terminal event.
func (h *GenerateHandler) GenerateStream(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	input, respErr := h.prepare(c, userID)
	if input == nil {
		return respErr
	}

	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Accel-Buffering", "no")

	generation := h.generation
	in := *input

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		writeEvent := func(ev model.StreamEvent) bool {
			data, err := json.Marshal(ev)
			if err != nil {
				return false
			}
			if _, err := w.Write(append(data, '\n')); err != nil {
				return false
			}
			return w.Flush() == nil
		}

		startEv := model.NewStreamEvent(model.EventStart)
		startEv.GenerationID = in.GenerationID
		startEv.UserID = in.UserID
		writeEvent(startEv)

		// The pipeline keeps running on a background context even if the
		// client disconnects; the session record is still completed.
		for ev := range generation.RunStream(context.Background(), in) {
			writeEvent(ev)
		}
	})

	return nil
}

// GenerateAsync handles POST /api/generate-async. The job is queued and the
// caller polls the session or subscribes over WebSocket.
func (h *GenerateHandler) GenerateAsync(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	input, respErr := h.prepare(c, userID)
	if input == nil {
		return respErr
	}

	task, err := worker.NewGenerationTask(&model.GenerationJobPayload{
		GenerationID: input.GenerationID,
		UserID:       userID,
		PPTText:      input.PPTText,
		WebsiteText:  input.WebsiteText,
		ImageCount:   input.ImageCount,
	})
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	if _, err := h.asynqClient.Enqueue(task, asynq.Queue("generation")); err != nil {
		return response.ServiceError(c, "Failed to queue generation")
	}

	log.Printf("Queued generation %s for user %s", input.GenerationID, userID)

	return response.Accepted(c, model.GenerateAsyncResponse{
		GenerationID: input.GenerationID,
		UserID:       userID,
		Status:       model.StatusProcessing,
		CreatedAt:    time.Now(),
	})
}

// prepare parses the multipart form, extracts source texts and creates the
// session record. On failure the error response has already been written and
// the returned input is nil; callers bail on nil input.
func (h *GenerateHandler) prepare(c *fiber.Ctx, userID string) (*model.GenerateInput, error) {
	req := generateRequest{
		WebsiteURL: c.FormValue("website_url"),
		ImageCount: defaultImageCount,
	}
	if raw := c.FormValue("image_count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, response.ValidationError(c, "image_count must be a number", nil)
		}
		req.ImageCount = n
	}
	if req.ImageCount > h.limits.MaxImages {
		req.ImageCount = h.limits.MaxImages
	}

	if err := h.validator.Struct(&req); err != nil {
		return nil, response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	pptText, err := h.extractPPT(c)
	if err != nil {
		return nil, response.ValidationError(c, err.Error(), nil)
	}

	websiteText := ""
	if req.WebsiteURL != "" {
		websiteText, err = h.webExtractor.Extract(c.Context(), req.WebsiteURL)
		if err != nil {
			return nil, response.ValidationError(c, fmt.Sprintf("Failed to extract website content: %v", err), nil)
		}
	}

	if pptText == "" && websiteText == "" {
		return nil, response.ValidationError(c, "Provide at least one source: ppt_file or website_url", nil)
	}

	generationID, err := h.sessionStore.CreateSession(c.Context(), userID, store.SourceTexts{
		WebsiteURL:  req.WebsiteURL,
		PPTText:     pptText,
		WebsiteText: websiteText,
	})
	if err != nil {
		return nil, response.ServiceError(c, "Failed to create generation session")
	}

	return &model.GenerateInput{
		UserID:       userID,
		GenerationID: generationID,
		PPTText:      pptText,
		WebsiteText:  websiteText,
		ImageCount:   req.ImageCount,
	}, nil
}

func (h *GenerateHandler) extractPPT(c *fiber.Ctx) (string, error) {
	fileHeader, err := c.FormFile("ppt_file")
	if err != nil {
		return "", nil // file is optional
	}

	if fileHeader.Size > int64(h.limits.FileSizeLimit) {
		return "", fmt.Errorf("ppt_file exceeds the %d byte limit", h.limits.FileSizeLimit)
	}

	data, err := readMultipartFile(fileHeader)
	if err != nil {
		return "", fmt.Errorf("failed to read ppt_file: %w", err)
	}

	text, err := extract.PPTX(data)
	if err != nil {
		return "", fmt.Errorf("failed to extract presentation text: %w", err)
	}
	return text, nil
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func formatValidationErrors(err error) []string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		out = append(out, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return out
}
