package model

import "time"

// GenerateInput carries the extracted source texts into the pipeline.
type GenerateInput struct {
	UserID       string
	GenerationID string
	PPTText      string
	WebsiteText  string
	ImageCount   int
}

// Performance summarizes timing for a completed generation.
type Performance struct {
	TotalTime           float64 `json:"total_time"`
	ImageGenerationTime float64 `json:"image_generation_time"`
	ImagesGenerated     int     `json:"images_generated"`
	ImagesRequested     int     `json:"images_requested"`
	ParallelMode        string  `json:"parallel_mode"`
}

// GenerationResult is the blocking-mode output of the pipeline.
type GenerationResult struct {
	GenerationID    string            `json:"generation_id"`
	MarketingBrief  *MarketingBrief   `json:"marketing_brief"`
	Email           *EmailCopy        `json:"email"`
	CreativeAngles  *CreativeAngleSet `json:"creative_angles"`
	ImagePrompts    *ImagePromptSet   `json:"ad_image_prompts"`
	GeneratedImages []GeneratedImage  `json:"generated_images"`
	Performance     Performance       `json:"performance"`
}

// Stream event types, in emission order. Every stream ends with exactly one
// of EventComplete or EventError.
const (
	EventStart      = "start"
	EventBrief      = "brief"
	EventEmail      = "email"
	EventImageStart = "image_start"
	EventImage      = "image"
	EventComplete   = "complete"
	EventError      = "error"
)

// StreamEvent is one NDJSON line of generation progress.
type StreamEvent struct {
	Type         string          `json:"type"`
	Timestamp    float64         `json:"timestamp"`
	GenerationID string          `json:"generation_id,omitempty"`
	UserID       string          `json:"user_id,omitempty"`
	Data         interface{}     `json:"data,omitempty"`
	Count        int             `json:"count,omitempty"`
	Message      string          `json:"message,omitempty"`
	Performance *Performance `json:"performance,omitempty"`
}

// NewStreamEvent stamps an event with the current wall clock.
func NewStreamEvent(eventType string) StreamEvent {
	return StreamEvent{
		Type:      eventType,
		Timestamp: float64(time.Now().UnixMilli()) / 1000.0,
	}
}

// GenerateAsyncResponse acknowledges a queued generation.
type GenerateAsyncResponse struct {
	GenerationID string           `json:"generation_id"`
	UserID       string           `json:"user_id"`
	Status       GenerationStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
}

// GenerationJobPayload is the asynq task payload for async generations.
type GenerationJobPayload struct {
	GenerationID string `json:"generationId"`
	UserID       string `json:"userId"`
	PPTText      string `json:"pptText"`
	WebsiteText  string `json:"websiteText"`
	ImageCount   int    `json:"imageCount"`
}

// ListGenerationsResponse is the envelope for the list endpoint.
type ListGenerationsResponse struct {
	Success     bool                `json:"success"`
	UserID      string              `json:"user_id"`
	Count       int                 `json:"count"`
	Generations []GenerationSession `json:"generations"`
}

// GenerateResponse is the blocking-mode success envelope.
type GenerateResponse struct {
	Success      bool              `json:"success"`
	GenerationID string            `json:"generation_id"`
	UserID       string            `json:"user_id"`
	Mode         string            `json:"mode"`
	Data         *GenerationResult `json:"data"`
}
