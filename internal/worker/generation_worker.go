package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/marketgen/api/internal/model"
	"github.com/marketgen/api/internal/service"
	"github.com/marketgen/api/internal/websocket"
)

// TaskTypeGeneration is the asynq task type for queued generations.
const TaskTypeGeneration = "generation:run"

// GenerationWorker processes queued generation jobs, relaying progress events
// to WebSocket subscribers as the pipeline runs.
type GenerationWorker struct {
	generation *service.GenerationService
	hub        *websocket.Hub
}

func NewGenerationWorker(generation *service.GenerationService, hub *websocket.Hub) *GenerationWorker {
	return &GenerationWorker{
		generation: generation,
		hub:        hub,
	}
}

// NewGenerationTask wraps a payload as an asynq task.
func NewGenerationTask(payload *model.GenerationJobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation payload: %w", err)
	}
	return asynq.NewTask(TaskTypeGeneration, data), nil
}

// ProcessTask runs one queued generation to its terminal state. The session
// record carries the outcome, so a pipeline failure is not returned as a task
// error; asynq retrying a failed generation would double-charge the user.
func (w *GenerationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.GenerationJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal generation payload: %w", err)
	}

	log.Printf("Starting generation job: %s", payload.GenerationID)

	input := model.GenerateInput{
		UserID:       payload.UserID,
		GenerationID: payload.GenerationID,
		PPTText:      payload.PPTText,
		WebsiteText:  payload.WebsiteText,
		ImageCount:   payload.ImageCount,
	}

	for event := range w.generation.RunStream(ctx, input) {
		w.hub.BroadcastEvent(payload.GenerationID, event)
	}

	log.Printf("Generation job %s finished", payload.GenerationID)
	return nil
}
