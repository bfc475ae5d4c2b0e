package model

import "time"

// GenerationStatus is the lifecycle state of a generation session.
type GenerationStatus string

const (
	StatusProcessing GenerationStatus = "processing"
	StatusCompleted  GenerationStatus = "completed"
	StatusFailed     GenerationStatus = "failed"
)

// Storage caps applied before persisting records.
const (
	MaxSourceTextLen = 5000
	MaxAngleNameLen  = 255
	MaxSummaryLen    = 1000
	MaxPromptLen     = 2000
	MaxErrorLen      = 500
)

// GenerationSession is one end-to-end generation request's persisted record.
// Status only moves processing → completed or processing → failed.
type GenerationSession struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	WebsiteURL      string            `json:"website_url,omitempty"`
	PPTText         string            `json:"ppt_text,omitempty"`
	WebsiteText     string            `json:"website_text,omitempty"`
	Status          GenerationStatus  `json:"status"`
	MarketingBrief  *MarketingBrief   `json:"marketing_brief,omitempty"`
	EmailContent    *EmailCopy        `json:"email_content,omitempty"`
	CreativeAngles  *CreativeAngleSet `json:"creative_angles,omitempty"`
	ImagePrompts    *ImagePromptSet   `json:"image_prompts,omitempty"`
	TotalImages     int               `json:"total_images"`
	CompletedImages int               `json:"completed_images"`
	GenerationTime  float64           `json:"generation_time,omitempty"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`

	// Images is populated on reads, ordered by ImageIndex.
	Images []GeneratedImage `json:"images,omitempty"`
}

// GeneratedImage is a durably stored artifact produced for one creative item.
// ImageIndex equals the originating item's index and is the only ordering key;
// completion order never leaks into stored or returned order.
type GeneratedImage struct {
	ID             string    `json:"id"`
	GenerationID   string    `json:"generation_id"`
	UserID         string    `json:"user_id"`
	AngleName      string    `json:"angle_name"`
	ImageSummary   string    `json:"image_summary"`
	Prompt         string    `json:"prompt"`
	ImageURL       string    `json:"image_url"`
	StoragePath    string    `json:"storage_path"`
	StorageType    string    `json:"storage_type"`
	ImageIndex     int       `json:"image_index"`
	GenerationTime float64   `json:"generation_time"`
	CreatedAt      time.Time `json:"created_at"`
}

// StoredArtifact is the result of transferring an external image to durable storage.
type StoredArtifact struct {
	PublicURL   string `json:"public_url"`
	StoragePath string `json:"storage_path"`
	StorageType string `json:"storage_type"`
}

// Truncate caps s at max runes-as-bytes; persisted text fields are length-capped.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
