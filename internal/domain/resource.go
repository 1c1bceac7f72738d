package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MaterialCategory classifies what kind of study material a Resource is.
type MaterialCategory string

// Supported material categories.
const (
	MaterialPDF      MaterialCategory = "pdf"
	MaterialExercise MaterialCategory = "exercise"
	MaterialVideo    MaterialCategory = "video"
	MaterialImage    MaterialCategory = "image"
)

// ResourceSource records where a Resource came from.
type ResourceSource string

// Supported resource sources.
const (
	SourceUpload    ResourceSource = "upload"
	SourceCommunity ResourceSource = "community"
)

// Resource validation errors
var (
	ErrResourceIDEmpty         = errors.New("resource ID cannot be empty")
	ErrResourceTitleEmpty      = errors.New("resource title cannot be empty")
	ErrInvalidResourceSource   = errors.New("invalid resource source")
	ErrInvalidMaterialCategory = errors.New("invalid material category")
)

// Resource is one ingested source document or image. It is immutable once
// created; ingestion derives ContentBlocks and LearningUnits from it.
type Resource struct {
	ID        uuid.UUID        `json:"id"`
	Title     string           `json:"title"`
	Source    ResourceSource   `json:"source"`
	FileName  string           `json:"file_name,omitempty"`
	MimeType  string           `json:"mime_type,omitempty"`
	Category  MaterialCategory `json:"category"`
	Notes     string           `json:"notes,omitempty"`
	SourceURL string           `json:"source_url,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewResource creates a Resource with a fresh ID and creation time.
// Returns an error if validation fails.
func NewResource(
	title string,
	source ResourceSource,
	category MaterialCategory,
	fileName, mimeType, notes string,
) (*Resource, error) {
	r := &Resource{
		ID:        uuid.New(),
		Title:     title,
		Source:    source,
		FileName:  fileName,
		MimeType:  mimeType,
		Category:  category,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks if the Resource has valid data.
func (r *Resource) Validate() error {
	if r.ID == uuid.Nil {
		return ErrResourceIDEmpty
	}
	if r.Title == "" {
		return ErrResourceTitleEmpty
	}
	if r.Source != SourceUpload && r.Source != SourceCommunity {
		return ErrInvalidResourceSource
	}
	if !IsValidMaterialCategory(r.Category) {
		return ErrInvalidMaterialCategory
	}
	return nil
}

// IsValidMaterialCategory reports whether c is one of the known categories.
func IsValidMaterialCategory(c MaterialCategory) bool {
	switch c {
	case MaterialPDF, MaterialExercise, MaterialVideo, MaterialImage:
		return true
	default:
		return false
	}
}
