package domain

import (
	"errors"

	"github.com/google/uuid"
)

// BlockCategory tags the kind of knowledge a ContentBlock carries.
type BlockCategory string

// The closed set of block categories.
const (
	BlockConcept         BlockCategory = "concept"
	BlockDefinition      BlockCategory = "definition"
	BlockExample         BlockCategory = "example"
	BlockExercise        BlockCategory = "exercise"
	BlockQuestion        BlockCategory = "question"
	BlockExplanation     BlockCategory = "explanation"
	BlockExplanationClip BlockCategory = "explanation_clip"
	BlockVocabulary      BlockCategory = "vocabulary"
	BlockOther           BlockCategory = "other"
)

// Difficulty bounds for ContentBlock.Difficulty.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// ContentBlock validation errors
var (
	ErrBlockIDEmpty          = errors.New("block ID cannot be empty")
	ErrBlockResourceIDEmpty  = errors.New("block resource ID cannot be empty")
	ErrInvalidBlockCategory  = errors.New("invalid block category")
	ErrBlockTitleEmpty       = errors.New("block title cannot be empty")
	ErrDifficultyOutOfBounds = errors.New("difficulty must be between 1 and 5")
)

// ContentBlock is one normalized knowledge fragment extracted from a
// Resource. Optional fields are nil when absent.
type ContentBlock struct {
	ID           string        `json:"id"`
	ResourceID   uuid.UUID     `json:"resource_id"`
	Category     BlockCategory `json:"category"`
	Title        string        `json:"title"`
	Summary      *string       `json:"summary,omitempty"`
	Topic        *string       `json:"topic,omitempty"`
	Difficulty   *int          `json:"difficulty,omitempty"`
	PageStart    *int          `json:"page_start,omitempty"`
	PageEnd      *int          `json:"page_end,omitempty"`
	TimeStartSec *float64      `json:"time_start_sec,omitempty"`
	TimeEndSec   *float64      `json:"time_end_sec,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	Screenshots  []string      `json:"screenshots,omitempty"`
}

// Validate checks if the ContentBlock has valid data.
func (b *ContentBlock) Validate() error {
	if b.ID == "" {
		return ErrBlockIDEmpty
	}
	if b.ResourceID == uuid.Nil {
		return ErrBlockResourceIDEmpty
	}
	if !IsValidBlockCategory(b.Category) {
		return ErrInvalidBlockCategory
	}
	if b.Title == "" {
		return ErrBlockTitleEmpty
	}
	if b.Difficulty != nil && (*b.Difficulty < MinDifficulty || *b.Difficulty > MaxDifficulty) {
		return ErrDifficultyOutOfBounds
	}
	return nil
}

// IsValidBlockCategory reports whether c belongs to the closed category set.
func IsValidBlockCategory(c BlockCategory) bool {
	switch c {
	case BlockConcept, BlockDefinition, BlockExample, BlockExercise, BlockQuestion,
		BlockExplanation, BlockExplanationClip, BlockVocabulary, BlockOther:
		return true
	default:
		return false
	}
}
