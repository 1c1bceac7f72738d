package domain

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// UnitStatus records whether a unit has been attempted.
type UnitStatus string

// Possible unit status values. Done means attempted, not mastered.
const (
	UnitStatusTodo UnitStatus = "todo"
	UnitStatusDone UnitStatus = "done"
)

// ExerciseKind discriminates the shape of a unit payload.
type ExerciseKind string

// The closed set of exercise kinds, plus KindGeneric which is never stored
// and only names the informational fallback.
const (
	KindChoice    ExerciseKind = "choice"
	KindSpelling  ExerciseKind = "spelling"
	KindFillBlank ExerciseKind = "fill_blank"
	KindMatching  ExerciseKind = "matching"
	KindQA        ExerciseKind = "qa"
	KindImitation ExerciseKind = "imitation"
	KindGeneric   ExerciseKind = "generic"
)

// Known reports whether k is one of the gradable exercise kinds.
func (k ExerciseKind) Known() bool {
	switch k {
	case KindChoice, KindSpelling, KindFillBlank, KindMatching, KindQA, KindImitation:
		return true
	default:
		return false
	}
}

// RequiresSubmission reports whether an item of this kind must be submitted
// before the session may advance past it.
func (k ExerciseKind) RequiresSubmission() bool {
	return k.Known()
}

// LearningGoal names the cognitive aim of a unit.
type LearningGoal string

// Learning goals a unit may be tagged with.
const (
	GoalMemory         LearningGoal = "memory"
	GoalDiscrimination LearningGoal = "discrimination"
	GoalSemantic       LearningGoal = "semantic"
	GoalCollocation    LearningGoal = "collocation"
	GoalExpression     LearningGoal = "expression"
	GoalComprehension  LearningGoal = "comprehension"
	GoalQuiz           LearningGoal = "quiz"
	GoalReview         LearningGoal = "review"
)

// Known reports whether g is a recognized learning goal.
func (g LearningGoal) Known() bool {
	switch g {
	case GoalMemory, GoalDiscrimination, GoalSemantic, GoalCollocation,
		GoalExpression, GoalComprehension, GoalQuiz, GoalReview:
		return true
	default:
		return false
	}
}

// LearningUnit validation errors
var (
	ErrUnitIDEmpty         = errors.New("unit ID cannot be empty")
	ErrUnitResourceIDEmpty = errors.New("unit resource ID cannot be empty")
	ErrUnitTitleEmpty      = errors.New("unit title cannot be empty")
)

// LearningUnit is one exercise derived from a ContentBlock. Its Payload is
// free-form JSON whose shape depends on Kind. Kind is carried through from
// the model unvalidated; an unknown kind falls back to generic rendering.
type LearningUnit struct {
	ID             string          `json:"id"`
	ResourceID     uuid.UUID       `json:"resource_id"`
	Title          string          `json:"title"`
	Status         UnitStatus      `json:"status"`
	Kind           ExerciseKind    `json:"kind,omitempty"`
	Goal           LearningGoal    `json:"goal,omitempty"`
	SourceBlockIDs []string        `json:"source_block_ids,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	PageNumber     *int            `json:"page_number,omitempty"`
}

// Validate checks if the LearningUnit has valid data.
func (u *LearningUnit) Validate() error {
	if u.ID == "" {
		return ErrUnitIDEmpty
	}
	if u.ResourceID == uuid.Nil {
		return ErrUnitResourceIDEmpty
	}
	if u.Title == "" {
		return ErrUnitTitleEmpty
	}
	if !IsValidUnitStatus(u.Status) {
		return ErrInvalidUnitStatus
	}
	if len(u.Payload) > 0 {
		trimmed := bytes.TrimSpace(u.Payload)
		if !json.Valid(trimmed) || (trimmed[0] != '{' && trimmed[0] != '[') {
			return ErrInvalidPayload
		}
	}
	return nil
}

// WithStatus returns a copy of u with the given status. The receiver is not
// modified.
func (u LearningUnit) WithStatus(status UnitStatus) (LearningUnit, error) {
	if !IsValidUnitStatus(status) {
		return u, ErrInvalidUnitStatus
	}
	u.Status = status
	if u.SourceBlockIDs != nil {
		u.SourceBlockIDs = append([]string(nil), u.SourceBlockIDs...)
	}
	return u, nil
}

// WithPage returns a copy of u tagged with the given page number.
func (u LearningUnit) WithPage(page int) LearningUnit {
	u.PageNumber = &page
	return u
}

// IsValidUnitStatus reports whether s is todo or done.
func IsValidUnitStatus(s UnitStatus) bool {
	return s == UnitStatusTodo || s == UnitStatusDone
}
