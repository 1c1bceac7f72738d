package session

import "errors"

// Rejection reasons reported in Transition.Reason.
var (
	// ErrSubmissionRejected is reported when advancing past an item that
	// requires a submission which has not happened.
	ErrSubmissionRejected = errors.New("item must be submitted before advancing")

	// ErrNotActive is reported for any item action outside the Active state.
	ErrNotActive = errors.New("session is not active")

	// ErrNoPreviousItem is reported when retreating from the first item.
	ErrNoPreviousItem = errors.New("already at the first item")

	// ErrNoItem is reported when acting on a unit that has no items.
	ErrNoItem = errors.New("unit has no items")

	// ErrAnswerIncomplete is reported when a submission lacks a required part.
	ErrAnswerIncomplete = errors.New("answer is incomplete")

	// ErrEmptyAnswer is reported when a graded text answer is blank.
	ErrEmptyAnswer = errors.New("answer cannot be blank")

	// ErrItemLocked is reported when changing an answer that is locked after
	// submission.
	ErrItemLocked = errors.New("item is locked after submission")

	// ErrInvalidOption is reported for a choice index out of range.
	ErrInvalidOption = errors.New("option index out of range")

	// ErrWrongKind is reported when an action does not apply to the current
	// item's kind.
	ErrWrongKind = errors.New("action does not apply to this item kind")

	// ErrUnknownLeft is reported for a left value not on the board.
	ErrUnknownLeft = errors.New("unknown left value")

	// ErrUnknownRight is reported for a right value not in the pool.
	ErrUnknownRight = errors.New("unknown right value")

	// ErrRightValueTaken is reported when every copy of a right value is
	// already assigned to another left value.
	ErrRightValueTaken = errors.New("right value already assigned")
)
