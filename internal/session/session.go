package session

import (
	"maps"
	"strings"

	"github.com/phrazzld/studyloop/internal/domain"
)

// State is the lifecycle state of a Session.
type State int

// Session states. The zero Session is Idle.
const (
	StateIdle State = iota
	StateActive
	StateCompleted
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Answer is a submission for the current item. Only the part matching the
// item kind is read: Option for choice, Text for spelling, fill_blank, qa and
// imitation, Assignments for matching. A nil Option, empty Text or nil
// Assignments falls back to the draft built up with Select, SetText or Assign.
type Answer struct {
	Option      *int              `json:"option,omitempty"`
	Text        string            `json:"text,omitempty"`
	Assignments map[string]string `json:"assignments,omitempty"`
}

// StatusChange describes the unit status transition made on completion.
type StatusChange struct {
	Unit    domain.LearningUnit
	From    domain.UnitStatus
	To      domain.UnitStatus
	Summary Summary
}

// Transition reports the outcome of one action.
type Transition struct {
	// Accepted is false when the action was rejected; Reason says why.
	Accepted bool
	Reason   error
	// Completed is set by the Advance that finished the unit.
	Completed bool
	// StatusChange is set when completion moved the unit from todo to done.
	StatusChange *StatusChange
}

func accepted() Transition { return Transition{Accepted: true} }

func rejected(reason error) Transition { return Transition{Reason: reason} }

// Session is the interactive state of playing one unit. Methods never modify
// the receiver.
type Session struct {
	state State
	unit  domain.LearningUnit
	items domain.ItemSet
	index int
	seed  int64

	selected    *int
	input       string
	assignments map[string]string
	submitted   bool

	results map[int]Result
}

// Start opens unit and returns an Active session positioned at the first
// item. seed fixes the matching pool order for this open.
func Start(unit domain.LearningUnit, seed int64) Session {
	return Session{
		state: StateActive,
		unit:  unit,
		items: domain.DeriveItems(unit),
		seed:  seed,
	}
}

// State returns the lifecycle state.
func (s Session) State() State { return s.state }

// Unit returns the unit being played, with its status as of the last
// transition.
func (s Session) Unit() domain.LearningUnit { return s.unit }

// Index returns the 0-based position of the current item.
func (s Session) Index() int { return s.index }

// ItemCount returns the number of items in the unit.
func (s Session) ItemCount() int { return s.items.Len() }

// Results returns a copy of the recorded result per item index.
func (s Session) Results() map[int]Result {
	return maps.Clone(s.results)
}

func (s Session) current() domain.Item {
	return s.items.At(s.index)
}

// requiresSubmission reports whether the current item must be submitted
// before advancing.
func (s Session) requiresSubmission() bool {
	item := s.current()
	return item != nil && item.Kind().RequiresSubmission()
}

func (s Session) clearTransient() Session {
	s.selected = nil
	s.input = ""
	s.assignments = nil
	s.submitted = false
	return s
}

func (s Session) record(result Result) Session {
	results := maps.Clone(s.results)
	if results == nil {
		results = make(map[int]Result)
	}
	result.Index = s.index
	results[s.index] = result
	s.results = results
	s.submitted = true
	return s
}

func (s Session) guard() error {
	if s.state != StateActive {
		return ErrNotActive
	}
	if s.current() == nil {
		return ErrNoItem
	}
	return nil
}

// Select chooses an option of a choice item. Selecting submits: the first
// selection is graded and locks the item. Selecting the same option again is
// accepted without effect.
func (s Session) Select(option int) (Session, Transition) {
	if err := s.guard(); err != nil {
		return s, rejected(err)
	}
	item, ok := s.current().(domain.ChoiceItem)
	if !ok {
		return s, rejected(ErrWrongKind)
	}
	if option < 0 || option >= len(item.Options) {
		return s, rejected(ErrInvalidOption)
	}
	if s.submitted {
		if s.selected != nil && *s.selected == option {
			return s, accepted()
		}
		return s, rejected(ErrItemLocked)
	}

	s.selected = &option
	return s.record(gradeChoice(item, option)), accepted()
}

// SetText updates the free-text input of a spelling, fill_blank, qa or
// imitation item without submitting it.
func (s Session) SetText(text string) (Session, Transition) {
	if err := s.guard(); err != nil {
		return s, rejected(err)
	}
	if !takesText(s.current()) {
		return s, rejected(ErrWrongKind)
	}
	s.input = text
	return s, accepted()
}

func validText(text string) bool {
	return strings.TrimSpace(text) != ""
}

func takesText(item domain.Item) bool {
	switch item.(type) {
	case domain.SpellingItem, domain.FillBlankItem, domain.QAItem, domain.ImitationItem:
		return true
	default:
		return false
	}
}

// Submit grades answer against the current item and marks it submitted. The
// index does not move. Submitting an unchanged answer again leaves the
// recorded result unchanged.
func (s Session) Submit(answer Answer) (Session, Transition) {
	if err := s.guard(); err != nil {
		return s, rejected(err)
	}

	text := answer.Text
	if text == "" {
		text = s.input
	}

	switch item := s.current().(type) {
	case domain.ChoiceItem:
		option := answer.Option
		if option == nil {
			option = s.selected
		}
		if option == nil {
			return s, rejected(ErrAnswerIncomplete)
		}
		return s.Select(*option)

	case domain.SpellingItem:
		if !validText(text) {
			return s, rejected(ErrEmptyAnswer)
		}
		s.input = text
		return s.record(gradeText(domain.KindSpelling, text, item.Answer, item.Meaning)), accepted()

	case domain.FillBlankItem:
		if !validText(text) {
			return s, rejected(ErrEmptyAnswer)
		}
		s.input = text
		return s.record(gradeText(domain.KindFillBlank, text, item.Answer, item.Explanation)), accepted()

	case domain.MatchingItem:
		return s.submitMatching(item, answer.Assignments)

	case domain.QAItem:
		s.input = text
		return s.record(reveal(domain.KindQA, text, item.Answer, "")), accepted()

	case domain.ImitationItem:
		s.input = text
		return s.record(reveal(domain.KindImitation, text, item.Skeleton, item.Tip)), accepted()

	case domain.GenericItem:
		return s.record(reveal(domain.KindGeneric, "", item.Answer, item.Explanation)), accepted()

	default:
		return s, rejected(ErrWrongKind)
	}
}

// Advance moves to the next item. Advancing from the last item completes the
// session and marks the unit done; the transition then carries a
// StatusChange if the unit was still todo.
func (s Session) Advance() (Session, Transition) {
	if s.state != StateActive {
		return s, rejected(ErrNotActive)
	}
	if s.requiresSubmission() && !s.submitted {
		return s, rejected(ErrSubmissionRejected)
	}

	if s.index < s.items.Len()-1 {
		s.index++
		return s.clearTransient(), accepted()
	}

	return s.complete()
}

func (s Session) complete() (Session, Transition) {
	s.state = StateCompleted
	t := Transition{Accepted: true, Completed: true}

	from := s.unit.Status
	if from == domain.UnitStatusDone {
		return s, t
	}

	done, err := s.unit.WithStatus(domain.UnitStatusDone)
	if err != nil {
		return s, t
	}
	s.unit = done
	t.StatusChange = &StatusChange{
		Unit:    done,
		From:    from,
		To:      domain.UnitStatusDone,
		Summary: s.Summary(),
	}
	return s, t
}

// Retreat moves back one item and clears its answer state.
func (s Session) Retreat() (Session, Transition) {
	if s.state != StateActive {
		return s, rejected(ErrNotActive)
	}
	if s.index == 0 {
		return s, rejected(ErrNoPreviousItem)
	}
	s.index--
	return s.clearTransient(), accepted()
}

// Close discards the session. The unit status is left as it is.
func (s Session) Close() (Session, Transition) {
	return Session{}, accepted()
}

// Summary counts the recorded results.
type Summary struct {
	Items     int `json:"items"`
	Attempted int `json:"attempted"`
	Graded    int `json:"graded"`
	Correct   int `json:"correct"`
}

// Summary tallies the results recorded so far.
func (s Session) Summary() Summary {
	sum := Summary{Items: s.items.Len(), Attempted: len(s.results)}
	for _, r := range s.results {
		if r.Graded {
			sum.Graded++
			if r.Correct {
				sum.Correct++
			}
		}
	}
	return sum
}
