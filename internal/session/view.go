package session

import (
	"maps"

	"github.com/phrazzld/studyloop/internal/domain"
)

// View is the read-only projection of a Session for presentation.
type View struct {
	State     State               `json:"state"`
	UnitID    string              `json:"unit_id,omitempty"`
	Title     string              `json:"title,omitempty"`
	Status    domain.UnitStatus   `json:"status,omitempty"`
	Index     int                 `json:"index"`
	ItemCount int                 `json:"item_count"`
	Kind      domain.ExerciseKind `json:"kind,omitempty"`
	Item      domain.Item         `json:"-"`
	Prompt    string              `json:"prompt,omitempty"`
	Hint      string              `json:"hint,omitempty"`

	// Options is set for choice items.
	Options []string `json:"options,omitempty"`
	// Lefts and Pool are set for matching items.
	Lefts []string `json:"lefts,omitempty"`
	Pool  []string `json:"pool,omitempty"`

	Selected    *int              `json:"selected,omitempty"`
	Input       string            `json:"input,omitempty"`
	Assignments map[string]string `json:"assignments,omitempty"`
	Submitted   bool              `json:"submitted"`
	Result      *Result           `json:"result,omitempty"`

	// CanSubmit is set when a submission would record something new.
	CanSubmit  bool `json:"can_submit"`
	CanAdvance bool `json:"can_advance"`
	CanRetreat bool `json:"can_retreat"`
	// Ambiguous is set when the unit kind was unrecognized or some item was
	// malformed and is shown as generic.
	Ambiguous bool `json:"ambiguous"`

	// Summary is set once the session is completed.
	Summary *Summary `json:"summary,omitempty"`
}

// View projects the session for presentation.
func (s Session) View() View {
	if s.state == StateIdle {
		return View{State: StateIdle}
	}

	v := View{
		State:     s.state,
		UnitID:    s.unit.ID,
		Title:     s.unit.Title,
		Status:    s.unit.Status,
		Index:     s.index,
		ItemCount: s.items.Len(),
		Ambiguous: s.items.Ambiguous,
	}

	if s.state == StateCompleted {
		sum := s.Summary()
		v.Summary = &sum
		return v
	}

	v.CanAdvance = !s.requiresSubmission() || s.submitted
	v.CanRetreat = s.index > 0

	item := s.current()
	if item == nil {
		return v
	}

	v.Kind = item.Kind()
	v.Item = item
	v.Submitted = s.submitted
	v.Input = s.input
	v.Assignments = maps.Clone(s.assignments)
	if s.selected != nil {
		sel := *s.selected
		v.Selected = &sel
	}
	if s.submitted {
		if r, ok := s.results[s.index]; ok {
			v.Result = &r
		}
	}

	switch it := item.(type) {
	case domain.ChoiceItem:
		v.Prompt = it.Question
		v.Options = append([]string(nil), it.Options...)
		v.CanSubmit = !s.submitted
	case domain.SpellingItem:
		v.Prompt = it.Quiz
		if v.Prompt == "" {
			v.Prompt = it.Word
		}
		v.Hint = it.Pinyin
		v.CanSubmit = validText(s.input) && s.draftChanged()
	case domain.FillBlankItem:
		v.Prompt = it.DisplaySentence()
		v.CanSubmit = validText(s.input) && s.draftChanged()
	case domain.MatchingItem:
		v.Lefts = it.Lefts()
		v.Pool = Pool(it, s.seed, s.index)
		v.CanSubmit = !s.submitted && validBoard(it, s.assignments) == nil
	case domain.QAItem:
		v.Prompt = it.Question
		v.CanSubmit = s.draftChanged()
	case domain.ImitationItem:
		v.Prompt = it.Original
		v.Hint = it.Tip
		v.CanSubmit = s.draftChanged()
	case domain.GenericItem:
		v.Prompt = it.Title
		v.CanSubmit = !s.submitted
	}
	return v
}

// draftChanged reports whether submitting the text draft would record
// something new: the item is unsubmitted or the draft differs from the
// recorded response.
func (s Session) draftChanged() bool {
	if !s.submitted {
		return true
	}
	r, ok := s.results[s.index]
	return !ok || r.Response != s.input
}
