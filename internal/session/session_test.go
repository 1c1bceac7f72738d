package session_test

import (
	"encoding/json"
	"testing"

	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUnit(kind domain.ExerciseKind, payload string) domain.LearningUnit {
	return domain.LearningUnit{
		ID:         "u-1",
		ResourceID: uuid.New(),
		Title:      "Unit",
		Status:     domain.UnitStatusTodo,
		Kind:       kind,
		Payload:    json.RawMessage(payload),
	}
}

const choicePayload = `{"questions":[
	{"question":"Which letter?","options":["A","B","C"],"correct":1,"explanation":"B comes second"},
	{"question":"Second?","options":["x","y"],"correct":0}
]}`

func intPtr(i int) *int { return &i }

func TestChoiceGrading(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		option    int
		correct   bool
		reference string
	}{
		{name: "correct option", option: 1, correct: true, reference: "B"},
		{name: "wrong option reveals reference", option: 0, correct: false, reference: "B"},
		{name: "another wrong option", option: 2, correct: false, reference: "B"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := session.Start(newUnit(domain.KindChoice, choicePayload), 1)
			s, tr := s.Select(tc.option)
			require.True(t, tr.Accepted)

			v := s.View()
			require.NotNil(t, v.Result)
			assert.True(t, v.Submitted)
			assert.True(t, v.Result.Graded)
			assert.Equal(t, tc.correct, v.Result.Correct)
			assert.Equal(t, tc.reference, v.Result.Reference)
			assert.Equal(t, "B comes second", v.Result.Explanation)
			assert.Equal(t, []string{"A", "B", "C"}, v.Options)
			assert.Equal(t, "Which letter?", v.Prompt)
		})
	}
}

func TestChoiceSubmitWithOption(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit(domain.KindChoice, choicePayload), 1)

	_, tr := s.Submit(session.Answer{})
	assert.ErrorIs(t, tr.Reason, session.ErrAnswerIncomplete)

	s, tr = s.Submit(session.Answer{Option: intPtr(1)})
	require.True(t, tr.Accepted)
	assert.True(t, s.View().Result.Correct)
}

func TestChoiceLocksAfterFirstSelection(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit(domain.KindChoice, choicePayload), 1)
	s, _ = s.Select(0)
	before := s.Results()

	same, tr := s.Select(0)
	assert.True(t, tr.Accepted)
	assert.Equal(t, before, same.Results())

	_, tr = s.Select(1)
	assert.False(t, tr.Accepted)
	assert.ErrorIs(t, tr.Reason, session.ErrItemLocked)

	_, tr = s.Select(3)
	assert.ErrorIs(t, tr.Reason, session.ErrInvalidOption)
}

func TestFillBlankScenario(t *testing.T) {
	t.Parallel()

	payload := `{"type":"fill_blank","sentence":"这里的风景真( )啊！","answer":"美","explanation":"形容风景"}`

	tests := []struct {
		name    string
		input   string
		correct bool
	}{
		{name: "exact", input: "美", correct: true},
		{name: "padded input is trimmed", input: " 美 ", correct: true},
		{name: "wrong character", input: "丑", correct: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := session.Start(newUnit(domain.KindFillBlank, payload), 1)
			assert.Equal(t, "这里的风景真______啊！", s.View().Prompt)

			s, tr := s.Submit(session.Answer{Text: tc.input})
			require.True(t, tr.Accepted)

			r := s.View().Result
			require.NotNil(t, r)
			assert.Equal(t, tc.correct, r.Correct)
			assert.Equal(t, "美", r.Reference)
			assert.Equal(t, "形容风景", r.Explanation)
			assert.Equal(t, tc.input, r.Response)
		})
	}
}

func TestTextAnswersRejectBlank(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit(domain.KindSpelling, `{"cards":[{"word":"碧绿","quiz":"碧_","answer":"绿"}]}`), 1)

	_, tr := s.Submit(session.Answer{Text: "   "})
	assert.ErrorIs(t, tr.Reason, session.ErrEmptyAnswer)

	s, tr = s.SetText("lv")
	require.True(t, tr.Accepted)
	v := s.View()
	assert.Equal(t, "lv", v.Input)
	assert.True(t, v.CanSubmit)
	assert.False(t, v.Submitted)
}

func TestSubmitFallsBackToTextDraft(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit(domain.KindFillBlank, `{"sentence":"真( )啊","answer":"美"}`), 1)
	s, _ = s.SetText("美")

	s, tr := s.Submit(session.Answer{})
	require.True(t, tr.Accepted)
	assert.True(t, s.View().Result.Correct)
	assert.Equal(t, "美", s.View().Result.Response)

	s, tr = s.Submit(session.Answer{Text: "丑"})
	require.True(t, tr.Accepted)
	assert.False(t, s.View().Result.Correct, "explicit text wins over the draft")
}

func TestCanSubmitClearsOnceSubmitted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		unit   domain.LearningUnit
		submit func(session.Session) session.Session
	}{
		{
			name: "choice",
			unit: newUnit(domain.KindChoice, `[{"question":"q","options":["A","B"],"correct":0}]`),
			submit: func(s session.Session) session.Session {
				s, _ = s.Select(0)
				return s
			},
		},
		{
			name: "spelling",
			unit: newUnit(domain.KindSpelling, `[{"answer":"绿"}]`),
			submit: func(s session.Session) session.Session {
				s, _ = s.Submit(session.Answer{Text: "绿"})
				return s
			},
		},
		{
			name: "fill_blank",
			unit: newUnit(domain.KindFillBlank, `{"sentence":"真( )啊","answer":"美"}`),
			submit: func(s session.Session) session.Session {
				s, _ = s.Submit(session.Answer{Text: "丑"})
				return s
			},
		},
		{
			name: "qa",
			unit: newUnit(domain.KindQA, `{"question":"why?","answer":"because"}`),
			submit: func(s session.Session) session.Session {
				s, _ = s.Submit(session.Answer{})
				return s
			},
		},
		{
			name: "matching",
			unit: newUnit(domain.KindMatching, `[{"left":"A","right":"X"}]`),
			submit: func(s session.Session) session.Session {
				s, _ = s.Submit(session.Answer{Assignments: map[string]string{"A": "X"}})
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := tt.submit(session.Start(tt.unit, 1))
			v := s.View()
			require.True(t, v.Submitted)
			assert.False(t, v.CanSubmit)
		})
	}
}

func TestCanSubmitReturnsWhenTextDraftChanges(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit(domain.KindFillBlank, `{"sentence":"真( )啊","answer":"美"}`), 1)
	s, _ = s.Submit(session.Answer{Text: "丑"})
	require.False(t, s.View().CanSubmit)

	s, tr := s.SetText("美")
	require.True(t, tr.Accepted)
	assert.True(t, s.View().CanSubmit, "a changed draft may be graded again")

	s, _ = s.Submit(session.Answer{})
	assert.True(t, s.View().Result.Correct)
	assert.False(t, s.View().CanSubmit)
}

func TestSpellingIsCaseSensitive(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit(domain.KindSpelling, `[{"word":"Apple","answer":"Apple"}]`), 1)
	s, _ = s.Submit(session.Answer{Text: "apple"})
	assert.False(t, s.View().Result.Correct)

	s, _ = s.Submit(session.Answer{Text: "Apple"})
	assert.True(t, s.View().Result.Correct, "resubmitting a changed answer grades it again")
}

func TestSubmitIsIdempotent(t *testing.T) {
	t.Parallel()

	units := map[string]domain.LearningUnit{
		"spelling":   newUnit(domain.KindSpelling, `[{"answer":"绿"}]`),
		"fill_blank": newUnit(domain.KindFillBlank, `[{"sentence":"( )","answer":"美"}]`),
		"qa":         newUnit(domain.KindQA, `[{"question":"Why?","answer":"Because"}]`),
		"imitation":  newUnit(domain.KindImitation, `[{"original":"像…一样","skeleton":"像A一样B"}]`),
	}

	for name, unit := range units {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			answer := session.Answer{Text: "美"}
			once, tr := session.Start(unit, 1).Submit(answer)
			require.True(t, tr.Accepted)
			twice, tr := once.Submit(answer)
			require.True(t, tr.Accepted)

			assert.Equal(t, once.Results(), twice.Results())
			assert.Equal(t, once.View(), twice.View())
		})
	}
}

func TestQAAndImitationRevealReference(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit(domain.KindQA, `{"question":"主题是什么?","answer":"热爱家乡"}`), 1)
	assert.True(t, s.View().CanSubmit, "an empty answer may be submitted")

	_, tr := s.Advance()
	assert.ErrorIs(t, tr.Reason, session.ErrSubmissionRejected)

	s, tr = s.Submit(session.Answer{})
	require.True(t, tr.Accepted)
	r := s.View().Result
	assert.False(t, r.Graded)
	assert.False(t, r.Correct)
	assert.Equal(t, "热爱家乡", r.Reference)

	s = session.Start(newUnit(domain.KindImitation, `{"original":"像…一样","skeleton":"像A一样B","tip":"比喻"}`), 1)
	assert.Equal(t, "比喻", s.View().Hint)
	s, _ = s.Submit(session.Answer{Text: "像花一样美"})
	r = s.View().Result
	assert.Equal(t, "像A一样B", r.Reference)
	assert.Equal(t, "比喻", r.Explanation)
}

func TestGenericItemsNeedNoSubmission(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit("mystery", `[{"title":"Note one","answer":"a"},{"title":"Note two"}]`), 1)
	v := s.View()
	assert.True(t, v.Ambiguous)
	assert.Equal(t, domain.KindGeneric, v.Kind)
	assert.Equal(t, "Note one", v.Prompt)
	assert.True(t, v.CanAdvance)

	s, tr := s.Advance()
	require.True(t, tr.Accepted)
	s, tr = s.Advance()
	require.True(t, tr.Accepted)
	assert.True(t, tr.Completed)
	assert.Equal(t, session.StateCompleted, s.State())
}

func TestMalformedItemFallsBackToGeneric(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit(domain.KindChoice, `[{"question":"No options"},{"question":"ok","options":["a","b"],"correct":1}]`), 1)
	v := s.View()
	assert.True(t, v.Ambiguous)
	assert.Equal(t, domain.KindGeneric, v.Kind)

	_, tr := s.Select(0)
	assert.ErrorIs(t, tr.Reason, session.ErrWrongKind)

	s, tr = s.Advance()
	require.True(t, tr.Accepted)
	assert.Equal(t, domain.KindChoice, s.View().Kind)
}

func TestAdvanceRequiresSubmission(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit(domain.KindChoice, choicePayload), 1)
	assert.False(t, s.View().CanAdvance)

	same, tr := s.Advance()
	assert.False(t, tr.Accepted)
	assert.ErrorIs(t, tr.Reason, session.ErrSubmissionRejected)
	assert.Equal(t, 0, same.Index())

	s, _ = s.Select(2)
	s, tr = s.Advance()
	require.True(t, tr.Accepted)
	assert.False(t, tr.Completed)
	assert.Equal(t, 1, s.Index())

	v := s.View()
	assert.False(t, v.Submitted, "transient state resets on advance")
	assert.Nil(t, v.Selected)
	assert.Nil(t, v.Result)
	assert.True(t, v.CanRetreat)
}

func TestTerminalMonotonicity(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit(domain.KindChoice, choicePayload), 1)
	s, _ = s.Select(1)
	s, _ = s.Advance()
	s, _ = s.Select(1)

	done, tr := s.Advance()
	require.True(t, tr.Accepted)
	assert.True(t, tr.Completed)
	require.NotNil(t, tr.StatusChange)
	assert.Equal(t, domain.UnitStatusTodo, tr.StatusChange.From)
	assert.Equal(t, domain.UnitStatusDone, tr.StatusChange.To)
	assert.Equal(t, session.Summary{Items: 2, Attempted: 2, Graded: 2, Correct: 1}, tr.StatusChange.Summary)
	assert.Equal(t, domain.UnitStatusDone, done.Unit().Status)
	assert.Equal(t, domain.UnitStatusTodo, s.Unit().Status, "previous value is untouched")

	again, tr := done.Advance()
	assert.False(t, tr.Accepted)
	assert.ErrorIs(t, tr.Reason, session.ErrNotActive)
	assert.Nil(t, tr.StatusChange)
	assert.Equal(t, done.View(), again.View())

	v := done.View()
	assert.Equal(t, session.StateCompleted, v.State)
	require.NotNil(t, v.Summary)
	assert.Equal(t, 1, v.Summary.Correct)
}

func TestCompletingDoneUnitReportsNoStatusChange(t *testing.T) {
	t.Parallel()

	unit := newUnit(domain.KindQA, `{"question":"q","answer":"a"}`)
	unit.Status = domain.UnitStatusDone

	s := session.Start(unit, 1)
	s, _ = s.Submit(session.Answer{Text: "a"})
	s, tr := s.Advance()

	assert.True(t, tr.Completed)
	assert.Nil(t, tr.StatusChange)
	assert.Equal(t, domain.UnitStatusDone, s.Unit().Status)
}

func TestUnitWithoutItemsCompletesOnAdvance(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit("", ""), 1)
	assert.Equal(t, 0, s.ItemCount())

	_, tr := s.Submit(session.Answer{Text: "x"})
	assert.ErrorIs(t, tr.Reason, session.ErrNoItem)

	s, tr = s.Advance()
	assert.True(t, tr.Completed)
	require.NotNil(t, tr.StatusChange)
	assert.Equal(t, session.StateCompleted, s.State())
}

func TestRetreat(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit(domain.KindSpelling, `[{"answer":"一"},{"answer":"二"}]`), 1)

	_, tr := s.Retreat()
	assert.ErrorIs(t, tr.Reason, session.ErrNoPreviousItem)

	s, _ = s.Submit(session.Answer{Text: "一"})
	s, _ = s.Advance()
	s, _ = s.SetText("draft")

	s, tr = s.Retreat()
	require.True(t, tr.Accepted)
	v := s.View()
	assert.Equal(t, 0, v.Index)
	assert.False(t, v.Submitted, "revisited items start clean")
	assert.Empty(t, v.Input)
	assert.Nil(t, v.Result)
	assert.Len(t, s.Results(), 1, "recorded results survive retreat")
}

func TestCloseDiscardsSession(t *testing.T) {
	t.Parallel()

	unit := newUnit(domain.KindChoice, choicePayload)
	s := session.Start(unit, 1)
	s, _ = s.Select(1)

	closed, tr := s.Close()
	assert.True(t, tr.Accepted)
	assert.Equal(t, session.StateIdle, closed.State())
	assert.Equal(t, session.View{State: session.StateIdle}, closed.View())
	assert.Equal(t, domain.UnitStatusTodo, s.Unit().Status)

	for name, tr := range map[string]session.Transition{
		"advance": second(closed.Advance()),
		"retreat": second(closed.Retreat()),
		"select":  second(closed.Select(0)),
		"submit":  second(closed.Submit(session.Answer{})),
	} {
		assert.ErrorIs(t, tr.Reason, session.ErrNotActive, name)
	}
}

func second(_ session.Session, t session.Transition) session.Transition { return t }

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	t.Parallel()

	s := session.Start(newUnit(domain.KindChoice, choicePayload), 1)
	before := s.View()

	next, _ := s.Select(1)
	_, _ = next.Advance()

	assert.Equal(t, before, s.View())
	assert.Empty(t, s.Results())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", session.StateIdle.String())
	assert.Equal(t, "active", session.StateActive.String())
	assert.Equal(t, "completed", session.StateCompleted.String())
	assert.Equal(t, "unknown", session.State(9).String())

	b, err := json.Marshal(session.View{State: session.StateActive})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"state":"active"`)
}
