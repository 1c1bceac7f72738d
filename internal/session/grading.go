package session

import (
	"strings"

	"github.com/phrazzld/studyloop/internal/domain"
)

// PairResult is the outcome for one left value of a matching board.
type PairResult struct {
	Left     string `json:"left"`
	Assigned string `json:"assigned"`
	Expected string `json:"expected"`
	Correct  bool   `json:"correct"`
}

// Result is the graded outcome of one submission.
type Result struct {
	Index int                 `json:"index"`
	Kind  domain.ExerciseKind `json:"kind"`
	// Graded is false for kinds without automatic correctness.
	Graded  bool `json:"graded"`
	Correct bool `json:"correct"`
	// Pairs and CorrectPairs are set for matching items only.
	Pairs        []PairResult `json:"pairs,omitempty"`
	CorrectPairs int          `json:"correct_pairs,omitempty"`
	Reference    string       `json:"reference,omitempty"`
	Explanation  string       `json:"explanation,omitempty"`
	Response     string       `json:"response,omitempty"`
}

func gradeChoice(item domain.ChoiceItem, option int) Result {
	return Result{
		Kind:        domain.KindChoice,
		Graded:      true,
		Correct:     option == item.Correct,
		Reference:   item.CorrectOption(),
		Explanation: item.Explanation,
		Response:    item.Options[option],
	}
}

// gradeText compares trimmed strings, case-sensitively.
func gradeText(kind domain.ExerciseKind, response, reference, explanation string) Result {
	return Result{
		Kind:        kind,
		Graded:      true,
		Correct:     strings.TrimSpace(response) == strings.TrimSpace(reference),
		Reference:   reference,
		Explanation: explanation,
		Response:    response,
	}
}

func reveal(kind domain.ExerciseKind, response, reference, explanation string) Result {
	return Result{
		Kind:        kind,
		Reference:   reference,
		Explanation: explanation,
		Response:    response,
	}
}

// gradeMatching grades each pair independently, in canonical left order.
// The item counts as correct only when every pair is.
func gradeMatching(item domain.MatchingItem, assignments map[string]string) Result {
	r := Result{Kind: domain.KindMatching, Graded: true}
	for _, p := range item.Pairs {
		assigned := assignments[p.Left]
		ok := assigned == p.Right
		if ok {
			r.CorrectPairs++
		}
		r.Pairs = append(r.Pairs, PairResult{
			Left:     p.Left,
			Assigned: assigned,
			Expected: p.Right,
			Correct:  ok,
		})
	}
	r.Correct = r.CorrectPairs == len(item.Pairs)
	return r
}
