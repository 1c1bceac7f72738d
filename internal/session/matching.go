package session

import (
	"maps"
	"math/rand"

	"github.com/phrazzld/studyloop/internal/domain"
)

// Pool returns the right column of item shuffled for position index. The
// order depends only on seed and index, so it is stable for one open of the
// unit across submissions, advances and retreats.
func Pool(item domain.MatchingItem, seed int64, index int) []string {
	pool := item.Rights()
	rng := rand.New(rand.NewSource(seed + int64(index)))
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool
}

// capacity counts how many times each right value appears in the pool.
// Duplicate right values may each be assigned once per occurrence.
func capacity(item domain.MatchingItem) map[string]int {
	c := make(map[string]int, len(item.Pairs))
	for _, p := range item.Pairs {
		c[p.Right]++
	}
	return c
}

// checkAssignment validates assigning right to left given the other
// assignments on the board.
func checkAssignment(item domain.MatchingItem, assignments map[string]string, left, right string) error {
	if _, ok := item.RightFor(left); !ok {
		return ErrUnknownLeft
	}
	limit, ok := capacity(item)[right]
	if !ok {
		return ErrUnknownRight
	}
	used := 0
	for l, r := range assignments {
		if l != left && r == right {
			used++
		}
	}
	if used >= limit {
		return ErrRightValueTaken
	}
	return nil
}

// validBoard checks that every left value is assigned and that no right
// value is used more often than it appears in the pool.
func validBoard(item domain.MatchingItem, assignments map[string]string) error {
	for _, p := range item.Pairs {
		if _, ok := assignments[p.Left]; !ok {
			return ErrAnswerIncomplete
		}
	}
	used := make(map[string]int, len(assignments))
	limits := capacity(item)
	for left, right := range assignments {
		if _, ok := item.RightFor(left); !ok {
			return ErrUnknownLeft
		}
		limit, ok := limits[right]
		if !ok {
			return ErrUnknownRight
		}
		used[right]++
		if used[right] > limit {
			return ErrRightValueTaken
		}
	}
	return nil
}

// Assign puts right next to left on the current matching board. An existing
// assignment of left is overwritten.
func (s Session) Assign(left, right string) (Session, Transition) {
	if err := s.guard(); err != nil {
		return s, rejected(err)
	}
	item, ok := s.current().(domain.MatchingItem)
	if !ok {
		return s, rejected(ErrWrongKind)
	}
	if s.submitted {
		return s, rejected(ErrItemLocked)
	}
	if err := checkAssignment(item, s.assignments, left, right); err != nil {
		return s, rejected(err)
	}

	assignments := maps.Clone(s.assignments)
	if assignments == nil {
		assignments = make(map[string]string, len(item.Pairs))
	}
	assignments[left] = right
	s.assignments = assignments
	return s, accepted()
}

// Unassign clears the assignment of left. Clearing an unassigned left value
// is accepted without effect.
func (s Session) Unassign(left string) (Session, Transition) {
	if err := s.guard(); err != nil {
		return s, rejected(err)
	}
	item, ok := s.current().(domain.MatchingItem)
	if !ok {
		return s, rejected(ErrWrongKind)
	}
	if s.submitted {
		return s, rejected(ErrItemLocked)
	}
	if _, ok := item.RightFor(left); !ok {
		return s, rejected(ErrUnknownLeft)
	}
	if _, ok := s.assignments[left]; !ok {
		return s, accepted()
	}

	assignments := maps.Clone(s.assignments)
	delete(assignments, left)
	s.assignments = assignments
	return s, accepted()
}

// submitMatching grades the board. A non-nil proposed map replaces the
// board built with Assign. Once submitted the board is locked; submitting
// the same board again is accepted without effect.
func (s Session) submitMatching(item domain.MatchingItem, proposed map[string]string) (Session, Transition) {
	board := s.assignments
	if proposed != nil {
		board = proposed
	}

	if s.submitted {
		if maps.Equal(board, s.assignments) {
			return s, accepted()
		}
		return s, rejected(ErrItemLocked)
	}
	if err := validBoard(item, board); err != nil {
		return s, rejected(err)
	}

	s.assignments = maps.Clone(board)
	return s.record(gradeMatching(item, s.assignments)), accepted()
}
