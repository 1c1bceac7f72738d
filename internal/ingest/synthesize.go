package ingest

import (
	"encoding/json"
	"strings"

	"github.com/phrazzld/studyloop/internal/domain"
)

// Synthesize builds one LearningUnit per block from the recovered intent
// objects. Intents are correlated with blocks first by exact trimmed title
// and then positionally among those left over. A block without an intent
// still yields a unit, with empty kind and payload.
//
// Every unit's title is the block's title regardless of what the intent
// says, and every unit starts as todo.
func Synthesize(blocks []domain.ContentBlock, intents []any) []domain.LearningUnit {
	objs := make([]map[string]any, len(intents))
	for i, in := range intents {
		objs[i], _ = in.(map[string]any)
	}

	assigned := correlate(blocks, objs)
	seen := make(map[string]bool, len(blocks))
	units := make([]domain.LearningUnit, len(blocks))

	for i, block := range blocks {
		var intent map[string]any
		if idx := assigned[i]; idx >= 0 {
			intent = objs[idx]
		}
		units[i] = buildUnit(block, intent, seen)
	}
	return units
}

// correlate returns, for each block, the index of its intent or -1.
func correlate(blocks []domain.ContentBlock, intents []map[string]any) []int {
	assigned := make([]int, len(blocks))
	used := make([]bool, len(intents))

	byTitle := make(map[string][]int)
	for j, in := range intents {
		if title, ok := firstString(in, "title"); ok {
			key := strings.TrimSpace(title)
			byTitle[key] = append(byTitle[key], j)
		}
	}

	for i, b := range blocks {
		assigned[i] = -1
		for _, j := range byTitle[strings.TrimSpace(b.Title)] {
			if !used[j] {
				assigned[i] = j
				used[j] = true
				break
			}
		}
	}

	next := 0
	for i := range blocks {
		if assigned[i] >= 0 {
			continue
		}
		for next < len(intents) && used[next] {
			next++
		}
		if next == len(intents) {
			break
		}
		assigned[i] = next
		used[next] = true
	}
	return assigned
}

func buildUnit(block domain.ContentBlock, intent map[string]any, seen map[string]bool) domain.LearningUnit {
	u := domain.LearningUnit{
		ResourceID:     block.ResourceID,
		Title:          block.Title,
		Status:         domain.UnitStatusTodo,
		SourceBlockIDs: []string{block.ID},
	}
	if block.PageStart != nil {
		page := *block.PageStart
		u.PageNumber = &page
	}

	payload, kind := intentPayload(intent)
	u.Payload = payload

	intentKind, _ := firstString(intent, "kind")
	intentKind = strings.TrimSpace(intentKind)
	goalRaw, _ := firstString(intent, "goal")

	switch {
	case kind != "":
		u.Kind = domain.ExerciseKind(kind)
	case intentKind != "" && !domain.LearningGoal(strings.ToLower(intentKind)).Known():
		u.Kind = domain.ExerciseKind(intentKind)
	}

	for _, g := range []string{goalRaw, intentKind} {
		if goal := domain.LearningGoal(strings.ToLower(strings.TrimSpace(g))); goal.Known() {
			u.Goal = goal
			break
		}
	}

	id, _ := firstString(intent, "id")
	if id == "" || seen[id] {
		id = "u-" + block.ID
	}
	u.ID = uniqueID(id, seen)

	return u
}

// intentPayload returns the intent's payload re-encoded as JSON, and the
// payload's "type" discriminant if it has one. Scalars are dropped.
func intentPayload(intent map[string]any) (json.RawMessage, string) {
	switch p := intent["payload"].(type) {
	case map[string]any:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, ""
		}
		kind, _ := firstString(p, "type")
		return raw, strings.TrimSpace(kind)
	case []any:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, ""
		}
		return raw, ""
	default:
		return nil, ""
	}
}
