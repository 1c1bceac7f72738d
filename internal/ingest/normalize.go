package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/domain"
)

var blockCategories = map[string]domain.BlockCategory{
	"concept":          domain.BlockConcept,
	"definition":       domain.BlockDefinition,
	"example":          domain.BlockExample,
	"exercise":         domain.BlockExercise,
	"question":         domain.BlockQuestion,
	"explanation":      domain.BlockExplanation,
	"explanation_clip": domain.BlockExplanationClip,
	"vocabulary":       domain.BlockVocabulary,
	"other":            domain.BlockOther,
}

// NormalizeCategory maps a raw category string onto the closed set. Unknown
// values become question for exercise material and other for everything else.
func NormalizeCategory(raw string, material domain.MaterialCategory) domain.BlockCategory {
	if c, ok := blockCategories[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return c
	}
	if material == domain.MaterialExercise {
		return domain.BlockQuestion
	}
	return domain.BlockOther
}

// Normalize converts one recovered value into a ContentBlock owned by
// resource. ordinal is the 1-based position of raw in its batch and only
// feeds the default title. Values that are not JSON objects are treated as
// empty objects.
func Normalize(raw any, resource *domain.Resource, ordinal int) domain.ContentBlock {
	obj, _ := raw.(map[string]any)

	var (
		resourceID uuid.UUID
		material   domain.MaterialCategory
	)
	if resource != nil {
		resourceID = resource.ID
		material = resource.Category
	}

	categoryRaw, _ := firstString(obj, "type", "category")

	b := domain.ContentBlock{
		ResourceID: resourceID,
		Category:   NormalizeCategory(categoryRaw, material),
	}

	if id, ok := firstString(obj, "id"); ok {
		b.ID = id
	} else {
		b.ID = uuid.NewString()
	}

	if title, ok := firstString(obj, "title"); ok {
		b.Title = title
	} else {
		b.Title = fmt.Sprintf("Block %d", ordinal)
	}

	b.Summary = optString(obj, "summary")
	b.Topic = optString(obj, "topic")

	if d, ok := number(obj, "difficulty"); ok {
		clamped := int(math.Max(domain.MinDifficulty, math.Min(domain.MaxDifficulty, math.Round(d))))
		b.Difficulty = &clamped
	}

	b.PageStart = optInt(obj, "pageStart", "page_start")
	b.PageEnd = optInt(obj, "pageEnd", "page_end")
	b.TimeStartSec = optFloat(obj, "timeStartSec", "time_start_sec")
	b.TimeEndSec = optFloat(obj, "timeEndSec", "time_end_sec")

	if arr, ok := obj["tags"].([]any); ok {
		tags := make([]string, 0, len(arr))
		for _, t := range arr {
			tags = append(tags, stringify(t))
		}
		b.Tags = tags
	}

	return b
}

// NormalizeAll normalizes every value and attaches the given screenshot
// locators to each block. Duplicate block ids are re-stamped with a numeric
// suffix so that ids stay unique within the batch.
func NormalizeAll(raws []any, resource *domain.Resource, screenshots []string) []domain.ContentBlock {
	blocks := make([]domain.ContentBlock, 0, len(raws))
	for i, raw := range raws {
		b := Normalize(raw, resource, i+1)
		if len(screenshots) > 0 {
			b.Screenshots = append([]string(nil), screenshots...)
		}
		blocks = append(blocks, b)
	}
	uniqueBlockIDs(blocks, make(map[string]bool))
	return blocks
}

// uniqueBlockIDs renames blocks whose id is already in seen, recording every
// id it keeps. It returns the renames applied, keyed by position.
func uniqueBlockIDs(blocks []domain.ContentBlock, seen map[string]bool) map[int]string {
	renamed := make(map[int]string)
	for i := range blocks {
		id := uniqueID(blocks[i].ID, seen)
		if id != blocks[i].ID {
			renamed[i] = blocks[i].ID
			blocks[i].ID = id
		}
	}
	return renamed
}

func uniqueID(id string, seen map[string]bool) string {
	candidate := id
	for n := 2; seen[candidate]; n++ {
		candidate = id + "-" + strconv.Itoa(n)
	}
	seen[candidate] = true
	return candidate
}

// firstString returns the first key holding a non-empty scalar, stringified.
func firstString(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if v != "" {
				return v, true
			}
		case float64, bool:
			return stringify(v), true
		}
	}
	return "", false
}

func optString(obj map[string]any, keys ...string) *string {
	if s, ok := firstString(obj, keys...); ok {
		return &s
	}
	return nil
}

func number(obj map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := obj[k].(float64); ok {
			return f, true
		}
	}
	return 0, false
}

func optInt(obj map[string]any, keys ...string) *int {
	if f, ok := number(obj, keys...); ok {
		n := int(f)
		return &n
	}
	return nil
}

func optFloat(obj map[string]any, keys ...string) *float64 {
	if f, ok := number(obj, keys...); ok {
		return &f
	}
	return nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
