package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Item is one gradable step of a LearningUnit. The concrete type is chosen
// by the unit's resolved ExerciseKind.
type Item interface {
	Kind() ExerciseKind
}

// ChoiceItem is a single-answer multiple choice question.
type ChoiceItem struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
}

// Kind implements Item.
func (ChoiceItem) Kind() ExerciseKind { return KindChoice }

// CorrectOption returns the text of the correct option.
func (c ChoiceItem) CorrectOption() string {
	if c.Correct < 0 || c.Correct >= len(c.Options) {
		return ""
	}
	return c.Options[c.Correct]
}

// SpellingItem asks for the missing characters of a word.
type SpellingItem struct {
	Word    string `json:"word,omitempty"`
	Quiz    string `json:"quiz,omitempty"`
	Answer  string `json:"answer"`
	Pinyin  string `json:"pinyin,omitempty"`
	Meaning string `json:"meaning,omitempty"`
}

// Kind implements Item.
func (SpellingItem) Kind() ExerciseKind { return KindSpelling }

// FillBlankItem is a sentence with one parenthesized gap.
type FillBlankItem struct {
	Sentence    string `json:"sentence"`
	Answer      string `json:"answer"`
	Explanation string `json:"explanation,omitempty"`
}

// Kind implements Item.
func (FillBlankItem) Kind() ExerciseKind { return KindFillBlank }

var blankPattern = regexp.MustCompile(`[(（][^(（)）]*?[)）]`)

// BlankPlaceholder replaces every parenthesized gap in a fill-blank sentence.
const BlankPlaceholder = "______"

// DisplaySentence returns the sentence with each ( ) or （ ） gap replaced
// by BlankPlaceholder.
func (f FillBlankItem) DisplaySentence() string {
	return blankPattern.ReplaceAllString(f.Sentence, BlankPlaceholder)
}

// MatchPair is one canonical left/right association.
type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// MatchingItem is a whole matching board. Left values are unique.
type MatchingItem struct {
	Pairs []MatchPair `json:"pairs"`
}

// Kind implements Item.
func (MatchingItem) Kind() ExerciseKind { return KindMatching }

// Lefts returns the left column in canonical order.
func (m MatchingItem) Lefts() []string {
	out := make([]string, len(m.Pairs))
	for i, p := range m.Pairs {
		out[i] = p.Left
	}
	return out
}

// Rights returns the right column in canonical order.
func (m MatchingItem) Rights() []string {
	out := make([]string, len(m.Pairs))
	for i, p := range m.Pairs {
		out[i] = p.Right
	}
	return out
}

// RightFor returns the canonical right value for left.
func (m MatchingItem) RightFor(left string) (string, bool) {
	for _, p := range m.Pairs {
		if p.Left == left {
			return p.Right, true
		}
	}
	return "", false
}

// QAItem is an open question with a reference answer.
type QAItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// Kind implements Item.
func (QAItem) Kind() ExerciseKind { return KindQA }

// ImitationItem asks the learner to write a sentence modelled on Original.
type ImitationItem struct {
	Original string `json:"original"`
	Skeleton string `json:"skeleton,omitempty"`
	Tip      string `json:"tip,omitempty"`
}

// Kind implements Item.
func (ImitationItem) Kind() ExerciseKind { return KindImitation }

// GenericItem is the informational fallback for unknown or malformed items.
type GenericItem struct {
	Title       string `json:"title"`
	Answer      string `json:"answer,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// Kind implements Item.
func (GenericItem) Kind() ExerciseKind { return KindGeneric }

// ItemSet is the derived, read-only item list of a unit.
type ItemSet struct {
	Kind  ExerciseKind
	Items []Item
	// Ambiguous is set when the kind was unrecognized or at least one item
	// could not be decoded for its kind and fell back to GenericItem.
	Ambiguous bool
}

// Len returns the number of items.
func (s ItemSet) Len() int { return len(s.Items) }

// At returns the item at index i, or nil when out of range.
func (s ItemSet) At(i int) Item {
	if i < 0 || i >= len(s.Items) {
		return nil
	}
	return s.Items[i]
}

// arrayFields are probed in order when the payload is an object.
var arrayFields = []string{"questions", "cards", "items", "list", "units", "pairs"}

// itemFields mark a payload object that is itself a single item.
var itemFields = []string{"question", "q", "front", "title", "original", "sentence", "word", "left"}

// defaultFields mark a payload object that can stand as the single item of
// its kind when none of itemFields are present.
var defaultFields = map[ExerciseKind]string{
	KindChoice:   "options",
	KindSpelling: "answer",
	KindQA:       "answer",
}

type itemDecoder func(map[string]any) (Item, bool)

var decoders = map[ExerciseKind]itemDecoder{
	KindChoice:    decodeChoice,
	KindSpelling:  decodeSpelling,
	KindFillBlank: decodeFillBlank,
	KindQA:        decodeQA,
	KindImitation: decodeImitation,
}

// ResolveKind returns the kind used to grade u: the stored kind when it is
// known (ignoring case and surrounding space), else the payload's "type" field when known, else KindGeneric.
func ResolveKind(u LearningUnit) ExerciseKind {
	if k := ExerciseKind(strings.ToLower(strings.TrimSpace(string(u.Kind)))); k.Known() {
		return k
	}
	var obj map[string]any
	if err := json.Unmarshal(u.Payload, &obj); err == nil {
		if t, ok := obj["type"].(string); ok {
			k := ExerciseKind(strings.ToLower(strings.TrimSpace(t)))
			if k.Known() {
				return k
			}
		}
	}
	return KindGeneric
}

// DeriveItems computes the item list of u from its payload. It is
// deterministic and never modifies u.Payload.
func DeriveItems(u LearningUnit) ItemSet {
	kind := ResolveKind(u)
	set := ItemSet{Kind: kind, Ambiguous: kind == KindGeneric}

	var payload any
	if len(u.Payload) == 0 || json.Unmarshal(u.Payload, &payload) != nil {
		return set
	}

	raws := rawItems(payload, kind)
	if len(raws) == 0 {
		return set
	}

	if kind == KindMatching {
		board, ok := decodeMatching(raws)
		if ok {
			set.Items = []Item{board}
			return set
		}
		set.Ambiguous = true
		for _, raw := range raws {
			set.Items = append(set.Items, decodeGeneric(raw))
		}
		return set
	}

	decode := decoders[kind]
	for _, raw := range raws {
		obj, isObj := raw.(map[string]any)
		if decode != nil && isObj {
			if item, ok := decode(obj); ok {
				set.Items = append(set.Items, item)
				continue
			}
		}
		if kind != KindGeneric {
			set.Ambiguous = true
		}
		set.Items = append(set.Items, decodeGeneric(raw))
	}
	return set
}

func rawItems(payload any, kind ExerciseKind) []any {
	switch p := payload.(type) {
	case []any:
		return p
	case map[string]any:
		for _, field := range arrayFields {
			if arr, ok := p[field].([]any); ok && len(arr) > 0 {
				return arr
			}
		}
		for _, field := range itemFields {
			if truthy(p[field]) {
				return []any{p}
			}
		}
		if field, ok := defaultFields[kind]; ok && truthy(p[field]) {
			return []any{p}
		}
	}
	return nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	default:
		return true
	}
}

// text returns the first key of obj holding a scalar, stringified.
func text(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := scalarString(obj[k]); ok && s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

func decodeChoice(obj map[string]any) (Item, bool) {
	rawOptions, ok := obj["options"].([]any)
	if !ok {
		rawOptions, ok = obj["choices"].([]any)
	}
	if !ok || len(rawOptions) == 0 {
		return nil, false
	}
	options := make([]string, 0, len(rawOptions))
	for _, o := range rawOptions {
		s, ok := scalarString(o)
		if !ok {
			s = fmt.Sprint(o)
		}
		options = append(options, s)
	}

	correct, ok := choiceIndex(obj, options)
	if !ok {
		return nil, false
	}

	return ChoiceItem{
		Question:    text(obj, "question", "q", "original"),
		Options:     options,
		Correct:     correct,
		Explanation: text(obj, "explanation"),
	}, true
}

// choiceIndex accepts a numeric correct/answer index, or an answer string
// equal to one of the options or to its letter label.
func choiceIndex(obj map[string]any, options []string) (int, bool) {
	for _, key := range []string{"correct", "answer"} {
		if n, ok := obj[key].(float64); ok {
			if n != math.Trunc(n) || n < 0 || n >= float64(len(options)) {
				return 0, false
			}
			return int(n), true
		}
	}
	for _, key := range []string{"correct", "answer"} {
		s, ok := obj[key].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		for i, o := range options {
			if o == s {
				return i, true
			}
		}
		if len(s) == 1 {
			idx := int(strings.ToUpper(s)[0]) - 'A'
			if idx >= 0 && idx < len(options) {
				return idx, true
			}
		}
	}
	return 0, false
}

func decodeSpelling(obj map[string]any) (Item, bool) {
	answer := text(obj, "answer")
	if strings.TrimSpace(answer) == "" {
		return nil, false
	}
	return SpellingItem{
		Word:    text(obj, "word"),
		Quiz:    text(obj, "quiz", "question"),
		Answer:  answer,
		Pinyin:  text(obj, "pinyin"),
		Meaning: text(obj, "meaning"),
	}, true
}

func decodeFillBlank(obj map[string]any) (Item, bool) {
	sentence := text(obj, "sentence")
	answer := text(obj, "answer")
	if sentence == "" || strings.TrimSpace(answer) == "" {
		return nil, false
	}
	return FillBlankItem{
		Sentence:    sentence,
		Answer:      answer,
		Explanation: text(obj, "explanation"),
	}, true
}

func decodeQA(obj map[string]any) (Item, bool) {
	question := text(obj, "question", "q", "front")
	if question == "" {
		return nil, false
	}
	return QAItem{
		Question: question,
		Answer:   text(obj, "answer", "back", "explanation", "result"),
	}, true
}

func decodeImitation(obj map[string]any) (Item, bool) {
	original := text(obj, "original", "sentence")
	if original == "" {
		return nil, false
	}
	return ImitationItem{
		Original: original,
		Skeleton: text(obj, "skeleton"),
		Tip:      text(obj, "tip"),
	}, true
}

// decodeMatching folds every pair into one board. Pairs missing either side
// are dropped; a repeated left value keeps its first occurrence.
func decodeMatching(raws []any) (MatchingItem, bool) {
	var board MatchingItem
	seen := make(map[string]bool)
	for _, raw := range raws {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		left := text(obj, "left")
		right := text(obj, "right")
		if left == "" || right == "" || seen[left] {
			continue
		}
		seen[left] = true
		board.Pairs = append(board.Pairs, MatchPair{Left: left, Right: right})
	}
	return board, len(board.Pairs) > 0
}

func decodeGeneric(raw any) Item {
	obj, ok := raw.(map[string]any)
	if !ok {
		s, isScalar := scalarString(raw)
		if !isScalar {
			b, _ := json.Marshal(raw)
			s = string(b)
		}
		return GenericItem{Title: s}
	}

	return GenericItem{
		Title:       text(obj, "sentence", "original", "question", "q", "front", "title", "word", "left"),
		Answer:      text(obj, "answer", "back", "skeleton", "result", "right"),
		Explanation: text(obj, "explanation", "tip"),
	}
}
