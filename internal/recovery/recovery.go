package recovery

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stage identifies which strategy produced a Result.
type Stage int

// Extraction stages.
const (
	// StageDirect means the outermost bracketed span parsed as one value.
	StageDirect Stage = iota + 1
	// StageScan means values were recovered by brace-balanced scanning.
	StageScan
)

// String returns the stage name used in logs.
func (s Stage) String() string {
	switch s {
	case StageDirect:
		return "direct"
	case StageScan:
		return "scan"
	default:
		return "unknown"
	}
}

const snippetLen = 50

// Discard describes one candidate object that failed to parse during
// scanning.
type Discard struct {
	Offset  int
	Snippet string
	Err     error
}

// Result carries recovered values together with diagnostics.
type Result struct {
	Values    []any
	Stage     Stage
	Discarded []Discard
}

// Partial reports whether scanning dropped at least one candidate.
func (r Result) Partial() bool {
	return len(r.Discarded) > 0
}

// Objects returns the recovered values that are JSON objects.
func (r Result) Objects() []map[string]any {
	out := make([]map[string]any, 0, len(r.Values))
	for _, v := range r.Values {
		if obj, ok := v.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

var fenceReplacer = strings.NewReplacer("```json", "", "```", "")

// StripCodeFences removes markdown code fence markers and surrounding space.
func StripCodeFences(text string) string {
	return strings.TrimSpace(fenceReplacer.Replace(text))
}

// Extract recovers JSON values from text. A top-level array yields its
// elements; any other top-level value yields a single value. When no value
// can be recovered it returns an error wrapping ErrExtractionFailure.
func Extract(text string) (Result, error) {
	direct, directErr := parseOutermost(StripCodeFences(text))
	if directErr == nil {
		return Result{Values: flatten(direct), Stage: StageDirect}, nil
	}

	res := scan(text)
	if len(res.Values) == 0 {
		return res, fmt.Errorf("%w: %v", ErrExtractionFailure, directErr)
	}
	return res, nil
}

func flatten(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{v}
}

// parseOutermost parses the span from the first opening bracket of either
// type to the last closing bracket of either type. A stray bracket in
// surrounding prose makes the span invalid, which sends Extract to scanning.
func parseOutermost(s string) (any, error) {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return nil, fmt.Errorf("no opening bracket")
	}

	end := max(strings.LastIndexByte(s, '}'), strings.LastIndexByte(s, ']'))
	if end <= start {
		return nil, fmt.Errorf("no closing bracket after offset %d", start)
	}

	var v any
	if err := json.Unmarshal([]byte(s[start:end+1]), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// scan walks text counting brace depth. Each span that returns to depth zero
// is parsed independently after stripping control characters. Braces inside
// string literals are counted like any other.
func scan(text string) Result {
	res := Result{Stage: StageScan}
	depth, start := 0, -1

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth != 0 {
				continue
			}
			candidate := text[start : i+1]
			var v any
			if err := json.Unmarshal([]byte(StripControl(candidate)), &v); err != nil {
				res.Discarded = append(res.Discarded, Discard{
					Offset:  start,
					Snippet: snippet(candidate),
					Err:     err,
				})
			} else {
				res.Values = append(res.Values, v)
			}
			start = -1
		}
	}
	return res
}

// StripControl removes C0 and C1 control characters and DEL.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r <= 0x1F || (r >= 0x7F && r <= 0x9F) {
			return -1
		}
		return r
	}, s)
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetLen {
		return s
	}
	return string(r[:snippetLen]) + "..."
}
