package ingest

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/phrazzld/studyloop/internal/domain"
)

// SystemInstruction is sent with every ingestion request.
const SystemInstruction = "You are a helpful teacher. Output ONLY a valid JSON array of objects. No preamble, no conversational text."

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

type blockPromptData struct {
	Resource *domain.Resource
	Page     int
	Text     string
}

type unitPromptData struct {
	BlocksJSON string
}

type blockDigest struct {
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
}

// BlockPrompt renders the block-extraction prompt for one page. page is
// zero when the whole resource is sent at once.
func BlockPrompt(resource *domain.Resource, page int, text string) (string, error) {
	return render("blocks.tmpl", blockPromptData{Resource: resource, Page: page, Text: text})
}

// UnitPrompt renders the unit-synthesis prompt for the given blocks.
func UnitPrompt(blocks []domain.ContentBlock) (string, error) {
	digest := make([]blockDigest, len(blocks))
	for i, b := range blocks {
		digest[i] = blockDigest{Title: b.Title}
		if b.Summary != nil {
			digest[i].Summary = *b.Summary
		}
	}
	raw, err := json.Marshal(digest)
	if err != nil {
		return "", fmt.Errorf("failed to encode blocks: %w", err)
	}
	return render("units.tmpl", unitPromptData{BlocksJSON: string(raw)})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}
