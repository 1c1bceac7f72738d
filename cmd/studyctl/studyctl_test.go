package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/studyloop/internal/config"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/generation"
	"github.com/phrazzld/studyloop/internal/ingest"
	"github.com/phrazzld/studyloop/internal/mocks"
	"github.com/phrazzld/studyloop/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "thisisasecretkeythatis32charslong!!"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeDeps(gen generation.Generator) deps {
	return deps{
		newGenerator: func(context.Context, *config.Config, *slog.Logger) (generation.Generator, error) {
			return gen, nil
		},
		newUploader: func(context.Context, *config.Config, *slog.Logger) (ingest.Uploader, func() error, error) {
			return nil, func() error { return nil }, nil
		},
	}
}

func execute(t *testing.T, d deps, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(d)
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExtractCommand(t *testing.T) {
	t.Parallel()

	raw := `Sure! {"title":"a"} and then {"title": broken} and {"title":"c"}`
	out, err := execute(t, fakeDeps(nil), raw, "extract")
	require.NoError(t, err)

	var got extractOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "scan", got.Stage)
	assert.Equal(t, []any{map[string]any{"title": "a"}, map[string]any{"title": "c"}}, got.Values)
	require.Len(t, got.Discarded, 1)
	assert.Equal(t, strings.Index(raw, `{"title": broken}`), got.Discarded[0].Offset)
}

func TestExtractCommandFromFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "reply.txt", "```json\n[{\"id\":1},{\"id\":2}]\n```")
	out, err := execute(t, fakeDeps(nil), "", "extract", path)
	require.NoError(t, err)

	var got extractOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "direct", got.Stage)
	assert.Len(t, got.Values, 2)
	assert.Empty(t, got.Discarded)
}

func TestExtractCommandNothingRecovered(t *testing.T) {
	t.Parallel()

	_, err := execute(t, fakeDeps(nil), "I cannot help with that.", "extract")
	assert.ErrorContains(t, err, "no JSON recovered")
}

func TestIngestFileCommand(t *testing.T) {
	t.Setenv("STUDYLOOP_LLM_GEMINI_API_KEY", "test-api-key")

	gen := mocks.NewRoutingGenerator(map[string]string{
		"Identify the core knowledge points": `[{"id":"b-1","type":"vocabulary","title":"生字"}]`,
		"Turn each knowledge block":          `[{"title":"生字","payload":{"type":"qa","question":"碧绿?","answer":"绿"}}]`,
	})
	path := writeFile(t, "第一课.txt", "碧绿的草地\f\f蓝色的天空")

	out, err := execute(t, fakeDeps(gen), "", "ingest-file", path, "--notes", "三年级")
	require.NoError(t, err)

	var got ingestOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "第一课", got.Resource.Title)
	assert.Equal(t, domain.MaterialPDF, got.Resource.Category)
	assert.Equal(t, 2, got.PagesTotal)
	assert.Equal(t, 2, got.PagesSucceeded)
	assert.Empty(t, got.Failures)
	require.Len(t, got.Units, 2)
	for _, u := range got.Units {
		assert.Equal(t, got.Resource.ID, u.ResourceID)
		assert.Equal(t, "生字", u.Title)
	}
	assert.Equal(t, 4, gen.CallCount())
}

func TestIngestFileCommandRequiresAPIKey(t *testing.T) {
	t.Setenv("STUDYLOOP_LLM_GEMINI_API_KEY", "")

	_, err := execute(t, fakeDeps(&mocks.MockGenerator{}), "", "ingest-file", writeFile(t, "a.txt", "text"))
	assert.ErrorContains(t, err, "config validation failed")
}

func TestReadPages(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "notes.txt", "one\f \ftwo\f")

	pages, err := readPages(path, domain.MaterialPDF)
	require.NoError(t, err)
	assert.Equal(t, []ingest.Page{{Number: 1, Text: "one"}, {Number: 3, Text: "two"}}, pages)

	_, err = readPages(writeFile(t, "empty.txt", "\f\f"), domain.MaterialPDF)
	assert.ErrorContains(t, err, "contains no text")

	png := []byte("\x89PNG\r\n\x1a\n0000")
	pages, err = readPages(writeFile(t, "page.png", string(png)), domain.MaterialImage)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "image/png", pages[0].Image.MIMEType)
}

func choiceUnit() domain.LearningUnit {
	return domain.LearningUnit{
		ID:         "u-1",
		ResourceID: uuid.New(),
		Title:      "近义词",
		Status:     domain.UnitStatusTodo,
		Kind:       domain.KindChoice,
		Payload:    json.RawMessage(`[{"question":"美丽的近义词","options":["丑陋","漂亮"],"correct":1}]`),
	}
}

func TestPlaySession(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	script := "next\nselect 9\nselect 1\nsubmit\nnext\n"
	err := runPlay(context.Background(), strings.NewReader(script), &out, choiceUnit(), 1, discardLogger())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "美丽的近义词")
	assert.Contains(t, text, "rejected:")
	assert.Contains(t, text, "correct")
	assert.Contains(t, text, "status: todo -> done")
	assert.Contains(t, text, `completed "近义词": 1/1 attempted, 1/1 graded correct`)
}

func TestPlayQuitAndUnknownCommands(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := runPlay(context.Background(), strings.NewReader("dance\nselect x\nquit\nnext\n"), &out, choiceUnit(), 1, discardLogger())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, `unknown command "dance"`)
	assert.Contains(t, text, "select needs an option number")
	assert.NotContains(t, text, "status:")
}

func TestLoadUnits(t *testing.T) {
	t.Parallel()

	unit := choiceUnit()
	bare, err := json.Marshal([]domain.LearningUnit{unit})
	require.NoError(t, err)
	wrapped, err := json.Marshal(ingestOutput{Units: []domain.LearningUnit{unit}})
	require.NoError(t, err)

	for name, content := range map[string][]byte{"bare": bare, "wrapped": wrapped} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			units, err := loadUnits(writeFile(t, "units.json", string(content)))
			require.NoError(t, err)
			require.Len(t, units, 1)
			assert.Equal(t, "u-1", units[0].ID)
		})
	}

	_, err = loadUnits(writeFile(t, "none.json", "[]"))
	assert.ErrorContains(t, err, "no learning units")

	_, err = pickUnit([]domain.LearningUnit{unit}, "u-2")
	assert.ErrorContains(t, err, `unit "u-2" not found`)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("STUDYLOOP_AUTH_JWT_SECRET", testSecret)

	out, err := execute(t, fakeDeps(nil), "", "token", "learner-1")
	require.NoError(t, err)

	jwtService, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	claims, err := jwtService.ValidateToken(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "learner-1", claims.Subject)
}
