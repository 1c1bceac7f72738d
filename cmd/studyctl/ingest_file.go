package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/phrazzld/studyloop/internal/config"
	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/ingest"
	"github.com/spf13/cobra"
)

// pageSeparator splits extracted PDF text into pages, as pdftotext emits it.
const pageSeparator = "\f"

type ingestOutput struct {
	Resource       *domain.Resource      `json:"resource"`
	Blocks         []domain.ContentBlock `json:"blocks"`
	Units          []domain.LearningUnit `json:"units"`
	PagesTotal     int                   `json:"pages_total"`
	PagesSucceeded int                   `json:"pages_succeeded"`
	Failures       []ingestFailure       `json:"failures,omitempty"`
}

type ingestFailure struct {
	Page  int    `json:"page"`
	Error string `json:"error"`
}

type ingestFileOptions struct {
	title    string
	category string
	source   string
	notes    string
}

func newIngestFileCmd(d deps, cliLogger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var opts ingestFileOptions

	cmd := &cobra.Command{
		Use:   "ingest-file <file>",
		Short: "Run ingestion on a local file and print blocks and units",
		Long: "Reads a text file (pages separated by form feeds) or a page image, runs block " +
			"extraction and unit synthesis against the configured model, and prints the result " +
			"as JSON. Nothing is written to the database.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOffline()
			if err != nil {
				return err
			}
			log := cliLogger(cmd)
			ctx := cmd.Context()

			resource, err := newLocalResource(args[0], opts)
			if err != nil {
				return err
			}
			pages, err := readPages(args[0], resource.Category)
			if err != nil {
				return err
			}

			generator, err := d.newGenerator(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("failed to initialize LLM generator: %w", err)
			}
			uploader, closeUploader, err := d.newUploader(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("failed to initialize object storage: %w", err)
			}
			defer func() {
				if err := closeUploader(); err != nil {
					log.Error("error closing storage client", "error", err)
				}
			}()

			pipeline, err := ingest.NewPipeline(generator, uploader, log, cfg.Ingest.Concurrency)
			if err != nil {
				return err
			}

			result, err := pipeline.Run(ctx, resource, pages)
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}

			out := ingestOutput{
				Resource:       resource,
				Blocks:         result.Blocks,
				Units:          result.Units,
				PagesTotal:     result.PagesTotal,
				PagesSucceeded: result.PagesSucceeded,
			}
			for _, f := range result.Failures {
				out.Failures = append(out.Failures, ingestFailure{Page: f.Page, Error: f.Err.Error()})
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "", "resource title (default: file name without extension)")
	cmd.Flags().StringVar(&opts.category, "category", "", "material category: pdf, exercise, video or image (default: inferred from file name)")
	cmd.Flags().StringVar(&opts.source, "source", string(domain.SourceUpload), "resource source: upload or community")
	cmd.Flags().StringVar(&opts.notes, "notes", "", "notes passed to the model with every page")
	return cmd
}

func newLocalResource(path string, opts ingestFileOptions) (*domain.Resource, error) {
	fileName := filepath.Base(path)

	title := opts.title
	if title == "" {
		title = ingest.TitleFromFileName(fileName)
	}
	category := domain.MaterialCategory(opts.category)
	if category == "" {
		category = ingest.InferMaterialCategory(fileName)
	}

	return domain.NewResource(title, domain.ResourceSource(opts.source), category, fileName, "", opts.notes)
}

// readPages loads path as ingestion pages. An image becomes one page
// carrying the image; text is split on form feeds and blank pages are
// skipped without renumbering the rest.
func readPages(path string, category domain.MaterialCategory) ([]ingest.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if category == domain.MaterialImage {
		return []ingest.Page{{
			Number: 1,
			Image:  &ingest.PageImage{Data: data, MIMEType: http.DetectContentType(data)},
		}}, nil
	}

	var pages []ingest.Page
	for i, chunk := range strings.Split(string(data), pageSeparator) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		pages = append(pages, ingest.Page{Number: i + 1, Text: chunk})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s contains no text", path)
	}
	return pages, nil
}
