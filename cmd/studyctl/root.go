package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/phrazzld/studyloop/internal/config"
	"github.com/phrazzld/studyloop/internal/generation"
	"github.com/phrazzld/studyloop/internal/ingest"
	"github.com/phrazzld/studyloop/internal/platform/gcs"
	"github.com/phrazzld/studyloop/internal/platform/gemini"
	"github.com/phrazzld/studyloop/internal/platform/logger"
	"github.com/spf13/cobra"
)

// deps holds the constructors commands use for external services, so tests
// can substitute fakes.
type deps struct {
	newGenerator func(ctx context.Context, cfg *config.Config, log *slog.Logger) (generation.Generator, error)
	newUploader  func(ctx context.Context, cfg *config.Config, log *slog.Logger) (ingest.Uploader, func() error, error)
}

func defaultDeps() deps {
	return deps{
		newGenerator: func(ctx context.Context, cfg *config.Config, log *slog.Logger) (generation.Generator, error) {
			return gemini.NewGeminiGenerator(ctx, log, cfg.LLM)
		},
		newUploader: func(ctx context.Context, cfg *config.Config, log *slog.Logger) (ingest.Uploader, func() error, error) {
			if cfg.Storage.Bucket == "" {
				return nil, func() error { return nil }, nil
			}
			uploader, client, err := gcs.NewUploader(ctx, cfg.Storage, log)
			if err != nil {
				return nil, nil, err
			}
			return uploader, client.Close, nil
		},
	}
}

func newRootCmd(d deps) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "studyloop",
		Short:         "Turn study material into exercises and practice them",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level for diagnostics on stderr (debug, info, warn, error)")

	cliLogger := func(cmd *cobra.Command) *slog.Logger {
		return logger.New(cmd.ErrOrStderr(), config.ServerConfig{LogLevel: logLevel})
	}

	root.AddCommand(
		newExtractCmd(cliLogger),
		newIngestFileCmd(d, cliLogger),
		newPlayCmd(cliLogger),
		newTokenCmd(),
	)
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
