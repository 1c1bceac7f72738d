package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/phrazzld/studyloop/internal/recovery"
	"github.com/spf13/cobra"
)

type extractOutput struct {
	Stage     string           `json:"stage"`
	Values    []any            `json:"values"`
	Discarded []extractDiscard `json:"discarded,omitempty"`
}

type extractDiscard struct {
	Offset  int    `json:"offset"`
	Snippet string `json:"snippet"`
	Error   string `json:"error"`
}

func newExtractCmd(cliLogger func(*cobra.Command) *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "extract [file]",
		Short: "Recover JSON values from raw model output",
		Long: "Reads model output from file, or stdin when no file is given, and prints " +
			"the JSON values that could be recovered together with any discarded fragments.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			result, err := recovery.Extract(text)
			if err != nil {
				return fmt.Errorf("no JSON recovered: %w", err)
			}

			log := cliLogger(cmd)
			out := extractOutput{Stage: result.Stage.String(), Values: result.Values}
			for _, d := range result.Discarded {
				log.Warn("discarded malformed fragment", "offset", d.Offset, "snippet", d.Snippet, "error", d.Err)
				out.Discarded = append(out.Discarded, extractDiscard{Offset: d.Offset, Snippet: d.Snippet, Error: d.Err.Error()})
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}
