package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/events"
	"github.com/phrazzld/studyloop/internal/session"
	"github.com/spf13/cobra"
)

const playHelp = `commands:
  select <n>            choose option n (0-based)
  text <answer>         set the text draft
  assign <left>=<right> place a right value on a left slot
  unassign <left>       clear a left slot
  submit [answer]       grade the current item
  next | back           move between items
  show                  print the current item
  quit                  leave the session`

func newPlayCmd(cliLogger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var (
		unitID string
		seed   int64
	)

	cmd := &cobra.Command{
		Use:   "play <units.json>",
		Short: "Practice a learning unit interactively",
		Long: "Loads learning units from a JSON file (an array of units, or the output of " +
			"ingest-file) and runs one of them as an exercise session on stdin/stdout.\n\n" + playHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := loadUnits(args[0])
			if err != nil {
				return err
			}
			unit, err := pickUnit(units, unitID)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			return runPlay(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), unit, seed, cliLogger(cmd))
		},
	}

	cmd.Flags().StringVar(&unitID, "unit", "", "ID of the unit to play (default: first unit)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for the matching pool order")
	return cmd
}

// loadUnits accepts a bare array of units or an object with a "units" key.
func loadUnits(path string) ([]domain.LearningUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var units []domain.LearningUnit
	if err := json.Unmarshal(data, &units); err != nil {
		var wrapped struct {
			Units []domain.LearningUnit `json:"units"`
		}
		if wrappedErr := json.Unmarshal(data, &wrapped); wrappedErr != nil {
			return nil, fmt.Errorf("failed to parse units in %s: %w", path, err)
		}
		units = wrapped.Units
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("%s contains no learning units", path)
	}
	return units, nil
}

func pickUnit(units []domain.LearningUnit, id string) (domain.LearningUnit, error) {
	if id == "" {
		return units[0], nil
	}
	for _, u := range units {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.LearningUnit{}, fmt.Errorf("unit %q not found", id)
}

func runPlay(ctx context.Context, in io.Reader, out io.Writer, unit domain.LearningUnit, seed int64, log *slog.Logger) error {
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(events.TypeUnitStatusChanged, events.EventHandlerFunc(
		func(_ context.Context, event *events.Event) error {
			var change events.UnitStatusChanged
			if err := event.UnmarshalPayload(&change); err != nil {
				return err
			}
			fmt.Fprintf(out, "status: %s -> %s\n", change.From, change.To)
			return nil
		}))

	player, err := session.NewPlayer(emitter, log)
	if err != nil {
		return err
	}
	render(out, player.Open(unit, seed))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		verb, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		var (
			view session.View
			tr   session.Transition
		)
		switch verb {
		case "quit", "exit":
			_, _, err = player.Close(ctx)
			return err
		case "help":
			fmt.Fprintln(out, playHelp)
			continue
		case "show":
			render(out, player.View())
			continue
		case "select":
			option, convErr := strconv.Atoi(rest)
			if convErr != nil {
				fmt.Fprintf(out, "select needs an option number: %v\n", convErr)
				continue
			}
			view, tr, err = player.Select(ctx, option)
		case "text":
			view, tr, err = player.SetText(ctx, rest)
		case "assign":
			left, right, ok := strings.Cut(rest, "=")
			if !ok {
				fmt.Fprintln(out, "usage: assign <left>=<right>")
				continue
			}
			view, tr, err = player.Assign(ctx, strings.TrimSpace(left), strings.TrimSpace(right))
		case "unassign":
			view, tr, err = player.Unassign(ctx, rest)
		case "submit":
			view, tr, err = player.Submit(ctx, session.Answer{Text: rest})
		case "next":
			view, tr, err = player.Advance(ctx)
		case "back":
			view, tr, err = player.Retreat(ctx)
		default:
			fmt.Fprintf(out, "unknown command %q, try help\n", verb)
			continue
		}

		if err != nil {
			log.Error("failed to publish status change", "error", err)
		}
		if !tr.Accepted {
			fmt.Fprintf(out, "rejected: %v\n", tr.Reason)
			continue
		}
		render(out, view)
		if view.State == session.StateCompleted {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

func render(out io.Writer, v session.View) {
	switch v.State {
	case session.StateIdle:
		fmt.Fprintln(out, "no unit open")
		return
	case session.StateCompleted:
		s := v.Summary
		fmt.Fprintf(out, "completed %q: %d/%d attempted, %d/%d graded correct\n",
			v.Title, s.Attempted, s.Items, s.Correct, s.Graded)
		return
	}

	fmt.Fprintf(out, "[%s] %s  item %d/%d (%s)\n", v.Status, v.Title, v.Index+1, v.ItemCount, v.Kind)
	if v.Prompt != "" {
		fmt.Fprintln(out, v.Prompt)
	}
	if v.Hint != "" {
		fmt.Fprintf(out, "hint: %s\n", v.Hint)
	}
	for i, opt := range v.Options {
		marker := " "
		if v.Selected != nil && *v.Selected == i {
			marker = "*"
		}
		fmt.Fprintf(out, " %s%d) %s\n", marker, i, opt)
	}
	if len(v.Lefts) > 0 {
		for _, left := range v.Lefts {
			fmt.Fprintf(out, "  %s = %s\n", left, v.Assignments[left])
		}
		fmt.Fprintf(out, "  pool: %s\n", strings.Join(v.Pool, ", "))
	}
	if v.Input != "" {
		fmt.Fprintf(out, "draft: %s\n", v.Input)
	}
	if r := v.Result; r != nil {
		renderResult(out, r)
	}
}

func renderResult(out io.Writer, r *session.Result) {
	switch {
	case !r.Graded:
		fmt.Fprintln(out, "recorded")
	case r.Correct:
		fmt.Fprintln(out, "correct")
	default:
		fmt.Fprintln(out, "incorrect")
	}
	for _, p := range r.Pairs {
		if !p.Correct {
			fmt.Fprintf(out, "  %s: %s, expected %s\n", p.Left, p.Assigned, p.Expected)
		}
	}
	if r.Reference != "" {
		fmt.Fprintf(out, "answer: %s\n", r.Reference)
	}
	if r.Explanation != "" {
		fmt.Fprintln(out, r.Explanation)
	}
}
