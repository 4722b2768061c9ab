package commands

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/desktopmate-tools/dminstall/internal/cli/output"
	"github.com/desktopmate-tools/dminstall/internal/state"
)

// DefaultHistoryLimit is how many runs history shows by default.
const DefaultHistoryLimit = 10

// RunOutput is one run in the history JSON output.
type RunOutput struct {
	ID          string     `json:"id"`
	InstallDir  string     `json:"install_dir"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous install runs",
		Example: `  # Show the last 10 runs
  dminstall history

  # Show every run as JSON
  dminstall history --limit 0 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultHistoryLimit, "Number of runs to show (0 for all)")
	return cmd
}

func runHistory(cmd *cobra.Command, limit int) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cc.Renderer

	var runs []*state.Run
	store, err := cc.openExistingStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		if runs, err = store.ListRuns(limit); err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := make([]RunOutput, 0, len(runs))
		for _, run := range runs {
			out = append(out, RunOutput{
				ID:          run.ID,
				InstallDir:  run.InstallDir,
				Status:      string(run.Status),
				StartedAt:   run.StartedAt,
				CompletedAt: run.CompletedAt,
				Error:       run.Error,
			})
		}
		return r.JSON(out)
	}

	if len(runs) == 0 {
		r.Println("No install runs recorded.")
		return nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Duration", "Status", "Install directory", "Error"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			shortID(run.ID),
			humanize.Time(run.StartedAt),
			runDuration(run),
			string(run.Status),
			run.InstallDir,
			run.Error,
		})
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Install history"))
		r.Println("")
		r.Println(t.RenderMarkdown())
		return nil
	}
	renderTableTo(r.Writer(), t)
	r.Println(r.Styles().Muted.Render(fmt.Sprintf("(%d runs)", len(runs))))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Second).String()
}
