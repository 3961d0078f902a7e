package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/rdrkit/internal/state"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs <config>",
		Short: "Show the run history of a scenario",
		Example: `  rdr runs scenarios/flood.config
  rdr runs scenarios/flood.config --limit 0 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, args[0], limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	return cmd
}

// RunRecord is one run of the structured runs output.
type RunRecord struct {
	ID        string `json:"id" yaml:"id"`
	Scenario  string `json:"scenario" yaml:"scenario"`
	Matrix    string `json:"matrix" yaml:"matrix"`
	Status    string `json:"status" yaml:"status"`
	StartedAt string `json:"started_at" yaml:"started_at"`
	Duration  string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runRuns(cmd *cobra.Command, path string, limit int) error {
	cc, cleanup, err := NewCommandContext(cmd, path)
	if err != nil {
		return err
	}
	defer cleanup()

	store := state.NewSQLiteStore(cc.Logger)
	if err := store.Open(cc.Scenario.StatePath()); err != nil {
		return err
	}
	defer store.Close()
	if err := store.InitSchema(); err != nil {
		return err
	}

	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}

	records := make([]RunRecord, 0, len(runs))
	for _, run := range runs {
		rec := RunRecord{
			ID:        run.ID,
			Scenario:  run.Scenario,
			Matrix:    run.Params.MatrixName,
			Status:    string(run.Status),
			StartedAt: run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			Error:     run.Error,
		}
		if d := run.Duration(); d > 0 {
			rec.Duration = d.Round(100 * time.Millisecond).String()
		}
		records = append(records, rec)
	}

	r := cc.Renderer
	structured, err := r.Structured(records)
	if err != nil || structured {
		return err
	}
	if len(records) == 0 {
		r.Muted("No runs recorded for " + cc.Scenario.Path)
		return nil
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = []string{shortID(rec.ID), rec.Scenario, rec.Matrix, rec.Status, rec.StartedAt, rec.Duration}
	}
	r.Table([]string{"ID", "Scenario", "Matrix", "Status", "Started", "Duration"}, rows)
	r.Muted(fmt.Sprintf("%d runs", len(records)))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
