package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/rdrkit/internal/assign"
	"github.com/leapstack-labs/rdrkit/internal/singlerun"
	"github.com/leapstack-labs/rdrkit/internal/state"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	paramsFlags
	UserInputs bool
	Workers    int
	Engine     string
	NoState    bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Run the assignment engine for one or more scenarios",
		Long: `Run disrupted scenarios through the traffic assignment engine.

Each run builds the link availability table and the disrupted network, runs the
base network first when its skims are missing, and hands the run folder to the
engine command. Runs whose skims already exist are skipped.

With --user-inputs every combination listed in UserInputs.xlsx is run, crossed
with the recovery stages of Model_Parameters.xlsx. Otherwise the run flags name
a single scenario. Every run is recorded in the run history.`,
		Example: `  # One scenario
  rdr run scenarios/flood.config --socio base --projgroup 01 --resil P1 \
      --elasticity -0.5 --hazard 100yr --recovery 2

  # Everything in UserInputs.xlsx, four runs at a time
  rdr run scenarios/flood.config --user-inputs --workers 4

  # A different engine entry point
  rdr run scenarios/flood.config --user-inputs --engine "python3 -u run_aeq.py"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], opts)
		},
	}

	opts.register(cmd.Flags())
	cmd.Flags().BoolVar(&opts.UserInputs, "user-inputs", false, "Run every scenario listed in UserInputs.xlsx")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Runs in flight at once (default from settings)")
	cmd.Flags().StringVar(&opts.Engine, "engine", "", "Assignment engine command (default from settings)")
	cmd.Flags().BoolVar(&opts.NoState, "no-state", false, "Do not record runs in the run history")
	cmd.MarkFlagsMutuallyExclusive("user-inputs", "socio")
	cmd.MarkFlagsMutuallyExclusive("user-inputs", "hazard")

	return cmd
}

// RunOutput is the structured output of the run command.
type RunOutput struct {
	Runs      []*singlerun.Outcome `json:"runs" yaml:"runs"`
	Completed int                  `json:"completed" yaml:"completed"`
	Skipped   int                  `json:"skipped" yaml:"skipped"`
	Failed    int                  `json:"failed" yaml:"failed"`
	Elapsed   string               `json:"elapsed" yaml:"elapsed"`
}

func runRun(cmd *cobra.Command, path string, opts *RunOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, path)
	if err != nil {
		return err
	}
	defer cleanup()

	sc := cc.Scenario
	ctx := cmd.Context()
	startTime := time.Now()

	var params []core.RunParams
	if opts.UserInputs {
		base := opts.params(cmd, sc)
		params, err = singlerun.PlanFromInputs(sc.Common.InputDir, singlerun.PlanOptions{
			RunMiniEq:  base.RunMiniEq,
			MatrixName: base.MatrixName,
		})
		if err != nil {
			return fmt.Errorf("failed to plan runs: %w", err)
		}
	} else {
		p := opts.params(cmd, sc)
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid run parameters: %w", err)
		}
		params = []core.RunParams{p}
	}
	cc.Logger.Info("planned runs", "count", len(params))

	workers := cc.Cfg.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	engineCmd := cc.Cfg.Engine.Command
	if opts.Engine != "" {
		engineCmd = opts.Engine
	}
	assigner, err := assign.NewExecAssigner(engineCmd, cc.Cfg.Engine.Env, cc.Logger)
	if err != nil {
		return err
	}

	runnerOpts := []singlerun.Option{singlerun.WithLogger(cc.Logger)}
	if !opts.NoState {
		store := state.NewSQLiteStore(cc.Logger)
		if err := store.Open(sc.StatePath()); err != nil {
			return err
		}
		defer store.Close()
		if err := store.InitSchema(); err != nil {
			return err
		}
		runnerOpts = append(runnerOpts, singlerun.WithStore(store))
	}

	runner := singlerun.New(sc, assigner, runnerOpts...)
	outcomes, runErr := runner.RunAll(ctx, params, workers)

	out := RunOutput{Runs: outcomes, Elapsed: time.Since(startTime).Round(time.Millisecond).String()}
	for _, o := range outcomes {
		switch o.Status {
		case core.RunStatusCompleted:
			out.Completed++
		case core.RunStatusSkipped:
			out.Skipped++
		default:
			out.Failed++
		}
	}

	r := cc.Renderer
	structured, err := r.Structured(out)
	if err != nil {
		return err
	}
	if !structured {
		for _, o := range outcomes {
			msg := o.Params.DisruptScenario() + " (" + o.Params.MatrixName + ")"
			if o.Error != "" {
				msg += ": " + o.Error
			}
			r.StatusLine(string(o.Status), msg)
		}
		r.Println("")
		r.Printf("%d completed, %d skipped, %d failed in %s\n", out.Completed, out.Skipped, out.Failed, out.Elapsed)
	}

	if runErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("runs cancelled: %w", errors.Join(ctx.Err(), runErr))
		}
		return fmt.Errorf("%d of %d runs failed", out.Failed, len(outcomes))
	}
	return nil
}
