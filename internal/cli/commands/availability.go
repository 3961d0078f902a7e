package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/rdrkit/internal/disruption"
	"github.com/leapstack-labs/rdrkit/internal/singlerun"
)

// AvailabilityOptions holds options for the availability command.
type AvailabilityOptions struct {
	paramsFlags
	OutDir string
}

// NewAvailabilityCommand creates the availability command.
func NewAvailabilityCommand() *cobra.Command {
	opts := &AvailabilityOptions{}
	cmd := &cobra.Command{
		Use:   "availability <config>",
		Short: "Write the link availability table of a disrupted run",
		Long: `Compute how available each link is under a hazard event at a recovery
stage, with a resilience project in place. Exposure is reduced by the recovery
depth and the project's exposure reduction, then mapped to availability with the
scenario's link availability approach. Zone connectors are never disrupted.

The table is written as NP_Disrupt_<resil>_<hazard>_<recovery>.csv into --out-dir,
or into the disrupted run folder when --socio and --projgroup are given.`,
		Example: `  rdr availability scenarios/flood.config --hazard 100yr --recovery 2 --resil P1 --out-dir /tmp
  rdr availability scenarios/flood.config --socio base --projgroup 01 --hazard 100yr --recovery 0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAvailability(cmd, args[0], opts)
		},
	}
	opts.register(cmd.Flags())
	cmd.Flags().StringVar(&opts.OutDir, "out-dir", "", "Directory the table is written to")
	_ = cmd.MarkFlagRequired("hazard")
	return cmd
}

// AvailabilityOutput is the structured output of the availability command.
type AvailabilityOutput struct {
	Path        string `json:"path" yaml:"path"`
	Links       int    `json:"links" yaml:"links"`
	Unavailable int    `json:"unavailable" yaml:"unavailable"`
	Degraded    int    `json:"degraded" yaml:"degraded"`
}

func runAvailability(cmd *cobra.Command, path string, opts *AvailabilityOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, path)
	if err != nil {
		return err
	}
	defer cleanup()

	sc := cc.Scenario
	p := opts.params(cmd, sc)
	if _, err := p.RecoveryDepth(); err != nil {
		return err
	}
	if p.Resil == "" {
		return errors.New("--resil is required")
	}

	outDir := opts.OutDir
	if outDir == "" {
		if p.Socio == "" || p.ProjGroup == "" {
			return errors.New("--out-dir is required unless --socio and --projgroup are given")
		}
		outDir = singlerun.Layout{OutputDir: sc.Common.OutputDir, RunID: sc.Common.RunID}.DisruptFolder(p)
	}

	calc := disruption.NewCalculator(sc.Common.InputDir, disruption.SettingsFromConfig(sc), cc.Logger)
	res, err := calc.Calculate(cmd.Context(), p, outDir)
	if err != nil {
		return fmt.Errorf("link availability failed: %w", err)
	}

	out := AvailabilityOutput{Path: res.Path, Links: len(res.Links)}
	for _, l := range res.Links {
		switch {
		case l.LinkAvailable == 0:
			out.Unavailable++
		case l.LinkAvailable < 1:
			out.Degraded++
		}
	}

	r := cc.Renderer
	structured, err := r.Structured(out)
	if err != nil || structured {
		return err
	}
	r.Success(fmt.Sprintf("wrote %s", out.Path))
	r.Muted(fmt.Sprintf("  %d links: %d unavailable, %d degraded", out.Links, out.Unavailable, out.Degraded))
	return nil
}
