package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/rdrkit/internal/scenario"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// paramsFlags holds the flags naming a single run.
type paramsFlags struct {
	socio      string
	projGroup  string
	resil      string
	elasticity float64
	hazard     string
	recovery   string
	runMiniEq  bool
	matrix     string
}

func (f *paramsFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.socio, "socio", "", "Economic scenario, or baseyear")
	fs.StringVar(&f.projGroup, "projgroup", "", "Project group")
	fs.StringVar(&f.resil, "resil", core.NoProject, "Resilience project, or no for the baseline")
	fs.Float64Var(&f.elasticity, "elasticity", 0, "Trip loss elasticity (zero or negative)")
	fs.StringVar(&f.hazard, "hazard", "", "Hazard event")
	fs.StringVar(&f.recovery, "recovery", "0", "Recovery stage depth")
	fs.BoolVar(&f.runMiniEq, "run-minieq", false, "Run the mini-equilibrium assignment (default from the scenario)")
	fs.StringVar(&f.matrix, "matrix", core.MatrixCar, "Demand matrix: matrix or nocar")
}

// params returns the run parameters, taking run_minieq from the scenario
// unless the flag was given.
func (f *paramsFlags) params(cmd *cobra.Command, sc *scenario.Config) core.RunParams {
	runMiniEq := sc.Metamodel.RunMiniEq
	if cmd.Flags().Changed("run-minieq") {
		runMiniEq = f.runMiniEq
	}
	return core.RunParams{
		Socio:      f.socio,
		ProjGroup:  f.projGroup,
		Resil:      f.resil,
		Elasticity: f.elasticity,
		Hazard:     f.hazard,
		Recovery:   f.recovery,
		RunMiniEq:  runMiniEq,
		MatrixName: f.matrix,
	}
}
