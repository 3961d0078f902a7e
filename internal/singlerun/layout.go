package singlerun

import (
	"path/filepath"

	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// Names of the files that mark run progress.
const (
	MatricesDir = "matrices"
	SkimFile    = "NetSkim.csv"
	MasterDir   = "AEMaster"
)

// Layout places run folders under the scenario output directory.
type Layout struct {
	OutputDir string
	RunID     string
}

func (l Layout) root(p core.RunParams) string {
	if p.IsBaseYear() {
		return filepath.Join(l.OutputDir, "aeq_runs_base_year")
	}
	return filepath.Join(l.OutputDir, "aeq_runs")
}

// BaseFolder is the folder of the undisrupted run shared by every disruption of a scenario.
func (l Layout) BaseFolder(p core.RunParams) string {
	return filepath.Join(l.root(p), "base", l.RunID, p.BaseScenario(), p.MatrixName)
}

// DisruptFolder is the folder of a disrupted run.
func (l Layout) DisruptFolder(p core.RunParams) string {
	return filepath.Join(l.root(p), "disrupt", l.RunID, p.DisruptScenario(), p.MatrixName)
}

// SkimMatrix is the shortest path skim written by a base run.
func SkimMatrix(p core.RunParams) string {
	return "sp_" + p.BaseScenario() + ".omx"
}

// RouteMatrix is the routed assignment written by a base run.
func RouteMatrix(p core.RunParams) string {
	return "rt_" + p.BaseScenario() + ".omx"
}

// DemandMatrix is the summed demand file of an economic scenario.
func DemandMatrix(socio string) string {
	return socio + "_demand_summed.omx"
}
