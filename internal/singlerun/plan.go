package singlerun

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/leapstack-labs/rdrkit/internal/workbook"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// PlanOptions fix the run dimensions that do not come from the workbooks.
type PlanOptions struct {
	RunMiniEq  bool
	MatrixName string
}

// Plan expands the user inputs into every run they describe: each hazard,
// economic scenario, elasticity and resilience project, crossed with every
// recovery stage. Projects run in each project group listing them.
func Plan(ui *workbook.UserInputs, unc *workbook.Uncertainty, groups []workbook.ProjectGroup, opts PlanOptions) ([]core.RunParams, error) {
	matrix := opts.MatrixName
	if matrix == "" {
		matrix = core.MatrixCar
	}

	elasticities := make([]float64, 0, len(ui.Elasticities))
	for _, e := range ui.Elasticities {
		v, err := strconv.ParseFloat(e, 64)
		if err != nil {
			return nil, fmt.Errorf("trip loss elasticity %q is not a number", e)
		}
		elasticities = append(elasticities, v)
	}

	wanted := make(map[string]bool, len(ui.ResilProjects))
	for _, p := range ui.ResilProjects {
		wanted[p] = true
	}
	var pairs []workbook.ProjectGroup
	for _, g := range groups {
		if wanted[g.Project] {
			pairs = append(pairs, g)
		}
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no resiliency project from %s is assigned to a project group", workbook.UserInputsFile)
	}

	seen := make(map[core.RunParams]bool)
	var runs []core.RunParams
	for _, socio := range ui.Socio {
		for _, pg := range pairs {
			for _, elasticity := range elasticities {
				for _, hazard := range ui.Hazards {
					for _, recovery := range unc.RecoveryStages {
						p := core.RunParams{
							Socio:      socio,
							ProjGroup:  pg.Group,
							Resil:      pg.Project,
							Elasticity: elasticity,
							Hazard:     hazard,
							Recovery:   recovery,
							RunMiniEq:  opts.RunMiniEq,
							MatrixName: matrix,
						}
						if seen[p] {
							continue
						}
						seen[p] = true
						runs = append(runs, p)
					}
				}
			}
		}
	}
	return runs, nil
}

// PlanFromInputs reads the workbooks in inputDir and plans their runs.
func PlanFromInputs(inputDir string, opts PlanOptions) ([]core.RunParams, error) {
	params, err := workbook.Open(filepath.Join(inputDir, workbook.ModelParametersFile))
	if err != nil {
		return nil, err
	}
	defer params.Close()

	unc, err := params.ReadUncertainty()
	if err != nil {
		return nil, err
	}
	groups, err := params.ReadProjectGroups()
	if err != nil {
		return nil, err
	}

	inputs, err := workbook.Open(filepath.Join(inputDir, workbook.UserInputsFile))
	if err != nil {
		return nil, err
	}
	defer inputs.Close()

	ui, err := inputs.ReadUserInputs()
	if err != nil {
		return nil, err
	}
	return Plan(ui, unc, groups, opts)
}
