package singlerun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/rdrkit/internal/workbook"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

func TestPlan(t *testing.T) {
	ui := &workbook.UserInputs{
		Hazards:       []string{"100yr"},
		Socio:         []string{"base", "urban"},
		Elasticities:  []string{"0", "-1"},
		ResilProjects: []string{"no", "P2"},
	}
	unc := &workbook.Uncertainty{RecoveryStages: []string{"0", "3"}}
	groups := []workbook.ProjectGroup{
		{Group: "01", Project: "no"}, {Group: "01", Project: "P1"},
		{Group: "02", Project: "no"}, {Group: "02", Project: "P2"},
	}

	runs, err := Plan(ui, unc, groups, PlanOptions{RunMiniEq: true, MatrixName: core.MatrixNoCar})
	require.NoError(t, err)
	// 2 socio x 3 group/project pairs x 2 elasticities x 1 hazard x 2 stages
	assert.Len(t, runs, 24)
	assert.Equal(t, core.RunParams{
		Socio: "base", ProjGroup: "01", Resil: "no", Elasticity: 0,
		Hazard: "100yr", Recovery: "0", RunMiniEq: true, MatrixName: core.MatrixNoCar,
	}, runs[0])
	for _, r := range runs {
		assert.NotEqual(t, "P1", r.Resil)
		require.NoError(t, r.Validate())
	}
}

func TestPlan_Errors(t *testing.T) {
	unc := &workbook.Uncertainty{RecoveryStages: []string{"0"}}
	groups := []workbook.ProjectGroup{{Group: "01", Project: "no"}}

	_, err := Plan(&workbook.UserInputs{Elasticities: []string{"high"}, ResilProjects: []string{"no"}}, unc, groups, PlanOptions{})
	assert.ErrorContains(t, err, "not a number")

	_, err = Plan(&workbook.UserInputs{Elasticities: []string{"0"}, ResilProjects: []string{"P9"}}, unc, groups, PlanOptions{})
	assert.ErrorContains(t, err, "no resiliency project")
}
