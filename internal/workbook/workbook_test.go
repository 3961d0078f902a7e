package workbook

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/rdrkit/internal/testutil"
)

func TestModelParameters(t *testing.T) {
	s := testutil.NewScenario(t)

	wb, err := Open(s.Path(ModelParametersFile))
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{SheetUncertainty, SheetProjectGroups, SheetHazards}, wb.Sheets())

	u, err := wb.ReadUncertainty()
	require.NoError(t, err)
	assert.Equal(t, []string{"100yr", "500yr"}, u.Hazards)
	assert.Equal(t, []string{"0", "2"}, u.RecoveryStages)
	assert.Equal(t, []string{"base"}, u.Socio)
	assert.Equal(t, []string{"-0.5"}, u.Elasticities)
	assert.Equal(t, []string{"01"}, u.ProjectGroups)

	groups, err := wb.ReadProjectGroups()
	require.NoError(t, err)
	assert.Equal(t, []ProjectGroup{{Group: "01", Project: "no"}, {Group: "01", Project: "P1"}}, groups)
	assert.Equal(t, []string{"no", "P1"}, ProjectsInGroup(groups, "01"))
	assert.Empty(t, ProjectsInGroup(groups, "02"))

	hazards, err := wb.ReadHazards()
	require.NoError(t, err)
	require.Len(t, hazards, 2)
	h, ok := HazardByEvent(hazards, "500yr")
	require.True(t, ok)
	assert.Equal(t, "flood500", h.Filename)
	assert.Equal(t, "0.002", h.Probability)
	_, ok = HazardByEvent(hazards, "1000yr")
	assert.False(t, ok)
}

func TestUserInputs(t *testing.T) {
	s := testutil.NewScenario(t)

	wb, err := Open(s.Path(UserInputsFile))
	require.NoError(t, err)
	defer wb.Close()

	ui, err := wb.ReadUserInputs()
	require.NoError(t, err)
	assert.Equal(t, []string{"100yr", "500yr"}, ui.Hazards)
	assert.Equal(t, []string{"base"}, ui.Socio)
	assert.Equal(t, []string{"P1", "no"}, ui.ResilProjects)
	assert.Equal(t, []string{"1", "0.5"}, ui.FrequencyFactors)
}

func TestSheetErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	testutil.WriteWorkbook(t, path, testutil.Sheet{
		Name:   SheetUncertainty,
		Header: []string{"Hazard Events", "Recovery Stages"},
		Rows:   [][]string{{"100yr", "0"}},
	})

	wb, err := Open(path)
	require.NoError(t, err)
	defer wb.Close()

	_, err = wb.ReadUncertainty()
	var ce *ColumnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{ColEconomicScenarios, ColElasticities, ColProjectGroups}, ce.Columns)
	assert.Contains(t, err.Error(), "UncertaintyParameters tab is missing required column(s)")

	_, err = wb.ReadHazards()
	var se *SheetError
	require.ErrorAs(t, err, &se)
	assert.True(t, IsSheetError(err))
	assert.Equal(t, "broken.xlsx: Hazards tab could not be found", err.Error())
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open workbook")
}
