package disruption

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/rdrkit/internal/scenario"
	"github.com/leapstack-labs/rdrkit/internal/tabular"
	"github.com/leapstack-labs/rdrkit/internal/testutil"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

func binarySettings() Settings {
	return Settings{
		ExposureField:      "Value",
		ExposureUnit:       "feet",
		Approach:           core.AvailabilityBinary,
		ZoneConnectorLimit: 3,
		Mitigation:         core.MitigationBinary,
	}
}

func runParams(resil, hazard, recovery string) core.RunParams {
	return core.RunParams{
		Socio: "base", ProjGroup: "01", Resil: resil, Elasticity: -0.5,
		Hazard: hazard, Recovery: recovery, MatrixName: core.MatrixCar,
	}
}

func byID(links []Link) map[int]Link {
	out := make(map[int]Link, len(links))
	for _, l := range links {
		out[l.LinkID] = l
	}
	return out
}

func TestCalculate_Binary(t *testing.T) {
	s := testutil.NewScenario(t)
	out := t.TempDir()
	c := NewCalculator(s.InputDir, binarySettings(), testutil.NewTestLogger(t))

	res, err := c.Calculate(context.Background(), runParams("P1", "100yr", "0"), out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "NP_Disrupt_P1_100yr_0.csv"), res.Path)

	require.Len(t, res.Links, 3, "duplicate link rows keep the first")
	links := byID(res.Links)

	assert.True(t, links[1].ZoneConn)
	assert.Equal(t, 1.0, links[1].LinkAvailable)

	assert.True(t, links[2].VulProject)
	assert.Equal(t, "P1", links[2].ProjectID)
	assert.Equal(t, core.FullMitigation, links[2].ExposureReduction)
	assert.Equal(t, 0.0, links[2].RecovValue)
	assert.Equal(t, 1.0, links[2].LinkAvailable)

	assert.Equal(t, 0.5, links[3].Exposure)
	assert.Equal(t, 0.0, links[3].LinkAvailable)

	tbl, err := tabular.Read(res.Path, "link_id", "Value", "ZoneConn", "Project ID", "Exposure Reduction", "VulProject", "recov_value", "link_available")
	require.NoError(t, err)
	assert.Equal(t, "1", tbl.Value(0, "ZoneConn"))
	assert.Equal(t, "P1", tbl.Value(1, "Project ID"))
	assert.Equal(t, "0", tbl.Value(2, "link_available"))
}

func TestCalculate_Baseline(t *testing.T) {
	s := testutil.NewScenario(t)
	c := NewCalculator(s.InputDir, binarySettings(), nil)

	res, err := c.Calculate(context.Background(), runParams(core.NoProject, "100yr", "0"), t.TempDir())
	require.NoError(t, err)
	links := byID(res.Links)

	assert.False(t, links[2].VulProject)
	assert.Equal(t, 2.5, links[2].RecovValue)
	assert.Equal(t, 0.0, links[2].LinkAvailable)
}

func TestCalculate_RecoveryDepth(t *testing.T) {
	s := testutil.NewScenario(t)
	c := NewCalculator(s.InputDir, binarySettings(), nil)

	res, err := c.Calculate(context.Background(), runParams(core.NoProject, "100yr", "2"), t.TempDir())
	require.NoError(t, err)
	links := byID(res.Links)

	assert.Equal(t, 0.5, links[2].RecovValue)
	assert.Equal(t, 0.0, links[2].LinkAvailable)
	assert.Equal(t, 0.0, links[3].RecovValue)
	assert.Equal(t, 1.0, links[3].LinkAvailable)
}

func TestCalculate_DefaultFlood(t *testing.T) {
	s := testutil.NewScenario(t)
	settings := binarySettings()
	settings.Approach = core.AvailabilityDefaultFlood

	res, err := NewCalculator(s.InputDir, settings, nil).Calculate(context.Background(), runParams(core.NoProject, "100yr", "0"), t.TempDir())
	require.NoError(t, err)
	links := byID(res.Links)

	assert.InDelta(t, 1-0.5*304.8/300, links[3].LinkAvailable, 1e-9)
	assert.Equal(t, 0.0, links[2].LinkAvailable)
}

func TestCalculate_ManualMitigation(t *testing.T) {
	s := testutil.NewScenario(t)
	s.WriteFile(t, "LookupTables/project_table.csv", testutil.Lines(
		"Project ID,link_id,Category,Exposure Reduction",
		"P1,2,Highway,1",
		"P1,3,Highway,",
		"P2,3,Highway,99999",
	))
	settings := binarySettings()
	settings.Mitigation = core.MitigationManual

	res, err := NewCalculator(s.InputDir, settings, nil).Calculate(context.Background(), runParams("P1", "100yr", "0"), t.TempDir())
	require.NoError(t, err)
	links := byID(res.Links)

	assert.Equal(t, 1.0, links[2].ExposureReduction)
	assert.Equal(t, 1.5, links[2].RecovValue)
	assert.Equal(t, 0.0, links[2].LinkAvailable, "partial mitigation keeps the link exposed")

	assert.True(t, links[3].VulProject)
	assert.Equal(t, 0.0, links[3].ExposureReduction, "blank reduction counts as none")
	assert.Equal(t, 0.0, links[3].LinkAvailable)
}

func TestCalculate_ManualFullMitigation(t *testing.T) {
	s := testutil.NewScenario(t)
	settings := binarySettings()
	settings.Mitigation = core.MitigationManual
	settings.Approach = core.AvailabilityDefaultFlood

	res, err := NewCalculator(s.InputDir, settings, nil).Calculate(context.Background(), runParams("P1", "500yr", "0"), t.TempDir())
	require.NoError(t, err)
	links := byID(res.Links)

	assert.Equal(t, 1.0, links[2].LinkAvailable)
	assert.Equal(t, 0.0, links[3].LinkAvailable)
	assert.Equal(t, 1.0, links[4].LinkAvailable, "no exposure leaves the link open")
}

func TestCalculate_Errors(t *testing.T) {
	t.Run("unknown hazard", func(t *testing.T) {
		s := testutil.NewScenario(t)
		_, err := NewCalculator(s.InputDir, binarySettings(), nil).Calculate(context.Background(), runParams("P1", "10yr", "0"), t.TempDir())
		assert.ErrorContains(t, err, `hazard "10yr"`)
	})

	t.Run("missing exposure file", func(t *testing.T) {
		s := testutil.NewScenario(t)
		s.Remove(t, "Hazards/flood100.csv")
		_, err := NewCalculator(s.InputDir, binarySettings(), nil).Calculate(context.Background(), runParams("P1", "100yr", "0"), t.TempDir())
		assert.ErrorContains(t, err, "exposure table not found")
	})

	t.Run("missing project table", func(t *testing.T) {
		s := testutil.NewScenario(t)
		s.Remove(t, "LookupTables/project_table.csv")
		_, err := NewCalculator(s.InputDir, binarySettings(), nil).Calculate(context.Background(), runParams("P1", "100yr", "0"), t.TempDir())
		assert.ErrorContains(t, err, "project table not found")
	})

	t.Run("missing exposure field", func(t *testing.T) {
		s := testutil.NewScenario(t)
		settings := binarySettings()
		settings.ExposureField = "Depth"
		_, err := NewCalculator(s.InputDir, settings, nil).Calculate(context.Background(), runParams("P1", "100yr", "0"), t.TempDir())
		var mc *tabular.MissingColumnsError
		require.ErrorAs(t, err, &mc)
		assert.Equal(t, []string{"Depth"}, mc.Columns)
	})

	t.Run("bad recovery", func(t *testing.T) {
		s := testutil.NewScenario(t)
		_, err := NewCalculator(s.InputDir, binarySettings(), nil).Calculate(context.Background(), runParams("P1", "100yr", "two"), t.TempDir())
		assert.Error(t, err)
	})
}

func TestSettingsFromConfig(t *testing.T) {
	s := testutil.NewScenario(t)
	cfg, err := scenario.Load(s.ConfigPath, scenario.WithoutEnv())
	require.NoError(t, err)

	settings := SettingsFromConfig(cfg)
	assert.Equal(t, "Value", settings.ExposureField)
	assert.Equal(t, core.AvailabilityBinary, settings.Approach)
	assert.Equal(t, core.MitigationBinary, settings.Mitigation)
	assert.Equal(t, 3, settings.ZoneConnectorLimit)
}
