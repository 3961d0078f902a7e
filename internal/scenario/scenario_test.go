package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/rdrkit/pkg/core"
)

const sampleConfig = `
[common]
input_dir = inputs
output_dir = generated_files
run_id = SampleRun
start_year = 2020
end_year = 2050
base_year = 2019
future_year = 2050
dollar_year = 2019
discount_factor = 0.07
seed = 8888

[metamodel]
lhs_sample_target = 30
metamodel_type = multitarget
aeq_run_type = sp
run_minieq = False
allow_centroid_flows = yes

[disruption]
exposure_field = Value
exposure_unit = feet
link_availability_approach = binary
highest_zone_number = 42
resil_mitigation_approach = Binary

[recovery]
min_duration = 2.0
max_duration = 4.0
num_recovery_stages = 4
repair_cost_approach = Default
repair_time_approach = Default

[analysis]
roi_analysis_type = BCA
vehicle_occupancy = 1.53
veh_oc = 0.3
vot_per_hour = 17.28
maintenance = True
redeployment = False
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.config")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_SampleConfig(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	dir := filepath.Dir(path)

	cfg, err := Load(path, WithoutEnv())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "inputs"), cfg.Common.InputDir)
	assert.Equal(t, filepath.Join(dir, "generated_files"), cfg.Common.OutputDir)
	assert.Equal(t, "SampleRun", cfg.Common.RunID)
	assert.Equal(t, 2019, cfg.Common.BaseYear)
	assert.InDelta(t, 0.07, cfg.Common.DiscountFactor, 1e-9)

	assert.Equal(t, 30, cfg.Metamodel.LHSSampleTarget)
	assert.Equal(t, core.AEQShortestPath, cfg.Metamodel.AEQRunType)
	assert.False(t, cfg.Metamodel.RunMiniEq)
	assert.True(t, cfg.Metamodel.AllowCentroidFlows)

	assert.Equal(t, core.AvailabilityBinary, cfg.Disruption.LinkAvailabilityApproach)
	assert.Equal(t, core.MitigationBinary, cfg.Disruption.ResilMitigationApproach)
	assert.Equal(t, core.BetaLowerCumulative, cfg.Disruption.BetaMethod)
	assert.Equal(t, 43, cfg.ZoneConnectorLimit())

	assert.True(t, cfg.Analysis.Maintenance)
	assert.False(t, cfg.Analysis.Redeployment)
	assert.True(t, cfg.Recovery.UsesDefaultRepairTables())
	assert.Equal(t, filepath.Join(dir, "generated_files", "logs"), cfg.LogDir())
	assert.Equal(t, path, cfg.Path)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path, WithoutEnv())
	require.NoError(t, err)

	assert.Equal(t, "TAZ", cfg.EquityOverlay.TAZColName)
	assert.Equal(t, "category", cfg.EquityOverlay.EquityColName)
	assert.InDelta(t, 0.5, cfg.TransitConnector.MaxConnectorDistance, 1e-9)
	assert.InDelta(t, 1.0, cfg.TravelCost.NoCarTollFactor, 1e-9)
	assert.Equal(t, "Rural Flat", cfg.Recovery.RepairNetworkType)
	assert.Empty(t, cfg.EquityAnalysis.EquityAnalysisFile)
}

func TestLoad_EveryKeyHasValueOrDefault(t *testing.T) {
	for _, f := range Schema {
		if f.Required || f.RequiredWhen != nil {
			continue
		}
		if f.Kind == KindPath {
			continue
		}
		assert.NotEmpty(t, f.Default, "%s has neither a default nor a requirement", f.Name())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.config"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
	assert.Contains(t, err.Error(), "nope.config")
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("RDR_COMMON__RUN_ID", "FromEnv")
	t.Setenv("RDR_DISRUPTION__HIGHEST_ZONE_NUMBER", "100")
	t.Setenv("RDR_OUTPUT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "FromEnv", cfg.Common.RunID)
	assert.Equal(t, 101, cfg.ZoneConnectorLimit())
}

func TestRead_Problems(t *testing.T) {
	tests := []struct {
		name     string
		replace  [2]string
		section  string
		key      string
		contains string
	}{
		{
			name:     "discount factor is a fraction",
			replace:  [2]string{"discount_factor = 0.07", "discount_factor = 7"},
			section:  "common",
			key:      "discount_factor",
			contains: "<= 1",
		},
		{
			name:     "negative discount factor",
			replace:  [2]string{"discount_factor = 0.07", "discount_factor = -0.1"},
			section:  "common",
			key:      "discount_factor",
			contains: ">= 0",
		},
		{
			name:     "year must be an integer",
			replace:  [2]string{"base_year = 2019", "base_year = twenty"},
			section:  "common",
			key:      "base_year",
			contains: "must be an integer",
		},
		{
			name:     "unknown approach",
			replace:  [2]string{"link_availability_approach = binary", "link_availability_approach = Linear"},
			section:  "disruption",
			key:      "link_availability_approach",
			contains: "must be one of",
		},
		{
			name:     "boolean spelling",
			replace:  [2]string{"maintenance = True", "maintenance = maybe"},
			section:  "analysis",
			key:      "maintenance",
			contains: "must be a boolean",
		},
		{
			name:     "start after end",
			replace:  [2]string{"start_year = 2020", "start_year = 2060"},
			section:  "common",
			key:      "start_year",
			contains: "must not exceed end_year",
		},
		{
			name:     "min duration after max",
			replace:  [2]string{"min_duration = 2.0", "min_duration = 9"},
			section:  "recovery",
			key:      "min_duration",
			contains: "must not exceed max_duration",
		},
		{
			name:     "missing run id",
			replace:  [2]string{"run_id = SampleRun", "run_id ="},
			section:  "common",
			key:      "run_id",
			contains: "is required",
		},
		{
			name:     "manual approach needs a table",
			replace:  [2]string{"link_availability_approach = binary", "link_availability_approach = Manual"},
			section:  "disruption",
			key:      "link_availability_csv",
			contains: "is required",
		},
		{
			name:     "user-defined repair cost needs a table",
			replace:  [2]string{"repair_cost_approach = Default", "repair_cost_approach = user-defined"},
			section:  "recovery",
			key:      "repair_cost_csv",
			contains: "is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := strings.Replace(sampleConfig, tt.replace[0], tt.replace[1], 1)
			require.NotEqual(t, sampleConfig, body, "replacement did not apply")

			doc, err := Read(writeConfig(t, body), WithoutEnv())
			require.NoError(t, err)
			require.True(t, doc.Problems.HasErrors())

			var found bool
			for _, p := range doc.Problems.Errors() {
				if p.Section == tt.section && p.Key == tt.key {
					assert.Contains(t, p.Message, tt.contains)
					found = true
				}
			}
			assert.True(t, found, "no problem for %s.%s in %v", tt.section, tt.key, doc.Problems)

			_, err = Load(writeConfig(t, body), WithoutEnv())
			require.Error(t, err)
			var ps Problems
			assert.ErrorAs(t, err, &ps)
		})
	}
}

func TestRead_CollectsEveryProblem(t *testing.T) {
	body := strings.NewReplacer(
		"discount_factor = 0.07", "discount_factor = abc",
		"seed = 8888", "seed = 1.5",
		"exposure_unit = feet", "exposure_unit = furlongs",
	).Replace(sampleConfig)

	doc, err := Read(writeConfig(t, body), WithoutEnv())
	require.NoError(t, err)
	assert.Len(t, doc.Problems.Errors(), 3)
	assert.Contains(t, doc.Problems.Error(), "3 configuration error(s)")
}

func TestRead_BetaApproach(t *testing.T) {
	beta := strings.Replace(sampleConfig, "link_availability_approach = binary",
		"link_availability_approach = beta_distribution_function\nalpha = 2\nbeta = 0\nlower_bound = 5\nupper_bound = 1\nbeta_method = Upper Cumulative", 1)

	doc, err := Read(writeConfig(t, beta), WithoutEnv())
	require.NoError(t, err)

	var keys []string
	for _, p := range doc.Problems.Errors() {
		keys = append(keys, p.Key)
	}
	assert.ElementsMatch(t, []string{"beta", "lower_bound"}, keys)
	assert.Equal(t, core.BetaUpperCumulative, doc.Config.Disruption.BetaMethod)
	assert.Equal(t, core.AvailabilityBeta, doc.Config.Disruption.LinkAvailabilityApproach)
}

func TestRead_BoundsOnlyCheckedForBetaApproach(t *testing.T) {
	body := strings.Replace(sampleConfig, "link_availability_approach = binary",
		"link_availability_approach = binary\nlower_bound = 0\nupper_bound = 0", 1)

	cfg, err := Load(writeConfig(t, body), WithoutEnv())
	require.NoError(t, err)
	assert.Equal(t, core.AvailabilityBinary, cfg.Disruption.LinkAvailabilityApproach)
	assert.Zero(t, cfg.Disruption.UpperBound)
}

func TestRead_WindowsPathsWithTrailingBackslash(t *testing.T) {
	body := strings.Replace(sampleConfig,
		"input_dir = inputs\noutput_dir = generated_files\nrun_id = SampleRun",
		`input_dir = C:\RDR\Data\`+"\n"+`output_dir = C:\RDR\Out\`+"\nrun_id = R1", 1)
	require.Contains(t, body, `C:\RDR\Out\`)

	doc, err := Read(writeConfig(t, body), WithoutEnv())
	require.NoError(t, err)
	assert.False(t, doc.Problems.HasErrors(), doc.Problems.Error())
	assert.Equal(t, "R1", doc.Config.Common.RunID)
	assert.True(t, strings.HasSuffix(doc.Config.Common.InputDir, `C:\RDR\Data\`), doc.Config.Common.InputDir)
	assert.True(t, strings.HasSuffix(doc.Config.Common.OutputDir, `C:\RDR\Out\`), doc.Config.Common.OutputDir)
}

func TestRead_BlankOptionalValues(t *testing.T) {
	body := strings.Replace(sampleConfig, "[analysis]", "[travel_cost]\nvalue_of_time =\n\n[equity_analysis]\nequity_analysis_file =\n\n[analysis]", 1)

	doc, err := Read(writeConfig(t, body), WithoutEnv())
	require.NoError(t, err)
	assert.False(t, doc.Problems.HasErrors(), doc.Problems.Error())
	assert.InDelta(t, 17.0, doc.Config.TravelCost.ValueOfTime, 1e-9)
	assert.Empty(t, doc.Config.EquityAnalysis.EquityAnalysisFile)
}

func TestRead_UnknownKeysAreWarnings(t *testing.T) {
	body := "stray = 1\n" + sampleConfig + "\n[common]\ncomment = hello\n"

	doc, err := Read(writeConfig(t, body), WithoutEnv())
	require.NoError(t, err)
	assert.False(t, doc.Problems.HasErrors())

	warnings := doc.Problems.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "common", warnings[0].Section)
	assert.Equal(t, "comment", warnings[0].Key)
	assert.Equal(t, "default", warnings[1].Section)
	assert.NoError(t, doc.Problems.Err())
}

func TestRead_CaseInsensitiveNames(t *testing.T) {
	body := strings.NewReplacer("[common]", "[COMMON]", "run_id", "RUN_ID").Replace(sampleConfig)

	cfg, err := Load(writeConfig(t, body), WithoutEnv())
	require.NoError(t, err)
	assert.Equal(t, "SampleRun", cfg.Common.RunID)
}

func TestFlatten(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig), WithoutEnv())
	require.NoError(t, err)

	flat, err := Flatten(cfg)
	require.NoError(t, err)
	assert.Equal(t, "SampleRun", flat["common.run_id"])
	assert.Equal(t, 42, flat["disruption.highest_zone_number"])
	assert.NotContains(t, flat, "path")

	keys := SortedKeys(flat)
	require.NotEmpty(t, keys)
	assert.Equal(t, "common.input_dir", keys[0])
	assert.Len(t, keys, len(Schema))
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "disruption.alpha", envKey("RDR_DISRUPTION__ALPHA"))
	assert.Equal(t, "common.run_id", envKey("RDR_COMMON__RUN_ID"))
	assert.Empty(t, envKey("RDR_OUTPUT"))
	assert.Empty(t, envKey("RDR___X"))
}
