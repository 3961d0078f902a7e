// Package scenario loads and validates RDR scenario configuration files.
//
// A scenario is described by an INI-style .config file with the sections
// common, metamodel, disruption, recovery, analysis, equity_overlay,
// equity_analysis, transit_connector and travel_cost. Every key the engine
// reads is declared in Schema, together with its kind, default and bounds.
package scenario

import (
	"path/filepath"

	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// Config is a fully decoded scenario configuration.
type Config struct {
	Common           Common           `koanf:"common"`
	Metamodel        Metamodel        `koanf:"metamodel"`
	Disruption       Disruption       `koanf:"disruption"`
	Recovery         Recovery         `koanf:"recovery"`
	Analysis         Analysis         `koanf:"analysis"`
	EquityOverlay    EquityOverlay    `koanf:"equity_overlay"`
	EquityAnalysis   EquityAnalysis   `koanf:"equity_analysis"`
	TransitConnector TransitConnector `koanf:"transit_connector"`
	TravelCost       TravelCost       `koanf:"travel_cost"`

	// Path is the absolute path of the file the configuration was read from.
	Path string `koanf:"-"`
}

// Common holds run-wide settings.
type Common struct {
	InputDir       string  `koanf:"input_dir"`
	OutputDir      string  `koanf:"output_dir"`
	RunID          string  `koanf:"run_id"`
	StartYear      int     `koanf:"start_year"`
	EndYear        int     `koanf:"end_year"`
	BaseYear       int     `koanf:"base_year"`
	FutureYear     int     `koanf:"future_year"`
	DollarYear     int     `koanf:"dollar_year"`
	DiscountFactor float64 `koanf:"discount_factor"`
	Seed           int     `koanf:"seed"`
}

// Metamodel holds sampling and regression settings.
type Metamodel struct {
	LHSSampleTarget    int             `koanf:"lhs_sample_target"`
	LHSSampleAdditions int             `koanf:"lhs_sample_additions"`
	MetamodelType      string          `koanf:"metamodel_type"`
	AEQRunType         core.AEQRunType `koanf:"aeq_run_type"`
	RunMiniEq          bool            `koanf:"run_minieq"`
	AllowCentroidFlows bool            `koanf:"allow_centroid_flows"`
	CalcTransitMetrics bool            `koanf:"calc_transit_metrics"`
}

// Disruption holds the exposure to link availability settings.
type Disruption struct {
	ExposureField            string                        `koanf:"exposure_field"`
	ExposureUnit             string                        `koanf:"exposure_unit"`
	LinkAvailabilityApproach core.LinkAvailabilityApproach `koanf:"link_availability_approach"`
	LinkAvailabilityCSV      string                        `koanf:"link_availability_csv"`
	Alpha                    float64                       `koanf:"alpha"`
	Beta                     float64                       `koanf:"beta"`
	LowerBound               float64                       `koanf:"lower_bound"`
	UpperBound               float64                       `koanf:"upper_bound"`
	BetaMethod               core.BetaMethod               `koanf:"beta_method"`
	HighestZoneNumber        int                           `koanf:"highest_zone_number"`
	ResilMitigationApproach  core.MitigationApproach       `koanf:"resil_mitigation_approach"`
}

// Recovery holds damage and repair settings.
type Recovery struct {
	MinDuration            float64 `koanf:"min_duration"`
	MaxDuration            float64 `koanf:"max_duration"`
	NumRecoveryStages      int     `koanf:"num_recovery_stages"`
	ExposureDamageApproach string  `koanf:"exposure_damage_approach"`
	ExposureDamageCSV      string  `koanf:"exposure_damage_csv"`
	RepairCostApproach     string  `koanf:"repair_cost_approach"`
	RepairNetworkType      string  `koanf:"repair_network_type"`
	RepairCostCSV          string  `koanf:"repair_cost_csv"`
	RepairTimeApproach     string  `koanf:"repair_time_approach"`
	RepairTimeCSV          string  `koanf:"repair_time_csv"`
}

// UsesDefaultRepairTables reports whether either repair table comes from the built-in defaults.
func (r Recovery) UsesDefaultRepairTables() bool {
	return r.RepairCostApproach == core.RepairDefault || r.RepairTimeApproach == core.RepairDefault
}

// Analysis holds the return-on-investment settings.
type Analysis struct {
	ROIAnalysisType  core.ROIAnalysisType `koanf:"roi_analysis_type"`
	VehicleOccupancy float64              `koanf:"vehicle_occupancy"`
	VehOC            float64              `koanf:"veh_oc"`
	VOTPerHour       float64              `koanf:"vot_per_hour"`
	Maintenance      bool                 `koanf:"maintenance"`
	Redeployment     bool                 `koanf:"redeployment"`
}

// EquityOverlay holds the equity overlay helper settings.
type EquityOverlay struct {
	TAZFeature    string `koanf:"taz_feature"`
	TAZColName    string `koanf:"taz_col_name"`
	EquityFeature string `koanf:"equity_feature"`
	EquityColName string `koanf:"equity_col_name"`
	OutputName    string `koanf:"output_name"`
}

// EquityAnalysis holds the equity analysis settings.
type EquityAnalysis struct {
	EquityAnalysisFile string `koanf:"equity_analysis_file"`
	RunEquityMeta      bool   `koanf:"run_equity_meta"`
}

// TransitConnector holds the transit connector helper settings.
type TransitConnector struct {
	TransitNodesFile     string  `koanf:"transit_nodes_file"`
	TransitLinksFile     string  `koanf:"transit_links_file"`
	MaxConnectorDistance float64 `koanf:"max_connector_distance"`
}

// TravelCost holds the travel time and toll helper settings.
type TravelCost struct {
	ValueOfTime     float64 `koanf:"value_of_time"`
	NoCarTollFactor float64 `koanf:"nocar_toll_factor"`
	NoCarTimeFactor float64 `koanf:"nocar_time_factor"`
}

// ZoneConnectorLimit returns the node id below which nodes are zone centroids.
// Links touching a centroid are zone connectors and are never disrupted.
func (c *Config) ZoneConnectorLimit() int {
	return c.Disruption.HighestZoneNumber + 1
}

// Dir returns the directory holding the configuration file.
func (c *Config) Dir() string {
	if c.Path == "" {
		return "."
	}
	return filepath.Dir(c.Path)
}

// LogDir returns the directory log files are written to.
func (c *Config) LogDir() string {
	return filepath.Join(c.Common.OutputDir, "logs")
}

// StatePath returns the run history database path.
func (c *Config) StatePath() string {
	return filepath.Join(c.Common.OutputDir, ".rdr", "state.db")
}
