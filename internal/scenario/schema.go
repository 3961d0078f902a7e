package scenario

import (
	"strconv"
	"strings"

	"github.com/knadh/koanf/v2"

	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// Kind is the value type of a configuration key.
type Kind int

// Supported key kinds.
const (
	KindString Kind = iota
	KindPath
	KindInt
	KindFloat
	KindBool
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindPath:
		return "path"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Bound is a numeric limit on a key's value.
type Bound struct {
	Value     float64
	Exclusive bool
}

func (b Bound) below(v float64) bool {
	if b.Exclusive {
		return v <= b.Value
	}
	return v < b.Value
}

func (b Bound) above(v float64) bool {
	if b.Exclusive {
		return v >= b.Value
	}
	return v > b.Value
}

// Field describes one key of a scenario configuration.
type Field struct {
	Section string
	Key     string
	Kind    Kind
	// Default is the raw value used when the key is absent. Empty means no default.
	Default  string
	Required bool
	// RequiredWhen makes the key required when it returns true for the loaded values.
	RequiredWhen func(k *koanf.Koanf) bool
	Options      []string
	Min          *Bound
	Max          *Bound
	Doc          string
}

// Name returns the section-qualified key, e.g. "common.input_dir".
func (f Field) Name() string {
	return f.Section + "." + f.Key
}

// IsRequired reports whether the key must carry a non-blank value.
func (f Field) IsRequired(k *koanf.Koanf) bool {
	if f.Required {
		return true
	}
	return f.RequiredWhen != nil && f.RequiredWhen(k)
}

func atLeast(v float64) *Bound { return &Bound{Value: v} }

func atMost(v float64) *Bound { return &Bound{Value: v} }

func above(v float64) *Bound { return &Bound{Value: v, Exclusive: true} }

func (b Bound) describe(op string) string {
	if !b.Exclusive {
		op += "="
	}
	return op + " " + strconv.FormatFloat(b.Value, 'g', -1, 64)
}

// optionIs returns a predicate matching an enum key case-insensitively.
func optionIs(name, option string) func(k *koanf.Koanf) bool {
	return func(k *koanf.Koanf) bool {
		return strings.EqualFold(strings.TrimSpace(k.String(name)), option)
	}
}

var (
	metamodelTypes = []string{"base", "interact", "projgroupLM", "multitarget", "mixedeffects"}
	exposureUnits  = []string{"feet", "ft", "foot", "yards", "yard", "meters", "m"}
	damageOptions  = []string{"Binary", "Default_Damage_Table", "Manual"}
	repairOptions  = []string{core.RepairDefault, core.RepairUserDefined}
	networkTypes   = []string{
		"Rural Flat", "Rural Rolling", "Rural Mountainous", "Small Urban",
		"Small Urbanized", "Large Urbanized", "Major Urbanized",
	}
)

// Schema lists every key the engine reads, in file order.
var Schema = []Field{
	// common
	{Section: "common", Key: "input_dir", Kind: KindPath, Required: true, Doc: "directory holding all scenario inputs"},
	{Section: "common", Key: "output_dir", Kind: KindPath, Required: true, Doc: "directory receiving run folders, logs and reports"},
	{Section: "common", Key: "run_id", Kind: KindString, Required: true, Doc: "label appended to run folders and output files"},
	{Section: "common", Key: "start_year", Kind: KindInt, Required: true, Min: atLeast(0), Doc: "first year of the analysis period"},
	{Section: "common", Key: "end_year", Kind: KindInt, Required: true, Min: atLeast(0), Doc: "last year of the analysis period"},
	{Section: "common", Key: "base_year", Kind: KindInt, Required: true, Min: atLeast(0), Doc: "year of the base year core model runs"},
	{Section: "common", Key: "future_year", Kind: KindInt, Required: true, Min: atLeast(0), Doc: "year of the future economic scenarios"},
	{Section: "common", Key: "dollar_year", Kind: KindInt, Default: "2020", Min: atLeast(0), Doc: "year all costs are expressed in"},
	{Section: "common", Key: "discount_factor", Kind: KindFloat, Default: "0.07", Min: atLeast(0), Max: atMost(1), Doc: "annual discount rate as a fraction"},
	{Section: "common", Key: "seed", Kind: KindInt, Default: "8888", Doc: "random seed shared by sampling steps"},

	// metamodel
	{Section: "metamodel", Key: "lhs_sample_target", Kind: KindInt, Default: "100", Min: atLeast(1), Doc: "number of Latin hypercube samples"},
	{Section: "metamodel", Key: "lhs_sample_additions", Kind: KindInt, Default: "0", Min: atLeast(0), Doc: "extra samples added to an existing design"},
	{Section: "metamodel", Key: "metamodel_type", Kind: KindEnum, Default: "multitarget", Options: metamodelTypes, Doc: "regression form of the metamodel"},
	{Section: "metamodel", Key: "aeq_run_type", Kind: KindEnum, Default: string(core.AEQShortestPath), Options: []string{string(core.AEQShortestPath), string(core.AEQRouted)}, Doc: "shortest path (SP) or routed (RT) assignment outputs"},
	{Section: "metamodel", Key: "run_minieq", Kind: KindBool, Default: "false", Doc: "run the mini-equilibrium assignment"},
	{Section: "metamodel", Key: "allow_centroid_flows", Kind: KindBool, Default: "true", Doc: "allow flows through zone centroids"},
	{Section: "metamodel", Key: "calc_transit_metrics", Kind: KindBool, Default: "false", Doc: "report transit trips separately"},

	// disruption
	{Section: "disruption", Key: "exposure_field", Kind: KindString, Default: "Value", Doc: "exposure column of the hazard CSV files"},
	{Section: "disruption", Key: "exposure_unit", Kind: KindEnum, Default: "feet", Options: exposureUnits, Doc: "unit of the exposure values"},
	{Section: "disruption", Key: "link_availability_approach", Kind: KindEnum, Default: string(core.AvailabilityBinary), Options: []string{
		string(core.AvailabilityBinary), string(core.AvailabilityDefaultFlood), string(core.AvailabilityManual), string(core.AvailabilityBeta),
	}, Doc: "function converting exposure to link availability"},
	{Section: "disruption", Key: "link_availability_csv", Kind: KindPath, RequiredWhen: optionIs("disruption.link_availability_approach", string(core.AvailabilityManual)), Doc: "exposure ranges and availability for the Manual approach"},
	{Section: "disruption", Key: "alpha", Kind: KindFloat, Min: above(0), RequiredWhen: optionIs("disruption.link_availability_approach", string(core.AvailabilityBeta)), Doc: "alpha shape parameter of the beta distribution"},
	{Section: "disruption", Key: "beta", Kind: KindFloat, Min: above(0), RequiredWhen: optionIs("disruption.link_availability_approach", string(core.AvailabilityBeta)), Doc: "beta shape parameter of the beta distribution"},
	{Section: "disruption", Key: "lower_bound", Kind: KindFloat, RequiredWhen: optionIs("disruption.link_availability_approach", string(core.AvailabilityBeta)), Doc: "exposure where the beta distribution starts"},
	{Section: "disruption", Key: "upper_bound", Kind: KindFloat, RequiredWhen: optionIs("disruption.link_availability_approach", string(core.AvailabilityBeta)), Doc: "exposure where the beta distribution ends"},
	{Section: "disruption", Key: "beta_method", Kind: KindEnum, Default: string(core.BetaLowerCumulative), Options: []string{string(core.BetaLowerCumulative), string(core.BetaUpperCumulative)}, Doc: "tail of the beta CDF mapped to availability"},
	{Section: "disruption", Key: "highest_zone_number", Kind: KindInt, Default: "0", Min: atLeast(0), Doc: "largest centroid node id"},
	{Section: "disruption", Key: "resil_mitigation_approach", Kind: KindEnum, Default: string(core.MitigationBinary), Options: []string{string(core.MitigationBinary), string(core.MitigationManual)}, Doc: "how resilience projects reduce exposure"},

	// recovery
	{Section: "recovery", Key: "min_duration", Kind: KindFloat, Default: "0", Min: atLeast(0), Doc: "shortest initial hazard duration in days"},
	{Section: "recovery", Key: "max_duration", Kind: KindFloat, Default: "0", Min: atLeast(0), Doc: "longest initial hazard duration in days"},
	{Section: "recovery", Key: "num_recovery_stages", Kind: KindInt, Default: "4", Min: atLeast(1), Doc: "number of recovery stages after the event"},
	{Section: "recovery", Key: "exposure_damage_approach", Kind: KindEnum, Default: "Binary", Options: damageOptions, Doc: "function converting exposure to damage"},
	{Section: "recovery", Key: "exposure_damage_csv", Kind: KindPath, RequiredWhen: optionIs("recovery.exposure_damage_approach", "Manual"), Doc: "exposure ranges and damage for the Manual approach"},
	{Section: "recovery", Key: "repair_cost_approach", Kind: KindEnum, Default: core.RepairDefault, Options: repairOptions, Doc: "source of the repair cost table"},
	{Section: "recovery", Key: "repair_network_type", Kind: KindEnum, Default: "Rural Flat", Options: networkTypes, Doc: "network type used by the default repair tables"},
	{Section: "recovery", Key: "repair_cost_csv", Kind: KindPath, RequiredWhen: optionIs("recovery.repair_cost_approach", core.RepairUserDefined), Doc: "user-defined repair cost table"},
	{Section: "recovery", Key: "repair_time_approach", Kind: KindEnum, Default: core.RepairDefault, Options: repairOptions, Doc: "source of the repair time table"},
	{Section: "recovery", Key: "repair_time_csv", Kind: KindPath, RequiredWhen: optionIs("recovery.repair_time_approach", core.RepairUserDefined), Doc: "user-defined repair time table"},

	// analysis
	{Section: "analysis", Key: "roi_analysis_type", Kind: KindEnum, Default: string(core.ROIBCA), Options: []string{string(core.ROIBCA), string(core.ROIRegret), string(core.ROIBreakeven)}, Doc: "return-on-investment analysis to run"},
	{Section: "analysis", Key: "vehicle_occupancy", Kind: KindFloat, Default: "1.5", Min: above(0), Doc: "persons per vehicle"},
	{Section: "analysis", Key: "veh_oc", Kind: KindFloat, Default: "0.3", Min: atLeast(0), Doc: "vehicle operating cost per mile"},
	{Section: "analysis", Key: "vot_per_hour", Kind: KindFloat, Default: "17.0", Min: atLeast(0), Doc: "value of time per person hour"},
	{Section: "analysis", Key: "maintenance", Kind: KindBool, Default: "false", Doc: "include project maintenance costs"},
	{Section: "analysis", Key: "redeployment", Kind: KindBool, Default: "false", Doc: "include project redeployment costs"},

	// equity_overlay
	{Section: "equity_overlay", Key: "taz_feature", Kind: KindPath, Doc: "TAZ polygon feature file"},
	{Section: "equity_overlay", Key: "taz_col_name", Kind: KindString, Default: "TAZ", Doc: "TAZ id column of the TAZ feature"},
	{Section: "equity_overlay", Key: "equity_feature", Kind: KindPath, Doc: "equity polygon feature file"},
	{Section: "equity_overlay", Key: "equity_col_name", Kind: KindString, Default: "category", Doc: "category column of the equity feature"},
	{Section: "equity_overlay", Key: "output_name", Kind: KindString, Default: "equity_overlay", Doc: "base name of the overlay output"},

	// equity_analysis
	{Section: "equity_analysis", Key: "equity_analysis_file", Kind: KindPath, Doc: "TAZ to equity category lookup"},
	{Section: "equity_analysis", Key: "run_equity_meta", Kind: KindBool, Default: "false", Doc: "fit a separate metamodel per equity category"},

	// transit_connector
	{Section: "transit_connector", Key: "transit_nodes_file", Kind: KindPath, Doc: "GTFS-derived transit node table"},
	{Section: "transit_connector", Key: "transit_links_file", Kind: KindPath, Doc: "GTFS-derived transit link table"},
	{Section: "transit_connector", Key: "max_connector_distance", Kind: KindFloat, Default: "0.5", Min: above(0), Doc: "longest walk connector in miles"},

	// travel_cost
	{Section: "travel_cost", Key: "value_of_time", Kind: KindFloat, Default: "17.0", Min: atLeast(0), Doc: "value of time used to convert tolls to minutes"},
	{Section: "travel_cost", Key: "nocar_toll_factor", Kind: KindFloat, Default: "1.0", Min: atLeast(0), Doc: "toll multiplier for the no-car matrix"},
	{Section: "travel_cost", Key: "nocar_time_factor", Kind: KindFloat, Default: "1.0", Min: atLeast(0), Doc: "travel time multiplier for the no-car matrix"},
}

// Sections lists the configuration sections in file order.
func Sections() []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range Schema {
		if !seen[f.Section] {
			seen[f.Section] = true
			out = append(out, f.Section)
		}
	}
	return out
}

// Lookup finds a field by its section-qualified name.
func Lookup(name string) (Field, bool) {
	for _, f := range Schema {
		if f.Name() == name {
			return f, true
		}
	}
	return Field{}, false
}

// Defaults returns the schema defaults keyed by section-qualified name.
func Defaults() map[string]interface{} {
	out := make(map[string]interface{})
	for _, f := range Schema {
		if f.Default != "" {
			out[f.Name()] = f.Default
		}
	}
	return out
}
