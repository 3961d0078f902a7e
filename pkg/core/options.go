package core

// LinkAvailabilityApproach selects how exposure converts to link availability.
type LinkAvailabilityApproach string

// Link availability approaches.
const (
	AvailabilityBinary       LinkAvailabilityApproach = "Binary"
	AvailabilityDefaultFlood LinkAvailabilityApproach = "Default_Flood_Exposure_Function"
	AvailabilityManual       LinkAvailabilityApproach = "Manual"
	AvailabilityBeta         LinkAvailabilityApproach = "Beta_Distribution_Function"
)

// MitigationApproach selects how resilience projects reduce exposure.
type MitigationApproach string

// Resilience mitigation approaches.
const (
	MitigationBinary MitigationApproach = "binary"
	MitigationManual MitigationApproach = "manual"
)

// FullMitigation is the exposure reduction that marks a link as fully protected.
const FullMitigation = 99999.0

// BetaMethod selects which tail of the beta CDF maps to availability.
type BetaMethod string

// Beta distribution methods.
const (
	BetaLowerCumulative BetaMethod = "lower cumulative"
	BetaUpperCumulative BetaMethod = "upper cumulative"
)

// ROIAnalysisType selects the return-on-investment analysis.
type ROIAnalysisType string

// ROI analysis types.
const (
	ROIBCA       ROIAnalysisType = "BCA"
	ROIRegret    ROIAnalysisType = "Regret"
	ROIBreakeven ROIAnalysisType = "Breakeven"
)

// Repair approaches for cost and duration tables.
const (
	RepairDefault     = "Default"
	RepairUserDefined = "User-Defined"
)

// AEQRunType selects the assignment outputs used for the metamodel.
type AEQRunType string

// Assignment run types: shortest path or routed.
const (
	AEQShortestPath AEQRunType = "SP"
	AEQRouted       AEQRunType = "RT"
)

// ProjectCategories lists the asset categories known to the default repair tables.
var ProjectCategories = []string{"Highway", "Bridge", "Transit"}
