package workbook

import (
	"github.com/leapstack-labs/rdrkit/internal/tabular"
)

// Uncertainty is the UncertaintyParameters tab: the values each run dimension may take.
type Uncertainty struct {
	Hazards        []string
	RecoveryStages []string
	Socio          []string
	Elasticities   []string
	ProjectGroups  []string

	Table *tabular.Table
}

// ProjectGroup assigns a resilience project to a project group.
type ProjectGroup struct {
	Group   string
	Project string
}

// Hazard is one row of the Hazards tab.
type Hazard struct {
	Event       string
	Filename    string
	Dim1        string
	Dim2        string
	Probability string
}

// ReadUncertainty reads the UncertaintyParameters tab.
func (w *Workbook) ReadUncertainty() (*Uncertainty, error) {
	t, err := w.Sheet(SheetUncertainty, UncertaintyColumns...)
	if err != nil {
		return nil, err
	}
	return &Uncertainty{
		Hazards:        distinct(t, ColHazardEvents),
		RecoveryStages: distinct(t, ColRecoveryStages),
		Socio:          distinct(t, ColEconomicScenarios),
		Elasticities:   distinct(t, ColElasticities),
		ProjectGroups:  distinct(t, ColProjectGroups),
		Table:          t,
	}, nil
}

// ReadProjectGroups reads the ProjectGroups tab. Rows missing either value are skipped.
func (w *Workbook) ReadProjectGroups() ([]ProjectGroup, error) {
	t, err := w.Sheet(SheetProjectGroups, ProjectGroupColumns...)
	if err != nil {
		return nil, err
	}
	var out []ProjectGroup
	for r := 0; r < t.Len(); r++ {
		g, p := t.Value(r, ColProjectGroups), t.Value(r, ColResilProjects)
		if g == "" || p == "" {
			continue
		}
		out = append(out, ProjectGroup{Group: g, Project: p})
	}
	return out, nil
}

// ReadHazards reads the Hazards tab.
func (w *Workbook) ReadHazards() ([]Hazard, error) {
	t, err := w.Sheet(SheetHazards, HazardColumns...)
	if err != nil {
		return nil, err
	}
	out := make([]Hazard, 0, t.Len())
	for r := 0; r < t.Len(); r++ {
		out = append(out, Hazard{
			Event:       t.Value(r, ColHazardEvent),
			Filename:    t.Value(r, ColFilename),
			Dim1:        t.Value(r, ColHazardDim1),
			Dim2:        t.Value(r, ColHazardDim2),
			Probability: t.Value(r, ColProbability),
		})
	}
	return out, nil
}

// HazardByEvent finds a hazard row by event name.
func HazardByEvent(hazards []Hazard, event string) (Hazard, bool) {
	for _, h := range hazards {
		if h.Event == event {
			return h, true
		}
	}
	return Hazard{}, false
}

// ProjectsInGroup returns the resilience projects of a project group.
func ProjectsInGroup(groups []ProjectGroup, group string) []string {
	var out []string
	for _, pg := range groups {
		if pg.Group == group {
			out = append(out, pg.Project)
		}
	}
	return out
}

// UserInputs is the UserInputs tab of UserInputs.xlsx.
type UserInputs struct {
	Hazards          []string
	Socio            []string
	Elasticities     []string
	ResilProjects    []string
	FrequencyFactors []string

	Table *tabular.Table
}

// ReadUserInputs reads the UserInputs tab.
func (w *Workbook) ReadUserInputs() (*UserInputs, error) {
	t, err := w.Sheet(SheetUserInputs, UserInputColumns...)
	if err != nil {
		return nil, err
	}
	return &UserInputs{
		Hazards:          distinct(t, ColHazardEvents),
		Socio:            distinct(t, ColEconomicScenarios),
		Elasticities:     distinct(t, ColElasticities),
		ResilProjects:    distinct(t, ColResilProjects),
		FrequencyFactors: nonBlank(t, ColFrequencyFactors),
		Table:            t,
	}, nil
}
