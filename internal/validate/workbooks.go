package validate

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/rdrkit/internal/tabular"
	"github.com/leapstack-labs/rdrkit/internal/workbook"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

func (r *run) checkModelParameters() {
	path := filepath.Join(r.inputDir, workbook.ModelParametersFile)
	if _, err := os.Stat(path); err != nil {
		r.errorf(CategoryModelParameters, "%s could not be found", path)
		r.modelParamsBroken, r.projectsBroken, r.hazardsBroken = true, true, true
		return
	}
	wb, err := workbook.Open(path)
	if err != nil {
		r.errorf(CategoryModelParameters, "%v", err)
		r.modelParamsBroken, r.projectsBroken, r.hazardsBroken = true, true, true
		return
	}
	defer wb.Close()

	// UncertaintyParameters
	unc, err := wb.ReadUncertainty()
	if err != nil {
		r.errorf(CategoryModelParameters, "%v", err)
		r.modelParamsBroken = true
	} else {
		r.uncertainty = unc
		for _, s := range unc.RecoveryStages {
			if v, err := strconv.ParseFloat(s, 64); err != nil || v < 0 {
				r.errorf(CategoryModelParameters, "recovery stages are not all nonnegative numbers (got %q)", s)
				break
			}
		}
		if bad := nonNumeric(unc.Elasticities); len(bad) > 0 {
			r.errorf(CategoryModelParameters, "trip loss elasticities could not be converted to numbers: %s", quoteList(bad))
		}
	}

	// ProjectGroups
	groups, err := wb.ReadProjectGroups()
	if err != nil {
		r.errorf(CategoryModelParameters, "%v", err)
		r.projectsBroken = true
	} else {
		r.groups = groups
		r.resil = distinctProjects(groups)

		if !r.modelParamsBroken {
			listed := make(map[string]bool)
			for _, g := range groups {
				listed[g.Group] = true
			}
			for _, g := range r.uncertainty.ProjectGroups {
				if !listed[g] {
					r.errorf(CategoryModelParameters, "no resilience projects found for project group %q on the %s tab", g, workbook.SheetProjectGroups)
				}
			}
		}

		owner := make(map[string]string)
		for _, g := range groups {
			if g.Project == core.NoProject {
				continue
			}
			if prev, ok := owner[g.Project]; ok && prev != g.Group {
				r.errorf(CategoryModelParameters, "resilience project %q is assigned to multiple project groups (%s, %s)", g.Project, prev, g.Group)
				continue
			}
			owner[g.Project] = g.Group
		}
	}

	// Hazards
	hazards, err := wb.ReadHazards()
	if err != nil {
		r.errorf(CategoryModelParameters, "%v", err)
		r.hazardsBroken = true
		return
	}
	r.hazards = hazards
	var dim1, dim2, prob []string
	for _, h := range hazards {
		if !isInt(h.Dim1) {
			dim1 = append(dim1, h.Dim1)
		}
		if !isInt(h.Dim2) {
			dim2 = append(dim2, h.Dim2)
		}
		if _, err := strconv.ParseFloat(h.Probability, 64); err != nil {
			prob = append(prob, h.Probability)
		}
	}
	if len(dim1) > 0 {
		r.errorf(CategoryModelParameters, "%s column could not be converted to integers: %s", workbook.ColHazardDim1, quoteList(dim1))
	}
	if len(dim2) > 0 {
		r.errorf(CategoryModelParameters, "%s column could not be converted to integers: %s", workbook.ColHazardDim2, quoteList(dim2))
	}
	if len(prob) > 0 {
		r.errorf(CategoryModelParameters, "%s column could not be converted to numbers: %s", workbook.ColProbability, quoteList(prob))
	} else if r.cfg.Analysis.ROIAnalysisType == core.ROIRegret {
		for _, h := range hazards {
			if v, _ := strconv.ParseFloat(h.Probability, 64); v != 1 {
				r.errorf(CategoryModelParameters, "%s column must be set to 1 for regret analysis", workbook.ColProbability)
				break
			}
		}
	}

	if r.modelParamsBroken {
		return
	}
	for _, event := range r.uncertainty.Hazards {
		if _, ok := workbook.HazardByEvent(hazards, event); !ok {
			r.errorf(CategoryModelParameters, "no row on the %s tab for hazard event %q", workbook.SheetHazards, event)
		}
	}
}

func (r *run) checkUserInputs() {
	path := filepath.Join(r.inputDir, workbook.UserInputsFile)
	if _, err := os.Stat(path); err != nil {
		r.errorf(CategoryUserInputs, "%s could not be found", path)
		return
	}
	wb, err := workbook.Open(path)
	if err != nil {
		r.errorf(CategoryUserInputs, "%v", err)
		return
	}
	defer wb.Close()

	ui, err := wb.ReadUserInputs()
	if err != nil {
		r.errorf(CategoryUserInputs, "%v", err)
		return
	}

	if bad := nonNumeric(ui.Elasticities); len(bad) > 0 {
		r.errorf(CategoryUserInputs, "trip loss elasticities could not be converted to numbers: %s", quoteList(bad))
	}
	for _, f := range ui.FrequencyFactors {
		if v, err := strconv.ParseFloat(f, 64); err != nil || v < 0 {
			r.errorf(CategoryUserInputs, "event frequency factors are not all nonnegative numbers (got %q)", f)
			break
		}
	}

	if r.modelParamsBroken || r.projectsBroken {
		r.warnf(CategoryUserInputs, "not comparing %s to %s, errors with %s",
			workbook.UserInputsFile, workbook.ModelParametersFile, workbook.ModelParametersFile)
		return
	}
	subset := []struct {
		name   string
		values []string
		within []string
		num    bool
	}{
		{workbook.ColHazardEvents, ui.Hazards, r.uncertainty.Hazards, false},
		{workbook.ColEconomicScenarios, ui.Socio, r.uncertainty.Socio, false},
		{workbook.ColElasticities, ui.Elasticities, r.uncertainty.Elasticities, true},
		{workbook.ColResilProjects, ui.ResilProjects, r.resil, false},
	}
	for _, s := range subset {
		if extra := missingFrom(s.values, s.within, s.num); len(extra) > 0 {
			r.errorf(CategoryUserInputs, "%s values not listed in %s: %s", s.name, workbook.ModelParametersFile, quoteList(extra))
		}
	}
}

func distinctProjects(groups []workbook.ProjectGroup) []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range groups {
		if !seen[g.Project] {
			seen[g.Project] = true
			out = append(out, g.Project)
		}
	}
	return out
}

// missingFrom returns values absent from within. Numeric comparison treats
// "-0.5" and "-0.50" as equal.
func missingFrom(values, within []string, numeric bool) []string {
	key := func(s string) string {
		if numeric {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				return strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		return s
	}
	set := make(map[string]bool, len(within))
	for _, w := range within {
		set[key(w)] = true
	}
	var out []string
	for _, v := range values {
		if !set[key(v)] {
			out = append(out, v)
		}
	}
	return out
}

func nonNumeric(values []string) []string {
	var bad []string
	for _, v := range values {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			bad = append(bad, v)
		}
	}
	return bad
}

func isInt(s string) bool {
	_, err := tabular.ParseInt(s)
	return err == nil
}

func quoteList(values []string) string {
	const limit = 5
	q := make([]string, 0, limit)
	for i, v := range values {
		if i == limit {
			q = append(q, "and "+strconv.Itoa(len(values)-limit)+" more")
			break
		}
		q = append(q, strconv.Quote(v))
	}
	return strings.Join(q, ", ")
}
