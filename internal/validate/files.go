package validate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/leapstack-labs/rdrkit/internal/aeqdb"
	"github.com/leapstack-labs/rdrkit/internal/disruption"
	"github.com/leapstack-labs/rdrkit/internal/omx"
	"github.com/leapstack-labs/rdrkit/internal/singlerun"
	"github.com/leapstack-labs/rdrkit/internal/tabular"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// Input file names checked beyond those owned by other packages.
const (
	NodeFile        = "node.csv"
	ProjectInfoFile = "project_info.csv"
)

var (
	nodeColumns        = []string{"node_id", "x_coord", "y_coord", "node_type"}
	baseYearColumns    = []string{"hazard", "recovery", "trips", "miles", "hours"}
	projectInfoColumns = []string{"Project ID", "Project Name", "Asset", "Project Cost", "Project Lifespan", "Annual Maintenance Cost"}

	linkIntColumns   = []string{"link_id", "from_node_id", "to_node_id", "lanes"}
	linkFloatColumns = []string{"length", "capacity", "free_speed", "toll", "travel_time"}
	noCarColumns     = []string{"toll_nocar", "travel_time_nocar"}
)

// readTable loads a CSV and reports a missing file or missing columns.
// It returns nil when the table cannot be checked further.
func (r *run) readTable(c Category, path, what string, required ...string) *tabular.Table {
	t, err := tabular.Read(path, required...)
	var mc *tabular.MissingColumnsError
	switch {
	case errors.Is(err, os.ErrNotExist):
		r.errorf(c, "%s could not be found: %s", what, path)
		return nil
	case errors.As(err, &mc):
		r.errorf(c, "%s is missing required column(s): %s", what, strings.Join(mc.Columns, ", "))
		return nil
	case err != nil:
		r.errorf(c, "%s could not be read: %v", what, err)
		return nil
	}
	return t
}

func (r *run) intColumn(c Category, t *tabular.Table, col, what string) []int {
	v, err := t.Ints(col)
	if err != nil {
		r.errorf(c, "column %s could not be converted to integers %s", col, what)
		return nil
	}
	return v
}

func (r *run) floatColumn(c Category, t *tabular.Table, col, what string) []float64 {
	v, err := t.RequiredFloats(col)
	if err != nil {
		r.errorf(c, "column %s could not be converted to numbers %s", col, what)
		return nil
	}
	return v
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (r *run) checkExposure() {
	dir := filepath.Join(r.inputDir, "Hazards")
	if !isDir(dir) {
		r.errorf(CategoryExposure, "Hazards directory for exposure analysis files does not exist")
		return
	}
	if r.hazardsBroken {
		r.warnf(CategoryExposure, "not validating exposure analysis files, errors with the Hazards tab")
		return
	}

	field := r.cfg.Disruption.ExposureField
	for _, h := range r.hazards {
		path := disruption.ExposureTable(r.inputDir, h.Filename)
		if !exists(path) {
			r.errorf(CategoryExposure, "no exposure analysis file is present for hazard %s", h.Event)
			continue
		}
		what := "for hazard " + h.Event
		t := r.readTable(CategoryExposure, path, "exposure file "+what, "link_id", "A", "B", field)
		if t == nil {
			continue
		}
		for _, col := range []string{"link_id", "A", "B"} {
			r.intColumn(CategoryExposure, t, col, what)
		}
		if _, err := t.Floats(field); err != nil {
			r.errorf(CategoryExposure, "column %s specifying exposure level could not be converted to numbers %s", field, what)
		}
	}
}

func (r *run) checkNetwork() {
	dir := filepath.Join(r.inputDir, "Networks")
	if !isDir(dir) {
		r.errorf(CategoryNetwork, "Networks directory for network attribute files does not exist")
		return
	}

	if nodes := r.readTable(CategoryNetwork, filepath.Join(dir, NodeFile), "node file", nodeColumns...); nodes != nil {
		if r.intColumn(CategoryNetwork, nodes, "node_id", "in the node file") != nil {
			if dups := nodes.Duplicates("node_id"); len(dups) > 0 {
				r.errorf(CategoryNetwork, "column node_id is not a unique identifier in the node file: %s", quoteList(dups))
			}
		}
		r.floatColumn(CategoryNetwork, nodes, "x_coord", "in the node file")
		r.floatColumn(CategoryNetwork, nodes, "y_coord", "in the node file")
	}

	if r.modelParamsBroken {
		r.warnf(CategoryNetwork, "not validating network link files, errors with the UncertaintyParameters tab")
		return
	}
	for _, socio := range r.uncertainty.Socio {
		for _, group := range r.uncertainty.ProjectGroups {
			r.checkLinkFile(dir, socio, group)
		}
	}
}

func (r *run) checkLinkFile(dir, socio, group string) {
	what := fmt.Sprintf("for socio %s and project group %s", socio, group)
	path := filepath.Join(dir, socio+group+".csv")
	if !exists(path) {
		r.errorf(CategoryNetwork, "no network link file is present %s", what)
		return
	}
	required := []string{"link_id", "from_node_id", "to_node_id", "directed", "length", "facility_type",
		"capacity", "free_speed", "lanes", "allowed_uses", "toll", "travel_time"}
	t := r.readTable(CategoryNetwork, path, "link file "+what, required...)
	if t == nil {
		return
	}

	for _, col := range linkIntColumns {
		r.intColumn(CategoryNetwork, t, col, what)
	}
	if dups := t.Duplicates("link_id"); len(dups) > 0 {
		r.errorf(CategoryNetwork, "column link_id is not a unique identifier %s: %s", what, quoteList(dups))
	}
	for _, col := range linkFloatColumns {
		r.floatColumn(CategoryNetwork, t, col, what)
	}

	directed, err := t.Ints("directed")
	if err != nil || slices.ContainsFunc(directed, func(d int) bool { return d != 1 }) {
		r.errorf(CategoryNetwork, "column directed must have values of 1 only %s", what)
	}
	for _, use := range t.Strings("allowed_uses") {
		if use != "c" {
			r.errorf(CategoryNetwork, "column allowed_uses must have values of c only %s", what)
			break
		}
	}

	if !r.needsNoCar(socio, t) {
		return
	}
	if missing := t.Missing(noCarColumns...); len(missing) > 0 {
		r.errorf(CategoryNetwork, "link file %s is missing column(s) %s needed for the nocar trip table",
			what, strings.Join(missing, ", "))
		return
	}
	for _, col := range noCarColumns {
		r.floatColumn(CategoryNetwork, t, col, what)
	}
}

// needsNoCar reports whether the nocar link columns must be checked. When the
// demand file structure cannot be read, columns that are present are checked.
func (r *run) needsNoCar(socio string, t *tabular.Table) bool {
	d := r.demandFor(socio)
	if d.err == nil && d.info != nil {
		return d.info.HasMatrix(core.MatrixNoCar)
	}
	return len(t.Missing(noCarColumns...)) == 0
}

// demandInfo caches the inspection of one demand file.
type demandInfo struct {
	path    string
	present bool
	info    *omx.Info
	err     error
}

func (r *run) demandFor(socio string) *demandInfo {
	if d, ok := r.demand[socio]; ok {
		return d
	}
	path := filepath.Join(r.inputDir, singlerun.MasterDir, singlerun.MatricesDir, singlerun.DemandMatrix(socio))
	d := &demandInfo{path: path, present: exists(path)}
	if d.present {
		d.info, d.err = r.inspector.Inspect(path)
	}
	r.demand[socio] = d
	return d
}

func (r *run) checkDemand() {
	dir := filepath.Join(r.inputDir, singlerun.MasterDir, singlerun.MatricesDir)
	if !isDir(dir) {
		r.errorf(CategoryDemand, "matrices directory for demand OMX files does not exist")
		return
	}
	if r.modelParamsBroken {
		r.warnf(CategoryDemand, "not validating demand OMX files, errors with the UncertaintyParameters tab")
		return
	}

	for _, socio := range r.uncertainty.Socio {
		d := r.demandFor(socio)
		switch {
		case !d.present:
			r.errorf(CategoryDemand, "no demand OMX file is present for socio %s", socio)
		case errors.Is(d.err, omx.ErrStructureUnavailable):
			r.warnf(CategoryDemand, "demand file for socio %s is an HDF5 container; matrices were not inspected", socio)
		case d.err != nil:
			r.errorf(CategoryDemand, "OMX file could not be read for socio %s: %v", socio, d.err)
		default:
			m, ok := d.info.Matrices[core.MatrixCar]
			if !ok || !m.Square() || !d.info.HasMapping("taz") {
				r.errorf(CategoryDemand, "OMX file is missing required attributes for socio %s", socio)
				continue
			}
			if nc, ok := d.info.Matrices[core.MatrixNoCar]; ok && !nc.Square() {
				r.errorf(CategoryDemand, "OMX file 'nocar' trip table is not square for socio %s", socio)
			}
		}
	}
}

func (r *run) checkDatabase() {
	path := filepath.Join(r.inputDir, singlerun.MasterDir, aeqdb.FileName)
	db, err := aeqdb.Open(path)
	if err != nil {
		r.errorf(CategoryDatabase, "%v", err)
		return
	}
	defer db.Close()

	missing, err := db.MissingTables(r.ctx, aeqdb.RequiredTables...)
	if err != nil {
		r.errorf(CategoryDatabase, "list tables of %s: %v", path, err)
		return
	}
	for _, table := range missing {
		r.errorf(CategoryDatabase, "`%s` table could not be found in %s", table, path)
	}
}

func (r *run) checkBaseYear() {
	name := fmt.Sprintf("Metamodel_scenarios_%s_baseyear.csv", r.cfg.Metamodel.AEQRunType)
	t := r.readTable(CategoryBaseYear, filepath.Join(r.inputDir, name), "base year core model runs file", baseYearColumns...)
	if t == nil {
		return
	}

	recovery, err := t.RequiredFloats("recovery")
	if err != nil || slices.ContainsFunc(recovery, func(v float64) bool { return v < 0 }) {
		r.errorf(CategoryBaseYear, "recovery stages are not all nonnegative numbers")
	}
	for _, col := range []string{"trips", "miles", "hours"} {
		r.floatColumn(CategoryBaseYear, t, col, "in the base year file")
	}

	if r.modelParamsBroken {
		return
	}
	// Coverage is judged on the product of the hazards and recovery stages the
	// file mentions, not on individual rows.
	hazards := make(map[string]bool)
	stages := make(map[string]bool)
	for row := 0; row < t.Len(); row++ {
		hazards[t.Value(row, "hazard")] = true
		stages[recoveryKey(t.Value(row, "recovery"))] = true
	}
	var missing []string
	for _, h := range r.uncertainty.Hazards {
		for _, rec := range r.uncertainty.RecoveryStages {
			if !hazards[h] || !stages[recoveryKey(rec)] {
				missing = append(missing, h+"/"+rec)
			}
		}
	}
	if len(missing) > 0 {
		r.errorf(CategoryBaseYear, "base year core model runs file is missing hazard-recovery combination(s): %s", quoteList(missing))
	}
}

func recoveryKey(s string) string {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return s
}

func (r *run) checkResilienceProjects() {
	dir := filepath.Join(r.inputDir, "LookupTables")
	if !isDir(dir) {
		r.errorf(CategoryResilienceProjects, "LookupTables directory for resilience projects files does not exist")
		return
	}
	r.checkProjectInfo(filepath.Join(dir, ProjectInfoFile))
	r.checkProjectTable(disruption.ProjectTable(r.inputDir))
}

func (r *run) checkProjectInfo(path string) {
	const c = CategoryResilienceProjects
	t := r.readTable(c, path, "project info file", projectInfoColumns...)
	if t == nil {
		return
	}

	costs, ok := moneyColumn(t, "Project Cost")
	if !ok {
		r.errorf(c, "column Project Cost could not be translated to a dollar amount in the project info file")
	} else if r.cfg.Analysis.ROIAnalysisType == core.ROIBreakeven &&
		slices.ContainsFunc(costs, func(v float64) bool { return v != 0 }) {
		r.errorf(c, "for breakeven analysis, Project Cost should be set to zero in the project info file")
	}

	lifespans, err := t.Ints("Project Lifespan")
	if err != nil || slices.ContainsFunc(lifespans, func(v int) bool { return v < 0 }) {
		r.errorf(c, "column Project Lifespan could not be converted to nonnegative integers in the project info file")
	}
	if _, ok := moneyColumn(t, "Annual Maintenance Cost"); !ok {
		r.errorf(c, "column Annual Maintenance Cost could not be translated to a dollar amount in the project info file")
	}

	if r.projectsBroken {
		return
	}
	ids := make(map[string]bool)
	for _, id := range t.Strings("Project ID") {
		ids[id] = true
	}
	var missing []string
	for _, p := range r.resil {
		if p != core.NoProject && !ids[p] {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		r.errorf(c, "resilience projects missing from the project info file: %s", quoteList(missing))
	}
}

func (r *run) checkProjectTable(path string) {
	const c = CategoryResilienceProjects
	required := []string{"Project ID", "link_id", "Category"}
	manual := r.cfg.Disruption.ResilMitigationApproach == core.MitigationManual
	if manual {
		required = append(required, "Exposure Reduction")
	}
	t := r.readTable(c, path, "project table file", required...)
	if t == nil {
		return
	}

	r.intColumn(c, t, "link_id", "in the project table file")
	if manual {
		if _, err := t.Floats("Exposure Reduction"); err != nil {
			r.errorf(c, "column Exposure Reduction could not be converted to numbers in the project table file")
		}
	}
	if r.cfg.Recovery.UsesDefaultRepairTables() {
		for _, cat := range t.Strings("Category") {
			if !slices.Contains(core.ProjectCategories, cat) {
				r.errorf(c, "Category values in the project table file must be one of %s when using default repair tables (got %q)",
					strings.Join(core.ProjectCategories, ", "), cat)
				break
			}
		}
	}
}

// moneyColumn parses a column of dollar amounts such as "$1,250,000".
func moneyColumn(t *tabular.Table, col string) ([]float64, bool) {
	out := make([]float64, 0, t.Len())
	for _, raw := range t.Strings(col) {
		v, err := strconv.ParseFloat(strings.NewReplacer("$", "", ",", "").Replace(raw), 64)
		if err != nil {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}
