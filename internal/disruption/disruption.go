// Package disruption computes how available each network link is during a
// hazard event at a given recovery stage, with and without resilience projects.
package disruption

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"

	"github.com/leapstack-labs/rdrkit/internal/logging"
	"github.com/leapstack-labs/rdrkit/internal/scenario"
	"github.com/leapstack-labs/rdrkit/internal/tabular"
	"github.com/leapstack-labs/rdrkit/internal/workbook"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// Settings are the [disruption] options used by the calculation.
type Settings struct {
	ExposureField      string
	ExposureUnit       string
	Approach           core.LinkAvailabilityApproach
	ManualCSV          string
	Alpha              float64
	Beta               float64
	LowerBound         float64
	UpperBound         float64
	BetaMethod         core.BetaMethod
	ZoneConnectorLimit int
	Mitigation         core.MitigationApproach
}

// SettingsFromConfig extracts the disruption settings of a scenario.
func SettingsFromConfig(cfg *scenario.Config) Settings {
	d := cfg.Disruption
	return Settings{
		ExposureField:      d.ExposureField,
		ExposureUnit:       d.ExposureUnit,
		Approach:           d.LinkAvailabilityApproach,
		ManualCSV:          d.LinkAvailabilityCSV,
		Alpha:              d.Alpha,
		Beta:               d.Beta,
		LowerBound:         d.LowerBound,
		UpperBound:         d.UpperBound,
		BetaMethod:         d.BetaMethod,
		ZoneConnectorLimit: cfg.ZoneConnectorLimit(),
		Mitigation:         d.ResilMitigationApproach,
	}
}

// Link is one row of the link availability table.
type Link struct {
	LinkID            int
	A                 int
	B                 int
	Exposure          float64
	ZoneConn          bool
	ProjectID         string
	ExposureReduction float64
	VulProject        bool
	RecovValue        float64
	LinkAvailable     float64
}

// Result is a written link availability table.
type Result struct {
	Path  string
	Links []Link
}

// ProjectTable is the resilience project to link lookup.
func ProjectTable(inputDir string) string {
	return filepath.Join(inputDir, "LookupTables", "project_table.csv")
}

// ExposureTable is the exposure file of a hazard.
func ExposureTable(inputDir, filename string) string {
	return filepath.Join(inputDir, "Hazards", filename+".csv")
}

// Calculator computes link availability tables.
type Calculator struct {
	InputDir string
	Settings Settings
	Logger   *slog.Logger
}

// NewCalculator creates a Calculator for a scenario.
func NewCalculator(inputDir string, settings Settings, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Calculator{InputDir: inputDir, Settings: settings, Logger: logger}
}

// Calculate writes the link availability table of a disrupted run to outDir.
func (c *Calculator) Calculate(ctx context.Context, p core.RunParams, outDir string) (*Result, error) {
	log := c.Logger.With("hazard", p.Hazard, "recovery", p.Recovery, "resil", p.Resil)
	log.Debug("calculating link availability")

	depth, err := p.RecoveryDepth()
	if err != nil {
		return nil, err
	}
	availability, err := NewFunc(c.Settings)
	if err != nil {
		return nil, err
	}
	log.Log(ctx, logging.LevelConfig, "link availability approach", "approach", c.Settings.Approach)
	log.Log(ctx, logging.LevelConfig, "resilience mitigation approach", "approach", c.Settings.Mitigation)

	projects, err := c.readProjects(p.Resil)
	if err != nil {
		return nil, err
	}
	filename, err := c.hazardFilename(p.Hazard)
	if err != nil {
		return nil, err
	}
	links, err := c.readExposures(ExposureTable(c.InputDir, filename))
	if err != nil {
		return nil, err
	}

	var zoneConns, protected int
	for i := range links {
		l := &links[i]
		l.ZoneConn = l.A < c.Settings.ZoneConnectorLimit || l.B < c.Settings.ZoneConnectorLimit
		if reduction, ok := projects[l.LinkID]; ok {
			l.ProjectID = p.Resil
			l.VulProject = true
			l.ExposureReduction = reduction
		}

		l.RecovValue = math.Max(l.Exposure-float64(depth), 0)
		l.RecovValue = math.Max(l.RecovValue-l.ExposureReduction, 0)
		l.LinkAvailable = availability(l.RecovValue)

		switch c.Settings.Mitigation {
		case core.MitigationBinary:
			if l.VulProject {
				l.LinkAvailable = 1
			}
		case core.MitigationManual:
			if l.ExposureReduction == core.FullMitigation {
				l.LinkAvailable = 1
			}
		}
		// Zone connectors are never disrupted.
		if l.ZoneConn {
			l.LinkAvailable = 1
			zoneConns++
		}
		if l.VulProject {
			protected++
		}
	}
	log.Debug("applied zone connectors and resilience projects", "links", len(links), "zone_connectors", zoneConns, "project_links", protected)

	out := filepath.Join(outDir, p.AvailabilityFile())
	if err := c.write(out, links); err != nil {
		return nil, err
	}
	log.Log(ctx, logging.LevelResult, "link availability table written", "path", out)
	return &Result{Path: out, Links: links}, nil
}

func (c *Calculator) hazardFilename(event string) (string, error) {
	wb, err := workbook.Open(filepath.Join(c.InputDir, workbook.ModelParametersFile))
	if err != nil {
		return "", err
	}
	defer wb.Close()

	hazards, err := wb.ReadHazards()
	if err != nil {
		return "", err
	}
	h, ok := workbook.HazardByEvent(hazards, event)
	if !ok || h.Filename == "" {
		return "", fmt.Errorf("hazard %q has no exposure file listed on the %s tab", event, workbook.SheetHazards)
	}
	return h.Filename, nil
}

// readProjects returns the exposure reduction of each link of project resil.
func (c *Calculator) readProjects(resil string) (map[int]float64, error) {
	path := ProjectTable(c.InputDir)
	required := []string{"Project ID", "link_id"}
	if c.Settings.Mitigation == core.MitigationManual {
		required = append(required, "Exposure Reduction")
	} else if c.Settings.Mitigation != core.MitigationBinary {
		return nil, fmt.Errorf("resil_mitigation_approach must be %q or %q, got %q", core.MitigationBinary, core.MitigationManual, c.Settings.Mitigation)
	}

	t, err := tabular.Read(path, required...)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("project table not found: %s", path)
		}
		return nil, err
	}
	ids, err := t.Ints("link_id")
	if err != nil {
		return nil, err
	}
	reductions := make([]float64, t.Len())
	if c.Settings.Mitigation == core.MitigationManual {
		if reductions, err = t.Floats("Exposure Reduction"); err != nil {
			return nil, err
		}
	} else {
		for i := range reductions {
			reductions[i] = core.FullMitigation
		}
	}

	projects := make(map[int]float64)
	for r, id := range ids {
		if t.Value(r, "Project ID") != resil {
			continue
		}
		if _, seen := projects[id]; seen {
			continue
		}
		v := reductions[r]
		if math.IsNaN(v) {
			v = 0
		}
		projects[id] = v
	}
	return projects, nil
}

func (c *Calculator) readExposures(path string) ([]Link, error) {
	field := c.Settings.ExposureField
	t, err := tabular.Read(path, "link_id", "A", "B", field)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("exposure table not found: %s", path)
		}
		return nil, err
	}

	cols := make(map[string][]int)
	for _, col := range []string{"link_id", "A", "B"} {
		if cols[col], err = t.Ints(col); err != nil {
			return nil, err
		}
	}
	exposures, err := t.Floats(field)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, t.Len())
	links := make([]Link, 0, t.Len())
	for r, id := range cols["link_id"] {
		if seen[id] {
			continue
		}
		seen[id] = true
		e := exposures[r]
		if math.IsNaN(e) {
			e = 0
		}
		links = append(links, Link{LinkID: id, A: cols["A"][r], B: cols["B"][r], Exposure: e})
	}
	if dropped := t.Len() - len(links); dropped > 0 {
		c.Logger.Warn("duplicate link_id rows in exposure table, keeping the first", "path", path, "dropped", dropped)
	}
	return links, nil
}

func (c *Calculator) write(path string, links []Link) error {
	header := []string{
		"link_id", "A", "B", c.Settings.ExposureField, "ZoneConn", "Project ID",
		"Exposure Reduction", "VulProject", "recov_value", "link_available",
	}
	rows := make([][]string, len(links))
	for i, l := range links {
		rows[i] = []string{
			strconv.Itoa(l.LinkID), strconv.Itoa(l.A), strconv.Itoa(l.B),
			tabular.FormatFloat(l.Exposure), boolInt(l.ZoneConn), l.ProjectID,
			tabular.FormatFloat(l.ExposureReduction), boolInt(l.VulProject),
			tabular.FormatFloat(l.RecovValue), tabular.FormatFloat(l.LinkAvailable),
		}
	}
	if err := tabular.Write(path, header, rows); err != nil {
		return fmt.Errorf("write link availability table: %w", err)
	}
	return nil
}

func boolInt(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
