// Package network builds the AequilibraE link tables for base and disrupted runs.
package network

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/leapstack-labs/rdrkit/internal/logging"
	"github.com/leapstack-labs/rdrkit/internal/tabular"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// Kind selects the undisrupted or the disrupted network.
type Kind string

// Network kinds.
const (
	KindBase    Kind = "base"
	KindDisrupt Kind = "disrupt"
)

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBase, KindDisrupt:
		return Kind(s), nil
	}
	return "", fmt.Errorf("network kind must be %q or %q, got %q", KindBase, KindDisrupt, s)
}

// Volume-delay defaults and the availability assumed for links missing from the availability table.
const (
	DefaultAlpha        = 0.15
	DefaultBeta         = 4.0
	MissingAvailability = 0.999
)

// InputColumns are required in every project group network file.
var InputColumns = []string{
	"link_id", "from_node_id", "to_node_id", "directed", "length", "facility_type",
	"capacity", "free_speed", "lanes", "allowed_uses",
}

// Columns is the column order of the generated link table.
var Columns = []string{
	"link_id", "from_node_id", "to_node_id", "directed", "length", "facility_type",
	"capacity", "free_speed", "lanes", "allowed_uses", "travel_time", "toll",
	"alpha", "beta", "link_available", "wkt",
}

// Link is one row of the generated link table.
type Link struct {
	LinkID        int
	FromNode      int
	ToNode        int
	Directed      int
	Length        float64
	FacilityType  string
	Capacity      float64
	FreeSpeed     float64
	Lanes         int
	AllowedUses   string
	TravelTime    float64
	Toll          float64
	Alpha         float64
	Beta          float64
	LinkAvailable float64
	WKT           string
}

// Record renders the link in Columns order.
func (l Link) Record() []string {
	return []string{
		strconv.Itoa(l.LinkID), strconv.Itoa(l.FromNode), strconv.Itoa(l.ToNode), strconv.Itoa(l.Directed),
		tabular.FormatFloat(l.Length), l.FacilityType, tabular.FormatFloat(l.Capacity),
		tabular.FormatFloat(l.FreeSpeed), strconv.Itoa(l.Lanes), l.AllowedUses,
		tabular.FormatFloat(l.TravelTime), tabular.FormatFloat(l.Toll),
		tabular.FormatFloat(l.Alpha), tabular.FormatFloat(l.Beta),
		tabular.FormatFloat(l.LinkAvailable), l.WKT,
	}
}

// Result is a written link table.
type Result struct {
	Path  string
	Links []Link
}

// InputFile returns the project group network file for a run.
func InputFile(inputDir string, p core.RunParams) string {
	return filepath.Join(inputDir, "Networks", p.BaseScenario()+".csv")
}

// OutputName returns the file name of the generated link table.
func OutputName(kind Kind, p core.RunParams) string {
	if kind == KindBase {
		return "Group" + p.ProjGroup + "_baserun.csv"
	}
	return "Group" + p.ProjGroup + "_" + p.DisruptKey() + ".csv"
}

// Builder creates link tables from the scenario inputs.
type Builder struct {
	InputDir string
	Logger   *slog.Logger
}

// NewBuilder creates a Builder reading from inputDir.
func NewBuilder(inputDir string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{InputDir: inputDir, Logger: logger}
}

// Build writes the link table for a run into runFolder. Disrupted networks
// read the link availability table previously written to runFolder.
func (b *Builder) Build(ctx context.Context, kind Kind, p core.RunParams, runFolder string) (*Result, error) {
	log := b.Logger.With("kind", kind, "scenario", p.BaseScenario(), "matrix", p.MatrixName)
	log.Debug("creating network link table")

	links, err := b.readNetwork(p)
	if err != nil {
		return nil, err
	}
	log.Debug("read project group network", "links", len(links))

	if err := b.applyTrueShapes(links, log); err != nil {
		return nil, err
	}

	switch kind {
	case KindBase:
		for i := range links {
			links[i].LinkAvailable = 1
		}
	case KindDisrupt:
		if err := applyAvailability(links, filepath.Join(runFolder, p.AvailabilityFile()), log); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("network kind must be %q or %q, got %q", KindBase, KindDisrupt, kind)
	}

	// GMNS capacity is per lane, AequilibraE capacity is per link.
	for i := range links {
		links[i].Capacity = links[i].Capacity * float64(links[i].Lanes) * links[i].LinkAvailable
	}

	if err := b.applyLinkTypes(links, log); err != nil {
		return nil, err
	}

	out := filepath.Join(runFolder, OutputName(kind, p))
	rows := make([][]string, len(links))
	for i, l := range links {
		rows[i] = l.Record()
	}
	if err := tabular.Write(out, Columns, rows); err != nil {
		return nil, fmt.Errorf("write network link table: %w", err)
	}
	log.Log(ctx, logging.LevelResult, "network links table written", "path", out)

	return &Result{Path: out, Links: links}, nil
}

func (b *Builder) readNetwork(p core.RunParams) ([]Link, error) {
	path := InputFile(b.InputDir, p)

	tollCol, timeCol := "toll", "travel_time"
	switch p.MatrixName {
	case core.MatrixCar:
	case core.MatrixNoCar:
		tollCol, timeCol = "toll_nocar", "travel_time_nocar"
	default:
		return nil, fmt.Errorf("matrix_name must be %q or %q, got %q", core.MatrixCar, core.MatrixNoCar, p.MatrixName)
	}

	required := append(append([]string{}, InputColumns...), tollCol, timeCol)
	t, err := tabular.Read(path, required...)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("network file not found: %s", path)
		}
		return nil, err
	}

	ints := make(map[string][]int)
	for _, col := range []string{"link_id", "from_node_id", "to_node_id", "directed", "lanes"} {
		if ints[col], err = t.Ints(col); err != nil {
			return nil, err
		}
	}
	floats := make(map[string][]float64)
	for _, col := range []string{"length", "capacity", "free_speed", tollCol, timeCol} {
		if floats[col], err = t.RequiredFloats(col); err != nil {
			return nil, err
		}
	}

	links := make([]Link, t.Len())
	for r := range links {
		links[r] = Link{
			LinkID:       ints["link_id"][r],
			FromNode:     ints["from_node_id"][r],
			ToNode:       ints["to_node_id"][r],
			Directed:     ints["directed"][r],
			Length:       floats["length"][r],
			FacilityType: t.Value(r, "facility_type"),
			Capacity:     floats["capacity"][r],
			FreeSpeed:    floats["free_speed"][r],
			Lanes:        ints["lanes"][r],
			AllowedUses:  t.Value(r, "allowed_uses"),
			TravelTime:   floats[timeCol][r],
			Toll:         floats[tollCol][r],
		}
	}
	return links, nil
}

func (b *Builder) applyTrueShapes(links []Link, log *slog.Logger) error {
	path := filepath.Join(b.InputDir, "LookupTables", "TrueShape.csv")
	if _, err := os.Stat(path); err != nil {
		log.Warn("true shape file not found, continuing without link geometry", "path", path)
		return nil
	}
	t, err := tabular.Read(path, "link_id", "WKT")
	if err != nil {
		return err
	}
	ids, err := t.Ints("link_id")
	if err != nil {
		return err
	}
	shapes := make(map[int]string, len(ids))
	for r, id := range ids {
		if _, seen := shapes[id]; !seen {
			shapes[id] = t.Value(r, "WKT")
		}
	}

	matched := 0
	for i := range links {
		if wkt, ok := shapes[links[i].LinkID]; ok {
			links[i].WKT = wkt
			matched++
		}
	}
	log.Debug("joined true shapes", "unmatched", len(links)-matched)
	if matched == 0 && len(links) > 0 {
		log.Warn("true shape table matched no network links", "path", path)
	}
	return nil
}

func applyAvailability(links []Link, path string, log *slog.Logger) error {
	t, err := tabular.Read(path, "link_id", "link_available")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("link availability file not found: %s", path)
		}
		return err
	}
	ids, err := t.Ints("link_id")
	if err != nil {
		return err
	}
	values, err := t.Floats("link_available")
	if err != nil {
		return err
	}
	avail := make(map[int]float64, len(ids))
	for r, id := range ids {
		if _, seen := avail[id]; seen {
			continue
		}
		v := values[r]
		if math.IsNaN(v) {
			v = 0
		}
		avail[id] = v
	}

	matched := 0
	for i := range links {
		if v, ok := avail[links[i].LinkID]; ok {
			links[i].LinkAvailable = v
			matched++
			continue
		}
		links[i].LinkAvailable = MissingAvailability
	}
	log.Debug("joined link availability", "unmatched", len(links)-matched, "default", MissingAvailability)
	if matched == 0 && len(links) > 0 {
		return fmt.Errorf("link availability table %s matched no network links; check the link_id columns", filepath.Base(path))
	}
	return nil
}

func (b *Builder) applyLinkTypes(links []Link, log *slog.Logger) error {
	path := filepath.Join(b.InputDir, "LookupTables", "link_types_table.csv")
	for i := range links {
		links[i].Alpha, links[i].Beta = DefaultAlpha, DefaultBeta
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	t, err := tabular.Read(path, "facility_type", "alpha", "beta")
	if err != nil {
		return err
	}
	alphas, err := t.Floats("alpha")
	if err != nil {
		return err
	}
	betas, err := t.Floats("beta")
	if err != nil {
		return err
	}
	type vdf struct{ alpha, beta float64 }
	types := make(map[string]vdf)
	for r := 0; r < t.Len(); r++ {
		ft := t.Value(r, "facility_type")
		if _, seen := types[ft]; !seen {
			types[ft] = vdf{alphas[r], betas[r]}
		}
	}

	matched := 0
	for i := range links {
		v, ok := types[links[i].FacilityType]
		if !ok {
			continue
		}
		matched++
		if !math.IsNaN(v.alpha) {
			links[i].Alpha = v.alpha
		}
		if !math.IsNaN(v.beta) {
			links[i].Beta = v.beta
		}
	}
	log.Debug("joined link types", "matched", matched)
	if matched == 0 && len(links) > 0 {
		log.Warn("link types table matched no network links", "path", path)
	}
	return nil
}
