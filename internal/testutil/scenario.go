package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite" // register the sqlite driver
)

// ScenarioConfig is the .config file written by NewScenario.
// Paths are relative to the directory holding it.
const ScenarioConfig = `[common]
input_dir = inputs
output_dir = outputs
run_id = TestRun
start_year = 2020
end_year = 2050
base_year = 2019
future_year = 2050
dollar_year = 2020
discount_factor = 0.07

[metamodel]
aeq_run_type = SP
run_minieq = False

[disruption]
exposure_field = Value
exposure_unit = feet
link_availability_approach = Binary
highest_zone_number = 2
resil_mitigation_approach = binary

[recovery]
min_duration = 2
max_duration = 4
repair_cost_approach = Default
repair_time_approach = Default

[analysis]
roi_analysis_type = BCA
`

// HDF5Signature starts every HDF5 (and so every OMX) file.
const HDF5Signature = "\x89HDF\r\n\x1a\n"

// AequilibraELinksDDL creates the links table of an AequilibraE project database.
const AequilibraELinksDDL = `CREATE TABLE links (
	ogc_fid INTEGER PRIMARY KEY,
	link_id INTEGER NOT NULL UNIQUE,
	a_node INTEGER,
	b_node INTEGER,
	direction INTEGER NOT NULL DEFAULT 0,
	distance NUMERIC,
	modes TEXT NOT NULL,
	link_type TEXT,
	capacity_ab NUMERIC,
	capacity_ba NUMERIC,
	speed_ab NUMERIC,
	speed_ba NUMERIC,
	free_flow_time NUMERIC,
	toll NUMERIC,
	alpha NUMERIC,
	beta NUMERIC
)`

// Scenario is a complete, valid RDR input tree in a temporary directory.
//
// Network: centroids 1 and 2, junctions 3 to 5. Link 1 is a zone connector,
// link 2 belongs to resilience project P1, links 3 and 4 are unprotected.
type Scenario struct {
	Dir        string
	ConfigPath string
	InputDir   string
	OutputDir  string
}

// NewScenario writes the fixture and returns its locations.
func NewScenario(t testing.TB) *Scenario {
	t.Helper()

	dir := t.TempDir()
	s := &Scenario{
		Dir:        dir,
		ConfigPath: filepath.Join(dir, "test.config"),
		InputDir:   filepath.Join(dir, "inputs"),
		OutputDir:  filepath.Join(dir, "outputs"),
	}
	if err := os.MkdirAll(s.InputDir, 0o755); err != nil {
		t.Fatalf("create input directory: %v", err)
	}
	if err := os.WriteFile(s.ConfigPath, []byte(ScenarioConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	WriteWorkbook(t, s.Path("Model_Parameters.xlsx"),
		Sheet{
			Name:   "UncertaintyParameters",
			Header: []string{"Hazard Events", "Recovery Stages", "Economic Scenarios", "Trip Loss Elasticities", "Project Groups"},
			Rows: [][]string{
				{"100yr", "0", "base", "-0.5", "01"},
				{"500yr", "2", "", "", ""},
			},
		},
		Sheet{
			Name:   "ProjectGroups",
			Header: []string{"Project Groups", "Resiliency Projects"},
			Rows:   [][]string{{"01", "no"}, {"01", "P1"}},
		},
		Sheet{
			Name:   "Hazards",
			Header: []string{"Hazard Event", "Filename", "HazardDim1", "HazardDim2", "Event Probability in Start Year"},
			Rows: [][]string{
				{"100yr", "flood100", "100", "0", "0.01"},
				{"500yr", "flood500", "500", "0", "0.002"},
			},
		},
	)
	WriteWorkbook(t, s.Path("UserInputs.xlsx"), Sheet{
		Name:   "UserInputs",
		Header: []string{"Hazard Events", "Economic Scenarios", "Trip Loss Elasticities", "Resiliency Projects", "Event Frequency Factors"},
		Rows:   [][]string{{"100yr", "base", "-0.5", "P1", "1"}, {"500yr", "", "", "no", "0.5"}},
	})

	s.WriteFile(t, "Hazards/flood100.csv", Lines(
		"link_id,A,B,Value",
		"1,1,3,5",
		"2,3,4,2.5",
		"3,4,5,0.5",
		"3,4,5,9",
	))
	s.WriteFile(t, "Hazards/flood500.csv", Lines(
		"link_id,A,B,Value",
		"1,1,3,8",
		"2,3,4,4",
		"3,4,5,3",
		"4,5,3,0",
	))

	s.WriteFile(t, "Networks/node.csv", Lines(
		"node_id,x_coord,y_coord,node_type",
		"1,0,0,centroid",
		"2,10,0,centroid",
		"3,1,1,",
		"4,5,1,",
		"5,9,1,",
	))
	s.WriteFile(t, "Networks/base01.csv", Lines(
		"link_id,from_node_id,to_node_id,directed,length,facility_type,capacity,free_speed,lanes,allowed_uses,toll,travel_time,toll_nocar,travel_time_nocar",
		"1,1,3,1,0.5,connector,9999,25,1,c,0,1.2,0,1.2",
		"2,3,4,1,4,arterial,800,45,2,c,0,5.3,0,6",
		"3,4,5,1,4,freeway,2000,65,3,c,1.5,3.7,0,4",
		"4,5,3,1,8,arterial,800,45,1,c,0,10.7,0,12",
	))

	s.WriteFile(t, "AEMaster/matrices/base_demand_summed.omx", HDF5Signature+"omx fixture")
	s.WriteFile(t, "AEMaster/parameters.yml", "system: {}\n")
	CreateProjectDatabase(t, s.Path("AEMaster/project_database.sqlite"))

	s.WriteFile(t, "Metamodel_scenarios_SP_baseyear.csv", Lines(
		"hazard,recovery,trips,miles,hours",
		"100yr,0,1000,5000,120",
		"100yr,2,1000,4900,118",
		"500yr,0,990,5200,130",
		"500yr,2,995,5100,125",
	))

	s.WriteFile(t, "LookupTables/project_info.csv", Lines(
		"Project ID,Project Name,Asset,Project Cost,Project Lifespan,Annual Maintenance Cost",
		`P1,Raise arterial,Highway,"$1,250,000",20,"$5,000"`,
	))
	s.WriteFile(t, "LookupTables/project_table.csv", Lines(
		"Project ID,link_id,Category,Exposure Reduction",
		"P1,2,Highway,99999",
	))

	return s
}

// Path returns the absolute path of a file under the input directory.
func (s *Scenario) Path(rel string) string {
	return filepath.Join(s.InputDir, filepath.FromSlash(rel))
}

// WriteFile writes a file under the input directory, creating parent directories.
func (s *Scenario) WriteFile(t testing.TB, rel, body string) {
	t.Helper()
	path := s.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// Remove deletes a file or directory under the input directory.
func (s *Scenario) Remove(t testing.TB, rel string) {
	t.Helper()
	if err := os.RemoveAll(s.Path(rel)); err != nil {
		t.Fatalf("remove %s: %v", rel, err)
	}
}

// SetConfig replaces one line of the scenario config.
func (s *Scenario) SetConfig(t testing.TB, old, replacement string) {
	t.Helper()
	data, err := os.ReadFile(s.ConfigPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, old) {
		t.Fatalf("config does not contain %q", old)
	}
	body = strings.Replace(body, old, replacement, 1)
	if err := os.WriteFile(s.ConfigPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// Lines joins CSV lines with newlines and a trailing newline.
func Lines(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// CreateProjectDatabase creates an AequilibraE-like project database with
// nodes and links tables.
func CreateProjectDatabase(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create directory for database: %v", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE nodes (ogc_fid INTEGER PRIMARY KEY, node_id INTEGER NOT NULL UNIQUE, is_centroid INTEGER NOT NULL DEFAULT 0)`,
		AequilibraELinksDDL,
		`INSERT INTO nodes (node_id, is_centroid) VALUES (1, 1), (2, 1), (3, 0), (4, 0), (5, 0)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("create project database: %v", err)
		}
	}
}
