// Package aeqdb loads network links into an AequilibraE project database.
package aeqdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite" // register the sqlite driver

	"github.com/leapstack-labs/rdrkit/internal/network"
)

// FileName is the project database inside every run folder.
const FileName = "project_database.sqlite"

// GMNSTable receives the generated link table before it is copied into links.
const GMNSTable = "GMNS_link"

// RequiredTables must exist in an AequilibraE project database.
var RequiredTables = []string{"links", "nodes"}

const gmnsDDL = `CREATE TABLE GMNS_link (
	link_id INTEGER,
	from_node_id INTEGER,
	to_node_id INTEGER,
	directed INTEGER,
	length REAL,
	facility_type TEXT,
	capacity REAL,
	free_speed REAL,
	lanes INTEGER,
	allowed_uses TEXT,
	travel_time REAL,
	toll REAL,
	alpha REAL,
	beta REAL,
	link_available REAL,
	wkt TEXT
)`

const copyLinksSQL = `INSERT INTO links (ogc_fid, link_id, a_node, b_node, direction, distance, modes,
	link_type, capacity_ab, speed_ab, free_flow_time, toll, alpha, beta)
SELECT link_id, link_id, from_node_id, to_node_id, directed, length, allowed_uses,
	facility_type, capacity, free_speed, travel_time, toll, alpha, beta
FROM GMNS_link
WHERE GMNS_link.link_available > 0`

// DB is an open project database.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens an existing project database. It never creates one.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("project database not found: %s", path)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open project database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open project database %s: %w", path, err)
	}
	return &DB{db: db, path: path}, nil
}

// New wraps an existing connection.
func New(db *sql.DB) *DB {
	return &DB{db: db}
}

// Close closes the database.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Tables lists the tables of the database in name order.
func (d *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// MissingTables returns the required tables absent from the database.
func (d *DB) MissingTables(ctx context.Context, required ...string) ([]string, error) {
	tables, err := d.Tables(ctx)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(tables))
	for _, t := range tables {
		have[strings.ToLower(t)] = true
	}
	var missing []string
	for _, r := range required {
		if !have[strings.ToLower(r)] {
			missing = append(missing, r)
		}
	}
	return missing, nil
}

// LoadLinks replaces the GMNS link table and rebuilds the links table from
// the available links. The work runs in a single transaction.
func (d *DB) LoadLinks(ctx context.Context, links []network.Link) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{`DROP TABLE IF EXISTS ` + GMNSTable, gmnsDDL} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to create %s: %w", GMNSTable, err)
		}
	}

	insert, err := tx.PrepareContext(ctx, `INSERT INTO GMNS_link (`+strings.Join(network.Columns, ", ")+
		`) VALUES (`+strings.TrimSuffix(strings.Repeat("?, ", len(network.Columns)), ", ")+`)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insert.Close()

	for _, l := range links {
		if _, err := insert.ExecContext(ctx,
			l.LinkID, l.FromNode, l.ToNode, l.Directed, l.Length, l.FacilityType, l.Capacity,
			l.FreeSpeed, l.Lanes, l.AllowedUses, l.TravelTime, l.Toll, l.Alpha, l.Beta,
			l.LinkAvailable, l.WKT,
		); err != nil {
			return 0, fmt.Errorf("failed to insert link %d: %w", l.LinkID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM links`); err != nil {
		return 0, fmt.Errorf("failed to clear links: %w", err)
	}
	res, err := tx.ExecContext(ctx, copyLinksSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to fill links: %w", err)
	}
	loaded, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `UPDATE links SET capacity_ba = 0, speed_ba = 0`); err != nil {
		return 0, fmt.Errorf("failed to reset reverse direction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit links: %w", err)
	}
	return loaded, nil
}
