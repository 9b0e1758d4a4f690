// Package tiledb wraps the three key-value tables spec section 3 calls
// the "tile database" (meta, features, tiles) over DuckDB, so callers
// never see SQL.
package tiledb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// DB is a handle to the three tile-database tables.
type DB struct {
	sql *sql.DB
}

// Open creates (or reuses) a DuckDB file at dataDir/duckdb/name.duckdb and
// ensures the meta/features/tiles tables exist.
func Open(dataDir, name string) (*DB, error) {
	duckdbDir := filepath.Join(dataDir, "duckdb")
	if err := os.MkdirAll(duckdbDir, 0755); err != nil {
		return nil, fmt.Errorf("tiledb: create data dir: %w", err)
	}

	conn, err := sql.Open("duckdb", filepath.Join(duckdbDir, name+".duckdb"))
	if err != nil {
		return nil, fmt.Errorf("tiledb: open: %w", err)
	}

	db := &DB{sql: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (key VARCHAR PRIMARY KEY, value BLOB NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS features (key UBIGINT PRIMARY KEY, value BLOB NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS tiles (key UBIGINT PRIMARY KEY, value BLOB NOT NULL)`,
	}
	for _, s := range stmts {
		if _, err := d.sql.Exec(s); err != nil {
			return fmt.Errorf("tiledb: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the underlying connection.
func (d *DB) Close() error { return d.sql.Close() }

// MetaGet reads the "meta" table (frozen ingest state: coding
// dictionaries, pack-file offsets, import watermarks).
func (d *DB) MetaGet(key string) ([]byte, bool, error) {
	var value []byte
	err := d.sql.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("tiledb: meta get %q: %w", key, err)
	}
	return value, true, nil
}

// MetaPut upserts a "meta" row.
func (d *DB) MetaPut(key string, value []byte) error {
	_, err := d.sql.Exec(
		`INSERT INTO meta(key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("tiledb: meta put %q: %w", key, err)
	}
	return nil
}

// FeaturesGet reads one feature-pack blob from the "features" table by
// its tile-index key (spec section 4.3's z/Morton/n encoding).
func (d *DB) FeaturesGet(key uint64) ([]byte, bool, error) {
	return get(d.sql, "features", key)
}

// FeaturesPut stores a feature-pack blob under key.
func (d *DB) FeaturesPut(key uint64, value []byte) error {
	return put(d.sql, "features", key, value)
}

// KV is one (key, value) row from a range scan.
type KV struct {
	Key   uint64
	Value []byte
}

// FeaturesScanRange returns every "features" row with lo <= key <= hi, in
// ascending key order — used by the render pipeline to find all pack
// entries whose tile-index key falls under a query tile's subtree.
func (d *DB) FeaturesScanRange(lo, hi uint64) ([]KV, error) {
	return scanRange(d.sql, "features", lo, hi)
}

// TilesGet reads a prepared-tile cache entry.
func (d *DB) TilesGet(key uint64) ([]byte, bool, error) {
	return get(d.sql, "tiles", key)
}

// TilesPut stores a prepared-tile cache entry.
func (d *DB) TilesPut(key uint64, value []byte) error {
	return put(d.sql, "tiles", key, value)
}

// TilesScanRange returns every "tiles" row with lo <= key <= hi, in
// ascending key order.
func (d *DB) TilesScanRange(lo, hi uint64) ([]KV, error) {
	return scanRange(d.sql, "tiles", lo, hi)
}

// ClearFeaturesAndTiles truncates the "features" and "tiles" tables,
// used by the import "features" task (spec section 6: it "clears DB
// first"). The "meta" table (shared dictionaries, seaside tree) is left
// alone since coastlines/dictionary tasks may have already populated it.
func (d *DB) ClearFeaturesAndTiles() error {
	if _, err := d.sql.Exec(`DELETE FROM features`); err != nil {
		return fmt.Errorf("tiledb: clear features: %w", err)
	}
	if _, err := d.sql.Exec(`DELETE FROM tiles`); err != nil {
		return fmt.Errorf("tiledb: clear tiles: %w", err)
	}
	return nil
}

func get(conn *sql.DB, table string, key uint64) ([]byte, bool, error) {
	var value []byte
	err := conn.QueryRow(`SELECT value FROM `+table+` WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("tiledb: %s get %d: %w", table, key, err)
	}
	return value, true, nil
}

func put(conn *sql.DB, table string, key uint64, value []byte) error {
	_, err := conn.Exec(
		`INSERT INTO `+table+`(key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("tiledb: %s put %d: %w", table, key, err)
	}
	return nil
}

func scanRange(conn *sql.DB, table string, lo, hi uint64) ([]KV, error) {
	rows, err := conn.Query(
		`SELECT key, value FROM `+table+` WHERE key BETWEEN ? AND ? ORDER BY key`,
		lo, hi,
	)
	if err != nil {
		return nil, fmt.Errorf("tiledb: %s scan: %w", table, err)
	}
	defer rows.Close()

	var out []KV
	for rows.Next() {
		var kv KV
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, fmt.Errorf("tiledb: %s scan row: %w", table, err)
		}
		out = append(out, kv)
	}
	return out, rows.Err()
}
