// Package store mirrors the corrected index and the station metadata into a
// SQLite catalog. The CSV files stay the source of truth; the catalog is
// rebuilt from them and serves ad-hoc SQL and the query API.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "napsidx/internal/errors"
	"napsidx/internal/index"
	"napsidx/internal/infrastructure"
	"napsidx/internal/stations"
)

// Catalog is the SQLite mirror.
type Catalog struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *slog.Logger
}

// Open opens or creates the catalog at path and migrates the schema. Use
// ":memory:" for a throwaway catalog.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, apperrors.NewStorageError("failed to create catalog directory", err)
		}
		dsn = path + "?_foreign_keys=on&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open catalog", err).WithContext("path", path)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	c := &Catalog{db: db, logger: infrastructure.WithComponent(logger, "catalog")}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("failed to migrate catalog", err).WithContext("path", path)
	}
	return c, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Ping checks the connection.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Catalog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS index_entries (
		year INTEGER NOT NULL,
		site_id INTEGER NOT NULL,
		analyte TEXT NOT NULL,
		analyte_type TEXT NOT NULL CHECK (analyte_type IN ('NT', 'WS', 'total')),
		instrument TEXT NOT NULL CHECK (instrument IN ('ICPMS', 'IC')),
		frequency INTEGER NOT NULL,
		PRIMARY KEY (year, site_id, analyte, analyte_type)
	);

	CREATE INDEX IF NOT EXISTS idx_index_site
		ON index_entries(site_id, analyte, analyte_type);
	CREATE INDEX IF NOT EXISTS idx_index_analyte
		ON index_entries(analyte, instrument);

	CREATE TABLE IF NOT EXISTS stations (
		site_id INTEGER PRIMARY KEY,
		station_name TEXT NOT NULL,
		status TEXT,
		city TEXT,
		latitude REAL,
		longitude REAL,
		elevation REAL,
		start_year INTEGER,
		end_year INTEGER,
		site_type TEXT,
		urbanization TEXT,
		neighbourhood TEXT,
		land_use TEXT,
		scale TEXT,
		attributes_json TEXT
	);

	CREATE TABLE IF NOT EXISTS catalog_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// ReplaceIndex swaps the index table content for entries in one
// transaction.
func (c *Catalog) ReplaceIndex(ctx context.Context, entries []index.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.inTx(ctx, "index_entries", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM index_entries`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO index_entries (year, site_id, analyte, analyte_type, instrument, frequency)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Year, e.SiteID, e.Analyte,
				string(e.AnalyteType), string(e.Instrument), e.Frequency); err != nil {
				return fmt.Errorf("entry %d/%d/%s/%s: %w", e.Year, e.SiteID, e.Analyte, e.AnalyteType, err)
			}
		}
		return setMeta(ctx, tx, "index_loaded_at", time.Now().UTC().Format(time.RFC3339))
	}, len(entries))
}

// ReplaceStations swaps the station table content.
func (c *Catalog) ReplaceStations(ctx context.Context, list []stations.Station) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.inTx(ctx, "stations", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM stations`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO stations
			(site_id, station_name, status, city, latitude, longitude, elevation, start_year, end_year,
			 site_type, urbanization, neighbourhood, land_use, scale, attributes_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, s := range list {
			attrs, _ := json.Marshal(s.Attributes)
			if _, err := stmt.ExecContext(ctx, s.SiteID, s.Name, s.Status, s.City,
				s.Latitude, s.Longitude, s.Elevation, s.StartYear, s.EndYear,
				s.SiteType, s.Urbanization, s.Neighbourhood, s.LandUse, s.Scale, string(attrs)); err != nil {
				return fmt.Errorf("station %d: %w", s.SiteID, err)
			}
		}
		return setMeta(ctx, tx, "stations_loaded_at", time.Now().UTC().Format(time.RFC3339))
	}, len(list))
}

func (c *Catalog) inTx(ctx context.Context, table string, fn func(tx *sql.Tx) error, rows int) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return apperrors.NewStorageError(fmt.Sprintf("failed to load %s", table), err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("failed to commit", err)
	}
	c.logger.InfoContext(ctx, "catalog table loaded",
		slog.String("table", table),
		slog.Int("rows", rows))
	return nil
}

func setMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO catalog_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// Meta returns a catalog_meta value, or "" when unset.
func (c *Catalog) Meta(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM catalog_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewStorageError("failed to read catalog meta", err)
	}
	return value, nil
}

// Index loads every entry in index order.
func (c *Catalog) Index(ctx context.Context) (*index.Index, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx, `
		SELECT year, site_id, analyte, analyte_type, instrument, frequency
		FROM index_entries
		ORDER BY year, site_id, analyte, analyte_type`)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query index", err)
	}
	defer rows.Close()

	var entries []index.Entry
	for rows.Next() {
		var e index.Entry
		var analyteType, instrument string
		if err := rows.Scan(&e.Year, &e.SiteID, &e.Analyte, &analyteType, &instrument, &e.Frequency); err != nil {
			return nil, apperrors.NewStorageError("failed to scan index entry", err)
		}
		e.AnalyteType = index.AnalyteType(analyteType)
		e.Instrument = index.Instrument(instrument)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to read index", err)
	}
	return index.New(entries), nil
}

const stationColumns = `site_id, station_name, status, city, latitude, longitude, elevation,
	start_year, end_year, site_type, urbanization, neighbourhood, land_use, scale, attributes_json`

type scanner interface {
	Scan(dest ...any) error
}

func scanStation(row scanner) (stations.Station, error) {
	var s stations.Station
	var status, city, siteType, urban, neighbourhood, landUse, scale, attrs sql.NullString
	var lat, lon, elev sql.NullFloat64
	var start, end sql.NullInt64
	if err := row.Scan(&s.SiteID, &s.Name, &status, &city, &lat, &lon, &elev, &start, &end,
		&siteType, &urban, &neighbourhood, &landUse, &scale, &attrs); err != nil {
		return s, err
	}
	s.Status, s.City, s.SiteType = status.String, city.String, siteType.String
	s.Urbanization, s.Neighbourhood, s.LandUse, s.Scale = urban.String, neighbourhood.String, landUse.String, scale.String
	s.Latitude, s.Longitude, s.Elevation = nullFloat(lat), nullFloat(lon), nullFloat(elev)
	s.StartYear, s.EndYear = nullInt(start), nullInt(end)
	if attrs.Valid && attrs.String != "" && attrs.String != "null" {
		if err := json.Unmarshal([]byte(attrs.String), &s.Attributes); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Station returns one station, NOT_FOUND when the site is unknown.
func (c *Catalog) Station(ctx context.Context, siteID int) (stations.Station, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	row := c.db.QueryRowContext(ctx, `SELECT `+stationColumns+` FROM stations WHERE site_id = ?`, siteID)
	s, err := scanStation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s, apperrors.NewNotFoundError(fmt.Sprintf("station %d", siteID))
	}
	if err != nil {
		return s, apperrors.NewStorageError("failed to read station", err)
	}
	return s, nil
}

// Stations returns every station ordered by site.
func (c *Catalog) Stations(ctx context.Context) ([]stations.Station, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx, `SELECT `+stationColumns+` FROM stations ORDER BY site_id`)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query stations", err)
	}
	defer rows.Close()

	var out []stations.Station
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to scan station", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to read stations", err)
	}
	return out, nil
}

// Counts returns the number of index entries and stations.
func (c *Catalog) Counts(ctx context.Context) (entries, nStations int, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	err = c.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM index_entries), (SELECT COUNT(*) FROM stations)`).
		Scan(&entries, &nStations)
	if err != nil {
		return 0, 0, apperrors.NewStorageError("failed to count catalog rows", err)
	}
	return entries, nStations, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
