package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents one schema step. Migrations are embedded so the binary
// is self-contained.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "init_track_points",
		SQL: `
			CREATE TABLE IF NOT EXISTS track_points (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				timestamp INTEGER NOT NULL,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				accuracy REAL,
				velocity REAL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_track_points_user_time
				ON track_points(user_id, timestamp);
		`,
	},
	{
		Version: 2,
		Name:    "timeline_cache",
		SQL: `
			CREATE TABLE IF NOT EXISTS timeline_days (
				user_id TEXT NOT NULL,
				day INTEGER NOT NULL,
				version_hash TEXT NOT NULL,
				stale INTEGER NOT NULL DEFAULT 0,
				computed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (user_id, day)
			);

			CREATE TABLE IF NOT EXISTS timeline_stays (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				day INTEGER NOT NULL,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				start_time INTEGER NOT NULL,
				end_time INTEGER NOT NULL,
				duration_seconds INTEGER NOT NULL,
				location_key TEXT,
				label TEXT,
				point_count INTEGER,
				version_hash TEXT NOT NULL,
				stale INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_timeline_stays_user_day
				ON timeline_stays(user_id, day);
			CREATE INDEX IF NOT EXISTS idx_timeline_stays_user_end
				ON timeline_stays(user_id, end_time);
			CREATE INDEX IF NOT EXISTS idx_timeline_stays_location
				ON timeline_stays(user_id, location_key);

			CREATE TABLE IF NOT EXISTS timeline_trips (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				day INTEGER NOT NULL,
				start_time INTEGER NOT NULL,
				end_time INTEGER NOT NULL,
				distance_km REAL NOT NULL,
				duration_minutes REAL NOT NULL,
				travel_mode TEXT NOT NULL,
				path_json TEXT NOT NULL,
				version_hash TEXT NOT NULL,
				stale INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_timeline_trips_user_day
				ON timeline_trips(user_id, day);

			CREATE TABLE IF NOT EXISTS timeline_gaps (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				day INTEGER NOT NULL,
				start_time INTEGER NOT NULL,
				end_time INTEGER NOT NULL,
				duration_minutes REAL NOT NULL,
				version_hash TEXT NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_timeline_gaps_user_day
				ON timeline_gaps(user_id, day);
		`,
	},
	{
		Version: 3,
		Name:    "config_overrides",
		SQL: `
			CREATE TABLE IF NOT EXISTS timeline_config_overrides (
				user_id TEXT PRIMARY KEY,
				params_json TEXT NOT NULL,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
}

// RunMigrations applies all pending migrations in version order.
func RunMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(db *sql.DB, m Migration) error {
	return Transaction(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(m.SQL); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		log.Printf("[Database] Applied migration %d: %s", m.Version, m.Name)
		return nil
	})
}
