package geocache

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/geoequity/gei/internal/model"
)

// Store is the persistent SQLite tier of the geocode cache. It keeps
// resolutions across restarts of the same deployment; it is not a shared
// cache between concurrently running processes.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the cache database at the given path and
// configures WAL mode.
func OpenStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "geocache: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "geocache: exec %s", pragma)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_key  TEXT PRIMARY KEY,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	resolved_at  DATETIME NOT NULL
);
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(migration)
	return eris.Wrap(err, "geocache: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get looks up a cached resolution by normalized key.
func (s *Store) Get(ctx context.Context, key string) (model.Coordinate, string, bool, error) {
	var lat, lon float64
	var display string
	err := s.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, display_name FROM geocode_cache WHERE address_key = ?`,
		key,
	).Scan(&lat, &lon, &display)
	if err == sql.ErrNoRows {
		return model.Coordinate{}, "", false, nil
	}
	if err != nil {
		return model.Coordinate{}, "", false, eris.Wrap(err, "geocache: select")
	}
	return model.Coordinate{Lat: lat, Lon: lon}, display, true, nil
}

// Put inserts or replaces a resolution. Addresses geocode
// deterministically, so replacing an existing row is idempotent.
func (s *Store) Put(ctx context.Context, key string, coord model.Coordinate, display string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_key, latitude, longitude, display_name, resolved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (address_key) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			display_name = excluded.display_name,
			resolved_at = excluded.resolved_at`,
		key, coord.Lat, coord.Lon, display, time.Now().UTC(),
	)
	return eris.Wrap(err, "geocache: upsert")
}
