// Package sqlite provides the SQLite-backed polygon repository.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/geometry"
	"github.com/jobrunner/limes/internal/ports/output"
)

const driverName = "sqlite3_limes"

var registerOnce sync.Once

// registerDriver registers a sqlite3 driver that configures every new
// connection for concurrent readers and a single writer.
func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				for _, pragma := range []string{
					"PRAGMA journal_mode=WAL",
					"PRAGMA busy_timeout=5000",
					"PRAGMA synchronous=NORMAL",
				} {
					if _, err := conn.Exec(pragma, []driver.Value{}); err != nil {
						return fmt.Errorf("%s: %w", pragma, err)
					}
				}
				return nil
			},
		})
	})
}

const schema = `
CREATE TABLE IF NOT EXISTS polygons (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	id              TEXT NOT NULL UNIQUE,
	coordinates     TEXT NOT NULL,
	is_multi        INTEGER NOT NULL DEFAULT 0,
	wkt             TEXT NOT NULL,
	species_key     INTEGER,
	scientific_name TEXT,
	annotation      TEXT NOT NULL,
	inverted        INTEGER NOT NULL DEFAULT 0,
	updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_polygons_species ON polygons(species_key);
`

// Repository implements output.PolygonRepository on a SQLite file.
type Repository struct {
	db      *sql.DB
	path    string
	metrics output.MetricsCollector
}

// NewRepository opens (and if needed creates) the database at path. The
// special path ":memory:" keeps everything in memory.
func NewRepository(ctx context.Context, path string, metrics output.MetricsCollector) (*Repository, error) {
	registerDriver()

	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, &domain.StorageError{Operation: "open", Key: path, Err: err}
		}
		dsn = fmt.Sprintf("file:%s?_txlock=immediate", path)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, &domain.StorageError{Operation: "open", Key: path, Err: err}
	}
	if path == ":memory:" {
		// Every connection would get its own empty database otherwise.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &domain.StorageError{Operation: "open", Key: path, Err: err}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, &domain.StorageError{Operation: "migrate", Key: path, Err: err}
	}

	return &Repository{db: db, path: path, metrics: metrics}, nil
}

// List returns every stored polygon in insertion order.
func (r *Repository) List(ctx context.Context) ([]domain.AnnotatedPolygon, error) {
	start := time.Now()
	polygons, err := r.list(ctx)
	r.observe("list", start, err)
	return polygons, err
}

func (r *Repository) list(ctx context.Context) ([]domain.AnnotatedPolygon, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, coordinates, is_multi, species_key, scientific_name, annotation, inverted, updated_at
		FROM polygons
		ORDER BY seq
	`)
	if err != nil {
		return nil, &domain.StorageError{Operation: "list", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var polygons []domain.AnnotatedPolygon
	for rows.Next() {
		p, err := scanPolygon(rows)
		if err != nil {
			return nil, err
		}
		polygons = append(polygons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Operation: "list", Err: err}
	}
	return polygons, nil
}

func scanPolygon(rows *sql.Rows) (domain.AnnotatedPolygon, error) {
	var (
		id, coords, annotation, updatedAt string
		isMulti, inverted                 bool
		speciesKey                        sql.NullInt64
		scientificName                    sql.NullString
	)
	if err := rows.Scan(&id, &coords, &isMulti, &speciesKey, &scientificName, &annotation, &inverted, &updatedAt); err != nil {
		return domain.AnnotatedPolygon{}, &domain.StorageError{Operation: "scan", Err: err}
	}

	parts, _, err := domain.DecodeCoordinates([]byte(coords))
	if err != nil {
		return domain.AnnotatedPolygon{}, &domain.StorageError{Operation: "decode", Key: id, Err: err}
	}

	p := domain.AnnotatedPolygon{
		ID:             id,
		Coordinates:    parts,
		IsMultiPolygon: isMulti,
		Annotation:     domain.Annotation(annotation),
		Inverted:       inverted,
	}
	if speciesKey.Valid {
		p.Species = &domain.SpeciesRef{Key: int(speciesKey.Int64), ScientificName: scientificName.String}
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		p.Timestamp = ts
	}
	return p, nil
}

// Save inserts or replaces a polygon. A replaced polygon keeps its
// position in List.
func (r *Repository) Save(ctx context.Context, p domain.AnnotatedPolygon) error {
	start := time.Now()
	err := r.save(ctx, p)
	r.observe("save", start, err)
	return err
}

func (r *Repository) save(ctx context.Context, p domain.AnnotatedPolygon) error {
	coords, err := json.Marshal(p.Coordinates)
	if err != nil {
		return &domain.StorageError{Operation: "encode", Key: p.ID, Err: err}
	}

	var (
		speciesKey     sql.NullInt64
		scientificName sql.NullString
	)
	if p.Species != nil {
		speciesKey = sql.NullInt64{Int64: int64(p.Species.Key), Valid: true}
		scientificName = sql.NullString{String: p.Species.ScientificName, Valid: p.Species.ScientificName != ""}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO polygons (id, coordinates, is_multi, wkt, species_key, scientific_name, annotation, inverted, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			coordinates = excluded.coordinates,
			is_multi = excluded.is_multi,
			wkt = excluded.wkt,
			species_key = excluded.species_key,
			scientific_name = excluded.scientific_name,
			annotation = excluded.annotation,
			inverted = excluded.inverted,
			updated_at = excluded.updated_at
	`,
		p.ID,
		string(coords),
		p.IsMultiPolygon,
		geometry.FormatWKT(p.Coordinates, p.IsMultiPolygon),
		speciesKey,
		scientificName,
		string(p.Annotation),
		p.Inverted,
		p.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &domain.StorageError{Operation: "save", Key: p.ID, Err: err}
	}
	return nil
}

// Delete removes a polygon.
func (r *Repository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := r.delete(ctx, id)
	r.observe("delete", start, err)
	return err
}

func (r *Repository) delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM polygons WHERE id = ?`, id)
	if err != nil {
		return &domain.StorageError{Operation: "delete", Key: id, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Operation: "delete", Key: id, Err: err}
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrPolygonNotFound, id)
	}
	return nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database path.
func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) observe(op string, start time.Time, err error) {
	success := err == nil || errors.Is(err, domain.ErrNotFound)
	r.metrics.IncStorageOperations("sqlite_"+op, success)
	r.metrics.ObserveStorageDuration("sqlite_"+op, time.Since(start))
}
