package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Lookup result limits.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// EarthRadiusKM is the sphere radius used for distance queries.
const EarthRadiusKM = 6371.0

const stopColumns = `stop_id, stop_code, stop_name, stop_lat, stop_lon`

// Spherical law of cosines. The cosine is clamped to [-1, 1] so rounding
// never pushes acos out of its domain for the query point itself.
const nearestStopSQL = `SELECT ` + stopColumns + `,
    6371.0 * acos(LEAST(1.0, GREATEST(-1.0,
        cos(radians($1)) * cos(radians(stop_lat)) * cos(radians(stop_lon) - radians($2))
        + sin(radians($1)) * sin(radians(stop_lat))
    ))) AS distance_km
FROM stops
ORDER BY distance_km, stop_id
LIMIT 1`

// Store runs read queries against the stops table.
type Store struct {
	db DBTX
}

// NewStore returns a Store over a pool, connection or transaction.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

// GetStop returns the stop with the given id, or ErrStopNotFound.
func (s *Store) GetStop(ctx context.Context, id string) (Stop, error) {
	row := s.db.QueryRow(ctx, `SELECT `+stopColumns+` FROM stops WHERE stop_id = $1`, id)

	var st Stop
	if err := row.Scan(&st.ID, &st.Code, &st.Name, &st.Lat, &st.Lon); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stop{}, ErrStopNotFound
		}
		return Stop{}, fmt.Errorf("get stop %s: %w", id, err)
	}
	return st, nil
}

// FindByCode returns stops whose stop_code equals code.
func (s *Store) FindByCode(ctx context.Context, code string, limit int) ([]Stop, error) {
	return s.queryStops(ctx, "find by code",
		`SELECT `+stopColumns+` FROM stops WHERE stop_code = $1 ORDER BY stop_id LIMIT $2`,
		strings.TrimSpace(code), ClampLimit(limit))
}

// FindByName returns stops whose name starts with prefix, ignoring case.
func (s *Store) FindByName(ctx context.Context, prefix string, limit int) ([]Stop, error) {
	return s.queryStops(ctx, "find by name",
		`SELECT `+stopColumns+` FROM stops WHERE stop_name ILIKE $1 ORDER BY stop_name, stop_id LIMIT $2`,
		escapeLike(strings.TrimSpace(prefix))+"%", ClampLimit(limit))
}

// Nearest returns the stop closest to (lat, lon) and its distance in km.
// Returns ErrStopNotFound when the table is empty.
func (s *Store) Nearest(ctx context.Context, lat, lon float64) (NearestStop, error) {
	var n NearestStop
	err := s.db.QueryRow(ctx, nearestStopSQL, lat, lon).
		Scan(&n.ID, &n.Code, &n.Name, &n.Lat, &n.Lon, &n.DistanceKM)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return NearestStop{}, ErrStopNotFound
		}
		return NearestStop{}, fmt.Errorf("nearest stop: %w", err)
	}
	return n, nil
}

// Count returns the number of stops stored.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM stops`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count stops: %w", err)
	}
	return n, nil
}

func (s *Store) queryStops(ctx context.Context, op, sql string, args ...any) ([]Stop, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	stops := []Stop{}
	for rows.Next() {
		var st Stop
		if err := rows.Scan(&st.ID, &st.Code, &st.Name, &st.Lat, &st.Lon); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		stops = append(stops, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stops, nil
}

// ClampLimit maps a requested page size into [1, MaxLimit].
// Zero or negative means DefaultLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// CheckCoordinates rejects positions outside WGS84 bounds.
func CheckCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", lon)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
