package core

import (
	"context"
	"fmt"
)

const createStopsTableSQL = `CREATE TABLE IF NOT EXISTS stops (
    stop_id   TEXT PRIMARY KEY,
    stop_code TEXT,
    stop_name TEXT NOT NULL,
    stop_lat  DOUBLE PRECISION NOT NULL,
    stop_lon  DOUBLE PRECISION NOT NULL
)`

const insertStopSQL = `INSERT INTO stops (stop_id, stop_code, stop_name, stop_lat, stop_lon)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (stop_id) DO NOTHING`

// Index names are part of the external interface; lookups rely on them.
const (
	IndexStopName = "idx_stop_name"
	IndexStopCode = "idx_stop_code"
)

var createIndexSQL = []struct {
	name string
	sql  string
}{
	{IndexStopName, `CREATE INDEX IF NOT EXISTS idx_stop_name ON stops (stop_name)`},
	{IndexStopCode, `CREATE INDEX IF NOT EXISTS idx_stop_code ON stops (stop_code)`},
}

// createStopsTable issues the idempotent table DDL.
func createStopsTable(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, createStopsTableSQL); err != nil {
		return fmt.Errorf("create table stops: %w", err)
	}
	return nil
}

// createStopIndexes issues the idempotent index DDL in order.
func createStopIndexes(ctx context.Context, db DBTX) error {
	for _, idx := range createIndexSQL {
		if _, err := db.Exec(ctx, idx.sql); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// insertStop inserts s unless its stop_id is already present.
// Returns the number of rows added (0 on conflict).
func insertStop(ctx context.Context, db DBTX, s Stop) (int64, error) {
	tag, err := db.Exec(ctx, insertStopSQL, s.ID, s.Code, s.Name, s.Lat, s.Lon)
	if err != nil {
		return 0, fmt.Errorf("insert stop %s: %w", s.ID, err)
	}
	return tag.RowsAffected(), nil
}
