package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the interface for database operations.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Conn is the single connection an import run holds.
// Satisfied by *pgx.Conn.
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// ConnectFunc opens a Conn from a connection string.
type ConnectFunc func(ctx context.Context, connString string) (Conn, error)

// Stop is one transit stop record.
type Stop struct {
	ID   string      `json:"stop_id"`
	Code pgtype.Text `json:"stop_code"` // NULL when absent
	Name string      `json:"stop_name"`
	Lat  float64     `json:"stop_lat"`
	Lon  float64     `json:"stop_lon"`
}

// NearestStop is a Stop with its great-circle distance from a query point.
type NearestStop struct {
	Stop
	DistanceKM float64 `json:"distance_km"`
}

// RunPhase indicates the current stage of an import run.
// Transitions are one-way:
//
//	disconnected -> connected -> schema_ready -> importing -> indexed -> closed
type RunPhase string

const (
	PhaseDisconnected RunPhase = "disconnected"
	PhaseConnected    RunPhase = "connected"
	PhaseSchemaReady  RunPhase = "schema_ready"
	PhaseImporting    RunPhase = "importing"
	PhaseIndexed      RunPhase = "indexed"
	PhaseClosed       RunPhase = "closed"
)

// ImportResult summarizes one import run.
type ImportResult struct {
	RunID       string        `json:"run_id"`
	File        string        `json:"file"`
	RowsRead    int           `json:"rows_read"`
	Attempted   int           `json:"attempted"`  // insert statements executed
	Inserted    int64         `json:"inserted"`   // rows actually added (conflicts excluded)
	Duplicates  int           `json:"duplicates"` // repeated stop_id within the file
	Invalid     int           `json:"invalid"`    // rows failing validation
	BytesRead   int64         `json:"bytes_read"`
	FileMissing bool          `json:"file_missing"`
	Duration    time.Duration `json:"duration"`
}
