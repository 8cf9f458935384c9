package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultProgressInterval is how many rows pass between progress log lines.
var DefaultProgressInterval = 1000

// ImporterOptions configures an Importer.
type ImporterOptions struct {
	// Connect opens the run's connection. Defaults to pgx.Connect.
	Connect ConnectFunc

	// ProgressInterval is rows between debug progress lines.
	ProgressInterval int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Importer loads one stops file into one database in a single pass.
// It is not safe for concurrent use.
type Importer struct {
	connect          ConnectFunc
	progressInterval int

	runID uuid.UUID
	log   *slog.Logger
	conn  Conn
	tx    pgx.Tx // open import transaction, nil outside EnsureSchema..ImportFile
	phase RunPhase
}

// NewImporter creates an Importer in the disconnected phase.
func NewImporter(opts ImporterOptions) *Importer {
	if opts.Connect == nil {
		opts.Connect = connectPgx
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	runID := uuid.New()
	return &Importer{
		connect:          opts.Connect,
		progressInterval: opts.ProgressInterval,
		runID:            runID,
		log:              opts.Logger.With("run_id", runID.String()),
		phase:            PhaseDisconnected,
	}
}

func connectPgx(ctx context.Context, connString string) (Conn, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// RunID identifies this run in logs and in the ImportResult.
func (im *Importer) RunID() string {
	return im.runID.String()
}

// Phase returns the current run phase.
func (im *Importer) Phase() RunPhase {
	return im.phase
}

// Run executes the whole pipeline: connect, ensure schema, import the file,
// create indexes. The connection is closed on every path.
//
// A missing or unreadable file is logged and the run still creates indexes
// and succeeds. Any other import failure rolls back and skips the indexes.
func (im *Importer) Run(ctx context.Context, connString, path string) (*ImportResult, error) {
	if strings.TrimSpace(connString) == "" {
		return nil, NewError(KindConfiguration, "run", ErrMissingConnString)
	}

	if err := im.Connect(ctx, connString); err != nil {
		return nil, err
	}
	defer im.Close(ctx)

	if err := im.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	result, err := im.ImportFile(ctx, path)
	if err != nil {
		if !IsKind(err, KindFileAccess) {
			return result, err
		}
		im.log.Error("stops file not imported", "file", path, "error", err)
	}

	if err := im.CreateIndexes(ctx); err != nil {
		return result, err
	}

	return result, nil
}

// Connect opens the run's single database connection.
func (im *Importer) Connect(ctx context.Context, connString string) error {
	if im.phase != PhaseDisconnected {
		return fmt.Errorf("connect: importer is %s", im.phase)
	}
	if strings.TrimSpace(connString) == "" {
		return NewError(KindConfiguration, "connect", ErrMissingConnString)
	}

	im.log.Debug("connecting to database")
	conn, err := im.connect(ctx, connString)
	if err != nil {
		im.log.Error("database connection failed", "error", err)
		return NewError(KindConnection, "connect", err)
	}

	im.conn = conn
	im.phase = PhaseConnected
	im.log.Info("connected to database")
	return nil
}

// EnsureSchema begins the import transaction and creates the stops table
// if it does not exist.
func (im *Importer) EnsureSchema(ctx context.Context) error {
	if im.phase != PhaseConnected {
		return fmt.Errorf("ensure schema: importer is %s", im.phase)
	}

	tx, err := im.conn.Begin(ctx)
	if err != nil {
		return NewError(KindSchema, "begin transaction", err)
	}

	im.log.Debug("creating stops table if not exists")
	if err := createStopsTable(ctx, tx); err != nil {
		_ = tx.Rollback(ctx)
		im.log.Error("schema creation failed", "error", err)
		return NewError(KindSchema, "ensure schema", err)
	}

	im.tx = tx
	im.phase = PhaseSchemaReady
	im.log.Info("stops table created or already exists")
	return nil
}

// ImportFile streams path into the stops table inside the import
// transaction and commits it.
//
// If the file cannot be opened the transaction (holding the table) is still
// committed and a KindFileAccess error is returned. Read, parse or insert
// failures roll the transaction back and return a KindImport error.
func (im *Importer) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	if im.phase != PhaseSchemaReady || im.tx == nil {
		return nil, fmt.Errorf("import file: importer is %s", im.phase)
	}
	im.phase = PhaseImporting

	start := time.Now()
	result := &ImportResult{RunID: im.RunID(), File: path}
	log := im.log.With("file", path)

	src, err := OpenSource(path)
	if err != nil {
		result.FileMissing = errors.Is(err, fs.ErrNotExist)
		if result.FileMissing {
			err = fmt.Errorf("%w: %w", ErrFileNotFound, err)
		}
		if cerr := im.commit(ctx); cerr != nil {
			return result, cerr
		}
		result.Duration = time.Since(start)
		return result, NewError(KindFileAccess, "open "+path, err)
	}
	defer src.Close()

	log.Info("import started", "source", src.Name, "bytes", src.Size)

	if err := im.importRows(ctx, src, result, log); err != nil {
		if rbErr := im.rollback(ctx); rbErr != nil {
			log.Error("rollback failed", "error", rbErr)
		}
		result.Duration = time.Since(start)
		log.Error("import failed, transaction rolled back", "error", err, "line_count", result.RowsRead)
		return result, NewError(KindImport, "import "+path, err)
	}

	if err := im.commit(ctx); err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	log.Info("import completed",
		"attempted", result.Attempted,
		"inserted", result.Inserted,
		"duplicates", result.Duplicates,
		"invalid", result.Invalid,
		"duration", result.Duration,
	)
	return result, nil
}

// importRows is the dedupe/validate/insert loop.
func (im *Importer) importRows(ctx context.Context, src *Source, result *ImportResult, log *slog.Logger) error {
	reader, err := NewStopReader(src, src.Size)
	if err != nil {
		return err
	}
	defer func() {
		result.RowsRead = reader.Rows()
		result.BytesRead = reader.BytesRead()
	}()

	seen := make(map[string]struct{})

	for {
		raw, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read stops: %w", err)
		}

		if reader.Rows()%im.progressInterval == 0 {
			log.Debug("import progress",
				"rows", reader.Rows(),
				"percent", reader.Progress(),
				"attempted", result.Attempted,
			)
		}

		// seen before parsing: a repeat of an invalid row is still a repeat
		if raw.ID != "" {
			if _, dup := seen[raw.ID]; dup {
				result.Duplicates++
				log.Debug("duplicate stop_id, skipping", "stop_id", raw.ID, "line", raw.Line)
				continue
			}
			seen[raw.ID] = struct{}{}
		}

		stop, err := raw.Validate()
		if err != nil {
			result.Invalid++
			log.Warn("invalid row, skipping", "stop_id", raw.ID, "line", raw.Line, "error", err)
			continue
		}

		added, err := insertStop(ctx, im.tx, stop)
		if err != nil {
			return err
		}
		result.Attempted++
		result.Inserted += added
	}
}

// CreateIndexes creates idx_stop_name and idx_stop_code in their own
// transaction. It must run after the import transaction has committed.
func (im *Importer) CreateIndexes(ctx context.Context) error {
	if im.phase != PhaseImporting || im.tx != nil {
		return fmt.Errorf("create indexes: importer is %s", im.phase)
	}

	tx, err := im.conn.Begin(ctx)
	if err != nil {
		return NewError(KindIndexCreation, "begin transaction", err)
	}

	im.log.Debug("creating indexes", "indexes", []string{IndexStopName, IndexStopCode})
	if err := createStopIndexes(ctx, tx); err != nil {
		_ = tx.Rollback(ctx)
		im.log.Error("index creation failed", "error", err)
		return NewError(KindIndexCreation, "create indexes", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return NewError(KindIndexCreation, "commit indexes", err)
	}

	im.phase = PhaseIndexed
	im.log.Info("indexes created (if they did not already exist)")
	return nil
}

// Close rolls back any transaction still open and closes the connection.
// Safe to call more than once.
func (im *Importer) Close(ctx context.Context) error {
	if im.phase == PhaseClosed {
		return nil
	}

	if im.tx != nil {
		if err := im.rollback(ctx); err != nil {
			im.log.Warn("rollback on close failed", "error", err)
		}
	}

	var err error
	if im.conn != nil {
		err = im.conn.Close(ctx)
		im.conn = nil
	}

	im.phase = PhaseClosed
	im.log.Info("database connection closed")
	return err
}

func (im *Importer) commit(ctx context.Context) error {
	tx := im.tx
	im.tx = nil
	if err := tx.Commit(ctx); err != nil {
		return NewError(KindImport, "commit", err)
	}
	return nil
}

func (im *Importer) rollback(ctx context.Context) error {
	tx := im.tx
	im.tx = nil
	return tx.Rollback(ctx)
}
