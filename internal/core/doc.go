// Package core loads GTFS stops into PostgreSQL and answers lookups over the
// loaded table.
//
// This package holds all domain logic independent of the CLI or HTTP layer.
// It can be driven by cmd/stopload, the web server, or tests without
// modification.
//
// # Import Run
//
// An [Importer] performs one pass over one file:
//
//  1. [Importer.Connect] opens a single connection (no pool).
//  2. [Importer.EnsureSchema] begins the import transaction and creates the
//     stops table if it is missing.
//  3. [Importer.ImportFile] streams the file, skipping duplicate stop IDs and
//     rows that fail validation, and inserts the rest with
//     ON CONFLICT (stop_id) DO NOTHING. The transaction is committed once.
//  4. [Importer.CreateIndexes] creates idx_stop_name and idx_stop_code in a
//     second transaction.
//
// [Importer.Run] drives the phases and always closes the connection.
//
// # Streaming
//
// Files are never loaded whole. [WrapForStreaming] strips a UTF-8 BOM,
// replaces invalid UTF-8 and counts raw bytes for progress reporting.
// [OpenSource] accepts either a plain stops.txt or a GTFS zip feed.
//
// # Arrival Predictions
//
// [PredictionClient] asks a NextBus-style publicXMLFeed for the next
// arrivals of a route at a stop, and [FormatPredictionMessage] turns them
// into a rider-facing sentence.
//
// # Error Handling
//
// Every failure is an [*Error] carrying an [ErrorKind]. Row validation and
// file access errors are recoverable; all other kinds end the run:
//
//   - configuration, connection, schema, index_creation: fatal before or
//     after the import transaction
//   - import: read/parse/insert failure, the import transaction is rolled back
//   - file_access: the file could not be opened, the run continues to index
//     creation
//   - row_validation: the row is skipped
package core
