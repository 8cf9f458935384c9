package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/stopload/internal/core"
	"github.com/JonMunkholm/stopload/internal/logging"
	"github.com/spf13/cobra"
)

func newImportCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a GTFS stops.txt (or feed .zip) into the stops table",
		Long: `Creates the stops table if needed, loads every new stop_id from the
file in one transaction, then creates idx_stop_name and idx_stop_code.

A missing file is logged and the run still succeeds. Any other import
failure rolls back and leaves the indexes untouched.`,
		Args: func(cmd *cobra.Command, args []string) error {
			return withCode(exitUsage, cobra.MaximumNArgs(1)(cmd, args))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			file := opts.cfg.Import.File
			if len(args) == 1 {
				file = args[0]
			}

			importer := core.NewImporter(core.ImporterOptions{
				ProgressInterval: opts.cfg.Import.ProgressInterval,
				Logger:           logging.WithFields(cmd.Context(), "command", "import"),
			})

			result, err := importer.Run(cmd.Context(), opts.cfg.Database.URL, file)
			if err != nil {
				return withCode(codeForKind(err), err)
			}
			return reportImport(cmd.OutOrStdout(), result, asJSON)
		},
	}

	opts.bind(cmd, "IMPORT_FILE", "file", "Stops file or GTFS .zip (overrides IMPORT_FILE, default stops.txt)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run summary as JSON")
	return cmd
}

func reportImport(w io.Writer, r *core.ImportResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("json encode: %w", err)
		}
		return nil
	}

	if r.FileMissing {
		_, err := fmt.Fprintf(w, "%s: file not found, nothing imported (table and indexes ensured)\n", r.File)
		return err
	}
	_, err := fmt.Fprintf(w, "%s: %d rows read, %d inserted, %d already present, %d duplicate ids, %d invalid (%s)\n",
		r.File, r.RowsRead, r.Inserted, int64(r.Attempted)-r.Inserted, r.Duplicates, r.Invalid, r.Duration.Round(time.Millisecond))
	return err
}
