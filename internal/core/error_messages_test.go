package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "missing connection string",
			err:      NewError(KindConfiguration, "connect", ErrMissingConnString),
			wantCode: "CFG001",
		},
		{
			name:     "missing file through wrapping",
			err:      NewError(KindFileAccess, "open stops.txt", fmt.Errorf("%w: open stops.txt: no such file", ErrFileNotFound)),
			wantCode: "FILE001",
		},
		{
			name:     "stop not found",
			err:      ErrStopNotFound,
			wantCode: "STOP001",
		},
		{
			name:     "prediction feed refused",
			err:      fmt.Errorf("%w: fetch: dial tcp: connection refused", ErrPredictionFeed),
			wantCode: "PRED001",
		},
		{
			name:     "connection refused",
			err:      errors.New("failed to connect to `host=localhost`: dial tcp 127.0.0.1:5432: connect: connection refused"),
			wantCode: "DB001",
		},
		{
			name:     "bad password",
			err:      errors.New(`FATAL: password authentication failed for user "gtfs" (SQLSTATE 28P01)`),
			wantCode: "DB002",
		},
		{
			name:     "unknown database",
			err:      errors.New(`FATAL: database "gtfs" does not exist (SQLSTATE 3D000)`),
			wantCode: "DB003",
		},
		{
			name:     "header missing columns",
			err:      NewError(KindImport, "import stops.txt", errors.New("missing required columns: stop_lat")),
			wantCode: "FILE002",
		},
		{
			name:     "csv parse error",
			err:      errors.New(`read stops: parse error on line 4, column 7: extraneous or missing " in quoted-field`),
			wantCode: "FILE003",
		},
		{
			name:     "case insensitive",
			err:      errors.New("CONNECTION REFUSED"),
			wantCode: "DB001",
		},
		{
			name:     "unknown error falls back",
			err:      errors.New("something odd"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Errorf("MapError(%v).Message is empty", tt.err)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(ErrStopNotFound)
	want := "Stop not found (Code: STOP001). Check the stop ID, or import the feed first"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}
