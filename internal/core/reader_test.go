package core

import (
	"archive/zip"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *StopReader) []RawStop {
	t.Helper()
	var out []RawStop
	for {
		raw, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, raw)
	}
}

func TestStopReader(t *testing.T) {
	t.Parallel()

	t.Run("reads rows by header name", func(t *testing.T) {
		t.Parallel()
		data := "stop_name,stop_lon,stop_lat,stop_id,stop_code\n" +
			"Main St,-74.0,40.7,S1,100\n" +
			"\"Elm, North\",-74.1,40.8,S2,\n"

		r, err := NewStopReader(strings.NewReader(data), int64(len(data)))
		require.NoError(t, err)

		rows := readAll(t, r)
		require.Len(t, rows, 2)
		require.Equal(t, RawStop{Line: 2, ID: "S1", Code: "100", Name: "Main St", Lat: "40.7", Lon: "-74.0"}, rows[0])
		require.Equal(t, "Elm, North", rows[1].Name)
		require.Equal(t, 3, rows[1].Line)
		require.Equal(t, 2, r.Rows())
		require.Equal(t, int64(len(data)), r.BytesRead())
		require.Equal(t, 100, r.Progress())
	})

	t.Run("strips BOM from first header", func(t *testing.T) {
		t.Parallel()
		data := "\xEF\xBB\xBFstop_id,stop_name,stop_lat,stop_lon\nS1,Main,1,2\n"

		r, err := NewStopReader(strings.NewReader(data), 0)
		require.NoError(t, err)

		rows := readAll(t, r)
		require.Len(t, rows, 1)
		require.Equal(t, "S1", rows[0].ID)
		require.Equal(t, 0, r.Progress())
	})

	t.Run("skips blank rows", func(t *testing.T) {
		t.Parallel()
		data := "stop_id,stop_name,stop_lat,stop_lon\n\nS1,Main,1,2\n , , , \nS2,Elm,3,4\n"

		r, err := NewStopReader(strings.NewReader(data), 0)
		require.NoError(t, err)

		rows := readAll(t, r)
		require.Len(t, rows, 2)
		require.Equal(t, "S2", rows[1].ID)
		require.Equal(t, 5, rows[1].Line)
	})

	t.Run("short rows are kept", func(t *testing.T) {
		t.Parallel()
		data := "stop_id,stop_name,stop_lat,stop_lon\nS1,Main\n"

		r, err := NewStopReader(strings.NewReader(data), 0)
		require.NoError(t, err)

		rows := readAll(t, r)
		require.Len(t, rows, 1)
		require.Empty(t, rows[0].Lat)
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		_, err := NewStopReader(strings.NewReader(""), 0)
		require.ErrorContains(t, err, "missing header")
	})

	t.Run("missing required columns", func(t *testing.T) {
		t.Parallel()
		_, err := NewStopReader(strings.NewReader("id,name,lat,lon\n1,a,1,2\n"), 0)
		require.ErrorContains(t, err, "missing required columns")
	})

	t.Run("bare quotes inside a field", func(t *testing.T) {
		t.Parallel()
		data := "stop_id,stop_name,stop_lat,stop_lon\nS1,Main \"A\" St,1,2\n"

		r, err := NewStopReader(strings.NewReader(data), 0)
		require.NoError(t, err)

		rows := readAll(t, r)
		require.Len(t, rows, 1)
		require.Equal(t, `Main "A" St`, rows[0].Name)
	})
}

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "feed.zip")
	f, err := os.Create(p)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func TestOpenSource(t *testing.T) {
	t.Parallel()

	const stops = "stop_id,stop_name,stop_lat,stop_lon\nS1,Main,1,2\n"

	t.Run("plain file", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(t.TempDir(), "stops.txt")
		require.NoError(t, os.WriteFile(p, []byte(stops), 0o644))

		src, err := OpenSource(p)
		require.NoError(t, err)
		defer src.Close()

		require.Equal(t, p, src.Name)
		require.Equal(t, int64(len(stops)), src.Size)

		body, err := io.ReadAll(src)
		require.NoError(t, err)
		require.Equal(t, stops, string(body))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := OpenSource(filepath.Join(t.TempDir(), "nope.txt"))
		require.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		_, err := OpenSource(t.TempDir())
		require.Error(t, err)
		require.NotErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("zip feed", func(t *testing.T) {
		t.Parallel()
		p := writeZip(t, map[string]string{
			"agency.txt": "agency_id\nA\n",
			"stops.txt":  stops,
		})

		src, err := OpenSource(p)
		require.NoError(t, err)
		defer src.Close()

		require.Equal(t, p+"!stops.txt", src.Name)
		require.Equal(t, int64(len(stops)), src.Size)

		body, err := io.ReadAll(src)
		require.NoError(t, err)
		require.Equal(t, stops, string(body))
	})

	t.Run("zip feed nested in a directory", func(t *testing.T) {
		t.Parallel()
		p := writeZip(t, map[string]string{"gtfs/STOPS.TXT": stops})

		src, err := OpenSource(p)
		require.NoError(t, err)
		defer src.Close()
		require.Equal(t, p+"!gtfs/STOPS.TXT", src.Name)
	})

	t.Run("zip without stops member", func(t *testing.T) {
		t.Parallel()
		p := writeZip(t, map[string]string{"routes.txt": "route_id\n"})

		_, err := OpenSource(p)
		require.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("corrupt zip", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(t.TempDir(), "bad.zip")
		require.NoError(t, os.WriteFile(p, []byte("not a zip"), 0o644))

		_, err := OpenSource(p)
		require.Error(t, err)
		require.NotErrorIs(t, err, fs.ErrNotExist)
	})
}
