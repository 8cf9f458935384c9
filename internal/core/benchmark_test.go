package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"
)

// ============================================================================
// Conversion Benchmarks
// ============================================================================

// BenchmarkParseCoordinate runs once per lat/lon cell on import.
func BenchmarkParseCoordinate(b *testing.B) {
	testCases := []string{
		"40.712776",
		"-74.005974",
		"  51.5  ",
		"0",
		"not-a-number",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			_, _ = ParseCoordinate(tc)
		}
	}
}

func BenchmarkToPgText(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ToPgText("1234")
		ToPgText("")
	}
}

func BenchmarkMakeHeaderIndex(b *testing.B) {
	header := []string{"stop_id", "stop_code", "stop_name", "stop_desc", "stop_lat", "stop_lon", "zone_id", "stop_url", "location_type", "parent_station"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MakeHeaderIndex(header)
	}
}

// ============================================================================
// Row Benchmarks
// ============================================================================

func BenchmarkRawStopValidate(b *testing.B) {
	raw := RawStop{Line: 2, ID: "S1", Code: "100", Name: "Main St", Lat: "40.7", Lon: "-74.0"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := raw.Validate(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRawStopValidate_Invalid covers the skip path, which allocates
// the wrapped error.
func BenchmarkRawStopValidate_Invalid(b *testing.B) {
	raw := RawStop{Line: 2, ID: "S1", Name: "Main St", Lat: "north", Lon: "-74.0"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = raw.Validate()
	}
}

// ============================================================================
// Reader Benchmarks
// ============================================================================

func BenchmarkStopReader(b *testing.B) {
	data := generateStopsCSV(1000)
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		readStops(b, data)
	}
}

func BenchmarkStopReader_Large(b *testing.B) {
	data := generateStopsCSV(50000)
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		readStops(b, data)
	}
}

// BenchmarkStopReader_Validate measures the full per-row path of an import
// minus the database round trip.
func BenchmarkStopReader_Validate(b *testing.B) {
	data := generateStopsCSV(10000)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, err := NewStopReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			b.Fatal(err)
		}
		seen := make(map[string]struct{})
		for {
			raw, err := r.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				b.Fatal(err)
			}
			if _, dup := seen[raw.ID]; dup {
				continue
			}
			seen[raw.ID] = struct{}{}
			_, _ = raw.Validate()
		}
	}
}

func BenchmarkWrapForStreaming(b *testing.B) {
	data := append([]byte("\xEF\xBB\xBF"), generateStopsCSV(10000)...)
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, _ := WrapForStreaming(bytes.NewReader(data), int64(len(data)))
		if _, err := io.Copy(io.Discard, r); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Helpers
// ============================================================================

func readStops(b *testing.B, data []byte) {
	b.Helper()
	r, err := NewStopReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		b.Fatal(err)
	}
	for {
		_, err := r.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			b.Fatal(err)
		}
	}
}

// generateStopsCSV builds a stops file with every tenth row repeating an
// earlier stop_id.
func generateStopsCSV(rows int) []byte {
	var buf bytes.Buffer
	buf.WriteString("stop_id,stop_code,stop_name,stop_lat,stop_lon\n")
	for i := 0; i < rows; i++ {
		id := i
		if i%10 == 9 {
			id = i - 1
		}
		fmt.Fprintf(&buf, "S%d,%d,Stop %d,%.6f,%.6f\n", id, 1000+id, id, 40+float64(i%1000)/1000, -74+float64(i%500)/1000)
	}
	return buf.Bytes()
}
