package core

// validation.go provides header and row validation for stops files.
//
// Validation happens at two levels:
//  1. Header validation: every required column must be present
//  2. Row validation: required cells non-empty, coordinates parse as numbers
//
// Row failures are KindRowValidation errors: the row is skipped and the
// import carries on.

import (
	"fmt"
	"strings"
)

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// FieldType represents the expected data type for a CSV field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldCoordinate
)

// FieldSpec defines validation rules for a single CSV column.
type FieldSpec struct {
	Name     string    // Column header name (matched case-insensitively)
	Type     FieldType // Expected data type
	Required bool      // Column must exist in header and be non-empty
}

// Column names of the GTFS stops schema used by the importer.
const (
	ColStopID   = "stop_id"
	ColStopCode = "stop_code"
	ColStopName = "stop_name"
	ColStopLat  = "stop_lat"
	ColStopLon  = "stop_lon"
)

// StopFieldSpecs lists the stops.txt columns the importer reads.
// stop_code is optional in GTFS.
var StopFieldSpecs = []FieldSpec{
	{Name: ColStopID, Type: FieldText, Required: true},
	{Name: ColStopCode, Type: FieldText, Required: false},
	{Name: ColStopName, Type: FieldText, Required: true},
	{Name: ColStopLat, Type: FieldCoordinate, Required: true},
	{Name: ColStopLon, Type: FieldCoordinate, Required: true},
}

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field/column name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidateHeaders checks that all required columns exist in the CSV headers.
// Returns the header index, or an error listing missing columns.
func ValidateHeaders(headers []string, specs []FieldSpec) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, spec := range specs {
		if spec.Required {
			if _, ok := idx[strings.ToLower(spec.Name)]; !ok {
				missing = append(missing, spec.Name)
			}
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return idx, nil
}

// RawStop is one data row with its text cells trimmed but not yet parsed.
type RawStop struct {
	Line int
	ID   string
	Code string
	Name string
	Lat  string
	Lon  string
}

// rawStopFromRecord picks the stop columns out of a record.
// Cells beyond the end of a short row read as empty.
func rawStopFromRecord(record []string, idx HeaderIndex, line int) RawStop {
	cell := func(name string) string {
		pos, ok := idx[name]
		if !ok || pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	return RawStop{
		Line: line,
		ID:   cell(ColStopID),
		Code: cell(ColStopCode),
		Name: cell(ColStopName),
		Lat:  cell(ColStopLat),
		Lon:  cell(ColStopLon),
	}
}

// Validate parses the row into a Stop. A blank stop_code becomes NULL.
// The returned error is a KindRowValidation *Error wrapping a ValidationError.
func (r RawStop) Validate() (Stop, error) {
	fail := func(field, value, msg string) (Stop, error) {
		return Stop{}, NewError(KindRowValidation, fmt.Sprintf("line %d", r.Line),
			ValidationError{Field: field, Value: value, Message: msg})
	}

	if r.ID == "" {
		return fail(ColStopID, r.ID, "required field is empty")
	}
	if r.Name == "" {
		return fail(ColStopName, r.Name, "required field is empty")
	}

	lat, err := ParseCoordinate(r.Lat)
	if err != nil {
		return fail(ColStopLat, r.Lat, err.Error())
	}
	lon, err := ParseCoordinate(r.Lon)
	if err != nil {
		return fail(ColStopLon, r.Lon, err.Error())
	}

	return Stop{
		ID:   r.ID,
		Code: ToPgText(r.Code),
		Name: r.Name,
		Lat:  lat,
		Lon:  lon,
	}, nil
}
