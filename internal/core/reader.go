package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// StopReader streams RawStop rows from a stops file with header-based
// field access.
type StopReader struct {
	csv     *csv.Reader
	counter *CountingReader
	header  HeaderIndex
	rows    int
}

// NewStopReader wraps r for streaming, reads the header row and checks
// that the required stop columns are present.
func NewStopReader(r io.Reader, size int64) (*StopReader, error) {
	decoded, counter := WrapForStreaming(r, size)

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := ValidateHeaders(header, StopFieldSpecs)
	if err != nil {
		return nil, err
	}

	return &StopReader{
		csv:     cr,
		counter: counter,
		header:  idx,
	}, nil
}

// Next returns the next non-blank row, or io.EOF when the file is done.
// Any other error means the file could not be parsed past this point.
func (r *StopReader) Next() (RawStop, error) {
	for {
		record, err := r.csv.Read()
		if err != nil {
			return RawStop{}, err
		}

		if isEmptyRow(record) {
			continue
		}

		r.rows++
		line, _ := r.csv.FieldPos(0)
		return rawStopFromRecord(record, r.header, line), nil
	}
}

// Rows returns the number of data rows returned so far.
func (r *StopReader) Rows() int {
	return r.rows
}

// BytesRead returns the raw bytes consumed from the underlying file.
func (r *StopReader) BytesRead() int64 {
	return r.counter.BytesRead
}

// Progress returns byte-based progress (0-100), 0 if the size is unknown.
func (r *StopReader) Progress() int {
	return r.counter.Progress()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
