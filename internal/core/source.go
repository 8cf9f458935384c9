package core

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StopsMember is the file read out of a GTFS zip feed.
const StopsMember = "stops.txt"

// Source is an open stops file, either on disk or inside a GTFS zip.
type Source struct {
	io.Reader
	Name string // path, or path!stops.txt for zip members
	Size int64  // uncompressed size in bytes, 0 if unknown

	closers []func() error
}

// OpenSource opens a stops.txt/CSV file, or the stops.txt member of a GTFS
// .zip feed. Errors wrap fs.ErrNotExist when the file or member is missing.
func OpenSource(p string) (*Source, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", p)
	}

	if !strings.EqualFold(filepath.Ext(p), ".zip") {
		return &Source{
			Reader:  f,
			Name:    p,
			Size:    info.Size(),
			closers: []func() error{f.Close},
		}, nil
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open zip %s: %w", p, err)
	}

	member := findZipMember(zr, StopsMember)
	if member == nil {
		f.Close()
		return nil, fmt.Errorf("%s not found in %s: %w", StopsMember, p, fs.ErrNotExist)
	}

	rc, err := member.Open()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s in %s: %w", member.Name, p, err)
	}

	return &Source{
		Reader:  rc,
		Name:    p + "!" + member.Name,
		Size:    int64(member.UncompressedSize64),
		closers: []func() error{rc.Close, f.Close},
	}, nil
}

// findZipMember matches on base name, case-insensitively, so feeds that
// nest their files in a directory still work. A top-level match wins.
func findZipMember(zr *zip.Reader, name string) *zip.File {
	var nested *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !strings.EqualFold(path.Base(f.Name), name) {
			continue
		}
		if !strings.Contains(f.Name, "/") {
			return f
		}
		if nested == nil {
			nested = f
		}
	}
	return nested
}

// Close releases every handle the source holds.
func (s *Source) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
