package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jgoulah/garminexport/internal/window"
	"github.com/jgoulah/garminexport/pkg/models"
)

// ErrMetadataQuery is returned when the measurement list cannot be fetched
var ErrMetadataQuery = errors.New("metadata query failed")

// Source is the database the exporter reads from
type Source interface {
	ListMeasurements(ctx context.Context) ([]string, error)
	Select(ctx context.Context, measurement, clause string) (*models.ResultSet, error)
}

// Status is the outcome of exporting one measurement
type Status string

const (
	StatusWritten Status = "written"
	StatusEmpty   Status = "empty"
	StatusFailed  Status = "failed"
)

// MeasurementResult records what happened to one measurement
type MeasurementResult struct {
	Name   string
	Status Status
	Rows   int
	Err    error
}

// Result summarizes an export run
type Result struct {
	Archive      string // absolute path of the zip file
	FilesWritten int
	Bytes        int64
	Measurements []MeasurementResult
}

// Exporter writes one CSV per measurement into a zip archive
type Exporter struct {
	source Source
	out    io.Writer
}

// New creates an exporter that reports progress to out
func New(source Source, out io.Writer) *Exporter {
	if out == nil {
		out = io.Discard
	}
	return &Exporter{source: source, out: out}
}

// Enumerate lists the measurements to export, without the excluded ones
func (e *Exporter) Enumerate(ctx context.Context) ([]string, error) {
	names, err := e.source.ListMeasurements(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataQuery, err)
	}

	fmt.Fprintf(e.out, "Found %d measurements. Skipping: %v\n", len(names), excludedList())
	for _, name := range names {
		if IsExcluded(name) {
			fmt.Fprintf(e.out, " !! Skipping: %s\n", name)
		}
	}
	return FilterMeasurements(names), nil
}

// Run exports every non-excluded measurement within w into archivePath.
// Per-measurement query failures are logged and skipped; everything else is returned.
func (e *Exporter) Run(ctx context.Context, w window.TimeWindow, archivePath string) (*Result, error) {
	measurements, err := e.Enumerate(ctx)
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(archivePath)
	if err != nil {
		return nil, fmt.Errorf("resolving archive path: %w", err)
	}

	result, err := e.writeArchive(ctx, absPath, w.TimeClause(), measurements)
	if err != nil {
		return result, err
	}

	if info, statErr := os.Stat(absPath); statErr == nil {
		result.Bytes = info.Size()
	}

	if result.FilesWritten == 0 {
		fmt.Fprintln(e.out, "⚠ No data collected or exported.")
	} else {
		fmt.Fprintf(e.out, "\n✓ Exported %d measurement CSVs into %s (%s)\n",
			result.FilesWritten, absPath, humanize.Bytes(uint64(result.Bytes)))
	}

	return result, nil
}

// writeArchive creates the zip file and fills it. The zip writer and the
// file are closed on every return path so the central directory is written.
func (e *Exporter) writeArchive(ctx context.Context, path, clause string, measurements []string) (result *Result, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}
	zw := zip.NewWriter(f)

	defer func() {
		if cerr := zw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("finalizing archive: %w", cerr)
		}
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing archive: %w", cerr)
		}
	}()

	result = &Result{Archive: path}
	for _, name := range measurements {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		mr, err := e.exportMeasurement(ctx, zw, name, clause)
		if err != nil {
			return result, err
		}
		result.Measurements = append(result.Measurements, mr)
		if mr.Status == StatusWritten {
			result.FilesWritten++
		}
	}

	return result, nil
}

// exportMeasurement queries one measurement and adds it to the archive.
// Query failures are reported in the MeasurementResult; only archive write
// failures are returned as errors.
func (e *Exporter) exportMeasurement(ctx context.Context, zw *zip.Writer, name, clause string) (MeasurementResult, error) {
	fmt.Fprintf(e.out, " >> Querying: %s\n", name)

	rs, err := e.source.Select(ctx, name, clause)
	if err != nil {
		fmt.Fprintf(e.out, "  ✗ Query failed for %s: %v\n", name, err)
		return MeasurementResult{Name: name, Status: StatusFailed, Err: err}, nil
	}

	if rs.Len() == 0 {
		fmt.Fprintln(e.out, " -- ⚠ No data within given period.")
		return MeasurementResult{Name: name, Status: StatusEmpty}, nil
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, name, rs); err != nil {
		fmt.Fprintf(e.out, "  ✗ Could not convert %s to CSV: %v\n", name, err)
		return MeasurementResult{Name: name, Status: StatusFailed, Err: err}, nil
	}

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name + ".csv",
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return MeasurementResult{}, fmt.Errorf("adding %s.csv to archive: %w", name, err)
	}
	if _, err := entry.Write(buf.Bytes()); err != nil {
		return MeasurementResult{}, fmt.Errorf("writing %s.csv: %w", name, err)
	}

	return MeasurementResult{Name: name, Status: StatusWritten, Rows: rs.Len()}, nil
}
