package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jgoulah/garminexport/internal/config"
	"github.com/jgoulah/garminexport/internal/export"
	"github.com/jgoulah/garminexport/internal/influx"
	"github.com/jgoulah/garminexport/internal/publisher"
	"github.com/jgoulah/garminexport/internal/window"
	"github.com/jgoulah/garminexport/pkg/models"
)

var (
	exportLastNDays    int
	exportStartDate    string
	exportEndDate      string
	exportOutputDir    string
	exportQueryTimeout time.Duration
	exportNoHistory    bool
)

func init() {
	flags := rootCmd.Flags()
	flags.IntVar(&exportLastNDays, "last-n-days", 0, "Query data from the last N days (overrides date range)")
	flags.StringVar(&exportStartDate, "start-date", "", "Start date in YYYY-MM-DD (default: 30 days before today)")
	flags.StringVar(&exportEndDate, "end-date", "", "End date in YYYY-MM-DD (default: today)")
	flags.StringVar(&exportOutputDir, "output-dir", "", "Directory for the ZIP archive (default: /tmp)")
	flags.DurationVar(&exportQueryTimeout, "query-timeout", 0, "Timeout for each InfluxDB query (0 = no timeout)")
	flags.BoolVar(&exportNoHistory, "no-history", false, "Do not record this export in the history database")
}

// source is an open database connection
type source interface {
	export.Source
	Close() error
}

// exportJob runs one export. The hooks are swapped out in tests.
type exportJob struct {
	cfg        config.Config
	out        io.Writer
	now        func() time.Time
	openSource func(config.Config) (source, error)
	record     func(*models.ExportRecord) error // optional
	notify     func(models.ExportRecord) error  // optional
}

func runExport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "=== Export started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	opts := window.Options{
		LastNDays:    exportLastNDays,
		HasLastNDays: cmd.Flags().Changed("last-n-days"),
		StartDate:    exportStartDate,
		EndDate:      exportEndDate,
	}

	job := &exportJob{
		out:        out,
		now:        time.Now,
		openSource: openInflux,
	}

	// Resolve the window before touching config or the network
	w, startedAt, err := job.resolve(opts)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if exportOutputDir != "" {
		cfg.OutputDir = exportOutputDir
	}
	if cmd.Flags().Changed("query-timeout") {
		cfg.QueryTimeout = exportQueryTimeout
	}
	job.cfg = cfg

	if !exportNoHistory {
		db, err := openDB(cfg)
		if err != nil {
			fmt.Fprintf(out, "Warning: Could not open history database: %v\n", err)
		} else {
			defer db.Close()
			job.record = db.InsertExport
		}
	}

	if cfg.MQTT.Enabled {
		pub, err := publisher.New(cfg.MQTT)
		if err != nil {
			fmt.Fprintf(out, "Warning: Could not connect to MQTT broker: %v\n", err)
		} else {
			defer pub.Close()
			job.notify = pub.Publish
		}
	}

	_, err = job.run(cmd.Context(), w, startedAt)
	return err
}

func openInflux(cfg config.Config) (source, error) {
	return influx.Open(cfg.InfluxDB, cfg.QueryTimeout)
}

// resolve turns the options into a window relative to the job's clock
func (j *exportJob) resolve(opts window.Options) (window.TimeWindow, time.Time, error) {
	startedAt := j.now()
	w, err := window.Resolve(opts, startedAt)
	if err != nil {
		return window.TimeWindow{}, time.Time{}, err
	}
	return w, startedAt, nil
}

// run connects, exports w, then records the run
func (j *exportJob) run(ctx context.Context, w window.TimeWindow, startedAt time.Time) (*export.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	archivePath := window.ArchivePath(j.cfg.OutputDir, startedAt, w)

	fmt.Fprintf(j.out, "Exporting %s (%s)\n", w.Label, w)
	fmt.Fprintf(j.out, "Connecting to %s, database %s...\n", j.cfg.InfluxDB.Addr(), j.cfg.InfluxDB.Database)

	src, err := j.openSource(j.cfg)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	result, err := export.New(src, j.out).Run(ctx, w, archivePath)
	if err != nil {
		return result, err
	}

	rec := models.ExportRecord{
		RunID:        uuid.NewString(),
		Archive:      result.Archive,
		Label:        w.Label,
		WindowStart:  w.Start,
		WindowEnd:    w.End,
		FilesWritten: result.FilesWritten,
		Measurements: len(result.Measurements),
		Bytes:        result.Bytes,
		CreatedAt:    startedAt,
	}

	if j.record != nil {
		if err := j.record(&rec); err != nil {
			fmt.Fprintf(j.out, "Warning: Could not record export history: %v\n", err)
		}
	}
	if j.notify != nil {
		if err := j.notify(rec); err != nil {
			fmt.Fprintf(j.out, "Warning: Could not publish export notification: %v\n", err)
		} else {
			fmt.Fprintln(j.out, "✓ Export notification published")
		}
	}

	return result, nil
}
