package window

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	clauseLayout    = "2006-01-02T15:04:05.999999-07:00"
	timestampLayout = "20060102_150405"

	// DefaultRangeDays is how far back the window starts when no start date is given
	DefaultRangeDays = 30

	// DefaultOutputDir is where archives are written unless overridden
	DefaultOutputDir = "/tmp"
)

// Timestamps InfluxDB can store, inclusive
var (
	MinTime = time.Unix(0, math.MinInt64+2).UTC()
	MaxTime = time.Unix(0, math.MaxInt64).UTC()
)

const secondsPerDay = 24 * 60 * 60

// ErrInvalidInput is returned for bad dates, ranges and day counts
var ErrInvalidInput = errors.New("invalid input")

// Options holds the raw window arguments from the command line
type Options struct {
	LastNDays    int
	HasLastNDays bool // --last-n-days was given; it overrides the dates
	StartDate    string
	EndDate      string
}

// TimeWindow is an inclusive UTC time range plus the label used in the archive name
type TimeWindow struct {
	Start time.Time
	End   time.Time
	Label string
}

// Resolve turns the command line options into a TimeWindow relative to now
func Resolve(opts Options, now time.Time) (TimeWindow, error) {
	now = now.UTC()

	if opts.HasLastNDays {
		if opts.LastNDays <= 0 {
			return TimeWindow{}, fmt.Errorf("%w: --last-n-days must be positive, got %d", ErrInvalidInput, opts.LastNDays)
		}
		// bound N before AddDate, which wraps silently for huge values
		maxDays := (now.Unix() - MinTime.Unix()) / secondsPerDay
		if int64(opts.LastNDays) > maxDays {
			return TimeWindow{}, fmt.Errorf("%w: --last-n-days %d reaches before %s", ErrInvalidInput, opts.LastNDays, MinTime.Format(dateLayout))
		}
		start := now.AddDate(0, 0, -opts.LastNDays)
		if start.Before(MinTime) || !start.Before(now) {
			return TimeWindow{}, fmt.Errorf("%w: --last-n-days %d is out of range", ErrInvalidInput, opts.LastNDays)
		}
		return TimeWindow{
			Start: start,
			End:   now,
			Label: fmt.Sprintf("Last%dDays", opts.LastNDays),
		}, nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	startStr := opts.StartDate
	if startStr == "" {
		startStr = today.AddDate(0, 0, -DefaultRangeDays).Format(dateLayout)
	}
	endStr := opts.EndDate
	if endStr == "" {
		endStr = today.Format(dateLayout)
	}

	start, err := parseDate(startStr)
	if err != nil {
		return TimeWindow{}, err
	}
	end, err := parseDate(endStr)
	if err != nil {
		return TimeWindow{}, err
	}

	if start.Before(MinTime) || end.After(MaxTime) {
		return TimeWindow{}, fmt.Errorf("%w: dates must fall between %s and %s", ErrInvalidInput,
			MinTime.Format(dateLayout), MaxTime.Format(dateLayout))
	}

	if start.After(end) {
		return TimeWindow{}, fmt.Errorf("%w: start date must be before end date (%s > %s)", ErrInvalidInput, startStr, endStr)
	}

	return TimeWindow{
		Start: start,
		End:   end,
		Label: fmt.Sprintf("%s_to_%s", start.Format(dateLayout), end.Format(dateLayout)),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date format %q (use YYYY-MM-DD): %v", ErrInvalidInput, s, err)
	}
	return t, nil
}

// TimeClause renders the window as an InfluxQL WHERE condition on the time column
func (w TimeWindow) TimeClause() string {
	return fmt.Sprintf("time >= '%s' AND time <= '%s'",
		w.Start.UTC().Format(clauseLayout), w.End.UTC().Format(clauseLayout))
}

// String returns a readable form of the window for progress output
func (w TimeWindow) String() string {
	return fmt.Sprintf("%s to %s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// ArchivePath builds the archive file name for an export started at exportedAt
func ArchivePath(dir string, exportedAt time.Time, w TimeWindow) string {
	if dir == "" {
		dir = DefaultOutputDir
	}
	name := fmt.Sprintf("GarminStats_Export_%s_%s.zip", exportedAt.UTC().Format(timestampLayout), w.Label)
	return filepath.Join(dir, name)
}
