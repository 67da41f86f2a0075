package influx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"

	"github.com/jgoulah/garminexport/internal/config"
	"github.com/jgoulah/garminexport/pkg/models"
)

const (
	userAgent   = "garminexport"
	pingTimeout = 10 * time.Second
)

// ErrConnection is returned when the database cannot be reached or rejects the client
var ErrConnection = errors.New("connection error")

// Client runs InfluxQL queries against one database
type Client struct {
	conn     client.Client
	database string
}

// Open creates an HTTP client for the configured endpoint and pings it.
// A timeout of zero leaves queries unbounded.
func Open(cfg config.InfluxDBConfig, timeout time.Duration) (*Client, error) {
	conn, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:      cfg.Addr(),
		Username:  cfg.Username,
		Password:  cfg.Password,
		UserAgent: userAgent,
		Timeout:   timeout,
		// InsecureSkipVerify stays false: TLS mode always verifies certificates
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating client for %s: %v", ErrConnection, cfg.Addr(), err)
	}

	if _, _, err := conn.Ping(pingTimeout); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: pinging %s: %v", ErrConnection, cfg.Addr(), err)
	}

	return &Client{conn: conn, database: cfg.Database}, nil
}

// Close releases the underlying HTTP client
func (c *Client) Close() error {
	return c.conn.Close()
}

// ListMeasurements returns every measurement name in server order
func (c *Client) ListMeasurements(ctx context.Context) ([]string, error) {
	rs, err := c.query(ctx, "SHOW MEASUREMENTS")
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, col := range rs.Columns {
		if col == "name" {
			idx = i
			break
		}
	}
	if idx < 0 && len(rs.Columns) > 0 {
		idx = 0
	}

	names := make([]string, 0, len(rs.Values))
	for _, row := range rs.Values {
		if idx < 0 || idx >= len(row) {
			continue
		}
		name, ok := row[idx].(string)
		if !ok {
			return nil, fmt.Errorf("unexpected measurement name %v (%T)", row[idx], row[idx])
		}
		names = append(names, name)
	}

	return names, nil
}

// Select returns all columns of a measurement matching the WHERE clause
func (c *Client) Select(ctx context.Context, measurement, clause string) (*models.ResultSet, error) {
	return c.query(ctx, SelectQuery(measurement, clause))
}

// SelectQuery builds the per-measurement SELECT statement
func SelectQuery(measurement, clause string) string {
	return fmt.Sprintf(`SELECT * FROM %s WHERE %s`, QuoteIdent(measurement), clause)
}

// QuoteIdent double-quotes an InfluxQL identifier
func QuoteIdent(name string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(name) + `"`
}

// query checks ctx only before sending; the v2 client has no context-aware
// Query, so a request in flight is bounded by the HTTP timeout alone.
func (c *Client) query(ctx context.Context, command string) (*models.ResultSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.conn.Query(client.NewQuery(command, c.database, ""))
	if err != nil {
		return nil, fmt.Errorf("running %q: %w", command, err)
	}
	if err := resp.Error(); err != nil {
		return nil, fmt.Errorf("running %q: %w", command, err)
	}

	var rs models.ResultSet
	for _, result := range resp.Results {
		for _, series := range result.Series {
			mergeSeries(&rs, series.Columns, series.Values)
		}
	}
	return &rs, nil
}

// mergeSeries appends rows from one series to rs. Columns are unioned in
// first-seen order and cells missing from a series stay nil.
func mergeSeries(rs *models.ResultSet, columns []string, values [][]interface{}) {
	pos := make(map[string]int, len(rs.Columns))
	for i, col := range rs.Columns {
		pos[col] = i
	}

	mapping := make([]int, len(columns))
	grew := false
	for i, col := range columns {
		j, ok := pos[col]
		if !ok {
			j = len(rs.Columns)
			rs.Columns = append(rs.Columns, col)
			pos[col] = j
			grew = true
		}
		mapping[i] = j
	}

	if grew {
		for i, row := range rs.Values {
			if len(row) < len(rs.Columns) {
				padded := make([]interface{}, len(rs.Columns))
				copy(padded, row)
				rs.Values[i] = padded
			}
		}
	}

	for _, row := range values {
		out := make([]interface{}, len(rs.Columns))
		for i, v := range row {
			if i < len(mapping) {
				out[mapping[i]] = v
			}
		}
		rs.Values = append(rs.Values, out)
	}
}
