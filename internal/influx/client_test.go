package influx

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/garminexport/internal/config"
	"github.com/jgoulah/garminexport/pkg/models"
)

// fakeInflux serves /ping and /query, answering queries from a map of canned JSON bodies
type fakeInflux struct {
	responses map[string]string
	queries   []string
	databases []string
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Influxdb-Version", "1.8.10")
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/query":
		params := r.URL.Query()
		q := params.Get("q")
		f.queries = append(f.queries, q)
		f.databases = append(f.databases, params.Get("db"))

		body, ok := f.responses[q]
		if !ok {
			body = `{"results":[{"statement_id":0,"error":"unexpected query"}]}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, responses map[string]string) (*Client, *fakeInflux) {
	t.Helper()
	fake := &fakeInflux{responses: responses}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := Open(serverConfig(t, srv.URL), 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, fake
}

func serverConfig(t *testing.T, rawURL string) config.InfluxDBConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(rawURL[len("http://"):])
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return config.InfluxDBConfig{
		Host:     host,
		Port:     port,
		Username: "user",
		Password: "pass",
		Database: "GarminStats",
		UseTLS:   false,
	}
}

func TestListMeasurements(t *testing.T) {
	c, fake := newTestClient(t, map[string]string{
		"SHOW MEASUREMENTS": `{"results":[{"statement_id":0,"series":[{"name":"measurements","columns":["name"],"values":[["Steps"],["DemoPoint"],["HeartRate"]]}]}]}`,
	})

	names, err := c.ListMeasurements(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Steps", "DemoPoint", "HeartRate"}, names)
	assert.Equal(t, []string{"GarminStats"}, fake.databases)
}

func TestListMeasurements_EmptyDatabase(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"SHOW MEASUREMENTS": `{"results":[{"statement_id":0}]}`,
	})

	names, err := c.ListMeasurements(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListMeasurements_ServerError(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"SHOW MEASUREMENTS": `{"results":[{"statement_id":0,"error":"database not found: GarminStats"}]}`,
	})

	_, err := c.ListMeasurements(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
}

func TestSelect(t *testing.T) {
	clause := "time >= '2024-01-01T00:00:00+00:00' AND time <= '2024-01-02T00:00:00+00:00'"
	q := SelectQuery("Steps", clause)
	c, fake := newTestClient(t, map[string]string{
		q: `{"results":[{"statement_id":0,"series":[{"name":"Steps","columns":["time","Device","StepCount"],"values":[["2024-01-01T10:00:00Z","fenix",1200],["2024-01-01T11:00:00Z","fenix",800.5]]}]}]}`,
	})

	rs, err := c.Select(context.Background(), "Steps", clause)
	require.NoError(t, err)

	assert.Equal(t, []string{`SELECT * FROM "Steps" WHERE ` + clause}, fake.queries)
	assert.Equal(t, []string{"time", "Device", "StepCount"}, rs.Columns)
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, "2024-01-01T10:00:00Z", rs.Values[0][0])
	assert.Equal(t, json.Number("1200"), rs.Values[0][2])
	assert.Equal(t, json.Number("800.5"), rs.Values[1][2])
}

func TestSelect_StatementError(t *testing.T) {
	c, _ := newTestClient(t, nil)

	_, err := c.Select(context.Background(), "Broken", "time >= 0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected query")
}

func TestSelect_CancelledContext(t *testing.T) {
	c, fake := newTestClient(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Select(ctx, "Steps", "time >= 0")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.queries)
}

func TestOpen_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := serverConfig(t, srv.URL)
	srv.Close()

	_, err := Open(cfg, 0)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestOpen_PingRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("authorization failed"))
	}))
	defer srv.Close()

	_, err := Open(serverConfig(t, srv.URL), 0)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestMergeSeries(t *testing.T) {
	var rs models.ResultSet
	mergeSeries(&rs, []string{"time", "a"}, [][]interface{}{{"t1", 1}})
	mergeSeries(&rs, []string{"time", "b"}, [][]interface{}{{"t2", 2}})
	mergeSeries(&rs, []string{"b", "time"}, [][]interface{}{{3, "t3"}})

	assert.Equal(t, []string{"time", "a", "b"}, rs.Columns)
	assert.Equal(t, [][]interface{}{
		{"t1", 1, nil},
		{"t2", nil, 2},
		{"t3", nil, 3},
	}, rs.Values)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"Steps"`, QuoteIdent("Steps"))
	assert.Equal(t, `"%"`, QuoteIdent("%"))
	assert.Equal(t, `"we\"ird"`, QuoteIdent(`we"ird`))
	assert.Equal(t, `"back\\slash"`, QuoteIdent(`back\slash`))
}
