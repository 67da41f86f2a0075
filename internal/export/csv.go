package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jgoulah/garminexport/pkg/models"
)

// MeasurementColumn is prepended to every CSV so merged files keep their source
const MeasurementColumn = "measurement"

// WriteCSV writes a result set as CSV with a leading measurement column
func WriteCSV(w io.Writer, measurement string, rs *models.ResultSet) error {
	writer := csv.NewWriter(w)

	header := make([]string, 0, len(rs.Columns)+1)
	header = append(header, MeasurementColumn)
	header = append(header, rs.Columns...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range rs.Values {
		record[0] = measurement
		for i := range rs.Columns {
			var v interface{}
			if i < len(row) {
				v = row[i]
			}
			record[i+1] = formatValue(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// formatValue renders one cell; missing values become empty strings
func formatValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
