package models

import "time"

// ResultSet holds the rows returned for one measurement, column-ordered
type ResultSet struct {
	Columns []string
	Values  [][]interface{} // one slice per row, aligned with Columns
}

// Len returns the number of rows
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Values)
}

// ExportRecord describes one finished export run
type ExportRecord struct {
	ID           int       `json:"-"`
	RunID        string    `json:"run_id"`
	Archive      string    `json:"archive"`
	Label        string    `json:"label"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	FilesWritten int       `json:"files_written"`
	Measurements int       `json:"measurements"` // measurements attempted after exclusions
	Bytes        int64     `json:"bytes"`
	CreatedAt    time.Time `json:"created_at"`
}
