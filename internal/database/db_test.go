package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/garminexport/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "exports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndListExports(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, label := range []string{"Last7Days", "2024-01-01_to_2024-01-31", "Last1Days"} {
		rec := &models.ExportRecord{
			RunID:        label,
			Archive:      "/tmp/" + label + ".zip",
			Label:        label,
			WindowStart:  base.AddDate(0, 0, -7),
			WindowEnd:    base,
			FilesWritten: i + 1,
			Measurements: 10,
			Bytes:        int64(1024 * (i + 1)),
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, db.InsertExport(rec))
		assert.Positive(t, rec.ID)
	}

	all, err := db.ListExports(0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// newest first
	assert.Equal(t, "Last1Days", all[0].Label)
	assert.Equal(t, 3, all[0].FilesWritten)
	assert.Equal(t, int64(3072), all[0].Bytes)
	assert.Equal(t, base.Add(2*time.Hour), all[0].CreatedAt)
	assert.Equal(t, base.AddDate(0, 0, -7), all[0].WindowStart)
	assert.Equal(t, "Last7Days", all[2].Label)

	limited, err := db.ListExports(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestInsertExport_DuplicateRunID(t *testing.T) {
	db := openTestDB(t)
	rec := &models.ExportRecord{RunID: "same", Archive: "a.zip", Label: "x"}

	require.NoError(t, db.InsertExport(rec))
	assert.Error(t, db.InsertExport(&models.ExportRecord{RunID: "same", Archive: "b.zip", Label: "y"}))
}

func TestListExports_Empty(t *testing.T) {
	db := openTestDB(t)

	recs, err := db.ListExports(0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports.db")

	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.InsertExport(&models.ExportRecord{RunID: "r1", Archive: "a.zip", Label: "l"}))
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()

	recs, err := db.ListExports(0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "r1", recs[0].RunID)
}
