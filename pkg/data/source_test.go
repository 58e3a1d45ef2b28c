package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind SourceKind
		loc  string
	}{
		{"csv file", "restaurant_row_data.csv", SourceCSV, "restaurant_row_data.csv"},
		{"no extension", "data", SourceCSV, "data"},
		{"sqlite ext", "/tmp/snap.db", SourceSQLite, "/tmp/snap.db"},
		{"sqlite3 ext", "snap.SQLITE3", SourceSQLite, "snap.SQLITE3"},
		{"sqlite scheme", "sqlite:///var/lib/snap", SourceSQLite, "/var/lib/snap"},
		{"postgres", "postgres://u:p@localhost/db", SourcePostgres, "postgres://u:p@localhost/db"},
		{"postgresql", "postgresql://localhost/db", SourcePostgres, "postgresql://localhost/db"},
		{"trimmed", "  rows.csv ", SourceCSV, "rows.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, loc, err := ParseSource(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.loc, loc)
		})
	}
}

func TestParseSource_Empty(t *testing.T) {
	_, _, err := ParseSource(" ")
	assert.Error(t, err)
}

func TestLoad_NoRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("zip_code,a\n"), 0600))
	_, err := Load(context.Background(), path)
	assert.Error(t, err)
}

func TestLoad_MissingSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	_, err := Load(context.Background(), path)
	assert.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSave_CSV(t *testing.T) {
	tbl, err := NewTable([]string{"zip_code", "city"}, [][]string{{"19103", "Philadelphia"}})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, Save(context.Background(), path, tbl))

	got, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns, got.Columns)
	assert.Equal(t, tbl.Rows, got.Rows)

	_, err = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, Save(context.Background(), path, nil))
	assert.Error(t, Save(context.Background(), filepath.Join(t.TempDir(), "nope", "out.csv"), tbl))
}
