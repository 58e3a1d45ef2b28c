package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	schemeSQLite     = "sqlite://"
	schemePostgres   = "postgres://"
	schemePostgreSQL = "postgresql://"
)

// SourceKind identifies where a dataset is read from.
type SourceKind string

const (
	SourceCSV      SourceKind = "csv"
	SourceSQLite   SourceKind = "sqlite"
	SourcePostgres SourceKind = "postgres"
)

// ParseSource classifies a dataset location. Postgres DSNs and sqlite://
// URLs are recognized by scheme, .db/.sqlite files by extension, anything
// else is treated as a CSV file path.
func ParseSource(src string) (SourceKind, string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", "", errors.New("data source not specified")
	}

	switch {
	case strings.HasPrefix(src, schemePostgres), strings.HasPrefix(src, schemePostgreSQL):
		return SourcePostgres, src, nil
	case strings.HasPrefix(src, schemeSQLite):
		return SourceSQLite, strings.TrimPrefix(src, schemeSQLite), nil
	}

	switch strings.ToLower(filepath.Ext(src)) {
	case ".db", ".sqlite", ".sqlite3":
		return SourceSQLite, src, nil
	default:
		return SourceCSV, src, nil
	}
}

// Load reads the dataset from src.
func Load(ctx context.Context, src string) (*Table, error) {
	kind, loc, err := ParseSource(src)
	if err != nil {
		return nil, err
	}

	slog.Debug("loading dataset", "kind", kind)

	var t *Table
	switch kind {
	case SourceCSV:
		t, err = LoadCSV(loc)
	case SourceSQLite:
		t, err = loadSQLite(ctx, loc)
	case SourcePostgres:
		t, err = loadPostgres(ctx, loc)
	}
	if err != nil {
		return nil, err
	}

	if t.Len() == 0 {
		return nil, fmt.Errorf("dataset %s has no rows", kind)
	}
	return t, nil
}

// Save writes t to target: a SQLite or Postgres snapshot, or a CSV file.
func Save(ctx context.Context, target string, t *Table) error {
	kind, loc, err := ParseSource(target)
	if err != nil {
		return err
	}

	switch kind {
	case SourceCSV:
		return SaveCSV(loc, t)
	case SourceSQLite:
		if err := Init(loc); err != nil {
			return err
		}
		db, err := GetDB(loc)
		if err != nil {
			return err
		}
		defer db.Close()
		return SaveSnapshot(ctx, db, t)
	case SourcePostgres:
		db, err := GetPostgresDB(loc)
		if err != nil {
			return err
		}
		defer db.Close()
		return SavePostgresSnapshot(ctx, db, t)
	default:
		return fmt.Errorf("unsupported target: %s", kind)
	}
}

func loadSQLite(ctx context.Context, path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("snapshot file %s: %w", path, err)
	}
	if err := Init(path); err != nil {
		return nil, err
	}
	db, err := GetDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return ReadSnapshot(ctx, db)
}

func loadPostgres(ctx context.Context, dsn string) (*Table, error) {
	db, err := GetPostgresDB(dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return ReadSnapshot(ctx, db)
}
