package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

const (
	deleteRowsSQL    = `DELETE FROM dataset_row`
	deleteColumnsSQL = `DELETE FROM dataset_column`

	selectColumnsSQL = `SELECT name FROM dataset_column ORDER BY position`
	selectRowsSQL    = `SELECT payload FROM dataset_row ORDER BY id`
)

func insertColumnSQL(d dialect) string {
	return fmt.Sprintf(`INSERT INTO dataset_column (position, name) VALUES (%s, %s)`,
		d.placeholder(1), d.placeholder(2))
}

func insertRowSQL(d dialect) string {
	return fmt.Sprintf(`INSERT INTO dataset_row (id, payload) VALUES (%s, %s)`,
		d.placeholder(1), d.placeholder(2))
}

// SaveSnapshot replaces the snapshot stored in SQLite with t.
func SaveSnapshot(ctx context.Context, db *sql.DB, t *Table) error {
	return saveSnapshot(ctx, db, sqliteDialect, t)
}

// SavePostgresSnapshot replaces the snapshot stored in Postgres with t.
func SavePostgresSnapshot(ctx context.Context, db *sql.DB, t *Table) error {
	return saveSnapshot(ctx, db, postgresDialect, t)
}

// ReadSnapshot loads the table previously saved with SaveSnapshot or
// SavePostgresSnapshot. Both schemas share the same queries.
func ReadSnapshot(ctx context.Context, db *sql.DB) (*Table, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	cols, err := readColumns(ctx, db)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, errors.New("snapshot has no columns")
	}

	rows, err := db.QueryContext(ctx, selectRowsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot rows: %w", err)
	}
	defer rows.Close()

	list := make([][]string, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(payload), &cells); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot row %d: %w", len(list), err)
		}
		list = append(list, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot rows: %w", err)
	}

	return NewTable(cols, list)
}

func readColumns(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, selectColumnsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot columns: %w", err)
	}
	defer rows.Close()

	cols := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot column: %w", err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func saveSnapshot(ctx context.Context, db *sql.DB, d dialect, t *Table) error {
	if db == nil {
		return errDBNotInitialized
	}
	if t == nil || len(t.Columns) == 0 {
		return errors.New("table required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, q := range []string{deleteRowsSQL, deleteColumnsSQL} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}
	}

	colStmt, err := tx.PrepareContext(ctx, insertColumnSQL(d))
	if err != nil {
		return fmt.Errorf("failed to prepare column insert: %w", err)
	}
	defer colStmt.Close()

	for i, c := range t.Columns {
		if _, err := colStmt.ExecContext(ctx, i, c); err != nil {
			return fmt.Errorf("failed to insert column %s: %w", c, err)
		}
	}

	rowStmt, err := tx.PrepareContext(ctx, insertRowSQL(d))
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer rowStmt.Close()

	for i, r := range t.Rows {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode row %d: %w", i, err)
		}
		if _, err := rowStmt.ExecContext(ctx, i, string(b)); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	slog.Debug("snapshot saved", "driver", d.driver, "columns", len(t.Columns), "rows", len(t.Rows))
	return nil
}
