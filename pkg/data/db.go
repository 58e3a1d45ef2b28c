package data

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DataFileName string = "data.db"

	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

var (
	//go:embed sql/*
	f embed.FS

	errDBNotInitialized = errors.New("database not initialized")
)

// dialect captures the differences between the snapshot databases.
type dialect struct {
	driver string
	ddl    string
}

func (d dialect) placeholder(n int) string {
	if d.driver == driverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

var (
	sqliteDialect   = dialect{driver: driverSQLite, ddl: "sql/sqlite.sql"}
	postgresDialect = dialect{driver: driverPostgres, ddl: "sql/postgres.sql"}
)

// Init creates the snapshot schema in the SQLite database at dbFilePath.
// It is safe to call on an existing database.
func Init(dbFilePath string) error {
	if dbFilePath == "" {
		return errors.New("dbFilePath not specified")
	}

	db, err := GetDB(dbFilePath)
	if err != nil {
		return fmt.Errorf("error opening database %s: %w", dbFilePath, err)
	}
	defer db.Close()

	if err := applySchema(db, sqliteDialect); err != nil {
		return fmt.Errorf("failed to create database schema in %s: %w", dbFilePath, err)
	}
	return nil
}

// GetDB opens the SQLite database at path.
func GetDB(path string) (*sql.DB, error) {
	conn, err := sql.Open(driverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return conn, nil
}

// GetPostgresDB opens a Postgres connection and creates the snapshot schema.
func GetPostgresDB(dsn string) (*sql.DB, error) {
	conn, err := sql.Open(driverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := applySchema(conn, postgresDialect); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create postgres schema: %w", err)
	}
	return conn, nil
}

func applySchema(db *sql.DB, d dialect) error {
	if db == nil {
		return errDBNotInitialized
	}

	b, err := f.ReadFile(d.ddl)
	if err != nil {
		return fmt.Errorf("failed to read the schema creation file: %w", err)
	}
	if _, err := db.Exec(string(b)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	slog.Debug("db schema ready", "driver", d.driver)
	return nil
}
