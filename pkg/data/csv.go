package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const utf8BOM = "\ufeff"

// LoadCSV reads the dataset file at path.
func LoadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening data file %s: %w", path, err)
	}
	defer file.Close()

	t, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("error reading data file %s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses a headed CSV stream. All cells are kept as strings so
// identifiers such as zip codes keep their leading zeros.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv: no header")
		}
		return nil, fmt.Errorf("error reading csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	rows := make([][]string, 0)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading csv row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}

	return NewTable(header, rows)
}

// SaveCSV writes the table to path. The file is replaced only once fully
// written.
func SaveCSV(path string, t *Table) error {
	if t == nil {
		return errors.New("table required")
	}
	tmp := path + ".part"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("error creating data file %s: %w", path, err)
	}
	if err := WriteCSV(file, t); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error closing data file %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("error moving data file to %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes the table with its header.
func WriteCSV(w io.Writer, t *Table) error {
	if t == nil {
		return errors.New("table required")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("error writing csv rows: %w", err)
	}
	return nil
}
