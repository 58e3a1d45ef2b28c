// Package store holds the immutable per-location context table used to
// build model inputs.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/mchmarny/chefskiss/pkg/data"
	"github.com/mchmarny/chefskiss/pkg/feature"
)

var (
	// always read as strings regardless of content
	stringColumns = []string{
		feature.ColumnLocation,
		feature.ColumnCity,
		feature.ColumnState,
	}
)

// Location is the context for a single location id.
type Location struct {
	ID     string
	City   string
	State  string
	Fields feature.Record
}

// Store is a read-only lookup of locations keyed by id. It is safe for
// concurrent use once built.
type Store struct {
	ids  []string
	byID map[string]*Location
}

// New builds the store from a raw dataset. Query and label columns are
// dropped, and rows repeating an already seen id are ignored.
func New(tbl *data.Table) (*Store, error) {
	if tbl == nil {
		return nil, errors.New("dataset required")
	}

	idIdx := tbl.Index(feature.ColumnLocation)
	if idIdx < 0 {
		return nil, fmt.Errorf("dataset is missing the %s column", feature.ColumnLocation)
	}

	cols := make([]int, 0, len(tbl.Columns))
	names := make([]string, 0, len(tbl.Columns))
	for i, c := range tbl.Columns {
		if feature.IsContextColumn(c) {
			cols = append(cols, i)
			names = append(names, c)
		}
	}

	numeric := numericColumns(tbl, cols)

	s := &Store{
		ids:  make([]string, 0),
		byID: make(map[string]*Location),
	}

	dupes := 0
	for _, row := range tbl.Rows {
		id := strings.TrimSpace(row[idIdx])
		if id == "" {
			continue
		}
		if _, ok := s.byID[id]; ok {
			dupes++
			continue
		}

		loc := &Location{
			ID:     id,
			Fields: make(feature.Record, len(cols)),
		}
		for _, i := range cols {
			name := tbl.Columns[i]
			loc.Fields[name] = parseCell(row[i], numeric[i])
		}
		loc.Fields[feature.ColumnLocation] = feature.String(id)
		loc.City = fieldString(loc.Fields, feature.ColumnCity)
		loc.State = fieldString(loc.Fields, feature.ColumnState)

		s.ids = append(s.ids, id)
		s.byID[id] = loc
	}

	if len(s.ids) == 0 {
		return nil, errors.New("dataset has no locations")
	}

	slog.Debug("context store built",
		"locations", len(s.ids),
		"columns", len(names),
		"duplicates", dupes,
	)
	return s, nil
}

// Lookup returns the location for id. The second value is false when the id
// is unknown.
func (s *Store) Lookup(id string) (*Location, bool) {
	if s == nil {
		return nil, false
	}
	loc, ok := s.byID[strings.TrimSpace(id)]
	return loc, ok
}

// IDs returns all location ids in the order they were first seen.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Locations returns all locations in id order.
func (s *Store) Locations() []*Location {
	if s == nil {
		return nil
	}
	out := make([]*Location, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of unique locations.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// numericColumns marks a column numeric when every non-empty cell parses as
// a float and at least one cell is present.
func numericColumns(tbl *data.Table, cols []int) map[int]bool {
	out := make(map[int]bool, len(cols))
	for _, i := range cols {
		if data.Contains(stringColumns, tbl.Columns[i]) {
			continue
		}
		seen, ok := 0, true
		for _, row := range tbl.Rows {
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				ok = false
				break
			}
			seen++
		}
		out[i] = ok && seen > 0
	}
	return out
}

func parseCell(v string, numeric bool) feature.Value {
	v = strings.TrimSpace(v)
	if !numeric {
		return feature.String(v)
	}
	if v == "" {
		return feature.Missing()
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(f, 0) {
		return feature.Missing()
	}
	return feature.Number(f)
}

func fieldString(r feature.Record, name string) string {
	v, ok := r[name]
	if !ok {
		return ""
	}
	return v.String()
}
