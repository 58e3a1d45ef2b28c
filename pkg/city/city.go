// Package city maps city names to the location ids that belong to them.
package city

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mchmarny/chefskiss/pkg/data"
	"github.com/mchmarny/chefskiss/pkg/feature"
	"github.com/mchmarny/chefskiss/pkg/store"
)

// Entry ties one location id to its city and state.
type Entry struct {
	ID    string
	City  string
	State string
}

// City is a discoverable city with the number of locations in it.
type City struct {
	Name  string `json:"city" yaml:"city"`
	State string `json:"state" yaml:"state"`
	Count int    `json:"zip_count" yaml:"zipCount"`
}

type cityKey struct {
	name  string
	state string
}

type bucket struct {
	display string
	state   string
	ids     []string
	seen    map[string]bool
}

// Resolver is read-only after construction and safe for concurrent use.
type Resolver struct {
	buckets map[cityKey]*bucket
	order   []cityKey
	byName  map[string][]cityKey
}

// New indexes entries. Entries with an empty id or city are ignored.
func New(entries []Entry) *Resolver {
	r := &Resolver{
		buckets: make(map[cityKey]*bucket),
		byName:  make(map[string][]cityKey),
	}

	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		name := normalizeCity(e.City)
		if id == "" || name == "" {
			continue
		}
		k := cityKey{name: name, state: normalizeState(e.State)}
		b, ok := r.buckets[k]
		if !ok {
			b = &bucket{
				display: strings.Join(strings.Fields(e.City), " "),
				state:   k.state,
				seen:    make(map[string]bool),
			}
			r.buckets[k] = b
			r.order = append(r.order, k)
			r.byName[name] = append(r.byName[name], k)
		}
		if b.seen[id] {
			continue
		}
		b.seen[id] = true
		b.ids = append(b.ids, id)
	}

	return r
}

// FromStore indexes the city and state of every location in the store.
func FromStore(s *store.Store) *Resolver {
	entries := make([]Entry, 0, s.Len())
	for _, loc := range s.Locations() {
		entries = append(entries, Entry{ID: loc.ID, City: loc.City, State: loc.State})
	}
	return New(entries)
}

// FromTable indexes a standalone mapping dataset with zip_code, city and
// state columns. The state column is optional.
func FromTable(t *data.Table) (*Resolver, error) {
	if t == nil {
		return nil, fmt.Errorf("mapping table required")
	}
	idIdx := t.Index(feature.ColumnLocation)
	cityIdx := t.Index(feature.ColumnCity)
	if idIdx < 0 || cityIdx < 0 {
		return nil, fmt.Errorf("mapping requires %s and %s columns", feature.ColumnLocation, feature.ColumnCity)
	}
	stateIdx := t.Index(feature.ColumnState)

	entries := make([]Entry, 0, t.Len())
	for _, row := range t.Rows {
		e := Entry{ID: row[idIdx], City: row[cityIdx]}
		if stateIdx >= 0 {
			e.State = row[stateIdx]
		}
		entries = append(entries, e)
	}
	return New(entries), nil
}

// Resolve returns the ids of the named city. An empty state matches the
// city in every state. The result is empty when nothing matches.
func (r *Resolver) Resolve(city, state string) []string {
	if r == nil {
		return nil
	}

	name := normalizeCity(city)
	st := normalizeState(state)

	var out []string
	seen := make(map[string]bool)
	for _, k := range r.byName[name] {
		if st != "" && k.state != st {
			continue
		}
		for _, id := range r.buckets[k].ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Cities lists every known city, largest first.
func (r *Resolver) Cities() []City {
	if r == nil {
		return []City{}
	}

	list := make([]City, 0, len(r.order))
	for _, k := range r.order {
		b := r.buckets[k]
		list = append(list, City{Name: b.display, State: b.state, Count: len(b.ids)})
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].State < list[j].State
	})
	return list
}

// Len returns the number of distinct city/state pairs.
func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

func normalizeCity(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func normalizeState(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
