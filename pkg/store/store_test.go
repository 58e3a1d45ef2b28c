package store

import (
	"strings"
	"testing"

	"github.com/mchmarny/chefskiss/pkg/data"
	"github.com/mchmarny/chefskiss/pkg/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `zip_code,city,state,subtype,price_range,five_year_survivor,total_population,pct_white,area_type
08001,Philadelphia,PA,Italian,2.0,1,1200,,urban
19103,Philadelphia,PA,Pizza,1.0,0,5400,0.4,urban
08001,Camden,NJ,Thai,3.0,0,9999,0.9,rural
33602,Tampa,FL,Mexican,1.0,1,800,0.7,suburban
`

func testStore(t *testing.T) *Store {
	t.Helper()
	tbl, err := data.ReadCSV(strings.NewReader(testCSV))
	require.NoError(t, err)
	s, err := New(tbl)
	require.NoError(t, err)
	return s
}

func TestNew_Deduplicates(t *testing.T) {
	s := testStore(t)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"08001", "19103", "33602"}, s.IDs())

	// first seen row wins
	loc, ok := s.Lookup("08001")
	require.True(t, ok)
	assert.Equal(t, "Philadelphia", loc.City)
	assert.Equal(t, "PA", loc.State)
	pop, ok := loc.Fields["total_population"].Float()
	require.True(t, ok)
	assert.Equal(t, 1200.0, pop)
}

func TestNew_DropsQueryColumns(t *testing.T) {
	s := testStore(t)
	loc, ok := s.Lookup("19103")
	require.True(t, ok)

	for _, c := range []string{feature.ColumnSubtype, feature.ColumnPrice, feature.ColumnLabel} {
		_, found := loc.Fields[c]
		assert.False(t, found, c)
	}
	assert.Equal(t, "19103", fieldString(loc.Fields, feature.ColumnLocation))
}

func TestNew_ColumnTypes(t *testing.T) {
	s := testStore(t)
	loc, ok := s.Lookup("08001")
	require.True(t, ok)

	assert.Equal(t, feature.KindString, loc.Fields[feature.ColumnLocation].Kind())
	assert.Equal(t, feature.KindString, loc.Fields["area_type"].Kind())
	assert.Equal(t, feature.KindNumber, loc.Fields["pct_white"].Kind())
	assert.True(t, loc.Fields["pct_white"].IsMissing())
}

func TestNew_NonFiniteIsMissing(t *testing.T) {
	tbl, err := data.ReadCSV(strings.NewReader(`zip_code,city,state,total_population,pct_white
19103,Philadelphia,PA,inf,-Infinity
19104,Philadelphia,PA,1200,0.5
`))
	require.NoError(t, err)
	s, err := New(tbl)
	require.NoError(t, err)

	loc, ok := s.Lookup("19103")
	require.True(t, ok)
	assert.Equal(t, feature.KindNumber, loc.Fields["total_population"].Kind())
	assert.True(t, loc.Fields["total_population"].IsMissing())
	assert.True(t, loc.Fields["pct_white"].IsMissing())
}

func TestLookup_Identity(t *testing.T) {
	s := testStore(t)
	for _, id := range s.IDs() {
		loc, ok := s.Lookup(id)
		require.True(t, ok)
		assert.Equal(t, id, loc.ID)
		assert.Equal(t, id, loc.Fields[feature.ColumnLocation].String())
	}
}

func TestLookup_Unknown(t *testing.T) {
	s := testStore(t)
	loc, ok := s.Lookup("00000")
	assert.False(t, ok)
	assert.Nil(t, loc)

	var empty *Store
	_, ok = empty.Lookup("08001")
	assert.False(t, ok)
	assert.Equal(t, 0, empty.Len())
}

func TestLookup_LeadingZeros(t *testing.T) {
	s := testStore(t)
	_, ok := s.Lookup("8001")
	assert.False(t, ok)
	_, ok = s.Lookup(" 08001 ")
	assert.True(t, ok)
}

func TestLocations_Order(t *testing.T) {
	s := testStore(t)
	locs := s.Locations()
	require.Len(t, locs, 3)
	assert.Equal(t, "33602", locs[2].ID)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	tbl, err := data.NewTable([]string{"city"}, [][]string{{"Tampa"}})
	require.NoError(t, err)
	_, err = New(tbl)
	assert.Error(t, err)

	tbl, err = data.NewTable([]string{"zip_code"}, [][]string{{" "}})
	require.NoError(t, err)
	_, err = New(tbl)
	assert.Error(t, err)
}

func TestIDs_Copy(t *testing.T) {
	s := testStore(t)
	ids := s.IDs()
	ids[0] = "changed"
	assert.Equal(t, "08001", s.IDs()[0])
}
