package feature

import (
	"slices"
)

const (
	ColumnLocation = "zip_code"
	ColumnSubtype  = "subtype"
	ColumnPrice    = "price_range"
	ColumnLabel    = "five_year_survivor"
	ColumnCity     = "city"
	ColumnState    = "state"

	MinPrice = 1.0
	MaxPrice = 4.0
)

var (
	subtypes = []string{
		"American",
		"Breakfast",
		"Cafe",
		"Chinese",
		"Dessert",
		"Diner",
		"Fast Food",
		"French",
		"General",
		"Greek",
		"Indian",
		"Italian",
		"Japanese",
		"Korean",
		"Mediterranean",
		"Mexican",
		"Pizza",
		"Seafood",
		"Steakhouse",
		"Thai",
		"Vietnamese",
	}

	// query columns are supplied per request and never part of the context
	queryColumns = []string{ColumnSubtype, ColumnPrice, ColumnLabel}
)

// Subtypes returns a copy of the cuisine subtype vocabulary.
func Subtypes() []string {
	return slices.Clone(subtypes)
}

// ValidSubtype reports whether s is part of the vocabulary (exact match).
func ValidSubtype(s string) bool {
	return slices.Contains(subtypes, s)
}

// IsContextColumn reports whether the named dataset column carries
// location context rather than per-query input or the training label.
func IsContextColumn(name string) bool {
	return !slices.Contains(queryColumns, name)
}

// Assemble merges a location's context with the query inputs into one
// model-ready record. The context is not modified.
func Assemble(id string, ctx Record, subtype string, price float64) Record {
	r := ctx.Clone()
	r[ColumnLocation] = String(id)
	r[ColumnSubtype] = String(subtype)
	r[ColumnPrice] = Number(price)
	return r
}
