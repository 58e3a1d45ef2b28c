package score

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mchmarny/chefskiss/pkg/feature"
)

// ErrInvalidQuery is returned for queries rejected before any scoring.
var ErrInvalidQuery = errors.New("invalid query")

// Query asks for the score of one restaurant concept across a city.
type Query struct {
	City    string  `json:"city" yaml:"city"`
	State   string  `json:"state,omitempty" yaml:"state,omitempty"`
	Subtype string  `json:"subtype" yaml:"subtype"`
	Price   float64 `json:"price_range" yaml:"priceRange"`
}

// Validate checks the query against the subtype vocabulary and price bounds.
func (q Query) Validate() error {
	if strings.TrimSpace(q.City) == "" {
		return fmt.Errorf("%w: city is required", ErrInvalidQuery)
	}
	if !feature.ValidSubtype(q.Subtype) {
		return fmt.Errorf("%w: unknown subtype %q", ErrInvalidQuery, q.Subtype)
	}
	if math.IsNaN(q.Price) || q.Price < feature.MinPrice || q.Price > feature.MaxPrice {
		return fmt.Errorf("%w: price_range must be between %.1f and %.1f", ErrInvalidQuery, feature.MinPrice, feature.MaxPrice)
	}
	return nil
}

// Label is the display name of the concept, e.g. "Italian (Price: $$)".
func (q Query) Label() string {
	return fmt.Sprintf("%s (Price: %s)", q.Subtype, strings.Repeat("$", int(q.Price)))
}
