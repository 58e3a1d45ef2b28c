// Package score computes opportunity scores for every location of a city.
package score

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/mchmarny/chefskiss/pkg/city"
	"github.com/mchmarny/chefskiss/pkg/explain"
	"github.com/mchmarny/chefskiss/pkg/feature"
	"github.com/mchmarny/chefskiss/pkg/model"
	"github.com/mchmarny/chefskiss/pkg/store"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotFound means the city resolved to no locations.
	ErrNotFound = errors.New("no locations found for city")

	// ErrPredictionFailure means every location of the city failed to score.
	ErrPredictionFailure = errors.New("failed to generate predictions for any location")
)

// Result is the score of one location.
type Result struct {
	ID          string                `json:"zip_code" yaml:"zipCode"`
	Probability float64               `json:"opportunity_score" yaml:"opportunityScore"`
	Percent     float64               `json:"score_percent" yaml:"scorePercent"`
	Rating      Rating                `json:"rating" yaml:"rating"`
	Label       string                `json:"restaurant_type" yaml:"restaurantType"`
	Features    []explain.Attribution `json:"top_features,omitempty" yaml:"topFeatures,omitempty"`
}

// Response is the scored city.
type Response struct {
	City    string    `json:"city" yaml:"city"`
	State   string    `json:"state,omitempty" yaml:"state,omitempty"`
	Subtype string    `json:"subtype" yaml:"subtype"`
	Price   float64   `json:"price_range" yaml:"priceRange"`
	Total   int       `json:"total_zip_codes" yaml:"totalZipCodes"`
	Results []*Result `json:"zip_scores" yaml:"zipScores"`
}

// Scorer is stateless between calls and safe for concurrent use.
type Scorer struct {
	store     *store.Store
	resolver  *city.Resolver
	predictor model.Predictor
	ranker    *explain.Ranker
	workers   int
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWorkers bounds the number of locations scored concurrently.
func WithWorkers(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New returns a Scorer. The ranker may be nil.
func New(st *store.Store, r *city.Resolver, p model.Predictor, rk *explain.Ranker, opts ...Option) *Scorer {
	s := &Scorer{
		store:     st,
		resolver:  r,
		predictor: p,
		ranker:    rk,
		workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreCity scores every location of the queried city. Locations that
// cannot be scored are skipped; results keep the resolver's order.
func (s *Scorer) ScoreCity(ctx context.Context, q Query) (*Response, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ids := s.resolver.Resolve(q.City, q.State)
	if len(ids) == 0 {
		where := q.City
		if strings.TrimSpace(q.State) != "" {
			where += ", " + q.State
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, where)
	}

	results := make([]*Result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.scoreLocation(id, q)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("error scoring %s: %w", q.City, err)
	}

	list := make([]*Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			list = append(list, r)
		}
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrPredictionFailure, q.City)
	}

	slog.Debug("city scored",
		"city", q.City,
		"state", q.State,
		"subtype", q.Subtype,
		"resolved", len(ids),
		"scored", len(list))

	return &Response{
		City:    q.City,
		State:   q.State,
		Subtype: q.Subtype,
		Price:   q.Price,
		Total:   len(list),
		Results: list,
	}, nil
}

// scoreLocation returns nil when the location cannot be scored.
func (s *Scorer) scoreLocation(id string, q Query) *Result {
	loc, ok := s.store.Lookup(id)
	if !ok {
		slog.Debug("location not in store", "zip_code", id)
		return nil
	}

	rec := feature.Assemble(loc.ID, loc.Fields, q.Subtype, q.Price)

	p, err := s.predictor.Predict(rec)
	if err != nil {
		slog.Warn("prediction failed", "zip_code", loc.ID, "error", err)
		return nil
	}

	percent := Percent(p)
	r := &Result{
		ID:          loc.ID,
		Probability: roundProbability(p),
		Percent:     percent,
		Rating:      RatingFor(percent),
		Label:       q.Label(),
	}

	if s.ranker.Available() {
		r.Features = s.ranker.Explain(rec)
	}

	return r
}
