// Package explain turns per-feature model attributions into the short,
// labeled list shown next to each score.
package explain

import (
	"log/slog"
	"math"
	"sort"

	"github.com/mchmarny/chefskiss/pkg/feature"
	"github.com/mchmarny/chefskiss/pkg/model"
)

// TopK is the maximum number of attributions reported per prediction.
const TopK = 5

// Attribution is one labeled contribution.
type Attribution struct {
	Label string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// Ranker selects and labels the strongest contributions of a prediction.
// A nil Ranker is valid and explains nothing.
type Ranker struct {
	explainer model.Explainer
	topK      int
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithTopK overrides the number of attributions returned.
func WithTopK(k int) Option {
	return func(r *Ranker) {
		if k > 0 {
			r.topK = k
		}
	}
}

// NewRanker returns nil when e is nil.
func NewRanker(e model.Explainer, opts ...Option) *Ranker {
	if e == nil {
		return nil
	}
	r := &Ranker{explainer: e, topK: TopK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether attributions can be produced.
func (r *Ranker) Available() bool {
	return r != nil && r.explainer != nil
}

// Explain returns up to TopK labeled attributions ordered by magnitude.
// Failures are logged and yield nil; a score is still valid without them.
func (r *Ranker) Explain(rec feature.Record) []Attribution {
	if !r.Available() {
		return nil
	}

	contribs, err := r.explainer.Explain(rec)
	if err != nil {
		slog.Warn("attribution failed",
			"zip_code", rec[feature.ColumnLocation].String(),
			"error", err)
		return nil
	}

	ranked := make([]model.Contribution, 0, len(contribs))
	for _, c := range contribs {
		if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			continue
		}
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Value) > math.Abs(ranked[j].Value)
	})

	if len(ranked) > r.topK {
		ranked = ranked[:r.topK]
	}
	if len(ranked) == 0 {
		return nil
	}

	list := make([]Attribution, len(ranked))
	for i, c := range ranked {
		list[i] = Attribution{Label: Label(c.Feature), Value: c.Value}
	}
	return list
}
