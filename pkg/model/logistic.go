package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/mchmarny/chefskiss/pkg/feature"
)

// Logistic is a binary logistic regression over the expanded features.
type Logistic struct {
	pre        Preprocessor
	intercept  float64
	coef       []float64
	background []float64
	features   []string
}

func newLogistic(a *Artifact) (*Logistic, error) {
	width := a.Preprocessor.Width()
	if len(a.Coefficients) != width {
		return nil, fmt.Errorf("logistic model has %d coefficients for %d features", len(a.Coefficients), width)
	}
	if len(a.BackgroundMean) != 0 && len(a.BackgroundMean) != width {
		return nil, fmt.Errorf("background_mean has %d values for %d features", len(a.BackgroundMean), width)
	}
	for i, c := range a.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("coefficient %d is not finite", i)
		}
	}

	return &Logistic{
		pre:        a.Preprocessor,
		intercept:  a.Intercept,
		coef:       a.Coefficients,
		background: a.BackgroundMean,
		features:   a.Preprocessor.Features(),
	}, nil
}

func (m *Logistic) Kind() Kind {
	return KindLogistic
}

func (m *Logistic) Features() []string {
	out := make([]string, len(m.features))
	copy(out, m.features)
	return out
}

func (m *Logistic) transform(r feature.Record) ([]float64, error) {
	x, err := m.pre.Transform(r)
	if err != nil {
		return nil, err
	}
	for i, v := range x {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: feature %s is missing", ErrSchema, m.features[i])
		}
	}
	return x, nil
}

// Predict returns the positive-class probability.
func (m *Logistic) Predict(r feature.Record) (float64, error) {
	x, err := m.transform(r)
	if err != nil {
		return 0, err
	}
	sum := m.intercept
	for i, v := range x {
		sum += m.coef[i] * v
	}
	return probability(sum)
}

// LinearExplainer attributes a logistic prediction as coef * (x - mean),
// the exact Shapley values of a linear margin with independent features.
type LinearExplainer struct {
	model    *Logistic
	expected float64
}

func newLinearExplainer(m *Logistic) (*LinearExplainer, error) {
	if len(m.background) == 0 {
		return nil, errors.New("logistic model has no background_mean")
	}
	expected := m.intercept
	for i, c := range m.coef {
		expected += c * m.background[i]
	}
	return &LinearExplainer{model: m, expected: expected}, nil
}

func (e *LinearExplainer) ExpectedValue() float64 {
	return e.expected
}

// Explain returns one contribution per expanded feature, in feature order.
func (e *LinearExplainer) Explain(r feature.Record) ([]Contribution, error) {
	x, err := e.model.transform(r)
	if err != nil {
		return nil, err
	}
	out := make([]Contribution, len(x))
	for i, v := range x {
		out[i] = Contribution{
			Feature: e.model.features[i],
			Value:   e.model.coef[i] * (v - e.model.background[i]),
		}
	}
	return out, nil
}
