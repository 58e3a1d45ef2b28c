// Package model evaluates the trained survival classifier.
//
// Models are produced offline and shipped as a JSON artifact holding the
// preprocessing recipe (numeric passthrough or standardization, one-hot
// categorical encoding) and either a gradient boosted tree ensemble or a
// logistic regression. Both expose the positive-class probability and
// per-feature attributions in log-odds space.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mchmarny/chefskiss/pkg/feature"
)

// Kind names the model family stored in an artifact.
type Kind string

const (
	KindTreeEnsemble Kind = "tree_ensemble"
	KindLogistic     Kind = "logistic"
)

var (
	ErrUnknownKind = errors.New("unknown model kind")

	// ErrSchema is returned when a record does not match the columns the
	// model was trained on.
	ErrSchema = errors.New("feature schema mismatch")
)

// Predictor returns the positive-class probability for a record.
type Predictor interface {
	Predict(r feature.Record) (float64, error)
}

// Model is a loaded artifact.
type Model interface {
	Predictor
	Kind() Kind
	// Features returns the expanded (post-encoding) feature names.
	Features() []string
}

// Contribution is the signed share of one expanded feature in a prediction,
// in log-odds of the positive class.
type Contribution struct {
	Feature string
	Value   float64
}

// Explainer attributes a prediction to the model's expanded features.
type Explainer interface {
	Explain(r feature.Record) ([]Contribution, error)
	// ExpectedValue is the log-odds the contributions are measured from.
	ExpectedValue() float64
}

// Artifact is the serialized model.
type Artifact struct {
	Kind         Kind         `json:"kind"`
	Version      string       `json:"version,omitempty"`
	Preprocessor Preprocessor `json:"preprocessor"`

	// tree ensemble; background holds encoded sample rows
	BaseScore  *float64    `json:"base_score,omitempty"`
	Trees      []*Tree     `json:"trees,omitempty"`
	Background [][]float64 `json:"background,omitempty"`

	// logistic
	Intercept      float64   `json:"intercept,omitempty"`
	Coefficients   []float64 `json:"coefficients,omitempty"`
	BackgroundMean []float64 `json:"background_mean,omitempty"`
}

// Load reads and validates the artifact at path.
func Load(path string) (Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening model file %s: %w", path, err)
	}
	defer file.Close()

	m, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("error loading model %s: %w", path, err)
	}
	return m, nil
}

// Decode parses an artifact from r.
func Decode(r io.Reader) (Model, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("error decoding model: %w", err)
	}
	return New(&a)
}

// New validates the artifact and builds the model it describes.
func New(a *Artifact) (Model, error) {
	if a == nil {
		return nil, errors.New("artifact required")
	}
	if err := a.Preprocessor.validate(); err != nil {
		return nil, fmt.Errorf("invalid preprocessor: %w", err)
	}

	switch a.Kind {
	case KindTreeEnsemble:
		return newTreeEnsemble(a)
	case KindLogistic:
		return newLogistic(a)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
}

// NewExplainer builds the attribution engine for m. Tree ensembles shipped
// with a background sample are explained interventionally, otherwise from
// their node covers. An error means the model carries no statistics to
// explain with, not that m is unusable.
func NewExplainer(m Model) (Explainer, error) {
	switch v := m.(type) {
	case *TreeEnsemble:
		if len(v.background) > 0 {
			return newInterventionalExplainer(v)
		}
		return newTreeExplainer(v)
	case *Logistic:
		return newLinearExplainer(v)
	default:
		return nil, fmt.Errorf("no explainer for model %T", m)
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func probability(margin float64) (float64, error) {
	if math.IsNaN(margin) {
		return 0, errors.New("model produced NaN")
	}
	p := sigmoid(margin)
	return math.Min(1, math.Max(0, p)), nil
}
