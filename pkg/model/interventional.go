package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/mchmarny/chefskiss/pkg/feature"
)

const (
	sideNone int8 = iota
	sideX
	sideZ
)

// InterventionalExplainer computes interventional TreeSHAP values: exact
// Shapley values of the ensemble margin where absent features take their
// values from a background sample, averaged over the sample.
type InterventionalExplainer struct {
	model      *TreeEnsemble
	background [][]float64
	expected   float64
}

func newInterventionalExplainer(m *TreeEnsemble) (*InterventionalExplainer, error) {
	if len(m.background) == 0 {
		return nil, errors.New("tree ensemble has no background sample")
	}
	expected := 0.0
	for _, z := range m.background {
		expected += m.margin(z)
	}
	expected /= float64(len(m.background))
	return &InterventionalExplainer{
		model:      m,
		background: m.background,
		expected:   expected,
	}, nil
}

func (e *InterventionalExplainer) ExpectedValue() float64 {
	return e.expected
}

// Explain returns one contribution per expanded feature, in feature order.
func (e *InterventionalExplainer) Explain(r feature.Record) ([]Contribution, error) {
	x, err := e.model.pre.Transform(r)
	if err != nil {
		return nil, err
	}

	w := &walk{
		x:    x,
		side: make([]int8, len(x)),
		phi:  make([]float64, len(x)),
	}
	for _, z := range e.background {
		w.z = z
		for _, t := range e.model.trees {
			t.intervene(w, 0, 0, 0)
		}
	}

	n := float64(len(e.background))
	out := make([]Contribution, len(x))
	for i, v := range w.phi {
		out[i] = Contribution{Feature: e.model.features[i], Value: v / n}
	}
	return out, nil
}

// walk is the state of one explained row against one background row.
type walk struct {
	x, z []float64
	side []int8
	path []int
	phi  []float64
}

// intervene accumulates the Shapley values of the leaves reachable when
// every split feature on the path comes either from x or from z. nx and nz
// count the features taken from each side.
func (t *Tree) intervene(w *walk, node, nx, nz int) {
	if t.isLeaf(node) {
		if nx+nz == 0 {
			return
		}
		v := t.Threshold[node]
		for _, f := range w.path {
			if w.side[f] == sideX {
				w.phi[f] += v * shapWeight(nx-1, nz)
			} else {
				w.phi[f] -= v * shapWeight(nx, nz-1)
			}
		}
		return
	}

	f := t.Feature[node]
	xc, zc := t.next(node, w.x), t.next(node, w.z)

	switch {
	case w.side[f] == sideX:
		t.intervene(w, xc, nx, nz)
	case w.side[f] == sideZ:
		t.intervene(w, zc, nx, nz)
	case xc == zc:
		t.intervene(w, xc, nx, nz)
	default:
		w.path = append(w.path, f)
		w.side[f] = sideX
		t.intervene(w, xc, nx+1, nz)
		w.side[f] = sideZ
		t.intervene(w, zc, nx, nz+1)
		w.side[f] = sideNone
		w.path = w.path[:len(w.path)-1]
	}
}

// shapWeight is a! b! / (a+b+1)!.
func shapWeight(a, b int) float64 {
	la, _ := math.Lgamma(float64(a + 1))
	lb, _ := math.Lgamma(float64(b + 1))
	lab, _ := math.Lgamma(float64(a + b + 2))
	return math.Exp(la + lb - lab)
}

func validateBackground(rows [][]float64, width int) error {
	for i, row := range rows {
		if len(row) != width {
			return fmt.Errorf("background row %d has %d values for %d features", i, len(row), width)
		}
	}
	return nil
}
