package model

import (
	"fmt"

	"github.com/mchmarny/chefskiss/pkg/feature"
)

// pathElem is one split on the current root-to-node path.
type pathElem struct {
	feature int
	zero    float64
	one     float64
	weight  float64
}

// TreeExplainer computes path-dependent TreeSHAP values: exact Shapley
// values of the ensemble margin where absent features are integrated out
// using the training cover of each branch.
type TreeExplainer struct {
	model    *TreeEnsemble
	expected float64
}

func newTreeExplainer(m *TreeEnsemble) (*TreeExplainer, error) {
	expected := m.baseMargin
	for i, t := range m.trees {
		if len(t.Cover) == 0 {
			return nil, fmt.Errorf("tree %d has no cover statistics", i)
		}
		for n, c := range t.Cover {
			if !(c > 0) {
				return nil, fmt.Errorf("tree %d node %d: cover must be positive", i, n)
			}
		}
		expected += t.expectedValue(0)
	}
	return &TreeExplainer{model: m, expected: expected}, nil
}

func (e *TreeExplainer) ExpectedValue() float64 {
	return e.expected
}

// Explain returns one contribution per expanded feature, in feature order.
func (e *TreeExplainer) Explain(r feature.Record) ([]Contribution, error) {
	x, err := e.model.pre.Transform(r)
	if err != nil {
		return nil, err
	}

	phi := make([]float64, len(x))
	for _, t := range e.model.trees {
		t.shap(x, phi, 0, nil, 1, 1, -1)
	}

	out := make([]Contribution, len(phi))
	for i, v := range phi {
		out[i] = Contribution{Feature: e.model.features[i], Value: v}
	}
	return out, nil
}

func (t *Tree) expectedValue(i int) float64 {
	if t.isLeaf(i) {
		return t.Threshold[i]
	}
	l, r := t.Left[i], t.Right[i]
	return (t.Cover[l]*t.expectedValue(l) + t.Cover[r]*t.expectedValue(r)) / t.Cover[i]
}

func (t *Tree) shap(x, phi []float64, node int, parent []pathElem, zero, one float64, feat int) {
	path := make([]pathElem, len(parent), len(parent)+1)
	copy(path, parent)
	path = extendPath(path, zero, one, feat)
	depth := len(path) - 1

	if t.isLeaf(node) {
		v := t.Threshold[node]
		for i := 1; i <= depth; i++ {
			w := unwoundPathSum(path, depth, i)
			el := path[i]
			phi[el.feature] += w * (el.one - el.zero) * v
		}
		return
	}

	hot := t.next(node, x)
	cold := t.Left[node]
	if hot == cold {
		cold = t.Right[node]
	}
	cover := t.Cover[node]
	hotZero := t.Cover[hot] / cover
	coldZero := t.Cover[cold] / cover

	inZero, inOne := 1.0, 1.0
	split := t.Feature[node]
	for k := 1; k <= depth; k++ {
		if path[k].feature == split {
			inZero, inOne = path[k].zero, path[k].one
			path = unwindPath(path, depth, k)
			break
		}
	}

	t.shap(x, phi, hot, path, hotZero*inZero, inOne, split)
	t.shap(x, phi, cold, path, coldZero*inZero, 0, split)
}

func extendPath(path []pathElem, zero, one float64, feat int) []pathElem {
	depth := len(path)
	w := 0.0
	if depth == 0 {
		w = 1
	}
	path = append(path, pathElem{feature: feat, zero: zero, one: one, weight: w})
	for i := depth - 1; i >= 0; i-- {
		path[i+1].weight += one * path[i].weight * float64(i+1) / float64(depth+1)
		path[i].weight = zero * path[i].weight * float64(depth-i) / float64(depth+1)
	}
	return path
}

// unwindPath removes element k from a path whose last index is depth.
func unwindPath(path []pathElem, depth, k int) []pathElem {
	one, zero := path[k].one, path[k].zero
	next := path[depth].weight

	for i := depth - 1; i >= 0; i-- {
		if one != 0 {
			tmp := path[i].weight
			path[i].weight = next * float64(depth+1) / (float64(i+1) * one)
			next = tmp - path[i].weight*zero*float64(depth-i)/float64(depth+1)
		} else {
			path[i].weight = path[i].weight * float64(depth+1) / (zero * float64(depth-i))
		}
	}

	for i := k; i < depth; i++ {
		path[i].feature = path[i+1].feature
		path[i].zero = path[i+1].zero
		path[i].one = path[i+1].one
	}
	return path[:depth]
}

// unwoundPathSum is the total weight of the path as if element k had
// never been added.
func unwoundPathSum(path []pathElem, depth, k int) float64 {
	one, zero := path[k].one, path[k].zero
	next := path[depth].weight
	total := 0.0

	for i := depth - 1; i >= 0; i-- {
		switch {
		case one != 0:
			tmp := next * float64(depth+1) / (float64(i+1) * one)
			total += tmp
			next = path[i].weight - tmp*zero*float64(depth-i)/float64(depth+1)
		case zero != 0:
			total += path[i].weight / zero / (float64(depth-i) / float64(depth+1))
		}
	}
	return total
}
