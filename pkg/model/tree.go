package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/mchmarny/chefskiss/pkg/feature"
)

const leafMarker = -1

// Tree is one regression tree in XGBoost's array layout. Node 0 is the
// root; a node is a leaf when both children are -1, and a leaf stores its
// value in Threshold. Cover holds the training hessian sum per node and is
// only needed for attribution.
type Tree struct {
	Left        []int     `json:"left_children"`
	Right       []int     `json:"right_children"`
	Feature     []int     `json:"split_indices"`
	Threshold   []float64 `json:"split_conditions"`
	DefaultLeft []int     `json:"default_left"`
	Cover       []float64 `json:"sum_hessian,omitempty"`
}

func (t *Tree) validate(width int) error {
	n := len(t.Left)
	if n == 0 {
		return errors.New("empty tree")
	}
	if len(t.Right) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.DefaultLeft) != n {
		return errors.New("node arrays differ in length")
	}
	if len(t.Cover) != 0 && len(t.Cover) != n {
		return errors.New("cover length differs from node count")
	}
	for i := 0; i < n; i++ {
		l, r := t.Left[i], t.Right[i]
		if l == leafMarker && r == leafMarker {
			continue
		}
		// children always follow their parent, which also rules out cycles
		if l <= i || r <= i || l >= n || r >= n || l == r {
			return fmt.Errorf("node %d: invalid children %d, %d", i, l, r)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= width {
			return fmt.Errorf("node %d: split feature %d out of range", i, t.Feature[i])
		}
	}
	return nil
}

func (t *Tree) isLeaf(i int) bool {
	return t.Left[i] == leafMarker
}

// next returns the child x follows from internal node i.
func (t *Tree) next(i int, x []float64) int {
	v := x[t.Feature[i]]
	if math.IsNaN(v) {
		if t.DefaultLeft[i] != 0 {
			return t.Left[i]
		}
		return t.Right[i]
	}
	if v < t.Threshold[i] {
		return t.Left[i]
	}
	return t.Right[i]
}

func (t *Tree) eval(x []float64) float64 {
	i := 0
	for !t.isLeaf(i) {
		i = t.next(i, x)
	}
	return t.Threshold[i]
}

// TreeEnsemble is a binary:logistic gradient boosted model.
type TreeEnsemble struct {
	pre        Preprocessor
	baseMargin float64
	trees      []*Tree
	background [][]float64
	features   []string
}

func newTreeEnsemble(a *Artifact) (*TreeEnsemble, error) {
	if len(a.Trees) == 0 {
		return nil, errors.New("tree ensemble has no trees")
	}

	base := 0.0
	if a.BaseScore != nil {
		p := *a.BaseScore
		if !(p > 0 && p < 1) {
			return nil, fmt.Errorf("base_score %v outside (0, 1)", p)
		}
		base = logit(p)
	}

	width := a.Preprocessor.Width()
	for i, t := range a.Trees {
		if t == nil {
			return nil, fmt.Errorf("tree %d is null", i)
		}
		if err := t.validate(width); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}

	if err := validateBackground(a.Background, width); err != nil {
		return nil, err
	}

	return &TreeEnsemble{
		pre:        a.Preprocessor,
		baseMargin: base,
		trees:      a.Trees,
		background: a.Background,
		features:   a.Preprocessor.Features(),
	}, nil
}

func (m *TreeEnsemble) Kind() Kind {
	return KindTreeEnsemble
}

func (m *TreeEnsemble) Features() []string {
	out := make([]string, len(m.features))
	copy(out, m.features)
	return out
}

func (m *TreeEnsemble) margin(x []float64) float64 {
	sum := m.baseMargin
	for _, t := range m.trees {
		sum += t.eval(x)
	}
	return sum
}

// Predict returns the positive-class probability.
func (m *TreeEnsemble) Predict(r feature.Record) (float64, error) {
	x, err := m.pre.Transform(r)
	if err != nil {
		return 0, err
	}
	return probability(m.margin(x))
}
