package model

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mchmarny/chefskiss/pkg/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBackground = [][]float64{
	{0.2, 1, 0.5, 1, 0},
	{0.9, 3, 2, 0, 1},
	{0.6, 2.5, 0.1, 0, 0},
}

func loadTreeWithBackground(t *testing.T, bg [][]float64) *TreeEnsemble {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", "tree.json"))
	require.NoError(t, err)
	var a Artifact
	require.NoError(t, json.Unmarshal(b, &a))
	a.Background = bg
	m, err := New(&a)
	require.NoError(t, err)
	te, ok := m.(*TreeEnsemble)
	require.True(t, ok)
	return te
}

// backgroundShapley enumerates every coalition, filling absent features
// from each background row.
func backgroundShapley(m *TreeEnsemble, x []float64, bg [][]float64) []float64 {
	n := len(x)
	fact := func(k int) float64 {
		f := 1.0
		for i := 2; i <= k; i++ {
			f *= float64(i)
		}
		return f
	}
	value := func(mask int) float64 {
		sum := 0.0
		for _, z := range bg {
			h := make([]float64, n)
			for i := range h {
				if mask&(1<<i) != 0 {
					h[i] = x[i]
				} else {
					h[i] = z[i]
				}
			}
			sum += m.margin(h)
		}
		return sum / float64(len(bg))
	}

	phi := make([]float64, n)
	for j := 0; j < n; j++ {
		for mask := 0; mask < 1<<n; mask++ {
			if mask&(1<<j) != 0 {
				continue
			}
			size := 0
			for i := 0; i < n; i++ {
				if mask&(1<<i) != 0 {
					size++
				}
			}
			w := fact(size) * fact(n-size-1) / fact(n)
			phi[j] += w * (value(mask|1<<j) - value(mask))
		}
	}
	return phi
}

func TestInterventionalExplainer_MatchesShapley(t *testing.T) {
	m := loadTreeWithBackground(t, testBackground)
	e, err := NewExplainer(m)
	require.NoError(t, err)
	_, ok := e.(*InterventionalExplainer)
	require.True(t, ok)

	records := []feature.Record{
		treeRecord(0.7, 3, 0.5, "Italian"),
		treeRecord(0.2, 1, 2, "Pizza"),
		treeRecord(0.6, 0, math.NaN(), "Thai"),
		treeRecord(math.NaN(), 5, 0.2, "Italian"),
	}

	for _, rec := range records {
		x, err := m.pre.Transform(rec)
		require.NoError(t, err)

		got, err := e.Explain(rec)
		require.NoError(t, err)
		require.Len(t, got, len(x))

		want := backgroundShapley(m, x, testBackground)
		sum := e.ExpectedValue()
		for i, c := range got {
			assert.Equal(t, m.features[i], c.Feature)
			assert.InDelta(t, want[i], c.Value, delta, c.Feature)
			sum += c.Value
		}
		assert.InDelta(t, m.margin(x), sum, delta)
	}
}

func TestInterventionalExplainer_KnownValues(t *testing.T) {
	m := loadTreeWithBackground(t, testBackground)
	e, err := NewExplainer(m)
	require.NoError(t, err)

	got, err := e.Explain(treeRecord(0.7, 3, 0.5, "Pizza"))
	require.NoError(t, err)
	assert.InDelta(t, -0.6, got[0].Value, delta)
	assert.InDelta(t, -1.0/12, got[1].Value, delta)
	assert.InDelta(t, -11.0/60, got[2].Value, delta)
	assert.InDelta(t, -7.0/60, got[3].Value, delta)
	assert.InDelta(t, 0.0, got[4].Value, delta)
}

func TestInterventionalExplainer_Stump(t *testing.T) {
	a := &Artifact{
		Kind: KindTreeEnsemble,
		Preprocessor: Preprocessor{
			Numeric: []NumericColumn{{Name: "a"}},
		},
		Trees: []*Tree{{
			Left:        []int{1, -1, -1},
			Right:       []int{2, -1, -1},
			Feature:     []int{0, 0, 0},
			Threshold:   []float64{1, 0.1, 0.2},
			DefaultLeft: []int{0, 0, 0},
		}},
		Background: [][]float64{{0}, {2}},
	}
	m, err := New(a)
	require.NoError(t, err)

	// no covers needed with a background sample
	e, err := NewExplainer(m)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, e.ExpectedValue(), delta)

	got, err := e.Explain(feature.Record{"a": feature.Number(0)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, -0.05, got[0].Value, delta)
}

func TestNew_InvalidBackground(t *testing.T) {
	b, err := os.ReadFile(filepath.Join("testdata", "tree.json"))
	require.NoError(t, err)
	var a Artifact
	require.NoError(t, json.Unmarshal(b, &a))
	a.Background = [][]float64{{1, 2}}
	_, err = New(&a)
	assert.Error(t, err)
}

func TestShapWeight(t *testing.T) {
	assert.InDelta(t, 1.0, shapWeight(0, 0), delta)
	assert.InDelta(t, 0.5, shapWeight(1, 0), delta)
	assert.InDelta(t, 1.0/6, shapWeight(1, 1), delta)
	assert.InDelta(t, 2.0/24, shapWeight(2, 1), delta)
}
