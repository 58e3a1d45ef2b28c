package explain

import (
	"errors"
	"math"
	"testing"

	"github.com/mchmarny/chefskiss/pkg/feature"
	"github.com/mchmarny/chefskiss/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExplainer struct {
	contribs []model.Contribution
	err      error
}

func (f *fakeExplainer) Explain(feature.Record) ([]model.Contribution, error) {
	return f.contribs, f.err
}

func (f *fakeExplainer) ExpectedValue() float64 {
	return 0
}

func testRecord() feature.Record {
	return feature.Record{feature.ColumnLocation: feature.String("19103")}
}

func TestRanker_Nil(t *testing.T) {
	var r *Ranker
	assert.False(t, r.Available())
	assert.Nil(t, r.Explain(testRecord()))

	assert.Nil(t, NewRanker(nil))
}

func TestRanker_Explain(t *testing.T) {
	r := NewRanker(&fakeExplainer{contribs: []model.Contribution{
		{Feature: "price_range", Value: 0.1},
		{Feature: "total_population", Value: -0.9},
		{Feature: "pct_white", Value: 0.05},
		{Feature: "subtype_Thai", Value: 0.4},
		{Feature: "competition_density", Value: -0.4},
		{Feature: "walk_score", Value: 0.3},
		{Feature: "zip_total_restaurants", Value: 0.01},
	}})
	require.True(t, r.Available())

	got := r.Explain(testRecord())
	require.Len(t, got, TopK)
	assert.Equal(t, []Attribution{
		{Label: "Total Population", Value: -0.9},
		{Label: "Restaurant Type: Thai", Value: 0.4},
		{Label: "Competition Density", Value: -0.4},
		{Label: "Walk Score", Value: 0.3},
		{Label: "Price Level", Value: 0.1},
	}, got)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, math.Abs(got[i-1].Value), math.Abs(got[i].Value))
	}

	assert.Equal(t, got, r.Explain(testRecord()))
}

func TestRanker_Short(t *testing.T) {
	r := NewRanker(&fakeExplainer{contribs: []model.Contribution{
		{Feature: "price_range", Value: -0.2},
		{Feature: "pct_asian", Value: math.NaN()},
	}})
	got := r.Explain(testRecord())
	assert.Equal(t, []Attribution{{Label: "Price Level", Value: -0.2}}, got)
}

func TestRanker_NonFinite(t *testing.T) {
	r := NewRanker(&fakeExplainer{contribs: []model.Contribution{
		{Feature: "total_population", Value: math.Inf(1)},
		{Feature: "pct_white", Value: math.Inf(-1)},
		{Feature: "price_range", Value: 0.1},
	}})
	got := r.Explain(testRecord())
	assert.Equal(t, []Attribution{{Label: "Price Level", Value: 0.1}}, got)
}

func TestRanker_TopK(t *testing.T) {
	r := NewRanker(&fakeExplainer{contribs: []model.Contribution{
		{Feature: "a", Value: 1},
		{Feature: "b", Value: 2},
		{Feature: "c", Value: 3},
	}}, WithTopK(2))
	got := r.Explain(testRecord())
	assert.Equal(t, []Attribution{{Label: "C", Value: 3}, {Label: "B", Value: 2}}, got)
}

func TestRanker_Error(t *testing.T) {
	r := NewRanker(&fakeExplainer{err: errors.New("boom")})
	assert.Nil(t, r.Explain(testRecord()))

	r = NewRanker(&fakeExplainer{})
	assert.Nil(t, r.Explain(testRecord()))
}
