package describe

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"gopanel/domain/core"
	"gopanel/domain/panel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeValues(t *testing.T) {
	s := SummarizeValues("gdp", []float64{4, 1, math.NaN(), 100, 3, 2})

	assert.Equal(t, "gdp", s.Column)
	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 22.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(1902.5), s.Std, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 2.0, s.Q25)
	assert.Equal(t, 3.0, s.Median)
	assert.Equal(t, 4.0, s.Q75)
	assert.Equal(t, 100.0, s.Max)
}

func TestSummarizeValues_InterpolatedQuartiles(t *testing.T) {
	tests := []struct {
		values   []float64
		q25, q75 float64
	}{
		{[]float64{4, 3, 2, 1}, 1.75, 3.25},
		{[]float64{1, 2, 3, 4, 5}, 2, 4},
		{[]float64{10, 20}, 12.5, 17.5},
		{[]float64{1, 2, 3, 4, 5, 6}, 2.25, 4.75},
	}
	for _, tt := range tests {
		s := SummarizeValues("x", tt.values)
		assert.InDelta(t, tt.q25, s.Q25, 1e-12, "%v", tt.values)
		assert.InDelta(t, tt.q75, s.Q75, 1e-12, "%v", tt.values)
	}
}

func TestSummarizeValues_SmallSamples(t *testing.T) {
	empty := SummarizeValues("x", []float64{math.NaN()})
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
	assert.True(t, math.IsNaN(empty.Max))

	single := SummarizeValues("x", []float64{7})
	assert.Equal(t, 1, single.Count)
	assert.Equal(t, 7.0, single.Mean)
	assert.Equal(t, 7.0, single.Q25)
	assert.True(t, math.IsNaN(single.Std))
}

func TestSummary_MarshalJSONWritesNull(t *testing.T) {
	b, err := json.Marshal(SummarizeValues("x", []float64{7}))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Nil(t, decoded["std"])
	assert.Equal(t, 7.0, decoded["mean"])
	assert.Equal(t, 1.0, decoded["count"])
}

func TestSummarize(t *testing.T) {
	table, err := panel.NewRawTable([]string{"id", "y", "x"}, [][]string{
		{"A", "1", "abc"},
		{"A", "2", ""},
		{"B", "3", "n/a"},
	})
	require.NoError(t, err)

	out, err := Summarize(table, []string{"y", "x"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "y", out[0].Column)
	assert.Equal(t, 3, out[0].Count)
	assert.Equal(t, 2.0, out[0].Mean)
	assert.Equal(t, 0, out[1].Count)

	_, err = Summarize(table, []string{"missing"})
	assert.True(t, errors.Is(err, core.ErrColumnNotFound))
}
