// Package describe computes per-column descriptive statistics for the
// variables of a model.
package describe

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gopanel/domain/core"
	"gopanel/domain/panel"
	"gopanel/internal/coercer"

	"github.com/montanaflynn/stats"
)

// Summary is the descriptive statistics of one column. Statistics that
// cannot be computed are NaN and encode as JSON null.
type Summary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64 // sample standard deviation
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Summarize describes the named columns of a raw table, in the given order.
// Cells that are missing or not numeric are ignored.
func Summarize(table *panel.RawTable, columns []string) ([]Summary, error) {
	c := coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())

	out := make([]Summary, 0, len(columns))
	for _, name := range columns {
		raw, err := table.Column(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrColumnNotFound, err)
		}
		out = append(out, SummarizeValues(name, c.Floats(raw)))
	}
	return out, nil
}

// SummarizeValues describes the finite values of data
func SummarizeValues(name string, data []float64) Summary {
	values := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			values = append(values, v)
		}
	}

	s := Summary{
		Column: name,
		Count:  len(values),
		Mean:   math.NaN(),
		Std:    math.NaN(),
		Min:    math.NaN(),
		Q25:    math.NaN(),
		Median: math.NaN(),
		Q75:    math.NaN(),
		Max:    math.NaN(),
	}
	if len(values) == 0 {
		return s
	}

	s.Mean, _ = stats.Mean(values)
	s.Min, _ = stats.Min(values)
	s.Max, _ = stats.Max(values)
	s.Median, _ = stats.Median(values)
	if len(values) == 1 {
		s.Q25, s.Q75 = values[0], values[0]
		return s
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	s.Q25 = quantile(sorted, 0.25)
	s.Q75 = quantile(sorted, 0.75)
	s.Std, _ = stats.StandardDeviationSample(values)
	return s
}

// quantile interpolates linearly between the order statistics around
// position (n-1)p of sorted.
func quantile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	hi := math.Ceil(h)
	return sorted[int(lo)] + (h-lo)*(sorted[int(hi)]-sorted[int(lo)])
}

// MarshalJSON writes NaN statistics as null
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Column string   `json:"column"`
		Count  int      `json:"count"`
		Mean   *float64 `json:"mean"`
		Std    *float64 `json:"std"`
		Min    *float64 `json:"min"`
		Q25    *float64 `json:"q25"`
		Median *float64 `json:"median"`
		Q75    *float64 `json:"q75"`
		Max    *float64 `json:"max"`
	}{
		Column: s.Column,
		Count:  s.Count,
		Mean:   nullable(s.Mean),
		Std:    nullable(s.Std),
		Min:    nullable(s.Min),
		Q25:    nullable(s.Q25),
		Median: nullable(s.Median),
		Q75:    nullable(s.Q75),
		Max:    nullable(s.Max),
	})
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
