package coercer

import (
	"math"
	"strings"

	"gopanel/domain/panel"
)

// TimeCoercion is the outcome of turning a raw time column into ordinals
type TimeCoercion struct {
	Encoding panel.TimeEncoding
	Ordinals []float64 // NaN marks a missing time
	Missing  int
}

// CoerceTime applies the numeric -> chronological -> categorical code
// fallback. The chosen tier is reported so callers can tell when real
// temporal ordering was lost.
func (c *TypeCoercer) CoerceTime(values []string) TimeCoercion {
	if ordinals, ok := c.numericTimes(values); ok {
		return newTimeCoercion(panel.TimeNumeric, ordinals)
	}
	if ordinals, ok := c.chronologicalTimes(values); ok {
		return newTimeCoercion(panel.TimeChronological, ordinals)
	}
	return newTimeCoercion(panel.TimeCategoricalCode, categoryCodes(values))
}

func newTimeCoercion(enc panel.TimeEncoding, ordinals []float64) TimeCoercion {
	missing := 0
	for _, v := range ordinals {
		if math.IsNaN(v) {
			missing++
		}
	}
	return TimeCoercion{Encoding: enc, Ordinals: ordinals, Missing: missing}
}

// numericTimes succeeds only when every present value is a number
func (c *TypeCoercer) numericTimes(values []string) ([]float64, bool) {
	out := make([]float64, len(values))
	present := 0
	for i, v := range values {
		if IsMissing(v) {
			out[i] = math.NaN()
			continue
		}
		f, ok := c.ParseNumeric(v)
		if !ok {
			return nil, false
		}
		out[i] = f
		present++
	}
	return out, present > 0
}

// chronologicalTimes succeeds when at least one value parses as a date;
// the rest become missing.
func (c *TypeCoercer) chronologicalTimes(values []string) ([]float64, bool) {
	out := make([]float64, len(values))
	parsed := 0
	for i, v := range values {
		t, ok := c.ParseTimestamp(v)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = float64(t.Unix())
		parsed++
	}
	return out, parsed > 0
}

// categoryCodes numbers distinct values in order of first appearance
func categoryCodes(values []string) []float64 {
	codes := make(map[string]float64)
	out := make([]float64, len(values))
	for i, v := range values {
		if IsMissing(v) {
			out[i] = math.NaN()
			continue
		}
		key := strings.TrimSpace(v)
		code, ok := codes[key]
		if !ok {
			code = float64(len(codes))
			codes[key] = code
		}
		out[i] = code
	}
	return out
}
