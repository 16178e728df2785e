// Package plotdata builds the numeric series behind the diagnostic charts:
// per-entity trends, scatter plots, residuals against fitted values and a
// residual histogram. Rendering is left to the consumer.
package plotdata

import (
	"fmt"
	"math"
	"sort"

	"gopanel/domain/panel"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBins is the residual histogram resolution
const DefaultBins = 20

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type TrendPoint struct {
	Time  float64 `json:"time"`
	Label string  `json:"label"`
	Y     float64 `json:"y"`
}

// Trend is the dependent variable of one entity over time
type Trend struct {
	Entity string       `json:"entity"`
	Points []TrendPoint `json:"points"`
}

// Scatter pairs one independent variable with the dependent
type Scatter struct {
	Variable string  `json:"variable"`
	Points   []Point `json:"points"`
}

// Histogram has len(Edges) == len(Counts)+1
type Histogram struct {
	Edges  []float64 `json:"edges"`
	Counts []float64 `json:"counts"`
}

// Series is everything the chart layer needs for one analysis
type Series struct {
	Trends    []Trend   `json:"trends"`
	Scatters  []Scatter `json:"scatters"`
	Residuals []Point   `json:"residuals"` // X fitted, Y residual
	Histogram Histogram `json:"histogram"`
}

// Build assembles the plot series. fit supplies residuals and may be nil,
// in which case the residual series are empty.
func Build(p *panel.PanelTable, spec panel.ModelSpec, fit *panel.FitResult, bins int) (*Series, error) {
	if err := spec.Validate(p.Has); err != nil {
		return nil, err
	}
	y, err := p.Column(spec.Dependent)
	if err != nil {
		return nil, err
	}

	s := &Series{
		Trends:   trends(p, y),
		Scatters: make([]Scatter, 0, len(spec.Independents)),
	}
	for _, name := range spec.Independents {
		x, err := p.Column(name)
		if err != nil {
			return nil, err
		}
		s.Scatters = append(s.Scatters, Scatter{Variable: name, Points: pairs(x, y)})
	}

	if fit != nil {
		fitted := fit.Fitted()
		resid := fit.Residuals()
		s.Residuals = pairs(fitted, resid)
		if s.Histogram, err = ResidualHistogram(resid, bins); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// trends walks the rows in (entity, time) order. Rows without a time or a
// finite value are skipped.
func trends(p *panel.PanelTable, y []float64) []Trend {
	var out []Trend
	for _, i := range p.SortedOrder() {
		key := p.Key(i)
		if key.TimeMissing() || !finite(y[i]) {
			continue
		}
		if len(out) == 0 || out[len(out)-1].Entity != key.Entity {
			out = append(out, Trend{Entity: key.Entity})
		}
		last := &out[len(out)-1]
		last.Points = append(last.Points, TrendPoint{Time: key.Time, Label: p.TimeLabel(i), Y: y[i]})
	}
	return out
}

func pairs(x, y []float64) []Point {
	out := make([]Point, 0, len(x))
	for i := range x {
		if finite(x[i]) && finite(y[i]) {
			out = append(out, Point{X: x[i], Y: y[i]})
		}
	}
	return out
}

// ResidualHistogram bins values into equal-width bins spanning their range
func ResidualHistogram(values []float64, bins int) (Histogram, error) {
	if bins <= 0 {
		return Histogram{}, fmt.Errorf("histogram needs a positive bin count, got %d", bins)
	}

	x := make([]float64, 0, len(values))
	for _, v := range values {
		if finite(v) {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return Histogram{Edges: []float64{}, Counts: []float64{}}, nil
	}
	sort.Float64s(x)

	lo, hi := x[0], x[len(x)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	edges := floats.Span(make([]float64, bins+1), lo, hi)
	// the last bin is half-open, so nudge the upper edge past the maximum
	dividers := append([]float64(nil), edges...)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, x, nil)
	return Histogram{Edges: edges, Counts: counts}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
