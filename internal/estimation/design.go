package estimation

import (
	"fmt"
	"math"

	"gopanel/domain/core"
	"gopanel/domain/panel"
)

// sample is the listwise-deleted estimation sample
type sample struct {
	y        []float64
	x        [][]float64
	entities []string
	group    []int // group index per row
	groups   []string
	sizes    []int
	nx       int
}

// collectSample drops rows with a missing value in y or any x and groups the
// remaining rows by entity in order of first appearance.
func collectSample(p *panel.PanelTable, spec panel.ModelSpec) (*sample, error) {
	if err := spec.Validate(p.Has); err != nil {
		return nil, err
	}

	y, err := p.Column(spec.Dependent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrColumnNotFound, err)
	}
	xs := make([][]float64, len(spec.Independents))
	for j, name := range spec.Independents {
		if xs[j], err = p.Column(name); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrColumnNotFound, err)
		}
	}

	s := &sample{nx: len(xs)}
	pos := make(map[string]int)
	for i := 0; i < p.Len(); i++ {
		if !finite(y[i]) {
			continue
		}
		row := make([]float64, len(xs))
		ok := true
		for j := range xs {
			if !finite(xs[j][i]) {
				ok = false
				break
			}
			row[j] = xs[j][i]
		}
		if !ok {
			continue
		}

		entity := p.Key(i).Entity
		g, seen := pos[entity]
		if !seen {
			g = len(s.groups)
			pos[entity] = g
			s.groups = append(s.groups, entity)
			s.sizes = append(s.sizes, 0)
		}
		s.sizes[g]++

		s.y = append(s.y, y[i])
		s.x = append(s.x, row)
		s.entities = append(s.entities, entity)
		s.group = append(s.group, g)
	}
	return s, nil
}

func (s *sample) n() int { return len(s.y) }
func (s *sample) k() int { return s.nx }

// checkSize enforces n > k + 1 for a model with k regressors plus intercept
func checkSize(model string, n, k int) error {
	if n <= k+1 {
		return core.NewInsufficientDataError(model, n, k+1)
	}
	return nil
}

// groupMeans returns per-entity means of y and of every x column
func (s *sample) groupMeans() (yBar []float64, xBar [][]float64) {
	g := len(s.groups)
	k := s.k()
	yBar = make([]float64, g)
	xBar = make([][]float64, g)
	for i := range xBar {
		xBar[i] = make([]float64, k)
	}
	for i, gi := range s.group {
		yBar[gi] += s.y[i]
		for j, v := range s.x[i] {
			xBar[gi][j] += v
		}
	}
	for gi, size := range s.sizes {
		yBar[gi] /= float64(size)
		for j := range xBar[gi] {
			xBar[gi][j] /= float64(size)
		}
	}
	return yBar, xBar
}

// grandMeans returns overall means of y and of every x column
func (s *sample) grandMeans() (yMean float64, xMean []float64) {
	k := s.k()
	xMean = make([]float64, k)
	for i := range s.y {
		yMean += s.y[i]
		for j, v := range s.x[i] {
			xMean[j] += v
		}
	}
	n := float64(s.n())
	yMean /= n
	for j := range xMean {
		xMean[j] /= n
	}
	return yMean, xMean
}

// predict returns const + x·beta for every sample row
func (s *sample) predict(beta []float64) []float64 {
	out := make([]float64, s.n())
	for i, row := range s.x {
		v := beta[0]
		for j, x := range row {
			v += beta[j+1] * x
		}
		out[i] = v
	}
	return out
}

func coefficientNames(spec panel.ModelSpec) []string {
	return append([]string{panel.ConstName}, spec.Independents...)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
