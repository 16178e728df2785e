package diagnostics

import (
	"fmt"
	"math"

	"gopanel/domain/panel"
	"gopanel/internal"
	"gopanel/internal/estimation"
)

// perfectFit is how close to one R-squared may get before the F statistic
// is treated as undefined.
const perfectFit = 1e-10

// Wooldridge tests for first-order serial correlation by regressing the
// within-entity first difference of y on the first differences of the
// independents. Rows are ordered by entity then time; the first row of every
// entity has no difference. F = R^2 (n-k-1) / (1-R^2).
//
// Every failure is reported as an undefined outcome with a reason.
func Wooldridge(p *panel.PanelTable, spec panel.ModelSpec) panel.TestOutcome {
	logger := internal.DefaultLogger.WithComponent("Wooldridge")

	if p == nil {
		return panel.Undefined("no panel data")
	}
	if err := spec.Validate(p.Has); err != nil {
		return panel.Undefined(err.Error())
	}

	y, err := p.Column(spec.Dependent)
	if err != nil {
		return panel.Undefined(err.Error())
	}
	xs := make([][]float64, len(spec.Independents))
	for j, name := range spec.Independents {
		if xs[j], err = p.Column(name); err != nil {
			return panel.Undefined(err.Error())
		}
	}
	k := len(xs)

	var dy []float64
	var dx [][]float64
	order := p.SortedOrder()
	for pos := 1; pos < len(order); pos++ {
		cur, prev := order[pos], order[pos-1]
		if p.Key(cur).Entity != p.Key(prev).Entity {
			continue
		}
		d := y[cur] - y[prev]
		if !isFinite(d) {
			continue
		}
		row := make([]float64, k)
		ok := true
		for j := range xs {
			row[j] = xs[j][cur] - xs[j][prev]
			if !isFinite(row[j]) {
				ok = false
				break
			}
		}
		if ok {
			dy = append(dy, d)
			dx = append(dx, row)
		}
	}

	n := len(dy)
	df2 := n - k - 1
	if n == 0 {
		return panel.Undefined("no entity has two consecutive observations")
	}
	if df2 <= 0 {
		return panel.Undefined(fmt.Sprintf("%d differenced observations are too few for %d regressors", n, k))
	}
	if estimation.SST(dy) == 0 {
		return panel.Undefined("differenced dependent variable has no variation")
	}

	fit, err := estimation.FitOLS(estimation.DesignWithConst(dx), dy)
	if err != nil {
		return panel.Undefined(fmt.Sprintf("differenced regression failed: %v", err))
	}
	if fit.R2 >= 1-perfectFit {
		return panel.Undefined("differenced regression fits perfectly")
	}

	f := fit.R2 * float64(df2) / (1 - fit.R2)
	if !isFinite(f) {
		return panel.Undefined("F statistic is not finite")
	}

	logger.Debug("n=%d k=%d R2=%.6f F=%.4f", n, k, fit.R2, f)
	return panel.NewOutcome(f, FTestPValue(f, k, df2), k, df2)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
