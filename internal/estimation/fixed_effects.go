package estimation

import (
	"gopanel/domain/core"
	"gopanel/domain/panel"
	"gopanel/internal"

	"gonum.org/v1/gonum/mat"
)

// Model names used in results and error messages
const (
	ModelFixedEffects  = "fixed effects"
	ModelRandomEffects = "random effects"
)

// FitFixedEffects estimates an entity fixed-effects model by the within
// transformation with the grand mean restored, so the intercept is the
// average entity effect. Standard errors are heteroskedasticity-robust.
func FitFixedEffects(p *panel.PanelTable, spec panel.ModelSpec) (*panel.FitResult, error) {
	logger := internal.DefaultLogger.WithComponent("FixedEffects")

	s, err := collectSample(p, spec)
	if err != nil {
		return nil, err
	}
	n, k := s.n(), s.k()
	if err := checkSize(ModelFixedEffects, n, k); err != nil {
		return nil, err
	}

	yBar, xBar := s.groupMeans()
	yMean, xMean := s.grandMeans()

	yd := make([]float64, n)
	xd := mat.NewDense(n, k+1, nil)
	for i, g := range s.group {
		yd[i] = s.y[i] - yBar[g] + yMean
		xd.Set(i, 0, 1)
		for j := 0; j < k; j++ {
			xd.Set(i, j+1, s.x[i][j]-xBar[g][j]+xMean[j])
		}
	}

	fit, err := FitOLS(xd, yd)
	if err != nil {
		return nil, core.NewFittingError(ModelFixedEffects, err)
	}

	entities := len(s.groups)
	dfResid := n - entities - k
	if dfResid <= 0 {
		logger.Warn("no residual degrees of freedom (n=%d, entities=%d, k=%d)", n, entities, k)
	}

	// Within R-squared: demeaned residuals over within variation of y
	sstWithin := 0.0
	for i, g := range s.group {
		d := s.y[i] - yBar[g]
		sstWithin += d * d
	}
	r2 := 0.0
	if sstWithin > 0 {
		r2 = 1 - fit.SSR/sstWithin
	}

	effects := make(map[string]float64, entities)
	for g, entity := range s.groups {
		u := yBar[g] - fit.Beta[0]
		for j := 0; j < k; j++ {
			u -= fit.Beta[j+1] * xBar[g][j]
		}
		effects[entity] = u
	}

	logger.Debug("fit n=%d entities=%d k=%d within R2=%.4f", n, entities, k, r2)

	return panel.NewFitResult(panel.FitInput{
		Model:      ModelFixedEffects,
		Names:      coefficientNames(spec),
		Params:     fit.Beta,
		Covariance: fit.RobustCovariance(n - entities + 1),
		Observed:   s.y,
		Fitted:     s.predict(fit.Beta),
		Entities:   s.entities,
		Effects:    effects,
		Stats: panel.FitStats{
			NObs:     n,
			Entities: entities,
			DFResid:  dfResid,
			RSquared: r2,
		},
	})
}
