package estimation

import (
	"math"

	"gopanel/domain/core"
	"gopanel/domain/panel"
	"gopanel/internal"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// thetaCollapse is the quasi-demeaning weight above which the (1-theta)
// intercept column vanishes numerically.
const thetaCollapse = 1 - 1e-8

// VarianceComponents are the Swamy-Arora estimates behind the GLS weights
type VarianceComponents struct {
	SigmaE2 float64 // idiosyncratic
	SigmaU2 float64 // entity
	Theta   []float64
}

// FitRandomEffects estimates a random-effects model by feasible GLS.
// Each row is quasi-demeaned by theta_i = 1 - sqrt(s2e / (T_i s2u + s2e))
// and the transformed model is fitted by OLS with robust standard errors.
func FitRandomEffects(p *panel.PanelTable, spec panel.ModelSpec) (*panel.FitResult, error) {
	logger := internal.DefaultLogger.WithComponent("RandomEffects")

	s, err := collectSample(p, spec)
	if err != nil {
		return nil, err
	}
	n, k := s.n(), s.k()
	if err := checkSize(ModelRandomEffects, n, k); err != nil {
		return nil, err
	}

	yBar, xBar := s.groupMeans()

	vc, err := s.varianceComponents(yBar, xBar, logger)
	if err != nil {
		return nil, core.NewFittingError(ModelRandomEffects, err)
	}

	thetaMin, thetaMax := math.Inf(1), math.Inf(-1)
	for _, th := range vc.Theta {
		thetaMin = math.Min(thetaMin, th)
		thetaMax = math.Max(thetaMax, th)
	}

	yt := make([]float64, n)
	xt := mat.NewDense(n, k+1, nil)
	if thetaMax > thetaCollapse {
		// No idiosyncratic variance left: GLS is the within estimator.
		// Restoring the weighted grand mean keeps an identifiable intercept.
		logger.Warn("idiosyncratic variance is zero; random effects collapse to the within estimator")
		yMean, xMean := s.grandMeans()
		for i, g := range s.group {
			th := vc.Theta[g]
			yt[i] = s.y[i] - th*yBar[g] + th*yMean
			xt.Set(i, 0, 1)
			for j := 0; j < k; j++ {
				xt.Set(i, j+1, s.x[i][j]-th*xBar[g][j]+th*xMean[j])
			}
		}
	} else {
		for i, g := range s.group {
			th := vc.Theta[g]
			yt[i] = s.y[i] - th*yBar[g]
			xt.Set(i, 0, 1-th)
			for j := 0; j < k; j++ {
				xt.Set(i, j+1, s.x[i][j]-th*xBar[g][j])
			}
		}
	}

	fit, err := FitOLS(xt, yt)
	if err != nil {
		return nil, core.NewFittingError(ModelRandomEffects, err)
	}

	dfResid := n - k - 1
	fitted := s.predict(fit.Beta)
	r2 := stat.RSquaredFrom(fitted, s.y, nil)
	if !finite(r2) {
		r2 = 0
	}

	logger.Debug("fit n=%d entities=%d s2e=%.6g s2u=%.6g theta=[%.4f, %.4f]",
		n, len(s.groups), vc.SigmaE2, vc.SigmaU2, thetaMin, thetaMax)

	return panel.NewFitResult(panel.FitInput{
		Model:      ModelRandomEffects,
		Names:      coefficientNames(spec),
		Params:     fit.Beta,
		Covariance: fit.RobustCovariance(n),
		Observed:   s.y,
		Fitted:     fitted,
		Entities:   s.entities,
		Stats: panel.FitStats{
			NObs:     n,
			Entities: len(s.groups),
			DFResid:  dfResid,
			RSquared: r2,
			SigmaE2:  vc.SigmaE2,
			SigmaU2:  vc.SigmaU2,
			ThetaMin: thetaMin,
			ThetaMax: thetaMax,
		},
	})
}

// varianceComponents estimates s2e from the within regression and s2u from
// the between regression of entity means. A component without degrees of
// freedom is taken as zero.
func (s *sample) varianceComponents(yBar []float64, xBar [][]float64, logger *internal.Logger) (*VarianceComponents, error) {
	n, k := s.n(), s.k()
	entities := len(s.groups)

	yw := make([]float64, n)
	xw := mat.NewDense(n, k, nil)
	for i, g := range s.group {
		yw[i] = s.y[i] - yBar[g]
		for j := 0; j < k; j++ {
			xw.Set(i, j, s.x[i][j]-xBar[g][j])
		}
	}
	within, err := FitOLS(xw, yw)
	if err != nil {
		return nil, err
	}

	vc := &VarianceComponents{}
	if df := n - entities - k; df > 0 {
		vc.SigmaE2 = within.SSR / float64(df)
	} else {
		logger.Debug("within regression has no residual degrees of freedom; s2e=0")
	}

	if df := entities - k - 1; df > 0 {
		between, err := FitOLS(DesignWithConst(xBar), yBar)
		if err != nil {
			logger.Warn("between regression failed (%v); s2u=0", err)
		} else {
			invT := 0.0
			for _, size := range s.sizes {
				invT += 1 / float64(size)
			}
			tBar := float64(entities) / invT // harmonic mean of group sizes
			sigmaB2 := between.SSR / float64(df)
			vc.SigmaU2 = math.Max(0, sigmaB2-vc.SigmaE2/tBar)
		}
	} else {
		logger.Debug("between regression has no residual degrees of freedom; s2u=0")
	}

	vc.Theta = make([]float64, entities)
	for g, size := range s.sizes {
		denom := float64(size)*vc.SigmaU2 + vc.SigmaE2
		if denom > 0 {
			vc.Theta[g] = 1 - math.Sqrt(vc.SigmaE2/denom)
		}
	}
	return vc, nil
}
