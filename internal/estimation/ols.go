// Package estimation fits linear panel models: entity fixed effects
// (within) and Swamy-Arora random effects (feasible GLS).
package estimation

import (
	"fmt"
	"math"

	"gopanel/domain/core"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// OLSFit is a least-squares solution of y = X b
type OLSFit struct {
	Beta   []float64
	Fitted []float64
	Resid  []float64
	SSR    float64
	// R2 is the centered R-squared; zero when y has no variation.
	R2 float64

	x      *mat.Dense
	xtxInv *mat.Dense
}

// FitOLS solves the normal equations. A singular or ill-conditioned X'X is
// reported as ErrSingularMatrix; there is no pseudo-inverse fallback.
func FitOLS(x *mat.Dense, y []float64) (*OLSFit, error) {
	n, k := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("design has %d rows but response has %d", n, len(y))
	}
	if n < k {
		return nil, fmt.Errorf("%w: %d rows for %d regressors", core.ErrSingularMatrix, n, k)
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("%w: X'X: %v", core.ErrSingularMatrix, err)
	}

	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	var xty mat.VecDense
	xty.MulVec(x.T(), yv)

	var beta mat.VecDense
	beta.MulVec(&xtxInv, &xty)

	var fittedV mat.VecDense
	fittedV.MulVec(x, &beta)

	fit := &OLSFit{
		Beta:   make([]float64, k),
		Fitted: make([]float64, n),
		Resid:  make([]float64, n),
		x:      x,
		xtxInv: &xtxInv,
	}
	for j := 0; j < k; j++ {
		fit.Beta[j] = beta.AtVec(j)
		if math.IsNaN(fit.Beta[j]) || math.IsInf(fit.Beta[j], 0) {
			return nil, fmt.Errorf("%w: non-finite coefficient", core.ErrSingularMatrix)
		}
	}
	for i := 0; i < n; i++ {
		fit.Fitted[i] = fittedV.AtVec(i)
		fit.Resid[i] = y[i] - fit.Fitted[i]
		fit.SSR += fit.Resid[i] * fit.Resid[i]
	}
	fit.R2 = centeredR2(y, fit.SSR)

	return fit, nil
}

// RobustCovariance is the heteroskedasticity-consistent sandwich
// (X'X)^-1 X' diag(e^2) X (X'X)^-1 scaled by n/nobsEff, where nobsEff is
// the observation count less any absorbed effects. Unscaled when nobsEff
// is not positive.
func (f *OLSFit) RobustCovariance(nobsEff int) [][]float64 {
	n, k := f.x.Dims()

	meat := mat.NewDense(k, k, nil)
	for i := 0; i < n; i++ {
		e2 := f.Resid[i] * f.Resid[i]
		if e2 == 0 {
			continue
		}
		row := f.x.RawRowView(i)
		for a := 0; a < k; a++ {
			for b := 0; b < k; b++ {
				meat.Set(a, b, meat.At(a, b)+e2*row[a]*row[b])
			}
		}
	}

	var tmp, sandwich mat.Dense
	tmp.Mul(f.xtxInv, meat)
	sandwich.Mul(&tmp, f.xtxInv)

	scale := 1.0
	if nobsEff > 0 {
		scale = float64(n) / float64(nobsEff)
	}

	cov := make([][]float64, k)
	for a := 0; a < k; a++ {
		cov[a] = make([]float64, k)
		for b := 0; b < k; b++ {
			cov[a][b] = scale * (sandwich.At(a, b) + sandwich.At(b, a)) / 2
		}
	}
	return cov
}

// centeredR2 returns 1 - SSR/SST, or zero when SST is zero
func centeredR2(y []float64, ssr float64) float64 {
	sst := SST(y)
	if sst == 0 {
		return 0
	}
	return 1 - ssr/sst
}

// SST returns the total sum of squares around the mean
func SST(y []float64) float64 {
	mean := stat.Mean(y, nil)
	sst := 0.0
	for _, v := range y {
		d := v - mean
		sst += d * d
	}
	return sst
}

// DesignWithConst builds [1, x] from row-major regressor values. rows must
// not be empty.
func DesignWithConst(rows [][]float64) *mat.Dense {
	k := len(rows[0])
	x := mat.NewDense(len(rows), k+1, nil)
	for i, row := range rows {
		x.Set(i, 0, 1)
		for j, v := range row {
			x.Set(i, j+1, v)
		}
	}
	return x
}
