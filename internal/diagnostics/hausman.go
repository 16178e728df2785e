package diagnostics

import (
	"fmt"
	"math"

	"gopanel/domain/panel"

	"gonum.org/v1/gonum/mat"
)

// Hausman compares fixed- and random-effects estimates over the
// coefficients both fits share. Under the null both are consistent and RE
// is efficient, so H = d' (V_fe - V_re)^-1 d is chi-square with |common| df.
//
// A singular or ill-conditioned difference matrix yields an undefined
// outcome. A negative statistic (indefinite difference matrix) is reported
// with p = 1.
func Hausman(fe, re *panel.FitResult) panel.TestOutcome {
	if fe == nil || re == nil {
		return panel.Undefined("both fixed- and random-effects fits are required")
	}

	var common []string
	for _, name := range fe.Names() {
		if _, ok := re.Coefficient(name); ok {
			common = append(common, name)
		}
	}
	k := len(common)
	if k == 0 {
		return panel.Undefined("the models share no coefficients")
	}

	d := mat.NewVecDense(k, nil)
	v := mat.NewDense(k, k, nil)
	for i, a := range common {
		bFE, _ := fe.Coefficient(a)
		bRE, _ := re.Coefficient(a)
		d.SetVec(i, bFE-bRE)
		for j, b := range common {
			cFE, _ := fe.CovarianceOf(a, b)
			cRE, _ := re.CovarianceOf(a, b)
			v.Set(i, j, cFE-cRE)
		}
	}

	var vInv mat.Dense
	if err := vInv.Inverse(v); err != nil {
		return panel.Undefined(fmt.Sprintf("covariance difference is not invertible: %v", err))
	}

	var vd mat.VecDense
	vd.MulVec(&vInv, d)
	h := mat.Dot(d, &vd)
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return panel.Undefined("statistic is not finite")
	}

	if h < 0 {
		out := panel.NewOutcome(h, 1, k, 0)
		out.Reason = "negative statistic: covariance difference is not positive definite"
		return out
	}
	return panel.NewOutcome(h, ChiSquarePValue(h, k), k, 0)
}
