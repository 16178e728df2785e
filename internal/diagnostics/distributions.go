// Package diagnostics holds the specification tests run on fitted panel
// models: Hausman, Breusch-Pagan and the Wooldridge serial-correlation test.
package diagnostics

import (
	"math"

	"gopanel/domain/panel"

	"gonum.org/v1/gonum/stat/distuv"
)

// ChiSquarePValue is the upper tail of a chi-square distribution
func ChiSquarePValue(chiSquare float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}

	chiDist := distuv.ChiSquared{K: float64(degreesOfFreedom)}
	return 1 - chiDist.CDF(chiSquare)
}

// FTestPValue is the upper tail of an F distribution
func FTestPValue(fStatistic float64, df1, df2 int) float64 {
	if df1 <= 0 || df2 <= 0 {
		return 1.0
	}

	fDist := distuv.F{D1: float64(df1), D2: float64(df2)}
	return 1 - fDist.CDF(fStatistic)
}

// TTestPValue is the two-sided p-value of a t statistic
func TTestPValue(tStatistic float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(degreesOfFreedom)}
	return 2 * (1 - tDist.CDF(math.Abs(tStatistic)))
}

// TCritical is the two-sided critical value at the given confidence level.
// Without degrees of freedom the normal quantile is used.
func TCritical(confidence float64, degreesOfFreedom int) float64 {
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	q := 1 - (1-confidence)/2
	if degreesOfFreedom <= 0 {
		return distuv.UnitNormal.Quantile(q)
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(degreesOfFreedom)}
	return tDist.Quantile(q)
}

// CoefficientRow is one line of a regression table
type CoefficientRow struct {
	Name     string   `json:"name"`
	Estimate float64  `json:"estimate"`
	StdErr   float64  `json:"std_err"`
	TStat    *float64 `json:"t_stat"`
	PValue   *float64 `json:"p_value"`
	LowerCI  float64  `json:"lower_ci"`
	UpperCI  float64  `json:"upper_ci"`
}

// CoefficientTable derives t statistics, two-sided p-values and confidence
// intervals from a fit using Student t with the fit's residual df. A zero
// standard error leaves TStat and PValue absent.
func CoefficientTable(fit *panel.FitResult, confidence float64) []CoefficientRow {
	names := fit.Names()
	params := fit.Params()
	se := fit.StdErrors()
	df := fit.Stats().DFResid
	crit := TCritical(confidence, df)

	rows := make([]CoefficientRow, len(names))
	for i, name := range names {
		row := CoefficientRow{
			Name:     name,
			Estimate: params[i],
			StdErr:   se[i],
			LowerCI:  params[i] - crit*se[i],
			UpperCI:  params[i] + crit*se[i],
		}
		if se[i] > 0 {
			t := params[i] / se[i]
			p := TTestPValue(t, df)
			row.TStat, row.PValue = &t, &p
		}
		rows[i] = row
	}
	return rows
}
