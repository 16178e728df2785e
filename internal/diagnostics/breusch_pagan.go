package diagnostics

import (
	"fmt"
	"math"

	"gopanel/domain/core"
	"gopanel/domain/panel"
	"gopanel/internal"
	"gopanel/internal/coercer"
	"gopanel/internal/estimation"
)

// ModelBreuschPagan names the pooled regression behind the test in errors
const ModelBreuschPagan = "breusch-pagan"

// BreuschPagan tests for heteroskedasticity in a pooled OLS of the
// dependent variable on the independents, ignoring the panel structure.
// It uses the studentized (Koenker) form: the squared residuals are
// regressed on the same design and LM = n R^2 of that auxiliary fit.
//
// Unlike the other diagnostics, a failed fit is returned as an error.
func BreuschPagan(table *panel.RawTable, spec panel.ModelSpec) (*panel.BreuschPaganResult, error) {
	return NewBreuschPaganTester(nil).Test(table, spec)
}

// BreuschPaganTester runs the test with a configurable cell coercer
type BreuschPaganTester struct {
	coercer *coercer.TypeCoercer
	logger  *internal.Logger
}

// NewBreuschPaganTester uses the default coercer when c is nil
func NewBreuschPaganTester(c *coercer.TypeCoercer) *BreuschPaganTester {
	if c == nil {
		c = coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	}
	return &BreuschPaganTester{
		coercer: c,
		logger:  internal.DefaultLogger.WithComponent("BreuschPagan"),
	}
}

// Test runs the Breusch-Pagan test on the raw table
func (t *BreuschPaganTester) Test(table *panel.RawTable, spec panel.ModelSpec) (*panel.BreuschPaganResult, error) {
	if err := spec.Validate(table.Has); err != nil {
		return nil, err
	}

	y, xs, err := t.numericColumns(table, spec)
	if err != nil {
		return nil, err
	}

	var yRows []float64
	var xRows [][]float64
	for i := range y {
		if !isFinite(y[i]) {
			continue
		}
		row := make([]float64, len(xs))
		ok := true
		for j := range xs {
			v := xs[j][i]
			if !isFinite(v) {
				ok = false
				break
			}
			row[j] = v
		}
		if ok {
			yRows = append(yRows, y[i])
			xRows = append(xRows, row)
		}
	}

	n, k := len(yRows), len(xs)
	if n <= k+1 {
		return nil, core.NewInsufficientDataError(ModelBreuschPagan, n, k+1)
	}

	design := estimation.DesignWithConst(xRows)
	pooled, err := estimation.FitOLS(design, yRows)
	if err != nil {
		return nil, core.NewFittingError(ModelBreuschPagan, err)
	}

	e2 := make([]float64, n)
	for i, e := range pooled.Resid {
		e2[i] = e * e
	}
	aux, err := estimation.FitOLS(design, e2)
	if err != nil {
		return nil, core.NewFittingError(ModelBreuschPagan, err)
	}

	r2 := math.Min(math.Max(aux.R2, 0), 1)
	if 1-r2 <= 1e-12 {
		return nil, core.NewFittingError(ModelBreuschPagan, fmt.Errorf("auxiliary regression fits the squared residuals exactly"))
	}

	df2 := n - k - 1
	lm := float64(n) * r2
	f := (r2 / float64(k)) / ((1 - r2) / float64(df2))

	t.logger.Debug("n=%d k=%d aux R2=%.6f LM=%.4f F=%.4f", n, k, r2, lm, f)

	return &panel.BreuschPaganResult{
		LM:       lm,
		LMPValue: ChiSquarePValue(lm, k),
		F:        f,
		FPValue:  FTestPValue(f, k, df2),
		DF:       k,
		NObs:     n,
	}, nil
}

func (t *BreuschPaganTester) numericColumns(table *panel.RawTable, spec panel.ModelSpec) ([]float64, [][]float64, error) {
	raw, err := table.Column(spec.Dependent)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", core.ErrColumnNotFound, err)
	}
	y := t.coercer.Floats(raw)

	xs := make([][]float64, len(spec.Independents))
	for j, name := range spec.Independents {
		raw, err := table.Column(name)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", core.ErrColumnNotFound, err)
		}
		xs[j] = t.coercer.Floats(raw)
	}
	return y, xs, nil
}
