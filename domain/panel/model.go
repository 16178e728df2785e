package panel

import (
	"encoding/json"
	"fmt"
	"math"

	"gopanel/domain/core"
)

// ConstName is the coefficient name of the intercept
const ConstName = "const"

// ModelSpec names the dependent variable and the ordered regressors
type ModelSpec struct {
	Dependent    string   `json:"dependent"`
	Independents []string `json:"independents"`
}

// Variables returns the dependent followed by the independents
func (s ModelSpec) Variables() []string {
	return append([]string{s.Dependent}, s.Independents...)
}

// Validate checks the variables against the available column names
func (s ModelSpec) Validate(has func(string) bool) error {
	if s.Dependent == "" {
		return core.NewSelectionError("dependent variable", "is empty")
	}
	if len(s.Independents) == 0 {
		return core.NewSelectionError("independent variables", "must name at least one column")
	}
	if !has(s.Dependent) {
		return fmt.Errorf("%w: %q", core.ErrColumnNotFound, s.Dependent)
	}

	seen := make(map[string]bool, len(s.Independents))
	for _, x := range s.Independents {
		if x == s.Dependent {
			return core.NewSelectionError(fmt.Sprintf("independent variable %q", x), "is also the dependent variable")
		}
		if seen[x] {
			return core.NewSelectionError(fmt.Sprintf("independent variable %q", x), "is selected twice")
		}
		seen[x] = true
		if !has(x) {
			return fmt.Errorf("%w: %q", core.ErrColumnNotFound, x)
		}
	}
	return nil
}

// Selection is the full user choice: panel index columns plus the model
type Selection struct {
	Entity string    `json:"entity"`
	Time   string    `json:"time"`
	Model  ModelSpec `json:"model"`
}

// Validate requires entity, time, dependent and independents to be present
// and mutually disjoint.
func (s Selection) Validate(has func(string) bool) error {
	if s.Entity == "" {
		return core.NewSelectionError("entity column", "is empty")
	}
	if s.Time == "" {
		return core.NewSelectionError("time column", "is empty")
	}
	if s.Entity == s.Time {
		return core.NewSelectionError("time column", "must differ from the entity column")
	}
	for _, name := range []string{s.Entity, s.Time} {
		if !has(name) {
			return fmt.Errorf("%w: %q", core.ErrColumnNotFound, name)
		}
	}
	for _, v := range s.Model.Variables() {
		if v == s.Entity || v == s.Time {
			return core.NewSelectionError(fmt.Sprintf("variable %q", v), "is used as a panel index column")
		}
	}
	return s.Model.Validate(has)
}

// FitStats summarizes one estimation
type FitStats struct {
	NObs     int     `json:"nobs"`
	Entities int     `json:"entities"`
	DFResid  int     `json:"df_resid"`
	RSquared float64 `json:"r_squared"`
	// Random-effects variance components; zero for fixed effects.
	SigmaE2  float64 `json:"sigma2_e,omitempty"`
	SigmaU2  float64 `json:"sigma2_u,omitempty"`
	ThetaMin float64 `json:"theta_min,omitempty"`
	ThetaMax float64 `json:"theta_max,omitempty"`
}

// FitInput is what an estimator hands to NewFitResult
type FitInput struct {
	Model      string
	Names      []string
	Params     []float64
	Covariance [][]float64
	Observed   []float64
	Fitted     []float64
	Entities   []string
	Effects    map[string]float64
	Stats      FitStats
}

// FitResult is an immutable estimation result. Accessors return copies.
type FitResult struct {
	model    string
	names    []string
	index    map[string]int
	params   []float64
	cov      [][]float64
	observed []float64
	fitted   []float64
	entities []string
	effects  map[string]float64
	stats    FitStats
}

// NewFitResult checks dimensions and symmetry and takes a private copy
func NewFitResult(in FitInput) (*FitResult, error) {
	k := len(in.Names)
	if len(in.Params) != k {
		return nil, fmt.Errorf("%s: %d parameters for %d names", in.Model, len(in.Params), k)
	}
	if len(in.Covariance) != k {
		return nil, fmt.Errorf("%s: covariance has %d rows, expected %d", in.Model, len(in.Covariance), k)
	}
	index := make(map[string]int, k)
	for i, name := range in.Names {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("%s: duplicate coefficient %q", in.Model, name)
		}
		index[name] = i
	}

	cov := make([][]float64, k)
	for i, row := range in.Covariance {
		if len(row) != k {
			return nil, fmt.Errorf("%s: covariance row %d has %d columns, expected %d", in.Model, i, len(row), k)
		}
		cov[i] = append([]float64(nil), row...)
	}
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			a, b := cov[i][j], cov[j][i]
			if math.Abs(a-b) > 1e-8*math.Max(1, math.Max(math.Abs(a), math.Abs(b))) {
				return nil, fmt.Errorf("%s: covariance is not symmetric at (%d,%d)", in.Model, i, j)
			}
		}
	}

	n := len(in.Observed)
	if len(in.Fitted) != n || len(in.Entities) != n {
		return nil, fmt.Errorf("%s: observed, fitted and entity lengths differ (%d, %d, %d)",
			in.Model, n, len(in.Fitted), len(in.Entities))
	}

	effects := make(map[string]float64, len(in.Effects))
	for e, v := range in.Effects {
		effects[e] = v
	}

	return &FitResult{
		model:    in.Model,
		names:    append([]string(nil), in.Names...),
		index:    index,
		params:   append([]float64(nil), in.Params...),
		cov:      cov,
		observed: append([]float64(nil), in.Observed...),
		fitted:   append([]float64(nil), in.Fitted...),
		entities: append([]string(nil), in.Entities...),
		effects:  effects,
		stats:    in.Stats,
	}, nil
}

func (r *FitResult) Model() string { return r.model }
func (r *FitResult) Names() []string { return append([]string(nil), r.names...) }
func (r *FitResult) Params() []float64 { return append([]float64(nil), r.params...) }
func (r *FitResult) Observed() []float64 { return append([]float64(nil), r.observed...) }
func (r *FitResult) Fitted() []float64 { return append([]float64(nil), r.fitted...) }
func (r *FitResult) Entities() []string { return append([]string(nil), r.entities...) }
func (r *FitResult) Stats() FitStats { return r.stats }

// Coefficient looks up an estimate by name
func (r *FitResult) Coefficient(name string) (float64, bool) {
	i, ok := r.index[name]
	if !ok {
		return 0, false
	}
	return r.params[i], true
}

// CovarianceOf looks up one covariance entry by coefficient names
func (r *FitResult) CovarianceOf(a, b string) (float64, bool) {
	i, okA := r.index[a]
	j, okB := r.index[b]
	if !okA || !okB {
		return 0, false
	}
	return r.cov[i][j], true
}

// Covariance returns a copy of the full coefficient covariance matrix
func (r *FitResult) Covariance() [][]float64 {
	out := make([][]float64, len(r.cov))
	for i, row := range r.cov {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// StdErrors returns sqrt of the covariance diagonal
func (r *FitResult) StdErrors() []float64 {
	se := make([]float64, len(r.cov))
	for i := range r.cov {
		se[i] = math.Sqrt(math.Max(r.cov[i][i], 0))
	}
	return se
}

// Residuals returns observed minus fitted
func (r *FitResult) Residuals() []float64 {
	out := make([]float64, len(r.observed))
	for i := range r.observed {
		out[i] = r.observed[i] - r.fitted[i]
	}
	return out
}

// Effects returns the estimated entity effects (fixed effects only)
func (r *FitResult) Effects() map[string]float64 {
	out := make(map[string]float64, len(r.effects))
	for e, v := range r.effects {
		out[e] = v
	}
	return out
}

type coefficientJSON struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
}

// MarshalJSON exposes the plain structured view reporting layers consume
func (r *FitResult) MarshalJSON() ([]byte, error) {
	se := r.StdErrors()
	coefs := make([]coefficientJSON, len(r.names))
	for i, name := range r.names {
		coefs[i] = coefficientJSON{Name: name, Estimate: r.params[i], StdErr: se[i]}
	}
	return json.Marshal(struct {
		Model        string             `json:"model"`
		Coefficients []coefficientJSON  `json:"coefficients"`
		Covariance   [][]float64        `json:"covariance"`
		Stats        FitStats           `json:"stats"`
		Effects      map[string]float64 `json:"effects,omitempty"`
	}{r.model, coefs, r.cov, r.stats, r.effects})
}

// TestOutcome is a test statistic and p-value that may be absent. Absence
// means the test could not be computed; it is not a p-value of 1.
type TestOutcome struct {
	Statistic *float64 `json:"statistic"`
	PValue    *float64 `json:"p_value"`
	DF1       int      `json:"df1,omitempty"`
	DF2       int      `json:"df2,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// NewOutcome builds a defined outcome
func NewOutcome(statistic, pValue float64, df1, df2 int) TestOutcome {
	return TestOutcome{Statistic: &statistic, PValue: &pValue, DF1: df1, DF2: df2}
}

// Undefined builds an outcome with both fields absent
func Undefined(reason string) TestOutcome {
	return TestOutcome{Reason: reason}
}

// Defined reports whether both the statistic and the p-value are present
func (o TestOutcome) Defined() bool {
	return o.Statistic != nil && o.PValue != nil
}

// Values unpacks a defined outcome
func (o TestOutcome) Values() (statistic, pValue float64, ok bool) {
	if !o.Defined() {
		return 0, 0, false
	}
	return *o.Statistic, *o.PValue, true
}

// BreuschPaganResult holds both variants of the Breusch-Pagan test
type BreuschPaganResult struct {
	LM       float64 `json:"lm"`
	LMPValue float64 `json:"lm_p_value"`
	F        float64 `json:"f"`
	FPValue  float64 `json:"f_p_value"`
	DF       int     `json:"df"`
	NObs     int     `json:"nobs"`
}
