package estimation

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"gopanel/domain/core"
	"gopanel/domain/panel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type obs struct {
	entity string
	time   float64
	y      float64
	x      []float64
}

func buildPanel(t *testing.T, xNames []string, rows []obs) *panel.PanelTable {
	t.Helper()
	keys := make([]panel.PanelIndexKey, len(rows))
	labels := make([]string, len(rows))
	cols := map[string][]float64{"y": make([]float64, len(rows))}
	for _, name := range xNames {
		cols[name] = make([]float64, len(rows))
	}
	for i, r := range rows {
		keys[i] = panel.PanelIndexKey{Entity: r.entity, Time: r.time}
		labels[i] = fmt.Sprint(r.time)
		cols["y"][i] = r.y
		for j, name := range xNames {
			cols[name][i] = r.x[j]
		}
	}
	p, err := panel.NewPanelTable(panel.PanelTableInput{
		EntityName: "id",
		TimeName:   "t",
		Encoding:   panel.TimeNumeric,
		Keys:       keys,
		TimeLabels: labels,
		Names:      append([]string{"y"}, xNames...),
		Columns:    cols,
	})
	require.NoError(t, err)
	return p
}

// y = a_i + 2 x with entity intercepts 1, 5, 3 and differing x means
func exactWithinPanel(t *testing.T) *panel.PanelTable {
	a := map[string]float64{"A": 1, "B": 5, "C": 3}
	xs := map[string][]float64{
		"A": {1, 2, 3},
		"B": {3, 5, 4},
		"C": {0, 1, 2},
	}
	var rows []obs
	for _, e := range []string{"A", "B", "C"} {
		for i, x := range xs[e] {
			rows = append(rows, obs{entity: e, time: float64(i + 1), y: a[e] + 2*x, x: []float64{x}})
		}
	}
	return buildPanel(t, []string{"x"}, rows)
}

func singleEntityPanel(t *testing.T) *panel.PanelTable {
	return buildPanel(t, []string{"x"}, []obs{
		{"A", 1, 1, []float64{1}},
		{"A", 2, 3, []float64{2}},
		{"A", 3, 2, []float64{3}},
	})
}

var spec1 = panel.ModelSpec{Dependent: "y", Independents: []string{"x"}}

func TestFitFixedEffects_RecoversWithinSlope(t *testing.T) {
	res, err := FitFixedEffects(exactWithinPanel(t), spec1)
	require.NoError(t, err)

	assert.Equal(t, []string{"const", "x"}, res.Names())
	slope, ok := res.Coefficient("x")
	require.True(t, ok)
	assert.InDelta(t, 2.0, slope, 1e-9)
	assert.InDelta(t, 1.0, res.Stats().RSquared, 1e-9)
	assert.Equal(t, 3, res.Stats().Entities)
	assert.Equal(t, 9, res.Stats().NObs)
	assert.Equal(t, 5, res.Stats().DFResid)

	// intercept is the average entity effect, effects are deviations from it
	constant, _ := res.Coefficient("const")
	assert.InDelta(t, 3.0, constant, 1e-9)
	effects := res.Effects()
	assert.InDelta(t, -2.0, effects["A"], 1e-9)
	assert.InDelta(t, 2.0, effects["B"], 1e-9)
	assert.InDelta(t, 0.0, effects["C"], 1e-9)
}

func TestFitFixedEffects_ResidualsSumToZero(t *testing.T) {
	rows := []obs{
		{"A", 1, 2.0, []float64{1.0}}, {"A", 2, 2.9, []float64{1.5}}, {"A", 3, 4.4, []float64{2.7}},
		{"B", 1, 7.1, []float64{0.4}}, {"B", 2, 6.2, []float64{1.1}}, {"B", 3, 9.0, []float64{2.2}},
		{"C", 1, 3.3, []float64{3.1}}, {"C", 2, 1.9, []float64{2.0}}, {"C", 3, 5.5, []float64{4.2}},
		{"C", 4, 4.0, []float64{3.3}},
	}
	res, err := FitFixedEffects(buildPanel(t, []string{"x"}, rows), spec1)
	require.NoError(t, err)

	sum := 0.0
	for _, r := range res.Residuals() {
		sum += r
	}
	assert.InDelta(t, 0.0, sum, 1e-9)
	assert.Len(t, res.Fitted(), len(rows))
}

func TestEstimators_SingleEntityMatchesPooledOLS(t *testing.T) {
	want := [][]float64{{2.0 / 3, -0.25}, {-0.25, 0.125}}

	for name, fit := range map[string]func(*panel.PanelTable, panel.ModelSpec) (*panel.FitResult, error){
		ModelFixedEffects:  FitFixedEffects,
		ModelRandomEffects: FitRandomEffects,
	} {
		t.Run(name, func(t *testing.T) {
			res, err := fit(singleEntityPanel(t), spec1)
			require.NoError(t, err)

			params := res.Params()
			assert.InDelta(t, 1.0, params[0], 1e-9)
			assert.InDelta(t, 0.5, params[1], 1e-9)

			cov := res.Covariance()
			for i := range want {
				for j := range want[i] {
					assert.InDelta(t, want[i][j], cov[i][j], 1e-9, "cov[%d][%d]", i, j)
				}
			}
		})
	}
}

func TestRobustCovariance_Scaling(t *testing.T) {
	fit, err := FitOLS(DesignWithConst([][]float64{{1}, {2}, {3}}), []float64{1, 3, 2})
	require.NoError(t, err)

	raw := [][]float64{{2.0 / 3, -0.25}, {-0.25, 0.125}}
	for _, tt := range []struct {
		nobsEff int
		scale   float64
	}{
		{3, 1},
		{2, 1.5},
		{0, 1},
	} {
		cov := fit.RobustCovariance(tt.nobsEff)
		for i := range raw {
			for j := range raw[i] {
				assert.InDelta(t, tt.scale*raw[i][j], cov[i][j], 1e-9, "nobsEff=%d cov[%d][%d]", tt.nobsEff, i, j)
			}
		}
	}
}

func TestFitFixedEffects_CovarianceCountsAbsorbedEffects(t *testing.T) {
	rows := []obs{
		{"A", 1, 1, []float64{1}}, {"A", 2, 3, []float64{2}}, {"A", 3, 2, []float64{3}},
		{"B", 1, 2, []float64{1}}, {"B", 2, 4, []float64{2}}, {"B", 3, 3, []float64{3}},
	}
	res, err := FitFixedEffects(buildPanel(t, []string{"x"}, rows), spec1)
	require.NoError(t, err)

	// two copies of the single-entity sample: n=6, one absorbed effect
	slope, _ := res.Coefficient("x")
	assert.InDelta(t, 0.5, slope, 1e-9)
	cov, ok := res.CovarianceOf("x", "x")
	require.True(t, ok)
	assert.InDelta(t, 0.0625*6.0/5, cov, 1e-9)
}

func TestFitRandomEffects_VarianceComponents(t *testing.T) {
	res, err := FitRandomEffects(singleEntityPanel(t), spec1)
	require.NoError(t, err)

	st := res.Stats()
	assert.InDelta(t, 1.5, st.SigmaE2, 1e-9)
	assert.Equal(t, 0.0, st.SigmaU2)
	assert.Equal(t, 0.0, st.ThetaMax)
	assert.InDelta(t, 0.25, st.RSquared, 1e-9)
}

func TestFitRandomEffects_CollapsesToWithinWhenNoIdiosyncraticVariance(t *testing.T) {
	p := exactWithinPanel(t)

	re, err := FitRandomEffects(p, spec1)
	require.NoError(t, err)
	fe, err := FitFixedEffects(p, spec1)
	require.NoError(t, err)

	reSlope, _ := re.Coefficient("x")
	feSlope, _ := fe.Coefficient("x")
	assert.InDelta(t, feSlope, reSlope, 1e-9)
	assert.Greater(t, re.Stats().SigmaU2, 0.0)
	assert.InDelta(t, 1.0, re.Stats().ThetaMax, 1e-6)
}

func TestFitRandomEffects_GeneralPanel(t *testing.T) {
	rows := []obs{
		{"A", 1, 2.0, []float64{1.0, 0.3}}, {"A", 2, 2.9, []float64{1.5, 0.1}}, {"A", 3, 4.4, []float64{2.7, 0.9}},
		{"B", 1, 7.1, []float64{0.4, 0.2}}, {"B", 2, 6.2, []float64{1.1, 0.8}}, {"B", 3, 9.0, []float64{2.2, 0.5}},
		{"C", 1, 3.3, []float64{3.1, 0.7}}, {"C", 2, 1.9, []float64{2.0, 0.4}}, {"C", 3, 5.5, []float64{4.2, 0.6}},
		{"D", 1, 4.1, []float64{1.2, 0.2}}, {"D", 2, 5.0, []float64{2.4, 0.9}}, {"D", 3, 3.6, []float64{0.8, 0.1}},
	}
	spec := panel.ModelSpec{Dependent: "y", Independents: []string{"x1", "x2"}}
	res, err := FitRandomEffects(buildPanel(t, []string{"x1", "x2"}, rows), spec)
	require.NoError(t, err)

	assert.Len(t, res.Params(), 3)
	st := res.Stats()
	assert.GreaterOrEqual(t, st.SigmaE2, 0.0)
	assert.GreaterOrEqual(t, st.SigmaU2, 0.0)
	assert.GreaterOrEqual(t, st.ThetaMin, 0.0)
	assert.LessOrEqual(t, st.ThetaMax, 1.0)

	cov := res.Covariance()
	for i := range cov {
		assert.GreaterOrEqual(t, cov[i][i], 0.0)
		for j := range cov {
			assert.InDelta(t, cov[i][j], cov[j][i], 1e-12)
		}
	}
}

func TestEstimators_InsufficientData(t *testing.T) {
	fits := map[string]func(*panel.PanelTable, panel.ModelSpec) (*panel.FitResult, error){
		ModelFixedEffects:  FitFixedEffects,
		ModelRandomEffects: FitRandomEffects,
	}

	// k = 1: two usable rows are not enough, three are
	twoRows := buildPanel(t, []string{"x"}, []obs{
		{"A", 1, 1, []float64{1}},
		{"A", 2, 3, []float64{2}},
		{"A", 3, math.NaN(), []float64{3}},
	})

	// k = 2: three usable rows are not enough, four are
	threeRows := []obs{
		{"A", 1, 1, []float64{1, 4}},
		{"A", 2, 3, []float64{2, 1}},
		{"A", 3, 2, []float64{3, 3}},
	}
	fourRows := append(append([]obs(nil), threeRows...), obs{"A", 4, 6, []float64{5, 2}})
	spec2 := panel.ModelSpec{Dependent: "y", Independents: []string{"x1", "x2"}}

	for name, fit := range fits {
		t.Run(name, func(t *testing.T) {
			_, err := fit(twoRows, spec1)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrInsufficientData))
			assert.Contains(t, err.Error(), name)

			res, err := fit(singleEntityPanel(t), spec1)
			require.NoError(t, err)
			assert.Len(t, res.Params(), 2)

			_, err = fit(buildPanel(t, []string{"x1", "x2"}, threeRows), spec2)
			assert.True(t, errors.Is(err, core.ErrInsufficientData))

			res, err = fit(buildPanel(t, []string{"x1", "x2"}, fourRows), spec2)
			require.NoError(t, err)
			assert.Len(t, res.Params(), 3)
		})
	}
}

func TestFitFixedEffects_TimeInvariantRegressorFails(t *testing.T) {
	rows := []obs{
		{"A", 1, 1, []float64{1}}, {"A", 2, 2, []float64{1}},
		{"B", 1, 4, []float64{3}}, {"B", 2, 3, []float64{3}},
	}
	_, err := FitFixedEffects(buildPanel(t, []string{"x"}, rows), spec1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrFittingFailure))
	assert.True(t, core.IsEstimationError(err))
}

func TestEstimators_RejectInvalidSpec(t *testing.T) {
	p := singleEntityPanel(t)

	_, err := FitFixedEffects(p, panel.ModelSpec{Dependent: "y", Independents: []string{"missing"}})
	assert.True(t, errors.Is(err, core.ErrColumnNotFound))

	_, err = FitRandomEffects(p, panel.ModelSpec{Dependent: "y", Independents: []string{"y"}})
	assert.True(t, errors.Is(err, core.ErrInvalidSelection))
}
