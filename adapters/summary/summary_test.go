package summary

import (
	"context"
	"fmt"
	"math"
	"testing"

	"gopanel/app"
	"gopanel/domain/panel"
	"gopanel/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioReport(t *testing.T) *app.AnalysisReport {
	t.Helper()
	return namedScenarioReport(t, "x", "y")
}

func namedScenarioReport(t *testing.T, xName, yName string) *app.AnalysisReport {
	t.Helper()
	var rows [][]string
	a := map[string]float64{"A": 1, "B": 5, "C": 3}
	for _, e := range []string{"A", "B", "C"} {
		for i, x := range []float64{1, 2, 4, 3} {
			rows = append(rows, []string{e, fmt.Sprint(2020 + i), fmt.Sprint(x), fmt.Sprint(a[e] + 2*x)})
		}
	}
	table, err := panel.NewRawTable([]string{"id", "year", xName, yName}, rows)
	require.NoError(t, err)

	report, err := app.NewAnalysisService(config.AnalysisConfig{}).Run(context.Background(), table, panel.Selection{
		Entity: "id",
		Time:   "year",
		Model:  panel.ModelSpec{Dependent: yName, Independents: []string{xName}},
	})
	require.NoError(t, err)
	return report
}

func TestMarkdown(t *testing.T) {
	report := scenarioReport(t)
	md := Markdown(report)

	assert.Contains(t, md, "# Panel analysis "+report.RunID.String())
	assert.Contains(t, md, "- Dependent: `y`")
	assert.Contains(t, md, "## Fixed effects")
	assert.Contains(t, md, "## Random effects")
	assert.Contains(t, md, "| x | 2 |")
	// undefined Wooldridge statistic
	assert.Contains(t, md, "| Wooldridge (F) | n/a | n/a | "+app.InterpretInconclusive+" |")
	assert.Contains(t, md, "- Wooldridge: ")
	assert.Contains(t, md, "## Descriptive statistics")
	assert.NotContains(t, md, "NaN")
}

func TestMarkdown_FailedBreuschPagan(t *testing.T) {
	report := scenarioReport(t)
	report.BreuschPagan = nil
	report.Failures = map[string]string{app.FailureBreuschPagan: "model fitting failed"}
	report.RandomEffects = nil

	md := Markdown(report)
	assert.Contains(t, md, "| Breusch-Pagan (LM) | n/a | n/a |")
	assert.Contains(t, md, "- Breusch-Pagan: model fitting failed")
	assert.Contains(t, md, "## Random effects\n\nNot estimated.")
}

func TestHTML(t *testing.T) {
	out := string(HTML(scenarioReport(t)))
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<code>y</code>")
}

func TestHTML_EscapesUserText(t *testing.T) {
	const xName = "<img src=x onerror=alert(1)>"
	report := namedScenarioReport(t, xName, "a|b")
	report.Warnings = append(report.Warnings, "<script>alert(2)</script>")

	md := Markdown(report)
	assert.Contains(t, md, "| a\\|b | 12 |")
	assert.Contains(t, md, "| \\<img src=x onerror=alert(1)\\> | 2 |")

	out := string(HTML(report))
	assert.NotContains(t, out, "<img")
	assert.NotContains(t, out, "<script")
	assert.Contains(t, out, "&lt;img src=x onerror=alert(1)&gt;")
	assert.Contains(t, out, "<td>a|b</td>")
}

func TestEscapeAndCode(t *testing.T) {
	assert.Equal(t, "log\\_gdp", escape("log_gdp"))
	assert.Equal(t, "a b", escape("a\nb"))
	assert.Equal(t, "`gdp`", code("gdp"))
	assert.Equal(t, "a\\`b", code("a`b"))
}

func TestNum(t *testing.T) {
	assert.Equal(t, "n/a", num(math.NaN()))
	assert.Equal(t, "n/a", num(math.Inf(1)))
	assert.Equal(t, "0.05", num(0.05))
	assert.Equal(t, "n/a", ptr(nil))
}
