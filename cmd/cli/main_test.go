package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writePanelCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("firm,year,x,y\n")
	a := map[string]float64{"A": 1, "B": 5, "C": 3}
	for _, e := range []string{"A", "B", "C"} {
		for i, x := range []float64{1, 2, 4, 3} {
			fmt.Fprintf(&b, "%s,%d,%g,%g\n", e, 2020+i, x, a[e]+2*x)
		}
	}
	path := filepath.Join(t.TempDir(), "panel.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyze(t *testing.T) {
	path := writePanelCSV(t)
	reportPath := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := execute(t, "analyze", path, "--entity", "firm", "--time", "year", "--y", "y", "--x", "x",
		"--report", reportPath, "--alpha", "0.1", "--json")
	require.NoError(t, err)

	var report struct {
		SignificanceLevel float64 `json:"significance_level"`
		FixedEffects      struct {
			Coefficients []struct {
				Name     string  `json:"name"`
				Estimate float64 `json:"estimate"`
			} `json:"coefficients"`
		} `json:"fixed_effects"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 0.1, report.SignificanceLevel)
	require.Len(t, report.FixedEffects.Coefficients, 2)
	assert.InDelta(t, 2, report.FixedEffects.Coefficients[1].Estimate, 1e-9)

	f, err := excelize.OpenFile(reportPath)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err = execute(t, "analyze", path, "--entity", "firm", "--time", "year", "--y", "y", "--x", "x")
	require.NoError(t, err)
	assert.Contains(t, out, "# Panel analysis")
}

func TestAnalyze_Errors(t *testing.T) {
	path := writePanelCSV(t)

	_, err := execute(t, "analyze", path, "--entity", "firm", "--time", "year", "--y", "y")
	assert.Error(t, err)

	_, err = execute(t, "analyze", path, "--entity", "firm", "--time", "year", "--y", "y", "--x", "gdp")
	assert.ErrorContains(t, err, "gdp")

	_, err = execute(t, "analyze", path, "--entity", "firm", "--time", "year", "--y", "y", "--x", "x", "--alpha", "2")
	assert.ErrorContains(t, err, "SIGNIFICANCE_LEVEL")
}

func TestDescribeAndColumns(t *testing.T) {
	path := writePanelCSV(t)

	out, err := execute(t, "describe", path, "--columns", "y")
	require.NoError(t, err)
	var stats []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, "y", stats[0]["column"])
	assert.EqualValues(t, 12, stats[0]["count"])

	out, err = execute(t, "describe", path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Len(t, stats, 3) // year, x, y

	out, err = execute(t, "columns", path)
	require.NoError(t, err)
	var cols struct {
		SuggestedEntity string `json:"suggested_entity"`
		SuggestedTime   string `json:"suggested_time"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &cols))
	assert.Equal(t, "firm", cols.SuggestedEntity)
	assert.Equal(t, "year", cols.SuggestedTime)
}
