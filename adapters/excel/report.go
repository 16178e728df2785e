package excel

import (
	"fmt"
	"io"
	"log"
	"math"

	"gopanel/app"
	"gopanel/domain/panel"

	"github.com/xuri/excelize/v2"
)

// Report sheet names, in workbook order
const (
	SheetFixedEffects  = "Fixed Effects"
	SheetRandomEffects = "Random Effects"
	SheetHausman       = "Hausman Test"
	SheetBreuschPagan  = "Breusch-Pagan Test"
	SheetWooldridge    = "Wooldridge Test"
	SheetDescriptive   = "Descriptive Statistics"
)

// ReportSheets lists the sheets every report workbook has
var ReportSheets = []string{
	SheetFixedEffects, SheetRandomEffects, SheetHausman,
	SheetBreuschPagan, SheetWooldridge, SheetDescriptive,
}

var coefficientHeader = []interface{}{"Parameter", "Estimate", "Std. Err.", "T-stat", "P-value", "Lower CI", "Upper CI"}

// ReportWriter exports an analysis report as an xlsx workbook
type ReportWriter struct{}

// NewReportWriter creates a report writer
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// WriteTo streams the workbook to w
func (w *ReportWriter) WriteTo(dst io.Writer, report *app.AnalysisReport) error {
	f, err := w.build(report)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(dst); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// SaveAs writes the workbook to path
func (w *ReportWriter) SaveAs(path string, report *app.AnalysisReport) error {
	f, err := w.build(report)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report to %s: %w", path, err)
	}
	log.Printf("[ReportWriter] report %s saved to %s", report.RunID, path)
	return nil
}

func (w *ReportWriter) build(report *app.AnalysisReport) (*excelize.File, error) {
	if report == nil {
		return nil, fmt.Errorf("no report to export")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), ReportSheets[0]); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range ReportSheets[1:] {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	s := &sheetWriter{f: f, bold: bold}

	s.model(SheetFixedEffects, report.FixedEffects, false)
	s.model(SheetRandomEffects, report.RandomEffects, true)
	s.outcome(SheetHausman, report.Hausman, "Chi-square statistic", report.Interpret.Hausman)
	s.breuschPagan(report)
	s.outcome(SheetWooldridge, report.Wooldridge, "F statistic", report.Interpret.Wooldridge)
	s.descriptive(report)

	if s.err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to build report: %w", s.err)
	}
	f.SetActiveSheet(0)
	return f, nil
}

// sheetWriter keeps the first error so sheet builders stay linear
type sheetWriter struct {
	f    *excelize.File
	bold int
	err  error
}

func (s *sheetWriter) row(sheet string, row int, values ...interface{}) {
	if s.err != nil {
		return
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = cellValue(v)
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetSheetRow(sheet, cell, &cells)
}

func (s *sheetWriter) header(sheet string, row int, values ...interface{}) {
	s.row(sheet, row, values...)
	if s.err != nil {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(values), row)
	s.err = s.f.SetCellStyle(sheet, first, last, s.bold)
}

func (s *sheetWriter) model(sheet string, m *app.ModelReport, random bool) {
	if m == nil || m.Fit == nil {
		s.row(sheet, 1, "Model was not estimated")
		return
	}

	s.header(sheet, 1, coefficientHeader...)
	row := 2
	for _, c := range m.Coefficients {
		s.row(sheet, row, c.Name, c.Estimate, c.StdErr, optional(c.TStat), optional(c.PValue), c.LowerCI, c.UpperCI)
		row++
	}

	st := m.Fit.Stats()
	row++
	s.header(sheet, row, "Statistic", "Value")
	stats := [][]interface{}{
		{"Observations", st.NObs},
		{"Entities", st.Entities},
		{"Residual DF", st.DFResid},
	}
	if random {
		stats = append(stats,
			[]interface{}{"R-squared (overall)", st.RSquared},
			[]interface{}{"Sigma2 idiosyncratic", st.SigmaE2},
			[]interface{}{"Sigma2 entity", st.SigmaU2},
			[]interface{}{"Theta min", st.ThetaMin},
			[]interface{}{"Theta max", st.ThetaMax},
		)
	} else {
		stats = append(stats, []interface{}{"R-squared (within)", st.RSquared})
	}
	for _, kv := range stats {
		row++
		s.row(sheet, row, kv...)
	}
}

func (s *sheetWriter) outcome(sheet string, o panel.TestOutcome, label, interpretation string) {
	s.header(sheet, 1, "Statistic", "Value")
	s.row(sheet, 2, label, optional(o.Statistic))
	s.row(sheet, 3, "P-value", optional(o.PValue))
	s.row(sheet, 4, "DF", o.DF1)
	next := 5
	if o.DF2 > 0 {
		s.row(sheet, next, "DF (denominator)", o.DF2)
		next++
	}
	s.row(sheet, next, "Interpretation", interpretation)
	if o.Reason != "" {
		s.row(sheet, next+1, "Note", o.Reason)
	}
}

func (s *sheetWriter) breuschPagan(report *app.AnalysisReport) {
	sheet := SheetBreuschPagan
	s.header(sheet, 1, "Statistic", "Value")
	bp := report.BreuschPagan
	if bp == nil {
		s.row(sheet, 2, "Error", report.Failures[app.FailureBreuschPagan])
		s.row(sheet, 3, "Interpretation", report.Interpret.BreuschPagan)
		return
	}
	s.row(sheet, 2, "LM statistic", bp.LM)
	s.row(sheet, 3, "LM p-value", bp.LMPValue)
	s.row(sheet, 4, "F statistic", bp.F)
	s.row(sheet, 5, "F p-value", bp.FPValue)
	s.row(sheet, 6, "DF", bp.DF)
	s.row(sheet, 7, "Observations", bp.NObs)
	s.row(sheet, 8, "Interpretation", report.Interpret.BreuschPagan)
}

func (s *sheetWriter) descriptive(report *app.AnalysisReport) {
	sheet := SheetDescriptive
	s.header(sheet, 1, "Variable", "Count", "Mean", "Std", "Min", "25%", "50%", "75%", "Max")
	for i, d := range report.Descriptive {
		s.row(sheet, i+2, d.Column, d.Count, d.Mean, d.Std, d.Min, d.Q25, d.Median, d.Q75, d.Max)
	}
}

// cellValue leaves non-finite numbers as empty cells
func cellValue(v interface{}) interface{} {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

func optional(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
