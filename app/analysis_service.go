package app

import (
	"context"
	"fmt"
	"time"

	"gopanel/domain/core"
	"gopanel/domain/panel"
	"gopanel/internal"
	"gopanel/internal/config"
	"gopanel/internal/describe"
	"gopanel/internal/diagnostics"
	"gopanel/internal/estimation"
	"gopanel/internal/plotdata"
	"gopanel/internal/reshape"
)

// Interpretation strings attached to test outcomes
const (
	InterpretFixedPreferred    = "fixed effects preferred"
	InterpretRandomAcceptable  = "random effects acceptable"
	InterpretHeteroskedastic   = "heteroskedasticity present"
	InterpretHomoskedastic     = "no evidence of heteroskedasticity"
	InterpretAutocorrelated    = "first-order autocorrelation present"
	InterpretNoAutocorrelation = "no evidence of first-order autocorrelation"
	InterpretInconclusive      = "inconclusive"
)

// FailureBreuschPagan keys a failed Breusch-Pagan test in AnalysisReport.Failures
const FailureBreuschPagan = "breusch_pagan"

const defaultConfidenceLevel = 0.95

// ModelReport is a fitted model with its derived coefficient table
type ModelReport struct {
	Fit          *panel.FitResult             `json:"fit"`
	Coefficients []diagnostics.CoefficientRow `json:"coefficients"`
}

// Interpretations reads each test at the run's significance level
type Interpretations struct {
	Hausman      string `json:"hausman"`
	BreuschPagan string `json:"breusch_pagan"`
	Wooldridge   string `json:"wooldridge"`
}

// AnalysisReport is the complete output of one run
type AnalysisReport struct {
	RunID             core.RunID         `json:"run_id"`
	DatasetHash       core.DatasetHash   `json:"dataset_hash"`
	StartedAt         core.Timestamp     `json:"started_at"`
	FinishedAt        core.Timestamp     `json:"finished_at"`
	RuntimeMs         int64              `json:"runtime_ms"`
	Stages            []StageTiming      `json:"stages"`
	Selection         panel.Selection    `json:"selection"`
	SignificanceLevel float64            `json:"significance_level"`
	TimeEncoding      panel.TimeEncoding `json:"time_encoding"`
	Warnings          []string           `json:"warnings,omitempty"`

	Descriptive   []describe.Summary        `json:"descriptive"`
	FixedEffects  *ModelReport              `json:"fixed_effects"`
	RandomEffects *ModelReport              `json:"random_effects"`
	Hausman       panel.TestOutcome         `json:"hausman"`
	BreuschPagan  *panel.BreuschPaganResult `json:"breusch_pagan"`
	Wooldridge    panel.TestOutcome         `json:"wooldridge"`
	Interpret     Interpretations           `json:"interpretations"`
	Failures      map[string]string         `json:"failures,omitempty"`
	Plots         *plotdata.Series          `json:"plots,omitempty"`
}

// HeteroskedasticityTester runs a heteroskedasticity test on the raw table
type HeteroskedasticityTester interface {
	Test(table *panel.RawTable, spec panel.ModelSpec) (*panel.BreuschPaganResult, error)
}

// AnalysisService runs the panel pipeline: reshape, describe, estimate both
// models, compare them and run the residual diagnostics
type AnalysisService struct {
	reshaper *reshape.Reshaper
	bp       HeteroskedasticityTester
	cfg      config.AnalysisConfig
	logger   *internal.Logger
}

// NewAnalysisService creates an analysis service. Zero config fields fall
// back to the defaults.
func NewAnalysisService(cfg config.AnalysisConfig) *AnalysisService {
	def := config.Default().Analysis
	if cfg.SignificanceLevel <= 0 || cfg.SignificanceLevel >= 1 {
		cfg.SignificanceLevel = def.SignificanceLevel
	}
	if cfg.HistogramBins <= 0 {
		cfg.HistogramBins = def.HistogramBins
	}
	return &AnalysisService{
		reshaper: reshape.NewReshaper(nil),
		bp:       diagnostics.NewBreuschPaganTester(nil),
		cfg:      cfg,
		logger:   internal.DefaultLogger.WithComponent("AnalysisService"),
	}
}

// Run executes one analysis. The table is cloned before use, so callers may
// keep using it. Selection problems are rejected before any computation;
// estimation failures of either model abort the run.
func (s *AnalysisService) Run(ctx context.Context, table *panel.RawTable, sel panel.Selection) (*AnalysisReport, error) {
	if table == nil {
		return nil, core.NewSelectionError("table", "is nil")
	}
	if err := sel.Validate(table.Has); err != nil {
		return nil, err
	}

	startTime := time.Now()
	data := table.Clone()
	report := &AnalysisReport{
		RunID:             core.NewRunID(),
		DatasetHash:       core.ComputeDatasetHash(data.Headers(), data.Rows()),
		StartedAt:         core.NewTimestamp(startTime),
		Selection:         sel,
		SignificanceLevel: s.cfg.SignificanceLevel,
		Failures:          make(map[string]string),
	}
	s.logger.Info("run %s: %d rows, entity=%s time=%s y=%s x=%v",
		report.RunID, data.Len(), sel.Entity, sel.Time, sel.Model.Dependent, sel.Model.Independents)

	runner := NewStageRunner(s.logger)
	var (
		p      *panel.PanelTable
		fe, re *panel.FitResult
	)

	stages := []struct {
		name string
		fn   func() error
	}{
		{"reshape", func() (err error) {
			p, err = s.reshaper.Reshape(data, sel.Entity, sel.Time)
			if err != nil {
				return err
			}
			report.TimeEncoding = p.Encoding()
			report.Warnings = append(report.Warnings, panelWarnings(p)...)
			return nil
		}},
		{"describe", func() (err error) {
			report.Descriptive, err = describe.Summarize(data, sel.Model.Variables())
			return err
		}},
		{"fixed_effects", func() (err error) {
			fe, err = estimation.FitFixedEffects(p, sel.Model)
			if err != nil {
				return err
			}
			report.FixedEffects = &ModelReport{Fit: fe, Coefficients: diagnostics.CoefficientTable(fe, defaultConfidenceLevel)}
			return nil
		}},
		{"random_effects", func() (err error) {
			re, err = estimation.FitRandomEffects(p, sel.Model)
			if err != nil {
				return err
			}
			report.RandomEffects = &ModelReport{Fit: re, Coefficients: diagnostics.CoefficientTable(re, defaultConfidenceLevel)}
			return nil
		}},
		{"hausman", func() error {
			report.Hausman = diagnostics.Hausman(fe, re)
			return nil
		}},
		{"breusch_pagan", func() error {
			bp, err := s.bp.Test(data, sel.Model)
			if err != nil {
				s.logger.Warn("run %s: breusch-pagan test failed: %v", report.RunID, err)
				report.Failures[FailureBreuschPagan] = err.Error()
				return nil
			}
			report.BreuschPagan = bp
			return nil
		}},
		{"wooldridge", func() error {
			report.Wooldridge = diagnostics.Wooldridge(p, sel.Model)
			return nil
		}},
		{"plots", func() (err error) {
			report.Plots, err = plotdata.Build(p, sel.Model, fe, s.cfg.HistogramBins)
			return err
		}},
	}

	for _, st := range stages {
		if err := runner.Run(ctx, st.name, st.fn); err != nil {
			s.logger.Error("run %s aborted in %s: %v", report.RunID, st.name, err)
			return nil, err
		}
	}

	report.Interpret = s.interpret(report)
	report.Stages = runner.Timings()
	report.FinishedAt = core.Now()
	report.RuntimeMs = time.Since(startTime).Milliseconds()
	if len(report.Failures) == 0 {
		report.Failures = nil
	}

	s.logger.Info("run %s finished in %dms (hausman: %s, breusch-pagan: %s, wooldridge: %s)",
		report.RunID, report.RuntimeMs, report.Interpret.Hausman, report.Interpret.BreuschPagan, report.Interpret.Wooldridge)
	return report, nil
}

func (s *AnalysisService) interpret(r *AnalysisReport) Interpretations {
	alpha := s.cfg.SignificanceLevel
	out := Interpretations{
		Hausman:      InterpretInconclusive,
		BreuschPagan: InterpretInconclusive,
		Wooldridge:   InterpretInconclusive,
	}

	if _, p, ok := r.Hausman.Values(); ok {
		out.Hausman = InterpretRandomAcceptable
		if p < alpha {
			out.Hausman = InterpretFixedPreferred
		}
	}
	if r.BreuschPagan != nil {
		out.BreuschPagan = InterpretHomoskedastic
		if r.BreuschPagan.LMPValue < alpha {
			out.BreuschPagan = InterpretHeteroskedastic
		}
	}
	if _, p, ok := r.Wooldridge.Values(); ok {
		out.Wooldridge = InterpretNoAutocorrelation
		if p < alpha {
			out.Wooldridge = InterpretAutocorrelated
		}
	}
	return out
}

func panelWarnings(p *panel.PanelTable) []string {
	var warnings []string
	if !p.Encoding().PreservesOrder() {
		warnings = append(warnings, fmt.Sprintf(
			"time column %q is neither numeric nor a date; periods are ordered by first appearance", p.TimeName()))
	}
	if dups := reshape.DuplicateKeys(p); dups > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"%d rows repeat an (entity, time) pair; they are kept as separate observations", dups))
	}
	return warnings
}
