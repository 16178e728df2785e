// Package summary renders an analysis report as Markdown and HTML.
package summary

import (
	"fmt"
	"math"
	"strings"

	"gopanel/app"
	"gopanel/domain/core"
	"gopanel/domain/panel"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown renders the report as a Markdown document
func Markdown(r *app.AnalysisReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Panel analysis %s\n\n", r.RunID)
	independents := make([]string, len(r.Selection.Model.Independents))
	for i, name := range r.Selection.Model.Independents {
		independents[i] = code(name)
	}
	fmt.Fprintf(&b, "- Dependent: %s\n", code(r.Selection.Model.Dependent))
	fmt.Fprintf(&b, "- Independents: %s\n", strings.Join(independents, ", "))
	fmt.Fprintf(&b, "- Entity: %s, time: %s (%s)\n", code(r.Selection.Entity), code(r.Selection.Time), r.TimeEncoding)
	fmt.Fprintf(&b, "- Significance level: %s\n", num(r.SignificanceLevel))
	fmt.Fprintf(&b, "- Dataset: %s\n\n", core.Hash(r.DatasetHash).Short())

	if len(r.Warnings) > 0 {
		b.WriteString("> **Warnings**\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "> - %s\n", escape(w))
		}
		b.WriteString("\n")
	}

	writeModel(&b, "Fixed effects", r.FixedEffects)
	writeModel(&b, "Random effects", r.RandomEffects)

	b.WriteString("## Specification tests\n\n")
	b.WriteString("| Test | Statistic | P-value | Interpretation |\n|---|---|---|---|\n")
	writeOutcome(&b, "Hausman", r.Hausman, r.Interpret.Hausman)
	if bp := r.BreuschPagan; bp != nil {
		fmt.Fprintf(&b, "| Breusch-Pagan (LM) | %s | %s | %s |\n", num(bp.LM), num(bp.LMPValue), r.Interpret.BreuschPagan)
	} else {
		fmt.Fprintf(&b, "| Breusch-Pagan (LM) | n/a | n/a | %s |\n", r.Interpret.BreuschPagan)
	}
	writeOutcome(&b, "Wooldridge (F)", r.Wooldridge, r.Interpret.Wooldridge)
	b.WriteString("\n")

	notes := outcomeNotes(r)
	if len(notes) > 0 {
		for _, n := range notes {
			fmt.Fprintf(&b, "- %s\n", escape(n))
		}
		b.WriteString("\n")
	}

	if len(r.Descriptive) > 0 {
		b.WriteString("## Descriptive statistics\n\n")
		b.WriteString("| Variable | Count | Mean | Std | Min | 25% | 50% | 75% | Max |\n|---|---|---|---|---|---|---|---|---|\n")
		for _, d := range r.Descriptive {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s | %s | %s |\n",
				escape(d.Column), d.Count, num(d.Mean), num(d.Std), num(d.Min), num(d.Q25), num(d.Median), num(d.Q75), num(d.Max))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders the Markdown summary to an HTML fragment. Raw HTML in the
// Markdown is dropped.
func HTML(r *app.AnalysisReport) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML})
	return markdown.ToHTML([]byte(Markdown(r)), p, renderer)
}

func writeModel(b *strings.Builder, title string, m *app.ModelReport) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if m == nil || m.Fit == nil {
		b.WriteString("Not estimated.\n\n")
		return
	}
	b.WriteString("| Parameter | Estimate | Std. Err. | T-stat | P-value | 95% CI |\n|---|---|---|---|---|---|\n")
	for _, c := range m.Coefficients {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | [%s, %s] |\n",
			escape(c.Name), num(c.Estimate), num(c.StdErr), ptr(c.TStat), ptr(c.PValue), num(c.LowerCI), num(c.UpperCI))
	}
	st := m.Fit.Stats()
	fmt.Fprintf(b, "\nObservations: %d, entities: %d, R-squared: %s\n\n", st.NObs, st.Entities, num(st.RSquared))
}

func writeOutcome(b *strings.Builder, name string, o panel.TestOutcome, interpretation string) {
	fmt.Fprintf(b, "| %s | %s | %s | %s |\n", name, ptr(o.Statistic), ptr(o.PValue), interpretation)
}

func outcomeNotes(r *app.AnalysisReport) []string {
	var notes []string
	if r.Hausman.Reason != "" {
		notes = append(notes, "Hausman: "+r.Hausman.Reason)
	}
	if msg, ok := r.Failures[app.FailureBreuschPagan]; ok {
		notes = append(notes, "Breusch-Pagan: "+msg)
	}
	if r.Wooldridge.Reason != "" {
		notes = append(notes, "Wooldridge: "+r.Wooldridge.Reason)
	}
	return notes
}

// markdownEscaper backslash-escapes Markdown punctuation in user text such
// as column names taken from an uploaded header.
var markdownEscaper = func() *strings.Replacer {
	var pairs []string
	for _, c := range "\\`*_[]<>#|" {
		pairs = append(pairs, string(c), "\\"+string(c))
	}
	return strings.NewReplacer(append(pairs, "\n", " ", "\r", " ")...)
}()

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

// code renders s as an inline code span, or as escaped text when s would
// end the span early.
func code(s string) string {
	if s == "" || strings.ContainsAny(s, "`\r\n") {
		return escape(s)
	}
	return "`" + s + "`"
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", v)
}

func ptr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return num(*v)
}
