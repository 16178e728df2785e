package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopanel/adapters/excel"
	"gopanel/adapters/summary"
	"gopanel/app"
	"gopanel/domain/panel"
	"gopanel/internal/coercer"
	"gopanel/internal/config"
	"gopanel/internal/describe"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gopanel-cli",
		Short:         "Panel regression and diagnostics on CSV/XLSX files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newDescribeCmd(),
		newColumnsCmd(),
	)
	return rootCmd
}

// loadConfig reads .env and the environment; flags override the result
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	return config.Load()
}

func newAnalyzeCmd() *cobra.Command {
	var (
		entity, timeCol, dependent string
		independents               []string
		reportPath, sheet          string
		alpha                      float64
		asJSON                     bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Fit fixed and random effects models and run the diagnostics",
		Long: `Fit fixed and random effects models on a panel and run the Hausman,
Breusch-Pagan and Wooldridge tests.

Example: gopanel-cli analyze grunfeld.csv --entity firm --time year --y invest --x value,capital --report out.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("alpha") {
				cfg.Analysis.SignificanceLevel = alpha
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if sheet == "" {
				sheet = cfg.Data.ExcelSheet
			}

			table, err := readTable(args[0], sheet)
			if err != nil {
				return err
			}
			sel := panel.Selection{
				Entity: entity,
				Time:   timeCol,
				Model:  panel.ModelSpec{Dependent: dependent, Independents: independents},
			}
			report, err := app.NewAnalysisService(cfg.Analysis).Run(cmd.Context(), table, sel)
			if err != nil {
				return err
			}

			if reportPath != "" {
				if err := excel.NewReportWriter().SaveAs(reportPath, report); err != nil {
					return err
				}
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), summary.Markdown(report))
			return err
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "Entity (cross-section) column")
	cmd.Flags().StringVar(&timeCol, "time", "", "Time column")
	cmd.Flags().StringVar(&dependent, "y", "", "Dependent variable")
	cmd.Flags().StringSliceVar(&independents, "x", nil, "Independent variables, comma separated")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the xlsx report to this path")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to read from an xlsx file (default: first sheet)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "Significance level for interpretations")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	for _, name := range []string{"entity", "time", "y", "x"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newDescribeCmd() *cobra.Command {
	var (
		columns []string
		sheet   string
	)

	cmd := &cobra.Command{
		Use:   "describe [file]",
		Short: "Print descriptive statistics for numeric columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readTable(args[0], sheet)
			if err != nil {
				return err
			}
			if len(columns) == 0 {
				columns = numericColumns(table)
			}
			stats, err := describe.Summarize(table, columns)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to describe (default: all numeric columns)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to read from an xlsx file")
	return cmd
}

func newColumnsCmd() *cobra.Command {
	var sheet string

	cmd := &cobra.Command{
		Use:   "columns [file]",
		Short: "Show inferred column types and suggested panel index columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readTable(args[0], sheet)
			if err != nil {
				return err
			}
			profiles := excel.InferColumnTypes(table, excel.DefaultReaderConfig())
			entity, timeCol := excel.SuggestIndexColumns(profiles)
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"columns":          profiles,
				"suggested_entity": entity,
				"suggested_time":   timeCol,
			})
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to read from an xlsx file")
	return cmd
}

func readTable(path, sheet string) (*panel.RawTable, error) {
	readerConfig := excel.DefaultReaderConfig()
	readerConfig.Sheet = sheet
	return excel.NewDataReader(path, readerConfig).ReadTable()
}

func numericColumns(table *panel.RawTable) []string {
	var names []string
	for _, p := range excel.InferColumnTypes(table, excel.DefaultReaderConfig()) {
		if p.Type == coercer.ValueTypeNumeric {
			names = append(names, p.Name)
		}
	}
	return names
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, strings.TrimSpace(string(data)))
	return err
}
