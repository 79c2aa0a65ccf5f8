package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vantagelabs/vantage/pkg/extract"
	"github.com/vantagelabs/vantage/pkg/pipeline"
	"github.com/vantagelabs/vantage/pkg/policy"
)

const (
	// Version information
	version = "1.0.0"
)

var (
	dataPath   string
	policyPath string
	metric     string
	orderBy    string
	top        int
	outPath    string
	logLevel   string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vantage",
		Short: "Insight discovery and action drafting engine",
		Long: `Vantage analyzes tabular metric data against a declarative policy,
surfaces ranked insights (threshold breaches, outliers, trend shifts,
seasonality deviations) and drafts the follow-up actions the policy
allows. Drafted actions are never executed; they wait in an approval
queue for a human decision.`,
		Version: version,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full pipeline over a CSV file",
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().StringVar(&dataPath, "data", "", "Path to the CSV data file")
	analyzeCmd.Flags().StringVar(&policyPath, "policy", "", "Path to the policy YAML file")
	analyzeCmd.Flags().StringVar(&metric, "metric", "", "Metric column to analyze")
	analyzeCmd.Flags().StringVar(&orderBy, "order-by", "", "Column to order rows by before analysis")
	analyzeCmd.Flags().IntVar(&top, "top", 10, "Number of insight cards to print")
	analyzeCmd.Flags().StringVar(&outPath, "out", "", "Write the full result as JSON to this path")
	rootCmd.AddCommand(analyzeCmd)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")

	viper.SetEnvPrefix("VANTAGE")
	viper.AutomaticEnv()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if dataPath == "" || policyPath == "" || metric == "" {
		return fmt.Errorf("--data, --policy and --metric are required")
	}

	logger, err := buildLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := readTable(dataPath)
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}

	policyBytes, err := os.ReadFile(policyPath)
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}
	pol, policyDiags, err := policy.Load(policyBytes, logger)
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}

	engine := pipeline.NewEngine(pipeline.DefaultConfig(), logger)
	result, err := engine.Run(ctx, table, pipeline.Selection{Metric: metric, OrderBy: orderBy}, pol)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}
	result.Diagnostics = append(policyDiags, result.Diagnostics...)

	printResult(result)

	if outPath != "" {
		if err := writeJSON(outPath, result); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		fmt.Printf("\nFull result written to %s\n", outPath)
	}
	return nil
}

func buildLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	cfg.Level = level
	return cfg.Build()
}

// readTable parses a CSV file into the extractor's table form. The
// first record is the header; ragged records are allowed, missing
// cells read as empty.
func readTable(path string) (*extract.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("file %s is empty", path)
	}
	return &extract.Table{Header: records[0], Rows: records[1:]}, nil
}

func printResult(result *pipeline.Result) {
	fmt.Printf("Run %s: %d insights, %d drafted actions (%d/%d points present)\n",
		result.RunID, len(result.Insights), len(result.Drafts), result.Present, result.SeriesLen)

	shown := len(result.Insights)
	if top > 0 && shown > top {
		shown = top
	}
	for _, in := range result.Insights[:shown] {
		fmt.Printf("\n#%d %s on %q [%s]\n", in.Rank, in.Kind, in.Metric, in.Band)
		fmt.Printf("   window %d-%d  observed %.4g  expected %.4g\n",
			in.Window.Start, in.Window.End, in.Observed, in.Expected)
		fmt.Printf("   magnitude %.4g  confidence %.2f  score %.4f\n",
			in.Magnitude, in.Confidence, in.Score)
		for _, ev := range in.Evidence {
			fmt.Printf("   evidence: %s\n", ev)
		}
	}

	if len(result.Drafts) > 0 {
		fmt.Printf("\nDrafted actions (awaiting approval):\n")
		for _, d := range result.Drafts {
			fmt.Printf("  [%s] %s -> %s (rule %s)\n", d.Status, d.ActionType, d.Target, d.RuleID)
			fmt.Printf("      %s\n", d.Rationale)
			for name, value := range d.Parameters {
				fmt.Printf("      %s = %s\n", name, value)
			}
		}
	}

	for _, diag := range result.Diagnostics {
		fmt.Printf("\nwarning [%s/%s]: %s\n", diag.Component, diag.Code, diag.Message)
	}
}

func writeJSON(path string, result *pipeline.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
