package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/iammattholland/transfermatch/cmd/transfermatch/config"
	"github.com/iammattholland/transfermatch/internal/engine"
	"github.com/iammattholland/transfermatch/internal/models"
	"github.com/iammattholland/transfermatch/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the suggest command
var (
	ledgerFile       string
	patternsDB       string
	outputFormat     string
	outputFile       string
	bulkMode         bool
	lookbackDays     int
	maxDaysApart     int
	limit            int
	minScore         float64
	bucketWidthCents int64
	noPatterns       bool
	asOf             string
)

// suggestCmd represents the suggest command
var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Generate transfer pair suggestions from a ledger export",
	Long: `Suggest scans a ledger export CSV for likely transfer pairs and
prints them ranked by confidence.

Examples:
  # Interactive defaults
  transfermatch suggest --ledger-file ledger.csv

  # Right after a large import: wider windows, fee-tolerant buckets
  transfermatch suggest --ledger-file ledger.csv --bulk

  # Machine-readable output with learned patterns
  transfermatch suggest --ledger-file ledger.csv --patterns-db patterns.db \
    --output-format json --output-file suggestions.json`,

	PreRunE: validateSuggestFlags,
	RunE:    runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().StringVarP(&ledgerFile, "ledger-file", "l", "", "path to ledger export CSV file (required)")
	suggestCmd.Flags().StringVarP(&patternsDB, "patterns-db", "p", "", "path to learned pattern database (optional)")

	suggestCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	suggestCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	suggestCmd.Flags().BoolVar(&bulkMode, "bulk", false, "use bulk-import matching preset")
	suggestCmd.Flags().IntVar(&lookbackDays, "lookback-days", 0, "lookback window in days (0 = preset default)")
	suggestCmd.Flags().IntVar(&maxDaysApart, "max-days-apart", 0, "max day distance between pair sides (0 = preset default)")
	suggestCmd.Flags().IntVar(&limit, "limit", 0, "max suggestions returned (0 = preset default)")
	suggestCmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum normalized score (0 = preset default)")
	suggestCmd.Flags().Int64Var(&bucketWidthCents, "bucket-width-cents", 0, "amount bucket width in cents (0 = preset default)")
	suggestCmd.Flags().BoolVar(&noPatterns, "no-patterns", false, "disable learned pattern scoring")
	suggestCmd.Flags().StringVar(&asOf, "as-of", "", "run anchor date YYYY-MM-DD (default: today)")

	suggestCmd.MarkFlagRequired("ledger-file")

	viper.BindPFlag("ledger-file", suggestCmd.Flags().Lookup("ledger-file"))
	viper.BindPFlag("patterns-db", suggestCmd.Flags().Lookup("patterns-db"))
	viper.BindPFlag("output-format", suggestCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", suggestCmd.Flags().Lookup("output-file"))
}

func validateSuggestFlags(cmd *cobra.Command, args []string) error {
	if viper.GetString("ledger-file") != "" {
		ledgerFile = viper.GetString("ledger-file")
	}
	if viper.GetString("patterns-db") != "" {
		patternsDB = viper.GetString("patterns-db")
	}

	if ledgerFile == "" {
		return fmt.Errorf("ledger-file is required")
	}
	if err := validateFileExists(ledgerFile, "ledger file"); err != nil {
		return err
	}

	format := reporter.OutputFormat(outputFormat)
	if !format.IsValid() {
		return fmt.Errorf("invalid output format %q (supported: console, json, csv)", outputFormat)
	}

	if asOf != "" {
		if _, err := models.ParseTimeWithFormats(asOf); err != nil {
			return fmt.Errorf("invalid as-of date %q: %w", asOf, err)
		}
	}
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	matchConfig, err := config.CreateMatchConfig(config.MatchOverrides{
		Bulk:             bulkMode,
		LookbackDays:     lookbackDays,
		MaxDaysApart:     maxDaysApart,
		Limit:            limit,
		MinScore:         minScore,
		BucketWidthCents: bucketWidthCents,
		NoPatterns:       noPatterns,
	})
	if err != nil {
		return err
	}

	store, err := config.OpenPatternStore(patternsDB)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	if store != nil {
		defer store.Close()
	}

	orch, err := engine.NewOrchestrator(config.CreateLedgerParserConfig(), matchConfig, store)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	now := time.Now()
	if asOf != "" {
		now, _ = models.ParseTimeWithFormats(asOf)
	}

	result, err := orch.Run(context.Background(), ledgerFile, now)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	return writeReport(result, outputFormat, outputFile)
}

func writeReport(result *engine.RunResult, format, path string) error {
	reportConfig, err := config.CreateReportConfig(format)
	if err != nil {
		return err
	}

	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return err
	}

	var writer io.Writer = os.Stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file %s: %w", path, err)
		}
		defer file.Close()
		writer = file
	}

	return generator.GenerateReport(result, writer)
}

func validateFileExists(path, description string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s does not exist: %s", description, path)
		}
		return fmt.Errorf("cannot access %s %s: %w", description, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file: %s", description, path)
	}
	return nil
}
