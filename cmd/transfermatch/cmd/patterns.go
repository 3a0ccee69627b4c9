package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/iammattholland/transfermatch/cmd/transfermatch/config"
	"github.com/iammattholland/transfermatch/internal/engine"
	"github.com/iammattholland/transfermatch/internal/reporter"

	"github.com/spf13/cobra"
)

// Flags for the patterns commands
var (
	patternsDBPath string
	maxIdleDays    int
)

// patternsCmd groups pattern maintenance subcommands
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect and maintain learned transfer patterns",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learned patterns",
	RunE:  runPatternsList,
}

var patternsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete stale or overwhelmingly rejected patterns",
	Long: `Cleanup deletes patterns that are both idle past the maximum idle
window and not yet reliable, and patterns whose rejections overwhelm
their confirmations. Reliable, recently used patterns are never
touched.`,
	RunE: runPatternsCleanup,
}

func init() {
	rootCmd.AddCommand(patternsCmd)
	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsCleanupCmd)

	patternsCmd.PersistentFlags().StringVarP(&patternsDBPath, "patterns-db", "p", "", "path to learned pattern database (required)")
	patternsCmd.MarkPersistentFlagRequired("patterns-db")

	patternsCleanupCmd.Flags().IntVar(&maxIdleDays, "max-idle-days", 90, "delete unreliable patterns idle longer than this many days")
}

func newPatternsOrchestrator(handler *CLIErrorHandler) *engine.Orchestrator {
	store, err := config.OpenPatternStore(patternsDBPath)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	orch, err := engine.NewOrchestrator(config.CreateLedgerParserConfig(), nil, store)
	if err != nil {
		store.Close()
		os.Exit(handler.HandleError(err))
	}
	return orch
}

func runPatternsList(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	orch := newPatternsOrchestrator(handler)

	list, err := orch.ListPatterns(context.Background())
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	generator, err := reporter.NewReportGenerator(nil)
	if err != nil {
		return err
	}
	return generator.GeneratePatternReport(list, os.Stdout)
}

func runPatternsCleanup(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	orch := newPatternsOrchestrator(handler)

	maxIdle := time.Duration(maxIdleDays) * 24 * time.Hour
	removed, err := orch.CleanupPatterns(context.Background(), time.Now(), maxIdle)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	fmt.Printf("Removed %d pattern(s)\n", removed)
	return nil
}
