package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/iammattholland/transfermatch/cmd/transfermatch/config"
	"github.com/iammattholland/transfermatch/internal/engine"

	"github.com/spf13/cobra"
)

// Flags for the feedback command
var (
	feedbackLedgerFile string
	feedbackPatternsDB string
	outflowID          string
	inflowID           string
	confirmFlag        bool
	rejectFlag         bool
	autoDetected       bool
)

// feedbackCmd represents the feedback command
var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record a confirm or reject decision for a suggested pair",
	Long: `Feedback folds a user's decision about a suggested transfer pair into
the learned pattern for that account pair. Confirmed pairs widen the
pattern's typical ranges and raise its confidence; rejected pairs lower
it and temporarily suppress similar suggestions.

Examples:
  transfermatch feedback --ledger-file ledger.csv --patterns-db patterns.db \
    --outflow tx-1 --inflow tx-2 --confirm
  transfermatch feedback --ledger-file ledger.csv --patterns-db patterns.db \
    --outflow tx-1 --inflow tx-2 --reject`,

	PreRunE: validateFeedbackFlags,
	RunE:    runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)

	feedbackCmd.Flags().StringVarP(&feedbackLedgerFile, "ledger-file", "l", "", "path to ledger export CSV file (required)")
	feedbackCmd.Flags().StringVarP(&feedbackPatternsDB, "patterns-db", "p", "", "path to learned pattern database (required)")
	feedbackCmd.Flags().StringVar(&outflowID, "outflow", "", "outflow transaction ID (required)")
	feedbackCmd.Flags().StringVar(&inflowID, "inflow", "", "inflow transaction ID (required)")
	feedbackCmd.Flags().BoolVar(&confirmFlag, "confirm", false, "the pair is a real transfer")
	feedbackCmd.Flags().BoolVar(&rejectFlag, "reject", false, "the pair is not a transfer")
	feedbackCmd.Flags().BoolVar(&autoDetected, "auto", false, "the pair was auto-detected rather than user-initiated")

	feedbackCmd.MarkFlagRequired("ledger-file")
	feedbackCmd.MarkFlagRequired("patterns-db")
	feedbackCmd.MarkFlagRequired("outflow")
	feedbackCmd.MarkFlagRequired("inflow")
}

func validateFeedbackFlags(cmd *cobra.Command, args []string) error {
	if confirmFlag == rejectFlag {
		return fmt.Errorf("exactly one of --confirm or --reject is required")
	}
	if outflowID == inflowID {
		return fmt.Errorf("outflow and inflow must be different transactions")
	}
	return validateFileExists(feedbackLedgerFile, "ledger file")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	store, err := config.OpenPatternStore(feedbackPatternsDB)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer store.Close()

	orch, err := engine.NewOrchestrator(config.CreateLedgerParserConfig(), nil, store)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	pattern, err := orch.RecordFeedback(context.Background(), feedbackLedgerFile,
		outflowID, inflowID, confirmFlag, autoDetected, time.Now())
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	if pattern == nil {
		fmt.Println("Rejection noted; no learned pattern exists for this account pair yet.")
		return nil
	}

	fmt.Printf("Pattern %s updated: confidence %.3f, %d confirmed, %d rejected\n",
		pattern.PairKey, pattern.Confidence, pattern.SuccessCount, pattern.RejectedCount)
	return nil
}
