// Package engine orchestrates full matching runs for host surfaces:
// parse a ledger export, open the pattern store, generate suggestions,
// and assemble a run result for reporting. It also routes feedback
// and pattern maintenance through the store.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iammattholland/transfermatch/internal/features"
	"github.com/iammattholland/transfermatch/internal/matcher"
	"github.com/iammattholland/transfermatch/internal/models"
	"github.com/iammattholland/transfermatch/internal/parsers"
	"github.com/iammattholland/transfermatch/internal/patterns"
	"github.com/iammattholland/transfermatch/pkg/errors"
	"github.com/iammattholland/transfermatch/pkg/logger"
)

// RunSummary provides aggregate statistics about one matching run
type RunSummary struct {
	TotalTransactions int             `json:"total_transactions"`
	EligibleOutflows  int             `json:"eligible_outflows"`
	EligibleInflows   int             `json:"eligible_inflows"`
	SuggestionCount   int             `json:"suggestion_count"`
	HighConfidence    int             `json:"high_confidence"`
	WithPattern       int             `json:"with_pattern"`
	TopScore          float64         `json:"top_score"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	ProcessingTime    time.Duration   `json:"processing_time"`
}

// RunResult is the complete output of one matching run
type RunResult struct {
	Summary     *RunSummary           `json:"summary"`
	Suggestions []*matcher.Suggestion `json:"suggestions"`
	ParseStats  *parsers.ParseStats   `json:"parse_stats,omitempty"`
	GeneratedAt time.Time             `json:"generated_at"`
	ConfigUsed  *matcher.Config       `json:"config_used"`
}

// Orchestrator wires the parser, pattern store, and matching engine
// into the operations the host surfaces call.
type Orchestrator struct {
	parser      *parsers.LedgerParser
	matchConfig *matcher.Config
	store       patterns.Store
	logger      logger.Logger
}

// NewOrchestrator creates an orchestrator. store may be nil to run
// without learned patterns.
func NewOrchestrator(parserConfig *parsers.LedgerParserConfig, matchConfig *matcher.Config, store patterns.Store) (*Orchestrator, error) {
	parser, err := parsers.NewLedgerParser(parserConfig)
	if err != nil {
		return nil, err
	}

	if matchConfig == nil {
		matchConfig = matcher.DefaultConfig()
	}
	if err := matchConfig.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "match_config", matchConfig, err)
	}

	return &Orchestrator{
		parser:      parser,
		matchConfig: matchConfig,
		store:       store,
		logger:      logger.GetGlobalLogger().WithComponent("engine"),
	}, nil
}

// Run parses a ledger export and generates transfer suggestions
// anchored at now.
func (o *Orchestrator) Run(ctx context.Context, ledgerFile string, now time.Time) (*RunResult, error) {
	opLog := logger.NewOperationLogger("matching_run", o.logger).
		WithField("ledger_file", ledgerFile)
	started := time.Now()

	opLog.Step("parse ledger")
	transactions, stats, err := o.parser.ParseLedgerWithContext(ctx, ledgerFile)
	if err != nil {
		opLog.Error(err, "Ledger parsing failed")
		return nil, err
	}

	opLog.Step("generate suggestions")
	engine, err := matcher.NewEngine(o.matchConfig, matcher.SliceSource(transactions), o.store)
	if err != nil {
		opLog.Error(err, "Engine construction failed")
		return nil, errors.MatchingError(errors.CodeInvariant, "engine_construction", err)
	}
	suggestions := engine.Suggest(ctx, now)

	result := &RunResult{
		Summary:     o.summarize(transactions, suggestions, time.Since(started)),
		Suggestions: suggestions,
		ParseStats:  stats,
		GeneratedAt: now,
		ConfigUsed:  o.matchConfig.Clone(),
	}

	opLog.WithField("suggestions", len(suggestions)).Success("Matching run completed")
	return result, nil
}

func (o *Orchestrator) summarize(transactions []*models.Transaction, suggestions []*matcher.Suggestion, elapsed time.Duration) *RunSummary {
	summary := &RunSummary{
		TotalTransactions: len(transactions),
		SuggestionCount:   len(suggestions),
		TotalAmount:       decimal.Zero,
		ProcessingTime:    elapsed,
	}

	for _, tx := range transactions {
		if !tx.EligibleForMatching() {
			continue
		}
		if tx.IsOutflow() {
			summary.EligibleOutflows++
		} else if tx.IsInflow() {
			summary.EligibleInflows++
		}
	}

	for _, s := range suggestions {
		if s.Score >= 0.8 {
			summary.HighConfidence++
		}
		if s.Pattern != nil {
			summary.WithPattern++
		}
		if s.Score > summary.TopScore {
			summary.TopScore = s.Score
		}
		summary.TotalAmount = summary.TotalAmount.Add(s.Amount)
	}

	return summary
}

// RecordFeedback folds one confirm or reject decision into the learned
// pattern for the pair's accounts. The two transactions are looked up
// by ID in the given ledger export.
func (o *Orchestrator) RecordFeedback(ctx context.Context, ledgerFile, outflowID, inflowID string, confirmed, autoDetected bool, now time.Time) (*patterns.TransferPattern, error) {
	if o.store == nil {
		return nil, errors.StorageError(errors.CodeStorageOpen, "record_feedback",
			fmt.Errorf("no pattern store configured"))
	}

	transactions, _, err := o.parser.ParseLedgerWithContext(ctx, ledgerFile)
	if err != nil {
		return nil, err
	}

	outflow := findTransaction(transactions, outflowID)
	inflow := findTransaction(transactions, inflowID)
	if outflow == nil || inflow == nil {
		return nil, errors.ValidationError(
			errors.CodeInvalidData,
			"transaction_ids",
			fmt.Sprintf("%s, %s", outflowID, inflowID),
			fmt.Errorf("transaction not found in ledger export"),
		).WithSuggestion("Check the transaction IDs against the ledger file")
	}

	// Feedback is keyed on the outflow/inflow orientation the matcher
	// uses; swap if the caller passed them reversed.
	if outflow.IsInflow() && inflow.IsOutflow() {
		outflow, inflow = inflow, outflow
	}

	fs := features.Extract(outflow, inflow)
	pattern, err := patterns.RecordFeedback(ctx, o.store, fs.PairKey, fs, confirmed, autoDetected, now)
	if err != nil {
		return nil, err
	}

	o.logger.WithFields(logger.Fields{
		"pair_key":  fs.PairKey,
		"confirmed": confirmed,
	}).Info("Recorded transfer feedback")
	return pattern, nil
}

// CleanupPatterns removes stale or overwhelmingly rejected patterns
// and returns the number deleted.
func (o *Orchestrator) CleanupPatterns(ctx context.Context, now time.Time, maxIdle time.Duration) (int, error) {
	if o.store == nil {
		return 0, errors.StorageError(errors.CodeStorageOpen, "cleanup_patterns",
			fmt.Errorf("no pattern store configured"))
	}
	return patterns.Cleanup(ctx, o.store, now, maxIdle)
}

// ListPatterns returns every learned pattern, ordered by pair key
func (o *Orchestrator) ListPatterns(ctx context.Context) ([]*patterns.TransferPattern, error) {
	if o.store == nil {
		return nil, errors.StorageError(errors.CodeStorageOpen, "list_patterns",
			fmt.Errorf("no pattern store configured"))
	}
	return o.store.List(ctx)
}

func findTransaction(transactions []*models.Transaction, id string) *models.Transaction {
	for _, tx := range transactions {
		if tx.ID == id {
			return tx
		}
	}
	return nil
}
