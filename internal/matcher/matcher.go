package matcher

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iammattholland/transfermatch/internal/features"
	"github.com/iammattholland/transfermatch/internal/models"
	"github.com/iammattholland/transfermatch/internal/patterns"
	"github.com/iammattholland/transfermatch/internal/scoring"
	"github.com/iammattholland/transfermatch/pkg/logger"
)

// TransactionSource supplies eligible transactions for a matching run.
// Implementations fetch every transaction dated at or after since.
type TransactionSource interface {
	FetchEligible(ctx context.Context, since time.Time) ([]*models.Transaction, error)
}

// SliceSource adapts an in-memory transaction snapshot to the
// TransactionSource interface.
type SliceSource []*models.Transaction

// FetchEligible returns the snapshot's transactions dated at or after since.
func (s SliceSource) FetchEligible(_ context.Context, since time.Time) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, tx := range s {
		if !tx.Date.Before(since) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Suggestion is one proposed transfer pair with its normalized score.
type Suggestion struct {
	// OutflowID identifies the negative side of the pair
	OutflowID string `json:"outflow_id"`

	// InflowID identifies the positive side of the pair
	InflowID string `json:"inflow_id"`

	// PairKey is the unordered transaction pair key
	PairKey string `json:"pair_key"`

	// AccountPairKey is the unordered account pair key
	AccountPairKey string `json:"account_pair_key"`

	// Amount is the absolute amount of the outflow side
	Amount decimal.Decimal `json:"amount"`

	// Score is the normalized match score in [0, 1]
	Score float64 `json:"score"`

	// DaysApart is the whole-day distance between the two dates
	DaysApart int `json:"days_apart"`

	// AmountMatch classifies how closely the two amounts agree
	AmountMatch features.AmountMatchKind `json:"amount_match"`

	// Pattern is the learned pattern consulted for this account pair,
	// nil when none existed or pattern use was disabled
	Pattern *patterns.TransferPattern `json:"pattern,omitempty"`
}

// Engine generates transfer suggestions for a transaction source.
// Engines are stateless between runs; suggestions depend only on the
// source contents, the pattern store, the configuration, and the run
// anchor time.
type Engine struct {
	config *Config
	model  *scoring.Model
	source TransactionSource
	store  patterns.Store
	logger logger.Logger
}

// NewEngine creates a matching engine. store may be nil, which
// disables learned-pattern lookups regardless of configuration.
func NewEngine(config *Config, source TransactionSource, store patterns.Store) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	model, err := scoring.NewModel(config.Weights)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config: config,
		model:  model,
		source: source,
		store:  store,
		logger: logger.GetGlobalLogger().WithComponent("matcher"),
	}, nil
}

// Suggest runs the matching pipeline anchored at now and returns at
// most Limit suggestions, ordered by score descending with day
// distance, amount, and pair key as tie-breakers.
//
// Suggest never fails: a source error is logged and yields an empty
// list, and pattern store errors degrade to scoring without patterns.
func (e *Engine) Suggest(ctx context.Context, now time.Time) []*Suggestion {
	since := e.config.LookbackWindow(now)

	transactions, err := e.source.FetchEligible(ctx, since)
	if err != nil {
		e.logger.WithError(err).Warn("Transaction fetch failed, returning no suggestions")
		return []*Suggestion{}
	}

	outflows, index := e.partition(transactions, since)
	e.logger.WithFields(logger.Fields{
		"fetched":  len(transactions),
		"outflows": len(outflows),
	}).Debug("Partitioned eligible transactions")

	patternCache := make(map[string]*patterns.TransferPattern)
	seen := make(map[string]int)
	var suggestions []*Suggestion

	for _, outflow := range outflows {
		for _, inflow := range index.candidates(outflow.AmountCents()) {
			s := e.scorePair(ctx, outflow, inflow, now, patternCache)
			if s == nil {
				continue
			}

			// Deduplicate by unordered pair key, keeping the stronger score.
			if i, ok := seen[s.PairKey]; ok {
				if s.Score > suggestions[i].Score {
					suggestions[i] = s
				}
				continue
			}
			seen[s.PairKey] = len(suggestions)
			suggestions = append(suggestions, s)
		}
	}

	sortSuggestions(suggestions)
	if len(suggestions) > e.config.Limit {
		suggestions = suggestions[:e.config.Limit]
	}

	e.logger.WithField("suggestions", len(suggestions)).Debug("Matching run complete")
	return suggestions
}

// partition splits eligible transactions into outflows and an
// amount-bucketed inflow index. Outflows are sorted by ID so runs over
// the same snapshot are deterministic regardless of source order.
func (e *Engine) partition(transactions []*models.Transaction, since time.Time) ([]*models.Transaction, *amountIndex) {
	var outflows []*models.Transaction
	index := newAmountIndex(e.config.BucketWidthCents)

	for _, tx := range transactions {
		if tx == nil || !tx.EligibleForMatching() || tx.Date.Before(since) {
			continue
		}
		switch {
		case tx.IsOutflow():
			outflows = append(outflows, tx)
		case tx.IsInflow():
			index.add(tx)
		}
	}

	sort.Slice(outflows, func(i, j int) bool {
		return outflows[i].ID < outflows[j].ID
	})
	return outflows, index
}

// scorePair evaluates one outflow/inflow candidate, returning nil when
// the pair is structurally invalid or scores below the threshold.
func (e *Engine) scorePair(ctx context.Context, outflow, inflow *models.Transaction, now time.Time, cache map[string]*patterns.TransferPattern) *Suggestion {
	if outflow.AccountID == inflow.AccountID {
		return nil
	}

	hours := math.Abs(outflow.Date.Sub(inflow.Date).Hours())
	if hours > float64(e.config.MaxDaysApart)*24 {
		return nil
	}

	fs := features.Extract(outflow, inflow)
	if fs.AmountMatch == features.AmountDifferent {
		return nil
	}

	pattern := e.lookupPattern(ctx, fs.PairKey, cache)
	score := scoring.Normalize(e.model.Score(fs, pattern, now))
	if score < e.config.MinScore {
		return nil
	}

	return &Suggestion{
		OutflowID:      outflow.ID,
		InflowID:       inflow.ID,
		PairKey:        models.TransactionPairKey(outflow.ID, inflow.ID),
		AccountPairKey: fs.PairKey,
		Amount:         outflow.AbsAmount(),
		Score:          score,
		DaysApart:      int(math.Round(hours / 24)),
		AmountMatch:    fs.AmountMatch,
		Pattern:        pattern,
	}
}

// lookupPattern fetches the learned pattern for an account pair,
// memoizing per run. Store failures degrade to no pattern.
func (e *Engine) lookupPattern(ctx context.Context, pairKey string, cache map[string]*patterns.TransferPattern) *patterns.TransferPattern {
	if !e.config.UseLearnedPatterns || e.store == nil {
		return nil
	}
	if p, ok := cache[pairKey]; ok {
		return p
	}

	p, err := e.store.Get(ctx, pairKey)
	if err != nil {
		e.logger.WithError(err).WithField("pair_key", pairKey).Warn("Pattern lookup failed, scoring without pattern")
		p = nil
	}
	cache[pairKey] = p
	return p
}

// sortSuggestions orders by score descending, then day distance
// ascending, then amount descending, then pair key ascending.
func sortSuggestions(suggestions []*Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DaysApart != b.DaysApart {
			return a.DaysApart < b.DaysApart
		}
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.PairKey < b.PairKey
	})
}
